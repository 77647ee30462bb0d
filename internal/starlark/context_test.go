package starlark

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/leapsite/internal/markup"
)

func newTestContext(t *testing.T, opts ...ContextOption) *ExecutionContext {
	t.Helper()
	site := &SiteInfo{URL: "https://example.org/", DefaultLanguage: "en", Languages: []string{"en", "de"}}
	lang := &LangInfo{Name: "en", Native: "English", Menu: []MenuItem{{Title: "Home", Link: "/"}, {Title: "Blog", Link: "/blog/"}}}
	page := &PageInfo{Source: "www/index.en.html", Output: "en/www/index.html", URL: "/en/www/index.html"}
	return NewContext(site, lang, page, opts...)
}

var testOrigin = markup.Origin{File: "www/index.en.html", Offset: 12, Depth: 2, TokenLength: 5}

func TestNewContext_Globals(t *testing.T) {
	ctx := newTestContext(t)

	globals := ctx.Globals()
	for _, key := range []string{"site", "lang", "page", "params", "url"} {
		_, ok := globals[key]
		assert.True(t, ok, "global %q not found", key)
	}
}

func TestExecutionContext_Eval(t *testing.T) {
	params, err := ParamsToStarlark(map[string]any{"author": "Ada", "year": 2024})
	require.NoError(t, err)
	ctx := newTestContext(t, WithParams(params))

	tests := []struct {
		name    string
		expr    string
		want    string
		wantErr bool
	}{
		{name: "string", expr: `"hello"`, want: "hello"},
		{name: "lang name", expr: `lang.name`, want: "en"},
		{name: "native name", expr: `lang.native`, want: "English"},
		{name: "page url", expr: `page.url`, want: "/en/www/index.html"},
		{name: "params", expr: `params["author"]`, want: "Ada"},
		{name: "arithmetic", expr: `params["year"] + 1`, want: "2025"},
		{name: "none renders empty", expr: `None`, want: ""},
		{name: "list", expr: `[m.title for m in lang.menu]`, want: `["Home", "Blog"]`},
		{name: "conditional", expr: `"Start" if lang.name == "de" else "Home"`, want: "Home"},
		{name: "url builtin", expr: `url("/feed.xml")`, want: "https://example.org/feed.xml"},
		{name: "surrounding whitespace", expr: "\n    site.default_language\n", want: "en"},
		{name: "undefined", expr: `nope`, wantErr: true},
		{name: "syntax error", expr: `1 +`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ctx.Eval(tt.expr, testOrigin)
			if tt.wantErr {
				require.Error(t, err)
				var evalErr *EvalError
				require.True(t, errors.As(err, &evalErr))
				assert.Equal(t, tt.expr, evalErr.Expr)
				assert.Contains(t, err.Error(), "www/index.en.html@12")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecutionContext_Truth(t *testing.T) {
	ctx := newTestContext(t)

	tests := []struct {
		expr string
		want bool
	}{
		{`True`, true},
		{`lang.name == "en"`, true},
		{`lang.name == "de"`, false},
		{`""`, false},
		{`[]`, false},
		{`lang.menu`, true},
		{`None`, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ctx.Truth(tt.expr, testOrigin)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecutionContext_GlobalsFrozen(t *testing.T) {
	params, err := ParamsToStarlark(map[string]any{"tags": []any{"a"}})
	require.NoError(t, err)
	ctx := newTestContext(t, WithParams(params))

	_, err = ctx.EvalExpr(`params["tags"].append("b")`, testOrigin)
	assert.Error(t, err, "frozen params must reject mutation")
}

func TestExecutionContext_ConcurrentEval(t *testing.T) {
	pool := NewThreadPool(4)
	ctx := newTestContext(t, WithThreadPool(pool))

	var wg sync.WaitGroup
	errs := make([]error, 50)
	for i := range errs {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			v, err := ctx.EvalExpr(`len(site.languages) * 2`, testOrigin)
			if err == nil {
				if eq, _ := starlark.Equal(v, starlark.MakeInt(4)); !eq {
					err = errors.New("unexpected value " + v.String())
				}
			}
			errs[n] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "eval %d", i)
	}
	assert.LessOrEqual(t, pool.Size(), 4)
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://x.org/a", JoinURL("https://x.org/", "/a"))
	assert.Equal(t, "https://x.org/a", JoinURL("https://x.org", "a"))
	assert.Equal(t, "/a/b", JoinURL("", "a/b"))
}
