package resolve

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsite/internal/markup"
	"github.com/leapstack-labs/leapsite/internal/testutil"
)

// mapLoader serves templates from memory.
func mapLoader(files map[string]string) Loader {
	return LoaderFunc(func(_ context.Context, path string) (string, error) {
		src, ok := files[path]
		if !ok {
			return "", fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
		}
		return src, nil
	})
}

func newTestResolver(t *testing.T, files map[string]string) *Resolver {
	t.Helper()
	return New(Config{
		SiteRoot: "/site",
		Loader:   mapLoader(files),
		Logger:   testutil.NewTestLogger(t),
	})
}

// outline renders a tree compactly: name#id(children) "text" {expr}.
func outline(body []markup.Body) string {
	parts := make([]string, 0, len(body))
	for _, node := range body {
		switch n := node.(type) {
		case *markup.Element:
			s := n.Name
			if id, ok := n.Attr("id"); ok {
				s += "#" + id
			}
			if len(n.Body) > 0 {
				s += "(" + outline(n.Body) + ")"
			}
			parts = append(parts, s)
		case *markup.Literal:
			parts = append(parts, strconv.Quote(n.String()))
		case *markup.Expression:
			parts = append(parts, "{"+n.Source+"}")
		}
	}
	return strings.Join(parts, " ")
}

func assertResolved(t *testing.T, body []markup.Body) {
	t.Helper()
	for _, node := range body {
		el, ok := node.(*markup.Element)
		if !ok {
			continue
		}
		assert.NotEqual(t, BlockTag, el.Name, "unresolved block at %s", el.Origin)
		assert.NotEqual(t, FragmentTag, el.Name, "unresolved fragment at %s", el.Origin)
		assertResolved(t, el.Body)
	}
}

const baseLayout = `
<html>
    <head><title><block name="title">"Default"</block></title></head>
    <body>
        <block/>
        <footer><block name="footer">"(c)"</block></footer>
    </body>
</html>`

func TestResolver_PassThrough(t *testing.T) {
	r := newTestResolver(t, map[string]string{
		"/site/www/home.html": `<div#main>"hello" {page.title}<br/></div>`,
	})

	res, err := r.ResolveFile(context.Background(), "/site/www/home.html")
	require.NoError(t, err)

	assert.Equal(t, DocumentTag, res.Root.Name)
	assert.Equal(t, `div#main("hello" {page.title} br)`, outline(res.Root.Body))
	assert.Equal(t, []string{"/site/www/home.html"}, res.Trace)
}

func TestResolver_FragmentSplice(t *testing.T) {
	r := newTestResolver(t, map[string]string{
		"/site/www/home.html": `<ul><fragment><li>"a"</li><fragment><li>"b"</li></fragment></fragment></ul>`,
	})

	res, err := r.ResolveFile(context.Background(), "/site/www/home.html")
	require.NoError(t, err)

	assert.Equal(t, `ul(li("a") li("b"))`, outline(res.Root.Body))
	assertResolved(t, res.Root.Body)
}

func TestResolver_BlockParent(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "overrides and default slot",
			page: `<block parent="#layouts/base.html"><block name="title">"Home"</block><p>"hi"</p></block>`,
			want: `html(head(title("Home")) body(p("hi") footer("(c)")))`,
		},
		{
			name: "defaults kept",
			page: `<block parent="#layouts/base.html"/>`,
			want: `html(head(title("Default")) body(footer("(c)")))`,
		},
		{
			name: "override order independent",
			page: `<block parent="#layouts/base.html"><p/><block name="footer">"f"</block><block name="title">"t"</block></block>`,
			want: `html(head(title("t")) body(p footer("f")))`,
		},
		{
			name: "unknown override ignored",
			page: `<block parent="#layouts/base.html"><block name="sidebar">"x"</block></block>`,
			want: `html(head(title("Default")) body(footer("(c)")))`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, map[string]string{
				"/site/layouts/base.html": baseLayout,
				"/site/www/home.html":     tt.page,
			})

			res, err := r.ResolveFile(context.Background(), "/site/www/home.html")
			require.NoError(t, err)
			assert.Equal(t, tt.want, outline(res.Root.Body))
			assertResolved(t, res.Root.Body)
		})
	}
}

func TestResolver_InheritanceChain(t *testing.T) {
	r := newTestResolver(t, map[string]string{
		"/site/layouts/base.html": baseLayout,
		"/site/layouts/section.html": `
            <block parent="base.html">
                <block name="title">"Section"</block>
                <div#section><block/></div>
            </block>`,
		"/site/www/page.html": `
            <block parent="#layouts/section.html">
                <block name="title">"Page"</block>
                <p>"body"</p>
            </block>`,
	})

	res, err := r.ResolveFile(context.Background(), "/site/www/page.html")
	require.NoError(t, err)

	assert.Equal(t, `html(head(title("Page")) body(div#section(p("body")) footer("(c)")))`, outline(res.Root.Body))
	assert.Equal(t, []string{
		"/site/www/page.html",
		"/site/layouts/section.html",
		"/site/layouts/base.html",
	}, res.Trace)
	assert.Equal(t, []Edge{
		{From: "/site/www/page.html", To: "/site/layouts/section.html"},
		{From: "/site/layouts/section.html", To: "/site/layouts/base.html"},
	}, res.Edges)
}

func TestResolver_Include(t *testing.T) {
	files := map[string]string{
		"/site/partials/nav.html": `<nav><block name="items">"none"</block></nav>`,
	}

	tests := []struct {
		name string
		page string
		want string
	}{
		{"plain", `<body><include path="#partials/nav.html"/></body>`, `body(nav("none"))`},
		{"with override", `<body><include path="#partials/nav.html"><block name="items"><a/></block></include></body>`, `body(nav(a))`},
		{"twice", `<include path="../partials/nav.html"/><include path="#partials/nav.html"/>`, `nav("none") nav("none")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pageFiles := map[string]string{"/site/www/home.html": tt.page}
			for k, v := range files {
				pageFiles[k] = v
			}
			r := newTestResolver(t, pageFiles)

			res, err := r.ResolveFile(context.Background(), "/site/www/home.html")
			require.NoError(t, err)
			assert.Equal(t, tt.want, outline(res.Root.Body))
			assert.Equal(t, []string{"/site/www/home.html", "/site/partials/nav.html"}, res.Trace)
		})
	}
}

func TestResolver_MissingParent(t *testing.T) {
	r := newTestResolver(t, map[string]string{
		"/site/www/base.html": `<main><block/></main>`,
		"/site/www/good.html": `<block parent="base.html"><p/></block>`,
		"/site/www/bad.html":  `<block parent="missing.html"><p/></block>`,
	})

	var (
		wg              sync.WaitGroup
		goodRes, badRes *Result
		goodErr, badErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		goodRes, goodErr = r.ResolveFile(context.Background(), "/site/www/good.html")
	}()
	go func() {
		defer wg.Done()
		badRes, badErr = r.ResolveFile(context.Background(), "/site/www/bad.html")
	}()
	wg.Wait()

	require.NoError(t, goodErr)
	assert.Equal(t, "main(p)", outline(goodRes.Root.Body))

	require.Error(t, badErr)
	assert.Nil(t, badRes)
	assert.ErrorIs(t, badErr, fs.ErrNotExist)

	var loadErr *LoadError
	require.ErrorAs(t, badErr, &loadErr)
	assert.Equal(t, "missing.html", loadErr.Ref)
	assert.Equal(t, "/site/www/missing.html", loadErr.Path)
	assert.Equal(t, BlockTag, loadErr.Directive)
	assert.Equal(t, "/site/www/bad.html", loadErr.Origin.File)
}

func TestResolver_ParentParseError(t *testing.T) {
	r := newTestResolver(t, map[string]string{
		"/site/www/base.html": `<main>`,
		"/site/www/page.html": `<block parent="base.html"/>`,
	})

	_, err := r.ResolveFile(context.Background(), "/site/www/page.html")
	require.Error(t, err)
	assert.ErrorIs(t, err, markup.NoClosingTag)

	var loadErr *LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestResolver_PageParseError(t *testing.T) {
	r := newTestResolver(t, map[string]string{
		"/site/www/page.html": `{oops`,
	})

	_, err := r.ResolveFile(context.Background(), "/site/www/page.html")
	require.Error(t, err)

	var perr *markup.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "/site/www/page.html", perr.File)
}

func TestResolver_Cycle(t *testing.T) {
	r := newTestResolver(t, map[string]string{
		"/site/a.html": `<block parent="b.html"/>`,
		"/site/b.html": `<div><include path="#a.html"/></div>`,
	})

	_, err := r.ResolveFile(context.Background(), "/site/a.html")
	require.Error(t, err)

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"/site/a.html", "/site/b.html", "/site/a.html"}, cycle.Chain)
}

func TestResolver_MissingDirectiveAttribute(t *testing.T) {
	for _, page := range []string{`<include/>`, `<block parent=""/>`} {
		r := newTestResolver(t, map[string]string{"/site/p.html": page})

		_, err := r.ResolveFile(context.Background(), "/site/p.html")
		var derr *DirectiveError
		assert.ErrorAs(t, err, &derr, "page %q", page)
	}
}

func TestResolver_DoesNotMutateInput(t *testing.T) {
	files := map[string]string{
		"/site/layouts/base.html": baseLayout,
	}
	r := newTestResolver(t, files)

	page, err := markup.Parse(`<block parent="#layouts/base.html"><block name="title">"x"</block><fragment><p/></fragment></block>`, "/site/www/home.html")
	require.NoError(t, err)
	before := page.Dump()

	for range 2 {
		res, err := r.Resolve(context.Background(), page)
		require.NoError(t, err)
		assert.Equal(t, `html(head(title("x")) body(p footer("(c)")))`, outline(res.Root.Body))
	}
	assert.Equal(t, before, page.Dump())
}

func TestResolver_Canceled(t *testing.T) {
	r := newTestResolver(t, map[string]string{
		"/site/layouts/base.html": baseLayout,
		"/site/www/home.html":     `<block parent="#layouts/base.html"/>`,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ResolveFile(ctx, "/site/www/home.html")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolver_FileLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "layouts"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layouts", "base.html"), []byte(`<main><block/></main>`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`<block parent="#layouts/base.html">"hi"</block>`), 0o600))

	r := New(Config{SiteRoot: dir})
	res, err := r.ResolveFile(context.Background(), filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, `main("hi")`, outline(res.Root.Body))

	_, err = r.ResolveFile(context.Background(), filepath.Join(dir, "nope.html"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
