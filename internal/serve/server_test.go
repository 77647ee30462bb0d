package serve

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsite/internal/build"
	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/state"
	"github.com/leapstack-labs/leapsite/internal/testutil"
)

const siteYAML = `languages:
  - name: en
    pages: ["www/*.en.html", "static/*.css"]
content_types:
  - extensions: [html]
    handler: markup
  - extensions: [css]
    handler: copy
`

var siteFiles = map[string]string{
	"layouts/base.html": `<html><body><block/></body></html>`,
	"www/index.en.html": `<block parent="#layouts/base.html"><p>"home"</p></block>`,
	"www/about.en.html": `<block parent="#layouts/base.html"><p>"about"</p></block>`,
	"www/plain.en.html": `<p>"plain"</p>`,
	"static/site.css":   `p {}`,
}

func newServer(t *testing.T, watch bool) (*Server, string) {
	t.Helper()
	root := testutil.NewSite(t, siteYAML, siteFiles)
	site, err := config.LoadFromDir(root)
	require.NoError(t, err)

	b, err := build.New(build.Config{Site: site, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return NewServer(Config{Builder: b, Watch: watch, Logger: testutil.NewTestLogger(t)}), root
}

func TestServer_Rebuild(t *testing.T) {
	s, root := newServer(t, false)
	ctx := context.Background()

	report, err := s.Rebuild(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, state.RunStats{Built: 4}, report.Stats())
	assert.Equal(t, []string{"www/about.en.html", "www/index.en.html"},
		s.Graph().GetAffectedPages([]string{"layouts/base.html"}))

	testutil.WriteFiles(t, root, map[string]string{
		"layouts/base.html": `<html><main><block/></main></html>`,
	})
	report, err = s.Rebuild(ctx, []string{filepath.Join(root, "layouts", "base.html")})
	require.NoError(t, err)
	assert.Equal(t, state.RunStats{Built: 2}, report.Stats())
	assert.Contains(t, testutil.ReadFile(t, root, "build/en/www/about.html"), "<main>")
	assert.Equal(t, 5, s.Graph().NodeCount(), "graph keeps pages that were not rebuilt")

	report, err = s.Rebuild(ctx, []string{filepath.Join(root, "www", "plain.en.html")})
	require.NoError(t, err)
	assert.Equal(t, state.RunStats{Built: 1}, report.Stats())

	report, err = s.Rebuild(ctx, []string{filepath.Join(root, "notes.txt"), filepath.Join(root, "site.yaml")})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
}

func TestServer_RebuildNewPage(t *testing.T) {
	s, root := newServer(t, false)
	ctx := context.Background()

	_, err := s.Rebuild(ctx, nil)
	require.NoError(t, err)

	testutil.WriteFiles(t, root, map[string]string{"www/new.en.html": `<p>"new"</p>`})
	report, err := s.Rebuild(ctx, []string{filepath.Join(root, "www", "new.en.html")})
	require.NoError(t, err)
	assert.Equal(t, state.RunStats{Built: 1}, report.Stats())
	assert.Equal(t, "<p>new</p>", testutil.ReadFile(t, root, "build/en/www/new.html"))
}

func TestServer_Handler(t *testing.T) {
	tests := []struct {
		name       string
		watch      bool
		path       string
		wantStatus int
		wantBody   string
		noBody     string
	}{
		{name: "page", path: "/en/www/index.html", wantStatus: http.StatusOK, wantBody: "<p>home</p>", noBody: EventsPath},
		{name: "copied file", path: "/en/static/site.css", wantStatus: http.StatusOK, wantBody: "p {}"},
		{name: "missing", path: "/en/nope.html", wantStatus: http.StatusNotFound},
		{name: "outside build directory", path: "/../site.yaml", wantStatus: http.StatusNotFound},
		{name: "live reload", watch: true, path: "/en/www/index.html", wantStatus: http.StatusOK, wantBody: liveReloadScript + "</body>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newServer(t, tt.watch)
			_, err := s.Rebuild(context.Background(), nil)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			if tt.noBody != "" {
				assert.NotContains(t, rec.Body.String(), tt.noBody)
			}
		})
	}
}

func TestServer_RootRedirect(t *testing.T) {
	s, _ := newServer(t, false)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/en/", rec.Header().Get("Location"))
}

func TestServer_Events(t *testing.T) {
	s, _ := newServer(t, true)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + EventsPath) //nolint:noctx // test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: connected", strings.TrimSpace(line))
	_, _ = reader.ReadString('\n')

	s.Notifier().Broadcast("reload")
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: reload", strings.TrimSpace(line))
}

func TestServer_Ignored(t *testing.T) {
	s, root := newServer(t, true)

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "www", "index.en.html"), false},
		{filepath.Join(root, "layouts"), false},
		{filepath.Join(root, "build", "en", "www", "index.html"), true},
		{filepath.Join(root, ".leapsite", "state.db"), true},
		{filepath.Join(root, "www", ".index.en.html.swp"), true},
		{filepath.Join(root, "www", "index.en.html~"), true},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			assert.Equal(t, tt.want, s.ignored(tt.path))
		})
	}
}

func TestNotifier(t *testing.T) {
	n := NewNotifier()
	a := n.Subscribe()
	b := n.Subscribe()
	assert.Equal(t, 2, n.Len())

	n.Broadcast("reload")
	n.Broadcast("dropped")
	assert.Equal(t, "reload", <-a)
	assert.Equal(t, "reload", <-b)

	n.Unsubscribe(a)
	assert.Equal(t, 1, n.Len())
	_, open := <-a
	assert.False(t, open)
	n.Unsubscribe(b)
}

func TestInjectLiveReload(t *testing.T) {
	assert.Equal(t, "<p/>"+liveReloadScript, string(injectLiveReload([]byte("<p/>"))))
	assert.Equal(t, "<BODY>x"+liveReloadScript+"</BODY>", string(injectLiveReload([]byte("<BODY>x</BODY>"))))
}
