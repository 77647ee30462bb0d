package pages

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/testutil"
)

const siteYAML = `roots: [www, legal]
pages:
  - name: imprint
languages:
  - name: en
    pages: ["www/**/*.en.html", "static/*.css"]
  - name: de
    pages: ["www/*.de.html"]
content_types:
  - extensions: [html]
    handler: markup
  - extensions: [css]
    handler: copy
`

func loadSite(t *testing.T, yaml string, files map[string]string) *config.Site {
	t.Helper()
	root := testutil.NewSite(t, yaml, files)
	site, err := config.LoadFromDir(root)
	require.NoError(t, err)
	require.NotNil(t, site)
	return site
}

func rels(pages []Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Language + ":" + p.Rel
	}
	return out
}

func TestDiscover(t *testing.T) {
	site := loadSite(t, siteYAML, map[string]string{
		"www/index.en.html":         `<p/>`,
		"www/index.de.html":         `<p/>`,
		"www/blog/post.en.html":     `<p/>`,
		"www/blog/2024/old.en.html": `<p/>`,
		"static/site.css":           `p {}`,
		"legal/imprint.en.html":     `<p/>`,
		"legal/imprint.de.html":     `<p/>`,
		"layouts/base.html":         `<html/>`,
	})

	pages, err := Discover(site, Options{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"en:www/blog/2024/old.en.html",
		"en:www/blog/post.en.html",
		"en:www/index.en.html",
		"en:static/site.css",
		"en:legal/imprint.en.html",
		"de:www/index.de.html",
		"de:legal/imprint.de.html",
	}, rels(pages))

	assert.Equal(t, config.HandlerCopy, pages[3].Handler)
	assert.Equal(t, config.HandlerMarkup, pages[0].Handler)
	assert.Equal(t, filepath.Join(site.Root, "www", "index.en.html"), pages[2].Path)
}

func TestDiscover_LanguageFilter(t *testing.T) {
	site := loadSite(t, siteYAML, map[string]string{
		"www/index.en.html": `<p/>`,
		"www/index.de.html": `<p/>`,
	})

	pages, err := Discover(site, Options{Languages: []string{"de"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"de:www/index.de.html"}, rels(pages))

	_, err = Discover(site, Options{Languages: []string{"fr"}})
	assert.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestDiscover_MatchedDirectory(t *testing.T) {
	site := loadSite(t, "languages:\n  - name: en\n    pages: [\"www/*\"]\n", map[string]string{
		"www/index.en.html":  `<p/>`,
		"www/blog/a.en.html": `<p/>`,
	})

	_, err := Discover(site, Options{})
	require.Error(t, err)

	var dirErr *MatchedDirectoryError
	require.True(t, errors.As(err, &dirErr))
	assert.Equal(t, filepath.Join(site.Root, "www", "blog"), dirErr.Path)
	assert.Equal(t, "www/*", dirErr.Pattern)
}

func TestDiscover_AmbiguousNamedPage(t *testing.T) {
	site := loadSite(t, siteYAML, map[string]string{
		"www/imprint.en.html":   `<p/>`,
		"legal/imprint.en.html": `<p/>`,
	})

	pages, err := Discover(site, Options{Languages: []string{"en"}, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	// the glob still finds the www copy; the named lookup is skipped
	assert.Equal(t, []string{"en:www/imprint.en.html"}, rels(pages))
}

func TestDiscover_Deduplicates(t *testing.T) {
	site := loadSite(t, `pages: [{name: index}]
languages:
  - name: en
    pages: ["www/*.en.html", "www/index.en.html"]
`, map[string]string{
		"www/index.en.html": `<p/>`,
	})

	pages, err := Discover(site, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"en:www/index.en.html"}, rels(pages))
}

func TestDiscover_SkipsUnknownContentType(t *testing.T) {
	site := loadSite(t, "languages:\n  - name: en\n    pages: [\"www/*\"]\n", map[string]string{
		"www/index.en.html": `<p/>`,
		"www/notes.txt":     `x`,
	})

	pages, err := Discover(site, Options{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	assert.Equal(t, []string{"en:www/index.en.html"}, rels(pages))
}

func TestDiscover_BadPattern(t *testing.T) {
	site := loadSite(t, "languages:\n  - name: en\n    pages: [\"www/[\"]\n", nil)

	_, err := Discover(site, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid page pattern")
}

func TestPage_Output(t *testing.T) {
	tests := []struct {
		page    Page
		wantRel string
		wantURL string
	}{
		{Page{Rel: "www/index.en.html", Language: "en", Handler: config.HandlerMarkup}, "www/index.html", "/en/www/index.html"},
		{Page{Rel: "www/about.html", Language: "de", Handler: config.HandlerMarkup}, "www/about.html", "/de/www/about.html"},
		{Page{Rel: "www/page.en.htm", Language: "en", Handler: config.HandlerMarkup}, "www/page.html", "/en/www/page.html"},
		{Page{Rel: "static/site.css", Language: "en", Handler: config.HandlerCopy}, "static/site.css", "/en/static/site.css"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.wantRel, tt.page.OutputRel(), tt.page.Rel)
		assert.Equal(t, tt.wantURL, tt.page.URL(), tt.page.Rel)
	}

	p := Page{Rel: "www/index.en.html", Language: "en", Handler: config.HandlerMarkup}
	assert.Equal(t, filepath.Join("/out", "en", "www", "index.html"), p.OutputPath("/out"))
}
