package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullSite = `url: https://example.org
default_language: de
build: out
workers: 3
roots: [www, legal]
pages:
  - name: home
languages:
  - name: en
    native: English
    menu: [["Home", "/"], ["Blog", "/blog"]]
    pages: ["www/**/*.en.html"]
  - name: de
    native: Deutsch
content_types:
  - extensions: [html, htm]
    handler: markup
  - extensions: [.css]
    handler: copy
params:
  author: Jane
  tags: [a, b]
`

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(fullSite), 0600))

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://example.org", cfg.URL)
	assert.Equal(t, "de", cfg.DefaultLanguage)
	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Build)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, 3, cfg.Concurrency())
	assert.Equal(t, []string{"www", "legal"}, cfg.Roots)
	assert.Equal(t, []NamedPage{{Name: "home"}}, cfg.Pages)
	assert.Equal(t, []string{"en", "de"}, cfg.LanguageNames())
	assert.Equal(t, []string{"html", "htm", "css"}, cfg.Extensions())
	assert.Equal(t, "Jane", cfg.Params["author"])

	en, ok := cfg.Language("en")
	require.True(t, ok)
	assert.Equal(t, [][]string{{"Home", "/"}, {"Blog", "/blog"}}, en.Menu)
	assert.Equal(t, []string{"www/**/*.en.html"}, en.Pages)

	_, ok = cfg.Language("fr")
	assert.False(t, ok)
}

func TestLoadFromDir_AltNameAndDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileNameAlt), []byte("languages:\n  - name: fr\n"), 0600))

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "fr", cfg.DefaultLanguage, "first language is the default")
	assert.Equal(t, "français", cfg.Languages[0].Native)
	assert.Equal(t, filepath.Join(dir, DefaultBuildDir), cfg.Build)
	assert.Equal(t, []string{DefaultPagesRoot}, cfg.Roots)
	assert.Equal(t, DefaultContentTypes(), cfg.ContentTypes)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Concurrency())
}

func TestLoadFromDir_NoConfig(t *testing.T) {
	cfg, err := LoadFromDir(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadFromDir_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("languages: [\n"), 0600))

	_, err := LoadFromDir(dir)
	assert.Error(t, err)
}

func TestNativeName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"de", "Deutsch"},
		{"en", "English"},
		{"not a tag!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NativeName(tt.name))
		})
	}
}

func TestFindSiteRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "www", "blog")
	require.NoError(t, os.MkdirAll(nested, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("languages: [{name: en}]\n"), 0600))

	assert.Equal(t, root, FindSiteRoot(nested))
	assert.Equal(t, root, FindSiteRoot(root))
}

func TestSite_Validate(t *testing.T) {
	valid := func() *Site {
		s := &Site{Languages: []Language{{Name: "en"}, {Name: "de"}}}
		s.ApplyDefaults()
		return s
	}

	tests := []struct {
		name      string
		mutate    func(s *Site)
		errSubstr string
	}{
		{"valid", func(*Site) {}, ""},
		{"no languages", func(s *Site) { s.Languages = nil }, "at least one language"},
		{"unnamed language", func(s *Site) { s.Languages[1].Name = "" }, "languages[1]: name is required"},
		{"duplicate language", func(s *Site) { s.Languages[1].Name = "en" }, `language "en" is configured more than once`},
		{"bad menu item", func(s *Site) { s.Languages[0].Menu = [][]string{{"Home"}} }, "[title, link] pair"},
		{"unknown default language", func(s *Site) { s.DefaultLanguage = "fr" }, `default_language "fr"`},
		{"unknown handler", func(s *Site) { s.ContentTypes[0].Handler = "markdown" }, `unknown handler "markdown"`},
		{"content type without extensions", func(s *Site) { s.ContentTypes[0].Extensions = nil }, "at least one extension"},
		{"unnamed page", func(s *Site) { s.Pages = []NamedPage{{}} }, "pages[0]: name is required"},
		{"negative workers", func(s *Site) { s.Workers = -1 }, "workers must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := s.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestSite_HandlerFor(t *testing.T) {
	s := &Site{ContentTypes: []ContentType{
		{Extensions: []string{"html"}, Handler: HandlerMarkup},
		{Extensions: []string{".png", "JPG"}, Handler: HandlerCopy},
	}}

	tests := []struct {
		ext  string
		want Handler
		ok   bool
	}{
		{"html", HandlerMarkup, true},
		{".html", HandlerMarkup, true},
		{"png", HandlerCopy, true},
		{".jpg", HandlerCopy, true},
		{"txt", "", false},
	}

	for _, tt := range tests {
		got, ok := s.HandlerFor(tt.ext)
		assert.Equal(t, tt.ok, ok, tt.ext)
		assert.Equal(t, tt.want, got, tt.ext)
	}
}

func TestConversions(t *testing.T) {
	s := &Site{
		URL:             "https://example.org",
		DefaultLanguage: "en",
		Languages: []Language{{
			Name:   "en",
			Native: "English",
			Menu:   [][]string{{"Home", "/"}, {"broken"}},
		}},
	}

	site := s.ToSiteInfo()
	assert.Equal(t, "https://example.org", site.URL)
	assert.Equal(t, []string{"en"}, site.Languages)

	lang := s.Languages[0].ToLangInfo()
	assert.Equal(t, "English", lang.Native)
	require.Len(t, lang.Menu, 1)
	assert.Equal(t, "Home", lang.Menu[0].Title)
	assert.Equal(t, "/", lang.Menu[0].Link)
}
