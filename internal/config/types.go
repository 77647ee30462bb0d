// Package config provides the site configuration schema shared by the CLI,
// the build and the preview server.
package config

import (
	"strings"

	starctx "github.com/leapstack-labs/leapsite/internal/starlark"
)

// Handler names how files of a content type are turned into output.
type Handler string

// Known content handlers.
const (
	// HandlerMarkup parses, resolves and renders the file to HTML.
	HandlerMarkup Handler = "markup"
	// HandlerCopy copies the file verbatim.
	HandlerCopy Handler = "copy"
	// HandlerMinify minifies CSS and JavaScript files.
	HandlerMinify Handler = "minify"
)

// Site holds the configuration of one site, read from site.yaml.
type Site struct {
	URL             string         `koanf:"url" yaml:"url,omitempty"`
	DefaultLanguage string         `koanf:"default_language" yaml:"default_language"`
	Build           string         `koanf:"build" yaml:"build"`
	StatePath       string         `koanf:"state_path" yaml:"state_path"`
	Workers         int            `koanf:"workers" yaml:"workers,omitempty"`
	BareAttributes  bool           `koanf:"bare_attributes" yaml:"bare_attributes,omitempty"`
	Roots           []string       `koanf:"roots" yaml:"roots,omitempty"`
	Pages           []NamedPage    `koanf:"pages" yaml:"pages,omitempty"`
	Languages       []Language     `koanf:"languages" yaml:"languages"`
	ContentTypes    []ContentType  `koanf:"content_types" yaml:"content_types,omitempty"`
	Params          map[string]any `koanf:"params" yaml:"params,omitempty"`

	// Root is the site root directory, the directory holding the config
	// file. References starting with '#' resolve against it.
	Root string `koanf:"-" yaml:"-"`
}

// NamedPage is a page looked up by name in every root directory, as
// <root>/<name>.<lang>.<ext>.
type NamedPage struct {
	Name string `koanf:"name" yaml:"name"`
}

// Language is one language the site is built in.
type Language struct {
	Name   string `koanf:"name" yaml:"name"`
	Native string `koanf:"native" yaml:"native,omitempty"`
	// Menu holds [title, link] pairs.
	Menu [][]string `koanf:"menu" yaml:"menu,omitempty,flow"`
	// Pages are glob patterns relative to the site root.
	Pages []string `koanf:"pages" yaml:"pages,omitempty"`
}

// ContentType maps file extensions to a handler.
type ContentType struct {
	Extensions []string `koanf:"extensions" yaml:"extensions,flow"`
	Handler    Handler  `koanf:"handler" yaml:"handler"`
}

// Language returns the language with the given name.
func (s *Site) Language(name string) (Language, bool) {
	for _, l := range s.Languages {
		if l.Name == name {
			return l, true
		}
	}
	return Language{}, false
}

// LanguageNames returns the configured language names in order.
func (s *Site) LanguageNames() []string {
	names := make([]string, len(s.Languages))
	for i, l := range s.Languages {
		names[i] = l.Name
	}
	return names
}

// Extensions returns every configured content-type extension, without the
// leading dot.
func (s *Site) Extensions() []string {
	var exts []string
	for _, ct := range s.ContentTypes {
		for _, ext := range ct.Extensions {
			exts = append(exts, strings.TrimPrefix(ext, "."))
		}
	}
	return exts
}

// HandlerFor returns the handler for a file extension (with or without the
// leading dot).
func (s *Site) HandlerFor(ext string) (Handler, bool) {
	ext = strings.TrimPrefix(ext, ".")
	for _, ct := range s.ContentTypes {
		for _, e := range ct.Extensions {
			if strings.EqualFold(strings.TrimPrefix(e, "."), ext) {
				return ct.Handler, true
			}
		}
	}
	return "", false
}

// ToSiteInfo converts the site to the "site" global exposed to expressions.
func (s *Site) ToSiteInfo() *starctx.SiteInfo {
	return &starctx.SiteInfo{
		URL:             s.URL,
		DefaultLanguage: s.DefaultLanguage,
		Languages:       s.LanguageNames(),
	}
}

// ToLangInfo converts the language to the "lang" global exposed to
// expressions.
func (l Language) ToLangInfo() *starctx.LangInfo {
	info := &starctx.LangInfo{Name: l.Name, Native: l.Native}
	for _, item := range l.Menu {
		if len(item) != 2 {
			continue
		}
		info.Menu = append(info.Menu, starctx.MenuItem{Title: item[0], Link: item[1]})
	}
	return info
}
