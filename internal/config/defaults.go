package config

import (
	"runtime"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Default configuration values.
const (
	DefaultLanguage  = "en"
	DefaultBuildDir  = "build"
	DefaultStateFile = ".leapsite/state.db"
	DefaultPagesRoot = "www"
)

// DefaultContentTypes returns the content types used when none are
// configured.
func DefaultContentTypes() []ContentType {
	return []ContentType{{Extensions: []string{"html"}, Handler: HandlerMarkup}}
}

// ApplyDefaults fills unset fields with their defaults. An unset default
// language falls back to the first configured language.
func (s *Site) ApplyDefaults() {
	if s == nil {
		return
	}
	if s.DefaultLanguage == "" {
		s.DefaultLanguage = DefaultLanguage
		if len(s.Languages) > 0 {
			s.DefaultLanguage = s.Languages[0].Name
		}
	}
	if s.Build == "" {
		s.Build = DefaultBuildDir
	}
	if s.StatePath == "" {
		s.StatePath = DefaultStateFile
	}
	if len(s.Roots) == 0 {
		s.Roots = []string{DefaultPagesRoot}
	}
	if len(s.ContentTypes) == 0 {
		s.ContentTypes = DefaultContentTypes()
	}
	for i := range s.Languages {
		if s.Languages[i].Native == "" {
			s.Languages[i].Native = NativeName(s.Languages[i].Name)
		}
	}
}

// NativeName returns the name of a language in that language ("de" ->
// "Deutsch"), or "" when name is not a known language tag.
func NativeName(name string) string {
	tag, err := language.Parse(name)
	if err != nil {
		return ""
	}
	return display.Self.Name(tag)
}

// Concurrency returns the number of pages built at once.
func (s *Site) Concurrency() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.GOMAXPROCS(0)
}
