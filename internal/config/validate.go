package config

import (
	"errors"
	"fmt"
)

// ErrNoLanguages is returned when a site configures no language.
var ErrNoLanguages = errors.New("at least one language is required")

// Validate checks if the configuration is valid.
func (s *Site) Validate() error {
	if len(s.Languages) == 0 {
		return ErrNoLanguages
	}

	seen := make(map[string]bool, len(s.Languages))
	for i, l := range s.Languages {
		if l.Name == "" {
			return fmt.Errorf("languages[%d]: name is required", i)
		}
		if seen[l.Name] {
			return fmt.Errorf("language %q is configured more than once", l.Name)
		}
		seen[l.Name] = true

		for j, item := range l.Menu {
			if len(item) != 2 {
				return fmt.Errorf("language %q: menu[%d] must be a [title, link] pair", l.Name, j)
			}
		}
	}

	if s.DefaultLanguage != "" && !seen[s.DefaultLanguage] {
		return fmt.Errorf("default_language %q is not a configured language", s.DefaultLanguage)
	}

	for i, ct := range s.ContentTypes {
		switch ct.Handler {
		case HandlerMarkup, HandlerCopy, HandlerMinify:
		default:
			return fmt.Errorf("content_types[%d]: unknown handler %q (expected %q, %q or %q)", i, ct.Handler, HandlerMarkup, HandlerCopy, HandlerMinify)
		}
		if len(ct.Extensions) == 0 {
			return fmt.Errorf("content_types[%d]: at least one extension is required", i)
		}
	}

	for i, p := range s.Pages {
		if p.Name == "" {
			return fmt.Errorf("pages[%d]: name is required", i)
		}
	}

	if s.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", s.Workers)
	}

	return nil
}
