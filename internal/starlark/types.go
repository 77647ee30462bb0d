// Package starlark evaluates template expressions ({...} bodies and {...}
// segments of attribute values) with Starlark.
package starlark

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// SiteInfo contains site-wide settings.
// Exposed as the "site" global in Starlark execution.
type SiteInfo struct {
	URL             string   // Base URL, may be empty
	DefaultLanguage string   // Language served at the site root
	Languages       []string // All configured language names
}

// MenuItem is one entry of a language menu.
type MenuItem struct {
	Title string
	Link  string
}

// LangInfo contains the language being built.
// Exposed as the "lang" global in Starlark execution.
type LangInfo struct {
	Name   string // e.g. "en"
	Native string // e.g. "English"
	Menu   []MenuItem
}

// PageInfo contains the page being rendered.
// Exposed as the "page" global in Starlark execution.
type PageInfo struct {
	Source string // Source path relative to the site root
	Output string // Output path relative to the build directory
	URL    string // Site-relative URL of the output
}

// ToStarlark converts SiteInfo to a Starlark struct value.
func (s *SiteInfo) ToStarlark() starlark.Value {
	langs := make([]starlark.Value, len(s.Languages))
	for i, l := range s.Languages {
		langs[i] = starlark.String(l)
	}
	return starlarkstruct.FromStringDict(starlark.String("site"), starlark.StringDict{
		"url":              starlark.String(s.URL),
		"default_language": starlark.String(s.DefaultLanguage),
		"languages":        starlark.NewList(langs),
	})
}

// ToStarlark converts LangInfo to a Starlark struct value. Menu entries are
// structs with title and link fields.
func (l *LangInfo) ToStarlark() starlark.Value {
	menu := make([]starlark.Value, len(l.Menu))
	for i, item := range l.Menu {
		menu[i] = starlarkstruct.FromStringDict(starlark.String("menu_item"), starlark.StringDict{
			"title": starlark.String(item.Title),
			"link":  starlark.String(item.Link),
		})
	}
	return starlarkstruct.FromStringDict(starlark.String("lang"), starlark.StringDict{
		"name":   starlark.String(l.Name),
		"native": starlark.String(l.Native),
		"menu":   starlark.NewList(menu),
	})
}

// ToStarlark converts PageInfo to a Starlark struct value.
func (p *PageInfo) ToStarlark() starlark.Value {
	return starlarkstruct.FromStringDict(starlark.String("page"), starlark.StringDict{
		"source": starlark.String(p.Source),
		"output": starlark.String(p.Output),
		"url":    starlark.String(p.URL),
	})
}

// GoToStarlark converts a Go value to a Starlark value.
// Supported types: string, int, int64, float64, bool, []string, []any, map[string]any
func GoToStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case string:
		return starlark.String(val), nil

	case int:
		return starlark.MakeInt(val), nil

	case int64:
		return starlark.MakeInt64(val), nil

	case float64:
		return starlark.Float(val), nil

	case bool:
		return starlark.Bool(val), nil

	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, v := range val {
			sv, err := GoToStarlark(v)
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return dict, nil

	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
