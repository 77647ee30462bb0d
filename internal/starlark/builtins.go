package starlark

import (
	"strings"

	"go.starlark.net/starlark"
)

// ParamsToStarlark converts the site params map to a Starlark dict.
// The dict is accessible as "params" global in templates.
func ParamsToStarlark(params map[string]any) (starlark.Value, error) {
	if params == nil {
		return starlark.NewDict(0), nil
	}
	return GoToStarlark(params)
}

// Predeclared returns all predeclared/builtin globals for template execution.
// This includes: site, lang, page, params, url
func Predeclared(site *SiteInfo, lang *LangInfo, page *PageInfo, params starlark.Value) starlark.StringDict {
	if params == nil {
		params = starlark.NewDict(0)
	}
	globals := starlark.StringDict{
		"params": params,
	}

	base := ""
	if site != nil {
		globals["site"] = site.ToStarlark()
		base = site.URL
	}
	if lang != nil {
		globals["lang"] = lang.ToStarlark()
	}
	if page != nil {
		globals["page"] = page.ToStarlark()
	}
	globals["url"] = urlBuiltin(base)

	// globals are shared between threads
	for _, v := range globals {
		v.Freeze()
	}
	return globals
}

// urlBuiltin returns url(path), which joins path onto the site base URL.
// Without a base URL the path is returned site-relative.
func urlBuiltin(base string) *starlark.Builtin {
	return starlark.NewBuiltin("url", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var path string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &path); err != nil {
			return nil, err
		}
		return starlark.String(JoinURL(base, path)), nil
	})
}

// JoinURL joins a base URL and a site-relative path with exactly one slash.
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
