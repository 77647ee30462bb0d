// Package pages discovers the source files a site builds for each language.
//
// Pages come from two places: the glob patterns of a language (relative to
// the site root, "**" matches any number of directories) and the named pages
// of the site, looked up in every root directory as
// <root>/<name>.<lang>.<ext> for each content-type extension.
package pages

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/leapstack-labs/leapsite/internal/config"
)

// Page is a source file to build for one language.
type Page struct {
	// Path is the absolute source path.
	Path string
	// Rel is the slash-separated path relative to the site root.
	Rel      string
	Language string
	Handler  config.Handler
}

// OutputRel returns the slash-separated output path relative to the
// language's build directory. Markup pages named like name.<lang>.<ext>
// become name.html; other handlers keep the source name.
func (p Page) OutputRel() string {
	if p.Handler != config.HandlerMarkup {
		return p.Rel
	}
	base := strings.TrimSuffix(p.Rel, path.Ext(p.Rel))
	base = strings.TrimSuffix(base, "."+p.Language)
	return base + ".html"
}

// OutputPath returns the absolute output path under buildDir.
func (p Page) OutputPath(buildDir string) string {
	return filepath.Join(buildDir, p.Language, filepath.FromSlash(p.OutputRel()))
}

// URL returns the site-relative URL of the page output.
func (p Page) URL() string {
	return "/" + p.Language + "/" + p.OutputRel()
}

// MatchedDirectoryError is returned when a page pattern matches a directory.
type MatchedDirectoryError struct {
	Pattern string
	Path    string
}

func (e *MatchedDirectoryError) Error() string {
	return fmt.Sprintf("page pattern %q matched directory %s", e.Pattern, e.Path)
}

// ErrUnknownLanguage is returned when a requested language is not configured.
var ErrUnknownLanguage = errors.New("language is not defined")

// Options configures discovery.
type Options struct {
	// Languages restricts discovery to these languages (all when empty).
	Languages []string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Discover lists the pages of site, grouped by language in the order the
// languages are requested. Within a language a file is listed once.
func Discover(site *config.Site, opts Options) ([]Page, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	names := opts.Languages
	if len(names) == 0 {
		names = site.LanguageNames()
	}

	var pages []Page
	for _, name := range names {
		lang, ok := site.Language(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
		}

		d := &discovery{site: site, lang: lang.Name, logger: logger, seen: make(map[string]bool)}
		for _, pattern := range lang.Pages {
			if err := d.glob(pattern); err != nil {
				return nil, err
			}
		}
		if err := d.named(); err != nil {
			return nil, err
		}

		logger.Debug("discovered pages", "language", lang.Name, "count", len(d.pages))
		pages = append(pages, d.pages...)
	}
	return pages, nil
}

// discovery collects the pages of one language.
type discovery struct {
	site   *config.Site
	lang   string
	logger *slog.Logger
	seen   map[string]bool
	pages  []Page
}

func (d *discovery) glob(pattern string) error {
	var matches []string
	if filepath.IsAbs(pattern) {
		found, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return fmt.Errorf("invalid page pattern %q: %w", pattern, err)
		}
		matches = found
	} else {
		found, err := doublestar.Glob(os.DirFS(d.site.Root), path.Clean(filepath.ToSlash(pattern)))
		if err != nil {
			return fmt.Errorf("invalid page pattern %q: %w", pattern, err)
		}
		for _, m := range found {
			matches = append(matches, filepath.Join(d.site.Root, filepath.FromSlash(m)))
		}
	}

	sort.Strings(matches)
	if len(matches) == 0 {
		d.logger.Warn("page pattern matched nothing", "language", d.lang, "pattern", pattern)
	}

	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return &MatchedDirectoryError{Pattern: pattern, Path: match}
		}
		if err := d.add(match); err != nil {
			return err
		}
	}
	return nil
}

func (d *discovery) named() error {
	for _, page := range d.site.Pages {
		for _, ext := range d.site.Extensions() {
			var candidates []string
			for _, root := range d.site.Roots {
				candidate := filepath.Join(d.site.Root, root, fmt.Sprintf("%s.%s.%s", page.Name, d.lang, ext))
				if _, err := os.Stat(candidate); err == nil {
					candidates = append(candidates, candidate)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}

			switch {
			case len(candidates) > 1:
				d.logger.Warn("ambiguous page name", "page", page.Name, "language", d.lang, "candidates", candidates)
			case len(candidates) == 1:
				if err := d.add(candidates[0]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (d *discovery) add(file string) error {
	if d.seen[file] {
		return nil
	}

	handler, ok := d.site.HandlerFor(filepath.Ext(file))
	if !ok {
		d.logger.Warn("no content type for page, skipping", "path", file)
		return nil
	}

	rel, err := filepath.Rel(d.site.Root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("page %s is outside the site root %s", file, d.site.Root)
	}

	d.seen[file] = true
	d.pages = append(d.pages, Page{
		Path:     file,
		Rel:      filepath.ToSlash(rel),
		Language: d.lang,
		Handler:  handler,
	})
	return nil
}
