package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/pages"
	"github.com/leapstack-labs/leapsite/internal/render"
	"github.com/leapstack-labs/leapsite/internal/resolve"
	starctx "github.com/leapstack-labs/leapsite/internal/starlark"
	"github.com/leapstack-labs/leapsite/internal/state"
)

// buildPage builds one page and never panics on page errors.
func (b *Builder) buildPage(ctx context.Context, page pages.Page, opts Options) PageResult {
	start := time.Now()
	res := PageResult{
		Page:   page,
		Output: page.OutputPath(b.site.Build),
	}

	if err := ctx.Err(); err != nil {
		res.Status = state.PageStatusFailed
		res.Err = err
		return res
	}

	var err error
	switch page.Handler {
	case config.HandlerMarkup:
		err = b.buildMarkup(ctx, page, opts, &res)
	case config.HandlerCopy:
		err = b.copyFile(page, opts, &res)
	case config.HandlerMinify:
		err = b.minifyFile(page, opts, &res)
	default:
		err = fmt.Errorf("no handler %q", page.Handler)
	}

	res.Duration = time.Since(start)
	if err != nil {
		res.Status = state.PageStatusFailed
		res.Err = fmt.Errorf("%s (%s): %w", page.Rel, page.Language, err)
	}
	return res
}

func (b *Builder) buildMarkup(ctx context.Context, page pages.Page, opts Options, res *PageResult) error {
	if b.unchanged(page, res.Output, opts) {
		res.Status = state.PageStatusSkipped
		return nil
	}

	buf, err := b.renderMarkup(ctx, page, res)
	if err != nil {
		return err
	}
	res.Status = state.PageStatusBuilt
	if opts.DryRun {
		return nil
	}

	if err := writeOutput(res.Output, buf); err != nil {
		return err
	}

	templates := res.Trace[1:]
	b.remember(page, res.Output, templates)
	return nil
}

// renderMarkup resolves and renders a markup page, recording the templates
// it used in res.
func (b *Builder) renderMarkup(ctx context.Context, page pages.Page, res *PageResult) (*bytes.Buffer, error) {
	resolved, err := b.resolver.ResolveFile(ctx, page.Path)
	if err != nil {
		return nil, err
	}
	for _, p := range resolved.Trace {
		res.Trace = append(res.Trace, b.relPath(p))
	}
	for _, e := range resolved.Edges {
		res.Edges = append(res.Edges, resolve.Edge{From: b.relPath(e.From), To: b.relPath(e.To)})
	}

	lang, ok := b.site.Language(page.Language)
	if !ok {
		return nil, fmt.Errorf("language %q is not configured", page.Language)
	}
	eval := starctx.NewContext(
		b.site.ToSiteInfo(),
		lang.ToLangInfo(),
		&starctx.PageInfo{
			Source: page.Rel,
			Output: filepath.ToSlash(filepath.Join(page.Language, page.OutputRel())),
			URL:    page.URL(),
		},
		starctx.WithParams(b.params),
		starctx.WithThreadPool(b.pool),
	)

	var buf bytes.Buffer
	if err := render.New(eval, b.logger).Render(&buf, resolved.Root); err != nil {
		return nil, err
	}
	return &buf, nil
}

// RenderPage returns the output of a single page without writing it or
// consulting the store.
func (b *Builder) RenderPage(ctx context.Context, page pages.Page) ([]byte, error) {
	switch page.Handler {
	case config.HandlerMarkup:
		buf, err := b.renderMarkup(ctx, page, &PageResult{Page: page})
		if err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case config.HandlerMinify:
		source, err := os.ReadFile(page.Path)
		if err != nil {
			return nil, err
		}
		return Minify(page.Rel, source)
	default:
		return os.ReadFile(page.Path)
	}
}

func (b *Builder) copyFile(page pages.Page, opts Options, res *PageResult) error {
	if b.unchanged(page, res.Output, opts) {
		res.Status = state.PageStatusSkipped
		return nil
	}

	res.Status = state.PageStatusBuilt
	if opts.DryRun {
		return nil
	}

	f, err := os.Open(page.Path)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := writeOutput(res.Output, f); err != nil {
		return err
	}
	b.remember(page, res.Output, nil)
	return nil
}

// unchanged reports whether a page can be skipped: its source, every
// template it used last time and the site configuration hash to the stored
// value and its output still exists.
func (b *Builder) unchanged(page pages.Page, output string, opts Options) bool {
	if opts.Force || b.store == nil {
		return false
	}
	if _, err := os.Stat(output); err != nil {
		return false
	}

	stored, err := b.store.GetContentHash(page.Language, page.Rel)
	if err != nil || stored == "" {
		return false
	}
	deps, err := b.store.GetDependencies(page.Rel)
	if err != nil {
		return false
	}
	return contentHash(b.site.Root, b.fingerprint, page.Rel, deps) == stored
}

// remember stores the hash and dependencies of a freshly built page.
func (b *Builder) remember(page pages.Page, output string, templates []string) {
	if b.store == nil {
		return
	}
	if err := b.store.SetDependencies(page.Rel, templates); err != nil {
		b.logger.Warn("failed to store dependencies", "page", page.Rel, "error", err)
		return
	}
	hash := contentHash(b.site.Root, b.fingerprint, page.Rel, templates)
	if hash == "" {
		return
	}
	if err := b.store.SetContentHash(page.Language, page.Rel, hash, output); err != nil {
		b.logger.Warn("failed to store content hash", "page", page.Rel, "error", err)
	}
}

func writeOutput(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := atomic.WriteFile(path, r); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
