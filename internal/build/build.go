// Package build turns the pages of a site into output files.
//
// Pages are built concurrently with a bounded number of workers. Each page is
// independent: a failing page is recorded in the Report and never cancels
// its siblings. With a state store, pages whose source, templates and site
// configuration are unchanged since the last build are skipped.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/dag"
	"github.com/leapstack-labs/leapsite/internal/markup"
	"github.com/leapstack-labs/leapsite/internal/pages"
	"github.com/leapstack-labs/leapsite/internal/resolve"
	starctx "github.com/leapstack-labs/leapsite/internal/starlark"
	"github.com/leapstack-labs/leapsite/internal/state"
	"go.starlark.net/starlark"
)

// Config holds builder configuration.
type Config struct {
	// Site is the loaded site configuration (required)
	Site *config.Site
	// Store records runs and enables incremental builds (optional)
	Store state.Store
	// Loader reads pages and templates (defaults to resolve.FileLoader)
	Loader resolve.Loader
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Options control one build.
type Options struct {
	// Languages restricts the build to these languages (all when empty).
	Languages []string
	// Force rebuilds pages even when they are unchanged.
	Force bool
	// DryRun parses, resolves and renders pages without writing output or
	// recording a run.
	DryRun bool
}

// Builder builds the pages of one site. It is safe for concurrent use.
type Builder struct {
	site     *config.Site
	store    state.Store
	loader   resolve.Loader
	resolver *resolve.Resolver
	params   starlark.Value
	pool     *starctx.ThreadPool
	logger   *slog.Logger

	// fingerprint of the site configuration, part of every content hash
	fingerprint string
}

// New creates a builder.
func New(cfg Config) (*Builder, error) {
	if cfg.Site == nil {
		return nil, fmt.Errorf("site configuration is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	loader := cfg.Loader
	if loader == nil {
		loader = resolve.FileLoader{}
	}

	params, err := starctx.ParamsToStarlark(cfg.Site.Params)
	if err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	// shared by every page context
	params.Freeze()

	fingerprint, err := siteFingerprint(cfg.Site)
	if err != nil {
		return nil, err
	}

	return &Builder{
		site:   cfg.Site,
		store:  cfg.Store,
		loader: loader,
		resolver: resolve.New(resolve.Config{
			SiteRoot:     cfg.Site.Root,
			Loader:       loader,
			ParseOptions: markup.ParseOptions{BareAttributes: cfg.Site.BareAttributes},
			Logger:       logger,
		}),
		params:      params,
		pool:        starctx.NewThreadPool(cfg.Site.Concurrency()),
		logger:      logger,
		fingerprint: fingerprint,
	}, nil
}

// Site returns the site being built.
func (b *Builder) Site() *config.Site {
	return b.site
}

// Discover lists the pages of the requested languages.
func (b *Builder) Discover(languages []string) ([]pages.Page, error) {
	return pages.Discover(b.site, pages.Options{Languages: languages, Logger: b.logger})
}

// Build discovers and builds the pages of the requested languages. The
// returned error reports setup failures only; page failures are part of the
// Report.
func (b *Builder) Build(ctx context.Context, opts Options) (*Report, error) {
	list, err := b.Discover(opts.Languages)
	if err != nil {
		return nil, fmt.Errorf("failed to discover pages: %w", err)
	}

	languages := opts.Languages
	if len(languages) == 0 {
		languages = b.site.LanguageNames()
	}
	return b.BuildPages(ctx, languages, list, opts)
}

// BuildPages builds the given pages.
func (b *Builder) BuildPages(ctx context.Context, languages []string, list []pages.Page, opts Options) (*Report, error) {
	start := time.Now()
	report := &Report{Languages: languages, DryRun: opts.DryRun}

	record := b.store != nil && !opts.DryRun
	if record {
		run, err := b.store.CreateRun(languages, opts.Force)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		report.RunID = run.ID
		b.logger.Debug("created run", "run_id", run.ID)
	}

	b.logger.Info("building pages", "count", len(list), "languages", languages, "force", opts.Force, "dry_run", opts.DryRun)

	results := make([]PageResult, len(list))
	var g errgroup.Group
	g.SetLimit(b.site.Concurrency())

	for i, page := range list {
		g.Go(func() error {
			res := b.buildPage(ctx, page, opts)
			results[i] = res

			if res.Err != nil {
				b.logger.Error("page failed", "page", page.Rel, "language", page.Language, "error", res.Err)
			} else {
				b.logger.Debug("page done", "page", page.Rel, "language", page.Language, "status", res.Status)
			}

			if record {
				pr := &state.PageResult{
					RunID:      report.RunID,
					Language:   page.Language,
					SourcePath: page.Rel,
					OutputPath: res.Output,
					Status:     res.Status,
					DurationMS: res.Duration.Milliseconds(),
				}
				if res.Err != nil {
					pr.Error = res.Err.Error()
				}
				if err := b.store.RecordPageResult(pr); err != nil {
					b.logger.Warn("failed to record page result", "page", page.Rel, "error", err)
				}
			}
			// failures stay in the report so siblings keep building
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Page.Language != results[j].Page.Language {
			return languageIndex(languages, results[i].Page.Language) < languageIndex(languages, results[j].Page.Language)
		}
		return results[i].Page.Rel < results[j].Page.Rel
	})
	report.Results = results
	graph, err := NewGraph(results)
	if err != nil {
		b.logger.Warn("failed to record template dependencies", "error", err)
	}
	report.Graph = graph
	report.Duration = time.Since(start)

	if record {
		status := state.RunStatusCompleted
		errMsg := ""
		switch {
		case ctx.Err() != nil:
			status = state.RunStatusCancelled
			errMsg = ctx.Err().Error()
		case report.Stats().Failed > 0:
			status = state.RunStatusFailed
			errMsg = fmt.Sprintf("%d page(s) failed", report.Stats().Failed)
		}
		if err := b.store.CompleteRun(report.RunID, status, report.Stats(), errMsg); err != nil {
			b.logger.Warn("failed to complete run", "run_id", report.RunID, "error", err)
		}
	}

	stats := report.Stats()
	b.logger.Info("build finished",
		"built", stats.Built,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration_ms", report.Duration.Milliseconds())

	return report, nil
}

// NewGraph links the templates of the given results to their pages. Pages
// without templates become isolated nodes.
func NewGraph(results []PageResult) (*dag.Graph, error) {
	g := dag.NewGraph()
	for _, res := range results {
		edges := make([][2]string, 0, len(res.Edges))
		for _, e := range res.Edges {
			edges = append(edges, [2]string{e.From, e.To})
		}
		if err := g.AddPage(res.Page.Rel, edges); err != nil {
			return g, fmt.Errorf("page %s: %w", res.Page.Rel, err)
		}
	}
	return g, nil
}

// relPath returns path relative to the site root, slash separated.
func (b *Builder) relPath(path string) string {
	rel, err := filepath.Rel(b.site.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func languageIndex(languages []string, lang string) int {
	for i, l := range languages {
		if l == lang {
			return i
		}
	}
	return len(languages)
}
