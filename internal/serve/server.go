// Package serve previews a built site over HTTP.
//
// With watching enabled the server rebuilds the pages affected by a changed
// file and tells connected browsers to reload through server-sent events.
package serve

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapsite/internal/build"
	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/dag"
)

// EventsPath is the server-sent events endpoint used for live reload.
const EventsPath = "/_leapsite/events"

const liveReloadScript = `<script>new EventSource("` + EventsPath + `").onmessage=function(e){if(e.data==="reload")location.reload()}</script>`

// Config holds server configuration.
type Config struct {
	// Builder builds the site (required)
	Builder *build.Builder
	// Port to listen on
	Port int
	// Watch rebuilds pages when their sources change and enables live reload
	Watch bool
	// Languages restricts builds to these languages (all when empty)
	Languages []string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Server serves the build directory of a site.
type Server struct {
	builder   *build.Builder
	site      *config.Site
	port      int
	watch     bool
	languages []string
	logger    *slog.Logger
	notifier  *Notifier

	// guards the fields below and serializes rebuilds
	mu      sync.Mutex
	results map[string]build.PageResult
	graph   *dag.Graph
}

// NewServer creates a server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	languages := cfg.Languages
	if len(languages) == 0 {
		languages = cfg.Builder.Site().LanguageNames()
	}
	return &Server{
		builder:   cfg.Builder,
		site:      cfg.Builder.Site(),
		port:      cfg.Port,
		watch:     cfg.Watch,
		languages: languages,
		logger:    logger,
		notifier:  NewNotifier(),
		results:   make(map[string]build.PageResult),
		graph:     dag.NewGraph(),
	}
}

// Serve builds the site, then serves it until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	report, err := s.Rebuild(ctx, nil)
	if err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}
	if failed := report.Stats().Failed; failed > 0 {
		s.logger.Warn("some pages failed to build", "failed", failed)
	}

	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting preview server", "addr", fmt.Sprintf("http://localhost:%d", s.port), "watch", s.watch)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down preview server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Compress(5),
		s.logRequests,
	)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/"+s.site.DefaultLanguage+"/", http.StatusFound)
	})
	if s.watch {
		r.Get(EventsPath, s.handleEvents)
	}
	r.Get("/*", s.handleFile)
	return r
}

// Notifier returns the live reload notifier.
func (s *Server) Notifier() *Notifier {
	return s.notifier
}

// Graph returns the template graph of the last build.
func (s *Server) Graph() *dag.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// Rebuild rebuilds the pages affected by the changed files (absolute paths)
// and notifies browsers. A nil changed list rebuilds every page.
func (s *Server) Rebuild(ctx context.Context, changed []string) (*build.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.builder.Discover(s.languages)
	if err != nil {
		return nil, err
	}

	if changed != nil {
		rels := make([]string, 0, len(changed))
		for _, file := range changed {
			rel, err := filepath.Rel(s.site.Root, file)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if rel == config.ConfigFileName || rel == config.ConfigFileNameAlt {
				s.logger.Warn("site configuration changed; restart the server to apply it", "file", rel)
				continue
			}
			rels = append(rels, rel)
		}

		affected := make(map[string]bool)
		for _, rel := range rels {
			affected[rel] = true
		}
		for _, rel := range s.graph.GetAffectedPages(rels) {
			affected[rel] = true
		}

		subset := list[:0:0]
		for _, p := range list {
			if affected[p.Rel] {
				subset = append(subset, p)
			}
		}
		if len(subset) == 0 {
			s.logger.Debug("no pages affected", "changed", rels)
			return &build.Report{Languages: s.languages, Graph: s.graph}, nil
		}
		list = subset
	}

	report, err := s.builder.BuildPages(ctx, s.languages, list, build.Options{Force: true})
	if err != nil {
		return nil, err
	}
	s.merge(report, changed == nil)

	for _, res := range report.Failed() {
		s.logger.Error("page failed", "error", res.Err)
	}
	s.notifier.Broadcast("reload")
	return report, nil
}

// merge records the results of a build. A full build replaces every
// previous result.
func (s *Server) merge(report *build.Report, full bool) {
	if full {
		s.results = make(map[string]build.PageResult, len(report.Results))
	}
	for _, res := range report.Results {
		s.results[res.Page.Language+":"+res.Page.Rel] = res
	}

	keys := make([]string, 0, len(s.results))
	for k := range s.results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	results := make([]build.PageResult, 0, len(keys))
	for _, k := range keys {
		results = append(results, s.results[k])
	}

	graph, err := build.NewGraph(results)
	if err != nil {
		s.logger.Warn("failed to record template dependencies", "error", err)
	}
	s.graph = graph
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + chi.URLParam(r, "*"))
	file := filepath.Join(s.site.Build, filepath.FromSlash(name))

	info, err := os.Stat(file)
	if err == nil && info.IsDir() {
		file = filepath.Join(file, "index.html")
		info, err = os.Stat(file)
	}
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if s.watch && strings.EqualFold(filepath.Ext(file), ".html") {
		data, err := os.ReadFile(file) //nolint:gosec // G304: path is cleaned and rooted in the build directory
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		_, _ = w.Write(injectLiveReload(data))
		return
	}

	f, err := os.Open(file) //nolint:gosec // G304: path is cleaned and rooted in the build directory
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)

	_, _ = fmt.Fprintf(w, "data: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-ch:
			_, _ = fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// injectLiveReload inserts the reload script before </body>, or appends it.
func injectLiveReload(page []byte) []byte {
	i := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if i < 0 {
		return append(page, liveReloadScript...)
	}
	out := make([]byte, 0, len(page)+len(liveReloadScript))
	out = append(out, page[:i]...)
	out = append(out, liveReloadScript...)
	return append(out, page[i:]...)
}
