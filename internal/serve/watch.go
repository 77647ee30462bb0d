package serve

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 100 * time.Millisecond

// watchFiles watches the site root and rebuilds affected pages.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := s.watchDir(watcher, s.site.Root); err != nil {
		s.logger.Error("failed to watch site directory", "error", err)
	}

	var (
		mu            sync.Mutex
		pending       = make(map[string]bool)
		debounceTimer *time.Timer
	)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if s.ignored(event.Name) {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := s.watchDir(watcher, event.Name); err != nil {
						s.logger.Warn("failed to watch directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}

			mu.Lock()
			pending[event.Name] = true
			mu.Unlock()

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				mu.Lock()
				changed := make([]string, 0, len(pending))
				for name := range pending {
					changed = append(changed, name)
				}
				pending = make(map[string]bool)
				mu.Unlock()

				if len(changed) == 0 {
					return
				}
				sort.Strings(changed)
				s.logger.Info("change detected", "files", len(changed))

				report, err := s.Rebuild(ctx, changed)
				if err != nil {
					s.logger.Error("rebuild failed", "error", err)
					return
				}
				stats := report.Stats()
				s.logger.Info("rebuilt", "built", stats.Built, "failed", stats.Failed)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// watchDir adds dir and its subdirectories to the watcher.
func (s *Server) watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != s.site.Root && s.ignored(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// ignored reports whether changes to path never affect the site: files in
// the build directory, hidden files and directories, and editor backups.
func (s *Server) ignored(path string) bool {
	if path == s.site.Build || strings.HasPrefix(path, s.site.Build+string(filepath.Separator)) {
		return true
	}
	if strings.HasSuffix(path, "~") {
		return true
	}
	rel, err := filepath.Rel(s.site.Root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}
