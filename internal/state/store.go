// Package state records build history for a site using SQLite.
// It tracks runs, per-page results, content hashes for incremental builds
// and the templates each page depends on.
package state

import "time"

// Store is the build history consumed by the build and the CLI.
type Store interface {
	// Runs
	CreateRun(languages []string, forced bool) (*Run, error)
	CompleteRun(id string, status RunStatus, stats RunStats, errMsg string) error
	GetRun(id string) (*Run, error)
	GetLatestRun() (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// Page results
	RecordPageResult(result *PageResult) error
	GetPageResults(runID string) ([]*PageResult, error)

	// Incremental builds
	GetContentHash(language, sourcePath string) (string, error)
	SetContentHash(language, sourcePath, hash, outputPath string) error
	DeleteContentHash(language, sourcePath string) error
	SetDependencies(pagePath string, templates []string) error
	GetDependencies(pagePath string) ([]string, error)
	GetDependents(templatePath string) ([]string, error)

	Close() error
}

// RunStatus is the state of a build run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunStats counts page outcomes of a run.
type RunStats struct {
	Built   int
	Skipped int
	Failed  int
}

// Run is one invocation of the build.
type Run struct {
	ID          string
	Languages   []string
	Forced      bool
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Stats       RunStats
	Error       string
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// PageStatus is the outcome of building one page.
type PageStatus string

// Page statuses.
const (
	PageStatusBuilt   PageStatus = "built"
	PageStatusSkipped PageStatus = "skipped"
	PageStatusFailed  PageStatus = "failed"
)

// PageResult is the outcome of building one page in a run.
type PageResult struct {
	ID         string
	RunID      string
	Language   string
	SourcePath string
	OutputPath string
	Status     PageStatus
	DurationMS int64
	Error      string
}
