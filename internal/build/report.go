package build

import (
	"errors"
	"time"

	"github.com/leapstack-labs/leapsite/internal/dag"
	"github.com/leapstack-labs/leapsite/internal/pages"
	"github.com/leapstack-labs/leapsite/internal/resolve"
	"github.com/leapstack-labs/leapsite/internal/state"
)

// PageResult is the outcome of building one page.
type PageResult struct {
	Page pages.Page
	// Output is the absolute output path.
	Output   string
	Status   state.PageStatus
	Duration time.Duration
	Err      error
	// Trace lists the page and the templates it used, site-relative. It is
	// empty for skipped pages.
	Trace []string
	Edges []resolve.Edge
}

// Report summarizes a build.
type Report struct {
	// RunID is empty when no run was recorded.
	RunID     string
	Languages []string
	DryRun    bool
	Results   []PageResult
	// Graph links templates to the pages built in this run.
	Graph    *dag.Graph
	Duration time.Duration
}

// Stats counts page outcomes.
func (r *Report) Stats() state.RunStats {
	var stats state.RunStats
	for _, res := range r.Results {
		switch res.Status {
		case state.PageStatusBuilt:
			stats.Built++
		case state.PageStatusSkipped:
			stats.Skipped++
		case state.PageStatusFailed:
			stats.Failed++
		}
	}
	return stats
}

// Failed returns the results of failed pages.
func (r *Report) Failed() []PageResult {
	var failed []PageResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err joins the errors of all failed pages, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}
