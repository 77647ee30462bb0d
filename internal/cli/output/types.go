package output

// JSON payloads of the CLI commands.

// BuildOutput is the JSON output of build and check.
type BuildOutput struct {
	RunID      string       `json:"run_id,omitempty"`
	Languages  []string     `json:"languages"`
	DryRun     bool         `json:"dry_run"`
	Stats      BuildStats   `json:"stats"`
	DurationMS int64        `json:"duration_ms"`
	Pages      []PageOutput `json:"pages"`
}

// BuildStats counts page outcomes.
type BuildStats struct {
	Built   int `json:"built"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// PageOutput is the outcome of building one page.
type PageOutput struct {
	Language   string   `json:"language"`
	Source     string   `json:"source"`
	Output     string   `json:"output"`
	Status     string   `json:"status"`
	DurationMS int64    `json:"duration_ms"`
	Templates  []string `json:"templates,omitempty"`
	Error      *string  `json:"error,omitempty"`
}

// PageInfo describes a discovered page.
type PageInfo struct {
	Language string `json:"language"`
	Source   string `json:"source"`
	Output   string `json:"output"`
	URL      string `json:"url"`
	Handler  string `json:"handler"`
}

// ListOutput is the JSON output of list.
type ListOutput struct {
	Pages   []PageInfo     `json:"pages"`
	Summary map[string]int `json:"pages_per_language"`
}

// GraphOutput is the JSON output of graph.
type GraphOutput struct {
	Levels   []GraphLevel `json:"levels"`
	Affected []string     `json:"affected,omitempty"`
	Roots    []string     `json:"roots,omitempty"`
	Nodes    int          `json:"nodes"`
	Edges    int          `json:"edges"`
}

// GraphLevel groups nodes of the same depth.
type GraphLevel struct {
	Level int         `json:"level"`
	Nodes []GraphNode `json:"nodes"`
}

// GraphNode is a page or template in the graph.
type GraphNode struct {
	ID     string   `json:"id"`
	Kind   string   `json:"kind"`
	Uses   []string `json:"uses,omitempty"`
	UsedBy []string `json:"used_by,omitempty"`
}

// RunInfo describes a recorded build run.
type RunInfo struct {
	ID          string     `json:"id"`
	Languages   []string   `json:"languages"`
	Forced      bool       `json:"forced"`
	Status      string     `json:"status"`
	StartedAt   string     `json:"started_at"`
	CompletedAt string     `json:"completed_at,omitempty"`
	DurationMS  int64      `json:"duration_ms"`
	Stats       BuildStats `json:"stats"`
	Error       *string    `json:"error,omitempty"`
}

// RunDetail is a run with its page results.
type RunDetail struct {
	Run   RunInfo      `json:"run"`
	Pages []PageOutput `json:"pages"`
}
