package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapsite/internal/cli/output"
	"github.com/leapstack-labs/leapsite/internal/state"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded builds",
		Long: `List recent builds, or show the page results of one build.

A run ID may be abbreviated to any unique prefix shown in the list.`,
		Example: `  # Recent builds
  leapsite history

  # Page results of one build
  leapsite history 3f2a9c1e`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			store, cleanup, err := cmdCtx.OpenStore()
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 1 {
				return showRun(cmdCtx, store, args[0])
			}
			return listRuns(cmdCtx, store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")

	return cmd
}

func listRuns(c *CommandContext, store state.Store, limit int) error {
	r := c.Renderer
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := make([]output.RunInfo, 0, len(runs))
		for _, run := range runs {
			out = append(out, runInfo(run))
		}
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("Builds (%d shown)", len(runs)))
	if len(runs) == 0 {
		r.Muted("No builds recorded yet")
		return nil
	}

	title := cases.Title(language.English)
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			strings.Join(run.Languages, ","),
			title.String(string(run.Status)),
			fmt.Sprintf("%d", run.Stats.Built),
			fmt.Sprintf("%d", run.Stats.Skipped),
			fmt.Sprintf("%d", run.Stats.Failed),
			run.Duration().Round(time.Millisecond).String(),
		})
	}
	r.Table([]string{"Run", "Started", "Languages", "Status", "Built", "Skipped", "Failed", "Duration"}, rows)
	return nil
}

func showRun(c *CommandContext, store state.Store, id string) error {
	r := c.Renderer
	run, err := findRun(store, id)
	if err != nil {
		return err
	}
	results, err := store.GetPageResults(run.ID)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		detail := output.RunDetail{Run: runInfo(run), Pages: make([]output.PageOutput, 0, len(results))}
		for _, pr := range results {
			page := output.PageOutput{
				Language:   pr.Language,
				Source:     pr.SourcePath,
				Output:     c.siteRel(pr.OutputPath),
				Status:     string(pr.Status),
				DurationMS: pr.DurationMS,
			}
			if pr.Error != "" {
				msg := pr.Error
				page.Error = &msg
			}
			detail.Pages = append(detail.Pages, page)
		}
		return r.JSON(detail)
	}

	r.Header(1, "Build "+shortID(run.ID))
	r.Println(output.FormatKeyValue("Status", string(run.Status)))
	r.Println(output.FormatKeyValue("Started", run.StartedAt.Local().Format(time.RFC3339)))
	r.Println(output.FormatKeyValue("Languages", strings.Join(run.Languages, ", ")))
	r.Println(output.FormatKeyValue("Forced", fmt.Sprintf("%t", run.Forced)))
	if run.Error != "" {
		r.Println(output.FormatKeyValue("Error", run.Error))
	}
	r.Println("")

	rows := make([][]string, 0, len(results))
	for _, pr := range results {
		rows = append(rows, []string{
			pr.Language,
			pr.SourcePath,
			string(pr.Status),
			fmt.Sprintf("%dms", pr.DurationMS),
			pr.Error,
		})
	}
	r.Table([]string{"Language", "Page", "Status", "Time", "Error"}, rows)
	return nil
}

// findRun looks a run up by ID or unique ID prefix among recent runs.
func findRun(store state.Store, id string) (*state.Run, error) {
	if run, err := store.GetRun(id); err == nil && run != nil {
		return run, nil
	}

	runs, err := store.ListRuns(100)
	if err != nil {
		return nil, err
	}
	var match *state.Run
	for _, run := range runs {
		if strings.HasPrefix(run.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("run ID %q is ambiguous", id)
			}
			match = run
		}
	}
	if match == nil {
		return nil, fmt.Errorf("run %q not found", id)
	}
	return match, nil
}

func runInfo(run *state.Run) output.RunInfo {
	info := output.RunInfo{
		ID:         run.ID,
		Languages:  run.Languages,
		Forced:     run.Forced,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt.Format(time.RFC3339),
		DurationMS: run.Duration().Milliseconds(),
		Stats:      output.BuildStats{Built: run.Stats.Built, Skipped: run.Stats.Skipped, Failed: run.Stats.Failed},
	}
	if run.CompletedAt != nil {
		info.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	if run.Error != "" {
		msg := run.Error
		info.Error = &msg
	}
	return info
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
