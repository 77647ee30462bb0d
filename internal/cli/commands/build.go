package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsite/internal/build"
	"github.com/leapstack-labs/leapsite/internal/cli/output"
	"github.com/leapstack-labs/leapsite/internal/state"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	Languages []string
	Force     bool
	DryRun    bool
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the site",
		Long: `Build every page of the site for each configured language.

Pages are written to <build>/<language>/. Pages whose source and templates
did not change since the last build are skipped unless --force is given.
A failing page never stops the others; the command exits with an error when
any page failed.`,
		Example: `  # Build all languages
  leapsite build

  # Build English and German only
  leapsite build -l en -l de

  # Rebuild everything
  leapsite build --force

  # Report results as JSON for CI
  leapsite build --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Languages, "language", "l", nil, "Language to build (repeatable, default: all)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Rebuild pages even when unchanged")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Render pages without writing output")

	return cmd
}

func runBuild(cmd *cobra.Command, opts *BuildOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	b, err := cmdCtx.NewBuilder(store)
	if err != nil {
		return err
	}

	report, err := b.Build(cmd.Context(), build.Options{
		Languages: opts.Languages,
		Force:     opts.Force,
		DryRun:    opts.DryRun,
	})
	if err != nil {
		return err
	}

	if err := renderReport(cmdCtx, report, cmdCtx.Cfg.Verbose); err != nil {
		return err
	}
	if failed := report.Stats().Failed; failed > 0 {
		return fmt.Errorf("%d page(s) failed", failed)
	}
	return nil
}

// renderReport prints a build report. Skipped pages are listed only when
// verbose.
func renderReport(c *CommandContext, report *build.Report, verbose bool) error {
	r := c.Renderer
	stats := report.Stats()

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(buildOutput(c, report))
	}

	for _, res := range report.Results {
		if res.Status == state.PageStatusSkipped && !verbose {
			continue
		}
		detail := res.Duration.Round(time.Microsecond).String()
		if res.Status == state.PageStatusSkipped {
			detail = "unchanged"
		}
		r.StatusLine(res.Page.Language+"/"+res.Page.Rel, string(res.Status), detail)
	}
	for _, res := range report.Failed() {
		r.Error(res.Err.Error())
	}

	summary := fmt.Sprintf("%d built, %d skipped, %d failed in %s",
		stats.Built, stats.Skipped, stats.Failed, report.Duration.Round(time.Millisecond))
	if report.DryRun {
		summary += " (dry run)"
	}
	if stats.Failed > 0 {
		r.Println(summary)
		return nil
	}
	r.Success(summary)
	return nil
}

func buildOutput(c *CommandContext, report *build.Report) output.BuildOutput {
	stats := report.Stats()
	out := output.BuildOutput{
		RunID:      report.RunID,
		Languages:  report.Languages,
		DryRun:     report.DryRun,
		Stats:      output.BuildStats{Built: stats.Built, Skipped: stats.Skipped, Failed: stats.Failed},
		DurationMS: report.Duration.Milliseconds(),
		Pages:      make([]output.PageOutput, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		page := output.PageOutput{
			Language:   res.Page.Language,
			Source:     res.Page.Rel,
			Output:     c.siteRel(res.Output),
			Status:     string(res.Status),
			DurationMS: res.Duration.Milliseconds(),
		}
		if len(res.Trace) > 1 {
			page.Templates = res.Trace[1:]
		}
		if res.Err != nil {
			msg := res.Err.Error()
			page.Error = &msg
		}
		out.Pages = append(out.Pages, page)
	}
	return out
}
