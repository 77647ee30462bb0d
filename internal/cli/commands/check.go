package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsite/internal/build"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	var languages []string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check every page without writing output",
		Long: `Parse, resolve and render every page and report errors.

Nothing is written to the build directory and no run is recorded.`,
		Example: `  # Check the whole site
  leapsite check

  # Check German pages only
  leapsite check -l de`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			b, err := cmdCtx.NewBuilder(nil)
			if err != nil {
				return err
			}

			report, err := b.Build(cmd.Context(), build.Options{
				Languages: languages,
				Force:     true,
				DryRun:    true,
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
		},
	}

	cmd.Flags().StringSliceVarP(&languages, "language", "l", nil, "Language to check (repeatable, default: all)")

	return cmd
}
