package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsite/internal/cli/output"
	"github.com/leapstack-labs/leapsite/internal/pages"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var languages []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the pages of the site",
		Long: `List the pages discovered for each language with their output paths.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown table (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List all pages
  leapsite list

  # List pages as JSON
  leapsite list --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, languages)
		},
	}

	cmd.Flags().StringSliceVarP(&languages, "language", "l", nil, "Language to list (repeatable, default: all)")

	return cmd
}

func runList(cmd *cobra.Command, languages []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	list, err := pages.Discover(&cmdCtx.Cfg.Site, pages.Options{Languages: languages, Logger: cmdCtx.Logger})
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := output.ListOutput{
			Pages:   make([]output.PageInfo, 0, len(list)),
			Summary: make(map[string]int),
		}
		for _, p := range list {
			out.Pages = append(out.Pages, pageInfo(cmdCtx, p))
			out.Summary[p.Language]++
		}
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("Pages (%d total)", len(list)))
	if len(list) == 0 {
		r.Muted("No pages matched the configured patterns")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, p := range list {
		info := pageInfo(cmdCtx, p)
		rows = append(rows, []string{info.Language, info.Source, info.Output, info.Handler})
	}
	r.Table([]string{"Language", "Source", "Output", "Handler"}, rows)
	return nil
}

func pageInfo(c *CommandContext, p pages.Page) output.PageInfo {
	return output.PageInfo{
		Language: p.Language,
		Source:   p.Rel,
		Output:   c.siteRel(p.OutputPath(c.Cfg.Build)),
		URL:      p.URL(),
		Handler:  string(p.Handler),
	}
}
