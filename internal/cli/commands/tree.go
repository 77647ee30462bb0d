package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsite/internal/cli/output"
	"github.com/leapstack-labs/leapsite/internal/markup"
	"github.com/leapstack-labs/leapsite/internal/resolve"
)

// NewTreeCommand creates the tree command.
func NewTreeCommand() *cobra.Command {
	var resolved bool

	cmd := &cobra.Command{
		Use:   "tree <file>",
		Short: "Print the parsed tree of a file",
		Long: `Parse a page or template and print its element tree.

With --resolve, template inheritance and includes are expanded first and the
files loaded on the way are listed.`,
		Example: `  # Show how a page is parsed
  leapsite tree www/index.en.html

  # Show the page after template resolution
  leapsite tree www/index.en.html --resolve`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd, args[0], resolved)
		},
	}

	cmd.Flags().BoolVar(&resolved, "resolve", false, "Resolve templates before printing")

	return cmd
}

func runTree(cmd *cobra.Command, file string, resolved bool) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	site := cmdCtx.Cfg.Site

	path, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	source, err := os.ReadFile(path) //nolint:gosec // G304: file named on the command line
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	opts := markup.ParseOptions{BareAttributes: site.BareAttributes}
	root, err := markup.NewParser(string(source), path, opts).Parse()
	if err != nil {
		return err
	}

	var trace []string
	if resolved {
		res, err := resolve.New(resolve.Config{
			SiteRoot:     site.Root,
			ParseOptions: opts,
			Logger:       cmdCtx.Logger,
		}).Resolve(cmd.Context(), root)
		if err != nil {
			return err
		}
		root = res.Root
		for _, t := range res.Trace {
			trace = append(trace, cmdCtx.siteRel(t))
		}
	}

	switch r.EffectiveMode() {
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, cmdCtx.siteRel(path)))
		r.Println("")
		if len(trace) > 1 {
			r.Println(output.FormatKeyValue("Templates", strings.Join(trace[1:], ", ")))
			r.Println("")
		}
		r.Println(output.FormatCodeBlock("", root.Dump()))
	case output.ModeJSON:
		return r.JSON(map[string]any{
			"file":  cmdCtx.siteRel(path),
			"trace": trace,
			"tree":  root.Dump(),
		})
	default:
		if len(trace) > 1 {
			for _, t := range trace[1:] {
				r.Muted("uses " + t)
			}
		}
		r.Println(root.Dump())
	}
	return nil
}
