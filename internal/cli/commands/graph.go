package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsite/internal/build"
	"github.com/leapstack-labs/leapsite/internal/cli/output"
	"github.com/leapstack-labs/leapsite/internal/dag"
)

// GraphQuerier provides read-only access to the template graph.
type GraphQuerier interface {
	GetNode(string) (*dag.Node, bool)
	GetParents(string) []string
	GetChildren(string) []string
	GetRoots() []string
	NodeCount() int
	EdgeCount() int
}

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	var affected []string

	cmd := &cobra.Command{
		Use:   "graph [file]",
		Short: "Show which pages use which templates",
		Long: `Resolve every page and display the template dependency graph.

Files are grouped by level: level 0 holds templates that use no other
template, and every file sits one level above the deepest template it uses.
With a file argument, only that file and the templates it uses, directly or
through other templates, are shown. With --affected, only the pages that
must be rebuilt when the given files change are listed.`,
		Example: `  # Show the graph
  leapsite graph

  # Which templates does the home page use?
  leapsite graph www/index.en.html

  # Which pages use the base layout?
  leapsite graph --affected layouts/base.html

  # Output as JSON
  leapsite graph --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			focus := ""
			if len(args) == 1 {
				focus = args[0]
			}
			return runGraph(cmd, focus, affected)
		},
	}

	cmd.Flags().StringSliceVar(&affected, "affected", nil, "List pages affected by changes to these files (repeatable)")

	return cmd
}

func runGraph(cmd *cobra.Command, focus string, affected []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	b, err := cmdCtx.NewBuilder(nil)
	if err != nil {
		return err
	}
	report, err := b.Build(cmd.Context(), build.Options{Force: true, DryRun: true})
	if err != nil {
		return err
	}
	for _, res := range report.Failed() {
		r.Warning(res.Err.Error())
	}
	graph := report.Graph

	if affected != nil {
		ids := make([]string, len(affected))
		for i, f := range affected {
			ids[i] = cmdCtx.graphID(f)
		}
		return renderAffected(r, graph.GetAffectedPages(ids))
	}

	if focus != "" {
		id := cmdCtx.graphID(focus)
		if _, ok := graph.GetNode(id); !ok {
			return fmt.Errorf("%s is not part of the site graph", id)
		}
		graph = graph.Subgraph(append(graph.GetUpstreamNodes(id), id))
	}

	levels, err := graph.GetLevels()
	if err != nil {
		return fmt.Errorf("failed to get levels: %w", err)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return graphJSON(r, graph, levels)
	case output.ModeMarkdown:
		return graphMarkdown(r, graph, levels)
	default:
		return graphText(r, graph, levels)
	}
}

// graphID maps a file argument to a graph node: site-relative, slash
// separated. Relative arguments are taken relative to the site root.
func (c *CommandContext) graphID(file string) string {
	if filepath.IsAbs(file) {
		return c.siteRel(file)
	}
	return filepath.ToSlash(filepath.Clean(file))
}

func renderAffected(r *output.Renderer, pages []string) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if pages == nil {
			pages = []string{}
		}
		return r.JSON(output.GraphOutput{Affected: pages, Levels: []output.GraphLevel{}})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Affected Pages (%d)", len(pages))))
		r.Println("")
		for _, p := range pages {
			r.Println("- " + p)
		}
	default:
		r.Header(1, fmt.Sprintf("Affected Pages (%d)", len(pages)))
		for _, p := range pages {
			r.Printf("  %s\n", r.Styles().Path.Render(p))
		}
	}
	return nil
}

// graphText outputs the graph in styled text format.
func graphText(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	styles := r.Styles()

	r.Header(1, "Template Graph")

	for i, level := range levels {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", i)))
		for _, id := range level {
			uses := graph.GetParents(id)
			usedBy := graph.GetChildren(id)

			r.Printf("  %s %s\n", styles.Path.Render(id), styles.Muted.Render("("+nodeKind(graph, id)+")"))
			if len(uses) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("uses:"), strings.Join(uses, ", "))
			}
			if len(usedBy) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("used by:"), strings.Join(usedBy, ", "))
			}
		}
		r.Println("")
	}

	if roots := graph.GetRoots(); len(roots) > 0 {
		r.Printf("%s %s\n", styles.Muted.Render("Roots:"), strings.Join(roots, ", "))
	}
	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d files, %d references", graph.NodeCount(), graph.EdgeCount())))
	return nil
}

// graphMarkdown outputs the graph in markdown format.
func graphMarkdown(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	r.Println(output.FormatHeader(1, "Template Graph"))
	r.Println("")

	for i, level := range levels {
		r.Println(output.FormatHeader(2, fmt.Sprintf("Level %d", i)))
		r.Println("")
		for _, id := range level {
			r.Printf("- **%s** (%s)\n", id, nodeKind(graph, id))
			if uses := graph.GetParents(id); len(uses) > 0 {
				r.Printf("  - uses: %s\n", strings.Join(uses, ", "))
			}
			if usedBy := graph.GetChildren(id); len(usedBy) > 0 {
				r.Printf("  - used by: %s\n", strings.Join(usedBy, ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatKeyValue("Roots", strings.Join(graph.GetRoots(), ", ")))
	r.Println(output.FormatKeyValue("Files", fmt.Sprintf("%d", graph.NodeCount())))
	r.Println(output.FormatKeyValue("References", fmt.Sprintf("%d", graph.EdgeCount())))
	return nil
}

// graphJSON outputs the graph in JSON format.
func graphJSON(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	out := output.GraphOutput{
		Levels: make([]output.GraphLevel, 0, len(levels)),
		Roots:  graph.GetRoots(),
		Nodes:  graph.NodeCount(),
		Edges:  graph.EdgeCount(),
	}
	for i, level := range levels {
		gl := output.GraphLevel{Level: i, Nodes: make([]output.GraphNode, 0, len(level))}
		for _, id := range level {
			gl.Nodes = append(gl.Nodes, output.GraphNode{
				ID:     id,
				Kind:   nodeKind(graph, id),
				Uses:   graph.GetParents(id),
				UsedBy: graph.GetChildren(id),
			})
		}
		out.Levels = append(out.Levels, gl)
	}
	return r.JSON(out)
}

func nodeKind(graph GraphQuerier, id string) string {
	if node, ok := graph.GetNode(id); ok {
		return node.Kind.String()
	}
	return dag.Template.String()
}
