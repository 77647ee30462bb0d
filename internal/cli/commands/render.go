package commands

import (
	"fmt"
	"path/filepath"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsite/internal/cli/output"
	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/pages"
)

// RenderOptions holds options for the render command.
type RenderOptions struct {
	Language string
	Raw      bool
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render <page>",
		Short: "Print the output of one page",
		Long: `Render a single page in one language and print the result without
writing anything to the build directory.

Output format depends on context:
  - Interactive terminal: HTML
  - Piped/Scripted: the page converted to Markdown (use --raw for HTML)
  - JSON: the HTML with page details`,
		Example: `  # Render the German home page
  leapsite render www/index.de.html -l de

  # Read a page as Markdown
  leapsite render www/about.en.html | less`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Language, "language", "l", "", "Language to render in (default: the default language)")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "Print HTML even when the output is piped")

	return cmd
}

func runRender(cmd *cobra.Command, file string, opts *RenderOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	lang := opts.Language
	if lang == "" {
		lang = cmdCtx.Cfg.DefaultLanguage
	}

	b, err := cmdCtx.NewBuilder(nil)
	if err != nil {
		return err
	}
	page, err := findPage(b.Site(), lang, file)
	if err != nil {
		return err
	}

	content, err := b.RenderPage(cmd.Context(), page)
	if err != nil {
		return err
	}

	switch {
	case r.EffectiveMode() == output.ModeJSON:
		return r.JSON(struct {
			output.PageInfo
			Content string `json:"content"`
		}{pageInfo(cmdCtx, page), string(content)})
	case r.EffectiveMode() == output.ModeMarkdown && !opts.Raw && page.Handler == config.HandlerMarkup:
		md, err := htmltomarkdown.ConvertString(string(content))
		if err != nil {
			return fmt.Errorf("failed to convert %s to markdown: %w", page.Rel, err)
		}
		r.Println(md)
	default:
		r.Printf("%s", content)
	}
	return nil
}

// findPage returns the page of lang whose source is file.
func findPage(site *config.Site, lang, file string) (pages.Page, error) {
	path, err := filepath.Abs(file)
	if err != nil {
		return pages.Page{}, err
	}

	list, err := pages.Discover(site, pages.Options{Languages: []string{lang}})
	if err != nil {
		return pages.Page{}, err
	}
	for _, p := range list {
		if p.Path == path {
			return p, nil
		}
	}
	return pages.Page{}, fmt.Errorf("%s is not a page of language %q", file, lang)
}
