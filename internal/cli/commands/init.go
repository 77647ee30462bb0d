package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapsite/internal/cli/config"
	"github.com/leapstack-labs/leapsite/internal/cli/output"
	sitecfg "github.com/leapstack-labs/leapsite/internal/config"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Languages []string
	URL       string
	Force     bool
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a new site",
		Long: `Create a new site with a configuration file, a base layout, a stylesheet
and a home page for every language.

This creates:
  - site.yaml configuration file
  - layouts/base.html template inherited by the pages
  - www/index.<lang>.html home page per language
  - static/style.css copied to every language`,
		Example: `  # Initialize in the current directory
  leapsite init

  # A site in English and German
  leapsite init my-site -l en,de --url https://example.org

  # Overwrite an existing configuration
  leapsite init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			format := config.DefaultOutput
			if f := cmd.Flags().Lookup("output"); f != nil && f.Changed {
				format = f.Value.String()
			}
			return runInit(newRenderer(cmd, format), dir, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Languages, "language", "l", []string{sitecfg.DefaultLanguage}, "Languages of the site, the first is the default")
	cmd.Flags().StringVar(&opts.URL, "url", "", "Base URL the site is published under")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(r *output.Renderer, dir string, opts *InitOptions) error {
	languages, err := cleanLanguages(opts.Languages)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, sitecfg.ConfigFileName)
	if found := sitecfg.FindConfigFile(dir); found != "" && !opts.Force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", filepath.Base(found))
	}

	data, err := marshalSite(newSite(languages, opts.URL))
	if err != nil {
		return err
	}
	if _, err := writeNew(configPath, data, true); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	created := []string{sitecfg.ConfigFileName}

	files, err := copyTemplate("site", dir, opts.Force)
	if err != nil {
		return fmt.Errorf("failed to initialize site: %w", err)
	}
	created = append(created, files...)

	page, err := templateFS.ReadFile(pageTemplate)
	if err != nil {
		return err
	}
	for _, lang := range languages {
		rel := fmt.Sprintf("%s/index.%s.html", sitecfg.DefaultPagesRoot, lang)
		ok, err := writeNew(filepath.Join(dir, filepath.FromSlash(rel)), page, opts.Force)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", rel, err)
		}
		if ok {
			created = append(created, rel)
		}
	}

	for _, f := range created {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("Site initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  leapsite build    Build every page")
	r.Println("  leapsite serve    Preview the site with live reload (--watch)")
	r.Println("  leapsite list     See the pages of each language")

	return nil
}

// cleanLanguages trims the requested language names and rejects empty or
// duplicate ones.
func cleanLanguages(names []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("language name must not be empty")
		}
		if seen[name] {
			return nil, fmt.Errorf("language %q given twice", name)
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one language is required")
	}
	return out, nil
}

// newSite returns the configuration of a new site.
func newSite(languages []string, url string) *sitecfg.Site {
	site := &sitecfg.Site{
		URL:             url,
		DefaultLanguage: languages[0],
		Build:           sitecfg.DefaultBuildDir,
		StatePath:       sitecfg.DefaultStateFile,
		ContentTypes: []sitecfg.ContentType{
			{Extensions: []string{"html"}, Handler: sitecfg.HandlerMarkup},
			{Extensions: []string{"css"}, Handler: sitecfg.HandlerCopy},
		},
	}
	for _, name := range languages {
		site.Languages = append(site.Languages, sitecfg.Language{
			Name:   name,
			Native: sitecfg.NativeName(name),
			Menu:   [][]string{{"Home", "/" + name + "/www/index.html"}},
			Pages: []string{
				sitecfg.DefaultPagesRoot + "/**/*." + name + ".html",
				"static/*.css",
			},
		})
	}
	return site
}

func marshalSite(site *sitecfg.Site) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# Site configuration. Paths are relative to this file.\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(site); err != nil {
		return nil, fmt.Errorf("failed to encode site configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
