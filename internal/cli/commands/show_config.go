package commands

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapsite/internal/cli/config"
	"github.com/leapstack-labs/leapsite/internal/cli/output"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective site configuration",
		Long: `Print the site configuration after defaults, environment variables and
flags are applied. Paths are shown as resolved.`,
		Example: `  # Show the configuration
  leapsite config

  # Check what LEAPSITE_BUILD resolves to
  LEAPSITE_BUILD=/tmp/out leapsite config -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer
			site := cmdCtx.Cfg.Site

			if r.EffectiveMode() == output.ModeJSON {
				doc, err := siteDocument(&site)
				if err != nil {
					return err
				}
				return r.JSON(doc)
			}

			var buf bytes.Buffer
			fmt.Fprintf(&buf, "# site root: %s\n", site.Root)
			if used := config.GetConfigFileUsed(); used != "" {
				fmt.Fprintf(&buf, "# config file: %s\n", used)
			}
			enc := yaml.NewEncoder(&buf)
			enc.SetIndent(2)
			if err := enc.Encode(site); err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			if err := enc.Close(); err != nil {
				return err
			}

			if r.EffectiveMode() == output.ModeMarkdown {
				r.Println(output.FormatCodeBlock("yaml", buf.String()))
				return nil
			}
			r.Printf("%s", buf.String())
			return nil
		},
	}
}

// siteDocument returns the site as a generic document keyed like site.yaml,
// with the resolved root added.
func siteDocument(site *config.Site) (map[string]any, error) {
	data, err := yaml.Marshal(site)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	doc := make(map[string]any)
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	doc["root"] = site.Root
	return doc, nil
}
