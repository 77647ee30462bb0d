// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsite/internal/cli/config"
	"github.com/leapstack-labs/leapsite/internal/testutil"
)

// SiteYAML configures the test site: English and German pages under www/
// and a stylesheet copied to both languages.
const SiteYAML = `url: https://example.org
languages:
  - name: en
    menu: [[Home, /en/www/index.html]]
    pages: ["www/*.en.html", "static/*.css"]
  - name: de
    pages: ["www/*.de.html", "static/*.css"]
content_types:
  - extensions: [html]
    handler: markup
  - extensions: [css]
    handler: copy
params:
  company: Leapstack
`

// SiteFiles are the pages and templates of the test site.
var SiteFiles = map[string]string{
	"layouts/base.html": `<html lang="{lang.name}"><body><block/></body></html>`,
	"www/index.en.html": `<block parent="#layouts/base.html"><p>{params["company"]}</p></block>`,
	"www/about.en.html": `<block parent="#layouts/base.html"><p>"About"</p></block>`,
	"www/index.de.html": `<block parent="#layouts/base.html"><p>{lang.native}</p></block>`,
	"static/site.css":   `body { margin: 0; }`,
}

// SetupTestSite creates the test site, loads its configuration and returns
// the site root. The configuration is reset when the test ends.
func SetupTestSite(t *testing.T) string {
	t.Helper()

	root := testutil.NewSite(t, SiteYAML, SiteFiles)
	LoadSite(t, root)
	return root
}

// LoadSite loads the configuration of the site at root.
func LoadSite(t *testing.T, root string) *config.Config {
	t.Helper()

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cfg, err := config.LoadConfig(filepath.Join(root, "site.yaml"), nil)
	if err != nil {
		t.Fatalf("failed to load site configuration: %v", err)
	}
	return cfg
}

// ExecuteCommand runs cmd with args and returns what it wrote to stdout and
// stderr.
func ExecuteCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if fenceCount := strings.Count(md, "```"); fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
