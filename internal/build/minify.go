package build

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/leapstack-labs/leapsite/internal/pages"
	"github.com/leapstack-labs/leapsite/internal/state"
)

// minifyLoaders maps the extensions the minify handler accepts to esbuild
// loaders.
var minifyLoaders = map[string]api.Loader{
	".css": api.LoaderCSS,
	".js":  api.LoaderJS,
	".mjs": api.LoaderJS,
}

// minifyFile writes a minified copy of a stylesheet or script. Dry runs
// still minify so that syntax errors are reported.
func (b *Builder) minifyFile(page pages.Page, opts Options, res *PageResult) error {
	if b.unchanged(page, res.Output, opts) {
		res.Status = state.PageStatusSkipped
		return nil
	}

	source, err := os.ReadFile(page.Path)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}
	code, err := Minify(page.Rel, source)
	if err != nil {
		return err
	}

	res.Status = state.PageStatusBuilt
	if opts.DryRun {
		return nil
	}
	if err := writeOutput(res.Output, bytes.NewReader(code)); err != nil {
		return err
	}
	b.remember(page, res.Output, nil)
	return nil
}

// Minify minifies CSS or JavaScript source. The loader is chosen from the
// extension of name.
func Minify(name string, source []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(name))
	loader, ok := minifyLoaders[ext]
	if !ok {
		return nil, fmt.Errorf("cannot minify %q files", ext)
	}

	result := api.Transform(string(source), api.TransformOptions{
		Loader:            loader,
		Sourcefile:        name,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: true,
		LogLevel:          api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		var msg strings.Builder
		for _, e := range result.Errors {
			if e.Location != nil {
				fmt.Fprintf(&msg, "%s:%d:%d: ", e.Location.File, e.Location.Line, e.Location.Column)
			}
			msg.WriteString(e.Text)
			msg.WriteString("\n")
		}
		return nil, fmt.Errorf("minify errors:\n%s", strings.TrimRight(msg.String(), "\n"))
	}
	return result.Code, nil
}
