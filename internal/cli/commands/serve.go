package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsite/internal/serve"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port      int
	Watch     bool
	Languages []string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the site and serve it locally",
		Long: `Build the site and serve the build directory over HTTP.

With --watch, changes to pages and templates rebuild the affected pages and
open browser tabs reload automatically. Changes to site.yaml require a
restart.`,
		Example: `  # Serve on the default port
  leapsite serve

  # Serve with live reload on port 3000
  leapsite serve --watch --port 3000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			srv := serve.NewServer(serve.Config{
				Builder:   b,
				Port:      opts.Port,
				Watch:     opts.Watch,
				Languages: opts.Languages,
				Logger:    cmdCtx.Logger,
			})

			cmdCtx.Renderer.Success(fmt.Sprintf("Serving %s on http://localhost:%d", cmdCtx.siteRel(cmdCtx.Cfg.Build), opts.Port))
			cmdCtx.Renderer.Muted("Press Ctrl+C to stop")
			return srv.Serve(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Rebuild on changes and reload the browser")
	cmd.Flags().StringSliceVarP(&opts.Languages, "language", "l", nil, "Language to serve (repeatable, default: all)")

	return cmd
}
