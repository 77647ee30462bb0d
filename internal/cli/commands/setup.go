package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsite/internal/build"
	"github.com/leapstack-labs/leapsite/internal/cli/config"
	"github.com/leapstack-labs/leapsite/internal/cli/output"
	"github.com/leapstack-labs/leapsite/internal/state"
)

// errNoConfig is returned when a command needs a site but none was loaded.
var errNoConfig = errors.New("no site configuration loaded\nHint: run 'leapsite init' to create a site")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		return nil, errNoConfig
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: newRenderer(cmd, cfg.OutputFormat),
	}, nil
}

func newRenderer(cmd *cobra.Command, format string) *output.Renderer {
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(format))
}

// OpenStore opens the build history store. The returned cleanup function
// closes it.
func (c *CommandContext) OpenStore() (*state.SQLiteStore, func(), error) {
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// NewBuilder creates a builder for the loaded site. store may be nil.
func (c *CommandContext) NewBuilder(store state.Store) (*build.Builder, error) {
	return build.New(build.Config{Site: &c.Cfg.Site, Store: store, Logger: c.Logger})
}

// siteRel returns path relative to the site root, slash separated.
func (c *CommandContext) siteRel(path string) string {
	rel, err := filepath.Rel(c.Cfg.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
