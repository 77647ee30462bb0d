// Package config provides configuration management for the leapsite CLI.
//
// It layers the site configuration from internal/config with CLI-specific
// fields, environment variables and command-line flags.
package config

import (
	sitecfg "github.com/leapstack-labs/leapsite/internal/config"
)

// Site is an alias for the shared site configuration.
type Site = sitecfg.Site

// Config holds all CLI configuration options.
type Config struct {
	Site `koanf:",squash"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultBuildDir  = sitecfg.DefaultBuildDir
	DefaultStateFile = sitecfg.DefaultStateFile
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)
