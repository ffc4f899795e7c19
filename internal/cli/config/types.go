// Package config provides configuration management for the snowball CLI.
//
// Configuration is layered: defaults, then snowball.yaml, then SNOWBALL_
// environment variables, then CLI flags, with later layers winning.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	CompiledDir   string        `koanf:"compiled_dir"`
	Mapping       string        `koanf:"mapping"`
	OutDir        string        `koanf:"out_dir"`
	NotebooksDir  string        `koanf:"notebooks_dir"`
	Platform      string        `koanf:"platform"`
	Schema        string        `koanf:"schema"`
	Workers       int           `koanf:"workers"`
	Formatter     string        `koanf:"formatter"`
	FormatTimeout time.Duration `koanf:"format_timeout"`
	StatePath     string        `koanf:"state_path"`
	Verbose       bool          `koanf:"verbose"`
	OutputFormat  string        `koanf:"output"`

	// ProjectRoot is the directory relative paths resolve against.
	// Derived during loading, never read from config sources.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultCompiledDir   = "target/compiled"
	DefaultOutDir        = "dist"
	DefaultPlatform      = "sqlserver"
	DefaultSchema        = "dbo"
	DefaultWorkers       = 1
	DefaultFormatter     = "sqlfluff fix --force"
	DefaultFormatTimeout = 30 * time.Second
	DefaultStateFile     = ".snowball/state.db"
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)
