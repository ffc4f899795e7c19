package config

import (
	"fmt"

	"github.com/jmangroup/snowball/pkg/platform"
)

// Validate checks the loaded configuration for values no command could use.
func Validate(cfg *Config) error {
	if _, err := platform.Parse(cfg.Platform); err != nil {
		return err
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.FormatTimeout < 0 {
		return fmt.Errorf("format_timeout must not be negative")
	}
	switch cfg.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("unknown output format %q (want auto, text, markdown, or json)", cfg.OutputFormat)
	}
	return nil
}
