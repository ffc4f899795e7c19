package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmangroup/snowball/internal/cli/config"
	"github.com/jmangroup/snowball/internal/cli/output"
	"github.com/jmangroup/snowball/internal/engine"
	"github.com/jmangroup/snowball/pkg/formatter"
	"github.com/jmangroup/snowball/pkg/platform"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	eng, err := createEngine(cfg, logger, r)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that only read the run manifest.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, falling back to defaults
// when no PersistentPreRunE loaded one (direct command execution in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		CompiledDir:   config.DefaultCompiledDir,
		OutDir:        config.DefaultOutDir,
		Platform:      config.DefaultPlatform,
		Schema:        config.DefaultSchema,
		Workers:       config.DefaultWorkers,
		Formatter:     config.DefaultFormatter,
		FormatTimeout: config.DefaultFormatTimeout,
		StatePath:     config.DefaultStateFile,
		OutputFormat:  config.DefaultOutput,
	}
}

func createEngine(cfg *config.Config, logger *slog.Logger, r *output.Renderer) (*engine.Engine, error) {
	return createEngineOpts(cfg, logger, r, false, false)
}

func createEngineOpts(cfg *config.Config, logger *slog.Logger, r *output.Renderer, notebooks, notebooksOnly bool) (*engine.Engine, error) {
	p, err := platform.Parse(cfg.Platform)
	if err != nil {
		return nil, err
	}

	// Ensure state directory exists
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0o750); err != nil {
			return nil, err
		}
	}

	engineCfg := engine.Config{
		CompiledDir:   cfg.CompiledDir,
		MappingPath:   cfg.Mapping,
		OutDir:        cfg.OutDir,
		NotebooksDir:  cfg.NotebooksDir,
		Platform:      p,
		Schema:        cfg.Schema,
		Workers:       cfg.Workers,
		Notebooks:     notebooks,
		NotebooksOnly: notebooksOnly,
		Formatter:     selectFormatter(cfg, p, logger, r),
		StatePath:     cfg.StatePath,
		Logger:        logger,
	}

	return engine.New(engineCfg)
}

// selectFormatter builds the configured formatter, falling back to the
// whitespace normalizer when the external binary is not on PATH.
func selectFormatter(cfg *config.Config, p platform.Platform, logger *slog.Logger, r *output.Renderer) formatter.Formatter {
	switch cfg.Formatter {
	case "", "none", "off":
		return formatter.Noop{}
	}

	f := formatter.NewExec(cfg.Formatter, p.FormatterDialect(), cfg.FormatTimeout)
	if !f.Available() {
		logger.Warn("formatter not found on PATH, continuing without formatting",
			"command", cfg.Formatter)
		if r != nil {
			r.Warning("formatter not found on PATH, continuing without formatting")
		}
		return formatter.Noop{}
	}
	return f
}
