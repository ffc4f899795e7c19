// Package cli provides the command-line interface for snowball.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmangroup/snowball/internal/cli/commands"
	"github.com/jmangroup/snowball/internal/cli/config"
	"github.com/jmangroup/snowball/internal/cli/output"
	"github.com/jmangroup/snowball/pkg/platform"
)

var (
	cfgFile string
	cfg     *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "snowball",
		Short: "snowball - Compiled-SQL Packaging Pipeline",
		Long: `snowball post-processes compiled SQL models into deployable artifacts.

It formats each compiled model, rewrites columns through a mapping CSV,
wraps the result into a platform-specific stored procedure, and can
project every artifact into a runnable notebook.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)

			// Build the logger from the resolved verbosity and stash it
			// where commands look for it.
			logger := config.NewLogger(cfg.Verbose)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", configFile)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Compiled-SQL packaging for stored procedures and notebooks
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./snowball.yaml)")
	rootCmd.PersistentFlags().String("compiled-dir", "", "Path to compiled model SQL")
	rootCmd.PersistentFlags().String("mapping", "", "Path to column-mapping CSV")
	rootCmd.PersistentFlags().String("out-dir", "", "Path for stored-procedure artifacts")
	rootCmd.PersistentFlags().String("notebooks-dir", "", "Path for notebook projections")
	rootCmd.PersistentFlags().StringP("platform", "p", "", "Target platform (sqlserver|snowflake|databricks|fabric|redshift)")
	rootCmd.PersistentFlags().String("schema", "", "Target schema for procedures")
	rootCmd.PersistentFlags().Int("workers", 0, "Concurrent model transformations")
	rootCmd.PersistentFlags().String("formatter", "", "Formatter command (use 'none' to disable)")
	rootCmd.PersistentFlags().Duration("format-timeout", 0, "Per-model formatter timeout")
	rootCmd.PersistentFlags().String("state", "", "Path to state database")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	_ = rootCmd.RegisterFlagCompletionFunc("platform", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, len(platform.All()))
		for _, p := range platform.All() {
			names = append(names, p.String())
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewNotebooksCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
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

// GetRenderer builds a renderer for the configured output mode.
func GetRenderer(ctx context.Context) *output.Renderer {
	mode := output.ModeAuto
	if c := GetConfig(ctx); c.OutputFormat != "" {
		mode = output.Mode(c.OutputFormat)
	}
	return output.NewRenderer(os.Stdout, os.Stderr, mode)
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for snowball.

To load completions:

Bash:
  $ source <(snowball completion bash)

Zsh:
  $ snowball completion zsh > "${fpath[1]}/_snowball"

Fish:
  $ snowball completion fish | source

PowerShell:
  PS> snowball completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
