package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jmangroup/snowball/internal/cli/config"
	"github.com/jmangroup/snowball/internal/cli/output"
	"github.com/jmangroup/snowball/internal/engine"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	Notebooks     bool
	NotebooksOnly bool
	Watch         bool
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Transform compiled models into stored-procedure artifacts",
		Long: `Format every compiled model and wrap it into a stored procedure
for the configured platform.

Each model is processed independently: a broken model is recorded in the
run manifest and skipped, the rest of the batch still builds. Use
--notebooks to also project each artifact into a runnable notebook.`,
		Example: `  # Build all compiled models
  snowball build

  # Build for Snowflake with notebooks
  snowball build --platform snowflake --notebooks

  # Rebuild whenever compiled SQL or the mapping changes
  snowball build --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Notebooks, "notebooks", false, "Also project artifacts into notebooks")
	cmd.Flags().BoolVar(&opts.NotebooksOnly, "notebooks-only", false, "Produce notebooks without SQL artifacts")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Watch for changes and rebuild")

	return cmd
}

func runBuild(cmd *cobra.Command, opts *BuildOptions) error {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	eng, err := createEngineOpts(cfg, logger, r, opts.Notebooks, opts.NotebooksOnly)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	if opts.Watch {
		return runWatch(cmd, eng, r)
	}

	summary, err := eng.Run(cmd.Context())
	if summary == nil {
		return err
	}
	return renderSummary(r, summary, err)
}

func runWatch(cmd *cobra.Command, eng *engine.Engine, r *output.Renderer) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := eng.Watch(ctx, func(summary *engine.RunSummary, runErr error) {
		if summary == nil {
			r.Error(runErr.Error())
			return
		}
		_ = renderSummary(r, summary, runErr)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// renderSummary prints the per-model outcome table and run status.
// Model failures are reported through the manifest and exit code, not
// as a command error string.
func renderSummary(r *output.Renderer, summary *engine.RunSummary, runErr error) error {
	if r.Mode() == output.ModeJSON {
		return renderSummaryJSON(r, summary, runErr)
	}

	rows := make([]table.Row, 0, len(summary.Results))
	for _, res := range summary.Results {
		status := "success"
		detail := res.ArtifactPath
		if res.NotebookPath != "" {
			if detail != "" {
				detail += ", "
			}
			detail += res.NotebookPath
		}
		if res.Failure != nil {
			status = "failed (" + res.Failure.Stage + ")"
			detail = res.Failure.Err.Error()
		}
		rows = append(rows, table.Row{
			res.Model, status, res.Duration.Round(time.Millisecond), detail,
		})
	}
	r.Table(table.Row{"Model", "Status", "Duration", "Output"}, rows)

	failed := summary.Failed()
	if failed > 0 {
		r.Error(fmt.Sprintf("run %s failed: %d of %d models", summary.Run.ID, failed, len(summary.Results)))
		return runErr
	}
	r.Success(fmt.Sprintf("run %s completed: %d models", summary.Run.ID, len(summary.Results)))
	return nil
}

// summaryOutput is the JSON shape of a build result.
type summaryOutput struct {
	RunID    string              `json:"run_id"`
	Platform string              `json:"platform"`
	Status   string              `json:"status"`
	Models   []modelResultOutput `json:"models"`
}

type modelResultOutput struct {
	Model        string `json:"model"`
	Status       string `json:"status"`
	FailureStage string `json:"failure_stage,omitempty"`
	Error        string `json:"error,omitempty"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	NotebookPath string `json:"notebook_path,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}

func renderSummaryJSON(r *output.Renderer, summary *engine.RunSummary, runErr error) error {
	out := summaryOutput{
		RunID:    summary.Run.ID,
		Platform: summary.Run.Platform,
		Status:   string(summary.Run.Status),
		Models:   make([]modelResultOutput, 0, len(summary.Results)),
	}
	for _, res := range summary.Results {
		m := modelResultOutput{
			Model:        res.Model,
			Status:       "success",
			ArtifactPath: res.ArtifactPath,
			NotebookPath: res.NotebookPath,
			DurationMS:   res.Duration.Milliseconds(),
		}
		if res.Failure != nil {
			m.Status = "failed"
			m.FailureStage = res.Failure.Stage
			m.Error = res.Failure.Err.Error()
		}
		out.Models = append(out.Models, m)
	}
	if err := r.JSON(out); err != nil {
		return err
	}
	return runErr
}
