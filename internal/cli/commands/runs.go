package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jmangroup/snowball/internal/cli/output"
	"github.com/jmangroup/snowball/internal/state"
)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	Limit int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show run history from the manifest",
		Long: `Show recent transformation runs recorded in the state database.

With a run ID, shows the per-model outcomes of that run instead.`,
		Example: `  # Recent runs
  snowball runs

  # Per-model outcomes of one run
  snowball runs 4f6b2c0e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, opts, args)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "Maximum number of runs to show")

	return cmd
}

func runRuns(cmd *cobra.Command, opts *RunsOptions, args []string) error {
	cc := NewCommandContextWithoutEngine(cmd)

	store := state.NewSQLiteStore(cc.Logger)
	if err := store.Open(cc.Cfg.StatePath); err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.InitSchema(); err != nil {
		return fmt.Errorf("failed to initialize state schema: %w", err)
	}

	if len(args) == 1 {
		return showModelRuns(cc.Renderer, store, args[0])
	}
	return listRuns(cc.Renderer, store, opts.Limit)
}

// runInfo is the JSON shape of one listed run.
type runInfo struct {
	ID          string `json:"id"`
	Platform    string `json:"platform"`
	Status      string `json:"status"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	Error       string `json:"error,omitempty"`
}

func listRuns(r *output.Renderer, store state.Store, limit int) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}

	if r.Mode() == output.ModeJSON {
		infos := make([]runInfo, 0, len(runs))
		for _, run := range runs {
			info := runInfo{
				ID:        run.ID,
				Platform:  run.Platform,
				Status:    string(run.Status),
				StartedAt: run.StartedAt.Format(time.RFC3339),
				Error:     run.Error,
			}
			if run.CompletedAt != nil {
				info.CompletedAt = run.CompletedAt.Format(time.RFC3339)
			}
			infos = append(infos, info)
		}
		return r.JSON(infos)
	}

	if len(runs) == 0 {
		r.Println("No runs recorded yet.")
		return nil
	}

	rows := make([]table.Row, 0, len(runs))
	for _, run := range runs {
		completed := ""
		if run.CompletedAt != nil {
			completed = run.CompletedAt.Format(time.RFC3339)
		}
		rows = append(rows, table.Row{
			run.ID, run.Platform, string(run.Status),
			run.StartedAt.Format(time.RFC3339), completed,
		})
	}
	r.Table(table.Row{"Run", "Platform", "Status", "Started", "Completed"}, rows)
	return nil
}

// modelRunInfo is the JSON shape of one per-model outcome.
type modelRunInfo struct {
	Model        string `json:"model"`
	Status       string `json:"status"`
	FailureKind  string `json:"failure_kind,omitempty"`
	Error        string `json:"error,omitempty"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	NotebookPath string `json:"notebook_path,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}

func showModelRuns(r *output.Renderer, store state.Store, runID string) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	mrs, err := store.ListModelRuns(runID)
	if err != nil {
		return err
	}

	if r.Mode() == output.ModeJSON {
		infos := make([]modelRunInfo, 0, len(mrs))
		for _, mr := range mrs {
			infos = append(infos, modelRunInfo{
				Model:        mr.Model,
				Status:       string(mr.Status),
				FailureKind:  mr.FailureKind,
				Error:        mr.Error,
				ArtifactPath: mr.ArtifactPath,
				NotebookPath: mr.NotebookPath,
				DurationMS:   mr.DurationMS,
			})
		}
		return r.JSON(infos)
	}

	r.Println(output.FormatKeyValue("Run", run.ID))
	r.Println(output.FormatKeyValue("Platform", run.Platform))
	r.Println(output.FormatKeyValue("Status", string(run.Status)))
	if run.Error != "" {
		r.Println(output.FormatKeyValue("Error", run.Error))
	}
	r.Println("")

	rows := make([]table.Row, 0, len(mrs))
	for _, mr := range mrs {
		detail := mr.ArtifactPath
		if mr.Status == state.ModelRunStatusFailed {
			detail = mr.Error
		}
		rows = append(rows, table.Row{
			mr.Model, string(mr.Status), mr.FailureKind,
			time.Duration(mr.DurationMS) * time.Millisecond, detail,
		})
	}
	r.Table(table.Row{"Model", "Status", "Stage", "Duration", "Detail"}, rows)
	return nil
}
