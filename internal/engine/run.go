package engine

// run.go - pipeline orchestration for one transformation run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmangroup/snowball/internal/state"
	"github.com/jmangroup/snowball/pkg/mapping"
	"github.com/jmangroup/snowball/pkg/notebook"
	"github.com/jmangroup/snowball/pkg/platform"
)

// ModelFailure describes where in the pipeline a single model failed.
// Failures are isolated: one model failing never blocks the others.
type ModelFailure struct {
	Model string
	Stage string // "format", "render", "write", "notebook"
	Err   error
}

func (f *ModelFailure) Error() string {
	return fmt.Sprintf("model %s: %s failed: %v", f.Model, f.Stage, f.Err)
}

func (f *ModelFailure) Unwrap() error {
	return f.Err
}

// ModelResult is the outcome of transforming one model.
type ModelResult struct {
	Model        string
	ArtifactPath string
	NotebookPath string
	Duration     time.Duration
	Failure      *ModelFailure
}

// RunSummary aggregates a completed run and its per-model results,
// ordered by discovery position.
type RunSummary struct {
	Run     *state.Run
	Results []ModelResult
}

// Failed returns the number of models that failed.
func (s *RunSummary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Failure != nil {
			n++
		}
	}
	return n
}

// Run transforms every compiled model for the configured platform.
// The mapping and discovery stages are fatal; per-model stages are
// recorded in the manifest and joined into the returned error.
func (e *Engine) Run(ctx context.Context) (*RunSummary, error) {
	e.logger.Info("starting run", "platform", e.platform.String())

	var bindings []mapping.Binding
	if e.mappingPath != "" {
		m, err := mapping.Load(e.mappingPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load column mapping: %w", err)
		}
		for _, d := range m.Diagnostics() {
			e.logger.Warn("mapping diagnostic",
				"kind", string(d.Kind), "column", d.Column, "detail", d.Message)
		}
		bindings = m.Bindings()
	}

	models, err := e.DiscoverModels()
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no compiled models found in %s", e.compiledDir)
	}

	if !e.notebooksOnly {
		if err := os.MkdirAll(e.outDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if e.notebooks {
		if err := os.MkdirAll(e.notebooksDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create notebooks directory: %w", err)
		}
	}

	run, err := e.store.CreateRun(e.platform.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	e.logger.Debug("created run", "run_id", run.ID, "models", len(models), "workers", e.workers)

	// Workers fill results by discovery index, so output order is stable
	// no matter how the pool interleaves.
	results := make([]ModelResult, len(models))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, m := range models {
		i, m := i, m
		g.Go(func() error {
			results[i] = e.transformModel(gctx, m, bindings)
			return nil
		})
	}
	_ = g.Wait()

	var failures []error
	for i, r := range results {
		mr := &state.ModelRun{
			RunID:        run.ID,
			Model:        r.Model,
			Status:       state.ModelRunStatusSuccess,
			ArtifactPath: r.ArtifactPath,
			NotebookPath: r.NotebookPath,
			DurationMS:   r.Duration.Milliseconds(),
			Position:     i,
		}
		if r.Failure != nil {
			mr.Status = state.ModelRunStatusFailed
			mr.FailureKind = r.Failure.Stage
			mr.Error = r.Failure.Err.Error()
			failures = append(failures, r.Failure)
		}
		if err := e.store.RecordModelRun(mr); err != nil {
			e.logger.Error("failed to record model run", "model", r.Model, "error", err)
		}
	}

	runErr := errors.Join(failures...)
	if runErr != nil {
		e.logger.Info("run failed", "run_id", run.ID, "failed", len(failures))
		_ = e.store.CompleteRun(run.ID, state.RunStatusFailed,
			fmt.Sprintf("%d model(s) failed", len(failures)))
	} else {
		e.logger.Info("run completed", "run_id", run.ID, "models", len(models))
		_ = e.store.CompleteRun(run.ID, state.RunStatusCompleted, "")
	}

	run, _ = e.store.GetRun(run.ID)
	return &RunSummary{Run: run, Results: results}, runErr
}

// transformModel runs the format, wrap, and project stages for one model.
func (e *Engine) transformModel(ctx context.Context, m CompiledModel, bindings []mapping.Binding) ModelResult {
	start := time.Now()
	res := ModelResult{Model: m.Name}
	fail := func(stage string, err error) ModelResult {
		res.Duration = time.Since(start)
		res.Failure = &ModelFailure{Model: m.Name, Stage: stage, Err: err}
		e.logger.Debug("model transformation failed",
			"model", m.Name, "stage", stage, "error", err)
		return res
	}

	sql, err := e.formatter.Format(ctx, m.SQL)
	if err != nil {
		return fail("format", err)
	}

	art, err := platform.Render(e.platform, platform.RenderInput{
		Model:    m.Name,
		Schema:   e.schema,
		Source:   m.Path,
		SQL:      sql,
		Bindings: bindings,
	})
	if err != nil {
		return fail("render", err)
	}

	if !e.notebooksOnly {
		path := filepath.Join(e.outDir, m.Name+".sql")
		if err := writeFileAtomic(path, []byte(art.SQL)); err != nil {
			return fail("write", err)
		}
		res.ArtifactPath = path
	}

	if e.notebooks {
		path := filepath.Join(e.notebooksDir, m.Name+".ipynb")
		if err := notebook.Project(art).Write(path); err != nil {
			return fail("notebook", err)
		}
		res.NotebookPath = path
	}

	res.Duration = time.Since(start)
	e.logger.Debug("model transformed", "model", m.Name, "duration_ms", res.Duration.Milliseconds())
	return res
}

// writeFileAtomic writes through a temp file and renames so readers never
// observe a partially written artifact.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
