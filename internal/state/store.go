// Package state persists the transformation run manifest using SQLite.
// It tracks runs and per-model outcomes so downstream packaging can
// distinguish valid artifacts from failed or partial ones.
package state

import "time"

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one pipeline execution session.
type Run struct {
	ID          string
	Platform    string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// ModelRunStatus represents the outcome of one model transformation.
type ModelRunStatus string

// Model run status constants.
const (
	ModelRunStatusSuccess ModelRunStatus = "success"
	ModelRunStatusFailed  ModelRunStatus = "failed"
)

// ModelRun represents a single model transformation within a run.
type ModelRun struct {
	ID           string
	RunID        string
	Model        string
	Status       ModelRunStatus
	FailureKind  string
	Error        string
	ArtifactPath string
	NotebookPath string
	DurationMS   int64
	Position     int
}

// Store is the run-manifest persistence contract.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	CreateRun(platform string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	RecordModelRun(mr *ModelRun) error
	ListModelRuns(runID string) ([]*ModelRun, error)
}
