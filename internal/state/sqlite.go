package state

import (
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	} else {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema initializes the database schema.
func (s *SQLiteStore) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// CreateRun creates a new pipeline run.
func (s *SQLiteStore) CreateRun(platform string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		Platform:  platform,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("platform", platform))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, platform, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Platform, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as completed with the given status.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	var errVal any
	if errMsg != "" {
		errVal = errMsg
	}

	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), now, errVal, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, platform, status, started_at, completed_at, error FROM runs WHERE id = ?`, id,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, platform, status, started_at, completed_at, error
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordModelRun persists the outcome of one model transformation.
func (s *SQLiteStore) RecordModelRun(mr *ModelRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if mr.ID == "" {
		mr.ID = generateID()
	}

	_, err := s.db.Exec(
		`INSERT INTO model_runs (id, run_id, model, status, failure_kind, error, artifact_path, notebook_path, duration_ms, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mr.ID, mr.RunID, mr.Model, string(mr.Status),
		nullable(mr.FailureKind), nullable(mr.Error),
		nullable(mr.ArtifactPath), nullable(mr.NotebookPath),
		mr.DurationMS, mr.Position,
	)
	if err != nil {
		return fmt.Errorf("failed to record model run: %w", err)
	}
	return nil
}

// ListModelRuns retrieves the model outcomes of a run in pipeline order.
func (s *SQLiteStore) ListModelRuns(runID string) ([]*ModelRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, model, status, failure_kind, error, artifact_path, notebook_path, duration_ms, position
		 FROM model_runs WHERE run_id = ? ORDER BY position`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list model runs: %w", err)
	}
	defer rows.Close()

	var mrs []*ModelRun
	for rows.Next() {
		mr := &ModelRun{}
		var failureKind, errMsg, artifact, notebook sql.NullString
		var status string
		if err := rows.Scan(&mr.ID, &mr.RunID, &mr.Model, &status, &failureKind, &errMsg,
			&artifact, &notebook, &mr.DurationMS, &mr.Position); err != nil {
			return nil, fmt.Errorf("failed to scan model run: %w", err)
		}
		mr.Status = ModelRunStatus(status)
		mr.FailureKind = failureKind.String
		mr.Error = errMsg.String
		mr.ArtifactPath = artifact.String
		mr.NotebookPath = notebook.String
		mrs = append(mrs, mr)
	}
	return mrs, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for scanRun.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	run := &Run{}
	var status string
	var completedAt sql.NullTime
	var errMsg sql.NullString
	if err := sc.Scan(&run.ID, &run.Platform, &status, &run.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.Error = errMsg.String
	return run, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
