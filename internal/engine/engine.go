// Package engine orchestrates the compiled-model transformation pipeline.
// It discovers compiled SQL, formats it, wraps it into platform stored
// procedures, and optionally projects notebook variants of each artifact.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/jmangroup/snowball/internal/state"
	"github.com/jmangroup/snowball/pkg/formatter"
	"github.com/jmangroup/snowball/pkg/platform"
)

// Engine drives the format, wrap, and project stages for one platform.
type Engine struct {
	compiledDir   string
	mappingPath   string
	outDir        string
	notebooksDir  string
	platform      platform.Platform
	schema        string
	workers       int
	notebooks     bool
	notebooksOnly bool

	formatter formatter.Formatter
	store     state.Store
	ownsStore bool
	logger    *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// CompiledDir is the directory tree of compiled model SQL files.
	CompiledDir string
	// MappingPath is the column-mapping CSV (optional).
	MappingPath string
	// OutDir receives the stored-procedure artifacts.
	OutDir string
	// NotebooksDir receives notebook projections (default: OutDir/notebooks).
	NotebooksDir string
	// Platform selects the stored-procedure template.
	Platform platform.Platform
	// Schema is the target schema for procedures (default: dbo).
	Schema string
	// Workers bounds concurrent model transformations (default: 1).
	Workers int
	// Notebooks enables notebook projection alongside artifacts.
	Notebooks bool
	// NotebooksOnly skips artifact writes and produces notebooks only.
	NotebooksOnly bool
	// Formatter normalizes model SQL before wrapping (default: Noop).
	Formatter formatter.Formatter
	// StatePath is the path to the SQLite run-manifest database.
	StatePath string
	// Store overrides StatePath with an already-open store.
	Store state.Store
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New creates an engine and opens its run-manifest store.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if cfg.CompiledDir == "" {
		return nil, fmt.Errorf("compiled directory is required")
	}
	if cfg.OutDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	logger.Debug("initializing engine",
		"compiled_dir", cfg.CompiledDir,
		"platform", cfg.Platform.String())

	store := cfg.Store
	ownsStore := false
	if store == nil {
		statePath := cfg.StatePath
		if statePath == "" {
			statePath = "snowball.db"
		}
		s := state.NewSQLiteStore(logger)
		if err := s.Open(statePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		if err := s.InitSchema(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to initialize state schema: %w", err)
		}
		store = s
		ownsStore = true
	}

	f := cfg.Formatter
	if f == nil {
		f = formatter.Noop{}
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	notebooksDir := cfg.NotebooksDir
	if notebooksDir == "" {
		notebooksDir = filepath.Join(cfg.OutDir, "notebooks")
	}

	return &Engine{
		compiledDir:   cfg.CompiledDir,
		mappingPath:   cfg.MappingPath,
		outDir:        cfg.OutDir,
		notebooksDir:  notebooksDir,
		platform:      cfg.Platform,
		schema:        cfg.Schema,
		workers:       workers,
		notebooks:     cfg.Notebooks || cfg.NotebooksOnly,
		notebooksOnly: cfg.NotebooksOnly,
		formatter:     f,
		store:         store,
		ownsStore:     ownsStore,
		logger:        logger,
	}, nil
}

// Store returns the run-manifest store.
func (e *Engine) Store() state.Store {
	return e.store
}

// Close releases the engine's resources. A store injected through
// Config.Store stays open; its owner closes it.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")
	if e.ownsStore && e.store != nil {
		return e.store.Close()
	}
	return nil
}
