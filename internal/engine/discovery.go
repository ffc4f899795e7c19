package engine

// discovery.go - compiled model discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CompiledModel is one compiled SQL file found under the compiled directory.
type CompiledModel struct {
	// Name is the model name, the file stem without the .sql extension.
	Name string
	// Path is the file location relative to the process working directory.
	Path string
	// SQL is the raw compiled body.
	SQL string
}

// DiscoverModels walks the compiled directory and loads every .sql file.
// Results are ordered lexicographically by path so runs are deterministic
// regardless of filesystem iteration order. Two files sharing a model name
// would overwrite each other's artifacts, so duplicates are an error.
func (e *Engine) DiscoverModels() ([]CompiledModel, error) {
	var paths []string
	err := filepath.WalkDir(e.compiledDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != e.compiledDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".sql") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan compiled directory: %w", err)
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths))
	models := make([]CompiledModel, 0, len(paths))
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate model name %q: %s and %s", name, prev, path)
		}
		seen[name] = path

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read model %s: %w", path, err)
		}
		models = append(models, CompiledModel{Name: name, Path: path, SQL: string(data)})
	}

	e.logger.Debug("discovered compiled models", "count", len(models), "dir", e.compiledDir)
	return models, nil
}
