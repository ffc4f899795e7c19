package engine

// watch.go - filesystem watch mode for continuous rebuilds

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 250 * time.Millisecond

// Watch runs the pipeline once, then re-runs it whenever compiled models
// or the mapping CSV change. Each summary (or fatal error) is delivered to
// onRun. Watch blocks until the context is canceled.
func (e *Engine) Watch(ctx context.Context, onRun func(*RunSummary, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDir(watcher, e.compiledDir); err != nil {
		return err
	}
	if e.mappingPath != "" {
		// Watch the containing directory; editors often replace the file.
		if err := watcher.Add(filepath.Dir(e.mappingPath)); err != nil {
			return err
		}
	}

	var runMu sync.Mutex
	runOnce := func() {
		runMu.Lock()
		defer runMu.Unlock()
		summary, err := e.Run(ctx)
		if onRun != nil {
			onRun(summary, err)
		}
	}

	runOnce()
	e.logger.Info("watching for changes", "dir", e.compiledDir)

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// New subdirectories need their own watch before files
			// inside them produce events.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchDir(watcher, event.Name)
					continue
				}
			}
			if !e.watchRelevant(event) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			name := filepath.Base(event.Name)
			debounce = time.AfterFunc(watchDebounce, func() {
				e.logger.Debug("change detected", "file", name)
				runOnce()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watcher error", "error", err)
		}
	}
}

// watchRelevant reports whether an event should trigger a rebuild.
func (e *Engine) watchRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if e.mappingPath != "" {
		if same, err := sameFile(event.Name, e.mappingPath); err == nil && same {
			return true
		}
	}
	return strings.EqualFold(filepath.Ext(event.Name), ".sql")
}

func sameFile(a, b string) (bool, error) {
	aa, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	bb, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return aa == bb, nil
}

// watchDir recursively adds a directory tree to the watcher.
func watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}
