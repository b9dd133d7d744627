// Package watcher reports changes to a set of files.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before a change is reported
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches files for changes, coalescing bursts of events
type Watcher struct {
	files    map[string]bool
	debounce time.Duration
	log      *slog.Logger
}

// New creates a watcher for the given files
func New(log *slog.Logger, paths ...string) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}

	files := make(map[string]bool, len(paths))
	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", path, err)
		}
		files[absPath] = true
	}

	return &Watcher{
		files:    files,
		debounce: DefaultDebounce,
		log:      log,
	}, nil
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch blocks until ctx is cancelled, calling onChange with the sorted
// paths that changed. onChange runs on the calling goroutine, so calls
// never overlap.
func (w *Watcher) Watch(ctx context.Context, onChange func(changed []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Watch directories so files replaced by editors are still seen
	dirs := make(map[string]bool)
	for path := range w.files {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	for _, path := range slices.Sorted(maps.Keys(w.files)) {
		w.log.Info("watching for changes", "path", path)
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.files[event.Name] || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			w.log.Debug("files changed", "paths", changed)
			onChange(changed)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
