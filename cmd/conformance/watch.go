package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/specparity/specparity/internal/files"
)

// specWatcher re-runs the conformance check when one of the watched files
// changes. Directories are watched rather than the files themselves so that
// editors doing atomic renames still produce events.
type specWatcher struct {
	files map[string]bool

	watcher  *fsnotify.Watcher
	stopChan chan struct{}

	onChange func()

	// Debouncing for re-runs
	runTimer    *time.Timer
	runMu       sync.Mutex
	runDebounce time.Duration
	pendingRun  bool
}

func newSpecWatcher(paths []string, onChange func()) (*specWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	sw := &specWatcher{
		files:    make(map[string]bool),
		watcher:  watcher,
		stopChan: make(chan struct{}),
		onChange: onChange,

		// Wait 2 seconds of quiet before re-running
		runDebounce: 2 * time.Second,
	}

	dirs := make(map[string]bool)
	for _, path := range paths {
		// URLs cannot be watched, an empty path means no policy file.
		if path == "" || files.IsURL(path) {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			slog.Warn("Cannot resolve path, not watching", "path", path, "error", err)
			continue
		}
		sw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	if len(sw.files) == 0 {
		_ = watcher.Close()
		return nil, fmt.Errorf("nothing to watch: all inputs are URLs")
	}

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			slog.Warn("Failed to watch directory", "dir", dir, "error", err)
		}
	}

	slog.Info("File watcher initialized", "files", len(sw.files))

	return sw, nil
}

func (sw *specWatcher) start() {
	go sw.watch()
}

func (sw *specWatcher) stop() {
	sw.runMu.Lock()
	if sw.runTimer != nil {
		sw.runTimer.Stop()
		sw.runTimer = nil
	}
	sw.pendingRun = false
	sw.runMu.Unlock()

	close(sw.stopChan)
	_ = sw.watcher.Close()
}

func (sw *specWatcher) watch() {
	for {
		select {
		case <-sw.stopChan:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			sw.routeEvent(event)
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)
		}
	}
}

func (sw *specWatcher) routeEvent(event fsnotify.Event) {
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if !sw.files[abs] {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	slog.Info("Spec change detected", "path", event.Name, "op", event.Op.String())
	sw.scheduleRun()
}

// scheduleRun schedules a debounced re-run. Multiple rapid file changes
// only trigger one run after the quiet period.
func (sw *specWatcher) scheduleRun() {
	sw.runMu.Lock()
	defer sw.runMu.Unlock()

	sw.pendingRun = true

	if sw.runTimer != nil {
		sw.runTimer.Stop()
	}

	sw.runTimer = time.AfterFunc(sw.runDebounce, func() {
		sw.runMu.Lock()
		if !sw.pendingRun {
			sw.runMu.Unlock()
			return
		}
		sw.pendingRun = false
		sw.runMu.Unlock()

		sw.onChange()
	})
}
