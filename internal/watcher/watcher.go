package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"icon-sync/internal/logging"
	"icon-sync/internal/metrics"
)

// DefaultDebounce is the quiet period after the last event before firing.
const DefaultDebounce = 400 * time.Millisecond

// Watcher watches a folder tree and calls Trigger once activity settles.
type Watcher struct {
	root     string
	skipDirs []string
	debounce time.Duration
	trigger  func()

	fsw  *fsnotify.Watcher
	done chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher for root. Folders in skipDirs (typically the icons
// folder) are never watched, so writing icons does not retrigger a pass.
func New(root string, debounce time.Duration, trigger func(), skipDirs ...string) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	cleaned := make([]string, 0, len(skipDirs))
	for _, d := range skipDirs {
		if d != "" {
			cleaned = append(cleaned, filepath.Clean(d))
		}
	}
	return &Watcher{
		root:     filepath.Clean(root),
		skipDirs: cleaned,
		debounce: debounce,
		trigger:  trigger,
		done:     make(chan struct{}),
	}
}

// Start registers the watch set and processes events until ctx is done.
// Events that happen after Start returns are guaranteed to be seen.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrorsTotal.Inc()
		return fmt.Errorf("create file watcher: %w", err)
	}
	w.fsw = fsw

	count := w.addTree(w.root)
	if count == 0 {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: no folders could be watched", w.root)
	}
	metrics.WatchedDirectories.Set(float64(count))
	logging.Debug("watcher: watching %d folders under %s", count, w.root)

	go w.process(ctx)
	return nil
}

// Done is closed once the event loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) process(ctx context.Context) {
	defer close(w.done)
	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			logging.Error("watcher: failed to close: %v", err)
		}
		metrics.WatchedDirectories.Set(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Error("watcher: %v", err)
			metrics.WatcherErrorsTotal.Inc()
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}
	metrics.WatcherEventsTotal.WithLabelValues(opName(event.Op)).Inc()

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if n := w.addTree(event.Name); n > 0 {
				metrics.WatchedDirectories.Add(float64(n))
			}
		}
	}
	w.rearm()
	w.schedule()
}

// rearm re-adds the root when it was removed and recreated.
func (w *Watcher) rearm() {
	for _, p := range w.fsw.WatchList() {
		if p == w.root {
			return
		}
	}
	if _, err := os.Stat(w.root); err != nil {
		return
	}
	if n := w.addTree(w.root); n > 0 {
		logging.Info("watcher: re-armed %s", w.root)
		metrics.WatchedDirectories.Set(float64(len(w.fsw.WatchList())))
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.fire)
		return
	}
	w.timer.Reset(w.debounce)
}

func (w *Watcher) fire() {
	metrics.WatcherTriggersTotal.Inc()
	logging.Debug("watcher: changes settled under %s", w.root)
	if w.trigger != nil {
		w.trigger()
	}
}

// addTree watches dir and every non-hidden folder below it.
func (w *Watcher) addTree(dir string) int {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if w.skipped(path) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			logging.Warn("watcher: failed to watch %s: %v", path, addErr)
			metrics.WatcherErrorsTotal.Inc()
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		logging.Warn("watcher: walk %s: %v", dir, err)
	}
	return count
}

func (w *Watcher) skipped(path string) bool {
	path = filepath.Clean(path)
	for _, d := range w.skipDirs {
		if path == d || strings.HasPrefix(path, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) ignored(name string) bool {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return true
	}
	return w.skipped(name)
}

func opName(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
