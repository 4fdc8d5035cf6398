package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func startWatcher(t *testing.T, root string, debounce time.Duration, skip ...string) *atomic.Int32 {
	t.Helper()
	var fired atomic.Int32
	w := New(root, debounce, func() { fired.Add(1) }, skip...)

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		cancel()
		<-w.Done()
	})
	return &fired
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	root := t.TempDir()
	fired := startWatcher(t, root, 200*time.Millisecond)

	for i := 0; i < 5; i++ {
		touch(t, filepath.Join(root, string(rune('a'+i))+".png"))
	}

	waitFor(t, func() bool { return fired.Load() >= 1 })
	time.Sleep(400 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("trigger fired %d times for one burst, want 1", got)
	}
}

func TestWatcher_WatchesNewSubfolders(t *testing.T) {
	root := t.TempDir()
	fired := startWatcher(t, root, 50*time.Millisecond)

	sub := filepath.Join(root, "pets")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return fired.Load() >= 1 })
	before := fired.Load()

	// give the create handler time to register the new folder
	time.Sleep(100 * time.Millisecond)
	touch(t, filepath.Join(sub, "cat.png"))
	waitFor(t, func() bool { return fired.Load() > before })
}

func TestWatcher_IgnoresSkippedAndHidden(t *testing.T) {
	root := t.TempDir()
	icons := filepath.Join(root, "Icons")
	if err := os.Mkdir(icons, 0o755); err != nil {
		t.Fatal(err)
	}
	fired := startWatcher(t, root, 50*time.Millisecond, icons)

	touch(t, filepath.Join(icons, "cat.ico"))
	touch(t, filepath.Join(root, ".DS_Store"))

	time.Sleep(300 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("trigger fired %d times for ignored paths, want 0", got)
	}
}

func TestWatcher_StartFailsForMissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), 0, nil)
	if err := w.Start(context.Background()); err == nil {
		t.Error("Start() on a missing folder succeeded")
	}
}

func TestOpName(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want string
	}{
		{fsnotify.Create, "create"},
		{fsnotify.Write, "write"},
		{fsnotify.Remove, "remove"},
		{fsnotify.Rename, "rename"},
		{fsnotify.Chmod, "chmod"},
		{fsnotify.Create | fsnotify.Write, "create"},
		{0, "unknown"},
	}
	for _, tt := range tests {
		if got := opName(tt.op); got != tt.want {
			t.Errorf("opName(%v) = %q, want %q", tt.op, got, tt.want)
		}
	}
}
