package startup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type rootRecorder struct{ root string }

func (r *rootRecorder) SetLibraryRoot(root string) error {
	r.root = root
	return nil
}

func seedLibrary(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, ImagesFolderName, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(f), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRelocate_CopiesAndSwitches(t *testing.T) {
	base := t.TempDir()
	oldRoot := filepath.Join(base, "old")
	newRoot := filepath.Join(base, "new")
	seedLibrary(t, oldRoot, "cat.png", filepath.Join("Icons", "cat.ico"))

	store := &rootRecorder{}
	var calls, lastTotal int
	err := Relocate(context.Background(), store, oldRoot, newRoot, RelocateOptions{
		OnProgress: func(done, total int, _ string) {
			calls++
			lastTotal = total
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if store.root != newRoot {
		t.Errorf("stored root = %q, want %q", store.root, newRoot)
	}
	if calls != 2 || lastTotal != 2 {
		t.Errorf("progress calls = %d, total = %d, want 2 and 2", calls, lastTotal)
	}
	for _, f := range []string{"cat.png", filepath.Join("Icons", "cat.ico")} {
		data, err := os.ReadFile(filepath.Join(newRoot, ImagesFolderName, f))
		if err != nil || string(data) != f {
			t.Errorf("%s not copied: %q, %v", f, data, err)
		}
	}
	if _, err := os.Stat(filepath.Join(oldRoot, ImagesFolderName, "cat.png")); err != nil {
		t.Error("old library removed without DeleteOld")
	}
}

func TestRelocate_DeleteOld(t *testing.T) {
	base := t.TempDir()
	oldRoot := filepath.Join(base, "old")
	seedLibrary(t, oldRoot, "cat.png")

	err := Relocate(context.Background(), &rootRecorder{}, oldRoot, filepath.Join(base, "new"), RelocateOptions{DeleteOld: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(oldRoot, ImagesFolderName)); !os.IsNotExist(err) {
		t.Error("old library still present")
	}
}

func TestRelocate_Cancelled(t *testing.T) {
	base := t.TempDir()
	oldRoot := filepath.Join(base, "old")
	seedLibrary(t, oldRoot, "a.png", "b.png")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &rootRecorder{}
	err := Relocate(ctx, store, oldRoot, filepath.Join(base, "new"), RelocateOptions{DeleteOld: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Relocate() error = %v, want context.Canceled", err)
	}
	if store.root != "" {
		t.Error("cancelled relocation switched the library root")
	}
	if _, err := os.Stat(filepath.Join(oldRoot, ImagesFolderName, "a.png")); err != nil {
		t.Error("cancelled relocation touched the old library")
	}
}

func TestRelocate_SameLocation(t *testing.T) {
	root := t.TempDir()
	err := Relocate(context.Background(), &rootRecorder{}, root, root, RelocateOptions{})
	if !errors.Is(err, ErrSameLocation) {
		t.Errorf("Relocate() error = %v, want ErrSameLocation", err)
	}
}

func TestRelocate_NoOldLibrary(t *testing.T) {
	newRoot := filepath.Join(t.TempDir(), "fresh")
	store := &rootRecorder{}
	if err := Relocate(context.Background(), store, "", newRoot, RelocateOptions{DeleteOld: true}); err != nil {
		t.Fatal(err)
	}
	if store.root != newRoot {
		t.Errorf("stored root = %q", store.root)
	}
	if _, err := os.Stat(filepath.Join(newRoot, ImagesFolderName, IconsFolderName)); err != nil {
		t.Errorf("layout not created: %v", err)
	}
}
