package startup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"icon-sync/internal/filesystem"
	"icon-sync/internal/logging"
)

// ErrSameLocation is returned when the new root is the current one.
var ErrSameLocation = errors.New("library location unchanged")

// RootStore persists the chosen library root.
type RootStore interface {
	SetLibraryRoot(root string) error
}

// RelocateOptions control Relocate.
type RelocateOptions struct {
	// DeleteOld removes the old images folder after a successful copy.
	DeleteOld bool
	// OnProgress receives done/total file counts and the file being copied.
	OnProgress func(done, total int, current string)
}

// Relocate copies the library from oldRoot to newRoot, then records newRoot in
// store, then optionally deletes the old library. Files already present at the
// destination are overwritten. Cancelling ctx stops the copy between files and
// leaves the stored root unchanged. An old root without a library just
// records newRoot and creates an empty layout there.
func Relocate(ctx context.Context, store RootStore, oldRoot, newRoot string, opts RelocateOptions) error {
	newRoot, err := filepath.Abs(newRoot)
	if err != nil {
		return fmt.Errorf("resolve new library root: %w", err)
	}
	if oldRoot != "" {
		if oldRoot, err = filepath.Abs(oldRoot); err != nil {
			return fmt.Errorf("resolve old library root: %w", err)
		}
		if oldRoot == newRoot {
			return ErrSameLocation
		}
	}

	src := filepath.Join(oldRoot, ImagesFolderName)
	dst := filepath.Join(newRoot, ImagesFolderName)

	copied := 0
	if info, statErr := os.Stat(src); oldRoot != "" && statErr == nil && info.IsDir() {
		if copied, err = copyTree(ctx, src, dst, opts.OnProgress); err != nil {
			return err
		}
	} else {
		logging.Info("relocate: no library at %s, starting an empty one", src)
	}

	if err := os.MkdirAll(filepath.Join(dst, IconsFolderName), 0o755); err != nil {
		return fmt.Errorf("create library layout: %w", err)
	}
	if err := store.SetLibraryRoot(newRoot); err != nil {
		return fmt.Errorf("save library root: %w", err)
	}
	logging.Info("relocate: library moved to %s (%d files copied)", newRoot, copied)

	if opts.DeleteOld && copied > 0 {
		if err := os.RemoveAll(src); err != nil {
			return fmt.Errorf("library relocated but the old folder could not be deleted: %w", err)
		}
		logging.Info("relocate: deleted old library %s", src)
	}
	return nil
}

func copyTree(ctx context.Context, src, dst string, progress func(done, total int, current string)) (int, error) {
	var files []string
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", src, err)
	}

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return i, fmt.Errorf("relocate cancelled after %d of %d files: %w", i, len(files), err)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return i, err
		}
		target := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return i, fmt.Errorf("create %s: %w", filepath.Dir(target), err)
		}
		if err := filesystem.CopyFile(path, target); err != nil {
			return i, fmt.Errorf("copy failed: %s -> %s: %w", path, target, err)
		}
		if progress != nil {
			progress(i+1, len(files), path)
		}
	}
	return len(files), nil
}
