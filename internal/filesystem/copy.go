package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// CopyFile copies src to dst byte for byte, preserving permission bits and the
// modification time. The destination appears atomically; an existing dst is
// replaced.
func CopyFile(src, dst string) (err error) {
	start := time.Now()
	defer func() { observeOp(dst, "copy", start, err) }()

	in, err := OpenWithRetry(src, DefaultRetryConfig())
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file", src)
	}

	return writeAtomic(dst, info.Mode().Perm(), func(w io.Writer) error {
		if _, err := io.Copy(w, in); err != nil {
			return err
		}
		return nil
	}, info.ModTime())
}

// MoveFile renames src to dst. When the rename crosses a filesystem boundary
// it copies and then removes the source.
func MoveFile(src, dst string) (err error) {
	start := time.Now()
	defer func() { observeOp(dst, "move", start, err) }()

	err = os.Rename(src, dst)
	if err == nil || !IsCrossDevice(err) {
		return err
	}

	if err = CopyFile(src, dst); err != nil {
		return fmt.Errorf("cross-device move %s: %w", src, err)
	}
	if err = os.Remove(src); err != nil {
		return fmt.Errorf("remove source after cross-device move: %w", err)
	}
	return nil
}

// IsCrossDevice reports whether err is the EXDEV failure of a rename.
func IsCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// WriteAtomic streams content produced by write into a hidden temporary file next
// to path and renames it into place. A non-zero mtime is applied before the rename.
// On any failure the temporary file is removed and path is left untouched.
func WriteAtomic(path string, perm os.FileMode, write func(w io.Writer) error, mtime time.Time) (err error) {
	start := time.Now()
	defer func() { observeOp(path, "write", start, err) }()
	return writeAtomic(path, perm, write, mtime)
}

func writeAtomic(path string, perm os.FileMode, write func(w io.Writer) error, mtime time.Time) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	if !mtime.IsZero() {
		if err := os.Chtimes(tmpName, mtime, mtime); err != nil {
			return err
		}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	committed = true
	return nil
}

func observeOp(path, operation string, start time.Time, err error) {
	if defaultObserver == nil {
		return
	}
	defaultObserver.ObserveOperation(ResolveVolume(path), operation, time.Since(start).Seconds(), err)
}
