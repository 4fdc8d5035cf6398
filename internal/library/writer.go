package library

import (
	"fmt"
	"os"
	"path/filepath"

	"icon-sync/internal/filesystem"
	"icon-sync/internal/logging"
	"icon-sync/internal/metrics"
	"icon-sync/internal/naming"
)

// Collision describes an incoming file whose canonical name is already held by
// a different file in the library. The existing file always wins.
type Collision struct {
	Op       string `json:"op"`
	Incoming string `json:"incoming"`
	Desired  string `json:"desired"`
	Existing string `json:"existing"`
}

// Message renders the collision as a status line.
func (c Collision) Message() string {
	return fmt.Sprintf("%s: SKIP (collision, duplicates forbidden): incoming=%q -> desired=%q but existing=%q",
		c.Op, c.Incoming, c.Desired, c.Existing)
}

// CollisionRecorder receives every collision a Writer detects.
type CollisionRecorder interface {
	RecordCollision(c Collision)
}

// Writer copies and moves files into a library folder.
type Writer struct {
	Dir      string
	Accept   AcceptFunc
	Recorder CollisionRecorder
}

// NewWriter returns a Writer for dir that accepts regular image files.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Accept: IsAcceptedFile}
}

func (w *Writer) accept(path string) bool {
	if w.Accept == nil {
		return IsAcceptedFile(path)
	}
	return w.Accept(path)
}

// CopyIntoLibrary copies src into the library under its canonical name.
//
// It returns ("", nil, nil) when src is not an accepted file. When the
// canonical name is already held, nothing is copied and the existing path is
// returned with a Collision. A copy that fails returns an error and no path.
func (w *Writer) CopyIntoLibrary(src string) (string, *Collision, error) {
	return w.place("copy", src, "", filesystem.CopyFile)
}

// MoveIntoLibrary moves src into the library, under desiredOverride when set.
// On collision the source is left exactly where it was.
func (w *Writer) MoveIntoLibrary(src, desiredOverride string) (string, *Collision, error) {
	return w.place("move", src, desiredOverride, filesystem.MoveFile)
}

func (w *Writer) place(op, src, override string, transfer func(src, dst string) error) (string, *Collision, error) {
	if !w.accept(src) {
		return "", nil, nil
	}

	name := filepath.Base(src)
	if override != "" {
		name = override
	}
	desired := naming.CanonicalLibraryFilename(name)

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		logging.Error("%s: cannot create library folder %s: %v", op, w.Dir, err)
		return "", nil, fmt.Errorf("create library folder: %w", err)
	}

	idx := BuildIndex(w.Dir, w.accept)
	if existing, ok := idx.Lookup(desired); ok {
		if sameFile(existing, src) {
			return existing, nil, nil
		}
		c := &Collision{Op: op, Incoming: src, Desired: desired, Existing: existing}
		logging.Warn("%s", c.Message())
		metrics.LibraryCollisions.WithLabelValues(op).Inc()
		if w.Recorder != nil {
			w.Recorder.RecordCollision(*c)
		}
		return existing, c, nil
	}

	dst := filepath.Join(w.Dir, desired)
	if err := transfer(src, dst); err != nil {
		logging.Error("%s: %s -> %s failed: %v", op, src, dst, err)
		metrics.LibraryWrites.WithLabelValues(op, "error").Inc()
		return "", nil, fmt.Errorf("%s %s: %w", op, src, err)
	}

	logging.Debug("%s: %s -> %s", op, src, dst)
	metrics.LibraryWrites.WithLabelValues(op, "ok").Inc()
	return dst, nil, nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
