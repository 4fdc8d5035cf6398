package library

import (
	"context"
	"path/filepath"
	"strings"

	"icon-sync/internal/logging"
	"icon-sync/internal/metrics"
	"icon-sync/internal/naming"
)

// ProgressFunc reports done/total with the item being worked on.
type ProgressFunc func(done, total int, current string)

// Normalizer flattens images nested below the library root up to the root.
type Normalizer struct {
	Writer *Writer
	// SkipDirs are never descended into, typically the icons folder.
	SkipDirs   []string
	OnProgress ProgressFunc
}

// Normalize moves every nested image to the root under its flattened name and
// returns how many files moved. Collisions leave the file in its subfolder.
// Emptied subfolders are left in place.
func (n *Normalizer) Normalize(ctx context.Context) (int, error) {
	root := n.Writer.Dir
	images, err := FindImages(root, true, n.SkipDirs...)
	if err != nil {
		return 0, err
	}

	var nested []string
	for _, p := range images {
		if filepath.Dir(p) != filepath.Clean(root) {
			nested = append(nested, p)
		}
	}

	moved := 0
	for i, src := range nested {
		if err := ctx.Err(); err != nil {
			return moved, err
		}
		if n.OnProgress != nil {
			n.OnProgress(i, len(nested), src)
		}

		rel, err := filepath.Rel(root, src)
		if err != nil {
			logging.Warn("normalize: %s is outside %s: %v", src, root, err)
			continue
		}
		flat := naming.FlattenedName(strings.Split(rel, string(filepath.Separator)))

		dst, collision, err := n.Writer.MoveIntoLibrary(src, flat)
		switch {
		case err != nil:
			logging.Error("normalize: %v", err)
		case collision != nil, dst == "":
			// skipped; the writer already logged why
		default:
			logging.Info("normalize: %s -> %s", rel, filepath.Base(dst))
			metrics.NormalizeMoves.Inc()
			moved++
		}
	}

	if n.OnProgress != nil {
		n.OnProgress(len(nested), len(nested), "")
	}
	return moved, nil
}
