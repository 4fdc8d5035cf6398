package orphans

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"icon-sync/internal/filesystem"
	"icon-sync/internal/icon"
	"icon-sync/internal/library"
	"icon-sync/internal/logging"
	"icon-sync/internal/metrics"
	"icon-sync/internal/naming"
)

// Orphan actions.
const (
	ActionDelete     = "delete"
	ActionQuarantine = "quarantine"
)

// QuarantineDir is the folder inside the icons folder that receives orphans.
const QuarantineDir = "_Orphans"

// NormalizeAction maps configured action names onto the two supported
// actions. "trash" and "move" mean quarantine; anything unknown deletes.
func NormalizeAction(action string) string {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionQuarantine, "trash", "move":
		return ActionQuarantine
	default:
		return ActionDelete
	}
}

// Sweeper removes icons whose source image no longer exists.
type Sweeper struct {
	// Accept decides which files in the images folder count as sources.
	Accept library.AcceptFunc
}

// Sweep deletes or quarantines every icon in iconsDir whose stem (minus
// suffix) has no matching image at the top level of imagesDir. Failures on
// single files are logged and skipped. It returns the number of orphans handled.
func (s *Sweeper) Sweep(imagesDir, iconsDir, suffix, action string) (int, error) {
	action = NormalizeAction(action)

	entries, err := filesystem.ReadDirWithRetry(iconsDir, filesystem.DefaultRetryConfig())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read icons folder: %w", err)
	}

	stems := s.sourceStems(imagesDir)

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.EqualFold(filepath.Ext(entry.Name()), icon.Extension) {
			continue
		}

		stem := naming.Stem(entry.Name())
		if suffix != "" {
			if !strings.HasSuffix(stem, suffix) {
				continue
			}
			stem = strings.TrimSuffix(stem, suffix)
		}
		if _, ok := stems[naming.NFC(stem)]; ok {
			continue
		}

		path := filepath.Join(iconsDir, entry.Name())
		if err := s.dispose(path, iconsDir, action); err != nil {
			logging.Warn("orphan sweep: %s %s failed: %v", action, entry.Name(), err)
			continue
		}
		logging.Info("orphan sweep: %s %s", action, entry.Name())
		metrics.OrphansRemoved.WithLabelValues(action).Inc()
		removed++
	}

	return removed, nil
}

func (s *Sweeper) sourceStems(imagesDir string) map[string]struct{} {
	accept := s.Accept
	if accept == nil {
		accept = library.IsAcceptedFile
	}

	stems := make(map[string]struct{})
	entries, err := filesystem.ReadDirWithRetry(imagesDir, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Debug("orphan sweep: cannot read %s: %v", imagesDir, err)
		return stems
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if accept(filepath.Join(imagesDir, entry.Name())) {
			stems[naming.NFC(naming.Stem(entry.Name()))] = struct{}{}
		}
	}
	return stems
}

func (s *Sweeper) dispose(path, iconsDir, action string) error {
	if action != ActionQuarantine {
		return os.Remove(path)
	}

	qdir := filepath.Join(iconsDir, QuarantineDir)
	if err := os.MkdirAll(qdir, 0o755); err != nil {
		return err
	}
	return filesystem.MoveFile(path, uniquePath(filepath.Join(qdir, filepath.Base(path))))
}

// uniquePath returns path, or "name (n).ext" for the first n that is free.
// Only the quarantine folder ever gets numbered names.
func uniquePath(path string) string {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return path
	}
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 2; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
