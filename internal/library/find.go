package library

import (
	"io/fs"
	"path/filepath"
	"sort"

	"icon-sync/internal/filesystem"
	"icon-sync/internal/logging"
)

// FindImages returns the accepted images at root, sorted. A root that is itself
// an accepted file yields just that file. Hidden entries are skipped, as is any
// directory listed in skipDirs.
func FindImages(root string, recursive bool, skipDirs ...string) ([]string, error) {
	info, err := filesystem.StatWithRetry(root, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if info.Mode().IsRegular() && HasAcceptedExtension(root) {
			return []string{root}, nil
		}
		return nil, nil
	}

	skip := make(map[string]struct{}, len(skipDirs))
	for _, d := range skipDirs {
		skip[filepath.Clean(d)] = struct{}{}
	}

	var found []string
	if !recursive {
		entries, err := filesystem.ReadDirWithRetry(root, filesystem.DefaultRetryConfig())
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() && !isHidden(entry.Name()) && HasAcceptedExtension(entry.Name()) {
				found = append(found, filepath.Join(root, entry.Name()))
			}
		}
		return found, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Debug("find images: skipping %s: %v", path, err)
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, ok := skip[filepath.Clean(path)]; ok {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && HasAcceptedExtension(d.Name()) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(found)
	return found, nil
}
