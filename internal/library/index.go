package library

import (
	"path/filepath"

	"icon-sync/internal/filesystem"
	"icon-sync/internal/logging"
	"icon-sync/internal/naming"
)

// AcceptFunc decides whether a path belongs in the library.
type AcceptFunc func(path string) bool

// Index maps canonical keys to the single file holding that identity in a directory.
type Index map[string]string

// BuildIndex lists the top level of dir and keys every accepted file by its
// canonical name. A directory that cannot be read yields an empty index.
func BuildIndex(dir string, accept AcceptFunc) Index {
	if accept == nil {
		accept = IsAcceptedFile
	}

	idx := make(Index)
	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Debug("library index: cannot read %s: %v", dir, err)
		return idx
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !accept(path) {
			continue
		}
		key := naming.CanonicalKey(entry.Name())
		// Two on-disk names can share a key on case-sensitive filesystems;
		// the first in directory order is the holder.
		if _, exists := idx[key]; !exists {
			idx[key] = path
		}
	}

	return idx
}

// Lookup returns the path holding the identity of name, if any.
func (idx Index) Lookup(name string) (string, bool) {
	path, ok := idx[naming.CanonicalKey(name)]
	return path, ok
}
