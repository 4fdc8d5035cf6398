package library

import (
	"path/filepath"
	"sort"
	"strings"

	"icon-sync/internal/filesystem"
	"icon-sync/internal/naming"
)

// AcceptedExtensions is the set of image extensions the library holds.
var AcceptedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".svg":  {},
}

// ExtensionList returns AcceptedExtensions sorted, for messages and flags.
func ExtensionList() []string {
	out := make([]string, 0, len(AcceptedExtensions))
	for ext := range AcceptedExtensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// HasAcceptedExtension reports whether name carries an accepted image extension.
func HasAcceptedExtension(name string) bool {
	_, ok := AcceptedExtensions[naming.CanonicalExtension(filepath.Ext(name))]
	return ok
}

// IsAcceptedFile reports whether path is an existing regular file with an
// accepted extension.
func IsAcceptedFile(path string) bool {
	if !HasAcceptedExtension(path) {
		return false
	}
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
