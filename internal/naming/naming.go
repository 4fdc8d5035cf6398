package naming

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Placeholder replaces a stem that sanitizes down to nothing.
const Placeholder = "untitled"

// FlattenSeparator joins the parent folder and filename of a flattened name.
const FlattenSeparator = "__"

// invalidChars are rejected by at least one common filesystem.
const invalidChars = `<>:"/\|?*`

// NFC normalizes s to Unicode Normalization Form C.
func NFC(s string) string {
	return norm.NFC.String(s)
}

// CanonicalKey returns the identity key for a filename: NFC then case folded.
func CanonicalKey(name string) string {
	// cases.Caser is stateful, so a fresh one per call keeps this goroutine-safe.
	return cases.Fold().String(NFC(name))
}

// SameIdentity reports whether two filenames map to the same library entry.
func SameIdentity(a, b string) bool {
	return CanonicalKey(a) == CanonicalKey(b)
}

// SanitizePiece makes a single path component safe on every platform.
// Invalid characters become "_", surrounding whitespace and dots are trimmed
// and an empty result becomes Placeholder.
func SanitizePiece(s string) string {
	s = NFC(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(invalidChars, r) || r < 0x20 {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}

	out := trimDotsAndSpace(b.String())
	if out == "" {
		return Placeholder
	}
	return out
}

func trimDotsAndSpace(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '.' || unicode.IsSpace(r)
	})
}

// CanonicalExtension forces a single leading dot, lowercases, replaces
// invalid characters and NFC-normalizes. An empty extension stays empty.
func CanonicalExtension(ext string) string {
	ext = NFC(ext)
	ext = strings.TrimLeft(ext, ".")
	if strings.TrimSpace(ext) == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range ext {
		if strings.ContainsRune(invalidChars, r) {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}

	body := strings.ToLower(trimDotsAndSpace(b.String()))
	if body == "" {
		return ""
	}
	return "." + NFC(body)
}

// splitName separates a filename into stem and extension. A leading dot
// (".png") is treated as a stem, matching how the library lists such files.
func splitName(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// CanonicalLibraryFilename computes the deterministic library name for a
// source filename. Unsupported extensions are still canonicalized; callers
// reject unsupported types before writing.
func CanonicalLibraryFilename(srcName string) string {
	srcName = NFC(filepath.Base(srcName))
	stem, ext := splitName(srcName)

	stem = SanitizePiece(stem)
	ext = CanonicalExtension(ext)

	return stem + ext
}

// FlattenedName builds the root-level name for a file nested below a root.
// segments are the relative path components, filename last. A top-level file
// keeps its sanitized name; nested files become "<parent>__<filename>".
func FlattenedName(segments []string) string {
	switch len(segments) {
	case 0:
		return Placeholder
	case 1:
		return SanitizePiece(segments[0])
	}

	parent := SanitizePiece(segments[len(segments)-2])
	file := SanitizePiece(segments[len(segments)-1])
	return parent + FlattenSeparator + file
}

// Stem returns the filename without its extension.
func Stem(name string) string {
	stem, _ := splitName(filepath.Base(name))
	return stem
}
