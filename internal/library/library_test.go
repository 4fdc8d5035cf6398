package library

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestHasAcceptedExtension(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.png", true},
		{"a.PNG", true},
		{"a.jpeg", true},
		{"a.Tiff", true},
		{"a.svg", true},
		{"a.gif", false},
		{"a.ico", false},
		{"noext", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasAcceptedExtension(tt.name); got != tt.want {
				t.Errorf("HasAcceptedExtension(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestBuildIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Anime.png"), "a")
	writeFile(t, filepath.Join(dir, "notes.txt"), "n")
	writeFile(t, filepath.Join(dir, "sub", "deep.png"), "d")

	idx := BuildIndex(dir, nil)
	if len(idx) != 1 {
		t.Fatalf("index has %d entries, want 1: %v", len(idx), idx)
	}
	for _, name := range []string{"anime.png", "ANIME.PNG", "Anime.png"} {
		if _, ok := idx.Lookup(name); !ok {
			t.Errorf("Lookup(%q) missed", name)
		}
	}
}

func TestBuildIndex_UnreadableDirIsEmpty(t *testing.T) {
	idx := BuildIndex(filepath.Join(t.TempDir(), "missing"), nil)
	if len(idx) != 0 {
		t.Errorf("index = %v, want empty", idx)
	}
}

func TestCopyIntoLibrary_NoDuplicateIdentity(t *testing.T) {
	incoming := []string{"Anime.PNG", "anime.PNG", "ANIME.png"}

	for _, name := range incoming {
		t.Run(name, func(t *testing.T) {
			lib := t.TempDir()
			writeFile(t, filepath.Join(lib, "anime.png"), "original")
			src := filepath.Join(t.TempDir(), name)
			writeFile(t, src, "incoming")

			w := NewWriter(lib)
			got, collision, err := w.CopyIntoLibrary(src)
			if err != nil {
				t.Fatalf("CopyIntoLibrary() error = %v", err)
			}
			if collision == nil {
				t.Fatal("expected a collision")
			}
			if got != filepath.Join(lib, "anime.png") {
				t.Errorf("path = %q, want existing file", got)
			}
			if names := listNames(t, lib); len(names) != 1 {
				t.Errorf("library holds %v, want only anime.png", names)
			}
			content, _ := os.ReadFile(filepath.Join(lib, "anime.png"))
			if string(content) != "original" {
				t.Errorf("existing file was overwritten: %q", content)
			}
		})
	}
}

func TestCopyIntoLibrary_NFDMatchesNFC(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, filepath.Join(lib, "caf\u00e9.png"), "nfc")
	src := filepath.Join(t.TempDir(), "cafe\u0301.png")
	writeFile(t, src, "nfd")

	_, collision, err := NewWriter(lib).CopyIntoLibrary(src)
	if err != nil {
		t.Fatal(err)
	}
	if collision == nil {
		t.Fatal("NFD name should collide with NFC library file")
	}
	if !strings.Contains(collision.Message(), "duplicates forbidden") {
		t.Errorf("Message() = %q", collision.Message())
	}
}

func TestCopyIntoLibrary_CopiesUnderCanonicalName(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "Icon Images")
	src := filepath.Join(t.TempDir(), "My:Cat .JPG")
	writeFile(t, src, "cat")

	got, collision, err := NewWriter(lib).CopyIntoLibrary(src)
	if err != nil {
		t.Fatalf("CopyIntoLibrary() error = %v", err)
	}
	if collision != nil {
		t.Fatalf("unexpected collision %+v", collision)
	}
	want := filepath.Join(lib, "My_Cat.jpg")
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
	if _, err := os.Stat(src); err != nil {
		t.Error("copy must leave the source in place")
	}
}

func TestCopyIntoLibrary_RejectsNonImages(t *testing.T) {
	lib := t.TempDir()
	src := filepath.Join(t.TempDir(), "readme.txt")
	writeFile(t, src, "text")

	got, collision, err := NewWriter(lib).CopyIntoLibrary(src)
	if got != "" || collision != nil || err != nil {
		t.Errorf("CopyIntoLibrary() = (%q, %v, %v), want nothing to do", got, collision, err)
	}
	got, _, _ = NewWriter(lib).CopyIntoLibrary(filepath.Join(lib, "missing.png"))
	if got != "" {
		t.Errorf("missing source returned %q", got)
	}
}

func TestCopyIntoLibrary_SameFileIsNotACollision(t *testing.T) {
	lib := t.TempDir()
	path := filepath.Join(lib, "dog.png")
	writeFile(t, path, "dog")

	got, collision, err := NewWriter(lib).CopyIntoLibrary(path)
	if err != nil || collision != nil || got != path {
		t.Errorf("CopyIntoLibrary(self) = (%q, %v, %v)", got, collision, err)
	}
}

type collisionSink []Collision

func (s *collisionSink) RecordCollision(c Collision) { *s = append(*s, c) }

func TestMoveIntoLibrary_CollisionLeavesSourceUntouched(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, filepath.Join(lib, "a__b.png"), "root")
	src := filepath.Join(lib, "a", "b.png")
	writeFile(t, src, "nested")

	var sink collisionSink
	w := NewWriter(lib)
	w.Recorder = &sink

	got, collision, err := w.MoveIntoLibrary(src, "a__b.png")
	if err != nil {
		t.Fatal(err)
	}
	if collision == nil || collision.Op != "move" {
		t.Fatalf("collision = %+v, want move collision", collision)
	}
	if got != filepath.Join(lib, "a__b.png") {
		t.Errorf("path = %q", got)
	}
	content, err := os.ReadFile(src)
	if err != nil || string(content) != "nested" {
		t.Errorf("source changed: %q, %v", content, err)
	}
	if len(sink) != 1 {
		t.Errorf("recorder saw %d collisions, want 1", len(sink))
	}
}

func TestFindImages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.png"), "")
	writeFile(t, filepath.Join(root, "a.SVG"), "")
	writeFile(t, filepath.Join(root, "skip.txt"), "")
	writeFile(t, filepath.Join(root, ".hidden.png"), "")
	writeFile(t, filepath.Join(root, "sub", "c.jpg"), "")
	writeFile(t, filepath.Join(root, ".git", "d.png"), "")
	writeFile(t, filepath.Join(root, "Icons", "e.png"), "")

	flat, err := FindImages(root, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{filepath.Join(root, "a.SVG"), filepath.Join(root, "b.png")}; !equal(flat, want) {
		t.Errorf("non-recursive = %v, want %v", flat, want)
	}

	deep, err := FindImages(root, true, filepath.Join(root, "Icons"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(root, "a.SVG"),
		filepath.Join(root, "b.png"),
		filepath.Join(root, "sub", "c.jpg"),
	}
	if !equal(deep, want) {
		t.Errorf("recursive = %v, want %v", deep, want)
	}

	single, err := FindImages(filepath.Join(root, "b.png"), false)
	if err != nil || len(single) != 1 {
		t.Errorf("file root = %v, %v", single, err)
	}
}

func TestNormalize_FlattensAndIsIdempotent(t *testing.T) {
	lib := t.TempDir()
	icons := filepath.Join(lib, "Icons")
	writeFile(t, filepath.Join(lib, "top.png"), "")
	writeFile(t, filepath.Join(lib, "pets", "cat.png"), "cat")
	writeFile(t, filepath.Join(lib, "x", "y", "dog.jpg"), "dog")
	writeFile(t, filepath.Join(icons, "top.png"), "not an image source")

	n := &Normalizer{Writer: NewWriter(lib), SkipDirs: []string{icons}}

	moved, err := n.Normalize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if moved != 2 {
		t.Errorf("first Normalize() = %d, want 2", moved)
	}
	for _, name := range []string{"top.png", "pets__cat.png", "y__dog.jpg"} {
		if _, err := os.Stat(filepath.Join(lib, name)); err != nil {
			t.Errorf("%s missing after normalize", name)
		}
	}
	if _, err := os.Stat(filepath.Join(lib, "pets")); err != nil {
		t.Error("emptied subfolder should be left in place")
	}
	if _, err := os.Stat(filepath.Join(icons, "top.png")); err != nil {
		t.Error("icons folder must not be touched")
	}

	moved, err = n.Normalize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if moved != 0 {
		t.Errorf("second Normalize() = %d, want 0", moved)
	}
}

func TestNormalize_CollisionStaysNested(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, filepath.Join(lib, "Pets__Cat.png"), "root")
	nested := filepath.Join(lib, "pets", "cat.png")
	writeFile(t, nested, "nested")

	n := &Normalizer{Writer: NewWriter(lib)}
	for i := 0; i < 2; i++ {
		moved, err := n.Normalize(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if moved != 0 {
			t.Errorf("run %d moved %d, want 0", i, moved)
		}
	}
	if _, err := os.Stat(nested); err != nil {
		t.Error("colliding nested file must stay put")
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
