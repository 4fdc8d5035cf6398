package orphans

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func names(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}

func layout(t *testing.T) (images, icons string) {
	t.Helper()
	images = t.TempDir()
	icons = filepath.Join(images, "Icons")
	touch(t, filepath.Join(images, "A.png"))
	touch(t, filepath.Join(images, "B.svg"))
	touch(t, filepath.Join(icons, "A.ico"))
	touch(t, filepath.Join(icons, "B.ico"))
	touch(t, filepath.Join(icons, "C.ico"))
	touch(t, filepath.Join(icons, "notes.txt"))
	return images, icons
}

func TestNormalizeAction(t *testing.T) {
	tests := map[string]string{
		"delete":     ActionDelete,
		"quarantine": ActionQuarantine,
		"Trash":      ActionQuarantine,
		"move":       ActionQuarantine,
		"shred":      ActionDelete,
		"":           ActionDelete,
	}
	for in, want := range tests {
		if got := NormalizeAction(in); got != want {
			t.Errorf("NormalizeAction(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSweep_DeleteRemovesOnlyOrphansAndIsIdempotent(t *testing.T) {
	images, icons := layout(t)
	s := &Sweeper{}

	removed, err := s.Sweep(images, icons, "", ActionDelete)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("first Sweep() = %d, want 1", removed)
	}
	got := names(t, icons)
	want := []string{"A.ico", "B.ico", "notes.txt"}
	if len(got) != len(want) {
		t.Fatalf("icons = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("icons = %v, want %v", got, want)
			break
		}
	}

	removed, err = s.Sweep(images, icons, "", ActionDelete)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("second Sweep() = %d, want 0", removed)
	}
}

func TestSweep_QuarantineNumbersRepeats(t *testing.T) {
	images, icons := layout(t)
	touch(t, filepath.Join(icons, QuarantineDir, "C.ico"))
	s := &Sweeper{}

	removed, err := s.Sweep(images, icons, "", ActionQuarantine)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("Sweep() = %d, want 1", removed)
	}
	if _, err := os.Stat(filepath.Join(icons, "C.ico")); !os.IsNotExist(err) {
		t.Error("orphan still in icons folder")
	}
	q := names(t, filepath.Join(icons, QuarantineDir))
	if len(q) != 2 || q[0] != "C (2).ico" || q[1] != "C.ico" {
		t.Errorf("quarantine = %v, want [C (2).ico C.ico]", q)
	}
}

func TestSweep_Suffix(t *testing.T) {
	images := t.TempDir()
	icons := filepath.Join(images, "Icons")
	touch(t, filepath.Join(images, "cat.png"))
	touch(t, filepath.Join(icons, "cat_icon.ico"))
	touch(t, filepath.Join(icons, "dog_icon.ico"))
	touch(t, filepath.Join(icons, "manual.ico"))

	removed, err := (&Sweeper{}).Sweep(images, icons, "_icon", ActionDelete)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("Sweep() = %d, want 1", removed)
	}
	got := names(t, icons)
	if len(got) != 2 || got[0] != "cat_icon.ico" || got[1] != "manual.ico" {
		t.Errorf("icons = %v, want cat_icon.ico and manual.ico kept", got)
	}
}

func TestSweep_MissingIconsFolder(t *testing.T) {
	images := t.TempDir()
	removed, err := (&Sweeper{}).Sweep(images, filepath.Join(images, "Icons"), "", ActionDelete)
	if err != nil || removed != 0 {
		t.Errorf("Sweep() = (%d, %v), want (0, nil)", removed, err)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x.ico")
	if got := uniquePath(p); got != p {
		t.Errorf("uniquePath(free) = %q", got)
	}
	touch(t, p)
	touch(t, filepath.Join(dir, "x (2).ico"))
	if got := uniquePath(p); got != filepath.Join(dir, "x (3).ico") {
		t.Errorf("uniquePath() = %q, want x (3).ico", got)
	}
}
