package maintenance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"icon-sync/internal/icon"
)

func TestRun_CopiesAndEncodes(t *testing.T) {
	cfg := testConfig(t)
	writeImage(t, filepath.Join(cfg.ImagesDir, "anime.png"))

	inbox := t.TempDir()
	writeImage(t, filepath.Join(inbox, "Anime.PNG"))
	writeImage(t, filepath.Join(inbox, "new.png"))
	writeImage(t, filepath.Join(inbox, "sub", "deep.png"))
	if err := os.WriteFile(filepath.Join(inbox, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	o := New(cfg, icon.NewEncoder(nil))
	result, err := o.Run(context.Background(), []string{inbox}, RunOptions{})
	o.Wait()
	if err != nil {
		t.Fatal(err)
	}

	if result.Inputs != 2 || result.Copied != 1 || result.Collisions != 1 {
		t.Errorf("result = %+v, want 2 inputs, 1 copied, 1 collision", result)
	}
	if result.Converted != 2 || result.Errors != 0 {
		t.Errorf("result = %+v, want both library images converted", result)
	}
	for _, name := range []string{"anime.ico", "new.ico"} {
		if _, err := os.Stat(filepath.Join(cfg.IconsDir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}

	entries, _ := os.ReadDir(cfg.ImagesDir)
	files := 0
	for _, e := range entries {
		if !e.IsDir() {
			files++
		}
	}
	if files != 2 {
		t.Errorf("library holds %d files, want 2 (no duplicate of anime.png)", files)
	}
}

func TestRun_Recursive(t *testing.T) {
	cfg := testConfig(t)
	inbox := t.TempDir()
	writeImage(t, filepath.Join(inbox, "sub", "deep.png"))

	o := New(cfg, icon.NewEncoder(nil))
	result, err := o.Run(context.Background(), []string{inbox}, RunOptions{Recursive: true, Sizes: []int{16}})
	o.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if result.Copied != 1 || result.Converted != 1 {
		t.Errorf("result = %+v", result)
	}
	sizes, err := icon.ReadFrameSizes(filepath.Join(cfg.IconsDir, "deep.ico"))
	if err != nil || len(sizes) != 1 || sizes[0] != 16 {
		t.Errorf("frame sizes = %v, %v, want [16]", sizes, err)
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	cfg := testConfig(t)
	inbox := t.TempDir()
	writeImage(t, filepath.Join(inbox, "a.png"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(cfg, icon.NewEncoder(nil))
	result, err := o.Run(ctx, []string{inbox}, RunOptions{})
	o.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Cancelled || result.Copied != 0 {
		t.Errorf("result = %+v, want cancelled before copying", result)
	}
	if _, err := os.Stat(filepath.Join(cfg.ImagesDir, "a.png")); !os.IsNotExist(err) {
		t.Error("cancelled run copied a file")
	}
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	cfg := testConfig(t)
	inbox := t.TempDir()
	writeImage(t, filepath.Join(inbox, "a.png"))

	enc := newGateEncoder()
	o := New(cfg, enc)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.Run(context.Background(), []string{inbox}, RunOptions{})
	}()
	<-enc.started

	if _, err := o.Run(context.Background(), []string{inbox}, RunOptions{}); !errors.Is(err, ErrRunActive) {
		t.Errorf("second Run() error = %v, want ErrRunActive", err)
	}

	close(enc.release)
	<-done
	o.Wait()
}

func TestScanReportSummary(t *testing.T) {
	r := ScanReport{Reason: "startup", Scanned: 3, Converted: 2, Errors: 1, OrphanIconsRemoved: 4, NormalizedMoves: 5}
	want := "scan (startup): scanned=3 converted=2 errors=1 orphans_removed=4 normalized=5"
	if got := r.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}
