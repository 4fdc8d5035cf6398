package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"icon-sync/internal/library"
	"icon-sync/internal/maintenance"
)

func openTest(t *testing.T) *History {
	t.Helper()
	h, err := Open(context.Background(), filepath.Join(t.TempDir(), "state", FileName))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestRecordAndListPasses(t *testing.T) {
	h := openTest(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, reason := range []string{"startup", "fs-change", "periodic"} {
		r := maintenance.ScanReport{
			Reason:    reason,
			Started:   base.Add(time.Duration(i) * time.Minute),
			Duration:  1500 * time.Millisecond,
			Scanned:   10 + i,
			Converted: i,
		}
		if i == 2 {
			r.Failure = "boom"
		}
		if err := h.RecordPass(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	passes, err := h.RecentPasses(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(passes) != 2 {
		t.Fatalf("got %d passes, want 2", len(passes))
	}
	newest := passes[0]
	if newest.Reason != "periodic" || newest.Scanned != 12 || newest.Converted != 2 || newest.Failure != "boom" {
		t.Errorf("newest pass = %+v", newest)
	}
	if !newest.Started.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("Started = %v", newest.Started)
	}
	if newest.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v", newest.Duration)
	}
	if passes[1].Reason != "fs-change" {
		t.Errorf("second pass reason = %q", passes[1].Reason)
	}
}

func TestRecordCollision(t *testing.T) {
	h := openTest(t)

	h.RecordCollision(library.Collision{Op: "copy", Incoming: "/in/Anime.PNG", Desired: "Anime.png", Existing: "/lib/anime.png"})
	h.RecordCollision(library.Collision{Op: "move", Incoming: "/lib/x/y.png", Desired: "x__y.png", Existing: "/lib/x__y.png"})

	got, err := h.RecentCollisions(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d collisions, want 2", len(got))
	}
	if got[0].Op != "move" || got[1].Existing != "/lib/anime.png" {
		t.Errorf("collisions = %+v", got)
	}
	if got[0].At.IsZero() {
		t.Error("collision time not recorded")
	}
}

func TestReopenKeepsJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	ctx := context.Background()

	h, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.RecordPass(ctx, maintenance.ScanReport{Reason: "manual", Started: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}

	h, err = Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	passes, err := h.RecentPasses(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(passes) != 1 || passes[0].Reason != "manual" {
		t.Errorf("passes after reopen = %+v", passes)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{5, 5},
		{5000, 1000},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
