package maintenance

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"icon-sync/internal/icon"
)

func writeImage(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := imaging.Save(imaging.New(24, 24, color.NRGBA{R: 90, G: 140, B: 200, A: 255}), path); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	images := filepath.Join(t.TempDir(), "Icon Images")
	if err := os.MkdirAll(images, 0o755); err != nil {
		t.Fatal(err)
	}
	return Config{
		ImagesDir:     images,
		IconsDir:      filepath.Join(images, "Icons"),
		Sizes:         []int{16, 32, 64},
		Options:       icon.DefaultOptions(),
		RemoveOrphans: true,
		OrphanAction:  "delete",
	}
}

// gateEncoder blocks its first Encode call until released.
type gateEncoder struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu    sync.Mutex
	calls int
}

func newGateEncoder() *gateEncoder {
	return &gateEncoder{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateEncoder) Encode(_ context.Context, src, out string, _ []int, _ icon.Options) icon.Result {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return icon.Result{Status: icon.StatusConverted, Source: src, OutPath: out}
}

type panicEncoder struct{}

func (panicEncoder) Encode(context.Context, string, string, []int, icon.Options) icon.Result {
	panic("decoder exploded")
}

func collectReasons(o *Orchestrator) func() []string {
	var mu sync.Mutex
	var reasons []string
	o.OnReport(func(r ScanReport) {
		mu.Lock()
		defer mu.Unlock()
		reasons = append(reasons, r.Reason)
	})
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), reasons...)
	}
}

func TestRequest_CoalescesToLatestReason(t *testing.T) {
	cfg := testConfig(t)
	writeImage(t, filepath.Join(cfg.ImagesDir, "a.png"))

	enc := newGateEncoder()
	o := New(cfg, enc)
	reasons := collectReasons(o)

	o.Request("a")
	<-enc.started

	o.Request("b")
	o.Request("c")
	if pending, ok := o.Pending(); !ok || pending != "c" {
		t.Errorf("Pending() = (%q, %v), want (c, true)", pending, ok)
	}
	if _, err := o.RunPass(context.Background(), "manual"); !errors.Is(err, ErrBusy) {
		t.Errorf("RunPass() while busy error = %v, want ErrBusy", err)
	}

	close(enc.release)
	o.Wait()

	if got, want := reasons(), []string{"a", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("pass reasons = %v, want %v", got, want)
	}
	if o.Busy() {
		t.Error("orchestrator still busy after Wait")
	}
}

func TestRunPass_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	photo := filepath.Join(cfg.ImagesDir, "photo.jpg")
	writeImage(t, photo)

	o := New(cfg, icon.NewEncoder(nil))

	report, err := o.RunPass(context.Background(), "manual")
	if err != nil {
		t.Fatal(err)
	}
	if report.Scanned != 1 || report.Converted != 1 || report.Errors != 0 {
		t.Fatalf("first report = %+v, want scanned=1 converted=1 errors=0", report)
	}
	iconPath := filepath.Join(cfg.IconsDir, "photo.ico")
	sizes, err := icon.ReadFrameSizes(iconPath)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{16, 32, 64}; !reflect.DeepEqual(sizes, want) {
		t.Errorf("frame sizes = %v, want %v", sizes, want)
	}

	again, err := o.RunPass(context.Background(), "manual")
	if err != nil {
		t.Fatal(err)
	}
	if again.Converted != 0 {
		t.Errorf("second pass converted %d, want 0 for an up-to-date icon", again.Converted)
	}

	if err := os.Remove(photo); err != nil {
		t.Fatal(err)
	}
	report, err = o.RunPass(context.Background(), "fs-change")
	if err != nil {
		t.Fatal(err)
	}
	if report.OrphanIconsRemoved != 1 {
		t.Errorf("orphan_icons_removed = %d, want 1", report.OrphanIconsRemoved)
	}
	if _, err := os.Stat(iconPath); !os.IsNotExist(err) {
		t.Error("orphan icon still present")
	}

	last, ok := o.LastReport()
	if !ok || last.Reason != "fs-change" {
		t.Errorf("LastReport() = %+v, %v", last, ok)
	}
}

func TestRunPass_ReconvertsStaleIcon(t *testing.T) {
	cfg := testConfig(t)
	src := filepath.Join(cfg.ImagesDir, "cat.png")
	writeImage(t, src)

	o := New(cfg, icon.NewEncoder(nil))
	if _, err := o.RunPass(context.Background(), "startup"); err != nil {
		t.Fatal(err)
	}

	iconPath := filepath.Join(cfg.IconsDir, "cat.ico")
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(iconPath, old, old); err != nil {
		t.Fatal(err)
	}

	report, err := o.RunPass(context.Background(), "periodic")
	if err != nil {
		t.Fatal(err)
	}
	if report.Converted != 1 {
		t.Errorf("stale icon converted = %d, want 1", report.Converted)
	}
}

func TestRunPass_NormalizesNestedImages(t *testing.T) {
	cfg := testConfig(t)
	writeImage(t, filepath.Join(cfg.ImagesDir, "pets", "dog.png"))

	var phases []Phase
	o := New(cfg, icon.NewEncoder(nil))
	o.OnProgress(func(p Progress) {
		if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
			phases = append(phases, p.Phase)
		}
	})

	report, err := o.RunPass(context.Background(), "manual")
	if err != nil {
		t.Fatal(err)
	}
	if report.NormalizedMoves != 1 || report.Converted != 1 {
		t.Errorf("report = %+v, want one move and one conversion", report)
	}
	if _, err := os.Stat(filepath.Join(cfg.IconsDir, "pets__dog.ico")); err != nil {
		t.Errorf("flattened icon missing: %v", err)
	}

	want := []Phase{PhaseNormalize, PhaseOrphanSweep, PhaseScan, PhaseConvert, PhaseDone}
	if !reflect.DeepEqual(phases, want) {
		t.Errorf("phases = %v, want %v", phases, want)
	}
}

func TestRunPass_RecoversFromPanic(t *testing.T) {
	cfg := testConfig(t)
	writeImage(t, filepath.Join(cfg.ImagesDir, "a.png"))

	o := New(cfg, panicEncoder{})
	report, err := o.RunPass(context.Background(), "manual")
	if err != nil {
		t.Fatal(err)
	}
	if report.Failure == "" {
		t.Error("expected the panic to be reported as a failure")
	}
	if o.Busy() {
		t.Fatal("busy flag stuck after a failed pass")
	}
	if _, err := o.RunPass(context.Background(), "manual"); err != nil {
		t.Errorf("second RunPass() error = %v", err)
	}
}

func TestRunPass_NoLibrary(t *testing.T) {
	o := New(Config{}, icon.NewEncoder(nil))
	report, err := o.RunPass(context.Background(), "manual")
	if err != nil {
		t.Fatal(err)
	}
	if report.Failure != ErrNoLibrary.Error() {
		t.Errorf("Failure = %q, want ErrNoLibrary", report.Failure)
	}
}

func TestFlush(t *testing.T) {
	cfg := testConfig(t)
	o := New(cfg, icon.NewEncoder(nil))
	reasons := collectReasons(o)

	if !o.Flush(5 * time.Second) {
		t.Fatal("Flush() = false, want true")
	}
	if got := reasons(); len(got) != 1 || got[0] != "shutdown" {
		t.Errorf("reasons = %v, want [shutdown]", got)
	}

	o.Request("late")
	o.Wait()
	if got := reasons(); len(got) != 1 {
		t.Errorf("request after Flush ran a pass: %v", got)
	}
	if _, err := o.RunPass(context.Background(), "late"); !errors.Is(err, ErrClosed) {
		t.Errorf("RunPass() after Flush error = %v, want ErrClosed", err)
	}
}

func TestFlush_TimesOut(t *testing.T) {
	cfg := testConfig(t)
	writeImage(t, filepath.Join(cfg.ImagesDir, "a.png"))

	enc := newGateEncoder()
	o := New(cfg, enc)
	o.Request("startup")
	<-enc.started

	start := time.Now()
	if o.Flush(50 * time.Millisecond) {
		t.Error("Flush() = true while a pass was blocked")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Flush blocked for %v", elapsed)
	}

	close(enc.release)
	o.Wait()
}

type countingThrottle struct {
	waits int
	err   error
}

func (c *countingThrottle) Wait(context.Context) error {
	c.waits++
	return c.err
}

func TestRunPass_WaitsOnThrottle(t *testing.T) {
	cfg := testConfig(t)
	writeImage(t, filepath.Join(cfg.ImagesDir, "a.png"))
	writeImage(t, filepath.Join(cfg.ImagesDir, "b.png"))
	throttle := &countingThrottle{}
	cfg.Throttle = throttle

	report, err := New(cfg, icon.NewEncoder(nil)).RunPass(context.Background(), "manual")
	if err != nil {
		t.Fatal(err)
	}
	if throttle.waits != 2 || report.Converted != 2 {
		t.Errorf("waits = %d, converted = %d; want 2, 2", throttle.waits, report.Converted)
	}

	held := testConfig(t)
	writeImage(t, filepath.Join(held.ImagesDir, "c.png"))
	held.Throttle = &countingThrottle{err: context.DeadlineExceeded}
	report, err = New(held, icon.NewEncoder(nil)).RunPass(context.Background(), "manual")
	if err != nil {
		t.Fatal(err)
	}
	if report.Converted != 0 || report.Failure == "" {
		t.Errorf("report = %+v, want an aborted pass", report)
	}
}
