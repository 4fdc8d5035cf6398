package maintenance

import (
	"context"
	"errors"
	"sync"
	"time"

	"icon-sync/internal/icon"
	"icon-sync/internal/library"
	"icon-sync/internal/logging"
	"icon-sync/internal/metrics"
)

var (
	// ErrBusy is returned by RunPass while another pass is in flight.
	ErrBusy = errors.New("maintenance pass already running")
	// ErrRunActive is returned by Run while another bulk run is in flight.
	ErrRunActive = errors.New("bulk run already in progress")
	// ErrClosed is returned once Flush has been called.
	ErrClosed = errors.New("maintenance is shut down")
	// ErrNoLibrary ends a pass when no library folder is configured.
	ErrNoLibrary = errors.New(`library folder is not configured; set library_root or run "icon-sync relocate <folder>"`)
)

// Encoder converts one image into an icon.
type Encoder interface {
	Encode(ctx context.Context, src, outDirOrFile string, sizes []int, opts icon.Options) icon.Result
}

// Config is everything a pass needs to know about the library.
type Config struct {
	ImagesDir     string
	IconsDir      string
	Sizes         []int
	Options       icon.Options
	RemoveOrphans bool
	OrphanAction  string
	// Recorder, when set, also receives every collision.
	Recorder library.CollisionRecorder
	// Throttle, when set, is waited on before each encode.
	Throttle Throttle
}

// Throttle holds encodes back, typically under memory pressure.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Orchestrator serializes maintenance passes. At most one pass runs at a
// time and at most one request waits behind it; later requests replace the
// waiting reason.
type Orchestrator struct {
	encoder Encoder

	mu         sync.Mutex
	idle       *sync.Cond
	cfg        Config
	running    bool
	pending    string
	hasPending bool
	closed     bool
	last       *ScanReport
	progress   ProgressFunc
	observers  []func(ScanReport)

	runMu     sync.Mutex
	runActive bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an idle orchestrator.
func New(cfg Config, enc Encoder) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		encoder: enc,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
	o.idle = sync.NewCond(&o.mu)
	return o
}

// Config returns the current configuration.
func (o *Orchestrator) Config() Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}

// SetConfig replaces the configuration used by passes that start afterwards.
func (o *Orchestrator) SetConfig(cfg Config) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cfg = cfg
}

// OnProgress installs the progress callback.
func (o *Orchestrator) OnProgress(fn ProgressFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = fn
}

// OnReport registers fn to receive every completed ScanReport.
func (o *Orchestrator) OnReport(fn func(ScanReport)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Busy reports whether a pass is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Pending returns the queued reason, if any.
func (o *Orchestrator) Pending() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending, o.hasPending
}

// LastReport returns the most recent completed report.
func (o *Orchestrator) LastReport() (ScanReport, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return ScanReport{}, false
	}
	return *o.last, true
}

// Request asks for a pass without waiting for it. When idle a pass starts
// immediately in the background; otherwise reason replaces any queued reason
// and exactly one catch-up pass runs after the current one.
func (o *Orchestrator) Request(reason string) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		logging.Debug("maintenance: ignoring %q request after shutdown", reason)
		return
	}
	if o.running {
		if o.hasPending {
			logging.Debug("maintenance: %q replaces queued %q", reason, o.pending)
		}
		o.pending = reason
		o.hasPending = true
		o.mu.Unlock()
		metrics.MaintenanceRequestsCoalesced.Inc()
		return
	}
	o.running = true
	o.mu.Unlock()

	go o.loop(reason)
}

// RunPass runs a pass on the calling goroutine and returns its report.
// It fails with ErrBusy instead of waiting when a pass is already running.
func (o *Orchestrator) RunPass(ctx context.Context, reason string) (ScanReport, error) {
	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		return ScanReport{}, ErrClosed
	case o.running:
		o.mu.Unlock()
		return ScanReport{}, ErrBusy
	}
	o.running = true
	o.mu.Unlock()

	report := o.execute(ctx, reason)
	if next, ok := o.next(); ok {
		go o.loop(next)
	}
	return report, nil
}

func (o *Orchestrator) loop(reason string) {
	for {
		o.execute(o.ctx, reason)

		next, ok := o.next()
		if !ok {
			return
		}
		reason = next
	}
}

// next hands over the queued reason, or marks the orchestrator idle.
func (o *Orchestrator) next() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.hasPending && !o.closed {
		reason := o.pending
		o.pending, o.hasPending = "", false
		return reason, true
	}
	o.pending, o.hasPending = "", false
	o.running = false
	o.idle.Broadcast()
	return "", false
}

// Wait blocks until no pass is running or queued.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for o.running {
		o.idle.Wait()
	}
}

// Flush runs a final "shutdown" pass once any running pass has finished,
// giving up after timeout. It reports whether the final pass completed.
// Requests made after Flush are ignored.
func (o *Orchestrator) Flush(timeout time.Duration) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return true
	}
	o.closed = true
	o.hasPending = false
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)

		o.mu.Lock()
		for o.running {
			o.idle.Wait()
		}
		o.running = true
		o.mu.Unlock()

		if ctx.Err() == nil {
			o.execute(ctx, "shutdown")
		}

		o.mu.Lock()
		o.running = false
		o.idle.Broadcast()
		o.mu.Unlock()
	}()

	select {
	case <-done:
		return ctx.Err() == nil
	case <-ctx.Done():
		// Stop background passes between items so the process can exit.
		o.cancel()
		logging.Warn("maintenance: shutdown pass did not finish within %v", timeout)
		return false
	}
}

// execute runs one pass, never letting a failure escape.
func (o *Orchestrator) execute(ctx context.Context, reason string) ScanReport {
	o.mu.Lock()
	cfg := o.cfg
	progress := o.progress
	o.mu.Unlock()

	report := &ScanReport{Reason: reason, Started: time.Now()}
	metrics.MaintenanceRunning.Set(1)
	logging.Info("maintenance: pass started (%s)", reason)

	func() {
		defer func() {
			if r := recover(); r != nil {
				report.Failure = "panic: " + toString(r)
				logging.Error("maintenance: pass %q panicked: %v", reason, r)
			}
		}()
		if err := o.pass(ctx, cfg, progress, report); err != nil {
			report.Failure = err.Error()
			logging.Error("maintenance: pass %q failed: %v", reason, err)
		}
	}()

	report.Duration = time.Since(report.Started)
	metrics.MaintenanceRunning.Set(0)
	metrics.MaintenancePassesTotal.WithLabelValues(reason).Inc()
	metrics.MaintenancePassDuration.Observe(report.Duration.Seconds())
	metrics.MaintenanceLastRunTimestamp.SetToCurrentTime()
	if report.Failure != "" {
		metrics.MaintenancePassFailures.Inc()
	}
	logging.Info("maintenance: %s in %v", report.Summary(), report.Duration.Round(time.Millisecond))

	o.publish(*report)
	return *report
}

func (o *Orchestrator) publish(report ScanReport) {
	o.mu.Lock()
	o.last = &report
	observers := append([]func(ScanReport){}, o.observers...)
	o.mu.Unlock()

	for _, fn := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logging.Error("maintenance: report observer panicked: %v", r)
				}
			}()
			fn(report)
		}()
	}
}
