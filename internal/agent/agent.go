package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"icon-sync/internal/handlers"
	"icon-sync/internal/history"
	"icon-sync/internal/library"
	"icon-sync/internal/logging"
	"icon-sync/internal/maintenance"
	"icon-sync/internal/metrics"
	"icon-sync/internal/startup"
	"icon-sync/internal/watcher"
)

// DefaultFlushTimeout bounds the shutdown pass.
const DefaultFlushTimeout = 10 * time.Second

// Settings is the runtime state the agent reads on every trigger.
type Settings interface {
	Paused() (bool, error)
	SetPaused(paused bool) error
	WatchFolders() ([]string, error)
}

// Options wire an Agent.
type Options struct {
	Config       *startup.Config
	Orchestrator *maintenance.Orchestrator
	Settings     Settings
	// Journal is optional; when set every report is journaled and served.
	Journal      *history.History
	FlushTimeout time.Duration
}

// Agent is the long-running watch process.
type Agent struct {
	cfg      *startup.Config
	orch     *maintenance.Orchestrator
	settings Settings
	journal  *history.History
	flush    time.Duration

	mu     sync.Mutex
	addr   string
	ready  chan struct{}
	server *http.Server
}

// New creates an agent.
func New(opts Options) *Agent {
	flush := opts.FlushTimeout
	if flush <= 0 {
		flush = DefaultFlushTimeout
	}
	return &Agent{
		cfg:      opts.Config,
		orch:     opts.Orchestrator,
		settings: opts.Settings,
		journal:  opts.Journal,
		flush:    flush,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the watcher and status server are running.
func (a *Agent) Ready() <-chan struct{} {
	return a.ready
}

// Addr returns the status server address once Ready is closed, or "" when
// the server is disabled.
func (a *Agent) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Paused reports whether automatic triggers are suppressed.
func (a *Agent) Paused() bool {
	if a.settings == nil {
		return false
	}
	paused, err := a.settings.Paused()
	if err != nil {
		logging.Warn("agent: cannot read paused flag: %v", err)
		return false
	}
	return paused
}

// Run starts every trigger and blocks until ctx is cancelled, then runs the
// bounded shutdown sequence.
func (a *Agent) Run(ctx context.Context) error {
	start := time.Now()
	if a.cfg.ImagesDir() == "" {
		return maintenance.ErrNoLibrary
	}

	a.orch.OnReport(a.onReport)

	collector := metrics.NewCollector(a.orch, time.Minute)
	if a.journal != nil {
		collector.SetDBPath(a.journal.Path())
	}
	collector.Start()
	defer collector.Stop()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	w := watcher.New(a.cfg.ImagesDir(), a.cfg.Debounce, a.onChange, a.cfg.IconsDir())
	if err := w.Start(watchCtx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	if err := a.startServer(); err != nil {
		return err
	}
	close(a.ready)
	startup.LogAgentStarted(a.cfg, time.Since(start))

	a.importWatchFolders(ctx)
	a.orch.Request("startup")

	var tick <-chan time.Time
	if a.cfg.ScanInterval > 0 {
		ticker := time.NewTicker(a.cfg.ScanInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			a.shutdown(stopWatch, w)
			return nil
		case <-tick:
			if a.Paused() {
				logging.Debug("agent: paused, skipping periodic pass")
				continue
			}
			a.importWatchFolders(ctx)
			a.orch.Request("periodic")
		}
	}
}

func (a *Agent) setPaused(paused bool) error {
	if err := a.settings.SetPaused(paused); err != nil {
		return err
	}
	metrics.Paused.Set(boolGauge(paused))
	logging.Info("agent: paused=%v", paused)
	return nil
}

func (a *Agent) onChange() {
	paused := a.Paused()
	metrics.Paused.Set(boolGauge(paused))
	if paused {
		logging.Debug("agent: paused, ignoring library change")
		return
	}
	a.orch.Request("fs-change")
}

func (a *Agent) onReport(r maintenance.ScanReport) {
	if a.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.journal.RecordPass(ctx, r); err != nil {
		logging.Error("agent: %v", err)
	}
}

// importWatchFolders copies new images from the watched folders into the
// library. Collisions are skipped as everywhere else; the copies wake the
// watcher, which requests the pass that converts them.
func (a *Agent) importWatchFolders(ctx context.Context) int {
	if a.settings == nil && len(a.cfg.WatchFolders) == 0 {
		return 0
	}
	folders := append([]string(nil), a.cfg.WatchFolders...)
	if a.settings != nil {
		stored, err := a.settings.WatchFolders()
		if err != nil {
			logging.Warn("agent: cannot read watched folders: %v", err)
		}
		folders = append(folders, stored...)
	}

	images := filepath.Clean(a.cfg.ImagesDir())
	writer := library.NewWriter(images)
	if a.journal != nil {
		writer.Recorder = a.journal
	}

	seen := make(map[string]struct{})
	copied := 0
	for _, folder := range folders {
		folder = filepath.Clean(folder)
		if _, dup := seen[folder]; dup || folder == images || strings.HasPrefix(folder, images+string(filepath.Separator)) {
			continue
		}
		seen[folder] = struct{}{}

		found, err := library.FindImages(folder, a.cfg.Recursive)
		if err != nil {
			logging.Warn("agent: watched folder %s: %v", folder, err)
			continue
		}
		for _, src := range found {
			if ctx.Err() != nil {
				return copied
			}
			dst, collision, err := writer.CopyIntoLibrary(src)
			if err == nil && collision == nil && dst != "" {
				copied++
			}
		}
	}
	if copied > 0 {
		logging.Info("agent: imported %d images from watched folders", copied)
	}
	return copied
}

func (a *Agent) startServer() error {
	if a.cfg.StatusAddr == "" {
		return nil
	}
	var journal handlers.Journal
	if a.journal != nil {
		journal = a.journal
	}
	h := handlers.New(a.orch, journal, a.Paused)
	if a.settings != nil {
		h.SetPauseControl(a.setPaused)
	}
	router := h.Router()
	startup.LogHTTPRoutes(router)

	ln, err := net.Listen("tcp", a.cfg.StatusAddr)
	if err != nil {
		return fmt.Errorf("status API on %s: %w", a.cfg.StatusAddr, err)
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	a.mu.Lock()
	a.addr = ln.Addr().String()
	a.server = srv
	a.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("status API: %v", err)
		}
	}()
	return nil
}

func (a *Agent) shutdown(stopWatch context.CancelFunc, w *watcher.Watcher) {
	startup.LogShutdownStep("Stopping watcher")
	stopWatch()
	<-w.Done()
	startup.LogShutdownStepComplete("Watcher stopped")

	a.mu.Lock()
	srv := a.server
	a.mu.Unlock()
	if srv != nil {
		startup.LogShutdownStep("Shutting down status API")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn("status API shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Status API stopped")
		}
		cancel()
	}

	startup.LogShutdownStep("Running final maintenance pass")
	if a.orch.Flush(a.flush) {
		startup.LogShutdownStepComplete("Final maintenance pass complete")
	} else {
		logging.Warn("  Final maintenance pass abandoned after %v", a.flush)
	}
	startup.LogShutdownComplete()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
