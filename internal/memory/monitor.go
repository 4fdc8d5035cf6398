package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"icon-sync/internal/logging"
	"icon-sync/internal/metrics"
)

// Config holds the monitor thresholds.
type Config struct {
	// LimitBytes overrides the Go soft memory limit when non-zero.
	LimitBytes int64
	// HighWaterMark is the usage ratio below which held callers resume.
	HighWaterMark float64
	// CriticalWaterMark is the usage ratio at which callers are held.
	CriticalWaterMark float64
	CheckInterval     time.Duration
}

// DefaultConfig holds at 85% of the limit and resumes at 70%.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     2 * time.Second,
	}
}

// Monitor samples heap allocation and holds callers under memory pressure.
type Monitor struct {
	cfg   Config
	limit int64
	alloc func() uint64

	mu        sync.RWMutex
	current   uint64
	throttled bool
	resume    chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a monitor. Without an explicit limit it uses the Go
// soft memory limit; with neither it is inert.
func NewMonitor(cfg Config) *Monitor {
	limit := cfg.LimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
		}
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultConfig().CheckInterval
	}
	if limit > 0 {
		logging.Debug("Memory monitor: limit %s, hold at %.0f%%, resume at %.0f%%",
			FormatBytes(limit), cfg.CriticalWaterMark*100, cfg.HighWaterMark*100)
	}
	return &Monitor{
		cfg:    cfg,
		limit:  limit,
		alloc:  heapAlloc,
		resume: make(chan struct{}),
		stop:   make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// Start begins sampling. It does nothing without a limit.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.cfg.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends sampling and releases every held caller.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) check() {
	current := m.alloc()
	usage := float64(current) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = current

	switch {
	case !m.throttled && usage >= m.cfg.CriticalWaterMark:
		logging.Warn("Memory critical (%.1f%% of %s), holding encodes", usage*100, FormatBytes(m.limit))
		m.throttled = true
		metrics.MemoryThrottled.Set(1)
		metrics.MemoryThrottleEvents.Inc()
		go runtime.GC()
	case m.throttled && usage < m.cfg.HighWaterMark:
		logging.Info("Memory recovered (%.1f%%), resuming encodes", usage*100)
		m.throttled = false
		metrics.MemoryThrottled.Set(0)
		close(m.resume)
		m.resume = make(chan struct{})
	}
}

// Wait returns immediately unless memory is critical, in which case it
// blocks until usage recovers, the monitor stops or ctx ends.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.RLock()
	if !m.throttled {
		m.mu.RUnlock()
		return nil
	}
	resume := m.resume
	m.mu.RUnlock()

	select {
	case <-resume:
		return nil
	case <-m.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Throttled reports whether callers are currently held.
func (m *Monitor) Throttled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.throttled
}

// Usage returns the last sampled allocation as a fraction of the limit, or 0
// without a limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
