package metrics

import (
	"os"
	"sync"
	"time"

	"icon-sync/internal/logging"
)

// StatsProvider reports the current size of the library.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the library counts exported as gauges.
type Stats struct {
	Images int
	Icons  int
}

// Collector periodically refreshes gauges that are cheaper to sample than to
// track on every change.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once

	mu     sync.Mutex
	dbPath string
}

// NewCollector creates a collector sampling provider every interval.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// SetDBPath enables size sampling of the history database and its WAL files.
func (c *Collector) SetDBPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dbPath = path
}

// Start begins the collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop ends the collection loop. Safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	c.collectDBSize()

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()
	LibraryImages.Set(float64(stats.Images))
	LibraryIcons.Set(float64(stats.Icons))

	logging.Debug("Metrics collected: images=%d, icons=%d", stats.Images, stats.Icons)
}

func (c *Collector) collectDBSize() {
	c.mu.Lock()
	path := c.dbPath
	c.mu.Unlock()

	if path == "" {
		return
	}

	for file, p := range map[string]string{"main": path, "wal": path + "-wal", "shm": path + "-shm"} {
		var size int64
		if info, err := os.Stat(p); err == nil {
			size = info.Size()
		}
		DBSizeBytes.WithLabelValues(file).Set(float64(size))
	}
}
