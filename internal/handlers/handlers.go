package handlers

import (
	"context"
	"time"

	"icon-sync/internal/history"
	"icon-sync/internal/maintenance"
	"icon-sync/internal/metrics"
)

// Maintenance is the part of the orchestrator the API reads and triggers.
type Maintenance interface {
	Busy() bool
	Pending() (string, bool)
	LastReport() (maintenance.ScanReport, bool)
	Request(reason string)
	Config() maintenance.Config
	GetStats() metrics.Stats
}

// Journal reads the pass and collision history.
type Journal interface {
	RecentPasses(ctx context.Context, limit int) ([]history.Pass, error)
	RecentCollisions(ctx context.Context, limit int) ([]history.Collision, error)
}

// Handlers serves the status API.
type Handlers struct {
	maint   Maintenance
	journal Journal
	paused  func() bool
	started time.Time

	setPaused func(bool) error
}

// New creates the handlers. journal and paused may be nil.
func New(m Maintenance, journal Journal, paused func() bool) *Handlers {
	return &Handlers{
		maint:   m,
		journal: journal,
		paused:  paused,
		started: time.Now(),
	}
}

func (h *Handlers) isPaused() bool {
	return h.paused != nil && h.paused()
}
