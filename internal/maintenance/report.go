package maintenance

import (
	"fmt"
	"time"
)

// Phase names a step of a pass or run for progress reporting.
type Phase string

const (
	PhaseCopy        Phase = "copy"
	PhaseNormalize   Phase = "normalize"
	PhaseOrphanSweep Phase = "orphan-sweep"
	PhaseScan        Phase = "scan"
	PhaseConvert     Phase = "convert"
	PhaseDone        Phase = "done"
)

// Progress is one progress update.
type Progress struct {
	Phase   Phase  `json:"phase"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Current string `json:"current,omitempty"`
}

// ProgressFunc receives progress updates. It is called on the worker
// goroutine and must not block for long.
type ProgressFunc func(Progress)

// ScanReport summarizes one maintenance pass.
type ScanReport struct {
	Reason             string        `json:"reason"`
	Started            time.Time     `json:"started"`
	Duration           time.Duration `json:"duration"`
	Scanned            int           `json:"scanned"`
	Converted          int           `json:"converted"`
	Errors             int           `json:"errors"`
	OrphanIconsRemoved int           `json:"orphan_icons_removed"`
	NormalizedMoves    int           `json:"normalized_moves"`
	Collisions         int           `json:"collisions"`
	// Failure is set when the pass aborted early.
	Failure string `json:"failure,omitempty"`
}

// Summary renders the report as a status line.
func (r ScanReport) Summary() string {
	s := fmt.Sprintf("scan (%s): scanned=%d converted=%d errors=%d orphans_removed=%d normalized=%d",
		r.Reason, r.Scanned, r.Converted, r.Errors, r.OrphanIconsRemoved, r.NormalizedMoves)
	if r.Collisions > 0 {
		s += fmt.Sprintf(" collisions=%d", r.Collisions)
	}
	if r.Failure != "" {
		s += " failed: " + r.Failure
	}
	return s
}

// RunResult summarizes a bulk run.
type RunResult struct {
	Inputs     int  `json:"inputs"`
	Copied     int  `json:"copied"`
	Collisions int  `json:"collisions"`
	Converted  int  `json:"converted"`
	Skipped    int  `json:"skipped"`
	Errors     int  `json:"errors"`
	Cancelled  bool `json:"cancelled"`
}

// Summary renders the result as a status line.
func (r RunResult) Summary() string {
	s := fmt.Sprintf("run: images=%d copied=%d collisions=%d converted=%d skipped=%d errors=%d",
		r.Inputs, r.Copied, r.Collisions, r.Converted, r.Skipped, r.Errors)
	if r.Cancelled {
		s += " (cancelled)"
	}
	return s
}
