package handlers

import (
	"net/http"

	"icon-sync/internal/maintenance"
)

// StatusResponse is the maintenance status.
type StatusResponse struct {
	Busy          bool                    `json:"busy"`
	Pending       bool                    `json:"pending"`
	PendingReason string                  `json:"pendingReason,omitempty"`
	Paused        bool                    `json:"paused"`
	ImagesDir     string                  `json:"imagesDir"`
	IconsDir      string                  `json:"iconsDir"`
	Images        int                     `json:"images"`
	Icons         int                     `json:"icons"`
	LastReport    *maintenance.ScanReport `json:"lastReport,omitempty"`
	LastSummary   string                  `json:"lastSummary,omitempty"`
}

// GetStatus returns the orchestrator state, library counts and the latest report.
func (h *Handlers) GetStatus(w http.ResponseWriter, _ *http.Request) {
	cfg := h.maint.Config()
	stats := h.maint.GetStats()
	reason, pending := h.maint.Pending()

	response := StatusResponse{
		Busy:          h.maint.Busy(),
		Pending:       pending,
		PendingReason: reason,
		Paused:        h.isPaused(),
		ImagesDir:     cfg.ImagesDir,
		IconsDir:      cfg.IconsDir,
		Images:        stats.Images,
		Icons:         stats.Icons,
	}
	if last, ok := h.maint.LastReport(); ok {
		response.LastReport = &last
		response.LastSummary = last.Summary()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, response)
}

// TriggerMaintenance requests a pass. The optional reason query parameter
// defaults to "manual". Manual requests run even while paused.
func (h *Handlers) TriggerMaintenance(w http.ResponseWriter, r *http.Request) {
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "manual"
	}

	status := "started"
	if h.maint.Busy() {
		status = "queued"
	}
	h.maint.Request(reason)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{
		"status": status,
		"reason": reason,
	})
}
