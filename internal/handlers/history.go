package handlers

import (
	"net/http"

	"icon-sync/internal/history"
	"icon-sync/internal/logging"
)

// HistoryResponse holds recent passes and collisions.
type HistoryResponse struct {
	Passes     []history.Pass      `json:"passes"`
	Collisions []history.Collision `json:"collisions"`
}

// GetHistory returns the journal, newest first. limit caps each list.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSONError(w, "history journal is not available", http.StatusServiceUnavailable)
		return
	}
	limit := queryInt(r, "limit", history.DefaultLimit)

	passes, err := h.journal.RecentPasses(r.Context(), limit)
	if err != nil {
		logging.Error("history: %v", err)
		writeJSONError(w, "failed to read pass history", http.StatusInternalServerError)
		return
	}
	collisions, err := h.journal.RecentCollisions(r.Context(), limit)
	if err != nil {
		logging.Error("history: %v", err)
		writeJSONError(w, "failed to read collision history", http.StatusInternalServerError)
		return
	}

	response := HistoryResponse{Passes: passes, Collisions: collisions}
	if response.Passes == nil {
		response.Passes = []history.Pass{}
	}
	if response.Collisions == nil {
		response.Collisions = []history.Collision{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}
