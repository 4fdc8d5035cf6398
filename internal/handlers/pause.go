package handlers

import (
	"net/http"

	"icon-sync/internal/logging"
)

// SetPauseControl enables the pause and resume endpoints. Without it they
// answer 501.
func (h *Handlers) SetPauseControl(fn func(paused bool) error) {
	h.setPaused = fn
}

// Pause suppresses automatic passes until Resume.
func (h *Handlers) Pause(w http.ResponseWriter, _ *http.Request) {
	h.writePaused(w, true)
}

// Resume re-enables automatic passes.
func (h *Handlers) Resume(w http.ResponseWriter, _ *http.Request) {
	h.writePaused(w, false)
}

func (h *Handlers) writePaused(w http.ResponseWriter, paused bool) {
	if h.setPaused == nil {
		writeJSONError(w, "pause control not available", http.StatusNotImplemented)
		return
	}
	if err := h.setPaused(paused); err != nil {
		logging.Error("set paused=%v: %v", paused, err)
		writeJSONError(w, "failed to update paused flag", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]bool{"paused": paused})
}
