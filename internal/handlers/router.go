package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"icon-sync/internal/middleware"
)

// Router registers every status API route with logging and metrics
// middleware applied.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	cfg := middleware.DefaultConfig()
	r.Use(middleware.Logger(cfg), middleware.Metrics(cfg))

	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", h.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/maintenance", h.TriggerMaintenance).Methods(http.MethodPost)
	api.HandleFunc("/history", h.GetHistory).Methods(http.MethodGet)
	api.HandleFunc("/pause", h.Pause).Methods(http.MethodPost)
	api.HandleFunc("/resume", h.Resume).Methods(http.MethodPost)

	return r
}
