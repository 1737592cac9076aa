package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/roomops/herald/internal/blacklist"
	"github.com/roomops/herald/internal/schedule"
	"github.com/sirupsen/logrus"
)

// Handler serves the read-mostly status endpoints plus runner start/stop.
type Handler struct {
	registry  *schedule.Registry
	runner    *schedule.Runner
	blacklist *blacklist.Store
	logger    *logrus.Logger
}

func NewHandler(registry *schedule.Registry, runner *schedule.Runner, store *blacklist.Store, logger *logrus.Logger) *Handler {
	return &Handler{
		registry:  registry,
		runner:    runner,
		blacklist: store,
		logger:    logger,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.registry.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jobs":    jobs,
		"count":   len(jobs),
		"running": h.runner.IsRunning(),
		"now":     time.Now().UTC(),
	})
}

func (h *Handler) GetBlacklist(w http.ResponseWriter, r *http.Request) {
	dates := h.blacklist.Dates()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"dates": dates,
		"count": len(dates),
	})
}

func (h *Handler) StartRunner(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Start(); err != nil {
		h.handleError(w, err, http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "runner started",
	})
}

func (h *Handler) StopRunner(w http.ResponseWriter, r *http.Request) {
	h.runner.Stop()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "runner stopped",
	})
}

func (h *Handler) handleError(w http.ResponseWriter, err error, code int) {
	h.logger.Error(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
	})
}
