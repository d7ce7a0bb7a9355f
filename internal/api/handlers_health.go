package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/coordinator"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/store"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/upstream"
)

type HealthHandler struct {
	db       *store.DB
	upstream upstream.HealthChecker
	coord    *coordinator.Coordinator
}

func NewHealthHandler(db *store.DB, up upstream.HealthChecker, coord *coordinator.Coordinator) *HealthHandler {
	return &HealthHandler{db: db, upstream: up, coord: coord}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status: "ok",
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Check upstream
	if h.upstream == nil {
		resp.Upstream = models.ServiceCheck{Status: "unknown"}
	} else if err := h.upstream.HealthCheck(ctx); err != nil {
		resp.Upstream = models.ServiceCheck{Status: "error", Message: err.Error()}
		resp.Status = "degraded"
	} else {
		resp.Upstream = models.ServiceCheck{Status: "ok"}
	}

	// Check DB
	count, err := h.db.SessionCount()
	if err != nil {
		resp.DB = models.ServiceCheck{Status: "error", Message: err.Error()}
		resp.Status = "degraded"
	} else {
		resp.DB = models.ServiceCheck{Status: "ok"}
		resp.SessionCount = count
	}

	if id, ok, err := h.coord.Active(ctx); err == nil && ok {
		resp.ActiveChatID = &id
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
