package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Welcome handles GET /api.
func (h *Handler) Welcome(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"message": "Welcome to JapaAdvisor API!"})
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "database": "disabled"}
	if h.repo == nil {
		JSON(w, http.StatusOK, status)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		slog.Warn("Health check: database unreachable", "error", err)
		status["status"] = "degraded"
		status["database"] = "unreachable"
		JSON(w, http.StatusServiceUnavailable, status)
		return
	}
	status["database"] = "ok"
	JSON(w, http.StatusOK, status)
}
