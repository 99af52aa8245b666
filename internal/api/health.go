package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ashureev/agent-factory/internal/remote"
)

// Health returns the health status of the API and its stores. Only the
// local store decides the status code; the remote store is best-effort.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.healthTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.local.Ping(ctx); err != nil {
		h.logger.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	switch err := h.remote.Ping(ctx); {
	case err == nil:
		checks["remote"] = "ok"
	case errors.Is(err, remote.ErrDisabled):
		checks["remote"] = "disabled"
	default:
		h.logger.Warn("Remote store unreachable", "error", err)
		checks["remote"] = "unreachable"
	}

	JSON(w, statusCode, status)
}
