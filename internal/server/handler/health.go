package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger checks the liveness of one backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint, reporting overall status
// plus the state of each registered dependency.
type HealthHandler struct {
	startedAt time.Time
	deps      map[string]Pinger
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler. The deps map associates a
// component name (e.g. "postgres", "redis") with its liveness check; a nil
// map disables dependency reporting.
func NewHealthHandler(startedAt time.Time, deps map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		startedAt: startedAt,
		deps:      deps,
		logger:    logger,
	}
}

// HealthCheck responds with the server status, uptime, and per-dependency
// health. A failing dependency degrades the overall status but still
// returns 200 so load balancers keep routing to the API.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	components := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			components[name] = "down"
			status = "degraded"
			h.logger.WarnContext(ctx, "handler: dependency unhealthy",
				slog.String("component", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"components":     components,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
