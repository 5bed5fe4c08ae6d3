package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// SignalService defines the methods the signal handler requires from the
// service layer.
type SignalService interface {
	Scan(ctx context.Context) ([]domain.TradingSignal, error)
	ListRecent(ctx context.Context, limit int) ([]domain.TradingSignal, error)
}

// SignalHandler serves signal listing and on-demand scan endpoints.
type SignalHandler struct {
	signals SignalService
	logger  *slog.Logger
}

// NewSignalHandler creates a SignalHandler with the given service and logger.
func NewSignalHandler(signals SignalService, logger *slog.Logger) *SignalHandler {
	return &SignalHandler{
		signals: signals,
		logger:  logger,
	}
}

// ListSignals returns the most recently generated signals.
// GET /api/signals?limit=50
func (h *SignalHandler) ListSignals(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	sigs, err := h.signals.ListRecent(r.Context(), opts.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list signals failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list signals")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"signals": sigs,
		"count":   len(sigs),
	})
}

// TriggerScan runs a market scan immediately and returns the signals it
// generated. An empty result means the scan was suppressed (lock held or
// circuit breaker tripped) or simply found no edge.
// POST /api/scan
func (h *SignalHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	sigs, err := h.signals.Scan(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: scan failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"signals": sigs,
		"count":   len(sigs),
	})
}
