package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// PositionService defines the methods the position handler requires from
// the service layer.
type PositionService interface {
	GetByID(ctx context.Context, id string) (domain.Position, error)
	ListOpen(ctx context.Context) ([]domain.Position, error)
	History(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error)
	Close(ctx context.Context, id string) (domain.Position, error)
}

// PositionHandler serves position-related HTTP endpoints.
type PositionHandler struct {
	positions PositionService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given service and logger.
func NewPositionHandler(positions PositionService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		logger:    logger,
	}
}

// ListPositions returns all open positions.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	open, err := h.positions.ListOpen(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"positions": open,
		"count":     len(open),
	})
}

// ListHistory returns closed positions with pagination.
// GET /api/positions/history?limit=50&offset=0
func (h *PositionHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	hist, err := h.positions.History(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: position history failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list position history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"positions": hist,
		"limit":     opts.Limit,
		"offset":    opts.Offset,
	})
}

// GetPosition returns a single position by its ID.
// GET /api/positions/{id}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing position id")
		return
	}

	pos, err := h.positions.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "position not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get position failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get position")
		return
	}

	writeJSON(w, http.StatusOK, pos)
}

// ClosePosition closes an open position at the latest market price.
// POST /api/positions/{id}/close
func (h *PositionHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing position id")
		return
	}

	pos, err := h.positions.Close(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "position not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: close position failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusConflict, "failed to close position")
		return
	}

	writeJSON(w, http.StatusOK, pos)
}
