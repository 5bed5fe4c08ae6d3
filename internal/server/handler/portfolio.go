package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// PortfolioService defines the methods the portfolio handler requires from
// the service layer.
type PortfolioService interface {
	Stats(ctx context.Context) (domain.PortfolioStats, error)
	Report(ctx context.Context) (domain.PortfolioReport, error)
	PortfolioValue(ctx context.Context) (float64, error)
}

// PortfolioHandler serves portfolio statistics and risk report endpoints.
type PortfolioHandler struct {
	portfolio PortfolioService
	logger    *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler with the given service and logger.
func NewPortfolioHandler(portfolio PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolio: portfolio,
		logger:    logger,
	}
}

// GetStats returns realized performance aggregates plus the current
// portfolio value.
// GET /api/portfolio/stats
func (h *PortfolioHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.portfolio.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: portfolio stats failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute portfolio stats")
		return
	}

	value, err := h.portfolio.PortfolioValue(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: portfolio value failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute portfolio value")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":           stats,
		"portfolio_value": value,
	})
}

// GetRiskReport returns the portfolio-level risk report, including
// concentration, liquidity, and time-decay measures plus circuit breaker
// state.
// GET /api/portfolio/risk
func (h *PortfolioHandler) GetRiskReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.portfolio.Report(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: risk report failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to build risk report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}
