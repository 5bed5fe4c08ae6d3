package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// TradeService defines the methods the trade handler requires from the
// service layer. Open executes a sized order and records the fill.
type TradeService interface {
	Open(ctx context.Context, signal domain.TradingSignal) (domain.Position, error)
}

// TradeStore is the read surface for executed fills.
type TradeStore interface {
	ListRecent(ctx context.Context, limit int) ([]domain.Trade, error)
}

// TradeHandler serves trade execution and history endpoints.
type TradeHandler struct {
	service TradeService
	trades  TradeStore
	logger  *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given dependencies.
func NewTradeHandler(service TradeService, trades TradeStore, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		service: service,
		trades:  trades,
		logger:  logger,
	}
}

// placeTradeRequest is the body for manual trade placement.
type placeTradeRequest struct {
	MarketID string  `json:"market_id"`
	Side     string  `json:"side"`
	Size     float64 `json:"size"`
	Price    float64 `json:"price"`
}

func (req placeTradeRequest) validate() error {
	if req.MarketID == "" {
		return errors.New("market_id is required")
	}
	side := domain.TradeSide(req.Side)
	if side != domain.TradeSideYes && side != domain.TradeSideNo {
		return errors.New("side must be yes or no")
	}
	if req.Size <= 0 {
		return errors.New("size must be positive")
	}
	if req.Price <= 0 || req.Price >= 1 {
		return errors.New("price must be in (0,1)")
	}
	return nil
}

// PlaceTrade executes a manual trade and opens the resulting position.
// POST /api/trade
func (h *TradeHandler) PlaceTrade(w http.ResponseWriter, r *http.Request) {
	var req placeTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pos, err := h.service.Open(r.Context(), domain.TradingSignal{
		MarketID:        req.MarketID,
		Side:            domain.TradeSide(req.Side),
		RecommendedSize: req.Size,
		EntryPrice:      req.Price,
	})
	if err != nil {
		if errors.Is(err, domain.ErrOrderRejected) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: place trade failed",
			slog.String("market_id", req.MarketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to place trade")
		return
	}

	writeJSON(w, http.StatusCreated, pos)
}

// ListTrades returns the most recent fills.
// GET /api/trades?limit=50
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	trades, err := h.trades.ListRecent(r.Context(), opts.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trades": trades,
		"count":  len(trades),
	})
}
