package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/edgebot/internal/domain"
	"github.com/alanyoungcy/edgebot/internal/notify"
	"github.com/alanyoungcy/edgebot/internal/platform/polymarket"
	"github.com/alanyoungcy/edgebot/internal/risk"
)

// balanceCrediter is implemented by clients whose balance must be credited
// when a position is unwound. The demo client implements it; the live
// read-only client does not.
type balanceCrediter interface {
	Credit(amount float64)
}

// PositionService manages the position lifecycle: opening from a trading
// signal, marking to the latest prices, and closing with realized PnL fed
// into the circuit-breaker monitor.
type PositionService struct {
	client    polymarket.MarketClient
	markets   domain.MarketStore
	positions domain.PositionStore
	trades    domain.TradeStore
	stats     domain.StatsStore
	monitor   *risk.Monitor
	bus       domain.SignalBus
	notifier  *notify.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewPositionService creates a PositionService with all required
// dependencies. The clock is injectable for tests; pass time.Now in
// production.
func NewPositionService(
	client polymarket.MarketClient,
	markets domain.MarketStore,
	positions domain.PositionStore,
	trades domain.TradeStore,
	stats domain.StatsStore,
	monitor *risk.Monitor,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
	now func() time.Time,
) *PositionService {
	if now == nil {
		now = time.Now
	}
	return &PositionService{
		client:    client,
		markets:   markets,
		positions: positions,
		trades:    trades,
		stats:     stats,
		monitor:   monitor,
		bus:       bus,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "position_service")),
		now:       now,
	}
}

// Open executes a trading signal against the platform client and records
// the resulting fill as a trade plus an open position.
func (s *PositionService) Open(ctx context.Context, signal domain.TradingSignal) (domain.Position, error) {
	res, err := s.client.Execute(ctx, polymarket.OrderRequest{
		MarketID: signal.MarketID,
		Side:     signal.Side,
		Size:     signal.RecommendedSize,
		Price:    signal.EntryPrice,
	})
	if err != nil {
		return domain.Position{}, fmt.Errorf("position_service: execute order: %w", err)
	}
	if !res.Filled {
		return domain.Position{}, fmt.Errorf("position_service: order not filled: %w: %s", domain.ErrOrderRejected, res.RejectedBy)
	}

	now := s.now().UTC()

	trade := domain.Trade{
		ID:         uuid.New().String(),
		MarketID:   signal.MarketID,
		Side:       signal.Side,
		Size:       res.FillSize,
		Price:      res.FillPrice,
		Fee:        res.Fee,
		ExecutedAt: now,
	}
	if err := s.trades.Insert(ctx, trade); err != nil {
		return domain.Position{}, fmt.Errorf("position_service: record trade: %w", err)
	}

	pos := domain.Position{
		ID:           uuid.New().String(),
		MarketID:     signal.MarketID,
		Side:         signal.Side,
		Size:         res.FillSize,
		EntryPrice:   res.FillPrice,
		CurrentPrice: res.FillPrice,
		Status:       domain.PositionStatusOpen,
		OpenedAt:     now,
		UpdatedAt:    now,
	}
	if err := s.positions.Create(ctx, pos); err != nil {
		return domain.Position{}, fmt.Errorf("position_service: create position: %w", err)
	}

	s.publishEvent(ctx, map[string]any{
		"event":       "position_opened",
		"position_id": pos.ID,
		"market_id":   pos.MarketID,
		"side":        string(pos.Side),
		"entry_price": pos.EntryPrice,
		"size":        pos.Size,
	})
	s.notifyPosition(ctx, "Position opened",
		fmt.Sprintf("%s %s $%.2f @ %.3f", pos.MarketID, pos.Side, pos.Size, pos.EntryPrice))

	s.logger.InfoContext(ctx, "position opened",
		slog.String("position_id", pos.ID),
		slog.String("market_id", pos.MarketID),
		slog.String("side", string(pos.Side)),
		slog.Float64("entry_price", pos.EntryPrice),
		slog.Float64("size", pos.Size),
	)

	return pos, nil
}

// RefreshPnL marks every open position to the latest stored market price
// and persists the updated unrealized PnL. Positions whose market cannot be
// loaded are skipped.
func (s *PositionService) RefreshPnL(ctx context.Context) error {
	open, err := s.positions.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("position_service: list open: %w", err)
	}

	for _, pos := range open {
		m, err := s.markets.GetByID(ctx, pos.MarketID)
		if err != nil {
			s.logger.WarnContext(ctx, "market lookup failed for pnl refresh",
				slog.String("position_id", pos.ID),
				slog.String("market_id", pos.MarketID),
				slog.String("error", err.Error()),
			)
			continue
		}

		mark := markPrice(m, pos.Side)
		if err := s.positions.UpdatePnL(ctx, pos.ID, mark, pos.PnLAt(mark)); err != nil {
			s.logger.WarnContext(ctx, "pnl update failed",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// Run refreshes open-position PnL on the given interval until the context
// is cancelled.
func (s *PositionService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RefreshPnL(ctx); err != nil {
				s.logger.ErrorContext(ctx, "pnl refresh failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Close exits a position at the latest market price, records the realized
// PnL as a closing fill, and feeds the outcome into the circuit-breaker
// monitor. In demo mode the sale proceeds are credited back to the
// simulated balance.
func (s *PositionService) Close(ctx context.Context, id string) (domain.Position, error) {
	pos, err := s.positions.GetByID(ctx, id)
	if err != nil {
		return domain.Position{}, fmt.Errorf("position_service: get position %q: %w", id, err)
	}
	if pos.Status != domain.PositionStatusOpen {
		return domain.Position{}, fmt.Errorf("position_service: position %q is not open", id)
	}

	exitPrice := pos.CurrentPrice
	if m, mErr := s.markets.GetByID(ctx, pos.MarketID); mErr == nil {
		exitPrice = markPrice(m, pos.Side)
	}

	realized := pos.PnLAt(exitPrice)
	if err := s.positions.Close(ctx, id, exitPrice, realized); err != nil {
		return domain.Position{}, fmt.Errorf("position_service: close position %q: %w", id, err)
	}

	now := s.now().UTC()
	closingFill := domain.Trade{
		ID:         uuid.New().String(),
		MarketID:   pos.MarketID,
		Side:       pos.Side,
		Size:       -pos.Size,
		Price:      exitPrice,
		ExecutedAt: now,
	}
	if err := s.trades.Insert(ctx, closingFill); err != nil {
		s.logger.WarnContext(ctx, "record closing fill failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
	}

	if c, ok := s.client.(balanceCrediter); ok {
		c.Credit(pos.Size + realized)
	}

	s.monitor.RecordOutcome(realized)

	s.publishEvent(ctx, map[string]any{
		"event":        "position_closed",
		"position_id":  id,
		"market_id":    pos.MarketID,
		"exit_price":   exitPrice,
		"realized_pnl": realized,
	})
	s.notifyPosition(ctx, "Position closed",
		fmt.Sprintf("%s %s exit %.3f, realized $%.2f", pos.MarketID, pos.Side, exitPrice, realized))

	s.logger.InfoContext(ctx, "position closed",
		slog.String("position_id", id),
		slog.Float64("exit_price", exitPrice),
		slog.Float64("realized_pnl", realized),
	)

	pos.Status = domain.PositionStatusClosed
	pos.CurrentPrice = exitPrice
	pos.PnL = realized
	pos.ClosedAt = &now
	return pos, nil
}

// GetByID returns a single position.
func (s *PositionService) GetByID(ctx context.Context, id string) (domain.Position, error) {
	pos, err := s.positions.GetByID(ctx, id)
	if err != nil {
		return domain.Position{}, fmt.Errorf("position_service: get position %q: %w", id, err)
	}
	return pos, nil
}

// ListOpen returns all open positions.
func (s *PositionService) ListOpen(ctx context.Context) ([]domain.Position, error) {
	open, err := s.positions.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("position_service: list open: %w", err)
	}
	return open, nil
}

// History returns closed positions with pagination.
func (s *PositionService) History(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	hist, err := s.positions.ListHistory(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("position_service: list history: %w", err)
	}
	return hist, nil
}

// PortfolioValue returns cash balance plus the marked value of all open
// positions. When the client cannot report a balance (the live client is
// read-only) the cash component is zero.
func (s *PositionService) PortfolioValue(ctx context.Context) (float64, error) {
	open, err := s.positions.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("position_service: list open for portfolio value: %w", err)
	}

	value := 0.0
	for _, p := range open {
		value += p.Size + p.PnL
	}

	bal, balErr := s.client.Balance(ctx)
	if balErr != nil {
		s.logger.DebugContext(ctx, "balance unavailable, using exposure only",
			slog.String("error", balErr.Error()),
		)
	} else {
		value += bal
	}

	return value, nil
}

// Report builds the portfolio-level risk report from the current open
// positions and portfolio value.
func (s *PositionService) Report(ctx context.Context) (domain.PortfolioReport, error) {
	open, err := s.positions.ListOpen(ctx)
	if err != nil {
		return domain.PortfolioReport{}, fmt.Errorf("position_service: list open for report: %w", err)
	}
	pv, err := s.PortfolioValue(ctx)
	if err != nil {
		return domain.PortfolioReport{}, err
	}
	return s.monitor.Report(open, pv), nil
}

// Stats returns realized performance aggregates.
func (s *PositionService) Stats(ctx context.Context) (domain.PortfolioStats, error) {
	st, err := s.stats.PortfolioStats(ctx)
	if err != nil {
		return domain.PortfolioStats{}, fmt.Errorf("position_service: portfolio stats: %w", err)
	}
	return st, nil
}

func (s *PositionService) notifyPosition(ctx context.Context, title, message string) {
	if err := s.notifier.Notify(ctx, notify.EventPosition, title, message); err != nil {
		s.logger.WarnContext(ctx, "position notification failed",
			slog.String("error", err.Error()),
		)
	}
}

func (s *PositionService) publishEvent(ctx context.Context, payload map[string]any) {
	evt, _ := json.Marshal(payload)
	if err := s.bus.Publish(ctx, "positions", evt); err != nil {
		s.logger.WarnContext(ctx, "publish position event failed",
			slog.String("error", err.Error()),
		)
	}
}

// markPrice returns the price a position of the given side marks against.
func markPrice(m domain.Market, side domain.TradeSide) float64 {
	if side == domain.TradeSideNo {
		return m.NoPrice
	}
	return m.YesPrice
}
