package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/edgebot/internal/domain"
	"github.com/alanyoungcy/edgebot/internal/engine"
	"github.com/alanyoungcy/edgebot/internal/notify"
	"github.com/alanyoungcy/edgebot/internal/risk"
)

const (
	// scanLockKey keeps scans single-flight across replicas.
	scanLockKey = "signal-scan"
	scanLockTTL = 2 * time.Minute

	// scanBatchSize bounds how many markets one scan evaluates.
	scanBatchSize = 200
)

// SignalService runs the market scan: it evaluates active markets through
// the signal generator, persists and publishes the resulting signals, and
// suppresses emission entirely while a circuit breaker is tripped.
type SignalService struct {
	generator *engine.SignalGenerator
	markets   domain.MarketStore
	signals   domain.SignalStore
	positions *PositionService
	monitor   *risk.Monitor
	locks     domain.LockManager
	bus       domain.SignalBus
	notifier  *notify.Notifier
	logger    *slog.Logger
}

// NewSignalService creates a SignalService with all required dependencies.
func NewSignalService(
	generator *engine.SignalGenerator,
	markets domain.MarketStore,
	signals domain.SignalStore,
	positions *PositionService,
	monitor *risk.Monitor,
	locks domain.LockManager,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *SignalService {
	return &SignalService{
		generator: generator,
		markets:   markets,
		signals:   signals,
		positions: positions,
		monitor:   monitor,
		locks:     locks,
		bus:       bus,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "signal_service")),
	}
}

// Scan evaluates all active markets and returns the signals generated. It
// is a no-op returning nil when another replica holds the scan lock or when
// any circuit breaker is tripped.
func (s *SignalService) Scan(ctx context.Context) ([]domain.TradingSignal, error) {
	unlock, err := s.locks.Acquire(ctx, scanLockKey, scanLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			s.logger.InfoContext(ctx, "scan already in progress, skipping")
			return nil, nil
		}
		return nil, fmt.Errorf("signal_service: acquire scan lock: %w", err)
	}
	defer unlock()

	pv, err := s.positions.PortfolioValue(ctx)
	if err != nil {
		return nil, fmt.Errorf("signal_service: portfolio value: %w", err)
	}

	breakers := s.monitor.CheckBreakers(pv)
	if breakers.AnyTripped {
		s.handleTrippedBreakers(ctx, breakers)
		return nil, nil
	}

	markets, err := s.markets.ListActive(ctx, domain.ListOpts{Limit: scanBatchSize})
	if err != nil {
		return nil, fmt.Errorf("signal_service: list active markets: %w", err)
	}

	open, err := s.positions.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("signal_service: list open positions: %w", err)
	}

	var generated []domain.TradingSignal
	for _, m := range markets {
		sig := s.generator.Generate(m, open, pv)
		if sig == nil {
			continue
		}

		if err := s.signals.Insert(ctx, *sig); err != nil {
			s.logger.WarnContext(ctx, "signal insert failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		s.publishSignal(ctx, *sig)
		generated = append(generated, *sig)
	}

	s.logger.InfoContext(ctx, "scan complete",
		slog.Int("markets", len(markets)),
		slog.Int("signals", len(generated)),
	)

	return generated, nil
}

// Run scans on the given interval until the context is cancelled.
func (s *SignalService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Scan(ctx); err != nil {
				s.logger.ErrorContext(ctx, "scan failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// ListRecent returns the most recently generated signals.
func (s *SignalService) ListRecent(ctx context.Context, limit int) ([]domain.TradingSignal, error) {
	sigs, err := s.signals.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("signal_service: list recent: %w", err)
	}
	return sigs, nil
}

func (s *SignalService) publishSignal(ctx context.Context, sig domain.TradingSignal) {
	evt, _ := json.Marshal(map[string]any{
		"event":            "signal",
		"signal_id":        sig.ID,
		"market_id":        sig.MarketID,
		"side":             string(sig.Side),
		"confidence":       sig.Confidence,
		"recommended_size": sig.RecommendedSize,
		"entry_price":      sig.EntryPrice,
		"stop_loss":        sig.StopLoss,
		"take_profit":      sig.TakeProfit,
		"risk_score":       sig.RiskScore,
		"reasoning":        sig.Reasoning,
		"created_at":       sig.CreatedAt.Format(time.RFC3339),
	})
	if err := s.bus.Publish(ctx, "signals", evt); err != nil {
		s.logger.WarnContext(ctx, "publish signal failed",
			slog.String("signal_id", sig.ID),
			slog.String("error", err.Error()),
		)
	}

	msg := fmt.Sprintf("%s %s $%.2f @ %.3f (confidence %.0f%%)",
		sig.MarketID, sig.Side, sig.RecommendedSize, sig.EntryPrice, sig.Confidence*100)
	if err := s.notifier.Notify(ctx, notify.EventSignal, "Trading signal", msg); err != nil {
		s.logger.WarnContext(ctx, "signal notification failed",
			slog.String("signal_id", sig.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SignalService) handleTrippedBreakers(ctx context.Context, b domain.CircuitBreakers) {
	var tripped []string
	if b.DailyLossLimit {
		tripped = append(tripped, "daily loss limit")
	}
	if b.ConsecutiveLosses {
		tripped = append(tripped, "consecutive losses")
	}
	if b.DrawdownLimit {
		tripped = append(tripped, "drawdown limit")
	}

	s.logger.WarnContext(ctx, "circuit breaker tripped, suppressing signals",
		slog.Any("breakers", tripped),
	)

	msg := fmt.Sprintf("Signal generation halted: %v", tripped)
	if err := s.notifier.Notify(ctx, notify.EventBreaker, "Circuit breaker tripped", msg); err != nil {
		s.logger.WarnContext(ctx, "breaker notification failed",
			slog.String("error", err.Error()),
		)
	}
}
