package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/edgebot/internal/engine"
	"github.com/alanyoungcy/edgebot/internal/risk"
	"github.com/alanyoungcy/edgebot/internal/server"
	"github.com/alanyoungcy/edgebot/internal/server/handler"
	"github.com/alanyoungcy/edgebot/internal/server/ws"
	"github.com/alanyoungcy/edgebot/internal/service"
)

// services bundles the orchestration layer built on top of the wired
// dependencies.
type services struct {
	markets   *service.MarketService
	positions *service.PositionService
	signals   *service.SignalService
}

// buildServices constructs the decision engine, risk core, and service layer
// from configuration.
func (a *App) buildServices(deps *Dependencies) *services {
	pricing := engine.NewPricingModel()
	pricing.RiskFreeRate = a.cfg.Trading.RiskFreeRate
	pricing.Drift = a.cfg.Trading.Drift

	assessor := risk.NewAssessor(risk.Limits{
		SinglePosition:        a.cfg.Risk.MaxSinglePosition,
		CategoryConcentration: a.cfg.Risk.MaxCategoryConcentration,
		LiquidityThreshold:    a.cfg.Risk.LiquidityThreshold,
		TimeDecayDays:         a.cfg.Risk.TimeDecayDays,
		PriceImpactLimit:      a.cfg.Risk.PriceImpactLimit,
		CorrelationLimit:      a.cfg.Risk.CorrelationLimit,
		VolatilityLimit:       a.cfg.Risk.VolatilityLimit,
		MaxRiskScore:          a.cfg.Risk.MaxRiskScore,
	}, nil)

	monitor := risk.NewMonitor(risk.BreakerLimits{
		DailyLoss:         a.cfg.Risk.DailyLossLimit,
		ConsecutiveLosses: a.cfg.Risk.ConsecutiveLosses,
		Drawdown:          a.cfg.Risk.DrawdownLimit,
	}, nil, a.logger)

	generator := engine.NewSignalGenerator(
		pricing,
		engine.NewPositionSizer(),
		assessor,
		engine.GeneratorConfig{
			Bankroll:    a.cfg.Trading.Bankroll,
			Confidence:  a.cfg.Trading.Confidence,
			MaxFraction: a.cfg.Trading.MaxKellyFraction,
			Volatility:  a.cfg.Trading.Volatility,
		},
		a.logger,
		nil,
	)

	marketSvc := service.NewMarketService(
		deps.Client, deps.MarketStore, deps.MarketCache, deps.SignalBus, a.logger,
	)
	positionSvc := service.NewPositionService(
		deps.Client, deps.MarketStore, deps.PositionStore, deps.TradeStore,
		deps.StatsStore, monitor, deps.SignalBus, deps.Notifier, a.logger, nil,
	)
	signalSvc := service.NewSignalService(
		generator, deps.MarketStore, deps.SignalStore, positionSvc,
		monitor, deps.LockManager, deps.SignalBus, deps.Notifier, a.logger,
	)

	return &services{
		markets:   marketSvc,
		positions: positionSvc,
		signals:   signalSvc,
	}
}

// FullMode runs everything: market refresh, position marking, the auto-scan
// loop, the archiver, and the HTTP + WebSocket API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	// Prime the market table so the first scan has data.
	if _, err := svcs.markets.Refresh(ctx); err != nil {
		a.logger.WarnContext(ctx, "initial market refresh failed",
			slog.String("error", err.Error()),
		)
	}

	g.Go(func() error {
		return svcs.markets.Run(ctx, a.cfg.Trading.RefreshInterval.Duration)
	})
	g.Go(func() error {
		return svcs.positions.Run(ctx, a.cfg.Trading.RefreshInterval.Duration)
	})

	if a.cfg.Trading.AutoScan {
		g.Go(func() error {
			return svcs.signals.Run(ctx, a.cfg.Trading.ScanInterval.Duration)
		})
	} else {
		a.logger.InfoContext(ctx, "auto_scan disabled, scans run only via POST /api/scan")
	}

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx, a.cfg.Archive.Interval.Duration)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svcs)
	}

	return g.Wait()
}

// ServerMode runs only the HTTP + WebSocket API over existing data. No
// background refresh or scan loops are started; refreshes and scans can
// still be triggered through the API.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	a.startHTTPServer(ctx, g, deps, svcs)

	return g.Wait()
}

// ScanMode refreshes markets, runs a single scan, and exits. Useful for
// cron-driven deployments.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	svcs := a.buildServices(deps)

	count, err := svcs.markets.Refresh(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "market refresh failed, scanning stored markets",
			slog.String("error", err.Error()),
		)
	}

	sigs, err := svcs.signals.Scan(ctx)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "scan mode complete",
		slog.Int("markets_refreshed", count),
		slog.Int("signals", len(sigs)),
	)
	return nil
}

// startHTTPServer adds the API server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	pingers := map[string]handler.Pinger{
		"postgres": deps.Postgres,
		"redis":    deps.Redis,
	}
	if deps.S3 != nil {
		pingers["s3"] = deps.S3
	}

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.ApiKey,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  a.cfg.Server.RateWindow.Duration,
		},
		server.Handlers{
			Health:    handler.NewHealthHandler(time.Now().UTC(), pingers, a.logger),
			Markets:   handler.NewMarketHandler(svcs.markets, a.logger),
			Positions: handler.NewPositionHandler(svcs.positions, a.logger),
			Trades:    handler.NewTradeHandler(svcs.positions, deps.TradeStore, a.logger),
			Signals:   handler.NewSignalHandler(svcs.signals, a.logger),
			Portfolio: handler.NewPortfolioHandler(svcs.positions, a.logger),
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
