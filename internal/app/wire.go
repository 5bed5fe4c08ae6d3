package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/edgebot/internal/blob/s3"
	"github.com/alanyoungcy/edgebot/internal/cache/redis"
	"github.com/alanyoungcy/edgebot/internal/config"
	"github.com/alanyoungcy/edgebot/internal/domain"
	"github.com/alanyoungcy/edgebot/internal/notify"
	"github.com/alanyoungcy/edgebot/internal/platform/polymarket"
	"github.com/alanyoungcy/edgebot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	MarketStore   domain.MarketStore
	PositionStore domain.PositionStore
	TradeStore    domain.TradeStore
	SignalStore   domain.SignalStore
	StatsStore    domain.StatsStore

	// Caches and coordination
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage (nil unless archiving is enabled)
	BlobWriter domain.BlobWriter
	Archiver   *s3blob.Archiver

	// Platform client: demo simulator or the live Gamma API.
	Client polymarket.MarketClient

	// Notifications
	Notifier *notify.Notifier

	// Raw clients kept for health checks.
	Postgres *postgres.Client
	Redis    *redis.Client
	S3       *s3blob.Client
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Postgres = pgClient
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.PositionStore = postgres.NewPositionStore(pool)
	deps.TradeStore = postgres.NewTradeStore(pool)
	deps.SignalStore = postgres.NewSignalStore(pool)
	deps.StatsStore = postgres.NewStatsStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	deps.MarketCache = redis.NewMarketCache(redisClient, cfg.Redis.MarketTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage (only when archiving is enabled) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.S3 = s3Client
		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(
			deps.BlobWriter,
			deps.TradeStore,
			deps.SignalStore,
			cfg.Archive.RetentionDays,
			logger,
			nil,
		)
	}

	// --- Platform client ---
	if cfg.Trading.DemoMode {
		deps.Client = polymarket.NewDemoClient(time.Now().UnixNano(), nil)
		logger.InfoContext(ctx, "demo mode enabled, using simulated markets and fills")
	} else {
		deps.Client = polymarket.NewClient(cfg.Polymarket.GammaHost, cfg.Polymarket.RequestTimeout.Duration)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
