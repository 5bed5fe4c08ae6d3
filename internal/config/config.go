// Package config defines the top-level configuration for the edge bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by EDGEBOT_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Trading    TradingConfig    `toml:"trading"`
	Risk       RiskConfig       `toml:"risk"`
	Archive    ArchiveConfig    `toml:"archive"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds Polymarket API endpoints and request parameters.
type PolymarketConfig struct {
	GammaHost      string   `toml:"gamma_host"`
	RequestTimeout duration `toml:"request_timeout"`
	PageSize       int      `toml:"page_size"`
	MaxMarkets     int      `toml:"max_markets"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	MarketTTL  duration `toml:"market_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// TradingConfig holds the decision-engine parameters.
type TradingConfig struct {
	Bankroll         float64  `toml:"bankroll"`
	Confidence       float64  `toml:"confidence"`
	MaxKellyFraction float64  `toml:"max_kelly_fraction"`
	Volatility       float64  `toml:"volatility"`
	RiskFreeRate     float64  `toml:"risk_free_rate"`
	Drift            float64  `toml:"drift"`
	DemoMode         bool     `toml:"demo_mode"`
	AutoScan         bool     `toml:"auto_scan"`
	ScanInterval     duration `toml:"scan_interval"`
	RefreshInterval  duration `toml:"refresh_interval"`
}

// RiskConfig holds position limits and circuit-breaker thresholds.
type RiskConfig struct {
	MaxSinglePosition        float64 `toml:"max_single_position"`
	MaxCategoryConcentration float64 `toml:"max_category_concentration"`
	LiquidityThreshold       float64 `toml:"liquidity_threshold"`
	TimeDecayDays            float64 `toml:"time_decay_days"`
	PriceImpactLimit         float64 `toml:"price_impact_limit"`
	CorrelationLimit         float64 `toml:"correlation_limit"`
	VolatilityLimit          float64 `toml:"volatility_limit"`
	MaxRiskScore             float64 `toml:"max_risk_score"`

	DailyLossLimit    float64 `toml:"daily_loss_limit"`
	ConsecutiveLosses int     `toml:"consecutive_losses"`
	DrawdownLimit     float64 `toml:"drawdown_limit"`
}

// ArchiveConfig holds cold-storage parameters for trades and signals.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	ApiKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost:      "https://gamma-api.polymarket.com",
			RequestTimeout: duration{30 * time.Second},
			PageSize:       100,
			MaxMarkets:     500,
		},
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "edgebot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			MarketTTL:  duration{time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "edgebot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Trading: TradingConfig{
			Bankroll:         10_000,
			Confidence:       0.7,
			MaxKellyFraction: 0.25,
			Volatility:       0.3,
			RiskFreeRate:     0.05,
			Drift:            0.0,
			DemoMode:         true,
			AutoScan:         false,
			ScanInterval:     duration{5 * time.Minute},
			RefreshInterval:  duration{30 * time.Second},
		},
		Risk: RiskConfig{
			MaxSinglePosition:        0.10,
			MaxCategoryConcentration: 0.30,
			LiquidityThreshold:       1000,
			TimeDecayDays:            7,
			PriceImpactLimit:         0.02,
			CorrelationLimit:         0.7,
			VolatilityLimit:          0.5,
			MaxRiskScore:             0.7,
			DailyLossLimit:           0.05,
			ConsecutiveLosses:        5,
			DrawdownLimit:            0.20,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"signal", "breaker", "position"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"full":   true,
	"server": true,
	"scan":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, server, scan)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Polymarket endpoints
	if !c.Trading.DemoMode && c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty outside demo mode")
	}
	if c.Polymarket.PageSize < 1 {
		errs = append(errs, "polymarket: page_size must be >= 1")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archiving is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archiving is enabled")
		}
	}

	// Trading
	if c.Trading.Bankroll <= 0 {
		errs = append(errs, "trading: bankroll must be > 0")
	}
	if c.Trading.Confidence <= 0 || c.Trading.Confidence > 1 {
		errs = append(errs, fmt.Sprintf("trading: confidence must be in (0, 1], got %v", c.Trading.Confidence))
	}
	if c.Trading.MaxKellyFraction <= 0 || c.Trading.MaxKellyFraction > 1 {
		errs = append(errs, fmt.Sprintf("trading: max_kelly_fraction must be in (0, 1], got %v", c.Trading.MaxKellyFraction))
	}
	if c.Trading.Volatility < 0 {
		errs = append(errs, "trading: volatility must be >= 0 (0 means imply per market)")
	}
	if c.Trading.ScanInterval.Duration < time.Second {
		errs = append(errs, "trading: scan_interval must be at least 1s")
	}
	if c.Trading.RefreshInterval.Duration < time.Second {
		errs = append(errs, "trading: refresh_interval must be at least 1s")
	}

	// Risk
	if c.Risk.MaxSinglePosition <= 0 || c.Risk.MaxSinglePosition > 1 {
		errs = append(errs, "risk: max_single_position must be in (0, 1]")
	}
	if c.Risk.MaxCategoryConcentration <= 0 || c.Risk.MaxCategoryConcentration > 1 {
		errs = append(errs, "risk: max_category_concentration must be in (0, 1]")
	}
	if c.Risk.MaxRiskScore <= 0 {
		errs = append(errs, "risk: max_risk_score must be > 0")
	}
	if c.Risk.DailyLossLimit <= 0 || c.Risk.DailyLossLimit > 1 {
		errs = append(errs, "risk: daily_loss_limit must be in (0, 1]")
	}
	if c.Risk.ConsecutiveLosses < 1 {
		errs = append(errs, "risk: consecutive_losses must be >= 1")
	}
	if c.Risk.DrawdownLimit <= 0 || c.Risk.DrawdownLimit > 1 {
		errs = append(errs, "risk: drawdown_limit must be in (0, 1]")
	}

	// Archive
	if c.Archive.Enabled && c.Archive.RetentionDays < 1 {
		errs = append(errs, "archive: retention_days must be >= 1 when enabled")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
