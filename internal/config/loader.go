package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies EDGEBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// LoadOrDefaults behaves like Load but falls back to pure defaults plus env
// overrides when no config file exists at path. Useful for demo-mode runs
// that need zero setup.
func LoadOrDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		cfg := Defaults()
		_ = godotenv.Load()
		applyEnvOverrides(&cfg)
		return &cfg, nil
	}
	return Load(path)
}

// applyEnvOverrides reads well-known EDGEBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "EDGEBOT_POLYMARKET_GAMMA_HOST")
	setDuration(&cfg.Polymarket.RequestTimeout, "EDGEBOT_POLYMARKET_REQUEST_TIMEOUT")
	setInt(&cfg.Polymarket.PageSize, "EDGEBOT_POLYMARKET_PAGE_SIZE")
	setInt(&cfg.Polymarket.MaxMarkets, "EDGEBOT_POLYMARKET_MAX_MARKETS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "EDGEBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "EDGEBOT_DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "EDGEBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "EDGEBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "EDGEBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "EDGEBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "EDGEBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "EDGEBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "EDGEBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "EDGEBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "EDGEBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "EDGEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "EDGEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "EDGEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "EDGEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "EDGEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "EDGEBOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.MarketTTL, "EDGEBOT_REDIS_MARKET_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "EDGEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "EDGEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "EDGEBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "EDGEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "EDGEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "EDGEBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "EDGEBOT_S3_FORCE_PATH_STYLE")

	// ── Trading ──
	setFloat64(&cfg.Trading.Bankroll, "EDGEBOT_TRADING_BANKROLL")
	setFloat64(&cfg.Trading.Confidence, "EDGEBOT_TRADING_CONFIDENCE")
	setFloat64(&cfg.Trading.MaxKellyFraction, "EDGEBOT_TRADING_MAX_KELLY_FRACTION")
	setFloat64(&cfg.Trading.Volatility, "EDGEBOT_TRADING_VOLATILITY")
	setFloat64(&cfg.Trading.RiskFreeRate, "EDGEBOT_TRADING_RISK_FREE_RATE")
	setFloat64(&cfg.Trading.Drift, "EDGEBOT_TRADING_DRIFT")
	setBool(&cfg.Trading.DemoMode, "EDGEBOT_TRADING_DEMO_MODE")
	setBool(&cfg.Trading.AutoScan, "EDGEBOT_TRADING_AUTO_SCAN")
	setDuration(&cfg.Trading.ScanInterval, "EDGEBOT_TRADING_SCAN_INTERVAL")
	setDuration(&cfg.Trading.RefreshInterval, "EDGEBOT_TRADING_REFRESH_INTERVAL")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxSinglePosition, "EDGEBOT_RISK_MAX_SINGLE_POSITION")
	setFloat64(&cfg.Risk.MaxCategoryConcentration, "EDGEBOT_RISK_MAX_CATEGORY_CONCENTRATION")
	setFloat64(&cfg.Risk.LiquidityThreshold, "EDGEBOT_RISK_LIQUIDITY_THRESHOLD")
	setFloat64(&cfg.Risk.TimeDecayDays, "EDGEBOT_RISK_TIME_DECAY_DAYS")
	setFloat64(&cfg.Risk.PriceImpactLimit, "EDGEBOT_RISK_PRICE_IMPACT_LIMIT")
	setFloat64(&cfg.Risk.CorrelationLimit, "EDGEBOT_RISK_CORRELATION_LIMIT")
	setFloat64(&cfg.Risk.VolatilityLimit, "EDGEBOT_RISK_VOLATILITY_LIMIT")
	setFloat64(&cfg.Risk.MaxRiskScore, "EDGEBOT_RISK_MAX_RISK_SCORE")
	setFloat64(&cfg.Risk.DailyLossLimit, "EDGEBOT_RISK_DAILY_LOSS_LIMIT")
	setInt(&cfg.Risk.ConsecutiveLosses, "EDGEBOT_RISK_CONSECUTIVE_LOSSES")
	setFloat64(&cfg.Risk.DrawdownLimit, "EDGEBOT_RISK_DRAWDOWN_LIMIT")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "EDGEBOT_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "EDGEBOT_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "EDGEBOT_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "EDGEBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "EDGEBOT_SERVER_PORT")
	setStr(&cfg.Server.ApiKey, "EDGEBOT_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "EDGEBOT_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "EDGEBOT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "EDGEBOT_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "EDGEBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "EDGEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "EDGEBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "EDGEBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "EDGEBOT_MODE")
	setStr(&cfg.LogLevel, "EDGEBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
