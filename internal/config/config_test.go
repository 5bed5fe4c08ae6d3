package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.Trading.Bankroll = 0
	cfg.Risk.DrawdownLimit = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "bankroll")
	assert.Contains(t, err.Error(), "drawdown_limit")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "redis: addr")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EDGEBOT_TRADING_BANKROLL", "25000")
	t.Setenv("EDGEBOT_MODE", "scan")
	t.Setenv("EDGEBOT_RISK_CONSECUTIVE_LOSSES", "3")
	t.Setenv("EDGEBOT_TRADING_DEMO_MODE", "false")
	t.Setenv("EDGEBOT_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 25000.0, cfg.Trading.Bankroll)
	assert.Equal(t, "scan", cfg.Mode)
	assert.Equal(t, 3, cfg.Risk.ConsecutiveLosses)
	assert.False(t, cfg.Trading.DemoMode)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestEnvOverridesIgnoreUnparseable(t *testing.T) {
	t.Setenv("EDGEBOT_TRADING_BANKROLL", "lots")

	cfg := Defaults()
	applyEnvOverrides(&cfg)
	assert.Equal(t, 10_000.0, cfg.Trading.Bankroll)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.S3.SecretKey = "secret"
	cfg.Notify.TelegramToken = "token"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Untouched originals.
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
	// Empty fields stay empty rather than becoming "***".
	assert.Empty(t, red.Redis.Password)
}
