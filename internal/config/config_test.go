package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceLens/internal/classifier"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 30, cfg.Aggregation.WindowDays)
	assert.Equal(t, 100, cfg.Aggregation.Limit)
	assert.Equal(t, 0.4, cfg.Aggregation.OutlierThreshold)
	assert.Equal(t, 4, cfg.Aggregation.MaxConcurrency)
	assert.Equal(t, 2*time.Second, cfg.Gemini.MinInterval)
	assert.Equal(t, 30*time.Second, cfg.Gemini.RateLimitBackoff)
	assert.Equal(t, 50, cfg.Gemini.CacheSize)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "₹", cfg.Display.CurrencySymbol)
	require.NoError(t, cfg.Validate())

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, classifier.DefaultPolicy, p)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: postgres
  postgres_dsn: postgres://localhost/prices
aggregation:
  window_days: 14
  status_policy: fine
gemini:
  timeout: 5s
catalog:
  products:
    - id: milk
      name: Milk
      unit: 1L
      base_price: 56
`)
	t.Setenv("WINDOW_DAYS", "7")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, 7, cfg.Aggregation.WindowDays, "env overrides yaml")
	assert.Equal(t, 5*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, "token", cfg.Telegram.BotToken)
	require.Len(t, cfg.Catalog.Products, 1)
	assert.Equal(t, 56.0, cfg.Catalog.Products[0].BasePrice)
	require.NoError(t, cfg.Validate())

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, "fine", p.Name)
}

func TestLoadZeroWindowDisablesRecency(t *testing.T) {
	path := writeConfig(t, `
aggregation:
  window_days: 0
  limit: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Aggregation.WindowDays)
	assert.Equal(t, 0, cfg.Aggregation.Limit)
	require.NoError(t, cfg.Validate())

	t.Setenv("WINDOW_DAYS", "0")
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Aggregation.WindowDays, "env can disable the window")
	assert.Equal(t, 100, cfg.Aggregation.Limit)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "storage: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, "storage.driver"},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }, "postgres_dsn"},
		{"http without url", func(c *Config) { c.Storage.Driver = DriverHTTP }, "http_base_url"},
		{"bad outlier threshold", func(c *Config) { c.Aggregation.OutlierThreshold = -1 }, "outlier_threshold"},
		{"bad status threshold", func(c *Config) { c.Aggregation.StatusThreshold = 1.5 }, "status_threshold"},
		{"unknown policy", func(c *Config) { c.Aggregation.StatusPolicy = "strict" }, "unknown status policy"},
		{"negative window", func(c *Config) { c.Aggregation.WindowDays = -1 }, "window_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidateBot(t *testing.T) {
	cfg := &Config{}
	assert.ErrorContains(t, cfg.ValidateBot(), "bot_token")
	cfg.Telegram.BotToken = "t"
	assert.ErrorContains(t, cfg.ValidateBot(), "chat_id")
	cfg.Telegram.ChatID = "1"
	assert.NoError(t, cfg.ValidateBot())
}
