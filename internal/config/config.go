package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"PriceLens/internal/classifier"
	"PriceLens/internal/model"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverHTTP     = "http"
)

// Config holds all application configuration.
type Config struct {
	Storage struct {
		Driver      string `yaml:"driver"`
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
		HTTPBaseURL string `yaml:"http_base_url"`
		HTTPAPIKey  string `yaml:"http_api_key"`
		MaxRetries  int    `yaml:"max_retries"`
	} `yaml:"storage"`
	Aggregation struct {
		WindowDays       int     `yaml:"window_days"`
		Limit            int     `yaml:"limit"`
		OutlierThreshold float64 `yaml:"outlier_threshold"`
		StatusPolicy     string  `yaml:"status_policy"`
		StatusThreshold  float64 `yaml:"status_threshold"`
		MaxConcurrency   int     `yaml:"max_concurrency"`
	} `yaml:"aggregation"`
	Gemini struct {
		APIKey           string        `yaml:"api_key"`
		Model            string        `yaml:"model"`
		Timeout          time.Duration `yaml:"timeout"`
		MinInterval      time.Duration `yaml:"min_interval"`
		RateLimitBackoff time.Duration `yaml:"rate_limit_backoff"`
		CacheSize        int           `yaml:"cache_size"`
	} `yaml:"gemini"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		APIBase  string `yaml:"api_base"`
	} `yaml:"telegram"`
	Schedule struct {
		DigestCron  string `yaml:"digest_cron"`
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Catalog struct {
		StateFile string          `yaml:"state_file"`
		Products  []model.Product `yaml:"products"`
	} `yaml:"catalog"`
	Display struct {
		CurrencySymbol string `yaml:"currency_symbol"`
	} `yaml:"display"`
	Proxy string `yaml:"proxy"`
}

// Load reads an optional .env file and the YAML config, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := newConfig()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// newConfig seeds the settings where zero is a meaningful value, so an
// explicit 0 in YAML or the environment survives applyDefaults.
func newConfig() *Config {
	cfg := &Config{}
	cfg.Aggregation.WindowDays = 30 // 0 aggregates every report ever made
	cfg.Aggregation.Limit = 100     // 0 removes the cap
	return cfg
}

func (c *Config) applyEnv() {
	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Storage.SQLitePath, "SQLITE_PATH")
	setString(&c.Storage.PostgresDSN, "DATABASE_URL")
	setString(&c.Storage.HTTPBaseURL, "DOCSTORE_URL")
	setString(&c.Storage.HTTPAPIKey, "DOCSTORE_API_KEY")
	setInt(&c.Aggregation.WindowDays, "WINDOW_DAYS")
	setInt(&c.Aggregation.Limit, "AGGREGATION_LIMIT")
	setString(&c.Aggregation.StatusPolicy, "STATUS_POLICY")
	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Gemini.Model, "GEMINI_MODEL")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.Schedule.DigestCron, "CRON_DIGEST")
	setString(&c.Schedule.RefreshCron, "CRON_REFRESH")
	setString(&c.Catalog.StateFile, "CATALOG_STATE_FILE")
	setString(&c.Display.CurrencySymbol, "CURRENCY_SYMBOL")
	setString(&c.Proxy, "HTTPS_PROXY")
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/pricelens.db"
	}
	if c.Storage.MaxRetries == 0 {
		c.Storage.MaxRetries = 3
	}
	if c.Aggregation.OutlierThreshold == 0 {
		c.Aggregation.OutlierThreshold = 0.4
	}
	if c.Aggregation.StatusPolicy == "" {
		c.Aggregation.StatusPolicy = classifier.DefaultPolicy.Name
	}
	if c.Aggregation.MaxConcurrency == 0 {
		c.Aggregation.MaxConcurrency = 4
	}
	if c.Gemini.Timeout == 0 {
		c.Gemini.Timeout = 15 * time.Second
	}
	if c.Gemini.MinInterval == 0 {
		c.Gemini.MinInterval = 2 * time.Second
	}
	if c.Gemini.RateLimitBackoff == 0 {
		c.Gemini.RateLimitBackoff = 30 * time.Second
	}
	if c.Gemini.CacheSize == 0 {
		c.Gemini.CacheSize = 50
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 10 * time.Minute
	}
	if c.Schedule.DigestCron == "" {
		c.Schedule.DigestCron = "0 0 8 * * *"
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 0 */6 * * *"
	}
	if c.Catalog.StateFile == "" {
		c.Catalog.StateFile = "data/catalog_state.json"
	}
	if c.Display.CurrencySymbol == "" {
		c.Display.CurrencySymbol = "₹"
	}
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	case DriverHTTP:
		if c.Storage.HTTPBaseURL == "" {
			return fmt.Errorf("storage.http_base_url is required for the http driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not one of memory, sqlite, postgres, http", c.Storage.Driver)
	}
	if c.Storage.MaxRetries < 1 {
		return fmt.Errorf("storage.max_retries must be at least 1")
	}

	a := c.Aggregation
	if a.WindowDays < 0 {
		return fmt.Errorf("aggregation.window_days must not be negative")
	}
	if a.Limit < 0 {
		return fmt.Errorf("aggregation.limit must not be negative")
	}
	if a.OutlierThreshold <= 0 {
		return fmt.Errorf("aggregation.outlier_threshold must be positive")
	}
	if a.StatusThreshold < 0 || a.StatusThreshold >= 1 {
		return fmt.Errorf("aggregation.status_threshold must be in [0, 1)")
	}
	if a.MaxConcurrency < 1 {
		return fmt.Errorf("aggregation.max_concurrency must be at least 1")
	}
	if _, err := c.Policy(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Catalog.Products))
	for _, p := range c.Catalog.Products {
		if p.ID == "" {
			return fmt.Errorf("catalog.products: product id is required")
		}
		if seen[p.ID] {
			return fmt.Errorf("catalog.products: duplicate product %q", p.ID)
		}
		if p.BasePrice < 0 {
			return fmt.Errorf("catalog.products: %s base_price must not be negative", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// ValidateBot checks the extra settings the long-running bot needs.
func (c *Config) ValidateBot() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}

// Policy returns the configured price-status policy.
func (c *Config) Policy() (classifier.Policy, error) {
	return classifier.PolicyByName(c.Aggregation.StatusPolicy, c.Aggregation.StatusThreshold)
}

func setString(dst *string, key string) {
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
