package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPricesURL is the public endpoint serving daily price records.
const DefaultPricesURL = "https://seahorse-app-ehbvv.ondigitalocean.app/prices"

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName            string        `mapstructure:"app_name"`
	Env                string        `mapstructure:"app_env"`
	LogLevel           string        `mapstructure:"log_level"`
	PricesURL          string        `mapstructure:"prices_url"`
	SourcesFile        string        `mapstructure:"sources_file"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
	ConsistencyChecks  int           `mapstructure:"consistency_checks"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "ibex-prices")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("prices_url", DefaultPricesURL)
	v.SetDefault("sources_file", "")
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("consistency_checks", 0)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	return &cfg, nil
}

func (c *Config) validate() error {
	c.PricesURL = strings.TrimSpace(c.PricesURL)
	c.SourcesFile = strings.TrimSpace(c.SourcesFile)

	if c.SourcesFile == "" {
		u, err := url.Parse(c.PricesURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid prices_url %q (must be an absolute URL)", c.PricesURL)
		}
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	if c.ConsistencyChecks < 0 {
		return fmt.Errorf("invalid consistency_checks (must not be negative)")
	}
	return nil
}
