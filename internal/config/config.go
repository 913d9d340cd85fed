// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pbaranau/offersnap/internal/scrape"
)

// Browser engine names accepted in configuration.
const (
	EngineChromedp = "chromedp"
	EngineColly    = "colly"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Browser BrowserConfig `mapstructure:"browser"`
	Loader  LoaderConfig  `mapstructure:"loader"`
	Locale  LocaleConfig  `mapstructure:"locale"`
	Sink    SinkConfig    `mapstructure:"sink"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Sites   []scrape.Site `mapstructure:"sites"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// BrowserConfig selects and tunes the page-session engine.
type BrowserConfig struct {
	Engine            string  `mapstructure:"engine"`
	UserAgent         string  `mapstructure:"user_agent"`
	NavTimeoutSeconds int     `mapstructure:"nav_timeout_seconds"`
	DomainQPS         float64 `mapstructure:"domain_qps"`
}

// LoaderConfig governs the per-page retry budget.
type LoaderConfig struct {
	BudgetSeconds int `mapstructure:"budget_seconds"`
}

// LocaleConfig carries the relative-day words used by the listing sites.
type LocaleConfig struct {
	TodayWord     string `mapstructure:"today_word"`
	YesterdayWord string `mapstructure:"yesterday_word"`
}

// SinkConfig selects snapshot destinations. DataDir is always used; the
// Postgres and GCS sinks are enabled when their settings are non-empty.
type SinkConfig struct {
	DataDir     string `mapstructure:"data_dir"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
}

// MetricsConfig enables the observability listener when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OFFERSNAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("browser.engine", EngineChromedp)
	v.SetDefault("browser.user_agent", "offersnap/0.1")
	v.SetDefault("browser.nav_timeout_seconds", 25)
	v.SetDefault("browser.domain_qps", 1.0)
	v.SetDefault("loader.budget_seconds", 120)
	v.SetDefault("locale.today_word", "today")
	v.SetDefault("locale.yesterday_word", "yesterday")
	v.SetDefault("sink.data_dir", "data")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Browser.Engine != EngineChromedp && c.Browser.Engine != EngineColly {
		return fmt.Errorf("browser.engine must be %q or %q", EngineChromedp, EngineColly)
	}
	if c.Browser.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	if c.Loader.BudgetSeconds <= 0 {
		return fmt.Errorf("loader.budget_seconds must be > 0")
	}
	if c.Sink.DataDir == "" {
		return fmt.Errorf("sink.data_dir must be set")
	}
	for i, site := range c.Sites {
		if site.Name == "" {
			return fmt.Errorf("sites[%d].name must be set", i)
		}
		if site.StartURL == "" {
			return fmt.Errorf("sites[%d].start_url must be set", i)
		}
		switch site.Pagination {
		case scrape.PaginationContent, scrape.PaginationHandle:
		default:
			return fmt.Errorf("sites[%d].pagination must be %q or %q",
				i, scrape.PaginationContent, scrape.PaginationHandle)
		}
		if site.Pagination == scrape.PaginationHandle && site.OffsetStep <= 0 {
			return fmt.Errorf("sites[%d].offset_step must be > 0 for handle pagination", i)
		}
	}
	return nil
}

// LoadBudget is the wall-clock retry budget granted to each page load.
func (c Config) LoadBudget() time.Duration {
	return time.Duration(c.Loader.BudgetSeconds) * time.Second
}

// NavTimeout is the per-navigation timeout for the browser engine.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSeconds) * time.Second
}
