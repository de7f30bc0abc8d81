package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"stockfetch/internal/fetcher"
	"stockfetch/internal/logging"
	"stockfetch/internal/output"
	"stockfetch/internal/pipeline"
	"stockfetch/internal/ratelimit"
)

// EnvPrefix is prepended to every environment variable, e.g.
// STOCKFETCH_PIPELINE_MAX_CONCURRENCY.
const EnvPrefix = "STOCKFETCH"

// PipelineConfig holds batch tuning.
type PipelineConfig struct {
	MaxConcurrency     int           `mapstructure:"max_concurrency"`
	MaxRetries         int           `mapstructure:"max_retries"`
	MinBackoff         time.Duration `mapstructure:"min_backoff"`
	MaxBackoff         time.Duration `mapstructure:"max_backoff"`
	CheckpointInterval int           `mapstructure:"checkpoint_interval"`
	AttemptTimeout     time.Duration `mapstructure:"attempt_timeout"`

	// ClassifyErrors stops retrying errors known to be permanent (404,
	// other 4xx, validation). Off by default: every error is retried.
	ClassifyErrors bool `mapstructure:"classify_errors"`
}

// ProgressConfig selects where completed symbols are recorded.
type ProgressConfig struct {
	Backend       string `mapstructure:"backend"`
	Path          string `mapstructure:"path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisKey      string `mapstructure:"redis_key"`
	SQLitePath    string `mapstructure:"sqlite_path"`
}

// OutputConfig controls result files.
type OutputConfig struct {
	Dir     string `mapstructure:"dir"`
	Prefix  string `mapstructure:"prefix"`
	Format  string `mapstructure:"format"`
	Summary bool   `mapstructure:"summary"`
}

// TranslateConfig controls description translation.
type TranslateConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Source  string `mapstructure:"source"`
	Target  string `mapstructure:"target"`
	BaseURL string `mapstructure:"base_url"`
}

// RateLimitConfig holds requests per second per upstream. Zero disables
// the limit.
type RateLimitConfig struct {
	Yahoo        float64 `mapstructure:"yahoo"`
	Alphavantage float64 `mapstructure:"alphavantage"`
	Translate    float64 `mapstructure:"translate"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	File   string `mapstructure:"file"`
}

// Config holds all configuration for stockfetch.
type Config struct {
	// Source is the upstream for profiles: yahoo or alphavantage.
	Source string `mapstructure:"source"`

	// Symbols is the path of the ticker list, one per line.
	Symbols string `mapstructure:"symbols"`
	Limit   int    `mapstructure:"limit"`

	AlphavantageAPIKey string `mapstructure:"alphavantage_api_key"`

	// Base URLs for API endpoints (configurable for testing)
	YahooBaseURL        string `mapstructure:"yahoo_base_url"`
	YahooListingURL     string `mapstructure:"yahoo_listing_url"`
	AlphavantageBaseURL string `mapstructure:"alphavantage_base_url"`

	UserAgent      string        `mapstructure:"user_agent"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	RequiredReturn float64       `mapstructure:"required_return"`

	// MetricsAddr serves /metrics when set, e.g. ":9090".
	MetricsAddr string `mapstructure:"metrics_addr"`

	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Output    OutputConfig    `mapstructure:"output"`
	Translate TranslateConfig `mapstructure:"translate"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"source":          "source",
	"symbols":         "symbols",
	"limit":           "limit",
	"concurrency":     "pipeline.max_concurrency",
	"retries":         "pipeline.max_retries",
	"min-backoff":     "pipeline.min_backoff",
	"max-backoff":     "pipeline.max_backoff",
	"checkpoint":      "pipeline.checkpoint_interval",
	"attempt-timeout": "pipeline.attempt_timeout",
	"classify-errors": "pipeline.classify_errors",
	"progress":        "progress.path",
	"backend":         "progress.backend",
	"redis-addr":      "progress.redis_addr",
	"sqlite-path":     "progress.sqlite_path",
	"output-dir":      "output.dir",
	"prefix":          "output.prefix",
	"format":          "output.format",
	"translate":       "translate.enabled",
	"target-lang":     "translate.target",
	"metrics-addr":    "metrics_addr",
	"log-level":       "log.level",
	"log-pretty":      "log.pretty",
	"log-file":        "log.file",
}

func setDefaults(v *viper.Viper) {
	p := pipeline.DefaultConfig()
	rates := ratelimit.DefaultRates()

	v.SetDefault("source", "yahoo")
	v.SetDefault("symbols", "")
	v.SetDefault("limit", 0)
	v.SetDefault("alphavantage_api_key", "")
	v.SetDefault("yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("yahoo_listing_url", "https://finance.yahoo.com")
	v.SetDefault("alphavantage_base_url", "https://www.alphavantage.co/query")
	v.SetDefault("user_agent", fetcher.DefaultUserAgent)
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("required_return", 0.1)
	v.SetDefault("metrics_addr", "")

	v.SetDefault("pipeline.max_concurrency", p.MaxConcurrency)
	v.SetDefault("pipeline.max_retries", p.MaxRetries)
	v.SetDefault("pipeline.min_backoff", p.MinBackoff)
	v.SetDefault("pipeline.max_backoff", p.MaxBackoff)
	v.SetDefault("pipeline.checkpoint_interval", p.CheckpointInterval)
	v.SetDefault("pipeline.attempt_timeout", p.AttemptTimeout)
	v.SetDefault("pipeline.classify_errors", false)

	v.SetDefault("progress.backend", "file")
	v.SetDefault("progress.path", "progress.json")
	v.SetDefault("progress.redis_addr", "")
	v.SetDefault("progress.redis_password", "")
	v.SetDefault("progress.redis_db", 0)
	v.SetDefault("progress.redis_key", "")
	v.SetDefault("progress.sqlite_path", "progress.db")

	v.SetDefault("output.dir", "data")
	v.SetDefault("output.prefix", "stock_data")
	v.SetDefault("output.format", string(output.FormatText))
	v.SetDefault("output.summary", true)

	v.SetDefault("translate.enabled", false)
	v.SetDefault("translate.source", "en")
	v.SetDefault("translate.target", "ko")
	v.SetDefault("translate.base_url", "https://translate.googleapis.com")

	v.SetDefault("rate_limit.yahoo", rates[ratelimit.APIYahoo])
	v.SetDefault("rate_limit.alphavantage", rates[ratelimit.APIAlphaVantage])
	v.SetDefault("rate_limit.translate", rates[ratelimit.APITranslate])

	v.SetDefault("log.level", string(logging.LevelInfo))
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")
}

// Load reads configuration from defaults, an optional config file,
// environment variables and flags, in increasing order of precedence.
//
// Environment variables use the STOCKFETCH_ prefix with dots replaced by
// underscores (STOCKFETCH_PROGRESS_BACKEND). The API key is also read from
// the bare ALPHAVANTAGE_API_KEY.
//
// flags may be nil. A "config" flag, when present and set, names the
// config file explicitly.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Set up environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("alphavantage_api_key", EnvPrefix+"_ALPHAVANTAGE_API_KEY", "ALPHAVANTAGE_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	explicit := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Changed {
			explicit = f.Value.String()
		}
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.stockfetch")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks required and enumerated settings.
func (c *Config) Validate() error {
	var missing []string

	switch c.Source {
	case "yahoo":
	case "alphavantage":
		if c.AlphavantageAPIKey == "" {
			missing = append(missing, "ALPHAVANTAGE_API_KEY")
		}
	default:
		return fmt.Errorf("invalid configuration: source must be yahoo or alphavantage, got %q", c.Source)
	}

	switch c.Progress.Backend {
	case "file":
		if c.Progress.Path == "" {
			missing = append(missing, "progress.path")
		}
	case "redis":
		if c.Progress.RedisAddr == "" {
			missing = append(missing, "progress.redis_addr")
		}
	case "sqlite":
		if c.Progress.SQLitePath == "" {
			missing = append(missing, "progress.sqlite_path")
		}
	default:
		return fmt.Errorf("invalid configuration: progress.backend must be file, redis or sqlite, got %q", c.Progress.Backend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Limit < 0 {
		return fmt.Errorf("invalid configuration: limit must not be negative, got %d", c.Limit)
	}
	if err := c.PipelineConfig().Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// PipelineConfig converts the pipeline section.
func (c *Config) PipelineConfig() pipeline.Config {
	pc := pipeline.Config{
		MaxConcurrency:     c.Pipeline.MaxConcurrency,
		MaxRetries:         c.Pipeline.MaxRetries,
		MinBackoff:         c.Pipeline.MinBackoff,
		MaxBackoff:         c.Pipeline.MaxBackoff,
		CheckpointInterval: c.Pipeline.CheckpointInterval,
		AttemptTimeout:     c.Pipeline.AttemptTimeout,
	}
	if c.Pipeline.ClassifyErrors {
		pc.Classify = fetcher.IsRetryable
	}
	return pc
}

// Rates returns the per-API limits.
func (c *Config) Rates() map[ratelimit.API]float64 {
	return map[ratelimit.API]float64{
		ratelimit.APIYahoo:        c.RateLimit.Yahoo,
		ratelimit.APIAlphaVantage: c.RateLimit.Alphavantage,
		ratelimit.APITranslate:    c.RateLimit.Translate,
	}
}

// HTTPOptions returns the shared client settings.
func (c *Config) HTTPOptions() fetcher.Options {
	return fetcher.Options{
		UserAgent: c.UserAgent,
		Timeout:   c.HTTPTimeout,
	}
}

// Logging returns the zerolog settings.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	cfg.File = c.Log.File
	return cfg
}

// ProgressKey is the Redis hash holding progress for the configured source.
func (c *Config) ProgressKey() string {
	if c.Progress.RedisKey != "" {
		return c.Progress.RedisKey
	}
	return fetcher.Key(c.Source, "progress")
}
