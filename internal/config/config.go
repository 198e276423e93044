// Package config defines the top-level configuration for the synthetic
// arbitrage core and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SYNTHARB_* environment
// variables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Buffer   BufferConfig   `toml:"buffer"`
	Detector DetectorConfig `toml:"detector"`
	Tracker  TrackerConfig  `toml:"tracker"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Notify   NotifyConfig   `toml:"notify"`
	Feed     FeedConfig     `toml:"feed"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EngineConfig holds the covariance engine defaults.
type EngineConfig struct {
	MinSampleSize   int     `toml:"min_sample_size"`
	ConfidenceLevel float64 `toml:"confidence_level"`
	DecayFactor     float64 `toml:"decay_factor"`
}

// BufferConfig holds the stream buffer and scan scheduler parameters.
type BufferConfig struct {
	MaxBufferSize        int      `toml:"max_buffer_size"`
	EnabledPeriods       []string `toml:"enabled_periods"`
	CorrelationThreshold float64  `toml:"correlation_threshold"`
	ProcessingInterval   duration `toml:"processing_interval"`
	ScanParallelism      int      `toml:"scan_parallelism"`
}

// DetectorConfig holds the arbitrage detector thresholds.
type DetectorConfig struct {
	MinExpectedReturn float64 `toml:"min_expected_return"`
	MaxRiskScore      float64 `toml:"max_risk_score"`
	MaxLegs           int     `toml:"max_legs"`
	MaxVenues         int     `toml:"max_venues"`
}

// TrackerConfig holds the position tracker risk limits.
type TrackerConfig struct {
	MaxPositionExposure  float64  `toml:"max_position_exposure"`
	MaxPortfolioExposure float64  `toml:"max_portfolio_exposure"`
	VaR95Limit           float64  `toml:"var95_limit"`
	RiskUpdateInterval   duration `toml:"risk_update_interval"`
	CorrelationDampening float64  `toml:"correlation_dampening"`
}

// RedisConfig holds Redis connection parameters for the signal bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the position and
// alert history stores.
type PostgresConfig struct {
	Enabled  bool   `toml:"enabled"`
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"ssl_mode"`
	MaxConns int    `toml:"pool_max_conns"`
	MinConns int    `toml:"pool_min_conns"`
}

// S3Config holds S3-compatible object storage parameters for portfolio
// snapshot archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds alert delivery parameters.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	WebhookURL     string   `toml:"webhook_url"`
	WebhookSecret  string   `toml:"webhook_secret"`
	Events         []string `toml:"events"`
}

// FeedConfig holds the websocket ingestion adapter parameters.
type FeedConfig struct {
	Enabled      bool     `toml:"enabled"`
	URL          string   `toml:"url"`
	ReconnectMin duration `toml:"reconnect_min"`
	ReconnectMax duration `toml:"reconnect_max"`
}

// duration wraps time.Duration so TOML values like "50ms" parse directly.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Defaults returns the built-in configuration used as the base layer before
// file and environment overrides.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			MinSampleSize:   30,
			ConfidenceLevel: 0.95,
			DecayFactor:     0.94,
		},
		Buffer: BufferConfig{
			MaxBufferSize: 1000,
			EnabledPeriods: []string{
				"first-quarter", "second-quarter", "third-quarter", "fourth-quarter",
				"first-half", "second-half", "full-game",
			},
			CorrelationThreshold: 0.3,
			ProcessingInterval:   duration{50 * time.Millisecond},
			ScanParallelism:      4,
		},
		Detector: DetectorConfig{
			MinExpectedReturn: 0.005,
			MaxRiskScore:      0.8,
			MaxLegs:           6,
			MaxVenues:         10,
		},
		Tracker: TrackerConfig{
			MaxPositionExposure:  25_000,
			MaxPortfolioExposure: 100_000,
			VaR95Limit:           10_000,
			RiskUpdateInterval:   duration{time.Second},
			CorrelationDampening: 0.7,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Postgres: PostgresConfig{
			Port:     5432,
			SSLMode:  "disable",
			MaxConns: 4,
			MinConns: 1,
		},
		S3: S3Config{
			Region: "us-east-1",
			UseSSL: true,
		},
		Feed: FeedConfig{
			ReconnectMin: duration{time.Second},
			ReconnectMax: duration{30 * time.Second},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"monitor": true,
	"track":   true,
	"full":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for consistency and returns one combined
// error listing every failure.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, track, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Engine.MinSampleSize < 2 {
		errs = append(errs, "engine: min_sample_size must be >= 2")
	}
	if c.Engine.DecayFactor <= 0 || c.Engine.DecayFactor >= 1 {
		errs = append(errs, "engine: decay_factor must be in (0, 1)")
	}

	if c.Buffer.MaxBufferSize < 1 {
		errs = append(errs, "buffer: max_buffer_size must be >= 1")
	}
	if len(c.Buffer.EnabledPeriods) == 0 {
		errs = append(errs, "buffer: enabled_periods must not be empty")
	}
	if c.Buffer.ProcessingInterval.Duration <= 0 {
		errs = append(errs, "buffer: processing_interval must be positive")
	}

	if c.Detector.MinExpectedReturn <= 0 {
		errs = append(errs, "detector: min_expected_return must be > 0")
	}
	if c.Detector.MaxVenues < 3 {
		errs = append(errs, "detector: max_venues must be >= 3")
	}

	if c.Tracker.MaxPositionExposure <= 0 {
		errs = append(errs, "tracker: max_position_exposure must be > 0")
	}
	if c.Tracker.MaxPortfolioExposure < c.Tracker.MaxPositionExposure {
		errs = append(errs, "tracker: max_portfolio_exposure must be >= max_position_exposure")
	}
	if c.Tracker.RiskUpdateInterval.Duration <= 0 {
		errs = append(errs, "tracker: risk_update_interval must be positive")
	}
	if c.Tracker.CorrelationDampening <= 0 || c.Tracker.CorrelationDampening > 1 {
		errs = append(errs, "tracker: correlation_dampening must be in (0, 1]")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
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

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	if c.Feed.Enabled && c.Feed.URL == "" {
		errs = append(errs, "feed: url must not be empty when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
