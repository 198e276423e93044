package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load builds the configuration in three layers: built-in defaults, an
// optional TOML file, and SYNTHARB_* environment variable overrides. A .env
// file in the working directory is loaded first if present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setStr("SYNTHARB_MODE", &cfg.Mode)
	setStr("SYNTHARB_LOG_LEVEL", &cfg.LogLevel)

	setInt("SYNTHARB_ENGINE_MIN_SAMPLE_SIZE", &cfg.Engine.MinSampleSize)
	setFloat64("SYNTHARB_ENGINE_CONFIDENCE_LEVEL", &cfg.Engine.ConfidenceLevel)
	setFloat64("SYNTHARB_ENGINE_DECAY_FACTOR", &cfg.Engine.DecayFactor)

	setInt("SYNTHARB_BUFFER_MAX_SIZE", &cfg.Buffer.MaxBufferSize)
	setFloat64("SYNTHARB_BUFFER_CORRELATION_THRESHOLD", &cfg.Buffer.CorrelationThreshold)
	setDuration("SYNTHARB_BUFFER_PROCESSING_INTERVAL", &cfg.Buffer.ProcessingInterval)
	setInt("SYNTHARB_BUFFER_SCAN_PARALLELISM", &cfg.Buffer.ScanParallelism)

	setFloat64("SYNTHARB_DETECTOR_MIN_EXPECTED_RETURN", &cfg.Detector.MinExpectedReturn)
	setFloat64("SYNTHARB_DETECTOR_MAX_RISK_SCORE", &cfg.Detector.MaxRiskScore)
	setInt("SYNTHARB_DETECTOR_MAX_LEGS", &cfg.Detector.MaxLegs)
	setInt("SYNTHARB_DETECTOR_MAX_VENUES", &cfg.Detector.MaxVenues)

	setFloat64("SYNTHARB_TRACKER_MAX_POSITION_EXPOSURE", &cfg.Tracker.MaxPositionExposure)
	setFloat64("SYNTHARB_TRACKER_MAX_PORTFOLIO_EXPOSURE", &cfg.Tracker.MaxPortfolioExposure)
	setFloat64("SYNTHARB_TRACKER_VAR95_LIMIT", &cfg.Tracker.VaR95Limit)
	setDuration("SYNTHARB_TRACKER_RISK_UPDATE_INTERVAL", &cfg.Tracker.RiskUpdateInterval)
	setFloat64("SYNTHARB_TRACKER_CORRELATION_DAMPENING", &cfg.Tracker.CorrelationDampening)

	setBool("SYNTHARB_REDIS_ENABLED", &cfg.Redis.Enabled)
	setStr("SYNTHARB_REDIS_ADDR", &cfg.Redis.Addr)
	setStr("SYNTHARB_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("SYNTHARB_REDIS_DB", &cfg.Redis.DB)
	setInt("SYNTHARB_REDIS_POOL_SIZE", &cfg.Redis.PoolSize)
	setBool("SYNTHARB_REDIS_TLS", &cfg.Redis.TLSEnabled)

	setBool("SYNTHARB_POSTGRES_ENABLED", &cfg.Postgres.Enabled)
	setStr("SYNTHARB_POSTGRES_DSN", &cfg.Postgres.DSN)
	setStr("SYNTHARB_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("SYNTHARB_POSTGRES_PORT", &cfg.Postgres.Port)
	setStr("SYNTHARB_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setStr("SYNTHARB_POSTGRES_USER", &cfg.Postgres.User)
	setStr("SYNTHARB_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setStr("SYNTHARB_POSTGRES_SSL_MODE", &cfg.Postgres.SSLMode)

	setBool("SYNTHARB_S3_ENABLED", &cfg.S3.Enabled)
	setStr("SYNTHARB_S3_ENDPOINT", &cfg.S3.Endpoint)
	setStr("SYNTHARB_S3_REGION", &cfg.S3.Region)
	setStr("SYNTHARB_S3_BUCKET", &cfg.S3.Bucket)
	setStr("SYNTHARB_S3_ACCESS_KEY", &cfg.S3.AccessKey)
	setStr("SYNTHARB_S3_SECRET_KEY", &cfg.S3.SecretKey)
	setBool("SYNTHARB_S3_FORCE_PATH_STYLE", &cfg.S3.ForcePathStyle)

	setStr("SYNTHARB_TELEGRAM_TOKEN", &cfg.Notify.TelegramToken)
	setStr("SYNTHARB_TELEGRAM_CHAT_ID", &cfg.Notify.TelegramChatID)
	setStr("SYNTHARB_WEBHOOK_URL", &cfg.Notify.WebhookURL)
	setStr("SYNTHARB_WEBHOOK_SECRET", &cfg.Notify.WebhookSecret)

	setBool("SYNTHARB_FEED_ENABLED", &cfg.Feed.Enabled)
	setStr("SYNTHARB_FEED_URL", &cfg.Feed.URL)
}

func setStr(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *duration) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
