package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/syntharb/syntharb/internal/blob/s3"
	"github.com/syntharb/syntharb/internal/cache/redis"
	"github.com/syntharb/syntharb/internal/config"
	"github.com/syntharb/syntharb/internal/domain"
	"github.com/syntharb/syntharb/internal/events"
	"github.com/syntharb/syntharb/internal/notify"
	"github.com/syntharb/syntharb/internal/stats"
	"github.com/syntharb/syntharb/internal/store/postgres"
	"github.com/syntharb/syntharb/internal/stream"

	"github.com/syntharb/syntharb/internal/arbitrage"
	"github.com/syntharb/syntharb/internal/position"
)

// Dependencies bundles every component the application modes need to operate.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Engine     *stats.Engine
	Detector   *arbitrage.Detector
	Buffer     *stream.Buffer
	Tracker    *position.Tracker
	Dispatcher *events.Dispatcher

	// Optional adapters; nil when the corresponding backend is disabled.
	SignalBus     domain.SignalBus
	PositionStore domain.PositionStore
	AlertStore    domain.AlertStore
	Archiver      domain.PortfolioArchiver

	Notifier *notify.Notifier
}

// Wire constructs all concrete implementations from the given configuration
// and returns them together with a cleanup function that should be called on
// shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (optional persistence) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.MaxConns,
			MinConns: cfg.Postgres.MinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}

		pool := pgClient.Pool()
		deps.PositionStore = postgres.NewPositionStore(pool)
		deps.AlertStore = postgres.NewAlertStore(pool)
	}

	// --- Redis (optional signal bus) ---
	if cfg.Redis.Enabled {
		bus, err := redis.New(ctx, redis.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = bus.Close() })

		deps.SignalBus = bus
	}

	// --- S3 blob storage (optional portfolio archive) ---
	if cfg.S3.Enabled {
		writer, err := s3blob.NewWriter(ctx, s3blob.Config{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = s3blob.NewArchiver(writer)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.WebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(
			cfg.Notify.WebhookURL,
			cfg.Notify.WebhookSecret,
		))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Core components ---
	deps.Dispatcher = events.NewDispatcher(logger)

	deps.Engine = stats.NewEngine(stats.EngineConfig{
		MinSampleSize:   cfg.Engine.MinSampleSize,
		ConfidenceLevel: cfg.Engine.ConfidenceLevel,
		DecayFactor:     cfg.Engine.DecayFactor,
	}, logger)

	deps.Detector = arbitrage.NewDetector(arbitrage.DetectorConfig{
		MinExpectedReturn: cfg.Detector.MinExpectedReturn,
		MaxRiskScore:      cfg.Detector.MaxRiskScore,
		MaxLegs:           cfg.Detector.MaxLegs,
		MaxVenues:         cfg.Detector.MaxVenues,
	}, logger)

	deps.Buffer = stream.NewBuffer(stream.BufferConfig{
		MaxBufferSize:        cfg.Buffer.MaxBufferSize,
		EnabledPeriods:       cfg.Buffer.EnabledPeriods,
		CorrelationThreshold: cfg.Buffer.CorrelationThreshold,
		ProcessingInterval:   cfg.Buffer.ProcessingInterval.Duration,
		ScanParallelism:      cfg.Buffer.ScanParallelism,
	}, deps.Detector, deps.Dispatcher, logger)

	deps.Tracker = position.NewTracker(position.TrackerConfig{
		MaxPositionExposure:  cfg.Tracker.MaxPositionExposure,
		MaxPortfolioExposure: cfg.Tracker.MaxPortfolioExposure,
		VaR95Limit:           cfg.Tracker.VaR95Limit,
		RiskUpdateInterval:   cfg.Tracker.RiskUpdateInterval.Duration,
		CorrelationDampening: cfg.Tracker.CorrelationDampening,
	}, deps.Dispatcher, deps.PositionStore, deps.AlertStore, logger)

	// Mirror every event out of process when a bus is available.
	if deps.SignalBus != nil {
		mirror := events.NewMirror(deps.SignalBus, logger)
		deps.Dispatcher.Subscribe("redis-mirror", mirror.Listener(ctx))
	}

	return deps, cleanup, nil
}
