// Package stream implements the bounded market-stream buffer and its
// periodic scan scheduler. The buffer holds the latest snapshot per event
// under a capacity bound, and each scan cycle pairs up buffered periods and
// delegates detection to the arbitrage detector.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syntharb/syntharb/internal/arbitrage"
	"github.com/syntharb/syntharb/internal/domain"
	"github.com/syntharb/syntharb/internal/events"
	"github.com/syntharb/syntharb/internal/sched"
)

// evictFraction is the share of buffered entries dropped (oldest first) when
// an insert hits the capacity bound. At least one entry is always evicted.
const evictFraction = 0.10

// immediateHorizon is how close an optimal execution instant must be for an
// opportunity to be flagged as immediate.
const immediateHorizon = time.Minute

// BufferConfig holds the stream buffer parameters.
type BufferConfig struct {
	MaxBufferSize        int
	EnabledPeriods       []string
	CorrelationThreshold float64
	ProcessingInterval   time.Duration
	ScanParallelism      int
}

// DefaultBufferConfig returns the standard buffer parameters.
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		MaxBufferSize: 1000,
		EnabledPeriods: []string{
			"first-quarter", "second-quarter", "third-quarter", "fourth-quarter",
			"first-half", "second-half", "full-game",
		},
		CorrelationThreshold: 0.3,
		ProcessingInterval:   50 * time.Millisecond,
		ScanParallelism:      4,
	}
}

// Buffer ingests per-event market streams under a capacity bound and caches
// the period-pair opportunities produced by the latest scan. It owns its
// maps exclusively; all access goes through its methods.
type Buffer struct {
	cfg      BufferConfig
	detector *arbitrage.Detector
	bus      *events.Dispatcher
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	streams map[string]domain.MarketStream
	periods map[string]bool // enabled-period set

	oppMu         sync.RWMutex
	opportunities []domain.PeriodPairOpportunity

	task *sched.Task
}

// NewBuffer creates a Buffer wired to the given detector and dispatcher.
func NewBuffer(cfg BufferConfig, detector *arbitrage.Detector, bus *events.Dispatcher, logger *slog.Logger) *Buffer {
	if cfg.MaxBufferSize <= 0 {
		cfg.MaxBufferSize = 1000
	}
	if cfg.ProcessingInterval <= 0 {
		cfg.ProcessingInterval = 50 * time.Millisecond
	}
	if cfg.ScanParallelism <= 0 {
		cfg.ScanParallelism = 4
	}
	enabled := make(map[string]bool, len(cfg.EnabledPeriods))
	for _, p := range cfg.EnabledPeriods {
		enabled[p] = true
	}

	b := &Buffer{
		cfg:      cfg,
		detector: detector,
		bus:      bus,
		logger:   logger.With(slog.String("component", "stream_buffer")),
		now:      time.Now,
		streams:  make(map[string]domain.MarketStream),
		periods:  enabled,
	}
	b.task = sched.New("scan", cfg.ProcessingInterval, func(ctx context.Context) {
		if _, err := b.ScanForOpportunities(ctx); err != nil {
			b.logger.Warn("scheduled scan failed", slog.String("error", err.Error()))
		}
	}, logger)
	return b
}

// Ingest validates and buffers a market stream, replacing any prior stream
// for the same event key. On error no state changes. When the buffer is at
// capacity and the key is new, the oldest 10% of entries (minimum one) are
// evicted by ingestion timestamp before the insert.
func (b *Buffer) Ingest(stream domain.MarketStream) error {
	if stream.EventID == "" || stream.Sport == "" {
		return fmt.Errorf("stream: ingest: missing event or sport key: %w", domain.ErrValidation)
	}
	if len(stream.Periods) == 0 {
		return fmt.Errorf("stream: ingest: no period data for event %q: %w", stream.EventID, domain.ErrValidation)
	}
	for tag := range stream.Periods {
		if !b.periods[tag] {
			return fmt.Errorf("stream: ingest: period %q is not enabled: %w", tag, domain.ErrValidation)
		}
	}
	if stream.IngestedAt.IsZero() {
		stream.IngestedAt = b.now()
	}

	b.mu.Lock()
	_, exists := b.streams[stream.EventID]
	if !exists && len(b.streams) >= b.cfg.MaxBufferSize {
		b.evictOldestLocked()
	}
	b.streams[stream.EventID] = stream
	b.mu.Unlock()

	b.bus.Emit(domain.MarketProcessed{
		EventID:   stream.EventID,
		Periods:   len(stream.Periods),
		Legs:      stream.LegCount(),
		Latency:   stream.SourceLatency,
		Timestamp: b.now(),
	})
	return nil
}

// evictOldestLocked drops the oldest 10% of buffered streams (at least one)
// by ingestion timestamp. Caller holds b.mu.
func (b *Buffer) evictOldestLocked() {
	n := int(float64(len(b.streams)) * evictFraction)
	if n < 1 {
		n = 1
	}

	type aged struct {
		key string
		at  time.Time
	}
	entries := make([]aged, 0, len(b.streams))
	for key, s := range b.streams {
		entries = append(entries, aged{key: key, at: s.IngestedAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
	for i := 0; i < n && i < len(entries); i++ {
		delete(b.streams, entries[i].key)
	}
	b.logger.Debug("evicted oldest streams", slog.Int("count", n), slog.Int("remaining", len(b.streams)))
}

// Size returns the number of buffered event streams.
func (b *Buffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.streams)
}

// ScanForOpportunities enumerates every buffered event's period pairs, runs
// detection per event in parallel, and refreshes the opportunity cache with
// results ranked by descending expected return. It has no side effect on
// buffer state and may run concurrently with Ingest. Detection failures are
// logged per event and do not abort the scan.
func (b *Buffer) ScanForOpportunities(ctx context.Context) ([]domain.PeriodPairOpportunity, error) {
	started := b.now()

	b.mu.RLock()
	snapshot := make([]domain.MarketStream, 0, len(b.streams))
	for _, s := range b.streams {
		snapshot = append(snapshot, s)
	}
	b.mu.RUnlock()

	var (
		aggMu sync.Mutex
		found []domain.PeriodPairOpportunity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.ScanParallelism)
	for _, s := range snapshot {
		s := s
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			opps, err := b.scanEvent(s)
			if err != nil {
				// One bad event must not abort the cycle.
				b.logger.Warn("event scan failed",
					slog.String("event_id", s.EventID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			if len(opps) == 0 {
				return nil
			}
			aggMu.Lock()
			found = append(found, opps...)
			aggMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("stream: scan: %w", err)
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Opportunity.Return.Percent > found[j].Opportunity.Return.Percent
	})

	b.oppMu.Lock()
	b.opportunities = found
	b.oppMu.Unlock()

	now := b.now()
	if len(found) > 0 {
		b.bus.Emit(domain.OpportunitiesDetected{
			Opportunities: found,
			ScanDuration:  now.Sub(started),
			Timestamp:     now,
		})
		for _, opp := range found {
			if opp.Window.Optimal.Sub(now) <= immediateHorizon {
				b.bus.Emit(domain.ImmediateOpportunity{Opportunity: opp, Timestamp: now})
			}
		}
	}
	return found, nil
}

// scanEvent runs detection over every unordered period pair of one event.
func (b *Buffer) scanEvent(s domain.MarketStream) ([]domain.PeriodPairOpportunity, error) {
	tags := s.PeriodTags()
	sort.Strings(tags)

	now := b.now()
	var result []domain.PeriodPairOpportunity
	for i := 0; i < len(tags); i++ {
		for j := i + 1; j < len(tags); j++ {
			periodA, periodB := tags[i], tags[j]
			profile := profileFor(periodA, periodB)
			corr := profile.Correlation
			if abs(corr) < b.cfg.CorrelationThreshold {
				continue
			}

			legs := make([]domain.MarketLeg, 0, len(s.Periods[periodA])+len(s.Periods[periodB]))
			legs = append(legs, s.Periods[periodA]...)
			legs = append(legs, s.Periods[periodB]...)
			if len(legs) == 0 {
				continue
			}

			opps, err := b.detector.FindOpportunities(legs)
			if err != nil {
				return nil, fmt.Errorf("detect %s/%s: %w", periodA, periodB, err)
			}

			window := domain.NewExecutionWindow(now, profile.Window)
			if window.Expired(now) {
				continue
			}
			for _, opp := range opps {
				result = append(result, domain.PeriodPairOpportunity{
					Opportunity: opp,
					PeriodA:     periodA,
					PeriodB:     periodB,
					Correlation: corr,
					TimeDecay:   decayCorrelation(corr),
					Window:      window,
				})
			}
		}
	}
	return result, nil
}

// RealTimeOpportunities returns cached opportunities whose optimal execution
// instant falls within the given horizon of now, soonest first. Expired
// windows are excluded.
func (b *Buffer) RealTimeOpportunities(within time.Duration) []domain.PeriodPairOpportunity {
	now := b.now()

	b.oppMu.RLock()
	defer b.oppMu.RUnlock()

	var out []domain.PeriodPairOpportunity
	for _, opp := range b.opportunities {
		if opp.Window.Expired(now) {
			continue
		}
		if opp.Window.Optimal.Sub(now) <= within {
			out = append(out, opp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Window.Optimal.Before(out[j].Window.Optimal)
	})
	return out
}

// OpportunitiesByPeriodPair returns cached, unexpired opportunities for the
// given period pair in either orientation.
func (b *Buffer) OpportunitiesByPeriodPair(periodA, periodB string) []domain.PeriodPairOpportunity {
	now := b.now()

	b.oppMu.RLock()
	defer b.oppMu.RUnlock()

	var out []domain.PeriodPairOpportunity
	for _, opp := range b.opportunities {
		if opp.Window.Expired(now) {
			continue
		}
		if (opp.PeriodA == periodA && opp.PeriodB == periodB) ||
			(opp.PeriodA == periodB && opp.PeriodB == periodA) {
			out = append(out, opp)
		}
	}
	return out
}

// Start begins the periodic scan cycle.
func (b *Buffer) Start(ctx context.Context) {
	b.task.Start(ctx)
}

// Stop halts scheduling; an in-flight scan completes first.
func (b *Buffer) Stop() {
	b.task.Stop()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
