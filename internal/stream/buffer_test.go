package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/syntharb/syntharb/internal/arbitrage"
	"github.com/syntharb/syntharb/internal/domain"
	"github.com/syntharb/syntharb/internal/events"
)

var fixedNow = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBuffer(cfg BufferConfig, bus *events.Dispatcher) *Buffer {
	logger := discardLogger()
	detector := arbitrage.NewDetector(arbitrage.DefaultDetectorConfig(), logger)
	if bus == nil {
		bus = events.NewDispatcher(logger)
	}
	b := NewBuffer(cfg, detector, bus, logger)
	b.now = func() time.Time { return fixedNow }
	return b
}

func stream(eventID string, periods map[string][]domain.MarketLeg) domain.MarketStream {
	return domain.MarketStream{
		EventID:    eventID,
		Sport:      "basketball",
		Periods:    periods,
		Quality:    0.9,
		IngestedAt: fixedNow,
	}
}

func arbLegs(period string) []domain.MarketLeg {
	return []domain.MarketLeg{
		{
			Venue: "venue-a", EventID: "evt-1", Period: period,
			MarketType: domain.MarketTypeMoneyline, Price: 105,
			Volume: 80_000, UpdatedAt: fixedNow,
		},
		{
			Venue: "venue-b", EventID: "evt-1", Period: period,
			MarketType: domain.MarketTypeMoneyline, Price: -104,
			Volume: 60_000, UpdatedAt: fixedNow,
		},
	}
}

func TestIngest(t *testing.T) {
	t.Run("rejects missing keys", func(t *testing.T) {
		b := testBuffer(DefaultBufferConfig(), nil)
		err := b.Ingest(domain.MarketStream{Sport: "basketball", Periods: map[string][]domain.MarketLeg{"full-game": nil}})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation for missing event id", err)
		}
		err = b.Ingest(domain.MarketStream{EventID: "evt-1", Periods: map[string][]domain.MarketLeg{"full-game": nil}})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation for missing sport", err)
		}
		if b.Size() != 0 {
			t.Errorf("buffer size = %d after rejected ingests, want 0", b.Size())
		}
	})

	t.Run("rejects empty periods", func(t *testing.T) {
		b := testBuffer(DefaultBufferConfig(), nil)
		err := b.Ingest(stream("evt-1", map[string][]domain.MarketLeg{}))
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("rejects disabled period", func(t *testing.T) {
		b := testBuffer(DefaultBufferConfig(), nil)
		err := b.Ingest(stream("evt-1", map[string][]domain.MarketLeg{"overtime": arbLegs("overtime")}))
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation for disabled period", err)
		}
	})

	t.Run("replaces prior stream for the same event", func(t *testing.T) {
		b := testBuffer(DefaultBufferConfig(), nil)
		if err := b.Ingest(stream("evt-1", map[string][]domain.MarketLeg{"full-game": arbLegs("full-game")})); err != nil {
			t.Fatalf("first ingest: %v", err)
		}
		second := stream("evt-1", map[string][]domain.MarketLeg{"first-half": arbLegs("first-half")})
		if err := b.Ingest(second); err != nil {
			t.Fatalf("second ingest: %v", err)
		}
		if b.Size() != 1 {
			t.Fatalf("buffer size = %d, want 1", b.Size())
		}
		if _, ok := b.streams["evt-1"].Periods["first-half"]; !ok {
			t.Error("newer stream did not replace the older one")
		}
	})

	t.Run("emits market processed", func(t *testing.T) {
		logger := discardLogger()
		bus := events.NewDispatcher(logger)
		var mu sync.Mutex
		var got []domain.Event
		bus.Subscribe("capture", func(ev domain.Event) {
			mu.Lock()
			got = append(got, ev)
			mu.Unlock()
		})
		b := testBuffer(DefaultBufferConfig(), bus)
		if err := b.Ingest(stream("evt-1", map[string][]domain.MarketLeg{"full-game": arbLegs("full-game")})); err != nil {
			t.Fatalf("ingest: %v", err)
		}
		mu.Lock()
		defer mu.Unlock()
		if len(got) != 1 {
			t.Fatalf("got %d events, want 1", len(got))
		}
		ev, ok := got[0].(domain.MarketProcessed)
		if !ok {
			t.Fatalf("event type = %T, want MarketProcessed", got[0])
		}
		if ev.EventID != "evt-1" || ev.Periods != 1 || ev.Legs != 2 {
			t.Errorf("event = %+v", ev)
		}
	})
}

func TestEviction(t *testing.T) {
	cfg := DefaultBufferConfig()
	cfg.MaxBufferSize = 10
	b := testBuffer(cfg, nil)

	for i := 0; i < 10; i++ {
		s := stream(fmt.Sprintf("evt-%02d", i), map[string][]domain.MarketLeg{"full-game": arbLegs("full-game")})
		s.IngestedAt = fixedNow.Add(time.Duration(i) * time.Second)
		if err := b.Ingest(s); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}
	if b.Size() != 10 {
		t.Fatalf("buffer size = %d, want 10", b.Size())
	}

	overflow := stream("evt-new", map[string][]domain.MarketLeg{"full-game": arbLegs("full-game")})
	overflow.IngestedAt = fixedNow.Add(time.Minute)
	if err := b.Ingest(overflow); err != nil {
		t.Fatalf("overflow ingest: %v", err)
	}

	// 10% of 10 is exactly one eviction: the oldest entry goes, the rest
	// plus the new one stay.
	if b.Size() != 10 {
		t.Fatalf("buffer size = %d after eviction, want 10", b.Size())
	}
	if _, ok := b.streams["evt-00"]; ok {
		t.Error("oldest stream survived eviction")
	}
	if _, ok := b.streams["evt-01"]; !ok {
		t.Error("second-oldest stream was evicted")
	}
	if _, ok := b.streams["evt-new"]; !ok {
		t.Error("new stream missing after eviction")
	}

	// Re-ingesting an existing key at capacity must not evict anything.
	repeat := stream("evt-05", map[string][]domain.MarketLeg{"full-game": arbLegs("full-game")})
	if err := b.Ingest(repeat); err != nil {
		t.Fatalf("repeat ingest: %v", err)
	}
	if b.Size() != 10 {
		t.Fatalf("buffer size = %d after same-key ingest, want 10", b.Size())
	}
	if _, ok := b.streams["evt-01"]; !ok {
		t.Error("same-key ingest evicted an entry")
	}
}

func TestEvictionSmallBuffer(t *testing.T) {
	cfg := DefaultBufferConfig()
	cfg.MaxBufferSize = 5
	b := testBuffer(cfg, nil)

	for i := 0; i < 6; i++ {
		s := stream(fmt.Sprintf("evt-%d", i), map[string][]domain.MarketLeg{"full-game": arbLegs("full-game")})
		s.IngestedAt = fixedNow.Add(time.Duration(i) * time.Second)
		if err := b.Ingest(s); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}
	if b.Size() != 5 {
		t.Fatalf("buffer size = %d, want 5 after one eviction", b.Size())
	}
	if _, ok := b.streams["evt-0"]; ok {
		t.Error("oldest stream survived eviction")
	}
	if _, ok := b.streams["evt-5"]; !ok {
		t.Error("newest stream missing")
	}
}

func TestScanForOpportunities(t *testing.T) {
	t.Run("finds period pair opportunities", func(t *testing.T) {
		logger := discardLogger()
		bus := events.NewDispatcher(logger)
		var mu sync.Mutex
		var detected []domain.OpportunitiesDetected
		var immediate []domain.ImmediateOpportunity
		bus.Subscribe("capture", func(ev domain.Event) {
			mu.Lock()
			defer mu.Unlock()
			switch e := ev.(type) {
			case domain.OpportunitiesDetected:
				detected = append(detected, e)
			case domain.ImmediateOpportunity:
				immediate = append(immediate, e)
			}
		})
		b := testBuffer(DefaultBufferConfig(), bus)

		s := stream("evt-1", map[string][]domain.MarketLeg{
			"first-half": arbLegs("first-half"),
			"full-game":  arbLegs("full-game"),
		})
		if err := b.Ingest(s); err != nil {
			t.Fatalf("ingest: %v", err)
		}

		found, err := b.ScanForOpportunities(context.Background())
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if len(found) == 0 {
			t.Fatal("no opportunities found")
		}
		for _, opp := range found {
			pair := map[string]bool{opp.PeriodA: true, opp.PeriodB: true}
			if !pair["first-half"] || !pair["full-game"] {
				t.Errorf("unexpected period pair %s/%s", opp.PeriodA, opp.PeriodB)
			}
			if opp.Correlation != 0.75 {
				t.Errorf("correlation = %.2f, want the first-half:full-game profile 0.75", opp.Correlation)
			}
			if opp.TimeDecay != 0.75*0.9 {
				t.Errorf("time decay = %.4f, want correlation * 0.9", opp.TimeDecay)
			}
			if !opp.Window.Start.Equal(fixedNow) {
				t.Errorf("window start = %v, want scan instant", opp.Window.Start)
			}
		}
		for i := 1; i < len(found); i++ {
			if found[i].Opportunity.Return.Percent > found[i-1].Opportunity.Return.Percent {
				t.Fatalf("results not sorted by descending return at %d", i)
			}
		}

		mu.Lock()
		defer mu.Unlock()
		if len(detected) != 1 {
			t.Fatalf("got %d detection events, want 1", len(detected))
		}
		if len(detected[0].Opportunities) != len(found) {
			t.Errorf("event carries %d opportunities, scan returned %d", len(detected[0].Opportunities), len(found))
		}
		// A 15-minute window puts the optimal instant 4.5 minutes out,
		// beyond the one-minute immediate horizon.
		if len(immediate) != 0 {
			t.Errorf("got %d immediate events, want 0", len(immediate))
		}
	})

	t.Run("repeat scans are idempotent", func(t *testing.T) {
		b := testBuffer(DefaultBufferConfig(), nil)
		s := stream("evt-1", map[string][]domain.MarketLeg{
			"first-half": arbLegs("first-half"),
			"full-game":  arbLegs("full-game"),
		})
		if err := b.Ingest(s); err != nil {
			t.Fatalf("ingest: %v", err)
		}
		first, err := b.ScanForOpportunities(context.Background())
		if err != nil {
			t.Fatalf("first scan: %v", err)
		}
		second, err := b.ScanForOpportunities(context.Background())
		if err != nil {
			t.Fatalf("second scan: %v", err)
		}
		if len(first) != len(second) {
			t.Fatalf("scan sizes differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i].PairKey() != second[i].PairKey() ||
				first[i].Opportunity.Return.Percent != second[i].Opportunity.Return.Percent {
				t.Fatalf("ranked set differs at %d", i)
			}
		}
	})

	t.Run("high correlation threshold suppresses pairs", func(t *testing.T) {
		cfg := DefaultBufferConfig()
		cfg.CorrelationThreshold = 0.99
		b := testBuffer(cfg, nil)
		s := stream("evt-1", map[string][]domain.MarketLeg{
			"first-half": arbLegs("first-half"),
			"full-game":  arbLegs("full-game"),
		})
		if err := b.Ingest(s); err != nil {
			t.Fatalf("ingest: %v", err)
		}
		found, err := b.ScanForOpportunities(context.Background())
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if len(found) != 0 {
			t.Fatalf("got %d opportunities above a 0.99 threshold, want 0", len(found))
		}
	})

	t.Run("single period has no pairs", func(t *testing.T) {
		b := testBuffer(DefaultBufferConfig(), nil)
		s := stream("evt-1", map[string][]domain.MarketLeg{"full-game": arbLegs("full-game")})
		if err := b.Ingest(s); err != nil {
			t.Fatalf("ingest: %v", err)
		}
		found, err := b.ScanForOpportunities(context.Background())
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if len(found) != 0 {
			t.Fatalf("got %d opportunities from one period, want 0", len(found))
		}
	})
}

func TestQueries(t *testing.T) {
	b := testBuffer(DefaultBufferConfig(), nil)
	s := stream("evt-1", map[string][]domain.MarketLeg{
		"first-half": arbLegs("first-half"),
		"full-game":  arbLegs("full-game"),
	})
	if err := b.Ingest(s); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	found, err := b.ScanForOpportunities(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(found) == 0 {
		t.Fatal("no opportunities to query")
	}

	t.Run("real time horizon filters", func(t *testing.T) {
		// Optimal sits at 30% of a 15-minute window: 4.5 minutes out.
		if got := b.RealTimeOpportunities(time.Minute); len(got) != 0 {
			t.Errorf("got %d opportunities within 1m, want 0", len(got))
		}
		got := b.RealTimeOpportunities(10 * time.Minute)
		if len(got) != len(found) {
			t.Fatalf("got %d opportunities within 10m, want %d", len(got), len(found))
		}
		for i := 1; i < len(got); i++ {
			if got[i].Window.Optimal.Before(got[i-1].Window.Optimal) {
				t.Fatalf("not sorted soonest first at %d", i)
			}
		}
	})

	t.Run("expired windows are excluded", func(t *testing.T) {
		b.now = func() time.Time { return fixedNow.Add(time.Hour) }
		defer func() { b.now = func() time.Time { return fixedNow } }()
		if got := b.RealTimeOpportunities(24 * time.Hour); len(got) != 0 {
			t.Errorf("got %d opportunities from expired windows, want 0", len(got))
		}
	})

	t.Run("period pair lookup in both orientations", func(t *testing.T) {
		forward := b.OpportunitiesByPeriodPair("first-half", "full-game")
		reverse := b.OpportunitiesByPeriodPair("full-game", "first-half")
		if len(forward) != len(found) || len(reverse) != len(found) {
			t.Fatalf("forward %d, reverse %d, want both %d", len(forward), len(reverse), len(found))
		}
		if got := b.OpportunitiesByPeriodPair("first-quarter", "full-game"); len(got) != 0 {
			t.Errorf("got %d opportunities for an unscanned pair, want 0", len(got))
		}
	})
}

func TestStartStop(t *testing.T) {
	cfg := DefaultBufferConfig()
	cfg.ProcessingInterval = 5 * time.Millisecond
	b := testBuffer(cfg, nil)
	b.now = time.Now

	s := stream("evt-1", map[string][]domain.MarketLeg{
		"first-half": arbLegs("first-half"),
		"full-game":  arbLegs("full-game"),
	})
	s.IngestedAt = time.Now()
	if err := b.Ingest(s); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	b.Stop()

	if got := b.OpportunitiesByPeriodPair("first-half", "full-game"); len(got) == 0 {
		t.Error("scheduled scans produced no cached opportunities")
	}
	// Stop is idempotent.
	b.Stop()
}
