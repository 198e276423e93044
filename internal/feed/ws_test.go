package feed

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/syntharb/syntharb/internal/domain"
)

type captureIngestor struct {
	streams []domain.MarketStream
	err     error
}

func (c *captureIngestor) Ingest(stream domain.MarketStream) error {
	if c.err != nil {
		return c.err
	}
	c.streams = append(c.streams, stream)
	return nil
}

func testFeed(ingestor Ingestor) *WSFeed {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWSFeed(Config{URL: "ws://example.invalid/feed"}, ingestor, logger)
}

func TestHandleMessage(t *testing.T) {
	t.Run("decodes a snapshot", func(t *testing.T) {
		ing := &captureIngestor{}
		f := testFeed(ing)

		raw := []byte(`{
			"event_id": "evt-4021",
			"sport": "basketball",
			"quality": 0.92,
			"source_latency_ms": 45,
			"periods": {
				"full-game": [
					{"venue": "venue-a", "market_type": "moneyline", "price": 105, "volume": 80000, "sharp": true, "updated_at": 1770000000000},
					{"venue": "venue-b", "market_type": "total", "price": -110, "line": 212.5, "volume": 60000, "updated_at": 1770000001000}
				]
			}
		}`)
		f.handleMessage(raw)

		if len(ing.streams) != 1 {
			t.Fatalf("got %d streams, want 1", len(ing.streams))
		}
		s := ing.streams[0]
		if s.EventID != "evt-4021" || s.Sport != "basketball" {
			t.Errorf("stream keys = %q/%q", s.EventID, s.Sport)
		}
		if s.SourceLatency != 45*time.Millisecond {
			t.Errorf("latency = %v, want 45ms", s.SourceLatency)
		}
		legs := s.Periods["full-game"]
		if len(legs) != 2 {
			t.Fatalf("got %d legs, want 2", len(legs))
		}
		if legs[0].Venue != "venue-a" || legs[0].Price != 105 || !legs[0].Sharp {
			t.Errorf("leg 0 = %+v", legs[0])
		}
		if legs[0].EventID != "evt-4021" || legs[0].Period != "full-game" {
			t.Errorf("leg 0 keys = %q/%q, want stamped from the snapshot", legs[0].EventID, legs[0].Period)
		}
		if legs[0].UpdatedAt != time.UnixMilli(1770000000000).UTC() {
			t.Errorf("leg 0 updated at = %v", legs[0].UpdatedAt)
		}
		if legs[1].MarketType != domain.MarketTypeTotal || legs[1].Line == nil || *legs[1].Line != 212.5 {
			t.Errorf("leg 1 = %+v", legs[1])
		}
	})

	t.Run("drops unparseable messages", func(t *testing.T) {
		ing := &captureIngestor{}
		f := testFeed(ing)
		f.handleMessage([]byte(`{not json`))
		if len(ing.streams) != 0 {
			t.Fatalf("got %d streams from garbage, want 0", len(ing.streams))
		}
	})

	t.Run("ingest rejection does not panic", func(t *testing.T) {
		ing := &captureIngestor{err: domain.ErrValidation}
		f := testFeed(ing)
		f.handleMessage([]byte(`{"event_id": "evt-1", "sport": "basketball", "periods": {"overtime": []}}`))
	})
}

func TestNewWSFeedDefaults(t *testing.T) {
	f := testFeed(&captureIngestor{})
	if f.cfg.ReconnectMin != time.Second {
		t.Errorf("reconnect min = %v, want 1s default", f.cfg.ReconnectMin)
	}
	if f.cfg.ReconnectMax != 30*time.Second {
		t.Errorf("reconnect max = %v, want 30s default", f.cfg.ReconnectMax)
	}
}
