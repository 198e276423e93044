// Package feed ingests market snapshots from an upstream odds feed over
// WebSocket and forwards them into the stream buffer.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/syntharb/syntharb/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Ingestor receives decoded market streams. Implemented by the stream buffer.
type Ingestor interface {
	Ingest(stream domain.MarketStream) error
}

// Config holds the WebSocket feed parameters.
type Config struct {
	URL          string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// WSFeed connects to an odds feed WebSocket, decodes snapshot messages, and
// forwards them to the ingestor. It reconnects with exponential backoff on
// disconnect and runs until its context is cancelled.
type WSFeed struct {
	cfg      Config
	ingestor Ingestor
	logger   *slog.Logger
}

// NewWSFeed creates a feed forwarding into the given ingestor.
func NewWSFeed(cfg Config, ingestor Ingestor, logger *slog.Logger) *WSFeed {
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = 30 * time.Second
	}
	return &WSFeed{
		cfg:      cfg,
		ingestor: ingestor,
		logger:   logger.With(slog.String("component", "ws_feed")),
	}
}

// Run connects and consumes snapshots until ctx is cancelled. Each disconnect
// doubles the retry delay up to the configured maximum; a successful
// connection resets it.
func (f *WSFeed) Run(ctx context.Context) error {
	delay := f.cfg.ReconnectMin

	for {
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			f.logger.Warn("feed disconnected, reconnecting",
				slog.String("error", err.Error()),
				slog.Duration("delay", delay),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > f.cfg.ReconnectMax {
			delay = f.cfg.ReconnectMax
		}
	}
}

func (f *WSFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.logger.Info("feed connected", slog.String("url", f.cfg.URL))

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Drop the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handleMessage(raw)
	}
}

// snapshotMessage is the wire format for one event snapshot.
type snapshotMessage struct {
	EventID       string               `json:"event_id"`
	Sport         string               `json:"sport"`
	Quality       float64              `json:"quality"`
	SourceLatency int64                `json:"source_latency_ms"`
	Periods       map[string][]wireLeg `json:"periods"`
}

type wireLeg struct {
	Venue      string   `json:"venue"`
	MarketType string   `json:"market_type"`
	Price      int      `json:"price"`
	Line       *float64 `json:"line"`
	Volume     float64  `json:"volume"`
	Sharp      bool     `json:"sharp"`
	UpdatedAt  int64    `json:"updated_at"` // unix milliseconds
}

// handleMessage decodes one snapshot and forwards it. Unparseable messages
// are dropped with a debug log; ingest rejections are logged and skipped so a
// single bad snapshot cannot stall the feed.
func (f *WSFeed) handleMessage(raw []byte) {
	var msg snapshotMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		f.logger.Debug("dropping unparseable message", slog.String("error", err.Error()))
		return
	}

	stream := domain.MarketStream{
		EventID:       msg.EventID,
		Sport:         msg.Sport,
		Quality:       msg.Quality,
		SourceLatency: time.Duration(msg.SourceLatency) * time.Millisecond,
		IngestedAt:    time.Now().UTC(),
		Periods:       make(map[string][]domain.MarketLeg, len(msg.Periods)),
	}

	for tag, legs := range msg.Periods {
		converted := make([]domain.MarketLeg, 0, len(legs))
		for _, l := range legs {
			converted = append(converted, domain.MarketLeg{
				Venue:      l.Venue,
				EventID:    msg.EventID,
				Period:     tag,
				MarketType: domain.MarketType(l.MarketType),
				Price:      l.Price,
				Line:       l.Line,
				Volume:     l.Volume,
				Sharp:      l.Sharp,
				UpdatedAt:  time.UnixMilli(l.UpdatedAt).UTC(),
			})
		}
		stream.Periods[tag] = converted
	}

	if err := f.ingestor.Ingest(stream); err != nil {
		f.logger.Warn("snapshot rejected",
			slog.String("event_id", msg.EventID),
			slog.String("error", err.Error()),
		)
	}
}
