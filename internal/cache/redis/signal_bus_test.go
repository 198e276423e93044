package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/syntharb/syntharb/internal/domain"
)

func TestMarshalEnvelope(t *testing.T) {
	now := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	data, err := marshalEnvelope(domain.MarketProcessed{
		EventID:   "evt-1",
		Periods:   2,
		Legs:      4,
		Timestamp: now,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Kind    domain.EventKind       `json:"kind"`
		Payload domain.MarketProcessed `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Kind != domain.EventMarketProcessed {
		t.Errorf("kind = %q, want %q", decoded.Kind, domain.EventMarketProcessed)
	}
	if decoded.Payload.EventID != "evt-1" || decoded.Payload.Periods != 2 || decoded.Payload.Legs != 4 {
		t.Errorf("payload = %+v", decoded.Payload)
	}
	if !decoded.Payload.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", decoded.Payload.Timestamp, now)
	}
}
