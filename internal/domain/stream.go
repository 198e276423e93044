package domain

import "time"

// MarketStream is one event's snapshot at ingestion time: the legs observed
// for each period plus ingestion metadata. Streams are created per ingestion
// call and superseded whole by newer streams for the same event key; they are
// never merged.
type MarketStream struct {
	EventID       string
	Sport         string
	Periods       map[string][]MarketLeg // period tag -> legs observed for that period
	SourceLatency time.Duration
	Quality       float64 // data quality score 0..1
	IngestedAt    time.Time
}

// PeriodTags returns the period tags present in the stream.
func (s MarketStream) PeriodTags() []string {
	tags := make([]string, 0, len(s.Periods))
	for tag := range s.Periods {
		tags = append(tags, tag)
	}
	return tags
}

// LegCount returns the total number of legs across all periods.
func (s MarketStream) LegCount() int {
	n := 0
	for _, legs := range s.Periods {
		n += len(legs)
	}
	return n
}
