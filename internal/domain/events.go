package domain

import "time"

// EventKind names the members of the closed event set.
type EventKind string

const (
	EventMarketProcessed       EventKind = "marketProcessed"
	EventOpportunitiesDetected EventKind = "opportunitiesDetected"
	EventImmediateOpportunity  EventKind = "immediateOpportunity"
	EventPositionAdded         EventKind = "positionAdded"
	EventPositionUpdated       EventKind = "positionUpdated"
	EventPositionClosed        EventKind = "positionClosed"
	EventRiskAlert             EventKind = "riskAlert"
	EventAlertAcknowledged     EventKind = "alertAcknowledged"
	EventAlertResolved         EventKind = "alertResolved"
)

// Event is the closed union of everything the core emits to subscribers.
// Each kind is a distinct struct; consumers dispatch with a type switch.
type Event interface {
	Kind() EventKind
	At() time.Time
}

// MarketProcessed is emitted after each successful ingestion.
type MarketProcessed struct {
	EventID   string
	Periods   int
	Legs      int
	Latency   time.Duration
	Timestamp time.Time
}

func (e MarketProcessed) Kind() EventKind { return EventMarketProcessed }
func (e MarketProcessed) At() time.Time   { return e.Timestamp }

// OpportunitiesDetected is emitted once per scan cycle that found anything,
// ordered by descending expected return.
type OpportunitiesDetected struct {
	Opportunities []PeriodPairOpportunity
	ScanDuration  time.Duration
	Timestamp     time.Time
}

func (e OpportunitiesDetected) Kind() EventKind { return EventOpportunitiesDetected }
func (e OpportunitiesDetected) At() time.Time   { return e.Timestamp }

// ImmediateOpportunity flags an opportunity whose optimal execution instant
// is imminent.
type ImmediateOpportunity struct {
	Opportunity PeriodPairOpportunity
	Timestamp   time.Time
}

func (e ImmediateOpportunity) Kind() EventKind { return EventImmediateOpportunity }
func (e ImmediateOpportunity) At() time.Time   { return e.Timestamp }

// PositionAdded is emitted when an opportunity is accepted into tracking.
type PositionAdded struct {
	Position  Position
	Timestamp time.Time
}

func (e PositionAdded) Kind() EventKind { return EventPositionAdded }
func (e PositionAdded) At() time.Time   { return e.Timestamp }

// PositionUpdated is emitted after a leg-fill update is applied.
type PositionUpdated struct {
	Position  Position
	LegIndex  int
	Timestamp time.Time
}

func (e PositionUpdated) Kind() EventKind { return EventPositionUpdated }
func (e PositionUpdated) At() time.Time   { return e.Timestamp }

// PositionClosed is emitted when a position reaches a terminal state.
type PositionClosed struct {
	Position  Position
	Reason    CloseReason
	Timestamp time.Time
}

func (e PositionClosed) Kind() EventKind { return EventPositionClosed }
func (e PositionClosed) At() time.Time   { return e.Timestamp }

// RiskAlertRaised is emitted when a threshold crossing is detected.
type RiskAlertRaised struct {
	Alert     RiskAlert
	Timestamp time.Time
}

func (e RiskAlertRaised) Kind() EventKind { return EventRiskAlert }
func (e RiskAlertRaised) At() time.Time   { return e.Timestamp }

// AlertAcknowledged is emitted when an external caller acknowledges an alert.
type AlertAcknowledged struct {
	Alert     RiskAlert
	Timestamp time.Time
}

func (e AlertAcknowledged) Kind() EventKind { return EventAlertAcknowledged }
func (e AlertAcknowledged) At() time.Time   { return e.Timestamp }

// AlertResolved is emitted when an alert is marked resolved.
type AlertResolved struct {
	Alert     RiskAlert
	Timestamp time.Time
}

func (e AlertResolved) Kind() EventKind { return EventAlertResolved }
func (e AlertResolved) At() time.Time   { return e.Timestamp }
