package domain

import "time"

// PositionStatus tracks the fill lifecycle of a position. The sequence is
// monotonic: pending -> partial -> active, with completed/failed reachable
// from any non-terminal state via an explicit close.
type PositionStatus string

const (
	PositionStatusPending   PositionStatus = "pending"
	PositionStatusPartial   PositionStatus = "partial"
	PositionStatusActive    PositionStatus = "active"
	PositionStatusCompleted PositionStatus = "completed"
	PositionStatusFailed    PositionStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s PositionStatus) Terminal() bool {
	return s == PositionStatusCompleted || s == PositionStatusFailed
}

// CloseReason selects the terminal state for ClosePosition.
type CloseReason string

const (
	CloseReasonCompleted CloseReason = "completed"
	CloseReasonFailed    CloseReason = "failed"
)

// LegFillStatus is the execution state of a single leg.
type LegFillStatus string

const (
	LegFillPending LegFillStatus = "pending"
	LegFillFilled  LegFillStatus = "filled"
	LegFillPartial LegFillStatus = "partial"
	LegFillFailed  LegFillStatus = "failed"
)

// LegExecution holds the fill state for one leg of a position.
type LegExecution struct {
	Leg          MarketLeg
	Status       LegFillStatus
	FillPrice    *float64
	FillQuantity *float64
	FilledAt     *time.Time
	Commission   float64
}

// LegUpdate is a caller-submitted change to one leg's execution state.
type LegUpdate struct {
	Status       LegFillStatus
	FillPrice    *float64
	FillQuantity *float64
	Commission   *float64
}

// ExecutionSummary aggregates fill costs over a position's legs.
type ExecutionSummary struct {
	StartedAt       time.Time
	EndedAt         *time.Time
	TotalCost       float64
	TotalCommission float64
	ExpectedPnL     float64
	RealizedPnL     *float64
}

// RiskSnapshot is the point-in-time risk of one position.
type RiskSnapshot struct {
	Exposure    float64
	VaR95       float64
	VaR99       float64
	Sensitivity map[string]float64
	TakenAt     time.Time
}

// PositionMetadata carries caller-supplied annotations.
type PositionMetadata struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Notes     string
	Tags      []string
	Owner     string
}

// Position is an opportunity taken to execution. It is owned exclusively by
// the tracker once added; callers interact only through leg-fill updates and
// close requests.
type Position struct {
	ID          string
	Opportunity ArbitrageOpportunity
	Legs        []LegExecution
	Status      PositionStatus
	Size        float64
	Execution   ExecutionSummary
	Risk        RiskSnapshot
	Meta        PositionMetadata
	HoldingTime time.Duration
}

// FilledLegs returns the number of fully filled legs.
func (p Position) FilledLegs() int {
	n := 0
	for _, l := range p.Legs {
		if l.Status == LegFillFilled {
			n++
		}
	}
	return n
}

// PositionFilter narrows position queries. Zero values match everything.
type PositionFilter struct {
	Status  PositionStatus
	EventID string
	Owner   string
	Tag     string
}

// Matches reports whether the position satisfies the filter.
func (f PositionFilter) Matches(p Position) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.EventID != "" && p.Opportunity.EventID != f.EventID {
		return false
	}
	if f.Owner != "" && p.Meta.Owner != f.Owner {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range p.Meta.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
