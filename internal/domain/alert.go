package domain

import "time"

// AlertType classifies what a risk alert is about.
type AlertType string

const (
	AlertTypeExposure    AlertType = "exposure"
	AlertTypeVaR         AlertType = "var"
	AlertTypeCorrelation AlertType = "correlation"
	AlertTypeLiquidity   AlertType = "liquidity"
	AlertTypeExecution   AlertType = "execution"
)

// AlertSeverity ranks how urgent a risk alert is.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// RiskAlert records a threshold crossing observed by the tracker. Alerts are
// append-only: acknowledgement and resolution mutate only their own fields
// and history is never deleted.
type RiskAlert struct {
	ID           string
	Type         AlertType
	Severity     AlertSeverity
	Message      string
	PositionID   string // empty for portfolio-level alerts
	Threshold    float64
	Observed     float64
	RaisedAt     time.Time
	Acknowledged bool
	ResolvedAt   *time.Time
}

// Resolved reports whether the alert has been resolved.
func (a RiskAlert) Resolved() bool {
	return a.ResolvedAt != nil
}

// AlertFilter narrows alert queries. Zero values match everything.
type AlertFilter struct {
	Type       AlertType
	Severity   AlertSeverity
	PositionID string
	Unresolved bool
	Unacked    bool
}

// Matches reports whether the alert satisfies the filter.
func (f AlertFilter) Matches(a RiskAlert) bool {
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	if f.PositionID != "" && a.PositionID != f.PositionID {
		return false
	}
	if f.Unresolved && a.Resolved() {
		return false
	}
	if f.Unacked && a.Acknowledged {
		return false
	}
	return true
}
