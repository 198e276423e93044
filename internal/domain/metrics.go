package domain

import "time"

// PortfolioMetrics is the derived aggregate view over all tracked positions.
// It is recomputed after every position mutation and never persisted on its
// own.
type PortfolioMetrics struct {
	CountsByStatus     map[PositionStatus]int
	TotalExposure      float64
	TotalExpectedPnL   float64
	TotalRealizedPnL   float64
	PortfolioVaR95     float64
	PortfolioVaR99     float64
	WinRate            float64
	AvgHoldingPeriod   time.Duration
	RiskAdjustedReturn float64
	ComputedAt         time.Time
}

// PositionRiskEntry is one row of the per-position risk breakdown.
type PositionRiskEntry struct {
	PositionID string
	EventID    string
	Status     PositionStatus
	Exposure   float64
	VaR95      float64
	VaR99      float64
}

// PortfolioExport is the full portfolio snapshot returned by the export API.
// This is the sole persisted-state boundary the core defines.
type PortfolioExport struct {
	Positions  []Position
	Metrics    PortfolioMetrics
	Alerts     []RiskAlert
	Breakdown  []PositionRiskEntry
	ExportedAt time.Time
}
