package domain

import "time"

// ExpectedReturn summarises the payoff of an arbitrage opportunity.
type ExpectedReturn struct {
	Percent    float64 // fractional return, e.g. 0.023 for 2.3%
	Absolute   float64 // return on MaxStake
	Confidence float64 // 0..1
}

// RiskMetrics scores the execution risk of an opportunity.
type RiskMetrics struct {
	Score       float64 // 0..1, higher is riskier
	MaxDrawdown float64 // estimated worst-case loss fraction
	Volatility  float64 // volume coefficient of variation across legs
}

// ArbitrageOpportunity is an ordered set of legs whose implied probabilities
// sum below 1 minus the configured minimum-return margin.
type ArbitrageOpportunity struct {
	ID             string
	EventID        string
	Legs           []MarketLeg
	Venues         []string
	Return         ExpectedReturn
	Risk           RiskMetrics
	ImpliedProbSum float64
	DetectedAt     time.Time
}

// ExecutionWindow is the interval during which an opportunity is actionable.
// Optimal is fixed at 30% of the window duration after Start.
type ExecutionWindow struct {
	Start   time.Time
	End     time.Time
	Optimal time.Time
}

// NewExecutionWindow builds a window of the given duration starting at start.
func NewExecutionWindow(start time.Time, d time.Duration) ExecutionWindow {
	return ExecutionWindow{
		Start:   start,
		End:     start.Add(d),
		Optimal: start.Add(time.Duration(float64(d) * 0.3)),
	}
}

// Expired reports whether the window has ended as of now.
func (w ExecutionWindow) Expired(now time.Time) bool {
	return now.After(w.End)
}

// PeriodPairOpportunity ties an arbitrage opportunity to two periods of one
// event. It is terminal once wall-clock time passes Window.End, at which
// point the scheduler evicts it from the opportunity cache.
type PeriodPairOpportunity struct {
	Opportunity ArbitrageOpportunity
	PeriodA     string
	PeriodB     string
	Correlation float64 // estimated correlation between the two periods
	TimeDecay   float64
	Window      ExecutionWindow
}

// PairKey returns the normalised "a:b" period-pair key.
func (p PeriodPairOpportunity) PairKey() string {
	return PeriodPairKey(p.PeriodA, p.PeriodB)
}

// PeriodPairKey joins two period tags into the canonical lookup key. Order is
// preserved as given; callers normalise ordering before lookup.
func PeriodPairKey(a, b string) string {
	return a + ":" + b
}
