package stream

import (
	"time"

	"github.com/syntharb/syntharb/internal/domain"
)

// pairProfile is the heuristic estimate for one period pair: how correlated
// the two periods' prices are and how long a detected opportunity stays
// actionable.
type pairProfile struct {
	Correlation float64
	Window      time.Duration
}

// defaultProfile applies to period pairs without a dedicated table entry.
var defaultProfile = pairProfile{Correlation: 0.5, Window: 10 * time.Minute}

// pairProfiles maps normalised "a:b" period-pair keys to their heuristic
// profile. Both orderings are checked at lookup, so entries are listed once.
var pairProfiles = map[string]pairProfile{
	"first-quarter:full-game":    {Correlation: 0.65, Window: 12 * time.Minute},
	"first-half:full-game":       {Correlation: 0.75, Window: 15 * time.Minute},
	"second-half:full-game":      {Correlation: 0.70, Window: 12 * time.Minute},
	"first-quarter:first-half":   {Correlation: 0.80, Window: 8 * time.Minute},
	"second-quarter:first-half":  {Correlation: 0.78, Window: 8 * time.Minute},
	"third-quarter:second-half":  {Correlation: 0.76, Window: 8 * time.Minute},
	"fourth-quarter:second-half": {Correlation: 0.74, Window: 8 * time.Minute},
	"fourth-quarter:full-game":   {Correlation: 0.55, Window: 10 * time.Minute},
}

// profileFor returns the heuristic profile for a period pair, falling back
// to the default for unmapped pairs.
func profileFor(periodA, periodB string) pairProfile {
	if p, ok := pairProfiles[domain.PeriodPairKey(periodA, periodB)]; ok {
		return p
	}
	if p, ok := pairProfiles[domain.PeriodPairKey(periodB, periodA)]; ok {
		return p
	}
	return defaultProfile
}

// decayCorrelation applies the time-decay rule to a correlation estimate,
// flooring at 0.1.
func decayCorrelation(corr float64) float64 {
	decayed := corr * 0.9
	if decayed < 0.1 {
		return 0.1
	}
	return decayed
}
