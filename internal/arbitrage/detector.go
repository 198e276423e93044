// Package arbitrage implements the cross-venue detector: combinatorial
// search over market legs for two-way and multi-way combinations whose
// implied probabilities sum below one minus the configured margin.
package arbitrage

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/syntharb/syntharb/internal/domain"
)

// DetectorConfig holds the detector's tunable thresholds.
type DetectorConfig struct {
	MinExpectedReturn float64 // minimum fractional return to emit, e.g. 0.005
	MaxRiskScore      float64 // warn threshold for Validate
	MaxLegs           int     // warn threshold for Validate
	MaxVenues         int     // cap on venues considered for multi-way search
}

// DefaultDetectorConfig returns the standard detector parameters.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MinExpectedReturn: 0.005,
		MaxRiskScore:      0.8,
		MaxLegs:           6,
		MaxVenues:         10,
	}
}

// Detector searches leg sets for arbitrage. It is stateless and safe for
// concurrent use; "no opportunity found" is an empty result, never an error.
type Detector struct {
	cfg    DetectorConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewDetector creates a Detector with the given configuration.
func NewDetector(cfg DetectorConfig, logger *slog.Logger) *Detector {
	if cfg.MaxVenues <= 0 {
		cfg.MaxVenues = 10
	}
	if cfg.MaxLegs <= 0 {
		cfg.MaxLegs = 6
	}
	return &Detector{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "arb_detector")),
		now:    time.Now,
	}
}

// FindOpportunities runs both the two-way and multi-way searches over the
// legs, filters the union through Validate, and returns the survivors ranked
// by descending expected return.
func (d *Detector) FindOpportunities(legs []domain.MarketLeg) ([]domain.ArbitrageOpportunity, error) {
	twoWay, err := d.FindTwoWay(legs)
	if err != nil {
		return nil, err
	}
	multiWay, err := d.FindMultiWay(legs)
	if err != nil {
		return nil, err
	}

	all := append(twoWay, multiWay...)
	kept := all[:0]
	for _, opp := range all {
		if report := d.Validate(opp); report.Valid {
			kept = append(kept, opp)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Return.Percent > kept[j].Return.Percent
	})
	return kept, nil
}

// FindTwoWay searches for back/lay pairs across venues. Legs are grouped by
// (market type, line); within each group the best back is the leg with the
// highest American odds and the best lay is the most negative leg at a
// different venue. The lay side contributes the complement of its implied
// probability, so a -110/-110 pair sums to exactly 1 and never clears the
// margin.
func (d *Detector) FindTwoWay(legs []domain.MarketLeg) ([]domain.ArbitrageOpportunity, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("arbitrage: find two-way: empty leg set: %w", domain.ErrValidation)
	}

	var opps []domain.ArbitrageOpportunity
	for _, group := range groupByMarket(legs) {
		back, lay, ok := bestBackLay(group)
		if !ok {
			continue
		}
		probSum := back.ImpliedProbability() + (1 - lay.ImpliedProbability())
		if probSum >= 1-d.cfg.MinExpectedReturn || probSum <= 0 {
			continue
		}
		opp := d.buildOpportunity([]domain.MarketLeg{back, lay}, probSum)
		opps = append(opps, opp)
		d.logger.Debug("two-way opportunity",
			slog.String("event_id", opp.EventID),
			slog.Float64("prob_sum", probSum),
			slog.Float64("expected_return", opp.Return.Percent),
		)
	}
	return opps, nil
}

// FindMultiWay enumerates all 3-venue combinations when at least three
// venues are present, summing direct implied probabilities across the
// combination. Venues beyond MaxVenues (by descending volume) are ignored
// to bound the combination count.
func (d *Detector) FindMultiWay(legs []domain.MarketLeg) ([]domain.ArbitrageOpportunity, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("arbitrage: find multi-way: empty leg set: %w", domain.ErrValidation)
	}

	byVenue := bestLegPerVenue(legs)
	if len(byVenue) < 3 {
		return nil, nil
	}

	venues := make([]domain.MarketLeg, 0, len(byVenue))
	for _, leg := range byVenue {
		venues = append(venues, leg)
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i].Volume > venues[j].Volume })
	if len(venues) > d.cfg.MaxVenues {
		venues = venues[:d.cfg.MaxVenues]
	}

	var opps []domain.ArbitrageOpportunity
	for i := 0; i < len(venues); i++ {
		for j := i + 1; j < len(venues); j++ {
			for k := j + 1; k < len(venues); k++ {
				combo := []domain.MarketLeg{venues[i], venues[j], venues[k]}
				probSum := 0.0
				for _, leg := range combo {
					probSum += leg.ImpliedProbability()
				}
				if probSum >= 1-d.cfg.MinExpectedReturn || probSum <= 0 {
					continue
				}
				opps = append(opps, d.buildOpportunity(combo, probSum))
			}
		}
	}
	return opps, nil
}

// buildOpportunity assembles a scored opportunity from the chosen legs.
func (d *Detector) buildOpportunity(legs []domain.MarketLeg, probSum float64) domain.ArbitrageOpportunity {
	venues := make([]string, 0, len(legs))
	seen := make(map[string]bool, len(legs))
	eventID := ""
	for _, leg := range legs {
		if eventID == "" {
			eventID = leg.EventID
		}
		if !seen[leg.Venue] {
			seen[leg.Venue] = true
			venues = append(venues, leg.Venue)
		}
	}

	ret := 1/probSum - 1
	confidence := d.scoreConfidence(legs)
	risk := d.scoreRisk(legs)

	return domain.ArbitrageOpportunity{
		ID:      uuid.Must(uuid.NewRandom()).String(),
		EventID: eventID,
		Legs:    legs,
		Venues:  venues,
		Return: domain.ExpectedReturn{
			Percent:    ret,
			Absolute:   ret * stakeableVolume(legs),
			Confidence: confidence,
		},
		Risk:           risk,
		ImpliedProbSum: probSum,
		DetectedAt:     d.now(),
	}
}

// stakeableVolume is the volume of the thinnest leg, the practical cap on
// the stake.
func stakeableVolume(legs []domain.MarketLeg) float64 {
	min := math.Inf(1)
	for _, leg := range legs {
		if leg.Volume < min {
			min = leg.Volume
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}

// groupByMarket buckets legs by (market type, line).
func groupByMarket(legs []domain.MarketLeg) map[string][]domain.MarketLeg {
	groups := make(map[string][]domain.MarketLeg)
	for _, leg := range legs {
		key := string(leg.MarketType)
		if leg.Line != nil {
			key = fmt.Sprintf("%s@%.2f", leg.MarketType, *leg.Line)
		}
		groups[key] = append(groups[key], leg)
	}
	return groups
}

// bestBackLay picks the back leg with the highest odds and the lay leg with
// the lowest odds from a different venue. Groups confined to one venue yield
// no pair.
func bestBackLay(group []domain.MarketLeg) (back, lay domain.MarketLeg, ok bool) {
	if len(group) < 2 {
		return back, lay, false
	}
	sorted := make([]domain.MarketLeg, len(group))
	copy(sorted, group)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price > sorted[j].Price })

	back = sorted[0]
	for i := len(sorted) - 1; i > 0; i-- {
		if sorted[i].Venue != back.Venue && sorted[i].Price < 0 {
			return back, sorted[i], true
		}
	}
	return back, lay, false
}

// bestLegPerVenue keeps the lowest-implied-probability leg per venue.
func bestLegPerVenue(legs []domain.MarketLeg) map[string]domain.MarketLeg {
	best := make(map[string]domain.MarketLeg)
	for _, leg := range legs {
		cur, ok := best[leg.Venue]
		if !ok || leg.ImpliedProbability() < cur.ImpliedProbability() {
			best[leg.Venue] = leg
		}
	}
	return best
}
