// Package position implements the position tracker: the fill-state machine
// for accepted opportunities, portfolio-level risk aggregation, and
// threshold-based alerting.
package position

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/syntharb/syntharb/internal/domain"
	"github.com/syntharb/syntharb/internal/events"
	"github.com/syntharb/syntharb/internal/sched"
)

// Initial risk snapshot conventions: VaR95 is 5% of position size, VaR99 8%.
const (
	initialVaR95Fraction = 0.05
	initialVaR99Fraction = 0.08
)

// TrackerConfig holds the tracker's risk limits and cycle interval.
type TrackerConfig struct {
	MaxPositionExposure  float64
	MaxPortfolioExposure float64
	VaR95Limit           float64
	RiskUpdateInterval   time.Duration
	CorrelationDampening float64 // cross-position dampening for portfolio VaR
}

// DefaultTrackerConfig returns the standard tracker parameters.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxPositionExposure:  25_000,
		MaxPortfolioExposure: 100_000,
		VaR95Limit:           10_000,
		RiskUpdateInterval:   time.Second,
		CorrelationDampening: 0.7,
	}
}

// Tracker owns all tracked positions and the append-only alert history.
// Positions are mutated only through its methods; callers never hold a
// reference into internal storage.
type Tracker struct {
	cfg    TrackerConfig
	bus    *events.Dispatcher
	store  domain.PositionStore // optional persistence adapter
	alerts domain.AlertStore    // optional persistence adapter
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	positions map[string]domain.Position
	metrics   domain.PortfolioMetrics

	alertMu  sync.RWMutex
	alertLog []domain.RiskAlert

	task *sched.Task
}

// NewTracker creates a Tracker. store and alerts may be nil; persistence is
// then skipped entirely.
func NewTracker(cfg TrackerConfig, bus *events.Dispatcher, store domain.PositionStore, alerts domain.AlertStore, logger *slog.Logger) *Tracker {
	if cfg.RiskUpdateInterval <= 0 {
		cfg.RiskUpdateInterval = time.Second
	}
	if cfg.CorrelationDampening <= 0 || cfg.CorrelationDampening > 1 {
		cfg.CorrelationDampening = 0.7
	}
	t := &Tracker{
		cfg:       cfg,
		bus:       bus,
		store:     store,
		alerts:    alerts,
		logger:    logger.With(slog.String("component", "position_tracker")),
		now:       time.Now,
		positions: make(map[string]domain.Position),
	}
	t.task = sched.New("risk", cfg.RiskUpdateInterval, t.riskCycle, logger)
	return t
}

// AddOptions carries caller annotations and an optional explicit size. When
// Size is zero the position size is estimated from the opportunity's
// thinnest leg.
type AddOptions struct {
	Size  float64
	Notes string
	Tags  []string
	Owner string
}

// AddPosition accepts an opportunity into tracking. It fails with
// domain.ErrLimitExceeded when the position size exceeds the per-position
// limit or would push total portfolio exposure over the portfolio limit; on
// error no state changes.
func (t *Tracker) AddPosition(ctx context.Context, opp domain.ArbitrageOpportunity, opts AddOptions) (domain.Position, error) {
	size := opts.Size
	if size <= 0 {
		size = estimateSize(opp)
	}
	if size > t.cfg.MaxPositionExposure {
		return domain.Position{}, fmt.Errorf(
			"position: add: size %.2f exceeds position limit %.2f: %w",
			size, t.cfg.MaxPositionExposure, domain.ErrLimitExceeded,
		)
	}

	now := t.now()
	legs := make([]domain.LegExecution, len(opp.Legs))
	for i, leg := range opp.Legs {
		legs[i] = domain.LegExecution{Leg: leg, Status: domain.LegFillPending}
	}

	pos := domain.Position{
		ID:          uuid.Must(uuid.NewRandom()).String(),
		Opportunity: opp,
		Legs:        legs,
		Status:      domain.PositionStatusPending,
		Size:        size,
		Execution: domain.ExecutionSummary{
			StartedAt:   now,
			ExpectedPnL: size * opp.Return.Percent,
		},
		Risk: domain.RiskSnapshot{
			Exposure: size,
			VaR95:    size * initialVaR95Fraction,
			VaR99:    size * initialVaR99Fraction,
			Sensitivity: map[string]float64{
				"return":     opp.Return.Percent,
				"risk_score": opp.Risk.Score,
			},
			TakenAt: now,
		},
		Meta: domain.PositionMetadata{
			CreatedAt: now,
			UpdatedAt: now,
			Notes:     opts.Notes,
			Tags:      opts.Tags,
			Owner:     opts.Owner,
		},
	}

	t.mu.Lock()
	if t.openExposureLocked()+size > t.cfg.MaxPortfolioExposure {
		exposure := t.openExposureLocked()
		t.mu.Unlock()
		return domain.Position{}, fmt.Errorf(
			"position: add: portfolio exposure %.2f + %.2f exceeds limit %.2f: %w",
			exposure, size, t.cfg.MaxPortfolioExposure, domain.ErrLimitExceeded,
		)
	}
	t.positions[pos.ID] = pos
	t.recomputeMetricsLocked()
	t.mu.Unlock()

	t.persistCreate(ctx, pos)
	t.bus.Emit(domain.PositionAdded{Position: pos, Timestamp: now})
	t.logger.Info("position added",
		slog.String("position_id", pos.ID),
		slog.String("event_id", opp.EventID),
		slog.Float64("size", size),
		slog.Int("legs", len(legs)),
	)
	return pos, nil
}

// UpdateLegExecution applies a caller-submitted fill update to one leg and
// recomputes the position's status, cost totals, risk snapshot, portfolio
// metrics, and per-position alerts. Updates for a single position apply in
// the order received. Updates on an already terminal position are rejected.
func (t *Tracker) UpdateLegExecution(ctx context.Context, positionID string, legIndex int, update domain.LegUpdate) (domain.Position, error) {
	now := t.now()

	t.mu.Lock()
	pos, ok := t.positions[positionID]
	if !ok {
		t.mu.Unlock()
		return domain.Position{}, fmt.Errorf("position: update leg: position %q: %w", positionID, domain.ErrNotFound)
	}
	if legIndex < 0 || legIndex >= len(pos.Legs) {
		t.mu.Unlock()
		return domain.Position{}, fmt.Errorf(
			"position: update leg: index %d of %d legs: %w",
			legIndex, len(pos.Legs), domain.ErrOutOfRange,
		)
	}
	if pos.Status.Terminal() {
		t.mu.Unlock()
		return domain.Position{}, fmt.Errorf("position: update leg: position %q already %s: %w", positionID, pos.Status, domain.ErrValidation)
	}

	pos = clonePosition(pos)
	leg := &pos.Legs[legIndex]
	leg.Status = update.Status
	if update.FillPrice != nil {
		leg.FillPrice = update.FillPrice
	}
	if update.FillQuantity != nil {
		leg.FillQuantity = update.FillQuantity
	}
	if update.Commission != nil {
		leg.Commission = *update.Commission
	}
	if update.Status == domain.LegFillFilled && leg.FilledAt == nil {
		at := now
		leg.FilledAt = &at
	}

	pos.Status = fillStatus(pos)
	recomputeExecution(&pos)
	pos.Risk = t.decayedRisk(pos, now)
	pos.Meta.UpdatedAt = now

	t.positions[positionID] = pos
	t.recomputeMetricsLocked()
	t.mu.Unlock()

	t.evaluatePositionAlerts(ctx, pos)
	t.persistUpdate(ctx, pos)
	t.bus.Emit(domain.PositionUpdated{Position: pos, LegIndex: legIndex, Timestamp: now})
	return pos, nil
}

// ClosePosition moves a position to its terminal state. Realized PnL is the
// caller-provided value when given, otherwise an estimate from filled legs
// that fails closed to zero if any leg never filled. Closing an already
// terminal position is rejected.
func (t *Tracker) ClosePosition(ctx context.Context, positionID string, reason domain.CloseReason, finalPnL *float64) (domain.Position, error) {
	now := t.now()

	t.mu.Lock()
	pos, ok := t.positions[positionID]
	if !ok {
		t.mu.Unlock()
		return domain.Position{}, fmt.Errorf("position: close: position %q: %w", positionID, domain.ErrNotFound)
	}
	if pos.Status.Terminal() {
		t.mu.Unlock()
		return domain.Position{}, fmt.Errorf("position: close: position %q already %s: %w", positionID, pos.Status, domain.ErrValidation)
	}

	pos = clonePosition(pos)
	switch reason {
	case domain.CloseReasonFailed:
		pos.Status = domain.PositionStatusFailed
	default:
		pos.Status = domain.PositionStatusCompleted
	}

	ended := now
	pos.Execution.EndedAt = &ended
	pos.HoldingTime = ended.Sub(pos.Execution.StartedAt)

	pnl := 0.0
	if finalPnL != nil {
		pnl = *finalPnL
	} else {
		pnl = estimateRealizedPnL(pos)
	}
	pos.Execution.RealizedPnL = &pnl
	pos.Risk.Exposure = 0
	pos.Meta.UpdatedAt = now

	t.positions[positionID] = pos
	t.recomputeMetricsLocked()
	t.mu.Unlock()

	t.persistUpdate(ctx, pos)
	t.bus.Emit(domain.PositionClosed{Position: pos, Reason: reason, Timestamp: now})
	t.logger.Info("position closed",
		slog.String("position_id", positionID),
		slog.String("reason", string(reason)),
		slog.Float64("realized_pnl", pnl),
	)
	return pos, nil
}

// Positions returns positions matching the filter, newest first.
func (t *Tracker) Positions(filter domain.PositionFilter) []domain.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []domain.Position
	for _, pos := range t.positions {
		if filter.Matches(pos) {
			out = append(out, clonePosition(pos))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Meta.CreatedAt.After(out[j].Meta.CreatedAt)
	})
	return out
}

// ActivePositions returns all fully filled, unclosed positions.
func (t *Tracker) ActivePositions() []domain.Position {
	return t.Positions(domain.PositionFilter{Status: domain.PositionStatusActive})
}

// GetPosition returns one position by id.
func (t *Tracker) GetPosition(positionID string) (domain.Position, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos, ok := t.positions[positionID]
	if !ok {
		return domain.Position{}, fmt.Errorf("position: get %q: %w", positionID, domain.ErrNotFound)
	}
	return clonePosition(pos), nil
}

// Start begins the periodic risk re-evaluation cycle.
func (t *Tracker) Start(ctx context.Context) {
	t.task.Start(ctx)
}

// Stop halts the risk cycle; an in-flight cycle completes first.
func (t *Tracker) Stop() {
	t.task.Stop()
}

// openExposureLocked sums exposure over non-terminal positions. Caller holds
// t.mu.
func (t *Tracker) openExposureLocked() float64 {
	var total float64
	for _, pos := range t.positions {
		if !pos.Status.Terminal() {
			total += pos.Risk.Exposure
		}
	}
	return total
}

func (t *Tracker) persistCreate(ctx context.Context, pos domain.Position) {
	if t.store == nil {
		return
	}
	if err := t.store.Create(ctx, pos); err != nil {
		t.logger.Warn("persist position failed",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (t *Tracker) persistUpdate(ctx context.Context, pos domain.Position) {
	if t.store == nil {
		return
	}
	if err := t.store.Update(ctx, pos); err != nil {
		t.logger.Warn("persist position update failed",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()),
		)
	}
}

// fillStatus derives the lifecycle state from leg fills: pending with zero
// filled legs, active when all are filled, partial otherwise.
func fillStatus(pos domain.Position) domain.PositionStatus {
	filled := pos.FilledLegs()
	switch {
	case filled == 0:
		return domain.PositionStatusPending
	case filled == len(pos.Legs):
		return domain.PositionStatusActive
	default:
		return domain.PositionStatusPartial
	}
}

// recomputeExecution rebuilds cost and commission totals from filled legs.
func recomputeExecution(pos *domain.Position) {
	var cost, commission float64
	for _, leg := range pos.Legs {
		commission += leg.Commission
		if leg.Status == domain.LegFillFilled && leg.FillPrice != nil && leg.FillQuantity != nil {
			cost += *leg.FillPrice * *leg.FillQuantity
		}
	}
	pos.Execution.TotalCost = cost
	pos.Execution.TotalCommission = commission
}

// estimateRealizedPnL estimates PnL from filled legs. It fails closed: any
// leg that never filled makes the estimate zero.
func estimateRealizedPnL(pos domain.Position) float64 {
	for _, leg := range pos.Legs {
		if leg.Status != domain.LegFillFilled {
			return 0
		}
	}
	return pos.Execution.ExpectedPnL - pos.Execution.TotalCommission
}

// estimateSize falls back to the thinnest leg's volume as the stake cap.
func estimateSize(opp domain.ArbitrageOpportunity) float64 {
	min := 0.0
	for i, leg := range opp.Legs {
		if i == 0 || leg.Volume < min {
			min = leg.Volume
		}
	}
	return min
}

// clonePosition deep-copies the slices and maps callers could otherwise
// alias into tracker-owned state.
func clonePosition(pos domain.Position) domain.Position {
	legs := make([]domain.LegExecution, len(pos.Legs))
	copy(legs, pos.Legs)
	pos.Legs = legs

	if pos.Risk.Sensitivity != nil {
		sens := make(map[string]float64, len(pos.Risk.Sensitivity))
		for k, v := range pos.Risk.Sensitivity {
			sens[k] = v
		}
		pos.Risk.Sensitivity = sens
	}
	if pos.Meta.Tags != nil {
		tags := make([]string, len(pos.Meta.Tags))
		copy(tags, pos.Meta.Tags)
		pos.Meta.Tags = tags
	}
	return pos
}
