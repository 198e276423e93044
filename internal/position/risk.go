package position

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/syntharb/syntharb/internal/domain"
)

// Alert arming thresholds: portfolio limits alert at 90% utilisation, with
// critical severity from 95%.
const (
	alertArmRatio      = 0.90
	alertCriticalRatio = 0.95
)

// riskDecayPerHour is the hourly reduction applied to a position's VaR as it
// ages; uncertainty about fills resolves over time.
const riskDecayPerHour = 0.10

// riskDecayFloor is the lowest decay factor applied.
const riskDecayFloor = 0.5

// decayedRisk rebuilds a position's risk snapshot with time decay applied to
// the VaR figures. Exposure tracks unfilled stake: once legs fill, the
// at-risk amount is the filled cost rather than the full intended size.
func (t *Tracker) decayedRisk(pos domain.Position, now time.Time) domain.RiskSnapshot {
	age := now.Sub(pos.Meta.CreatedAt)
	factor := 1 - riskDecayPerHour*age.Hours()
	if factor < riskDecayFloor {
		factor = riskDecayFloor
	}

	exposure := pos.Size
	if pos.Status.Terminal() {
		exposure = 0
	}

	return domain.RiskSnapshot{
		Exposure: exposure,
		VaR95:    pos.Size * initialVaR95Fraction * factor,
		VaR99:    pos.Size * initialVaR99Fraction * factor,
		Sensitivity: map[string]float64{
			"return":     pos.Opportunity.Return.Percent,
			"risk_score": pos.Opportunity.Risk.Score,
			"decay":      factor,
		},
		TakenAt: now,
	}
}

// riskCycle is the periodic risk re-evaluation: refresh every non-terminal
// position's time-decayed risk, recompute metrics, then check portfolio
// thresholds. Runs single-flight via the task scheduler.
func (t *Tracker) riskCycle(ctx context.Context) {
	now := t.now()

	t.mu.Lock()
	for id, pos := range t.positions {
		if pos.Status.Terminal() {
			continue
		}
		pos = clonePosition(pos)
		pos.Risk = t.decayedRisk(pos, now)
		t.positions[id] = pos
	}
	t.recomputeMetricsLocked()
	metrics := t.metrics
	t.mu.Unlock()

	t.evaluatePortfolioAlerts(ctx, metrics)
}

// evaluatePortfolioAlerts raises exposure and VaR alerts when the portfolio
// approaches its configured limits. An unresolved alert of the same type
// suppresses re-raising on subsequent cycles.
func (t *Tracker) evaluatePortfolioAlerts(ctx context.Context, m domain.PortfolioMetrics) {
	if t.cfg.MaxPortfolioExposure > 0 {
		ratio := m.TotalExposure / t.cfg.MaxPortfolioExposure
		if ratio >= alertArmRatio {
			t.raiseAlert(ctx, domain.RiskAlert{
				Type:      domain.AlertTypeExposure,
				Severity:  severityForRatio(ratio),
				Message:   fmt.Sprintf("portfolio exposure %.2f at %.0f%% of limit %.2f", m.TotalExposure, ratio*100, t.cfg.MaxPortfolioExposure),
				Threshold: t.cfg.MaxPortfolioExposure * alertArmRatio,
				Observed:  m.TotalExposure,
			})
		}
	}
	if t.cfg.VaR95Limit > 0 {
		ratio := m.PortfolioVaR95 / t.cfg.VaR95Limit
		if ratio >= alertArmRatio {
			t.raiseAlert(ctx, domain.RiskAlert{
				Type:      domain.AlertTypeVaR,
				Severity:  severityForRatio(ratio),
				Message:   fmt.Sprintf("portfolio VaR95 %.2f at %.0f%% of limit %.2f", m.PortfolioVaR95, ratio*100, t.cfg.VaR95Limit),
				Threshold: t.cfg.VaR95Limit * alertArmRatio,
				Observed:  m.PortfolioVaR95,
			})
		}
	}
}

// evaluatePositionAlerts checks one position against the per-position
// exposure limit after a mutation.
func (t *Tracker) evaluatePositionAlerts(ctx context.Context, pos domain.Position) {
	if t.cfg.MaxPositionExposure <= 0 || pos.Status.Terminal() {
		return
	}
	ratio := pos.Risk.Exposure / t.cfg.MaxPositionExposure
	if ratio < alertArmRatio {
		return
	}
	t.raiseAlert(ctx, domain.RiskAlert{
		Type:       domain.AlertTypeExposure,
		Severity:   severityForRatio(ratio),
		Message:    fmt.Sprintf("position exposure %.2f at %.0f%% of limit %.2f", pos.Risk.Exposure, ratio*100, t.cfg.MaxPositionExposure),
		PositionID: pos.ID,
		Threshold:  t.cfg.MaxPositionExposure * alertArmRatio,
		Observed:   pos.Risk.Exposure,
	})
}

func severityForRatio(ratio float64) domain.AlertSeverity {
	switch {
	case ratio >= alertCriticalRatio:
		return domain.SeverityCritical
	case ratio >= alertArmRatio:
		return domain.SeverityHigh
	default:
		return domain.SeverityMedium
	}
}

// raiseAlert appends an alert unless an unresolved alert of the same type
// and position reference already exists. Alerts are never created
// retroactively and history is never deleted.
func (t *Tracker) raiseAlert(ctx context.Context, alert domain.RiskAlert) {
	t.alertMu.Lock()
	for _, existing := range t.alertLog {
		if existing.Type == alert.Type && existing.PositionID == alert.PositionID && !existing.Resolved() {
			t.alertMu.Unlock()
			return
		}
	}
	alert.ID = uuid.Must(uuid.NewRandom()).String()
	alert.RaisedAt = t.now()
	t.alertLog = append(t.alertLog, alert)
	t.alertMu.Unlock()

	if t.alerts != nil {
		if err := t.alerts.Insert(ctx, alert); err != nil {
			t.logger.Warn("persist alert failed",
				slog.String("alert_id", alert.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	t.bus.Emit(domain.RiskAlertRaised{Alert: alert, Timestamp: alert.RaisedAt})
	t.logger.Warn("risk alert raised",
		slog.String("alert_id", alert.ID),
		slog.String("type", string(alert.Type)),
		slog.String("severity", string(alert.Severity)),
		slog.Float64("observed", alert.Observed),
		slog.Float64("threshold", alert.Threshold),
	)
}

// AcknowledgeAlert marks an alert acknowledged. Only the acknowledgment flag
// changes; history is preserved.
func (t *Tracker) AcknowledgeAlert(ctx context.Context, alertID string) (domain.RiskAlert, error) {
	t.alertMu.Lock()
	idx := -1
	for i := range t.alertLog {
		if t.alertLog[i].ID == alertID {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.alertMu.Unlock()
		return domain.RiskAlert{}, fmt.Errorf("position: acknowledge alert %q: %w", alertID, domain.ErrNotFound)
	}
	t.alertLog[idx].Acknowledged = true
	alert := t.alertLog[idx]
	t.alertMu.Unlock()

	if t.alerts != nil {
		if err := t.alerts.SetAcknowledged(ctx, alertID); err != nil {
			t.logger.Warn("persist alert ack failed", slog.String("alert_id", alertID), slog.String("error", err.Error()))
		}
	}
	t.bus.Emit(domain.AlertAcknowledged{Alert: alert, Timestamp: t.now()})
	return alert, nil
}

// ResolveAlert stamps an alert resolved, re-arming its threshold for future
// cycles.
func (t *Tracker) ResolveAlert(ctx context.Context, alertID string) (domain.RiskAlert, error) {
	now := t.now()

	t.alertMu.Lock()
	idx := -1
	for i := range t.alertLog {
		if t.alertLog[i].ID == alertID {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.alertMu.Unlock()
		return domain.RiskAlert{}, fmt.Errorf("position: resolve alert %q: %w", alertID, domain.ErrNotFound)
	}
	t.alertLog[idx].ResolvedAt = &now
	alert := t.alertLog[idx]
	t.alertMu.Unlock()

	if t.alerts != nil {
		if err := t.alerts.SetResolved(ctx, alertID, now); err != nil {
			t.logger.Warn("persist alert resolve failed", slog.String("alert_id", alertID), slog.String("error", err.Error()))
		}
	}
	t.bus.Emit(domain.AlertResolved{Alert: alert, Timestamp: now})
	return alert, nil
}

// RiskAlerts returns alerts matching the filter, newest first.
func (t *Tracker) RiskAlerts(filter domain.AlertFilter) []domain.RiskAlert {
	t.alertMu.RLock()
	defer t.alertMu.RUnlock()

	var out []domain.RiskAlert
	for _, alert := range t.alertLog {
		if filter.Matches(alert) {
			out = append(out, alert)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
