package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syntharb/syntharb/internal/domain"
)

// AlertStore implements domain.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates a new AlertStore backed by the given connection pool.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Insert records a newly raised alert.
func (s *AlertStore) Insert(ctx context.Context, a domain.RiskAlert) error {
	const query = `
		INSERT INTO risk_alerts (
			id, alert_type, severity, message, position_id,
			threshold, observed, raised_at, acknowledged, resolved_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		a.ID, string(a.Type), string(a.Severity), a.Message, a.PositionID,
		a.Threshold, a.Observed, a.RaisedAt, a.Acknowledged, a.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert alert %s: %w", a.ID, err)
	}
	return nil
}

// SetAcknowledged marks an alert as acknowledged.
func (s *AlertStore) SetAcknowledged(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE risk_alerts SET acknowledged = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: acknowledge alert %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetResolved records the resolution time of an alert.
func (s *AlertStore) SetResolved(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE risk_alerts SET resolved_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("postgres: resolve alert %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRecent returns the most recently raised alerts, newest first.
func (s *AlertStore) ListRecent(ctx context.Context, limit int) ([]domain.RiskAlert, error) {
	query := `
		SELECT id, alert_type, severity, message, COALESCE(position_id, ''),
		       threshold, observed, raised_at, acknowledged, resolved_at
		FROM risk_alerts ORDER BY raised_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.RiskAlert
	for rows.Next() {
		var a domain.RiskAlert
		var alertType, severity string
		if err := rows.Scan(
			&a.ID, &alertType, &severity, &a.Message, &a.PositionID,
			&a.Threshold, &a.Observed, &a.RaisedAt, &a.Acknowledged, &a.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan alert row: %w", err)
		}
		a.Type = domain.AlertType(alertType)
		a.Severity = domain.AlertSeverity(severity)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate alerts: %w", err)
	}
	return alerts, nil
}

// Compile-time interface check.
var _ domain.AlertStore = (*AlertStore)(nil)
