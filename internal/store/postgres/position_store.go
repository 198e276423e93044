package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syntharb/syntharb/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL. The full
// position is stored as a JSONB document alongside a few scalar columns used
// for filtering.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Create inserts a new position.
func (s *PositionStore) Create(ctx context.Context, p domain.Position) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("postgres: marshal position %s: %w", p.ID, err)
	}

	const query = `
		INSERT INTO positions (
			id, event_id, status, size, expected_pnl, realized_pnl,
			exposure, started_at, ended_at, body, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`

	_, err = s.pool.Exec(ctx, query,
		p.ID, p.Opportunity.EventID, string(p.Status),
		p.Size, p.Execution.ExpectedPnL, p.Execution.RealizedPnL,
		p.Risk.Exposure, p.Execution.StartedAt, p.Execution.EndedAt,
		body,
	)
	if err != nil {
		return fmt.Errorf("postgres: create position %s: %w", p.ID, err)
	}
	return nil
}

// Update replaces all mutable fields of a position.
func (s *PositionStore) Update(ctx context.Context, p domain.Position) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("postgres: marshal position %s: %w", p.ID, err)
	}

	const query = `
		UPDATE positions SET
			status       = $2,
			size         = $3,
			expected_pnl = $4,
			realized_pnl = $5,
			exposure     = $6,
			ended_at     = $7,
			body         = $8,
			updated_at   = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		p.ID, string(p.Status), p.Size,
		p.Execution.ExpectedPnL, p.Execution.RealizedPnL,
		p.Risk.Exposure, p.Execution.EndedAt, body,
	)
	if err != nil {
		return fmt.Errorf("postgres: update position %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a single position by its ID.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM positions WHERE id = $1`, id,
	).Scan(&body)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", id, err)
	}

	var p domain.Position
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.Position{}, fmt.Errorf("postgres: decode position %s: %w", id, err)
	}
	return p, nil
}

// ListByStatus returns positions in the given status, newest first. A zero or
// negative limit returns all matching rows.
func (s *PositionStore) ListByStatus(ctx context.Context, status domain.PositionStatus, limit int) ([]domain.Position, error) {
	query := `SELECT body FROM positions WHERE status = $1 ORDER BY started_at DESC`
	args := []any{string(status)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions by status %s: %w", status, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("postgres: scan position row: %w", err)
		}
		var p domain.Position
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("postgres: decode position row: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate positions: %w", err)
	}
	return positions, nil
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
