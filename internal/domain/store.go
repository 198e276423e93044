package domain

import (
	"context"
	"io"
	"time"
)

// PositionStore persists position history. The core works entirely in memory;
// implementations are injected adapters called on add/close. No schema is
// mandated here.
type PositionStore interface {
	Create(ctx context.Context, pos Position) error
	Update(ctx context.Context, pos Position) error
	GetByID(ctx context.Context, id string) (Position, error)
	ListByStatus(ctx context.Context, status PositionStatus, limit int) ([]Position, error)
}

// AlertStore persists the append-only risk-alert history.
type AlertStore interface {
	Insert(ctx context.Context, alert RiskAlert) error
	SetAcknowledged(ctx context.Context, id string) error
	SetResolved(ctx context.Context, id string, at time.Time) error
	ListRecent(ctx context.Context, limit int) ([]RiskAlert, error)
}

// SignalBus mirrors core events out of process: PublishEvent for ephemeral
// pub/sub fan-out, AppendEvent for durable ordered delivery that external
// consumers replay on their own cursor.
type SignalBus interface {
	PublishEvent(ctx context.Context, channel string, ev Event) error
	AppendEvent(ctx context.Context, stream string, ev Event) error
}

// BlobWriter uploads a blob to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// PortfolioArchiver durably records portfolio export snapshots.
type PortfolioArchiver interface {
	ArchivePortfolio(ctx context.Context, export PortfolioExport) (string, error)
}
