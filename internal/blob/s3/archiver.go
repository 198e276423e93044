package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/syntharb/syntharb/internal/domain"
)

// Archiver implements domain.PortfolioArchiver by serialising portfolio
// export snapshots to JSON and uploading them to object storage. Each
// snapshot is written under a timestamped key so exports are immutable.
type Archiver struct {
	writer domain.BlobWriter
}

// NewArchiver creates a new Archiver that uploads through the given writer.
func NewArchiver(writer domain.BlobWriter) *Archiver {
	return &Archiver{writer: writer}
}

// ArchivePortfolio uploads an export snapshot to
// archive/portfolio/<RFC3339 timestamp>.json and returns the object key.
func (a *Archiver) ArchivePortfolio(ctx context.Context, export domain.PortfolioExport) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(export); err != nil {
		return "", fmt.Errorf("s3blob: marshal portfolio export: %w", err)
	}

	ts := export.ExportedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	path := fmt.Sprintf("archive/portfolio/%s.json", ts.UTC().Format("2006-01-02T15-04-05Z"))

	if err := a.writer.Put(ctx, path, &buf, "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive portfolio upload: %w", err)
	}
	return path, nil
}

// Compile-time interface check.
var _ domain.PortfolioArchiver = (*Archiver)(nil)
