package s3blob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/syntharb/syntharb/internal/domain"
)

type captureWriter struct {
	path        string
	contentType string
	data        []byte
	err         error
}

func (c *captureWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if c.err != nil {
		return c.err
	}
	c.path = path
	c.contentType = contentType
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	c.data = body
	return nil
}

func TestArchivePortfolio(t *testing.T) {
	ctx := context.Background()

	t.Run("timestamped key and json body", func(t *testing.T) {
		w := &captureWriter{}
		a := NewArchiver(w)

		export := domain.PortfolioExport{
			Metrics:    domain.PortfolioMetrics{TotalExposure: 30_000},
			ExportedAt: time.Date(2026, 3, 14, 19, 30, 5, 0, time.UTC),
		}
		path, err := a.ArchivePortfolio(ctx, export)
		if err != nil {
			t.Fatalf("archive: %v", err)
		}
		want := "archive/portfolio/2026-03-14T19-30-05Z.json"
		if path != want {
			t.Errorf("path = %q, want %q", path, want)
		}
		if w.path != want {
			t.Errorf("uploaded path = %q, want %q", w.path, want)
		}
		if w.contentType != "application/json" {
			t.Errorf("content type = %q", w.contentType)
		}

		var decoded domain.PortfolioExport
		if err := json.Unmarshal(w.data, &decoded); err != nil {
			t.Fatalf("unmarshal uploaded body: %v", err)
		}
		if decoded.Metrics.TotalExposure != 30_000 {
			t.Errorf("round-tripped exposure = %.2f", decoded.Metrics.TotalExposure)
		}
		if !decoded.ExportedAt.Equal(export.ExportedAt) {
			t.Errorf("round-tripped timestamp = %v", decoded.ExportedAt)
		}
	})

	t.Run("upload failure propagates", func(t *testing.T) {
		w := &captureWriter{err: errors.New("bucket unreachable")}
		a := NewArchiver(w)
		if _, err := a.ArchivePortfolio(ctx, domain.PortfolioExport{ExportedAt: time.Now()}); err == nil {
			t.Fatal("expected an upload error")
		}
	})
}
