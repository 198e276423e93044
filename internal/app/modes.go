package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syntharb/syntharb/internal/domain"
	"github.com/syntharb/syntharb/internal/feed"
	"github.com/syntharb/syntharb/internal/position"
)

// archiveInterval is how often the portfolio snapshot is uploaded in full mode.
const archiveInterval = time.Hour

// MonitorMode runs detection only: the feed ingests snapshots into the stream
// buffer, the scan cycle surfaces opportunities, and immediate opportunities
// are forwarded to the notifier. Nothing is tracked.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	deps.Buffer.Start(ctx)
	defer deps.Buffer.Stop()

	a.subscribeNotifications(ctx, deps)

	if a.cfg.Feed.Enabled {
		wsFeed := feed.NewWSFeed(feed.Config{
			URL:          a.cfg.Feed.URL,
			ReconnectMin: a.cfg.Feed.ReconnectMin.Duration,
			ReconnectMax: a.cfg.Feed.ReconnectMax.Duration,
		}, deps.Buffer, a.logger)
		g.Go(func() error {
			return wsFeed.Run(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})

	return g.Wait()
}

// TrackMode runs detection plus position tracking. Positions are added by
// external callers through the tracker API; the risk cycle and alerting run
// continuously.
func (a *App) TrackMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting track mode")

	deps.Tracker.Start(ctx)
	defer deps.Tracker.Stop()

	return a.MonitorMode(ctx, deps)
}

// FullMode runs everything: detection, tracking, automatic position entry on
// imminent opportunities, and periodic portfolio archival when object storage
// is configured.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	deps.Dispatcher.Subscribe("auto-entry", func(ev domain.Event) {
		imm, ok := ev.(domain.ImmediateOpportunity)
		if !ok {
			return
		}
		pos, err := deps.Tracker.AddPosition(ctx, imm.Opportunity.Opportunity, position.AddOptions{
			Notes: fmt.Sprintf("auto-entry %s:%s", imm.Opportunity.PeriodA, imm.Opportunity.PeriodB),
			Tags:  []string{"auto"},
		})
		if err != nil {
			a.logger.WarnContext(ctx, "auto entry rejected",
				slog.String("opportunity_id", imm.Opportunity.Opportunity.ID),
				slog.String("error", err.Error()),
			)
			return
		}
		a.logger.InfoContext(ctx, "position opened",
			slog.String("position_id", pos.ID),
			slog.Float64("size", pos.Size),
		)
	})
	defer deps.Dispatcher.Unsubscribe("auto-entry")

	if deps.Archiver != nil {
		go a.archiveLoop(ctx, deps)
	}

	return a.TrackMode(ctx, deps)
}

// archiveLoop uploads a portfolio export snapshot on a fixed interval until
// the context is cancelled.
func (a *App) archiveLoop(ctx context.Context, deps *Dependencies) {
	ticker := time.NewTicker(archiveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			export := deps.Tracker.ExportPortfolio()
			path, err := deps.Archiver.ArchivePortfolio(ctx, export)
			if err != nil {
				a.logger.WarnContext(ctx, "portfolio archive failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			a.logger.InfoContext(ctx, "portfolio archived",
				slog.String("path", path),
				slog.Int("positions", len(export.Positions)),
			)
		}
	}
}

// subscribeNotifications forwards imminent opportunities and risk alerts to
// the configured notification channels.
func (a *App) subscribeNotifications(ctx context.Context, deps *Dependencies) {
	deps.Dispatcher.Subscribe("notifier", func(ev domain.Event) {
		switch e := ev.(type) {
		case domain.ImmediateOpportunity:
			opp := e.Opportunity.Opportunity
			title := fmt.Sprintf("Opportunity %s/%s", e.Opportunity.PeriodA, e.Opportunity.PeriodB)
			msg := fmt.Sprintf("event %s: %.2f%% expected return across %d venues, optimal at %s",
				opp.EventID,
				opp.Return.Percent*100,
				len(opp.Venues),
				e.Opportunity.Window.Optimal.Format(time.RFC3339),
			)
			_ = deps.Notifier.Notify(ctx, "opportunity", title, msg)
		case domain.RiskAlertRaised:
			title := fmt.Sprintf("Risk alert: %s (%s)", e.Alert.Type, e.Alert.Severity)
			_ = deps.Notifier.Notify(ctx, "risk_alert", title, e.Alert.Message)
		case domain.PositionClosed:
			title := fmt.Sprintf("Position closed: %s", e.Position.ID)
			var pnl float64
			if e.Position.Execution.RealizedPnL != nil {
				pnl = *e.Position.Execution.RealizedPnL
			}
			msg := fmt.Sprintf("reason %s, realized PnL %.2f, held %s",
				e.Reason, pnl, e.Position.HoldingTime)
			_ = deps.Notifier.Notify(ctx, "position_closed", title, msg)
		}
	})
}
