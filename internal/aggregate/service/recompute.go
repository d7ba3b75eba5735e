package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	aggregatedomain "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/domain"
	"github.com/czei/themeparkhallofshame-sub001/internal/events"
	"github.com/czei/themeparkhallofshame-sub001/internal/observability/metrics"
	"github.com/czei/themeparkhallofshame-sub001/internal/runcontext"
	snapshotdomain "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
	statsdomain "github.com/czei/themeparkhallofshame-sub001/internal/stats/domain"
)

// Recompute re-runs the daily aggregation for every date in
// [StartDate, EndDate], bypassing the prior-success shortcut so the
// UPSERTs overwrite existing rows. Dates are isolated: one failed date
// does not stop the rest of the range.
func (s *Service) Recompute(ctx context.Context, req aggregatedomain.RecomputeRequest) (*aggregatedomain.RecomputeSummary, error) {
	start := snapshotdomain.Day(req.StartDate).Start
	end := snapshotdomain.Day(req.EndDate).Start
	if end.Before(start) {
		return nil, aggregatedomain.ErrInvalidDateRange
	}

	version := req.MetricsVersion
	if version == 0 {
		version = s.metricsVersion
	}

	ctx = runcontext.WithTrigger(ctx, runcontext.TriggerRecompute)
	log := s.log.With(
		zap.Time("start_date", start),
		zap.Time("end_date", end),
		zap.Int("metrics_version", version),
		zap.Bool("dry_run", req.DryRun),
	)
	log.Info("recompute starting")

	summary := &aggregatedomain.RecomputeSummary{
		StartDate: start,
		EndDate:   end,
		DryRun:    req.DryRun,
	}

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		runSummary, err := s.runForDate(ctx, date, runOptions{
			skipIfSucceeded: false,
			persist:         !req.DryRun,
			version:         version,
		})
		if err != nil {
			log.Warn("recompute date failed",
				zap.Time("date", date), zap.Error(err))
			metrics.Aggregation().IncRecomputeDate("failed")
			summary.Dates = append(summary.Dates, aggregatedomain.RunSummary{
				TargetDate: date,
				Status:     statsdomain.RunStatusFailed,
			})
			continue
		}
		metrics.Aggregation().IncRecomputeDate(runSummary.Status)
		summary.Dates = append(summary.Dates, *runSummary)
	}

	if !req.DryRun {
		s.publishRecomputeEvent(ctx, summary, version)
	}
	log.Info("recompute finished", zap.Int("dates", len(summary.Dates)))
	return summary, nil
}

func (s *Service) publishRecomputeEvent(ctx context.Context, summary *aggregatedomain.RecomputeSummary, version int) {
	failed := 0
	for _, d := range summary.Dates {
		if d.Status == statsdomain.RunStatusFailed {
			failed++
		}
	}
	start := summary.StartDate.Format("2006-01-02")
	end := summary.EndDate.Format("2006-01-02")
	err := s.outbox.Publish(ctx, events.Event{
		Type: events.EventRecomputeCompleted,
		Payload: map[string]any{
			"start_date":      start,
			"end_date":        end,
			"metrics_version": version,
			"dates_total":     len(summary.Dates),
			"dates_failed":    failed,
		},
		DedupeKey: fmt.Sprintf("%s:%s:%s:%d:%d", events.EventRecomputeCompleted, start, end, version, s.clock.Now().Unix()),
	})
	if err != nil {
		s.log.Warn("failed to publish recompute event", zap.Error(err))
	}
}
