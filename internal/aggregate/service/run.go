package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	aggregatedomain "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/domain"
	"github.com/czei/themeparkhallofshame-sub001/internal/events"
	"github.com/czei/themeparkhallofshame-sub001/internal/observability/metrics"
	"github.com/czei/themeparkhallofshame-sub001/internal/runcontext"
	snapshotdomain "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
	statsdomain "github.com/czei/themeparkhallofshame-sub001/internal/stats/domain"
)

type runOptions struct {
	// skipIfSucceeded enables the idempotency no-op on a prior
	// successful run. Recompute disables it to force overwrite.
	skipIfSucceeded bool
	// persist disables all writes for dry runs.
	persist bool
	version int
}

// RunDaily executes the daily aggregation state machine for one date:
// RUNNING -> {SUCCESS, PARTIAL, FAILED}, with a no-op when a prior
// SUCCESS exists for the same (date, period, version).
func (s *Service) RunDaily(ctx context.Context, targetDate time.Time) (*aggregatedomain.RunSummary, error) {
	return s.runForDate(ctx, targetDate, runOptions{
		skipIfSucceeded: true,
		persist:         true,
		version:         s.metricsVersion,
	})
}

func (s *Service) runForDate(ctx context.Context, targetDate time.Time, opts runOptions) (*aggregatedomain.RunSummary, error) {
	w := snapshotdomain.Day(targetDate)
	now := s.clock.Now()
	log := s.log.With(
		zap.Time("target_date", w.Start),
		zap.Int("metrics_version", opts.version),
		zap.Bool("persist", opts.persist),
	)

	if opts.skipIfSucceeded {
		prior, err := s.stats.FindTerminalRun(ctx, s.db, w.Start, statsdomain.PeriodTypeDaily, opts.version)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			log.Info("aggregation already succeeded, skipping",
				zap.String("run_id", prior.ID.String()))
			metrics.Aggregation().IncRun("skipped")
			return &aggregatedomain.RunSummary{
				RunID:          prior.ID,
				TargetDate:     w.Start,
				Status:         prior.Status,
				Skipped:        true,
				RidesProcessed: prior.RidesProcessed,
				ParksProcessed: prior.ParksProcessed,
				EntitiesFailed: prior.EntitiesFailed,
			}, nil
		}
	}

	summary := &aggregatedomain.RunSummary{TargetDate: w.Start}

	var run *statsdomain.AggregationRun
	if opts.persist {
		staleBefore := now.Add(-s.runStaleAfter)
		active, err := s.stats.FindActiveRun(ctx, s.db, w.Start, statsdomain.PeriodTypeDaily, opts.version, staleBefore)
		if err != nil {
			return nil, err
		}
		if active != nil {
			return nil, aggregatedomain.ErrRunInProgress
		}

		// A crashed worker leaves its row RUNNING forever. Retire such
		// rows so the partial unique index lets the new run in.
		expired, err := s.stats.FailStaleRuns(ctx, s.db, w.Start, statsdomain.PeriodTypeDaily, opts.version, staleBefore)
		if err != nil {
			return nil, err
		}
		if expired > 0 {
			log.Warn("retired stale running rows", zap.Int64("count", expired))
		}

		run = &statsdomain.AggregationRun{
			TargetDate:     w.Start,
			PeriodType:     statsdomain.PeriodTypeDaily,
			MetricsVersion: opts.version,
			Status:         statsdomain.RunStatusRunning,
			StartedAt:      now,
			TriggeredBy:    runcontext.TriggerFromContext(ctx),
		}
		if err := s.stats.InsertRun(ctx, s.db, run); err != nil {
			// A concurrent trigger won the insert race on the active-run
			// index between our check and our write.
			if errors.Is(err, statsdomain.ErrActiveRunExists) {
				return nil, aggregatedomain.ErrRunInProgress
			}
			return nil, err
		}
		summary.RunID = run.ID
	}

	var (
		ridesProcessed int
		parksProcessed int
		failed         int
		fatal          error
	)

	// Completion must happen even when a phase bails out early; a run
	// abandoned in RUNNING would block reruns until the stale cutoff.
	if opts.persist {
		defer func() {
			// The run may have died because ctx itself was canceled;
			// the terminal UPDATE must still land or the row would sit
			// RUNNING until the stale cutoff.
			doneCtx := context.WithoutCancel(ctx)
			status := runStatusFor(fatal, failed)
			completion := statsdomain.RunCompletion{
				Status:         status,
				CompletedAt:    s.clock.Now(),
				RidesProcessed: ridesProcessed,
				ParksProcessed: parksProcessed,
				EntitiesFailed: failed,
			}
			if message := runErrorMessage(fatal, failed); message != "" {
				completion.ErrorMessage = &message
			}
			if err := s.stats.CompleteRun(doneCtx, s.db, run.ID, completion); err != nil {
				log.Error("failed to complete aggregation run", zap.Error(err))
			}

			summary.Status = status
			summary.RidesProcessed = ridesProcessed
			summary.ParksProcessed = parksProcessed
			summary.EntitiesFailed = failed

			metrics.Aggregation().IncRun(status)
			metrics.Aggregation().ObserveRunDuration(statsdomain.PeriodTypeDaily, s.clock.Now().Sub(now))
			s.publishRunEvent(doneCtx, run.ID, w.Start, status, opts.version, ridesProcessed, parksProcessed)
		}()
	}

	// Phase 1: every ride observed in the window.
	rideIDs, err := s.windows.RideIDsWithSnapshots(ctx, s.db, nil, w)
	if err != nil {
		fatal = err
		return summary, err
	}
	for _, rideID := range rideIDs {
		stat, err := s.AggregateRideWindow(ctx, rideID, w)
		if errors.Is(err, aggregatedomain.ErrNoSnapshots) {
			metrics.Aggregation().IncEntity("ride", "skipped")
			continue
		}
		if err != nil {
			failed++
			metrics.Aggregation().IncEntity("ride", "failed")
			log.Warn("ride aggregation failed",
				zap.String("ride_id", rideID.String()), zap.Error(err))
			continue
		}
		if opts.persist {
			if err := s.stats.UpsertRideDaily(ctx, s.db, rideDailyFromWindow(stat, w.Start, opts.version)); err != nil {
				failed++
				metrics.Aggregation().IncEntity("ride", "failed")
				log.Warn("ride stat persistence failed",
					zap.String("ride_id", rideID.String()), zap.Error(err))
				continue
			}
		}
		ridesProcessed++
		metrics.Aggregation().IncEntity("ride", "success")
	}
	ridesFailed := failed

	// Phase 2: every park observed in the window. Runs strictly after
	// phase 1 because park numbers are read from ride results.
	parkIDs, err := s.windows.ParkIDsWithSnapshots(ctx, s.db, w)
	if err != nil {
		fatal = err
		return summary, err
	}
	for _, parkID := range parkIDs {
		stat, err := s.aggregateParkForRun(ctx, parkID, w, opts, ridesFailed)
		if errors.Is(err, aggregatedomain.ErrNoSnapshots) {
			metrics.Aggregation().IncEntity("park", "skipped")
			continue
		}
		if errors.Is(err, aggregatedomain.ErrDependencyOrder) {
			fatal = err
			log.Error("park aggregated before its rides",
				zap.String("park_id", parkID.String()))
			return summary, err
		}
		if err != nil {
			failed++
			metrics.Aggregation().IncEntity("park", "failed")
			log.Warn("park aggregation failed",
				zap.String("park_id", parkID.String()), zap.Error(err))
			continue
		}
		if opts.persist {
			if err := s.stats.UpsertParkDaily(ctx, s.db, parkDailyFromWindow(stat, w.Start, opts.version)); err != nil {
				failed++
				metrics.Aggregation().IncEntity("park", "failed")
				log.Warn("park stat persistence failed",
					zap.String("park_id", parkID.String()), zap.Error(err))
				continue
			}
		}
		parksProcessed++
		metrics.Aggregation().IncEntity("park", "success")
	}

	if !opts.persist {
		summary.Status = runStatusFor(nil, failed)
		summary.RidesProcessed = ridesProcessed
		summary.ParksProcessed = parksProcessed
		summary.EntitiesFailed = failed
	}

	log.Info("aggregation run finished",
		zap.Int("rides", ridesProcessed),
		zap.Int("parks", parksProcessed),
		zap.Int("failed", failed),
	)
	return summary, nil
}

// aggregateParkForRun builds park stats from the persisted ride rows
// of the same run, falling back to in-memory ride aggregation for dry
// runs where nothing was persisted.
func (s *Service) aggregateParkForRun(
	ctx context.Context,
	parkID snowflake.ID,
	w snapshotdomain.Window,
	opts runOptions,
	ridesFailed int,
) (*aggregatedomain.ParkWindowStats, error) {
	if !opts.persist {
		return s.AggregateParkWindow(ctx, parkID, w)
	}

	parkSnaps, err := s.windows.ParkWindow(ctx, s.db, parkID, w)
	if err != nil {
		return nil, err
	}
	if len(parkSnaps) == 0 {
		return nil, aggregatedomain.ErrNoSnapshots
	}

	rideRows, err := s.stats.RideDailyByPark(ctx, s.db, parkID, w.Start, opts.version)
	if err != nil {
		return nil, err
	}
	if len(rideRows) == 0 {
		rideIDs, err := s.windows.RideIDsWithSnapshots(ctx, s.db, &parkID, w)
		if err != nil {
			return nil, err
		}
		// Rides were observed but none were persisted. If phase 1
		// reported failures this is an entity failure; otherwise the
		// ordering contract was broken.
		if len(rideIDs) > 0 {
			if ridesFailed > 0 {
				return nil, fmt.Errorf("park %s: all ride aggregations failed", parkID)
			}
			return nil, aggregatedomain.ErrDependencyOrder
		}
	}

	rideStats := make([]aggregatedomain.RideWindowStats, 0, len(rideRows))
	for _, row := range rideRows {
		rideStats = append(rideStats, rideWindowFromDaily(row))
	}
	return s.buildParkStats(ctx, parkID, w, parkSnaps, rideStats)
}

func (s *Service) publishRunEvent(ctx context.Context, runID snowflake.ID, date time.Time, status string, version, rides, parks int) {
	eventType := events.EventAggregationCompleted
	if status == statsdomain.RunStatusFailed {
		eventType = events.EventAggregationFailed
	}
	payload := events.AggregationCompletedPayload{
		RunID:          runID.String(),
		TargetDate:     date.Format("2006-01-02"),
		PeriodType:     statsdomain.PeriodTypeDaily,
		Status:         status,
		MetricsVersion: version,
		RidesProcessed: rides,
		ParksProcessed: parks,
	}
	err := s.outbox.Publish(ctx, events.Event{
		Type:      eventType,
		Payload:   payload.ToMap(),
		DedupeKey: fmt.Sprintf("%s:%s:%d:%s", eventType, payload.TargetDate, version, runID),
	})
	if err != nil {
		s.log.Warn("failed to publish run event", zap.Error(err))
	}
}

func runStatusFor(fatal error, failed int) string {
	switch {
	case fatal != nil:
		return statsdomain.RunStatusFailed
	case failed > 0:
		return statsdomain.RunStatusPartial
	default:
		return statsdomain.RunStatusSuccess
	}
}

func runErrorMessage(fatal error, failed int) string {
	if fatal != nil {
		return fatal.Error()
	}
	if failed > 0 {
		return fmt.Sprintf("%d entity aggregations failed", failed)
	}
	return ""
}
