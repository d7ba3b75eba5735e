// Package job runs the scheduled daily aggregation. Each tick it
// walks the last few dates and triggers RunDaily for each; runs that
// already succeeded are skipped by the engine, so ticks are cheap.
package job

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	aggregatedomain "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/domain"
	"github.com/czei/themeparkhallofshame-sub001/internal/clock"
	"github.com/czei/themeparkhallofshame-sub001/internal/runcontext"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Service aggregatedomain.Service
	Config  Config `optional:"true"`
}

type Worker struct {
	log     *zap.Logger
	clock   clock.Clock
	service aggregatedomain.Service
	cfg     Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:     p.Log.Named("aggregate.job"),
		clock:   p.Clock,
		service: p.Service,
		cfg:     p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("scheduled aggregation tick failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce aggregates yesterday plus any recent dates still missing a
// successful run. Today is never aggregated; its window is still open.
func (w *Worker) RunOnce(ctx context.Context) error {
	ctx = runcontext.WithTrigger(ctx, runcontext.TriggerScheduler)
	now := w.clock.Now()

	var firstErr error
	for back := w.cfg.CatchUpDays; back >= 1; back-- {
		targetDate := now.AddDate(0, 0, -back)
		summary, err := w.service.RunDaily(ctx, targetDate)
		if errors.Is(err, aggregatedomain.ErrRunInProgress) {
			w.log.Info("aggregation already running elsewhere",
				zap.Time("target_date", targetDate))
			continue
		}
		if err != nil {
			w.log.Warn("daily aggregation failed",
				zap.Time("target_date", targetDate), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !summary.Skipped {
			w.log.Info("daily aggregation completed",
				zap.Time("target_date", summary.TargetDate),
				zap.String("status", summary.Status),
				zap.Int("rides", summary.RidesProcessed),
				zap.Int("parks", summary.ParksProcessed),
			)
		}
	}
	return firstErr
}
