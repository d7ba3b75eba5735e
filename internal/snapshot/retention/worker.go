// Package retention purges snapshot rows past their expiry. Raw
// snapshots only live for a short rolling window; daily stats are the
// durable artifact.
package retention

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/czei/themeparkhallofshame-sub001/internal/clock"
	"github.com/czei/themeparkhallofshame-sub001/internal/observability/metrics"
	snapshotdomain "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Windows snapshotdomain.WindowRepository
	Config  Config `optional:"true"`
}

type Worker struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	windows snapshotdomain.WindowRepository
	cfg     Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		db:      p.DB,
		log:     p.Log.Named("snapshot.retention"),
		clock:   p.Clock,
		windows: p.Windows,
		cfg:     p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("snapshot retention run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context) error {
	now := w.clock.Now()
	deleted := int64(0)

	for _, table := range []string{"ride_snapshots", "park_snapshots"} {
		result := w.db.WithContext(ctx).Exec(
			`DELETE FROM `+table+`
			 WHERE id IN (
			   SELECT id FROM `+table+`
			   WHERE expires_at IS NOT NULL AND expires_at < ?
			   LIMIT ?
			 )`,
			now,
			w.cfg.BatchSize,
		)
		if result.Error != nil {
			return result.Error
		}
		deleted += result.RowsAffected
	}

	metrics.Aggregation().AddRetentionDeleted(deleted)
	if remaining, err := w.windows.CountRows(ctx, w.db); err == nil {
		metrics.Aggregation().SetSnapshotRows(remaining)
	}

	if deleted > 0 {
		w.log.Info("purged expired snapshots", zap.Int64("deleted", deleted))
	}
	return nil
}
