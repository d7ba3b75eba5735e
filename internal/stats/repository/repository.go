// Package repository persists daily aggregates with UPSERT semantics
// and maintains the aggregation run log.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/czei/themeparkhallofshame-sub001/internal/stats/domain"
)

type Repository struct {
	genID *snowflake.Node
}

func Provide(genID *snowflake.Node) domain.StatsRepository {
	return &Repository{genID: genID}
}

func (r *Repository) UpsertRideDaily(ctx context.Context, db *gorm.DB, stat *domain.RideDailyStat) error {
	if stat.ID == 0 {
		stat.ID = r.genID.Generate()
	}
	stat.StatDate = dateOnly(stat.StatDate)
	now := time.Now().UTC()
	stat.CreatedAt = now
	stat.UpdatedAt = now

	// Conflicting writers race to the same key; last writer wins,
	// which is safe because recomputation is deterministic.
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ride_id"}, {Name: "stat_date"}, {Name: "metrics_version"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"window_start", "window_end", "avg_wait_time",
			"operating_count", "down_count", "downtime_hours",
			"uptime_pct", "ride_operated", "snapshot_count", "updated_at",
		}),
	}).Create(stat).Error
}

func (r *Repository) UpsertParkDaily(ctx context.Context, db *gorm.DB, stat *domain.ParkDailyStat) error {
	if stat.ID == 0 {
		stat.ID = r.genID.Generate()
	}
	stat.StatDate = dateOnly(stat.StatDate)
	now := time.Now().UTC()
	stat.CreatedAt = now
	stat.UpdatedAt = now

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "park_id"}, {Name: "stat_date"}, {Name: "metrics_version"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"window_start", "window_end", "shame_score", "avg_wait_time",
			"rides_operating_avg", "rides_down_avg", "weighted_downtime_hours",
			"effective_park_weight", "operating_hours", "snapshot_count",
			"park_was_open", "updated_at",
		}),
	}).Create(stat).Error
}

func (r *Repository) RideDaily(ctx context.Context, db *gorm.DB, rideID snowflake.ID, date time.Time, version int) (*domain.RideDailyStat, error) {
	var stat domain.RideDailyStat
	err := db.WithContext(ctx).
		Where("ride_id = ? AND stat_date = ? AND metrics_version = ?", rideID, dateOnly(date), version).
		First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

func (r *Repository) ParkDaily(ctx context.Context, db *gorm.DB, parkID snowflake.ID, date time.Time, version int) (*domain.ParkDailyStat, error) {
	var stat domain.ParkDailyStat
	err := db.WithContext(ctx).
		Where("park_id = ? AND stat_date = ? AND metrics_version = ?", parkID, dateOnly(date), version).
		First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

func (r *Repository) RideDailyByPark(ctx context.Context, db *gorm.DB, parkID snowflake.ID, date time.Time, version int) ([]domain.RideDailyStat, error) {
	var stats []domain.RideDailyStat
	err := db.WithContext(ctx).
		Where("park_id = ? AND stat_date = ? AND metrics_version = ?", parkID, dateOnly(date), version).
		Order("ride_id").
		Find(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *Repository) ParkDailyByDate(ctx context.Context, db *gorm.DB, date time.Time, version int) ([]domain.ParkDailyStat, error) {
	var stats []domain.ParkDailyStat
	err := db.WithContext(ctx).
		Where("stat_date = ? AND metrics_version = ?", dateOnly(date), version).
		Order("shame_score DESC, park_id").
		Find(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *Repository) InsertRun(ctx context.Context, db *gorm.DB, run *domain.AggregationRun) error {
	if run.ID == 0 {
		run.ID = r.genID.Generate()
	}
	run.TargetDate = dateOnly(run.TargetDate)
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now

	// The partial unique index over RUNNING rows makes this insert the
	// arbiter between concurrent triggers for the same key.
	result := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "target_date"}, {Name: "period_type"}, {Name: "metrics_version"},
		},
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "status = 'running'"},
		}},
		DoNothing: true,
	}).Create(run)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrActiveRunExists
	}
	return nil
}

// FailStaleRuns retires RUNNING rows whose worker never completed
// them, so a fresh run can claim the active-run index.
func (r *Repository) FailStaleRuns(ctx context.Context, db *gorm.DB, targetDate time.Time, periodType string, version int, staleBefore time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE aggregation_runs
		 SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
		 WHERE target_date = ? AND period_type = ? AND metrics_version = ?
		   AND status = ? AND started_at < ?`,
		domain.RunStatusFailed,
		"abandoned before completion",
		time.Now().UTC(),
		time.Now().UTC(),
		dateOnly(targetDate),
		periodType,
		version,
		domain.RunStatusRunning,
		staleBefore,
	)
	return result.RowsAffected, result.Error
}

func (r *Repository) CompleteRun(ctx context.Context, db *gorm.DB, runID snowflake.ID, update domain.RunCompletion) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE aggregation_runs
		 SET status = ?, completed_at = ?, rides_processed = ?,
		     parks_processed = ?, entities_failed = ?, error_message = ?,
		     updated_at = ?
		 WHERE id = ? AND status = ?`,
		update.Status,
		update.CompletedAt,
		update.RidesProcessed,
		update.ParksProcessed,
		update.EntitiesFailed,
		update.ErrorMessage,
		time.Now().UTC(),
		runID,
		domain.RunStatusRunning,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *Repository) FindTerminalRun(ctx context.Context, db *gorm.DB, targetDate time.Time, periodType string, version int) (*domain.AggregationRun, error) {
	var run domain.AggregationRun
	err := db.WithContext(ctx).
		Where("target_date = ? AND period_type = ? AND metrics_version = ? AND status = ?",
			dateOnly(targetDate), periodType, version, domain.RunStatusSuccess).
		Order("started_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *Repository) FindActiveRun(ctx context.Context, db *gorm.DB, targetDate time.Time, periodType string, version int, staleBefore time.Time) (*domain.AggregationRun, error) {
	var run domain.AggregationRun
	err := db.WithContext(ctx).
		Where("target_date = ? AND period_type = ? AND metrics_version = ? AND status = ? AND started_at >= ?",
			dateOnly(targetDate), periodType, version, domain.RunStatusRunning, staleBefore).
		Order("started_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *Repository) ListRuns(ctx context.Context, db *gorm.DB, filter domain.RunFilter) ([]domain.AggregationRun, error) {
	query := db.WithContext(ctx).Model(&domain.AggregationRun{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PeriodType != "" {
		query = query.Where("period_type = ?", filter.PeriodType)
	}
	if filter.StartDate != nil {
		query = query.Where("target_date >= ?", dateOnly(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query = query.Where("target_date <= ?", dateOnly(*filter.EndDate))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var runs []domain.AggregationRun
	if err := query.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func dateOnly(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
