package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrRunNotFound = errors.New("aggregation_run_not_found")
	// ErrActiveRunExists reports an InsertRun that lost the race on the
	// one-active-run-per-key unique index.
	ErrActiveRunExists = errors.New("active_aggregation_run_exists")
)

// RunFilter narrows ListRuns for the ops/audit endpoint.
type RunFilter struct {
	Status     string
	PeriodType string
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
}

// StatsRepository persists daily aggregates and run records. All stat
// writes are UPSERTs keyed by (entity, date, metrics_version) so
// recomputation overwrites instead of accumulating.
type StatsRepository interface {
	UpsertRideDaily(ctx context.Context, db *gorm.DB, stat *RideDailyStat) error
	UpsertParkDaily(ctx context.Context, db *gorm.DB, stat *ParkDailyStat) error

	RideDaily(ctx context.Context, db *gorm.DB, rideID snowflake.ID, date time.Time, version int) (*RideDailyStat, error)
	ParkDaily(ctx context.Context, db *gorm.DB, parkID snowflake.ID, date time.Time, version int) (*ParkDailyStat, error)
	RideDailyByPark(ctx context.Context, db *gorm.DB, parkID snowflake.ID, date time.Time, version int) ([]RideDailyStat, error)
	ParkDailyByDate(ctx context.Context, db *gorm.DB, date time.Time, version int) ([]ParkDailyStat, error)

	InsertRun(ctx context.Context, db *gorm.DB, run *AggregationRun) error
	CompleteRun(ctx context.Context, db *gorm.DB, runID snowflake.ID, update RunCompletion) error
	FindTerminalRun(ctx context.Context, db *gorm.DB, targetDate time.Time, periodType string, version int) (*AggregationRun, error)
	FindActiveRun(ctx context.Context, db *gorm.DB, targetDate time.Time, periodType string, version int, staleBefore time.Time) (*AggregationRun, error)
	FailStaleRuns(ctx context.Context, db *gorm.DB, targetDate time.Time, periodType string, version int, staleBefore time.Time) (int64, error)
	ListRuns(ctx context.Context, db *gorm.DB, filter RunFilter) ([]AggregationRun, error)
}

// RunCompletion carries the terminal update for a run row.
type RunCompletion struct {
	Status         string
	CompletedAt    time.Time
	RidesProcessed int
	ParksProcessed int
	EntitiesFailed int
	ErrorMessage   *string
}
