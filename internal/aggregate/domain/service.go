// Package domain defines the aggregation service contracts shared by
// the scheduled job, the recompute job, and the HTTP surface.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	snapshotdomain "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
)

var (
	// ErrNoSnapshots means an entity had no observations in the
	// window. Callers skip the entity; absence of data is not zero
	// downtime.
	ErrNoSnapshots = errors.New("no_snapshots_in_window")

	// ErrDependencyOrder means park aggregation ran before its rides
	// were persisted. This is a programming error and fails the run.
	ErrDependencyOrder = errors.New("ride_stats_missing_for_park")

	// ErrRunInProgress means a live RUNNING record exists for the
	// same target period.
	ErrRunInProgress = errors.New("aggregation_run_in_progress")

	ErrInvalidDateRange = errors.New("invalid_date_range")
)

// RideWindowStats is a ride's aggregate over one arbitrary window.
type RideWindowStats struct {
	RideID snowflake.ID `json:"ride_id"`
	ParkID snowflake.ID `json:"park_id"`

	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	AvgWaitTime    *float64 `json:"avg_wait_time"`
	OperatingCount int64    `json:"operating_snapshot_count"`
	DownCount      int64    `json:"down_snapshot_count"`
	DowntimeHours  float64  `json:"downtime_hours"`
	UptimePct      float64  `json:"uptime_percentage"`
	RideOperated   bool     `json:"ride_operated"`
	SnapshotCount  int64    `json:"snapshot_count"`
}

// ParkWindowStats is a park's aggregate over one arbitrary window.
type ParkWindowStats struct {
	ParkID snowflake.ID `json:"park_id"`

	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	ShameScore            float64  `json:"shame_score"`
	AvgWaitTime           *float64 `json:"avg_wait_time"`
	RidesOperatingAvg     float64  `json:"rides_operating_avg"`
	RidesDownAvg          float64  `json:"rides_down_avg"`
	WeightedDowntimeHours float64  `json:"weighted_downtime_hours"`
	EffectiveParkWeight   float64  `json:"effective_park_weight"`
	OperatingHours        float64  `json:"operating_hours"`
	SnapshotCount         int64    `json:"snapshot_count"`
	ParkWasOpen           bool     `json:"park_was_open"`
}

// RunSummary reports one aggregation run.
type RunSummary struct {
	RunID          snowflake.ID `json:"run_id,omitempty"`
	TargetDate     time.Time    `json:"target_date"`
	Status         string       `json:"status"`
	Skipped        bool         `json:"skipped"`
	RidesProcessed int          `json:"rides_processed"`
	ParksProcessed int          `json:"parks_processed"`
	EntitiesFailed int          `json:"entities_failed"`
}

// RecomputeRequest describes a backfill over [StartDate, EndDate].
type RecomputeRequest struct {
	StartDate      time.Time
	EndDate        time.Time
	MetricsVersion int
	// DryRun computes every date but persists nothing.
	DryRun bool
}

// RecomputeSummary reports a whole backfill.
type RecomputeSummary struct {
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	DryRun    bool         `json:"dry_run"`
	Dates     []RunSummary `json:"dates"`
}

// Service is the aggregation engine. One implementation serves the
// scheduled daily job, recompute, and live window queries; the
// business rules exist exactly once.
type Service interface {
	// AggregateRideWindow computes ride stats over an arbitrary
	// window directly from raw snapshots. Returns ErrNoSnapshots when
	// the ride was not observed in the window.
	AggregateRideWindow(ctx context.Context, rideID snowflake.ID, w snapshotdomain.Window) (*RideWindowStats, error)

	// AggregateParkWindow computes park stats over an arbitrary
	// window, aggregating the park's rides in-memory first.
	AggregateParkWindow(ctx context.Context, parkID snowflake.ID, w snapshotdomain.Window) (*ParkWindowStats, error)

	// RunDaily executes the idempotent daily aggregation for one
	// target date. A prior successful run makes this a no-op.
	RunDaily(ctx context.Context, targetDate time.Time) (*RunSummary, error)

	// Recompute re-runs daily aggregation over a date range with
	// UPSERT overwrite semantics.
	Recompute(ctx context.Context, req RecomputeRequest) (*RecomputeSummary, error)
}
