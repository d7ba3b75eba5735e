// Package domain contains the durable aggregate rows: daily stats per
// ride and park, plus the aggregation run audit log.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// RideDailyStat is one ride's aggregate for one date under one
// metrics version. Recomputation overwrites the row in place.
type RideDailyStat struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"-"`
	RideID         snowflake.ID `gorm:"not null;uniqueIndex:ux_ride_daily_stats_key,priority:1" json:"ride_id"`
	ParkID         snowflake.ID `gorm:"not null;index" json:"park_id"`
	StatDate       time.Time    `gorm:"not null;uniqueIndex:ux_ride_daily_stats_key,priority:2;type:date" json:"stat_date"`
	MetricsVersion int          `gorm:"not null;uniqueIndex:ux_ride_daily_stats_key,priority:3" json:"metrics_version"`

	WindowStart time.Time `gorm:"not null" json:"window_start"`
	WindowEnd   time.Time `gorm:"not null" json:"window_end"`

	AvgWaitTime     *float64 `gorm:"" json:"avg_wait_time"`
	OperatingCount  int64    `gorm:"not null;default:0" json:"operating_snapshot_count"`
	DownCount       int64    `gorm:"not null;default:0" json:"down_snapshot_count"`
	DowntimeHours   float64  `gorm:"not null;default:0" json:"downtime_hours"`
	UptimePct       float64  `gorm:"not null;default:0" json:"uptime_percentage"`
	RideOperated    bool     `gorm:"not null;default:false" json:"ride_operated"`
	SnapshotCount   int64    `gorm:"not null;default:0" json:"snapshot_count"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (RideDailyStat) TableName() string { return "ride_daily_stats" }

// ParkDailyStat is one park's aggregate for one date under one
// metrics version.
type ParkDailyStat struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"-"`
	ParkID         snowflake.ID `gorm:"not null;uniqueIndex:ux_park_daily_stats_key,priority:1" json:"park_id"`
	StatDate       time.Time    `gorm:"not null;uniqueIndex:ux_park_daily_stats_key,priority:2;type:date" json:"stat_date"`
	MetricsVersion int          `gorm:"not null;uniqueIndex:ux_park_daily_stats_key,priority:3" json:"metrics_version"`

	WindowStart time.Time `gorm:"not null" json:"window_start"`
	WindowEnd   time.Time `gorm:"not null" json:"window_end"`

	ShameScore            float64  `gorm:"not null;default:0" json:"shame_score"`
	AvgWaitTime           *float64 `gorm:"" json:"avg_wait_time"`
	RidesOperatingAvg     float64  `gorm:"not null;default:0" json:"rides_operating_avg"`
	RidesDownAvg          float64  `gorm:"not null;default:0" json:"rides_down_avg"`
	WeightedDowntimeHours float64  `gorm:"not null;default:0" json:"weighted_downtime_hours"`
	EffectiveParkWeight   float64  `gorm:"not null;default:0" json:"effective_park_weight"`
	OperatingHours        float64  `gorm:"not null;default:0" json:"operating_hours"`
	SnapshotCount         int64    `gorm:"not null;default:0" json:"snapshot_count"`
	ParkWasOpen           bool     `gorm:"not null;default:false" json:"park_was_open"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (ParkDailyStat) TableName() string { return "park_daily_stats" }

// Run statuses. A run never moves out of a terminal status.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// Period types for aggregation runs.
const (
	PeriodTypeDaily = "daily"
)

// AggregationRun is the audit record of one aggregation attempt. It is
// inserted at start and updated exactly once at completion.
type AggregationRun struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	TargetDate     time.Time    `gorm:"not null;index:idx_aggregation_runs_target;type:date" json:"target_date"`
	PeriodType     string       `gorm:"type:text;not null;index:idx_aggregation_runs_target" json:"period_type"`
	MetricsVersion int          `gorm:"not null" json:"metrics_version"`

	Status      string     `gorm:"type:text;not null" json:"status"`
	StartedAt   time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt *time.Time `gorm:"" json:"completed_at"`

	RidesProcessed int     `gorm:"not null;default:0" json:"rides_processed"`
	ParksProcessed int     `gorm:"not null;default:0" json:"parks_processed"`
	EntitiesFailed int     `gorm:"not null;default:0" json:"entities_failed"`
	ErrorMessage   *string `gorm:"type:text" json:"error_message"`
	TriggeredBy    string  `gorm:"type:text;not null;default:'scheduler'" json:"triggered_by"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (AggregationRun) TableName() string { return "aggregation_runs" }

// IsTerminal reports whether the run reached a final status.
func (r AggregationRun) IsTerminal() bool {
	switch r.Status {
	case RunStatusSuccess, RunStatusPartial, RunStatusFailed:
		return true
	default:
		return false
	}
}
