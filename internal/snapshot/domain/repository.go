package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Window is a half-open [Start, End) UTC interval. Snapshots recorded
// exactly at End belong to the next window.
type Window struct {
	Start time.Time
	End   time.Time
}

// Day returns the daily window containing t, in UTC.
func Day(t time.Time) Window {
	start := t.UTC().Truncate(24 * time.Hour)
	return Window{Start: start, End: start.Add(24 * time.Hour)}
}

// Duration returns the window width.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Contains reports whether t falls inside the half-open interval.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// JoinedRideSnapshot is a ride snapshot joined against the park
// snapshot recorded at the same instant.
type JoinedRideSnapshot struct {
	RideID          snowflake.ID
	ParkID          snowflake.ID
	RecordedAt      time.Time
	Status          *RideStatus
	ComputedIsOpen  bool
	WaitTime        *int
	ParkAppearsOpen bool
}

// InstantCount is the number of rides operating and down at one
// snapshot instant, used for park-level per-instant averages.
type InstantCount struct {
	RecordedAt      time.Time
	OperatingCount  int64
	DownCount       int64
	ParkAppearsOpen bool
}

// WindowRepository is the time-window query engine: aggregate reads
// over arbitrary [start, end) ranges, backed by the composite
// (entity_id, recorded_at) indexes.
type WindowRepository interface {
	// RideWindow returns the ride's snapshots in the window joined
	// against park snapshots at matching timestamps, ordered by time.
	RideWindow(ctx context.Context, db *gorm.DB, rideID snowflake.ID, w Window) ([]JoinedRideSnapshot, error)

	// ParkWindow returns the park's own snapshots in the window.
	ParkWindow(ctx context.Context, db *gorm.DB, parkID snowflake.ID, w Window) ([]ParkSnapshot, error)

	// RideIDsWithSnapshots lists distinct rides that have at least one
	// snapshot in the window, optionally scoped to one park.
	RideIDsWithSnapshots(ctx context.Context, db *gorm.DB, parkID *snowflake.ID, w Window) ([]snowflake.ID, error)

	// ParkIDsWithSnapshots lists distinct parks observed in the window.
	ParkIDsWithSnapshots(ctx context.Context, db *gorm.DB, w Window) ([]snowflake.ID, error)

	// InstantCounts groups the park's ride snapshots by instant and
	// counts operating/down rides per instant.
	InstantCounts(ctx context.Context, db *gorm.DB, parkID snowflake.ID, downStatuses []RideStatus, w Window) ([]InstantCount, error)

	// CountRows reports total retained snapshot rows, for monitoring.
	CountRows(ctx context.Context, db *gorm.DB) (int64, error)
}
