// Package domain contains persistence models for raw status snapshots.
// Rows are written by the external collector and are read-only here.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// RideStatus values reported by upstream park APIs.
type RideStatus string

const (
	StatusOperating     RideStatus = "OPERATING"
	StatusDown          RideStatus = "DOWN"
	StatusClosed        RideStatus = "CLOSED"
	StatusRefurbishment RideStatus = "REFURBISHMENT"
)

// RideSnapshot is one observation of one ride. The composite
// (ride_id, recorded_at) index is the backbone of every windowed
// query; without it window scans degrade to full table scans.
type RideSnapshot struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	RideID snowflake.ID `gorm:"not null;index:idx_ride_snapshots_ride_time,priority:1" json:"ride_id"`
	// ParkID is denormalized from the ride so park-wide window scans
	// skip the join against rides.
	ParkID     snowflake.ID `gorm:"not null;index:idx_ride_snapshots_park_time,priority:1" json:"park_id"`
	RecordedAt time.Time    `gorm:"not null;index:idx_ride_snapshots_ride_time,priority:2;index:idx_ride_snapshots_park_time,priority:2" json:"recorded_at"`
	Status     *RideStatus  `gorm:"type:text" json:"status"`
	// ComputedIsOpen is true when status is OPERATING or a positive
	// wait time was reported regardless of the status flag. The wait
	// time override is preserved upstream behavior, not a bug.
	ComputedIsOpen bool              `gorm:"not null;default:false" json:"computed_is_open"`
	WaitTime       *int              `gorm:"" json:"wait_time"`
	ExpiresAt      *time.Time        `gorm:"index" json:"-"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"-"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (RideSnapshot) TableName() string { return "ride_snapshots" }

// IsOperating reports whether this snapshot counts as in service.
func (s RideSnapshot) IsOperating() bool {
	if s.ComputedIsOpen {
		return true
	}
	return s.Status != nil && *s.Status == StatusOperating
}

// ParkSnapshot is one observation of park-wide activity.
type ParkSnapshot struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ParkID     snowflake.ID `gorm:"not null;index:idx_park_snapshots_park_time,priority:1" json:"park_id"`
	RecordedAt time.Time    `gorm:"not null;index:idx_park_snapshots_park_time,priority:2" json:"recorded_at"`
	// ParkAppearsOpen is derived by the collector: true when at least
	// half of the park's tracked rides showed as operating.
	ParkAppearsOpen bool       `gorm:"not null;default:false" json:"park_appears_open"`
	RidesOperating  int        `gorm:"not null;default:0" json:"rides_operating"`
	RidesTotal      int        `gorm:"not null;default:0" json:"rides_total"`
	ExpiresAt       *time.Time `gorm:"index" json:"-"`
	CreatedAt       time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (ParkSnapshot) TableName() string { return "park_snapshots" }
