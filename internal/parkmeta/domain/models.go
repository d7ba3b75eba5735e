// Package domain contains the read-only park and ride metadata owned
// by the classification subsystem.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tier bounds and the fallback for unclassified rides.
const (
	TierFlagship = 1
	TierMajor    = 2
	TierMinor    = 3

	DefaultTier = TierMajor
)

// Park identifies an operator and drives classifier rule selection.
type Park struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Slug        string       `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Timezone    string       `gorm:"type:text;not null;default:'UTC'" json:"timezone"`
	IsDisney    bool         `gorm:"not null;default:false" json:"is_disney"`
	IsUniversal bool         `gorm:"not null;default:false" json:"is_universal"`
	Active      bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Park) TableName() string { return "parks" }

// Ride carries the static tier classification used to weight downtime.
type Ride struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ParkID    snowflake.ID `gorm:"not null;index" json:"park_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Tier      int          `gorm:"not null;default:2" json:"tier"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Ride) TableName() string { return "rides" }

// TierWeight maps a tier to its downtime weight. Tier 1 (flagship)
// rides weigh heaviest; out-of-range tiers fall back to the default.
func TierWeight(tier int) float64 {
	switch tier {
	case TierFlagship:
		return 3.0
	case TierMajor:
		return 2.0
	case TierMinor:
		return 1.0
	default:
		return TierWeight(DefaultTier)
	}
}

// Weight returns the ride's effective tier weight.
func (r Ride) Weight() float64 { return TierWeight(r.Tier) }
