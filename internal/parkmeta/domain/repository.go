package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrParkNotFound = errors.New("park_not_found")
	ErrRideNotFound = errors.New("ride_not_found")
)

// Repository provides read access to park and ride metadata. The
// aggregation core never writes these tables.
type Repository interface {
	FindPark(ctx context.Context, db *gorm.DB, parkID snowflake.ID) (*Park, error)
	FindRide(ctx context.Context, db *gorm.DB, rideID snowflake.ID) (*Ride, error)
	ListActiveParks(ctx context.Context, db *gorm.DB) ([]Park, error)
	ListRidesByPark(ctx context.Context, db *gorm.DB, parkID snowflake.ID) ([]Ride, error)
}
