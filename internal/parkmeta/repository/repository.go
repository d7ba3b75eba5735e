// Package repository implements park metadata lookups with a small
// TTL cache in front of the database.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/czei/themeparkhallofshame-sub001/internal/cache"
	"github.com/czei/themeparkhallofshame-sub001/internal/parkmeta/domain"
)

const metadataTTL = 5 * time.Minute

type Repository struct {
	parks cache.Cache[snowflake.ID, *domain.Park]
	rides cache.Cache[snowflake.ID, *domain.Ride]
}

func Provide() domain.Repository {
	return &Repository{
		parks: cache.NewParkResolverCache[snowflake.ID, *domain.Park](),
		rides: cache.NewParkResolverCache[snowflake.ID, *domain.Ride](),
	}
}

func (r *Repository) FindPark(ctx context.Context, db *gorm.DB, parkID snowflake.ID) (*domain.Park, error) {
	if park, ok := r.parks.Get(parkID); ok {
		return park, nil
	}

	var park domain.Park
	err := db.WithContext(ctx).First(&park, "id = ?", parkID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrParkNotFound
	}
	if err != nil {
		return nil, err
	}
	r.parks.Set(parkID, &park, metadataTTL)
	return &park, nil
}

func (r *Repository) FindRide(ctx context.Context, db *gorm.DB, rideID snowflake.ID) (*domain.Ride, error) {
	if ride, ok := r.rides.Get(rideID); ok {
		return ride, nil
	}

	var ride domain.Ride
	err := db.WithContext(ctx).First(&ride, "id = ?", rideID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRideNotFound
	}
	if err != nil {
		return nil, err
	}
	r.rides.Set(rideID, &ride, metadataTTL)
	return &ride, nil
}

func (r *Repository) ListActiveParks(ctx context.Context, db *gorm.DB) ([]domain.Park, error) {
	var parks []domain.Park
	if err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("id").
		Find(&parks).Error; err != nil {
		return nil, err
	}
	for i := range parks {
		park := parks[i]
		r.parks.Set(park.ID, &park, metadataTTL)
	}
	return parks, nil
}

func (r *Repository) ListRidesByPark(ctx context.Context, db *gorm.DB, parkID snowflake.ID) ([]domain.Ride, error) {
	var rides []domain.Ride
	if err := db.WithContext(ctx).
		Where("park_id = ? AND active = ?", parkID, true).
		Order("id").
		Find(&rides).Error; err != nil {
		return nil, err
	}
	for i := range rides {
		ride := rides[i]
		r.rides.Set(ride.ID, &ride, metadataTTL)
	}
	return rides, nil
}
