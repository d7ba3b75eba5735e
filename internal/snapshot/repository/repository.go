// Package repository implements the time-window query engine over raw
// snapshots. Every query predicates on recorded_at >= start AND
// recorded_at < end so boundary instants land in exactly one window.
package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
)

type Repository struct{}

func Provide() domain.WindowRepository {
	return &Repository{}
}

func (r *Repository) RideWindow(ctx context.Context, db *gorm.DB, rideID snowflake.ID, w domain.Window) ([]domain.JoinedRideSnapshot, error) {
	var rows []domain.JoinedRideSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT rs.ride_id, rs.park_id, rs.recorded_at, rs.status,
		        rs.computed_is_open, rs.wait_time,
		        COALESCE(ps.park_appears_open, false) AS park_appears_open
		 FROM ride_snapshots rs
		 LEFT JOIN park_snapshots ps
		   ON ps.park_id = rs.park_id AND ps.recorded_at = rs.recorded_at
		 WHERE rs.ride_id = ? AND rs.recorded_at >= ? AND rs.recorded_at < ?
		 ORDER BY rs.recorded_at ASC`,
		rideID,
		w.Start,
		w.End,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ParkWindow(ctx context.Context, db *gorm.DB, parkID snowflake.ID, w domain.Window) ([]domain.ParkSnapshot, error) {
	var rows []domain.ParkSnapshot
	err := db.WithContext(ctx).
		Where("park_id = ? AND recorded_at >= ? AND recorded_at < ?", parkID, w.Start, w.End).
		Order("recorded_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) RideIDsWithSnapshots(ctx context.Context, db *gorm.DB, parkID *snowflake.ID, w domain.Window) ([]snowflake.ID, error) {
	query := db.WithContext(ctx).
		Table("ride_snapshots").
		Distinct("ride_id").
		Where("recorded_at >= ? AND recorded_at < ?", w.Start, w.End)
	if parkID != nil {
		query = query.Where("park_id = ?", *parkID)
	}

	var ids []snowflake.ID
	if err := query.Order("ride_id").Pluck("ride_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) ParkIDsWithSnapshots(ctx context.Context, db *gorm.DB, w domain.Window) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Table("park_snapshots").
		Distinct("park_id").
		Where("recorded_at >= ? AND recorded_at < ?", w.Start, w.End).
		Order("park_id").
		Pluck("park_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) InstantCounts(ctx context.Context, db *gorm.DB, parkID snowflake.ID, downStatuses []domain.RideStatus, w domain.Window) ([]domain.InstantCount, error) {
	statuses := make([]string, 0, len(downStatuses))
	for _, status := range downStatuses {
		statuses = append(statuses, string(status))
	}

	var rows []domain.InstantCount
	err := db.WithContext(ctx).Raw(
		`SELECT rs.recorded_at,
		        SUM(CASE WHEN rs.computed_is_open THEN 1 ELSE 0 END) AS operating_count,
		        SUM(CASE WHEN rs.status IN (?) AND NOT rs.computed_is_open THEN 1 ELSE 0 END) AS down_count,
		        COALESCE(MAX(CASE WHEN ps.park_appears_open THEN 1 ELSE 0 END), 0) = 1 AS park_appears_open
		 FROM ride_snapshots rs
		 LEFT JOIN park_snapshots ps
		   ON ps.park_id = rs.park_id AND ps.recorded_at = rs.recorded_at
		 WHERE rs.park_id = ? AND rs.recorded_at >= ? AND rs.recorded_at < ?
		 GROUP BY rs.recorded_at
		 ORDER BY rs.recorded_at ASC`,
		statuses,
		parkID,
		w.Start,
		w.End,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) CountRows(ctx context.Context, db *gorm.DB) (int64, error) {
	var rideRows, parkRows int64
	if err := db.WithContext(ctx).Table("ride_snapshots").Count(&rideRows).Error; err != nil {
		return 0, err
	}
	if err := db.WithContext(ctx).Table("park_snapshots").Count(&parkRows).Error; err != nil {
		return 0, err
	}
	return rideRows + parkRows, nil
}
