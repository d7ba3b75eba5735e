package service

import (
	"context"

	"github.com/bwmarrin/snowflake"

	aggregatedomain "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/domain"
	"github.com/czei/themeparkhallofshame-sub001/internal/classify"
	snapshotdomain "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
)

// AggregateRideWindow computes one ride's stats over [w.Start, w.End)
// straight from raw snapshots.
func (s *Service) AggregateRideWindow(ctx context.Context, rideID snowflake.ID, w snapshotdomain.Window) (*aggregatedomain.RideWindowStats, error) {
	rows, err := s.windows.RideWindow(ctx, s.db, rideID, w)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		// No observations: skip, never emit a zero-filled row.
		return nil, aggregatedomain.ErrNoSnapshots
	}

	rule, _ := s.ruleForPark(ctx, rows[0].ParkID)
	stats := buildRideStats(rideID, rows[0].ParkID, w, rows, rule, s.intervalHours())
	return stats, nil
}

// buildRideStats is the single implementation of per-ride window
// semantics, shared by the live query path and the daily job.
func buildRideStats(
	rideID, parkID snowflake.ID,
	w snapshotdomain.Window,
	rows []snapshotdomain.JoinedRideSnapshot,
	rule classify.ParkClassificationRule,
	intervalHours float64,
) *aggregatedomain.RideWindowStats {
	var (
		waitSum       float64
		waitCount     int64
		operating     int64
		down          int64
	)

	for _, row := range rows {
		if row.WaitTime != nil {
			waitSum += float64(*row.WaitTime)
			waitCount++
		}
		if row.ComputedIsOpen {
			operating++
		}
		// Park-closed instants never count as ride downtime.
		if row.ParkAppearsOpen && rule.IsDown(row) {
			down++
		}
	}

	stats := &aggregatedomain.RideWindowStats{
		RideID:         rideID,
		ParkID:         parkID,
		WindowStart:    w.Start,
		WindowEnd:      w.End,
		OperatingCount: operating,
		DownCount:      down,
		DowntimeHours:  float64(down) * intervalHours,
		RideOperated:   classify.HasOperated(rule, rows),
		SnapshotCount:  int64(len(rows)),
	}

	if waitCount > 0 {
		avg := waitSum / float64(waitCount)
		stats.AvgWaitTime = &avg
	}
	if total := operating + down; total > 0 {
		stats.UptimePct = float64(operating) / float64(total) * 100
	}
	return stats
}
