package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"

	aggregatedomain "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/domain"
	parkdomain "github.com/czei/themeparkhallofshame-sub001/internal/parkmeta/domain"
	"github.com/czei/themeparkhallofshame-sub001/internal/score"
	snapshotdomain "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
)

// AggregateParkWindow computes one park's stats over an arbitrary
// window. Ride stats are aggregated in-memory first so park numbers
// are consistent with ride numbers by construction.
func (s *Service) AggregateParkWindow(ctx context.Context, parkID snowflake.ID, w snapshotdomain.Window) (*aggregatedomain.ParkWindowStats, error) {
	parkSnaps, err := s.windows.ParkWindow(ctx, s.db, parkID, w)
	if err != nil {
		return nil, err
	}
	if len(parkSnaps) == 0 {
		return nil, aggregatedomain.ErrNoSnapshots
	}

	rideIDs, err := s.windows.RideIDsWithSnapshots(ctx, s.db, &parkID, w)
	if err != nil {
		return nil, err
	}

	rideStats := make([]aggregatedomain.RideWindowStats, 0, len(rideIDs))
	for _, rideID := range rideIDs {
		stat, err := s.AggregateRideWindow(ctx, rideID, w)
		if errors.Is(err, aggregatedomain.ErrNoSnapshots) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rideStats = append(rideStats, *stat)
	}

	return s.buildParkStats(ctx, parkID, w, parkSnaps, rideStats)
}

// buildParkStats assembles park-level numbers from already-computed
// ride stats; the classifier is never re-applied here.
func (s *Service) buildParkStats(
	ctx context.Context,
	parkID snowflake.ID,
	w snapshotdomain.Window,
	parkSnaps []snapshotdomain.ParkSnapshot,
	rideStats []aggregatedomain.RideWindowStats,
) (*aggregatedomain.ParkWindowStats, error) {
	openCount := 0
	for _, snap := range parkSnaps {
		if snap.ParkAppearsOpen {
			openCount++
		}
	}

	stats := &aggregatedomain.ParkWindowStats{
		ParkID:        parkID,
		WindowStart:   w.Start,
		WindowEnd:     w.End,
		SnapshotCount: int64(len(parkSnaps)),
		ParkWasOpen:   openCount > 0,
	}

	// "Park closed all window" is itself meaningful output: the row is
	// emitted with zeroed score fields rather than skipped.
	if !stats.ParkWasOpen {
		return stats, nil
	}

	stats.OperatingHours = float64(openCount) * s.intervalHours()

	var (
		weightedDowntime float64
		effectiveWeight  float64
		waitSum          float64
		waitCount        int64
	)
	for _, ride := range rideStats {
		if ride.AvgWaitTime != nil {
			waitSum += *ride.AvgWaitTime
			waitCount++
		}
		if !ride.RideOperated {
			// Rides that never opened (seasonal closures) must not
			// dilute the park weight.
			continue
		}
		weight := s.rideWeight(ctx, ride.RideID)
		weightedDowntime += ride.DowntimeHours * weight
		effectiveWeight += weight
	}

	stats.WeightedDowntimeHours = weightedDowntime
	stats.EffectiveParkWeight = effectiveWeight
	stats.ShameScore = score.Shame(weightedDowntime, effectiveWeight, stats.OperatingHours)

	if waitCount > 0 {
		avg := waitSum / float64(waitCount)
		stats.AvgWaitTime = &avg
	}

	rule, _ := s.ruleForPark(ctx, parkID)
	counts, err := s.windows.InstantCounts(ctx, s.db, parkID, rule.DownStatuses(), w)
	if err != nil {
		return nil, err
	}
	var (
		instants      int64
		operatingSum  int64
		downSum       int64
	)
	for _, count := range counts {
		if !count.ParkAppearsOpen {
			continue
		}
		instants++
		operatingSum += count.OperatingCount
		downSum += count.DownCount
	}
	if instants > 0 {
		stats.RidesOperatingAvg = float64(operatingSum) / float64(instants)
		stats.RidesDownAvg = float64(downSum) / float64(instants)
	}

	return stats, nil
}

func (s *Service) rideWeight(ctx context.Context, rideID snowflake.ID) float64 {
	ride, err := s.parks.FindRide(ctx, s.db, rideID)
	if err != nil {
		return parkdomain.TierWeight(parkdomain.DefaultTier)
	}
	return ride.Weight()
}
