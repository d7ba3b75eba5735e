package server

import (
	aggregatedomain "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/domain"
	statsdomain "github.com/czei/themeparkhallofshame-sub001/internal/stats/domain"
)

// Persisted daily rows and live window queries answer with the same
// shape; callers cannot tell which path served them.

func rideWindowFromDaily(row statsdomain.RideDailyStat) aggregatedomain.RideWindowStats {
	return aggregatedomain.RideWindowStats{
		RideID:         row.RideID,
		ParkID:         row.ParkID,
		WindowStart:    row.WindowStart,
		WindowEnd:      row.WindowEnd,
		AvgWaitTime:    row.AvgWaitTime,
		OperatingCount: row.OperatingCount,
		DownCount:      row.DownCount,
		DowntimeHours:  row.DowntimeHours,
		UptimePct:      row.UptimePct,
		RideOperated:   row.RideOperated,
		SnapshotCount:  row.SnapshotCount,
	}
}

func parkWindowFromDaily(row statsdomain.ParkDailyStat) aggregatedomain.ParkWindowStats {
	return aggregatedomain.ParkWindowStats{
		ParkID:                row.ParkID,
		WindowStart:           row.WindowStart,
		WindowEnd:             row.WindowEnd,
		ShameScore:            row.ShameScore,
		AvgWaitTime:           row.AvgWaitTime,
		RidesOperatingAvg:     row.RidesOperatingAvg,
		RidesDownAvg:          row.RidesDownAvg,
		WeightedDowntimeHours: row.WeightedDowntimeHours,
		EffectiveParkWeight:   row.EffectiveParkWeight,
		OperatingHours:        row.OperatingHours,
		SnapshotCount:         row.SnapshotCount,
		ParkWasOpen:           row.ParkWasOpen,
	}
}
