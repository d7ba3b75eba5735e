package service

import (
	"time"

	aggregatedomain "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/domain"
	statsdomain "github.com/czei/themeparkhallofshame-sub001/internal/stats/domain"
)

func rideDailyFromWindow(stat *aggregatedomain.RideWindowStats, date time.Time, version int) *statsdomain.RideDailyStat {
	return &statsdomain.RideDailyStat{
		RideID:         stat.RideID,
		ParkID:         stat.ParkID,
		StatDate:       date,
		MetricsVersion: version,
		WindowStart:    stat.WindowStart,
		WindowEnd:      stat.WindowEnd,
		AvgWaitTime:    stat.AvgWaitTime,
		OperatingCount: stat.OperatingCount,
		DownCount:      stat.DownCount,
		DowntimeHours:  stat.DowntimeHours,
		UptimePct:      stat.UptimePct,
		RideOperated:   stat.RideOperated,
		SnapshotCount:  stat.SnapshotCount,
	}
}

func parkDailyFromWindow(stat *aggregatedomain.ParkWindowStats, date time.Time, version int) *statsdomain.ParkDailyStat {
	return &statsdomain.ParkDailyStat{
		ParkID:                stat.ParkID,
		StatDate:              date,
		MetricsVersion:        version,
		WindowStart:           stat.WindowStart,
		WindowEnd:             stat.WindowEnd,
		ShameScore:            stat.ShameScore,
		AvgWaitTime:           stat.AvgWaitTime,
		RidesOperatingAvg:     stat.RidesOperatingAvg,
		RidesDownAvg:          stat.RidesDownAvg,
		WeightedDowntimeHours: stat.WeightedDowntimeHours,
		EffectiveParkWeight:   stat.EffectiveParkWeight,
		OperatingHours:        stat.OperatingHours,
		SnapshotCount:         stat.SnapshotCount,
		ParkWasOpen:           stat.ParkWasOpen,
	}
}

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
