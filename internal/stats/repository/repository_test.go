package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/czei/themeparkhallofshame-sub001/internal/stats/domain"
)

var statsDBCounter int64

func setupStatsDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:stats%d?mode=memory&cache=shared", atomic.AddInt64(&statsDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	statements := []string{
		`CREATE TABLE ride_daily_stats (
			id INTEGER PRIMARY KEY, ride_id BIGINT NOT NULL, park_id BIGINT NOT NULL,
			stat_date DATETIME NOT NULL, metrics_version INTEGER NOT NULL,
			window_start DATETIME NOT NULL, window_end DATETIME NOT NULL,
			avg_wait_time REAL, operating_count BIGINT NOT NULL DEFAULT 0,
			down_count BIGINT NOT NULL DEFAULT 0, downtime_hours REAL NOT NULL DEFAULT 0,
			uptime_pct REAL NOT NULL DEFAULT 0, ride_operated BOOLEAN NOT NULL DEFAULT 0,
			snapshot_count BIGINT NOT NULL DEFAULT 0, created_at DATETIME, updated_at DATETIME,
			UNIQUE (ride_id, stat_date, metrics_version)
		)`,
		`CREATE TABLE park_daily_stats (
			id INTEGER PRIMARY KEY, park_id BIGINT NOT NULL,
			stat_date DATETIME NOT NULL, metrics_version INTEGER NOT NULL,
			window_start DATETIME NOT NULL, window_end DATETIME NOT NULL,
			shame_score REAL NOT NULL DEFAULT 0, avg_wait_time REAL,
			rides_operating_avg REAL NOT NULL DEFAULT 0, rides_down_avg REAL NOT NULL DEFAULT 0,
			weighted_downtime_hours REAL NOT NULL DEFAULT 0,
			effective_park_weight REAL NOT NULL DEFAULT 0,
			operating_hours REAL NOT NULL DEFAULT 0, snapshot_count BIGINT NOT NULL DEFAULT 0,
			park_was_open BOOLEAN NOT NULL DEFAULT 0, created_at DATETIME, updated_at DATETIME,
			UNIQUE (park_id, stat_date, metrics_version)
		)`,
		`CREATE TABLE aggregation_runs (
			id INTEGER PRIMARY KEY, target_date DATETIME NOT NULL, period_type TEXT NOT NULL,
			metrics_version INTEGER NOT NULL, status TEXT NOT NULL,
			started_at DATETIME NOT NULL, completed_at DATETIME,
			rides_processed INTEGER NOT NULL DEFAULT 0, parks_processed INTEGER NOT NULL DEFAULT 0,
			entities_failed INTEGER NOT NULL DEFAULT 0, error_message TEXT,
			triggered_by TEXT NOT NULL DEFAULT 'scheduler', created_at DATETIME, updated_at DATETIME
		)`,
		`CREATE UNIQUE INDEX ux_aggregation_runs_active
			ON aggregation_runs (target_date, period_type, metrics_version)
			WHERE status = 'running'`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func newRepo(t *testing.T) *Repository {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Repository{genID: node}
}

func TestUpsertRideDailyOverwritesInPlace(t *testing.T) {
	db := setupStatsDB(t)
	repo := newRepo(t)
	ctx := context.Background()
	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	first := &domain.RideDailyStat{
		RideID:         100,
		ParkID:         10,
		StatDate:       date,
		MetricsVersion: 2,
		WindowStart:    date,
		WindowEnd:      date.Add(24 * time.Hour),
		DowntimeHours:  1.0,
	}
	if err := repo.UpsertRideDaily(ctx, db, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &domain.RideDailyStat{
		RideID:         100,
		ParkID:         10,
		StatDate:       date,
		MetricsVersion: 2,
		WindowStart:    date,
		WindowEnd:      date.Add(24 * time.Hour),
		DowntimeHours:  2.5,
	}
	if err := repo.UpsertRideDaily(ctx, db, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var count int64
	if err := db.Table("ride_daily_stats").Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("upsert must not duplicate, got %d rows", count)
	}

	stat, err := repo.RideDaily(ctx, db, 100, date, 2)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if stat == nil || stat.DowntimeHours != 2.5 {
		t.Fatalf("expected overwritten downtime 2.5, got %+v", stat)
	}
}

func TestUpsertKeepsVersionsSeparate(t *testing.T) {
	db := setupStatsDB(t)
	repo := newRepo(t)
	ctx := context.Background()
	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	for _, version := range []int{1, 2} {
		stat := &domain.ParkDailyStat{
			ParkID:         10,
			StatDate:       date,
			MetricsVersion: version,
			WindowStart:    date,
			WindowEnd:      date.Add(24 * time.Hour),
			ShameScore:     float64(version),
		}
		if err := repo.UpsertParkDaily(ctx, db, stat); err != nil {
			t.Fatalf("upsert version %d: %v", version, err)
		}
	}

	var count int64
	if err := db.Table("park_daily_stats").Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 2 {
		t.Fatalf("different versions must coexist, got %d rows", count)
	}
}

func TestCompleteRunGuardsTerminalStatus(t *testing.T) {
	db := setupStatsDB(t)
	repo := newRepo(t)
	ctx := context.Background()
	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 21, 6, 0, 0, 0, time.UTC)

	run := &domain.AggregationRun{
		TargetDate:     date,
		PeriodType:     domain.PeriodTypeDaily,
		MetricsVersion: 2,
		Status:         domain.RunStatusRunning,
		StartedAt:      now,
		TriggeredBy:    "scheduler",
	}
	if err := repo.InsertRun(ctx, db, run); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	completion := domain.RunCompletion{
		Status:      domain.RunStatusSuccess,
		CompletedAt: now.Add(time.Minute),
	}
	if err := repo.CompleteRun(ctx, db, run.ID, completion); err != nil {
		t.Fatalf("complete run: %v", err)
	}

	// A terminal run never transitions again.
	err := repo.CompleteRun(ctx, db, run.ID, domain.RunCompletion{
		Status:      domain.RunStatusFailed,
		CompletedAt: now.Add(2 * time.Minute),
	})
	if !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound on second completion, got %v", err)
	}

	terminal, err := repo.FindTerminalRun(ctx, db, date, domain.PeriodTypeDaily, 2)
	if err != nil {
		t.Fatalf("find terminal run: %v", err)
	}
	if terminal == nil || terminal.Status != domain.RunStatusSuccess {
		t.Fatalf("expected terminal success run, got %+v", terminal)
	}
}

func TestFindTerminalRunIgnoresPartialAndFailed(t *testing.T) {
	db := setupStatsDB(t)
	repo := newRepo(t)
	ctx := context.Background()
	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 21, 6, 0, 0, 0, time.UTC)

	for _, status := range []string{domain.RunStatusPartial, domain.RunStatusFailed} {
		run := &domain.AggregationRun{
			TargetDate:     date,
			PeriodType:     domain.PeriodTypeDaily,
			MetricsVersion: 2,
			Status:         status,
			StartedAt:      now,
		}
		if err := repo.InsertRun(ctx, db, run); err != nil {
			t.Fatalf("insert %s run: %v", status, err)
		}
	}

	terminal, err := repo.FindTerminalRun(ctx, db, date, domain.PeriodTypeDaily, 2)
	if err != nil {
		t.Fatalf("find terminal run: %v", err)
	}
	if terminal != nil {
		t.Fatalf("partial and failed runs must allow reruns, got %+v", terminal)
	}
}

func TestFindActiveRunHonorsStaleCutoff(t *testing.T) {
	db := setupStatsDB(t)
	repo := newRepo(t)
	ctx := context.Background()
	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 21, 6, 0, 0, 0, time.UTC)

	run := &domain.AggregationRun{
		TargetDate:     date,
		PeriodType:     domain.PeriodTypeDaily,
		MetricsVersion: 2,
		Status:         domain.RunStatusRunning,
		StartedAt:      now.Add(-3 * time.Hour),
	}
	if err := repo.InsertRun(ctx, db, run); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	active, err := repo.FindActiveRun(ctx, db, date, domain.PeriodTypeDaily, 2, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("find active run: %v", err)
	}
	if active != nil {
		t.Fatalf("stale RUNNING rows must be ignored, got %+v", active)
	}

	active, err = repo.FindActiveRun(ctx, db, date, domain.PeriodTypeDaily, 2, now.Add(-4*time.Hour))
	if err != nil {
		t.Fatalf("find active run: %v", err)
	}
	if active == nil {
		t.Fatal("run within the cutoff must be reported as active")
	}
}

func TestInsertRunRejectsSecondActiveRun(t *testing.T) {
	db := setupStatsDB(t)
	repo := newRepo(t)
	ctx := context.Background()
	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 21, 6, 0, 0, 0, time.UTC)

	newRun := func() *domain.AggregationRun {
		return &domain.AggregationRun{
			TargetDate:     date,
			PeriodType:     domain.PeriodTypeDaily,
			MetricsVersion: 2,
			Status:         domain.RunStatusRunning,
			StartedAt:      now,
		}
	}

	first := newRun()
	if err := repo.InsertRun(ctx, db, first); err != nil {
		t.Fatalf("insert first run: %v", err)
	}
	if err := repo.InsertRun(ctx, db, newRun()); !errors.Is(err, domain.ErrActiveRunExists) {
		t.Fatalf("expected ErrActiveRunExists for concurrent insert, got %v", err)
	}

	completed := domain.RunCompletion{
		Status:      domain.RunStatusSuccess,
		CompletedAt: now.Add(time.Minute),
	}
	if err := repo.CompleteRun(ctx, db, first.ID, completed); err != nil {
		t.Fatalf("complete first run: %v", err)
	}
	if err := repo.InsertRun(ctx, db, newRun()); err != nil {
		t.Fatalf("insert after completion: %v", err)
	}
}

func TestFailStaleRunsRetiresOnlyOldRows(t *testing.T) {
	db := setupStatsDB(t)
	repo := newRepo(t)
	ctx := context.Background()
	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 21, 6, 0, 0, 0, time.UTC)

	stale := &domain.AggregationRun{
		TargetDate:     date,
		PeriodType:     domain.PeriodTypeDaily,
		MetricsVersion: 2,
		Status:         domain.RunStatusRunning,
		StartedAt:      now.Add(-3 * time.Hour),
	}
	if err := repo.InsertRun(ctx, db, stale); err != nil {
		t.Fatalf("insert stale run: %v", err)
	}

	retired, err := repo.FailStaleRuns(ctx, db, date, domain.PeriodTypeDaily, 2, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("fail stale runs: %v", err)
	}
	if retired != 1 {
		t.Fatalf("expected 1 retired run, got %d", retired)
	}

	var loaded domain.AggregationRun
	if err := db.First(&loaded, "id = ?", stale.ID).Error; err != nil {
		t.Fatalf("load run: %v", err)
	}
	if loaded.Status != domain.RunStatusFailed {
		t.Fatalf("expected failed, got %s", loaded.Status)
	}

	fresh := &domain.AggregationRun{
		TargetDate:     date,
		PeriodType:     domain.PeriodTypeDaily,
		MetricsVersion: 2,
		Status:         domain.RunStatusRunning,
		StartedAt:      now,
	}
	if err := repo.InsertRun(ctx, db, fresh); err != nil {
		t.Fatalf("insert fresh run: %v", err)
	}
	retired, err = repo.FailStaleRuns(ctx, db, date, domain.PeriodTypeDaily, 2, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("fail stale runs: %v", err)
	}
	if retired != 0 {
		t.Fatalf("fresh RUNNING row must survive, got %d retired", retired)
	}
}
