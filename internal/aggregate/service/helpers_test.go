package service

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/czei/themeparkhallofshame-sub001/internal/clock"
	"github.com/czei/themeparkhallofshame-sub001/internal/events"
	parkdomain "github.com/czei/themeparkhallofshame-sub001/internal/parkmeta/domain"
	parkrepo "github.com/czei/themeparkhallofshame-sub001/internal/parkmeta/repository"
	snapshotdomain "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
	snapshotrepo "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/repository"
	statsrepo "github.com/czei/themeparkhallofshame-sub001/internal/stats/repository"
)

var testDBCounter int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:aggsvc%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	statements := []string{
		`CREATE TABLE parks (
			id INTEGER PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			is_disney BOOLEAN NOT NULL DEFAULT 0,
			is_universal BOOLEAN NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE rides (
			id INTEGER PRIMARY KEY,
			park_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			tier INTEGER NOT NULL DEFAULT 2,
			active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE ride_snapshots (
			id INTEGER PRIMARY KEY,
			ride_id BIGINT NOT NULL,
			park_id BIGINT NOT NULL,
			recorded_at DATETIME NOT NULL,
			status TEXT,
			computed_is_open BOOLEAN NOT NULL DEFAULT 0,
			wait_time INTEGER,
			expires_at DATETIME,
			metadata TEXT,
			created_at DATETIME
		)`,
		`CREATE TABLE park_snapshots (
			id INTEGER PRIMARY KEY,
			park_id BIGINT NOT NULL,
			recorded_at DATETIME NOT NULL,
			park_appears_open BOOLEAN NOT NULL DEFAULT 0,
			rides_operating INTEGER NOT NULL DEFAULT 0,
			rides_total INTEGER NOT NULL DEFAULT 0,
			expires_at DATETIME,
			created_at DATETIME
		)`,
		`CREATE TABLE ride_daily_stats (
			id INTEGER PRIMARY KEY,
			ride_id BIGINT NOT NULL,
			park_id BIGINT NOT NULL,
			stat_date DATETIME NOT NULL,
			metrics_version INTEGER NOT NULL,
			window_start DATETIME NOT NULL,
			window_end DATETIME NOT NULL,
			avg_wait_time REAL,
			operating_count BIGINT NOT NULL DEFAULT 0,
			down_count BIGINT NOT NULL DEFAULT 0,
			downtime_hours REAL NOT NULL DEFAULT 0,
			uptime_pct REAL NOT NULL DEFAULT 0,
			ride_operated BOOLEAN NOT NULL DEFAULT 0,
			snapshot_count BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (ride_id, stat_date, metrics_version)
		)`,
		`CREATE TABLE park_daily_stats (
			id INTEGER PRIMARY KEY,
			park_id BIGINT NOT NULL,
			stat_date DATETIME NOT NULL,
			metrics_version INTEGER NOT NULL,
			window_start DATETIME NOT NULL,
			window_end DATETIME NOT NULL,
			shame_score REAL NOT NULL DEFAULT 0,
			avg_wait_time REAL,
			rides_operating_avg REAL NOT NULL DEFAULT 0,
			rides_down_avg REAL NOT NULL DEFAULT 0,
			weighted_downtime_hours REAL NOT NULL DEFAULT 0,
			effective_park_weight REAL NOT NULL DEFAULT 0,
			operating_hours REAL NOT NULL DEFAULT 0,
			snapshot_count BIGINT NOT NULL DEFAULT 0,
			park_was_open BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (park_id, stat_date, metrics_version)
		)`,
		`CREATE TABLE aggregation_runs (
			id INTEGER PRIMARY KEY,
			target_date DATETIME NOT NULL,
			period_type TEXT NOT NULL,
			metrics_version INTEGER NOT NULL,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			completed_at DATETIME,
			rides_processed INTEGER NOT NULL DEFAULT 0,
			parks_processed INTEGER NOT NULL DEFAULT 0,
			entities_failed INTEGER NOT NULL DEFAULT 0,
			error_message TEXT,
			triggered_by TEXT NOT NULL DEFAULT 'scheduler',
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE UNIQUE INDEX ux_aggregation_runs_active
			ON aggregation_runs (target_date, period_type, metrics_version)
			WHERE status = 'running'`,
		`CREATE TABLE aggregation_events (
			id INTEGER PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT UNIQUE,
			published BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, now time.Time) *Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Service{
		db:             db,
		log:            zap.NewNop(),
		clock:          clock.Fixed{At: now},
		parks:          parkrepo.Provide(),
		windows:        snapshotrepo.Provide(),
		stats:          statsrepo.Provide(node),
		outbox:         events.NewOutbox(db, node),
		interval:       5 * time.Minute,
		runStaleAfter:  2 * time.Hour,
		metricsVersion: 2,
	}
}

var testNodeCounter int64 = 1

func newTestNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(atomic.AddInt64(&testNodeCounter, 1))
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func seedPark(t *testing.T, db *gorm.DB, node *snowflake.Node, slug string, disney, universal bool) *parkdomain.Park {
	t.Helper()
	park := &parkdomain.Park{
		ID:          node.Generate(),
		Slug:        slug,
		Name:        slug,
		Timezone:    "UTC",
		IsDisney:    disney,
		IsUniversal: universal,
		Active:      true,
	}
	if err := db.Create(park).Error; err != nil {
		t.Fatalf("seed park: %v", err)
	}
	return park
}

func seedRide(t *testing.T, db *gorm.DB, node *snowflake.Node, parkID snowflake.ID, name string, tier int) *parkdomain.Ride {
	t.Helper()
	ride := &parkdomain.Ride{
		ID:     node.Generate(),
		ParkID: parkID,
		Name:   name,
		Tier:   tier,
		Active: true,
	}
	if err := db.Create(ride).Error; err != nil {
		t.Fatalf("seed ride: %v", err)
	}
	return ride
}

func statusOf(s snapshotdomain.RideStatus) *snapshotdomain.RideStatus { return &s }

func addRideSnapshot(t *testing.T, db *gorm.DB, node *snowflake.Node, ride *parkdomain.Ride, at time.Time, status *snapshotdomain.RideStatus, open bool, wait *int) {
	t.Helper()
	snap := &snapshotdomain.RideSnapshot{
		ID:             node.Generate(),
		RideID:         ride.ID,
		ParkID:         ride.ParkID,
		RecordedAt:     at,
		Status:         status,
		ComputedIsOpen: open,
		WaitTime:       wait,
	}
	if err := db.Create(snap).Error; err != nil {
		t.Fatalf("seed ride snapshot: %v", err)
	}
}

func addParkSnapshot(t *testing.T, db *gorm.DB, node *snowflake.Node, parkID snowflake.ID, at time.Time, open bool) {
	t.Helper()
	snap := &snapshotdomain.ParkSnapshot{
		ID:              node.Generate(),
		ParkID:          parkID,
		RecordedAt:      at,
		ParkAppearsOpen: open,
	}
	if err := db.Create(snap).Error; err != nil {
		t.Fatalf("seed park snapshot: %v", err)
	}
}

func almostEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
