package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/czei/themeparkhallofshame-sub001/internal/aggregate/service"
	"github.com/czei/themeparkhallofshame-sub001/internal/clock"
	"github.com/czei/themeparkhallofshame-sub001/internal/config"
	parkdomain "github.com/czei/themeparkhallofshame-sub001/internal/parkmeta/domain"
	parkrepo "github.com/czei/themeparkhallofshame-sub001/internal/parkmeta/repository"
	snapshotdomain "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
	snapshotrepo "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/repository"
	statsdomain "github.com/czei/themeparkhallofshame-sub001/internal/stats/domain"
	statsrepo "github.com/czei/themeparkhallofshame-sub001/internal/stats/repository"
)

var serverTestDBCounter int64

type serverFixture struct {
	engine *gin.Engine
	db     *gorm.DB
	node   *snowflake.Node
	now    time.Time
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:server%d?mode=memory&cache=shared", atomic.AddInt64(&serverTestDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	statements := []string{
		`CREATE TABLE parks (
			id INTEGER PRIMARY KEY, slug TEXT NOT NULL UNIQUE, name TEXT NOT NULL,
			timezone TEXT NOT NULL DEFAULT 'UTC', is_disney BOOLEAN NOT NULL DEFAULT 0,
			is_universal BOOLEAN NOT NULL DEFAULT 0, active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME, updated_at DATETIME
		)`,
		`CREATE TABLE rides (
			id INTEGER PRIMARY KEY, park_id BIGINT NOT NULL, name TEXT NOT NULL,
			tier INTEGER NOT NULL DEFAULT 2, active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME, updated_at DATETIME
		)`,
		`CREATE TABLE ride_snapshots (
			id INTEGER PRIMARY KEY, ride_id BIGINT NOT NULL, park_id BIGINT NOT NULL,
			recorded_at DATETIME NOT NULL, status TEXT,
			computed_is_open BOOLEAN NOT NULL DEFAULT 0, wait_time INTEGER,
			expires_at DATETIME, metadata TEXT, created_at DATETIME
		)`,
		`CREATE TABLE park_snapshots (
			id INTEGER PRIMARY KEY, park_id BIGINT NOT NULL, recorded_at DATETIME NOT NULL,
			park_appears_open BOOLEAN NOT NULL DEFAULT 0,
			rides_operating INTEGER NOT NULL DEFAULT 0, rides_total INTEGER NOT NULL DEFAULT 0,
			expires_at DATETIME, created_at DATETIME
		)`,
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
		`CREATE TABLE aggregation_events (
			id INTEGER PRIMARY KEY, event_type TEXT NOT NULL, payload TEXT,
			dedupe_key TEXT UNIQUE, published BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	now := time.Date(2026, 8, 21, 6, 0, 0, 0, time.UTC)
	cfg := config.Config{
		Environment:      "test",
		HTTPAddr:         ":0",
		SnapshotInterval: 5 * time.Minute,
		RunStaleAfter:    2 * time.Hour,
		MetricsVersion:   2,
	}

	parks := parkrepo.Provide()
	stats := statsrepo.Provide(node)
	fixedClock := clock.Fixed{At: now}

	svc := service.NewService(service.ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		Clock:   fixedClock,
		Config:  cfg,
		Parks:   parks,
		Windows: snapshotrepo.Provide(),
		Stats:   stats,
		GenID:   node,
	})

	engine := gin.New()
	srv := NewServer(ServerParam{
		Config:       cfg,
		DB:           db,
		Log:          zap.NewNop(),
		Clock:        fixedClock,
		Engine:       engine,
		AggregateSvc: svc,
		Parks:        parks,
		Stats:        stats,
		Windows:      snapshotrepo.Provide(),
	})
	srv.RegisterAPIRoutes()

	return &serverFixture{engine: engine, db: db, node: node, now: now}
}

func (f *serverFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *serverFixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *serverFixture) seedPark(t *testing.T, slug string, disney bool) *parkdomain.Park {
	t.Helper()
	park := &parkdomain.Park{
		ID:       f.node.Generate(),
		Slug:     slug,
		Name:     slug,
		Timezone: "UTC",
		IsDisney: disney,
		Active:   true,
	}
	if err := f.db.Create(park).Error; err != nil {
		t.Fatalf("seed park: %v", err)
	}
	return park
}

func (f *serverFixture) seedRide(t *testing.T, parkID snowflake.ID, name string, tier int) *parkdomain.Ride {
	t.Helper()
	ride := &parkdomain.Ride{
		ID:     f.node.Generate(),
		ParkID: parkID,
		Name:   name,
		Tier:   tier,
		Active: true,
	}
	if err := f.db.Create(ride).Error; err != nil {
		t.Fatalf("seed ride: %v", err)
	}
	return ride
}

func (f *serverFixture) addRideSnapshot(t *testing.T, ride *parkdomain.Ride, at time.Time, status snapshotdomain.RideStatus, open bool) {
	t.Helper()
	snap := &snapshotdomain.RideSnapshot{
		ID:             f.node.Generate(),
		RideID:         ride.ID,
		ParkID:         ride.ParkID,
		RecordedAt:     at,
		Status:         &status,
		ComputedIsOpen: open,
	}
	if err := f.db.Create(snap).Error; err != nil {
		t.Fatalf("seed ride snapshot: %v", err)
	}
}

func (f *serverFixture) addParkSnapshot(t *testing.T, parkID snowflake.ID, at time.Time, open bool) {
	t.Helper()
	snap := &snapshotdomain.ParkSnapshot{
		ID:              f.node.Generate(),
		ParkID:          parkID,
		RecordedAt:      at,
		ParkAppearsOpen: open,
	}
	if err := f.db.Create(snap).Error; err != nil {
		t.Fatalf("seed park snapshot: %v", err)
	}
}

func (f *serverFixture) seedParkDaily(t *testing.T, parkID snowflake.ID, date time.Time, shame float64) {
	t.Helper()
	row := &statsdomain.ParkDailyStat{
		ID:             f.node.Generate(),
		ParkID:         parkID,
		StatDate:       date,
		MetricsVersion: 2,
		WindowStart:    date,
		WindowEnd:      date.Add(24 * time.Hour),
		ShameScore:     shame,
		ParkWasOpen:    true,
	}
	if err := f.db.Create(row).Error; err != nil {
		t.Fatalf("seed park daily stat: %v", err)
	}
}
