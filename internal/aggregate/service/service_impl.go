// Package service implements the aggregation engine: ride and park
// window aggregation, the idempotent daily job, and recompute.
package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	aggregatedomain "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/domain"
	"github.com/czei/themeparkhallofshame-sub001/internal/classify"
	"github.com/czei/themeparkhallofshame-sub001/internal/clock"
	"github.com/czei/themeparkhallofshame-sub001/internal/config"
	"github.com/czei/themeparkhallofshame-sub001/internal/events"
	parkdomain "github.com/czei/themeparkhallofshame-sub001/internal/parkmeta/domain"
	snapshotdomain "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
	statsdomain "github.com/czei/themeparkhallofshame-sub001/internal/stats/domain"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	parks   parkdomain.Repository
	windows snapshotdomain.WindowRepository
	stats   statsdomain.StatsRepository
	outbox  *events.Outbox

	// interval is the nominal snapshot cadence; it converts snapshot
	// counts into hours at every granularity.
	interval       time.Duration
	runStaleAfter  time.Duration
	metricsVersion int
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Config  config.Config
	Parks   parkdomain.Repository
	Windows snapshotdomain.WindowRepository
	Stats   statsdomain.StatsRepository
	GenID   *snowflake.Node
}

func NewService(p ServiceParam) aggregatedomain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("aggregate.service"),
		clock:          p.Clock,
		parks:          p.Parks,
		windows:        p.Windows,
		stats:          p.Stats,
		outbox:         events.NewOutbox(p.DB, p.GenID),
		interval:       p.Config.SnapshotInterval,
		runStaleAfter:  p.Config.RunStaleAfter,
		metricsVersion: p.Config.MetricsVersion,
	}
}

func (s *Service) intervalHours() float64 {
	return s.interval.Hours()
}

// ruleForPark tolerates unknown parks: snapshots can reference parks
// the metadata feed has not delivered yet, which classify leniently.
func (s *Service) ruleForPark(ctx context.Context, parkID snowflake.ID) (classify.ParkClassificationRule, *parkdomain.Park) {
	park, err := s.parks.FindPark(ctx, s.db, parkID)
	if err != nil {
		return classify.RuleForPark(nil), nil
	}
	return classify.RuleForPark(park), park
}
