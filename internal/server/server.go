// Package server exposes the HTTP API: park rankings, ride and park
// stat lookups, ad-hoc window queries, and aggregation run control.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	aggregatedomain "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/domain"
	"github.com/czei/themeparkhallofshame-sub001/internal/clock"
	"github.com/czei/themeparkhallofshame-sub001/internal/config"
	"github.com/czei/themeparkhallofshame-sub001/internal/observability/logger"
	"github.com/czei/themeparkhallofshame-sub001/internal/observability/tracing"
	parkdomain "github.com/czei/themeparkhallofshame-sub001/internal/parkmeta/domain"
	snapshotdomain "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
	statsdomain "github.com/czei/themeparkhallofshame-sub001/internal/stats/domain"
)

type Server struct {
	cfg   config.Config
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	engine *gin.Engine

	aggregateSvc aggregatedomain.Service
	parks        parkdomain.Repository
	stats        statsdomain.StatsRepository
	windows      snapshotdomain.WindowRepository

	// triggerLimiter throttles the mutation endpoints; aggregation is
	// idempotent but still expensive to start.
	triggerLimiter *rateLimiter
}

type ServerParam struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Engine *gin.Engine

	AggregateSvc aggregatedomain.Service
	Parks        parkdomain.Repository
	Stats        statsdomain.StatsRepository
	Windows      snapshotdomain.WindowRepository
}

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg:            p.Config,
		db:             p.DB,
		log:            p.Log.Named("server"),
		clock:          p.Clock,
		engine:         p.Engine,
		aggregateSvc:   p.AggregateSvc,
		parks:          p.Parks,
		stats:          p.Stats,
		windows:        p.Windows,
		triggerLimiter: newRateLimiter(10, time.Minute),
	}
}

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(tracing.GinMiddleware())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	return engine
}

func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	api.GET("/parks/rankings", s.ParkRankings)
	api.GET("/parks/:id/stats", s.ParkStats)
	api.GET("/rides/:id/stats", s.RideStats)
	api.GET("/stats/window", s.WindowStats)

	api.POST("/aggregation/run", s.rateLimited(s.TriggerAggregation))
	api.POST("/aggregation/recompute", s.rateLimited(s.TriggerRecompute))
	api.GET("/aggregation/runs", s.ListAggregationRuns)
}

func (s *Server) Health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) rateLimited(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.triggerLimiter.Allow(c.ClientIP()) {
			AbortWithError(c, ErrRateLimited)
			return
		}
		next(c)
	}
}

func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
