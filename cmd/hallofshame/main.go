package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/czei/themeparkhallofshame-sub001/internal/aggregate"
	aggregatejob "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/job"
	"github.com/czei/themeparkhallofshame-sub001/internal/clock"
	"github.com/czei/themeparkhallofshame-sub001/internal/config"
	"github.com/czei/themeparkhallofshame-sub001/internal/migration"
	"github.com/czei/themeparkhallofshame-sub001/internal/observability/logger"
	"github.com/czei/themeparkhallofshame-sub001/internal/observability/tracing"
	"github.com/czei/themeparkhallofshame-sub001/internal/parkmeta"
	"github.com/czei/themeparkhallofshame-sub001/internal/seed"
	"github.com/czei/themeparkhallofshame-sub001/internal/server"
	"github.com/czei/themeparkhallofshame-sub001/internal/snapshot"
	"github.com/czei/themeparkhallofshame-sub001/internal/snapshot/retention"
	"github.com/czei/themeparkhallofshame-sub001/internal/stats"
	"github.com/czei/themeparkhallofshame-sub001/pkg/db"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		tracing.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		fx.Invoke(func(log *zap.Logger, cfg config.Config) {
			log.Info("starting hall of shame",
				zap.String("version", version),
				zap.String("environment", cfg.Environment))
		}),

		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if cfg.Bootstrap.SeedSampleParks {
				return seed.EnsureSampleParks(conn)
			}
			return nil
		}),

		parkmeta.Module,
		snapshot.Module,
		retention.Module,
		stats.Module,
		aggregate.Module,
		aggregatejob.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
