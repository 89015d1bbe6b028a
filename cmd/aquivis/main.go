package main

import (
	"github.com/aquivis/aquivis/internal/clock"
	"github.com/aquivis/aquivis/internal/config"
	"github.com/aquivis/aquivis/internal/migration"
	"github.com/aquivis/aquivis/internal/observability"
	"github.com/aquivis/aquivis/internal/scheduler"
	"github.com/aquivis/aquivis/internal/server"
	"github.com/aquivis/aquivis/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema must be current before the HTTP server starts.
		migration.Module,
		server.Module,
		scheduler.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
