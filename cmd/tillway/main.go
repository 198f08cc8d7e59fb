package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tillway/internal/clock"
	"github.com/smallbiznis/tillway/internal/config"
	"github.com/smallbiznis/tillway/internal/logger"
	"github.com/smallbiznis/tillway/internal/migration"
	"github.com/smallbiznis/tillway/internal/observability/metrics"
	"github.com/smallbiznis/tillway/internal/server"
	"github.com/smallbiznis/tillway/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		migration.Module,
		server.Module,
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
