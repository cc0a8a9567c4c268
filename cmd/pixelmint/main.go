package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pixelmint/pixelmint/internal/auth"
	"github.com/pixelmint/pixelmint/internal/clock"
	"github.com/pixelmint/pixelmint/internal/config"
	"github.com/pixelmint/pixelmint/internal/credit"
	"github.com/pixelmint/pixelmint/internal/migration"
	"github.com/pixelmint/pixelmint/internal/observability"
	"github.com/pixelmint/pixelmint/internal/order"
	"github.com/pixelmint/pixelmint/internal/payment"
	"github.com/pixelmint/pixelmint/internal/providers/genai"
	"github.com/pixelmint/pixelmint/internal/providers/storage"
	"github.com/pixelmint/pixelmint/internal/ratelimit"
	"github.com/pixelmint/pixelmint/internal/server"
	"github.com/pixelmint/pixelmint/internal/task"
	"github.com/pixelmint/pixelmint/internal/worker"
	"github.com/pixelmint/pixelmint/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		auth.Module,
		ratelimit.Module,

		// Providers
		genai.Module,
		storage.Module,

		// Functional domains
		credit.Module,
		task.Module,
		order.Module,
		payment.Module,
		worker.Module,

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
