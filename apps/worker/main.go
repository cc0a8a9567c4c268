package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/pixelmint/pixelmint/internal/clock"
	"github.com/pixelmint/pixelmint/internal/config"
	"github.com/pixelmint/pixelmint/internal/credit"
	"github.com/pixelmint/pixelmint/internal/migration"
	"github.com/pixelmint/pixelmint/internal/observability"
	"github.com/pixelmint/pixelmint/internal/providers/genai"
	"github.com/pixelmint/pixelmint/internal/providers/storage"
	"github.com/pixelmint/pixelmint/internal/ratelimit"
	"github.com/pixelmint/pixelmint/internal/task"
	"github.com/pixelmint/pixelmint/internal/worker"
	"github.com/pixelmint/pixelmint/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,

		genai.Module,
		storage.Module,

		credit.Module,
		task.Module,
		worker.Module,

		// No server module!
		fx.Invoke(StartWorker),
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

func StartWorker(lc fx.Lifecycle, cfg config.Config, w *worker.Worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go w.Run(context.Background(), cfg.WorkerInterval)
			return nil
		},
	})
}
