package task

import (
	"github.com/pixelmint/pixelmint/internal/task/repository"
	"github.com/pixelmint/pixelmint/internal/task/service"
	"go.uber.org/fx"
)

var Module = fx.Module("task.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
