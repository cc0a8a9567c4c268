package credit

import (
	"github.com/pixelmint/pixelmint/internal/credit/repository"
	"github.com/pixelmint/pixelmint/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
