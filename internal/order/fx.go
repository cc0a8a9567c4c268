package order

import (
	"github.com/pixelmint/pixelmint/internal/order/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("order.store",
	fx.Provide(repository.Provide),
)
