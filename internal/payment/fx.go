package payment

import (
	"github.com/pixelmint/pixelmint/internal/payment/gateway"
	"github.com/pixelmint/pixelmint/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(gateway.NewClient),
	fx.Provide(service.New),
)
