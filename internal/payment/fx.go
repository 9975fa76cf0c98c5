package payment

import (
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(service.NewHTTPProvider),
	fx.Provide(service.NewService),
)
