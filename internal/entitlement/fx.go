package entitlement

import (
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement.service",
	fx.Provide(service.NewService),
)
