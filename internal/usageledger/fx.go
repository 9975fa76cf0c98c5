package usageledger

import (
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/usageledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usageledger.service",
	fx.Provide(service.NewService),
)
