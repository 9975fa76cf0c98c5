package award

import (
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/award/service"
	"go.uber.org/fx"
)

var Module = fx.Module("award.service",
	fx.Provide(service.NewService),
)
