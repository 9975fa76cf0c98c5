package organization

import (
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(service.NewService),
)
