package room

import (
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/room/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("room.repository",
	fx.Provide(repository.Provide),
)
