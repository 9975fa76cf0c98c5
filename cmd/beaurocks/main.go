package main

import (
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/config"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/logger"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		server.Module,
	)
	app.Run()
}
