package client

import (
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(
		NewRepository,
		NewService,
	),
)
