package summary

import (
	"go.uber.org/fx"
)

var Module = fx.Module("summary.service",
	fx.Provide(
		NewRepository,
		NewService,
	),
)
