package settlement

import (
	"pizzaria-orderplane/services/order"

	"go.uber.org/fx"
)

var Module = fx.Module("settlement.service",
	fx.Provide(
		fx.Annotate(NewCoordinator, fx.As(new(order.Settler))),
	),
)
