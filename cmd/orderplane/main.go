package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"pizzaria-orderplane/pkg/config"
	"pizzaria-orderplane/pkg/db"
	"pizzaria-orderplane/pkg/health"
	"pizzaria-orderplane/pkg/logger"
	"pizzaria-orderplane/pkg/profiling"
	"pizzaria-orderplane/pkg/redis"
	"pizzaria-orderplane/pkg/sequence"
	"pizzaria-orderplane/pkg/server"
	"pizzaria-orderplane/pkg/task"
	"pizzaria-orderplane/services/checkout"
	"pizzaria-orderplane/services/coupon"
	"pizzaria-orderplane/services/customer"
	"pizzaria-orderplane/services/ledger"
	"pizzaria-orderplane/services/order"
	"pizzaria-orderplane/services/payment"
	"pizzaria-orderplane/services/realtime"
	"pizzaria-orderplane/services/settlement"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		sequence.Module,
		fx.Provide(provideSnowflakeNode),
		fx.Invoke(db.Otel, db.Metric),
		profiling.Module,
		server.ProvideHTTPServer,
		health.Module,
		realtime.Module,
		customer.Module,
		ledger.Module,
		coupon.Module,
		order.Module,
		settlement.Module,
		payment.Module,
		checkout.Module,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
