package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"pizzaria-orderplane/pkg/config"
	"pizzaria-orderplane/pkg/db"
	"pizzaria-orderplane/pkg/logger"
	"pizzaria-orderplane/pkg/redis"
	"pizzaria-orderplane/pkg/task"
	"pizzaria-orderplane/pkg/taskname"
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
		task.Server,
		fx.Provide(provideSnowflakeNode),
		realtime.Worker,
		customer.Worker,
		ledger.Worker,
		coupon.Worker,
		order.Worker,
		settlement.Module,
		payment.Worker,
		task.Scheduler,
		fx.Invoke(registerHandlers, registerSchedules),
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

func registerHandlers(mux *asynq.ServeMux, payments *payment.Service, loyalty *ledger.Service) {
	mux.HandleFunc(taskname.PaymentPixConfirm, payments.HandlePixConfirm)
	mux.HandleFunc(taskname.LoyaltyExpiryRun, loyalty.HandleExpiryRun)
}

// registerSchedules enqueues the nightly loyalty point expiry sweep.
func registerSchedules(scheduler *asynq.Scheduler) error {
	_, err := scheduler.Register("0 3 * * *",
		asynq.NewTask(taskname.LoyaltyExpiryRun, nil),
		asynq.Queue("low"))
	return err
}
