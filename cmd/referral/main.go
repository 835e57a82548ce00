package main

import (
	"log"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"referral-engine/internal/httpapi"
	"referral-engine/pkg/config"
	"referral-engine/pkg/db"
	"referral-engine/pkg/gen"
	"referral-engine/pkg/health"
	"referral-engine/pkg/logger"
	"referral-engine/pkg/redis"
	"referral-engine/pkg/referralcode"
	"referral-engine/pkg/server"
	"referral-engine/pkg/task"
	"referral-engine/services/client"
	"referral-engine/services/conversion"
	"referral-engine/services/referral"
	"referral-engine/services/restaurant"
	"referral-engine/services/reward"
	"referral-engine/services/summary"
	"referral-engine/services/validation"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		gen.Module,
		referralcode.Module,
		health.Module,
		fx.Provide(provideTracerProvider),
		restaurant.Module,
		client.Module,
		referral.Module,
		validation.Module,
		reward.Module,
		reward.TaskModule,
		conversion.Module,
		summary.Module,
		httpapi.Module,
		server.ProvideHTTPServer,
		fx.Invoke(migrate, registerTaskHandlers, db.Otel),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideTracerProvider() trace.TracerProvider {
	return otel.GetTracerProvider()
}

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&restaurant.Restaurant{},
		&restaurant.StaffUser{},
		&client.Client{},
		&referral.Referral{},
		&conversion.Conversion{},
		&validation.Validation{},
		&reward.Reward{},
		&reward.EarnedReward{},
	)
}

func registerTaskHandlers(mux *asynq.ServeMux, t *reward.Task) {
	mux.HandleFunc(reward.TaskEvaluateRewards, t.HandleEvaluateRewardsTask)
}
