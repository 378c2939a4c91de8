package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"researchpal-backend/pkg/config"
	"researchpal-backend/pkg/db"
	"researchpal-backend/pkg/generator"
	"researchpal-backend/pkg/logger"
	"researchpal-backend/pkg/redis"
	"researchpal-backend/pkg/task"
	"researchpal-backend/services/report"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		generator.Module,
		task.Server,
		report.WorkerModule,
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
