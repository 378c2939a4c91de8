package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"researchpal-backend/pkg/config"
	"researchpal-backend/pkg/db"
	"researchpal-backend/pkg/health"
	"researchpal-backend/pkg/logger"
	"researchpal-backend/pkg/redis"
	"researchpal-backend/pkg/server"
	"researchpal-backend/pkg/task"
	"researchpal-backend/services/account"
	"researchpal-backend/services/order"
	"researchpal-backend/services/report"
	"researchpal-backend/services/user"
	"researchpal-backend/services/webhook"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		health.Module,
		fx.Provide(provideSnowflakeNode),
		fx.Invoke(migrate),
		server.Module,
		user.Module,
		account.Module,
		order.Module,
		webhook.Module,
		report.Module,
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

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&account.User{},
		&order.Order{},
		&report.Report{},
	)
}
