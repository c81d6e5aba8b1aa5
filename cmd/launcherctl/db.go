package main

import (
	"fmt"

	"LaunchGate-Backend/internal/config"
	"LaunchGate-Backend/internal/database"
	"LaunchGate-Backend/internal/repository"
	"LaunchGate-Backend/internal/repository/postgres"
	"LaunchGate-Backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// openStorage подключается к базе по той же конфигурации, что и сервис
func openStorage() (*gorm.DB, repository.Storage, *zap.Logger, error) {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, postgres.New(db, log), log, nil
}

func closeDB(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db, log); err != nil {
		log.Error("failed to close database connection", zap.Error(err))
	}
}
