package database

import (
	"LaunchGate-Backend/internal/domain"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate выполняет автоматические миграции для всех доменных моделей
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("starting database auto-migration")

	models := []interface{}{
		&domain.ServerSetting{},
		&domain.IpRule{},
		&domain.GameSession{},
		&domain.AdminUser{},
	}

	for _, model := range models {
		modelName := fmt.Sprintf("%T", model)
		if err := db.AutoMigrate(model); err != nil {
			log.Error("failed to migrate model",
				zap.String("model", modelName),
				zap.Error(err))
			return fmt.Errorf("failed to migrate model %s: %w", modelName, err)
		}
		log.Info("model migrated", zap.String("model", modelName))
	}

	log.Info("database auto-migration completed", zap.Int("migrated_models", len(models)))
	return nil
}

// SeedData заполняет настройки сервера значениями по умолчанию.
// Существующие значения не перезаписываются: деплой не должен сбрасывать
// настройки, измененные администратором.
func SeedData(db *gorm.DB, log *zap.Logger) error {
	log.Info("seeding default server settings")

	defaults := []domain.ServerSetting{
		{Key: domain.SettingMaxClientsPerIP, Value: "4"},
		{Key: domain.SettingSessionTimeout, Value: "60"},
		{Key: domain.SettingMaxHWIDsPerIP, Value: "3"},
		{Key: domain.SettingMaintenanceMode, Value: "0"},
		{Key: domain.SettingServerList, Value: "Odin|127.0.0.1|22100|3|3|1|0|0|0|International Server|"},
		{Key: domain.SettingDownFlag, Value: "0"},
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&defaults).Error
	if err != nil {
		log.Error("failed to seed server settings", zap.Error(err))
		return fmt.Errorf("failed to seed server settings: %w", err)
	}

	log.Info("server settings seeded", zap.Int("settings", len(defaults)))
	return nil
}
