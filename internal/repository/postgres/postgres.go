package postgres

import (
	"LaunchGate-Backend/internal/domain"
	"LaunchGate-Backend/internal/repository"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStorage реализует интерфейс Storage для PostgreSQL
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New создает новый экземпляр PostgreSQL storage
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// --- Session Ledger Methods ---

// CreateSession атомарно проверяет лимит активных сессий для IP и создает новую.
// Проверка и вставка сериализуются advisory lock по IP, иначе две параллельные
// заявки могли бы вместе превысить лимит.
func (s *PostgresStorage) CreateSession(ctx context.Context, session *domain.GameSession, maxClients int) (int, error) {
	var activeCount int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Сериализация по IP внутри транзакции
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", session.IPAddress).Error; err != nil {
			return fmt.Errorf("failed to take ip lock: %w", err)
		}

		if err := tx.Model(&domain.GameSession{}).
			Where("ip_address = ? AND status = ?", session.IPAddress, domain.SessionStatusActive).
			Count(&activeCount).Error; err != nil {
			return fmt.Errorf("failed to count active sessions: %w", err)
		}

		if int(activeCount) >= maxClients {
			return repository.ErrMaxClientsReached
		}

		// Коллизия session_id - отказываем, а не сливаем записи
		var existing int64
		if err := tx.Model(&domain.GameSession{}).
			Where("session_id = ?", session.SessionID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check session id: %w", err)
		}
		if existing > 0 {
			return repository.ErrSessionExists
		}

		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		return nil
	})

	if err == repository.ErrMaxClientsReached || err == repository.ErrSessionExists {
		return int(activeCount), err
	}
	if err != nil {
		s.log.Error("failed to create session",
			zap.String("ip", session.IPAddress), zap.Error(err))
		return 0, err
	}

	s.log.Info("created session",
		zap.String("ip", session.IPAddress),
		zap.Int("active_sessions", int(activeCount)+1))
	return int(activeCount) + 1, nil
}

// TouchSession обновляет last_heartbeat активной сессии
func (s *PostgresStorage) TouchSession(ctx context.Context, sessionID string) error {
	result := s.db.WithContext(ctx).Model(&domain.GameSession{}).
		Where("session_id = ? AND status = ?", sessionID, domain.SessionStatusActive).
		Update("last_heartbeat", time.Now())

	if result.Error != nil {
		s.log.Error("failed to touch session", zap.Error(result.Error))
		return fmt.Errorf("failed to touch session: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// CloseSession закрывает сессию. Идемпотентна: закрытие уже закрытой или
// несуществующей сессии не является ошибкой.
func (s *PostgresStorage) CloseSession(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).Model(&domain.GameSession{}).
		Where("session_id = ?", sessionID).
		Update("status", domain.SessionStatusClosed).Error
	if err != nil {
		s.log.Error("failed to close session", zap.Error(err))
		return fmt.Errorf("failed to close session: %w", err)
	}

	return nil
}

// CountActiveSessions возвращает число активных сессий для IP
func (s *PostgresStorage) CountActiveSessions(ctx context.Context, ip string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.GameSession{}).
		Where("ip_address = ? AND status = ?", ip, domain.SessionStatusActive).
		Count(&count).Error
	if err != nil {
		s.log.Error("failed to count active sessions", zap.String("ip", ip), zap.Error(err))
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}

	return int(count), nil
}

// CountRecentDevices возвращает число уникальных HWID для IP в пределах окна,
// независимо от статуса сессии
func (s *PostgresStorage) CountRecentDevices(ctx context.Context, ip string, window time.Duration) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.GameSession{}).
		Where("ip_address = ? AND launched_at > ?", ip, time.Now().Add(-window)).
		Where("hwid IS NOT NULL AND hwid <> ''").
		Distinct("hwid").
		Count(&count).Error
	if err != nil {
		s.log.Error("failed to count recent devices", zap.String("ip", ip), zap.Error(err))
		return 0, fmt.Errorf("failed to count recent devices: %w", err)
	}

	return int(count), nil
}

// DeviceSeenRecently проверяет, запускалось ли это устройство с этого IP в пределах окна
func (s *PostgresStorage) DeviceSeenRecently(ctx context.Context, ip string, hwid string, window time.Duration) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.GameSession{}).
		Where("ip_address = ? AND hwid = ? AND launched_at > ?", ip, hwid, time.Now().Add(-window)).
		Count(&count).Error
	if err != nil {
		s.log.Error("failed to check device", zap.String("ip", ip), zap.Error(err))
		return false, fmt.Errorf("failed to check device: %w", err)
	}

	return count > 0, nil
}

// ReapExpiredSessions закрывает активные сессии без heartbeat дольше таймаута
// и возвращает закрытые записи. Предикат и обновление выполняются одним
// запросом: сессия, успевшая отправить heartbeat, закрыта не будет.
func (s *PostgresStorage) ReapExpiredSessions(ctx context.Context, timeout time.Duration) ([]*domain.GameSession, error) {
	cutoff := time.Now().Add(-timeout)

	var reaped []*domain.GameSession
	err := s.db.WithContext(ctx).Model(&reaped).
		Clauses(clause.Returning{}).
		Where("status = ? AND last_heartbeat < ?", domain.SessionStatusActive, cutoff).
		Update("status", domain.SessionStatusClosed).Error
	if err != nil {
		s.log.Error("failed to reap expired sessions", zap.Error(err))
		return nil, fmt.Errorf("failed to reap expired sessions: %w", err)
	}

	if len(reaped) > 0 {
		s.log.Info("reaped expired sessions", zap.Int("count", len(reaped)))
	}
	return reaped, nil
}

// ListActiveSessions возвращает все активные сессии
func (s *PostgresStorage) ListActiveSessions(ctx context.Context) ([]*domain.GameSession, error) {
	var sessions []*domain.GameSession
	err := s.db.WithContext(ctx).
		Where("status = ?", domain.SessionStatusActive).
		Order("launched_at DESC").
		Find(&sessions).Error
	if err != nil {
		s.log.Error("failed to list active sessions", zap.Error(err))
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}

	return sessions, nil
}

// --- IP Policy Methods ---

// IsIPBlacklisted проверяет, есть ли для IP запись в черном списке
func (s *PostgresStorage) IsIPBlacklisted(ctx context.Context, ip string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.IpRule{}).
		Where("ip_address = ? AND rule_type = ?", ip, domain.RuleTypeBlacklist).
		Count(&count).Error
	if err != nil {
		s.log.Error("failed to check blacklist", zap.String("ip", ip), zap.Error(err))
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}

	return count > 0, nil
}

// GetMaxClientsOverride возвращает индивидуальный лимит клиентов из белого
// списка или nil, если переопределения нет
func (s *PostgresStorage) GetMaxClientsOverride(ctx context.Context, ip string) (*int, error) {
	var rule domain.IpRule
	err := s.db.WithContext(ctx).
		Where("ip_address = ? AND rule_type = ? AND max_clients IS NOT NULL", ip, domain.RuleTypeWhitelist).
		First(&rule).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		s.log.Error("failed to get max clients override", zap.String("ip", ip), zap.Error(err))
		return nil, fmt.Errorf("failed to get max clients override: %w", err)
	}

	return rule.MaxClients, nil
}

// ListIPRules возвращает все правила для IP адресов
func (s *PostgresStorage) ListIPRules(ctx context.Context) ([]*domain.IpRule, error) {
	var rules []*domain.IpRule
	err := s.db.WithContext(ctx).Order("ip_address, rule_type").Find(&rules).Error
	if err != nil {
		s.log.Error("failed to list ip rules", zap.Error(err))
		return nil, fmt.Errorf("failed to list ip rules: %w", err)
	}

	return rules, nil
}

// UpsertIPRule создает или обновляет правило для пары (ip, rule_type)
func (s *PostgresStorage) UpsertIPRule(ctx context.Context, rule *domain.IpRule) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip_address"}, {Name: "rule_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"max_clients", "reason"}),
	}).Create(rule).Error
	if err != nil {
		s.log.Error("failed to upsert ip rule",
			zap.String("ip", rule.IPAddress), zap.String("rule_type", rule.RuleType), zap.Error(err))
		return fmt.Errorf("failed to upsert ip rule: %w", err)
	}

	s.log.Info("upserted ip rule",
		zap.String("ip", rule.IPAddress), zap.String("rule_type", rule.RuleType))
	return nil
}

// DeleteIPRule удаляет правило для пары (ip, rule_type)
func (s *PostgresStorage) DeleteIPRule(ctx context.Context, ip string, ruleType string) error {
	result := s.db.WithContext(ctx).
		Where("ip_address = ? AND rule_type = ?", ip, ruleType).
		Delete(&domain.IpRule{})
	if result.Error != nil {
		s.log.Error("failed to delete ip rule", zap.String("ip", ip), zap.Error(result.Error))
		return fmt.Errorf("failed to delete ip rule: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrIPRuleNotFound
	}

	s.log.Info("deleted ip rule", zap.String("ip", ip), zap.String("rule_type", ruleType))
	return nil
}

// --- Server Settings Methods ---

// GetSetting возвращает строковое значение настройки по ключу
func (s *PostgresStorage) GetSetting(ctx context.Context, key string) (string, error) {
	var setting domain.ServerSetting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err == gorm.ErrRecordNotFound {
		return "", repository.ErrSettingNotFound
	}
	if err != nil {
		s.log.Error("failed to get setting", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to get setting: %w", err)
	}

	return setting.Value, nil
}

// SetSetting создает или обновляет настройку
func (s *PostgresStorage) SetSetting(ctx context.Context, key string, value string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&domain.ServerSetting{Key: key, Value: value, UpdatedAt: time.Now()}).Error
	if err != nil {
		s.log.Error("failed to set setting", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to set setting: %w", err)
	}

	s.log.Info("updated setting", zap.String("key", key))
	return nil
}

// ListSettings возвращает все настройки сервера
func (s *PostgresStorage) ListSettings(ctx context.Context) ([]*domain.ServerSetting, error) {
	var settings []*domain.ServerSetting
	err := s.db.WithContext(ctx).Order("key").Find(&settings).Error
	if err != nil {
		s.log.Error("failed to list settings", zap.Error(err))
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	return settings, nil
}

// --- Admin User Methods ---

// GetAdminUserByUsername получает администратора по имени
func (s *PostgresStorage) GetAdminUserByUsername(ctx context.Context, username string) (*domain.AdminUser, error) {
	var user domain.AdminUser
	err := s.db.WithContext(ctx).
		Where("username = ? AND is_active = ?", username, true).
		First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, repository.ErrAdminUserNotFound
	}
	if err != nil {
		s.log.Error("failed to get admin user", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}

	return &user, nil
}

// CreateAdminUser создает нового администратора
func (s *PostgresStorage) CreateAdminUser(ctx context.Context, user *domain.AdminUser) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.AdminUser{}).
		Where("username = ?", user.Username).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check admin user: %w", err)
	}
	if count > 0 {
		return repository.ErrAdminUserExists
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		s.log.Error("failed to create admin user", zap.String("username", user.Username), zap.Error(err))
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	s.log.Info("created admin user", zap.String("username", user.Username))
	return nil
}

// UpdateAdminLastLogin обновляет отметку последнего входа администратора
func (s *PostgresStorage) UpdateAdminLastLogin(ctx context.Context, userID int64, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&domain.AdminUser{}).
		Where("id = ?", userID).
		Update("last_login_at", at).Error
	if err != nil {
		s.log.Error("failed to update admin last login", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("failed to update admin last login: %w", err)
	}

	return nil
}
