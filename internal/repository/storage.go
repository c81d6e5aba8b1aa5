package repository

import (
	"LaunchGate-Backend/internal/domain"
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExists     = errors.New("session id already exists")
	ErrMaxClientsReached = errors.New("max clients reached for ip")
	ErrSettingNotFound   = errors.New("setting not found")
	ErrIPRuleNotFound    = errors.New("ip rule not found")
	ErrAdminUserNotFound = errors.New("admin user not found")
	ErrAdminUserExists   = errors.New("admin user already exists")
)

type Storage interface {
	// Session ledger methods
	CreateSession(ctx context.Context, session *domain.GameSession, maxClients int) (int, error)
	TouchSession(ctx context.Context, sessionID string) error
	CloseSession(ctx context.Context, sessionID string) error
	CountActiveSessions(ctx context.Context, ip string) (int, error)
	CountRecentDevices(ctx context.Context, ip string, window time.Duration) (int, error)
	DeviceSeenRecently(ctx context.Context, ip string, hwid string, window time.Duration) (bool, error)
	ReapExpiredSessions(ctx context.Context, timeout time.Duration) ([]*domain.GameSession, error)
	ListActiveSessions(ctx context.Context) ([]*domain.GameSession, error)

	// IP policy methods
	IsIPBlacklisted(ctx context.Context, ip string) (bool, error)
	GetMaxClientsOverride(ctx context.Context, ip string) (*int, error)
	ListIPRules(ctx context.Context) ([]*domain.IpRule, error)
	UpsertIPRule(ctx context.Context, rule *domain.IpRule) error
	DeleteIPRule(ctx context.Context, ip string, ruleType string) error

	// Server settings methods
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key string, value string) error
	ListSettings(ctx context.Context) ([]*domain.ServerSetting, error)

	// Admin user methods
	GetAdminUserByUsername(ctx context.Context, username string) (*domain.AdminUser, error)
	CreateAdminUser(ctx context.Context, user *domain.AdminUser) error
	UpdateAdminLastLogin(ctx context.Context, userID int64, at time.Time) error
}
