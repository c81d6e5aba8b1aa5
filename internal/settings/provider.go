package settings

import (
	"LaunchGate-Backend/internal/domain"
	"LaunchGate-Backend/internal/repository"
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Значения по умолчанию, если настройка отсутствует в базе
const (
	DefaultMaxClientsPerIP = 4
	DefaultSessionTimeout  = 60 * time.Second
	DefaultMaxHWIDsPerIP   = 3
	DefaultServerList      = "Odin|127.0.0.1|22100|3|3|1|0|0|0|International Server|"
	DefaultDownFlag        = "0"
)

// ErrSecretNotConfigured возвращается, когда launcher_secret не задан в базе
var ErrSecretNotConfigured = errors.New("launcher secret is not configured")

type cacheEntry struct {
	value     string
	found     bool
	fetchedAt time.Time
}

// Provider читает настройки сервера через кэш с TTL. Настройки меняются
// редко, а читаются на каждом запросе, поэтому ходить в базу каждый раз
// не нужно.
type Provider struct {
	storage repository.Storage
	log     *zap.Logger
	ttl     time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewProvider создает провайдер настроек с заданным TTL кэша.
// TTL 0 отключает кэширование (каждое чтение идет в базу).
func NewProvider(storage repository.Storage, ttl time.Duration, log *zap.Logger) *Provider {
	return &Provider{
		storage: storage,
		log:     log,
		ttl:     ttl,
		cache:   make(map[string]cacheEntry),
	}
}

// Get возвращает значение настройки или fallback, если ее нет в базе.
// Ошибка хранилища не маскируется fallback-ом.
func (p *Provider) Get(ctx context.Context, key string, fallback string) (string, error) {
	if p.ttl > 0 {
		p.mu.RLock()
		entry, ok := p.cache[key]
		p.mu.RUnlock()
		if ok && time.Since(entry.fetchedAt) < p.ttl {
			if !entry.found {
				return fallback, nil
			}
			return entry.value, nil
		}
	}

	value, err := p.storage.GetSetting(ctx, key)
	if err == repository.ErrSettingNotFound {
		p.store(key, "", false)
		return fallback, nil
	}
	if err != nil {
		p.log.Error("failed to read setting", zap.String("key", key), zap.Error(err))
		return "", err
	}

	p.store(key, value, true)
	return value, nil
}

// GetInt возвращает целочисленную настройку; нечисловое значение в базе
// трактуется как отсутствующее
func (p *Provider) GetInt(ctx context.Context, key string, fallback int) (int, error) {
	raw, err := p.Get(ctx, key, strconv.Itoa(fallback))
	if err != nil {
		return 0, err
	}

	value, convErr := strconv.Atoi(raw)
	if convErr != nil {
		p.log.Warn("setting is not an integer, using fallback",
			zap.String("key", key), zap.String("value", raw), zap.Int("fallback", fallback))
		return fallback, nil
	}
	return value, nil
}

// Invalidate сбрасывает кэш (вызывается после записи настроек)
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cache = make(map[string]cacheEntry)
	p.mu.Unlock()
}

func (p *Provider) store(key, value string, found bool) {
	if p.ttl <= 0 {
		return
	}
	p.mu.Lock()
	p.cache[key] = cacheEntry{value: value, found: found, fetchedAt: time.Now()}
	p.mu.Unlock()
}

// --- Типизированные геттеры для ключей ядра ---

// MaxClientsPerIP возвращает лимит одновременных сессий на IP по умолчанию
func (p *Provider) MaxClientsPerIP(ctx context.Context) (int, error) {
	return p.GetInt(ctx, domain.SettingMaxClientsPerIP, DefaultMaxClientsPerIP)
}

// SessionTimeout возвращает таймаут сессии без heartbeat
func (p *Provider) SessionTimeout(ctx context.Context) (time.Duration, error) {
	seconds, err := p.GetInt(ctx, domain.SettingSessionTimeout, int(DefaultSessionTimeout.Seconds()))
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

// MaxHWIDsPerIP возвращает лимит уникальных устройств на IP
func (p *Provider) MaxHWIDsPerIP(ctx context.Context) (int, error) {
	return p.GetInt(ctx, domain.SettingMaxHWIDsPerIP, DefaultMaxHWIDsPerIP)
}

// MaintenanceMode сообщает, включен ли режим обслуживания
func (p *Provider) MaintenanceMode(ctx context.Context) (bool, error) {
	value, err := p.Get(ctx, domain.SettingMaintenanceMode, "0")
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

// LauncherSecret возвращает общий секрет для API ключей лаунчера.
// Отсутствие секрета - ошибка конфигурации, fallback-а нет.
func (p *Provider) LauncherSecret(ctx context.Context) (string, error) {
	secret, err := p.Get(ctx, domain.SettingLauncherSecret, "")
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", ErrSecretNotConfigured
	}
	return secret, nil
}

// ServerList возвращает строку списка серверов для легаси клиента
func (p *Provider) ServerList(ctx context.Context) (string, error) {
	return p.Get(ctx, domain.SettingServerList, DefaultServerList)
}

// DownFlag возвращает флаг доступности для легаси клиента
func (p *Provider) DownFlag(ctx context.Context) (string, error) {
	return p.Get(ctx, domain.SettingDownFlag, DefaultDownFlag)
}
