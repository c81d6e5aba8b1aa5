package service

import (
	"LaunchGate-Backend/internal/config"
	"LaunchGate-Backend/internal/domain"
	"LaunchGate-Backend/internal/repository"
	"LaunchGate-Backend/internal/settings"
	"LaunchGate-Backend/pkg/random"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const sessionIDLength = 64

// Коды отказа в допуске. Коды стабильны: их разбирает клиент лаунчера.
const (
	DenialIPBlocked         = "IP_BLOCKED"
	DenialHWIDLimitExceeded = "HWID_LIMIT_EXCEEDED"
	DenialMaxClientsReached = "MAX_CLIENTS_REACHED"
)

// Denial описывает отказ в допуске к запуску. Это ожидаемый исход,
// а не инфраструктурная ошибка.
type Denial struct {
	Code           string
	Message        string
	ActiveSessions int
	MaxAllowed     int
}

func (d *Denial) Error() string {
	return fmt.Sprintf("launch denied: %s", d.Code)
}

// AsDenial извлекает Denial из ошибки, если она им является
func AsDenial(err error) (*Denial, bool) {
	var denial *Denial
	if errors.As(err, &denial) {
		return denial, true
	}
	return nil, false
}

// LaunchResult содержит выданный допуск на запуск
type LaunchResult struct {
	SessionID         string
	ActiveSessions    int
	MaxAllowed        int
	HeartbeatInterval int // секунды; клиент должен слать heartbeat с этим интервалом
}

// StatusResult содержит текущее состояние квот для IP
type StatusResult struct {
	ActiveSessions int
	MaxAllowed     int
	SlotsAvailable int
	Maintenance    bool
}

// AdmissionService решает, можно ли клиенту запустить новую игровую сессию,
// и ведет учет живых сессий через heartbeat/close
type AdmissionService struct {
	storage  repository.Storage
	settings *settings.Provider
	cfg      *config.Launcher
	log      *zap.Logger
}

// NewAdmissionService создает новый сервис допуска
func NewAdmissionService(storage repository.Storage, provider *settings.Provider, cfg *config.Launcher, log *zap.Logger) *AdmissionService {
	return &AdmissionService{
		storage:  storage,
		settings: provider,
		cfg:      cfg,
		log:      log,
	}
}

// RequestLaunch проверяет квоты и при успехе создает новую сессию.
// Порядок проверок фиксирован протоколом клиента: черный список, затем
// лимит устройств, затем лимит одновременных сессий.
func (s *AdmissionService) RequestLaunch(ctx context.Context, ip string, hwid string, clientHash string) (*LaunchResult, error) {
	blacklisted, err := s.storage.IsIPBlacklisted(ctx, ip)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		s.log.Warn("launch denied by blacklist", zap.String("ip", ip))
		return nil, &Denial{Code: DenialIPBlocked, Message: "Access denied"}
	}

	if hwid != "" {
		allowed, err := s.checkDeviceLimit(ctx, ip, hwid)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, &Denial{Code: DenialHWIDLimitExceeded, Message: "Too many devices from this IP address"}
		}
	}

	maxClients, err := s.maxClientsForIP(ctx, ip)
	if err != nil {
		return nil, err
	}

	sessionID, err := random.NewRandomString(sessionIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := time.Now()
	session := &domain.GameSession{
		SessionID:     sessionID,
		IPAddress:     ip,
		LaunchedAt:    now,
		LastHeartbeat: now,
		Status:        domain.SessionStatusActive,
	}
	if hwid != "" {
		session.HWID = &hwid
	}
	if clientHash != "" {
		session.ClientHash = &clientHash
	}

	active, err := s.storage.CreateSession(ctx, session, maxClients)
	if err == repository.ErrMaxClientsReached {
		s.log.Info("launch denied, max clients reached",
			zap.String("ip", ip), zap.Int("active", active), zap.Int("max", maxClients))
		return nil, &Denial{
			Code:           DenialMaxClientsReached,
			Message:        fmt.Sprintf("Maximum clients reached (%d/%d)", active, maxClients),
			ActiveSessions: active,
			MaxAllowed:     maxClients,
		}
	}
	if err != nil {
		return nil, err
	}

	timeout, err := s.settings.SessionTimeout(ctx)
	if err != nil {
		return nil, err
	}

	s.log.Info("launch admitted",
		zap.String("ip", ip),
		zap.Int("active_sessions", active),
		zap.Int("max_allowed", maxClients))

	return &LaunchResult{
		SessionID:         sessionID,
		ActiveSessions:    active,
		MaxAllowed:        maxClients,
		HeartbeatInterval: int(timeout.Seconds()) / 2,
	}, nil
}

// Heartbeat продлевает жизнь сессии. Не различает "никогда не существовала",
// "закрыта" и "истекла", чтобы не давать оракул для перебора session_id.
func (s *AdmissionService) Heartbeat(ctx context.Context, sessionID string) error {
	return s.storage.TouchSession(ctx, sessionID)
}

// Close закрывает сессию. Идемпотентна, путь завершения клиента не должен
// падать из-за повторного закрытия.
func (s *AdmissionService) Close(ctx context.Context, sessionID string) error {
	return s.storage.CloseSession(ctx, sessionID)
}

// Status возвращает состояние квот для IP, ничего не изменяя
func (s *AdmissionService) Status(ctx context.Context, ip string) (*StatusResult, error) {
	active, err := s.storage.CountActiveSessions(ctx, ip)
	if err != nil {
		return nil, err
	}

	maxClients, err := s.maxClientsForIP(ctx, ip)
	if err != nil {
		return nil, err
	}

	maintenance, err := s.settings.MaintenanceMode(ctx)
	if err != nil {
		return nil, err
	}

	slots := maxClients - active
	if slots < 0 {
		slots = 0
	}

	return &StatusResult{
		ActiveSessions: active,
		MaxAllowed:     maxClients,
		SlotsAvailable: slots,
		Maintenance:    maintenance,
	}, nil
}

// checkDeviceLimit ограничивает число уникальных устройств на IP в пределах
// скользящего окна. Уже виденное устройство пропускается без подсчета:
// одно и то же устройство не учитывается дважды.
func (s *AdmissionService) checkDeviceLimit(ctx context.Context, ip string, hwid string) (bool, error) {
	window := s.cfg.HWIDWindow()

	seen, err := s.storage.DeviceSeenRecently(ctx, ip, hwid, window)
	if err != nil {
		return false, err
	}
	if seen {
		return true, nil
	}

	maxDevices, err := s.settings.MaxHWIDsPerIP(ctx)
	if err != nil {
		return false, err
	}

	devices, err := s.storage.CountRecentDevices(ctx, ip, window)
	if err != nil {
		return false, err
	}

	if devices >= maxDevices {
		s.log.Warn("hwid limit exceeded",
			zap.String("ip", ip),
			zap.String("hwid_prefix", hwidPrefix(hwid)),
			zap.Int("unique_hwids", devices),
			zap.Int("max_allowed", maxDevices))
		return false, nil
	}

	return true, nil
}

// maxClientsForIP возвращает лимит клиентов: переопределение из белого списка
// или значение по умолчанию из настроек
func (s *AdmissionService) maxClientsForIP(ctx context.Context, ip string) (int, error) {
	override, err := s.storage.GetMaxClientsOverride(ctx, ip)
	if err != nil {
		return 0, err
	}
	if override != nil {
		return *override, nil
	}

	return s.settings.MaxClientsPerIP(ctx)
}

// hwidPrefix обрезает HWID для логов
func hwidPrefix(hwid string) string {
	if len(hwid) <= 8 {
		return hwid
	}
	return hwid[:8] + "..."
}
