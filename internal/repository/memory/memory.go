package memory

import (
	"LaunchGate-Backend/internal/domain"
	"LaunchGate-Backend/internal/repository"
	"context"
	"sync"
	"time"
)

// MemStorage хранит все данные в памяти под одним мьютексом.
// Используется в тестах и для локальной разработки без PostgreSQL.
type MemStorage struct {
	mu           sync.RWMutex
	sessions     map[string]*domain.GameSession
	rules        map[string]*domain.IpRule // ключ: ip + "|" + rule_type
	settings     map[string]string
	admins       map[string]*domain.AdminUser
	idCounter    int64
	adminCounter int64
}

func New() *MemStorage {
	return &MemStorage{
		sessions: make(map[string]*domain.GameSession),
		rules:    make(map[string]*domain.IpRule),
		settings: make(map[string]string),
		admins:   make(map[string]*domain.AdminUser),
	}
}

func ruleKey(ip, ruleType string) string {
	return ip + "|" + ruleType
}

// --- Session Ledger Methods ---

func (s *MemStorage) CreateSession(_ context.Context, session *domain.GameSession, maxClients int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := 0
	for _, existing := range s.sessions {
		if existing.IPAddress == session.IPAddress && existing.Status == domain.SessionStatusActive {
			active++
		}
	}
	if active >= maxClients {
		return active, repository.ErrMaxClientsReached
	}

	if _, exists := s.sessions[session.SessionID]; exists {
		return active, repository.ErrSessionExists
	}

	s.idCounter++
	session.ID = s.idCounter
	stored := *session
	s.sessions[session.SessionID] = &stored

	return active + 1, nil
}

func (s *MemStorage) TouchSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.Status != domain.SessionStatusActive {
		return repository.ErrSessionNotFound
	}
	session.LastHeartbeat = time.Now()
	return nil
}

func (s *MemStorage) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[sessionID]; ok {
		session.Status = domain.SessionStatusClosed
	}
	return nil
}

func (s *MemStorage) CountActiveSessions(_ context.Context, ip string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, session := range s.sessions {
		if session.IPAddress == ip && session.Status == domain.SessionStatusActive {
			count++
		}
	}
	return count, nil
}

func (s *MemStorage) CountRecentDevices(_ context.Context, ip string, window time.Duration) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	seen := make(map[string]struct{})
	for _, session := range s.sessions {
		if session.IPAddress != ip || !session.LaunchedAt.After(cutoff) {
			continue
		}
		if hwid := session.HWIDValue(); hwid != "" {
			seen[hwid] = struct{}{}
		}
	}
	return len(seen), nil
}

func (s *MemStorage) DeviceSeenRecently(_ context.Context, ip string, hwid string, window time.Duration) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	for _, session := range s.sessions {
		if session.IPAddress == ip && session.HWIDValue() == hwid && session.LaunchedAt.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStorage) ReapExpiredSessions(_ context.Context, timeout time.Duration) ([]*domain.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-timeout)
	var reaped []*domain.GameSession
	for _, session := range s.sessions {
		if session.Status == domain.SessionStatusActive && session.LastHeartbeat.Before(cutoff) {
			session.Status = domain.SessionStatusClosed
			copied := *session
			reaped = append(reaped, &copied)
		}
	}
	return reaped, nil
}

func (s *MemStorage) ListActiveSessions(_ context.Context) ([]*domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []*domain.GameSession
	for _, session := range s.sessions {
		if session.Status == domain.SessionStatusActive {
			copied := *session
			sessions = append(sessions, &copied)
		}
	}
	return sessions, nil
}

// --- IP Policy Methods ---

func (s *MemStorage) IsIPBlacklisted(_ context.Context, ip string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rules[ruleKey(ip, domain.RuleTypeBlacklist)]
	return ok, nil
}

func (s *MemStorage) GetMaxClientsOverride(_ context.Context, ip string) (*int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[ruleKey(ip, domain.RuleTypeWhitelist)]
	if !ok || rule.MaxClients == nil {
		return nil, nil
	}
	value := *rule.MaxClients
	return &value, nil
}

func (s *MemStorage) ListIPRules(_ context.Context) ([]*domain.IpRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rules []*domain.IpRule
	for _, rule := range s.rules {
		copied := *rule
		rules = append(rules, &copied)
	}
	return rules, nil
}

func (s *MemStorage) UpsertIPRule(_ context.Context, rule *domain.IpRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rule
	s.rules[ruleKey(rule.IPAddress, rule.RuleType)] = &stored
	return nil
}

func (s *MemStorage) DeleteIPRule(_ context.Context, ip string, ruleType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ruleKey(ip, ruleType)
	if _, ok := s.rules[key]; !ok {
		return repository.ErrIPRuleNotFound
	}
	delete(s.rules, key)
	return nil
}

// --- Server Settings Methods ---

func (s *MemStorage) GetSetting(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.settings[key]
	if !ok {
		return "", repository.ErrSettingNotFound
	}
	return value, nil
}

func (s *MemStorage) SetSetting(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *MemStorage) ListSettings(_ context.Context) ([]*domain.ServerSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var settings []*domain.ServerSetting
	for key, value := range s.settings {
		settings = append(settings, &domain.ServerSetting{Key: key, Value: value})
	}
	return settings, nil
}

// --- Admin User Methods ---

func (s *MemStorage) GetAdminUserByUsername(_ context.Context, username string) (*domain.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.admins[username]
	if !ok || !user.IsActive {
		return nil, repository.ErrAdminUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemStorage) CreateAdminUser(_ context.Context, user *domain.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[user.Username]; ok {
		return repository.ErrAdminUserExists
	}
	s.adminCounter++
	user.ID = s.adminCounter
	stored := *user
	s.admins[user.Username] = &stored
	return nil
}

func (s *MemStorage) UpdateAdminLastLogin(_ context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.admins {
		if user.ID == userID {
			stamp := at
			user.LastLoginAt = &stamp
			return nil
		}
	}
	return repository.ErrAdminUserNotFound
}
