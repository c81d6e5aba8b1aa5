package domain

import "time"

// Статусы игровой сессии
const (
	SessionStatusActive = "active"
	SessionStatusClosed = "closed"
)

// GameSession представляет одну допущенную попытку запуска игрового клиента
type GameSession struct {
	ID            int64     `gorm:"primaryKey;column:id" json:"id"`
	SessionID     string    `gorm:"column:session_id;size:64;uniqueIndex;not null" json:"session_id"`
	IPAddress     string    `gorm:"column:ip_address;size:45;not null;index:idx_ip" json:"ip_address"`
	HWID          *string   `gorm:"column:hwid;size:64" json:"hwid,omitempty"`
	ClientHash    *string   `gorm:"column:client_hash;size:64" json:"client_hash,omitempty"`
	LaunchedAt    time.Time `gorm:"column:launched_at;not null" json:"launched_at"`
	LastHeartbeat time.Time `gorm:"column:last_heartbeat;not null;index:idx_heartbeat" json:"last_heartbeat"`
	Status        string    `gorm:"column:status;size:10;default:active;index:idx_status" json:"status"`
}

// TableName возвращает название таблицы для GORM
func (GameSession) TableName() string {
	return "game_sessions"
}

// IsActive проверяет, активна ли сессия
func (s *GameSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// IdleFor возвращает, сколько времени прошло с последнего heartbeat
func (s *GameSession) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastHeartbeat)
}

// HWIDValue возвращает HWID или пустую строку, если устройство неизвестно
func (s *GameSession) HWIDValue() string {
	if s.HWID == nil {
		return ""
	}
	return *s.HWID
}
