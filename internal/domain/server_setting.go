package domain

import "time"

// Ключи настроек, используемые ядром
const (
	SettingMaxClientsPerIP = "max_clients_per_ip"
	SettingSessionTimeout  = "session_timeout_seconds"
	SettingMaxHWIDsPerIP   = "max_hwids_per_ip"
	SettingMaintenanceMode = "maintenance_mode"
	SettingLauncherSecret  = "launcher_secret"
	SettingServerList      = "server_list"
	SettingDownFlag        = "down_flag"
)

// ServerSetting представляет настройку сервера (ключ -> строковое значение)
type ServerSetting struct {
	Key       string    `gorm:"primaryKey;column:key;size:50" json:"key"`
	Value     string    `gorm:"column:value;size:255;not null" json:"value"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName возвращает название таблицы для GORM
func (ServerSetting) TableName() string {
	return "server_settings"
}
