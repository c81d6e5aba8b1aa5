package domain

import "time"

// AdminUser представляет администратора панели управления лаунчером
type AdminUser struct {
	ID           int64      `gorm:"primaryKey;column:id" json:"id"`
	Username     string     `gorm:"column:username;size:50;uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	IsActive     bool       `gorm:"column:is_active;default:true" json:"is_active"`
}

// TableName возвращает название таблицы для GORM
func (AdminUser) TableName() string {
	return "admin_users"
}
