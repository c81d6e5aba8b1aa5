package domain

import "time"

// Типы правил для IP адресов
const (
	RuleTypeWhitelist = "whitelist"
	RuleTypeBlacklist = "blacklist"
)

// IpRule представляет правило для IP адреса (черный/белый список)
type IpRule struct {
	ID         int64     `gorm:"primaryKey;column:id" json:"id"`
	IPAddress  string    `gorm:"column:ip_address;size:45;not null;uniqueIndex:unique_ip_rule" json:"ip_address"`
	RuleType   string    `gorm:"column:rule_type;size:10;not null;uniqueIndex:unique_ip_rule" json:"rule_type"`
	MaxClients *int      `gorm:"column:max_clients" json:"max_clients,omitempty"`
	Reason     *string   `gorm:"column:reason;size:255" json:"reason,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName возвращает название таблицы для GORM
func (IpRule) TableName() string {
	return "ip_rules"
}

// IsValidRuleType проверяет, что тип правила известен
func IsValidRuleType(ruleType string) bool {
	return ruleType == RuleTypeWhitelist || ruleType == RuleTypeBlacklist
}
