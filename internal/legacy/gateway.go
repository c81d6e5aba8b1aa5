package legacy

import (
	"context"
	"errors"
)

// Коды ответов легаси протокола. Клиент игры разбирает их как числа,
// менять нельзя.
const (
	// RetFailure - универсальный код отказа легаси протокола. Любая
	// внутренняя ошибка схлопывается в него: наружу не уходит ничего,
	// кроме кода.
	RetFailure = -1
	// RetSuccess - успех для LoginRemove
	RetSuccess = 1
	// AdminGrade - grade администратора, которому разрешен вход при обслуживании
	AdminGrade = 250
)

// ErrGatewayUnavailable возвращается, когда мост к базе аккаунтов не настроен
var ErrGatewayUnavailable = errors.New("legacy account gateway is not configured")

// LoginParams параметры вызова хранимой процедуры логина
type LoginParams struct {
	ID           string
	PasswordHash string // md5-hex, как требует легаси протокол
	Nation       string
	Version      string
	Test         int
	IP           string
	Code         int
}

// LoginResult результат хранимой процедуры логина
type LoginResult struct {
	UserID    int
	SessionID string
	RunVer    string
	BillNo    int
	Grade     int
	Ret       int
}

// AccountGateway мост к внешней базе аккаунтов. Чистый проброс
// запрос/ответ: никакого состояния на нашей стороне.
type AccountGateway interface {
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)
	RegisterLobby(ctx context.Context, userID int) error
	RemoveLobby(ctx context.Context, userID int) error
	SendCode(ctx context.Context, id string, passwordHash string, ip string) (int, error)
}
