package http

import (
	"LaunchGate-Backend/internal/legacy"
	"LaunchGate-Backend/internal/settings"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// LegacyHandler мост к внешней базе аккаунтов для легаси клиента игры.
// Протокол фиксирован старым клиентом: плоский текст, поля через "|",
// отрицательные числовые коды отказов. Любая внутренняя ошибка отдается
// как "-1" - stack trace или текст ошибки наружу не уходят никогда.
type LegacyHandler struct {
	gateway  legacy.AccountGateway
	settings *settings.Provider
	clientIP *ClientIPExtractor
	log      *zap.Logger
}

// NewLegacyHandler создает новый обработчик легаси моста.
// gateway может быть nil, если мост не настроен: все запросы к процедурам
// будут отвергнуты кодом "-1".
func NewLegacyHandler(gateway legacy.AccountGateway, provider *settings.Provider, clientIP *ClientIPExtractor, log *zap.Logger) *LegacyHandler {
	return &LegacyHandler{
		gateway:  gateway,
		settings: provider,
		clientIP: clientIP,
		log:      log,
	}
}

// Login вызывает процедуру логина и отдает результат в формате легаси клиента
func (h *LegacyHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := h.clientIP.ClientIP(r)

	id := r.FormValue("id")
	pw := r.FormValue("passwd")
	ver := r.FormValue("ver")
	test := r.FormValue("test")
	code := r.FormValue("code")
	pcode := r.FormValue("pcode")
	nation := r.FormValue("nation")

	// Фиксированные коды валидации легаси протокола
	if id == "" {
		h.writePlain(w, "-1|-2|-1")
		return
	}
	if nation == "" {
		h.writePlain(w, "-1|-3|-1")
		return
	}
	if pcode == "" {
		h.writePlain(w, "-1|-5|-1")
		return
	}

	if h.gateway == nil {
		h.log.Warn("legacy login requested but gateway is not configured")
		h.writePlain(w, strconv.Itoa(legacy.RetFailure))
		return
	}

	maintenance, err := h.settings.MaintenanceMode(r.Context())
	if err != nil {
		h.log.Error("failed to read maintenance mode", zap.Error(err))
		maintenance = false
	}

	testVal, _ := strconv.Atoi(test)
	codeVal, _ := strconv.Atoi(code)

	result, err := h.gateway.Login(r.Context(), legacy.LoginParams{
		ID:           id,
		PasswordHash: md5Hex(pw),
		Nation:       nation,
		Version:      ver,
		Test:         testVal,
		IP:           ip,
		Code:         codeVal,
	})
	if err != nil {
		h.log.Error("legacy login failed", zap.String("id", id), zap.Error(err))
		h.writePlain(w, strconv.Itoa(legacy.RetFailure))
		return
	}

	// Режим обслуживания: пропускаем только администраторов
	if maintenance && result.Grade != legacy.AdminGrade {
		h.log.Warn("legacy login blocked by maintenance mode", zap.String("id", id))
		h.writePlain(w, strconv.Itoa(legacy.RetFailure))
		return
	}

	if result.Ret != 0 {
		h.log.Info("legacy login rejected",
			zap.String("id", id), zap.Int("ret", result.Ret))
		h.writePlain(w, strconv.Itoa(result.Ret))
		return
	}

	// Запись в лобби best-effort: ее отказ не должен ломать вход
	if err := h.gateway.RegisterLobby(r.Context(), result.UserID); err != nil {
		h.log.Warn("lobby insert failed", zap.Int("user_id", result.UserID), zap.Error(err))
	}

	h.log.Info("legacy login success",
		zap.Int("user_id", result.UserID), zap.Int("grade", result.Grade))
	h.writePlain(w, strings.Join([]string{
		result.SessionID,
		strconv.Itoa(result.UserID),
		result.RunVer,
		strconv.Itoa(result.Grade),
		"0",
	}, "|"))
}

// LoginRemove удаляет пользователя из лобби при дисконнекте
func (h *LegacyHandler) LoginRemove(w http.ResponseWriter, r *http.Request) {
	userIDStr := r.FormValue("user_id")
	if userIDStr == "" {
		h.writePlain(w, strconv.Itoa(legacy.RetFailure))
		return
	}

	userID, err := strconv.Atoi(userIDStr)
	if err != nil || h.gateway == nil {
		h.writePlain(w, strconv.Itoa(legacy.RetFailure))
		return
	}

	if err := h.gateway.RemoveLobby(r.Context(), userID); err != nil {
		h.log.Error("legacy login remove failed", zap.Int("user_id", userID), zap.Error(err))
		h.writePlain(w, strconv.Itoa(legacy.RetFailure))
		return
	}

	h.log.Info("legacy login removed", zap.Int("user_id", userID))
	h.writePlain(w, strconv.Itoa(legacy.RetSuccess))
}

// SendCode вызывает процедуру отправки кода подтверждения
func (h *LegacyHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	pw := r.FormValue("passwd")

	if id == "" || pw == "" {
		h.writePlain(w, "-1|-1")
		return
	}

	if h.gateway == nil {
		h.writePlain(w, strconv.Itoa(legacy.RetFailure))
		return
	}

	ret, err := h.gateway.SendCode(r.Context(), id, md5Hex(pw), h.clientIP.ClientIP(r))
	if err != nil {
		h.log.Error("legacy send code failed", zap.String("id", id), zap.Error(err))
		h.writePlain(w, strconv.Itoa(legacy.RetFailure))
		return
	}

	h.writePlain(w, strconv.Itoa(ret))
}

// ServerList отдает строку списка серверов из настроек
func (h *LegacyHandler) ServerList(w http.ResponseWriter, r *http.Request) {
	serverList, err := h.settings.ServerList(r.Context())
	if err != nil {
		h.log.Error("failed to read server list", zap.Error(err))
		serverList = settings.DefaultServerList
	}

	h.writePlain(w, serverList)
}

// DownFlag отдает флаг доступности из настроек
func (h *LegacyHandler) DownFlag(w http.ResponseWriter, r *http.Request) {
	downFlag, err := h.settings.DownFlag(r.Context())
	if err != nil {
		h.log.Error("failed to read down flag", zap.Error(err))
		downFlag = settings.DefaultDownFlag
	}

	h.writePlain(w, downFlag)
}

func (h *LegacyHandler) writePlain(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := fmt.Fprint(w, body); err != nil {
		h.log.Error("failed to write legacy response", zap.Error(err))
	}
}

// md5Hex хеширует пароль так, как этого требует легаси процедура
func md5Hex(value string) string {
	sum := md5.Sum([]byte(value))
	return hex.EncodeToString(sum[:])
}
