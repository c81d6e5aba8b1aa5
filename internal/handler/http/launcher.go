package http

import (
	"LaunchGate-Backend/internal/repository"
	"LaunchGate-Backend/internal/service"
	"LaunchGate-Backend/pkg/useragent"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LauncherHandler обработчик API лаунчера
type LauncherHandler struct {
	admission *service.AdmissionService
	clientIP  *ClientIPExtractor
	log       *zap.Logger
}

// NewLauncherHandler создает новый обработчик API лаунчера
func NewLauncherHandler(admission *service.AdmissionService, clientIP *ClientIPExtractor, log *zap.Logger) *LauncherHandler {
	return &LauncherHandler{
		admission: admission,
		clientIP:  clientIP,
		log:       log,
	}
}

// RequestLaunchRequest структура запроса на запуск
type RequestLaunchRequest struct {
	HWID       string `json:"hwid,omitempty"`
	ClientHash string `json:"client_hash,omitempty"`
}

// RequestLaunchResponse структура ответа на допущенный запуск
type RequestLaunchResponse struct {
	Success           bool   `json:"success"`
	SessionID         string `json:"session_id"`
	ActiveSessions    int    `json:"active_sessions"`
	MaxAllowed        int    `json:"max_allowed"`
	HeartbeatInterval int    `json:"heartbeat_interval"`
}

// SessionRequest структура запроса heartbeat/close
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// StatusResponse структура ответа статуса
type StatusResponse struct {
	Success        bool   `json:"success"`
	IP             string `json:"ip"`
	ActiveSessions int    `json:"active_sessions"`
	MaxAllowed     int    `json:"max_allowed"`
	SlotsAvailable int    `json:"slots_available"`
	Maintenance    bool   `json:"maintenance"`
	ServerTime     string `json:"server_time"`
}

// RequestLaunch выдает разрешение на запуск игры
//
//	@Summary		Request permission to launch the game
//	@Description	Checks IP and device quotas and issues a new session on success
//	@Tags			Launcher
//	@Accept			json
//	@Produce		json
//	@Param			X-API-Key	header		string					true	"Daily launcher API key"
//	@Param			request		body		RequestLaunchRequest	false	"Launch request"
//	@Success		200			{object}	RequestLaunchResponse	"Launch admitted"
//	@Failure		403			{object}	map[string]interface{}	"IP_BLOCKED or HWID_LIMIT_EXCEEDED"
//	@Failure		429			{object}	map[string]interface{}	"MAX_CLIENTS_REACHED"
//	@Router			/api/launcher/request-launch [post]
func (h *LauncherHandler) RequestLaunch(w http.ResponseWriter, r *http.Request) {
	ip := h.clientIP.ClientIP(r)

	var req RequestLaunchRequest
	// Тело опционально: запуск без hwid и client_hash допустим
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		h.log.Debug("invalid launch request body", zap.Error(err))
		h.writeError(w, "Invalid request format", "", http.StatusBadRequest)
		return
	}

	h.logClientInfo(r, ip)

	result, err := h.admission.RequestLaunch(r.Context(), ip, req.HWID, req.ClientHash)
	if err != nil {
		if denial, ok := service.AsDenial(err); ok {
			h.writeDenial(w, denial)
			return
		}
		h.log.Error("request launch failed", zap.String("ip", ip), zap.Error(err))
		h.writeError(w, "Internal server error", "SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, RequestLaunchResponse{
		Success:           true,
		SessionID:         result.SessionID,
		ActiveSessions:    result.ActiveSessions,
		MaxAllowed:        result.MaxAllowed,
		HeartbeatInterval: result.HeartbeatInterval,
	}, http.StatusOK)
}

// Heartbeat продлевает жизнь сессии
//
//	@Summary		Keep a session alive
//	@Tags			Launcher
//	@Accept			json
//	@Produce		json
//	@Param			X-API-Key	header		string			true	"Daily launcher API key"
//	@Param			request		body		SessionRequest	true	"Session id"
//	@Success		200			{object}	map[string]interface{}	"Session updated"
//	@Failure		400			{object}	map[string]interface{}	"Missing session id"
//	@Failure		404			{object}	map[string]interface{}	"SESSION_INVALID"
//	@Router			/api/launcher/heartbeat [post]
func (h *LauncherHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.readSessionID(w, r)
	if !ok {
		return
	}

	err := h.admission.Heartbeat(r.Context(), sessionID)
	if err == repository.ErrSessionNotFound {
		h.writeError(w, "Session not found or expired", "SESSION_INVALID", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("heartbeat failed", zap.Error(err))
		h.writeError(w, "Internal server error", "SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Session updated",
	}, http.StatusOK)
}

// CloseSession закрывает сессию при выходе из игры
//
//	@Summary		Close a session when the game exits
//	@Tags			Launcher
//	@Accept			json
//	@Produce		json
//	@Param			X-API-Key	header		string			true	"Daily launcher API key"
//	@Param			request		body		SessionRequest	true	"Session id"
//	@Success		200			{object}	map[string]interface{}	"Session closed"
//	@Failure		400			{object}	map[string]interface{}	"Missing session id"
//	@Router			/api/launcher/close-session [post]
func (h *LauncherHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.readSessionID(w, r)
	if !ok {
		return
	}

	if err := h.admission.Close(r.Context(), sessionID); err != nil {
		h.log.Error("close session failed", zap.Error(err))
		h.writeError(w, "Internal server error", "SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Session closed",
	}, http.StatusOK)
}

// Status возвращает состояние квот для IP клиента
//
//	@Summary		Get quota status for the calling IP
//	@Tags			Launcher
//	@Produce		json
//	@Param			X-API-Key	header		string	true	"Daily launcher API key"
//	@Success		200			{object}	StatusResponse	"Current status"
//	@Router			/api/launcher/status [get]
func (h *LauncherHandler) Status(w http.ResponseWriter, r *http.Request) {
	ip := h.clientIP.ClientIP(r)

	status, err := h.admission.Status(r.Context(), ip)
	if err != nil {
		h.log.Error("status query failed", zap.String("ip", ip), zap.Error(err))
		h.writeError(w, "Internal server error", "SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, StatusResponse{
		Success:        true,
		IP:             ip,
		ActiveSessions: status.ActiveSessions,
		MaxAllowed:     status.MaxAllowed,
		SlotsAvailable: status.SlotsAvailable,
		Maintenance:    status.Maintenance,
		ServerTime:     time.Now().Format("2006-01-02 15:04:05"),
	}, http.StatusOK)
}

// readSessionID читает session_id из тела запроса; при отсутствии пишет 400
func (h *LauncherHandler) readSessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		h.writeError(w, "Session ID required", "", http.StatusBadRequest)
		return "", false
	}
	return req.SessionID, true
}

// logClientInfo пишет телеметрию о платформе лаунчера из User-Agent
func (h *LauncherHandler) logClientInfo(r *http.Request, ip string) {
	parser := useragent.GetGlobalParser()
	if parser == nil {
		return
	}

	ua := r.Header.Get("User-Agent")
	if ua == "" {
		return
	}

	info := parser.ParseUserAgent(ua)
	h.log.Debug("launch request client info",
		zap.String("ip", ip),
		zap.String("os", info.OS),
		zap.String("device_type", info.DeviceType))
}

func (h *LauncherHandler) writeDenial(w http.ResponseWriter, denial *service.Denial) {
	statusCode := http.StatusForbidden
	payload := map[string]interface{}{
		"success": false,
		"error":   denial.Message,
		"code":    denial.Code,
	}

	if denial.Code == service.DenialMaxClientsReached {
		statusCode = http.StatusTooManyRequests
		payload["active_sessions"] = denial.ActiveSessions
		payload["max_allowed"] = denial.MaxAllowed
	}

	h.writeJSON(w, payload, statusCode)
}

func (h *LauncherHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("failed to encode launcher response", zap.Error(err))
	}
}

func (h *LauncherHandler) writeError(w http.ResponseWriter, message string, code string, statusCode int) {
	payload := map[string]interface{}{
		"success": false,
		"error":   message,
	}
	if code != "" {
		payload["code"] = code
	}
	h.writeJSON(w, payload, statusCode)
}
