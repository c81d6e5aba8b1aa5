package http

import (
	"LaunchGate-Backend/internal/auth"
	"LaunchGate-Backend/internal/domain"
	"LaunchGate-Backend/internal/repository"
	"LaunchGate-Backend/internal/settings"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

func adminFromContext(r *http.Request) (string, bool) {
	return auth.GetAdminUsernameFromContext(r.Context())
}

// AdminHandler обработчики административного API
type AdminHandler struct {
	storage  repository.Storage
	settings *settings.Provider
	log      *zap.Logger
}

// NewAdminHandler создает новый обработчик административного API
func NewAdminHandler(storage repository.Storage, provider *settings.Provider, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		storage:  storage,
		settings: provider,
		log:      log,
	}
}

// IPRuleRequest структура запроса создания/обновления правила
type IPRuleRequest struct {
	IPAddress  string  `json:"ip_address"`
	RuleType   string  `json:"rule_type"`
	MaxClients *int    `json:"max_clients,omitempty"`
	Reason     *string `json:"reason,omitempty"`
}

// SettingRequest структура запроса изменения настройки
type SettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SessionInfo информация об активной сессии для админки
type SessionInfo struct {
	SessionID     string `json:"session_id"`
	IPAddress     string `json:"ip_address"`
	HWID          string `json:"hwid,omitempty"`
	LaunchedAt    string `json:"launched_at"`
	LastHeartbeat string `json:"last_heartbeat"`
	IdleSeconds   int    `json:"idle_seconds"`
}

// HandleIPRules обрабатывает /api/admin/ip-rules с разными HTTP методами
func (h *AdminHandler) HandleIPRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listIPRules(w, r)
	case http.MethodPost:
		h.upsertIPRule(w, r)
	case http.MethodDelete:
		h.deleteIPRule(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSettings обрабатывает /api/admin/settings с разными HTTP методами
func (h *AdminHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listSettings(w, r)
	case http.MethodPut:
		h.updateSetting(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ListSessions возвращает все активные сессии
//
//	@Summary		List active game sessions
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}	SessionInfo	"Active sessions"
//	@Router			/api/admin/sessions [get]
func (h *AdminHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.storage.ListActiveSessions(r.Context())
	if err != nil {
		h.log.Error("failed to list sessions", zap.Error(err))
		h.writeError(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	infos := make([]SessionInfo, len(sessions))
	for i, session := range sessions {
		infos[i] = SessionInfo{
			SessionID:     session.SessionID,
			IPAddress:     session.IPAddress,
			HWID:          session.HWIDValue(),
			LaunchedAt:    session.LaunchedAt.Format(time.RFC3339),
			LastHeartbeat: session.LastHeartbeat.Format(time.RFC3339),
			IdleSeconds:   int(session.IdleFor(now).Seconds()),
		}
	}

	h.writeJSON(w, infos, http.StatusOK)
}

func (h *AdminHandler) listIPRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.storage.ListIPRules(r.Context())
	if err != nil {
		h.log.Error("failed to list ip rules", zap.Error(err))
		h.writeError(w, "Failed to list ip rules", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, rules, http.StatusOK)
}

func (h *AdminHandler) upsertIPRule(w http.ResponseWriter, r *http.Request) {
	var req IPRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if req.IPAddress == "" {
		h.writeError(w, "ip_address is required", http.StatusBadRequest)
		return
	}
	// Неизвестные типы правил отсекаются на границе, а не в ядре
	if !domain.IsValidRuleType(req.RuleType) {
		h.writeError(w, "rule_type must be whitelist or blacklist", http.StatusBadRequest)
		return
	}

	rule := &domain.IpRule{
		IPAddress:  req.IPAddress,
		RuleType:   req.RuleType,
		MaxClients: req.MaxClients,
		Reason:     req.Reason,
	}

	if err := h.storage.UpsertIPRule(r.Context(), rule); err != nil {
		h.log.Error("failed to upsert ip rule", zap.String("ip", req.IPAddress), zap.Error(err))
		h.writeError(w, "Failed to save ip rule", http.StatusInternalServerError)
		return
	}

	admin, _ := adminFromContext(r)
	h.log.Info("ip rule saved",
		zap.String("ip", req.IPAddress),
		zap.String("rule_type", req.RuleType),
		zap.String("admin", admin))
	h.writeJSON(w, rule, http.StatusOK)
}

func (h *AdminHandler) deleteIPRule(w http.ResponseWriter, r *http.Request) {
	ip := r.URL.Query().Get("ip")
	ruleType := r.URL.Query().Get("rule_type")
	if ip == "" || !domain.IsValidRuleType(ruleType) {
		h.writeError(w, "ip and rule_type query parameters are required", http.StatusBadRequest)
		return
	}

	err := h.storage.DeleteIPRule(r.Context(), ip, ruleType)
	if err == repository.ErrIPRuleNotFound {
		h.writeError(w, "Rule not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("failed to delete ip rule", zap.String("ip", ip), zap.Error(err))
		h.writeError(w, "Failed to delete ip rule", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) listSettings(w http.ResponseWriter, r *http.Request) {
	settingsList, err := h.storage.ListSettings(r.Context())
	if err != nil {
		h.log.Error("failed to list settings", zap.Error(err))
		h.writeError(w, "Failed to list settings", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, settingsList, http.StatusOK)
}

func (h *AdminHandler) updateSetting(w http.ResponseWriter, r *http.Request) {
	var req SettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if req.Key == "" {
		h.writeError(w, "key is required", http.StatusBadRequest)
		return
	}

	if err := h.storage.SetSetting(r.Context(), req.Key, req.Value); err != nil {
		h.log.Error("failed to set setting", zap.String("key", req.Key), zap.Error(err))
		h.writeError(w, "Failed to save setting", http.StatusInternalServerError)
		return
	}

	// Сбрасываем кэш, чтобы изменение применилось сразу
	h.settings.Invalidate()

	admin, _ := adminFromContext(r)
	h.log.Info("setting updated", zap.String("key", req.Key), zap.String("admin", admin))
	h.writeJSON(w, map[string]string{"key": req.Key, "value": req.Value}, http.StatusOK)
}

func (h *AdminHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("failed to encode admin response", zap.Error(err))
	}
}

func (h *AdminHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.log.Error("failed to encode admin error", zap.Error(err))
	}
}
