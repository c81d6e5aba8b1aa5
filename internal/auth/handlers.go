package auth

import (
	"LaunchGate-Backend/internal/repository"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AuthHandlers обработчики аутентификации администраторов
type AuthHandlers struct {
	storage         repository.Storage
	jwtService      *JWTService
	passwordService *PasswordService
	log             *zap.Logger
}

// NewAuthHandlers создает новые обработчики аутентификации
func NewAuthHandlers(storage repository.Storage, jwtService *JWTService, passwordService *PasswordService, log *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		storage:         storage,
		jwtService:      jwtService,
		passwordService: passwordService,
		log:             log,
	}
}

// LoginRequest структура запроса входа
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse структура ответа аутентификации
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
}

// Login обработчик входа администратора
//
//	@Summary		Admin login
//	@Description	Authenticate an admin user and get a JWT access token
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Login request"
//	@Success		200		{object}	LoginResponse	"Authenticated"
//	@Failure		400		{object}	map[string]string	"Invalid request data"
//	@Failure		401		{object}	map[string]string	"Invalid credentials"
//	@Router			/api/admin/login [post]
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid login request", zap.Error(err))
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		h.writeError(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.storage.GetAdminUserByUsername(r.Context(), req.Username)
	if err != nil {
		if err != repository.ErrAdminUserNotFound {
			h.log.Error("failed to get admin user", zap.String("username", req.Username), zap.Error(err))
		}
		// Одинаковый ответ для неизвестного имени и неверного пароля
		h.writeError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := h.passwordService.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		h.log.Info("failed admin login attempt", zap.String("username", req.Username))
		h.writeError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		h.log.Error("failed to generate access token", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.storage.UpdateAdminLastLogin(r.Context(), user.ID, time.Now()); err != nil {
		h.log.Warn("failed to update admin last login", zap.Int64("admin_id", user.ID), zap.Error(err))
	}

	h.log.Info("admin logged in", zap.String("username", user.Username))
	h.writeJSON(w, LoginResponse{AccessToken: accessToken, Username: user.Username}, http.StatusOK)
}

func (h *AuthHandlers) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("failed to encode auth response", zap.Error(err))
	}
}

func (h *AuthHandlers) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.log.Error("failed to encode auth error", zap.Error(err))
	}
}
