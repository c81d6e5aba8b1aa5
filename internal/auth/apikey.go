package auth

import (
	"LaunchGate-Backend/internal/settings"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const apiKeyDateLayout = "2006-01-02"

// APIKeyMiddleware проверяет ключ лаунчера: HMAC-SHA256(secret, YYYY-MM-DD).
// Принимаются ключи за вчера, сегодня и завтра (UTC), чтобы покрыть клиентов
// в других часовых поясах. Это общий секрет сборки лаунчера, а не
// аутентификация конкретного пользователя.
type APIKeyMiddleware struct {
	settings *settings.Provider
	log      *zap.Logger
}

// NewAPIKeyMiddleware создает middleware проверки API ключа лаунчера
func NewAPIKeyMiddleware(provider *settings.Provider, log *zap.Logger) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		settings: provider,
		log:      log,
	}
}

// LauncherKey вычисляет ключ лаунчера для заданной даты
func LauncherKey(secret string, date time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(date.UTC().Format(apiKeyDateLayout)))
	return hex.EncodeToString(mac.Sum(nil))
}

// RequireAPIKey оборачивает обработчик проверкой ключа лаунчера
func (m *APIKeyMiddleware) RequireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientKey := r.Header.Get("X-API-Key")
		if clientKey == "" {
			clientKey = r.FormValue("api_key")
		}

		if clientKey == "" {
			m.writeError(w, "API key required", "API_KEY_MISSING", http.StatusUnauthorized)
			return
		}

		secret, err := m.settings.LauncherSecret(r.Context())
		if err == settings.ErrSecretNotConfigured {
			m.log.Error("launcher secret is not configured")
			m.writeError(w, "Server not configured", "SERVER_ERROR", http.StatusInternalServerError)
			return
		}
		if err != nil {
			m.log.Error("failed to load launcher secret", zap.Error(err))
			m.writeError(w, "Server error", "SERVER_ERROR", http.StatusInternalServerError)
			return
		}

		now := time.Now().UTC()
		valid := false
		for _, day := range []time.Time{now, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1)} {
			expected := LauncherKey(secret, day)
			if hmac.Equal([]byte(clientKey), []byte(expected)) {
				valid = true
				break
			}
		}

		if !valid {
			m.log.Debug("invalid launcher api key", zap.String("remote", r.RemoteAddr))
			m.writeError(w, "Invalid or expired API key", "API_KEY_INVALID", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func (m *APIKeyMiddleware) writeError(w http.ResponseWriter, message string, code string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
		"code":    code,
	}); err != nil {
		m.log.Error("failed to encode api key error response", zap.Error(err))
	}
}
