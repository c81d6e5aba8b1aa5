package auth

import (
	"LaunchGate-Backend/internal/domain"
	"LaunchGate-Backend/internal/repository/memory"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupAuthHandlers(t *testing.T) (*AuthHandlers, *memory.MemStorage) {
	t.Helper()
	storage := memory.New()
	jwtService := newTestJWTService(15 * time.Minute)
	passwordService := NewPasswordService()

	hash, err := passwordService.HashPassword("correct-horse")
	require.NoError(t, err)
	require.NoError(t, storage.CreateAdminUser(context.Background(), &domain.AdminUser{
		Username:     "admin",
		PasswordHash: hash,
		IsActive:     true,
	}))

	return NewAuthHandlers(storage, jwtService, passwordService, zap.NewNop()), storage
}

func postLogin(handlers *AuthHandlers, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handlers.Login(rec, req)
	return rec
}

func TestAuthHandlers_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handlers, storage := setupAuthHandlers(t)

		rec := postLogin(handlers, `{"username": "admin", "password": "correct-horse"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "admin", resp.Username)
		assert.NotEmpty(t, resp.AccessToken)

		// token must validate against the same service
		claims, err := handlers.jwtService.ValidateToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Username)

		// last login timestamp is recorded
		user, err := storage.GetAdminUserByUsername(context.Background(), "admin")
		require.NoError(t, err)
		assert.NotNil(t, user.LastLoginAt)
	})

	t.Run("wrong_password", func(t *testing.T) {
		handlers, _ := setupAuthHandlers(t)
		rec := postLogin(handlers, `{"username": "admin", "password": "wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown_user", func(t *testing.T) {
		handlers, _ := setupAuthHandlers(t)
		rec := postLogin(handlers, `{"username": "nobody", "password": "whatever"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("identical_response_for_both_failures", func(t *testing.T) {
		handlers, _ := setupAuthHandlers(t)

		wrongPass := postLogin(handlers, `{"username": "admin", "password": "wrong"}`)
		unknownUser := postLogin(handlers, `{"username": "nobody", "password": "wrong"}`)

		assert.Equal(t, wrongPass.Code, unknownUser.Code)
		assert.True(t, bytes.Equal(wrongPass.Body.Bytes(), unknownUser.Body.Bytes()))
	})

	t.Run("missing_fields", func(t *testing.T) {
		handlers, _ := setupAuthHandlers(t)
		rec := postLogin(handlers, `{"username": "", "password": ""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed_json", func(t *testing.T) {
		handlers, _ := setupAuthHandlers(t)
		rec := postLogin(handlers, `not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMiddleware_RequireAuth(t *testing.T) {
	jwtService := newTestJWTService(15 * time.Minute)
	middleware := NewMiddleware(jwtService, zap.NewNop())

	protected := middleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		username, ok := GetAdminUsernameFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "admin", username)

		adminID, ok := GetAdminIDFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, int64(7), adminID)

		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid_token", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(7, "admin")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/admin/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing_header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/sessions", nil)
		rec := httptest.NewRecorder()
		protected(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid_token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/sessions", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		rec := httptest.NewRecorder()
		protected(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
