package http

import (
	"LaunchGate-Backend/internal/domain"
	"LaunchGate-Backend/internal/legacy"
	"LaunchGate-Backend/internal/repository/memory"
	"LaunchGate-Backend/internal/settings"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubGateway однотипная заглушка моста к базе аккаунтов
type stubGateway struct {
	loginResult *legacy.LoginResult
	loginErr    error
	loginParams legacy.LoginParams

	registerErr     error
	registeredUsers []int
	removedUsers    []int

	sendCodeRet int
	sendCodeErr error
}

func (g *stubGateway) Login(_ context.Context, params legacy.LoginParams) (*legacy.LoginResult, error) {
	g.loginParams = params
	if g.loginErr != nil {
		return nil, g.loginErr
	}
	return g.loginResult, nil
}

func (g *stubGateway) RegisterLobby(_ context.Context, userID int) error {
	g.registeredUsers = append(g.registeredUsers, userID)
	return g.registerErr
}

func (g *stubGateway) RemoveLobby(_ context.Context, userID int) error {
	g.removedUsers = append(g.removedUsers, userID)
	return nil
}

func (g *stubGateway) SendCode(_ context.Context, _ string, _ string, _ string) (int, error) {
	return g.sendCodeRet, g.sendCodeErr
}

func setupLegacyHandler(gateway legacy.AccountGateway) (*LegacyHandler, *memory.MemStorage) {
	storage := memory.New()
	log := zap.NewNop()
	provider := settings.NewProvider(storage, 0, log)
	return NewLegacyHandler(gateway, provider, NewClientIPExtractor(nil), log), storage
}

func postForm(handler http.HandlerFunc, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "10.0.0.1:50000"
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func validLoginForm() url.Values {
	return url.Values{
		"id":     {"player1"},
		"passwd": {"secret"},
		"ver":    {"1.0.0"},
		"nation": {"us"},
		"pcode":  {"1"},
	}
}

func TestLegacyHandler_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		gateway := &stubGateway{loginResult: &legacy.LoginResult{
			UserID:    1001,
			SessionID: "SESSABC",
			RunVer:    "1.0.0",
			Grade:     1,
			Ret:       0,
		}}
		handler, _ := setupLegacyHandler(gateway)

		rec := postForm(handler.Login, "/api/rohan/login", validLoginForm())

		assert.Equal(t, "SESSABC|1001|1.0.0|1|0", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		assert.Equal(t, []int{1001}, gateway.registeredUsers)

		// пароль уходит в процедуру как md5-hex
		assert.Equal(t, md5Hex("secret"), gateway.loginParams.PasswordHash)
		assert.Equal(t, "10.0.0.1", gateway.loginParams.IP)
	})

	t.Run("missing_id", func(t *testing.T) {
		handler, _ := setupLegacyHandler(&stubGateway{})
		form := validLoginForm()
		form.Del("id")

		rec := postForm(handler.Login, "/api/rohan/login", form)
		assert.Equal(t, "-1|-2|-1", rec.Body.String())
	})

	t.Run("missing_nation", func(t *testing.T) {
		handler, _ := setupLegacyHandler(&stubGateway{})
		form := validLoginForm()
		form.Del("nation")

		rec := postForm(handler.Login, "/api/rohan/login", form)
		assert.Equal(t, "-1|-3|-1", rec.Body.String())
	})

	t.Run("missing_pcode", func(t *testing.T) {
		handler, _ := setupLegacyHandler(&stubGateway{})
		form := validLoginForm()
		form.Del("pcode")

		rec := postForm(handler.Login, "/api/rohan/login", form)
		assert.Equal(t, "-1|-5|-1", rec.Body.String())
	})

	t.Run("gateway_not_configured", func(t *testing.T) {
		handler, _ := setupLegacyHandler(nil)
		rec := postForm(handler.Login, "/api/rohan/login", validLoginForm())
		assert.Equal(t, "-1", rec.Body.String())
	})

	t.Run("gateway_error_collapses_to_failure", func(t *testing.T) {
		handler, _ := setupLegacyHandler(&stubGateway{loginErr: legacy.ErrGatewayUnavailable})
		rec := postForm(handler.Login, "/api/rohan/login", validLoginForm())
		assert.Equal(t, "-1", rec.Body.String())
	})

	t.Run("procedure_rejection_passed_through", func(t *testing.T) {
		gateway := &stubGateway{loginResult: &legacy.LoginResult{Ret: -4}}
		handler, _ := setupLegacyHandler(gateway)

		rec := postForm(handler.Login, "/api/rohan/login", validLoginForm())
		assert.Equal(t, "-4", rec.Body.String())
	})

	t.Run("maintenance_blocks_regular_users", func(t *testing.T) {
		gateway := &stubGateway{loginResult: &legacy.LoginResult{
			UserID: 1001, SessionID: "S", RunVer: "1.0.0", Grade: 1, Ret: 0,
		}}
		handler, storage := setupLegacyHandler(gateway)
		require.NoError(t, storage.SetSetting(context.Background(), domain.SettingMaintenanceMode, "1"))

		rec := postForm(handler.Login, "/api/rohan/login", validLoginForm())
		assert.Equal(t, "-1", rec.Body.String())
	})

	t.Run("maintenance_admits_admins", func(t *testing.T) {
		gateway := &stubGateway{loginResult: &legacy.LoginResult{
			UserID: 5, SessionID: "ADM", RunVer: "1.0.0", Grade: legacy.AdminGrade, Ret: 0,
		}}
		handler, storage := setupLegacyHandler(gateway)
		require.NoError(t, storage.SetSetting(context.Background(), domain.SettingMaintenanceMode, "1"))

		rec := postForm(handler.Login, "/api/rohan/login", validLoginForm())
		assert.Equal(t, "ADM|5|1.0.0|250|0", rec.Body.String())
	})

	t.Run("lobby_failure_does_not_break_login", func(t *testing.T) {
		gateway := &stubGateway{
			loginResult: &legacy.LoginResult{UserID: 1001, SessionID: "S", RunVer: "1.0.0", Grade: 1, Ret: 0},
			registerErr: legacy.ErrGatewayUnavailable,
		}
		handler, _ := setupLegacyHandler(gateway)

		rec := postForm(handler.Login, "/api/rohan/login", validLoginForm())
		assert.Equal(t, "S|1001|1.0.0|1|0", rec.Body.String())
	})
}

func TestLegacyHandler_LoginRemove(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		gateway := &stubGateway{}
		handler, _ := setupLegacyHandler(gateway)

		rec := postForm(handler.LoginRemove, "/api/rohan/login-remove", url.Values{"user_id": {"1001"}})
		assert.Equal(t, "1", rec.Body.String())
		assert.Equal(t, []int{1001}, gateway.removedUsers)
	})

	t.Run("missing_user_id", func(t *testing.T) {
		handler, _ := setupLegacyHandler(&stubGateway{})
		rec := postForm(handler.LoginRemove, "/api/rohan/login-remove", url.Values{})
		assert.Equal(t, "-1", rec.Body.String())
	})

	t.Run("non_numeric_user_id", func(t *testing.T) {
		handler, _ := setupLegacyHandler(&stubGateway{})
		rec := postForm(handler.LoginRemove, "/api/rohan/login-remove", url.Values{"user_id": {"abc"}})
		assert.Equal(t, "-1", rec.Body.String())
	})
}

func TestLegacyHandler_SendCode(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, _ := setupLegacyHandler(&stubGateway{sendCodeRet: 1})
		rec := postForm(handler.SendCode, "/api/rohan/send-code", url.Values{
			"id": {"player1"}, "passwd": {"secret"},
		})
		assert.Equal(t, "1", rec.Body.String())
	})

	t.Run("missing_credentials", func(t *testing.T) {
		handler, _ := setupLegacyHandler(&stubGateway{})
		rec := postForm(handler.SendCode, "/api/rohan/send-code", url.Values{"id": {"player1"}})
		assert.Equal(t, "-1|-1", rec.Body.String())
	})
}

func TestLegacyHandler_ServerListAndDownFlag(t *testing.T) {
	handler, storage := setupLegacyHandler(nil)
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		rec := postForm(handler.ServerList, "/api/rohan/server-list", url.Values{})
		assert.Equal(t, settings.DefaultServerList, rec.Body.String())

		rec = postForm(handler.DownFlag, "/api/rohan/down-flag", url.Values{})
		assert.Equal(t, "0", rec.Body.String())
	})

	t.Run("configured_values", func(t *testing.T) {
		require.NoError(t, storage.SetSetting(ctx, domain.SettingServerList, "Thor|10.0.0.5|22100|1|"))
		require.NoError(t, storage.SetSetting(ctx, domain.SettingDownFlag, "1"))

		rec := postForm(handler.ServerList, "/api/rohan/server-list", url.Values{})
		assert.Equal(t, "Thor|10.0.0.5|22100|1|", rec.Body.String())

		rec = postForm(handler.DownFlag, "/api/rohan/down-flag", url.Values{})
		assert.Equal(t, "1", rec.Body.String())
	})
}
