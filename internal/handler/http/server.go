package http

import (
	"LaunchGate-Backend/internal/auth"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Server HTTP сервер с обработчиками
type Server struct {
	launcherHandler *LauncherHandler
	adminHandler    *AdminHandler
	legacyHandler   *LegacyHandler
	healthHandler   *HealthHandler
	authHandlers    *auth.AuthHandlers
	apiKey          *auth.APIKeyMiddleware
	authMiddleware  *auth.Middleware
	log             *zap.Logger
}

// NewServer создает новый HTTP сервер
func NewServer(
	launcherHandler *LauncherHandler,
	adminHandler *AdminHandler,
	legacyHandler *LegacyHandler,
	healthHandler *HealthHandler,
	authHandlers *auth.AuthHandlers,
	apiKey *auth.APIKeyMiddleware,
	authMiddleware *auth.Middleware,
	log *zap.Logger,
) *Server {
	return &Server{
		launcherHandler: launcherHandler,
		adminHandler:    adminHandler,
		legacyHandler:   legacyHandler,
		healthHandler:   healthHandler,
		authHandlers:    authHandlers,
		apiKey:          apiKey,
		authMiddleware:  authMiddleware,
		log:             log,
	}
}

// SetupRoutes настраивает маршруты
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Health checks (без аутентификации)
	mux.HandleFunc("/health", s.healthHandler.Health)
	mux.HandleFunc("/ready", s.healthHandler.Ready)

	// Swagger документация
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Launcher API (под ключом лаунчера)
	mux.HandleFunc("/api/launcher/request-launch", s.withAPIKey(s.launcherHandler.RequestLaunch))
	mux.HandleFunc("/api/launcher/heartbeat", s.withAPIKey(s.launcherHandler.Heartbeat))
	mux.HandleFunc("/api/launcher/close-session", s.withAPIKey(s.launcherHandler.CloseSession))
	mux.HandleFunc("/api/launcher/status", s.withAPIKey(s.launcherHandler.Status))

	// Admin API
	mux.HandleFunc("/api/admin/login", s.authHandlers.Login)
	mux.HandleFunc("/api/admin/ip-rules", s.authMiddleware.RequireAuth(s.adminHandler.HandleIPRules))
	mux.HandleFunc("/api/admin/settings", s.authMiddleware.RequireAuth(s.adminHandler.HandleSettings))
	mux.HandleFunc("/api/admin/sessions", s.authMiddleware.RequireAuth(s.adminHandler.ListSessions))

	// Легаси мост для старого клиента (без ключа лаунчера: протокол
	// клиента фиксирован и заголовков не шлет)
	mux.HandleFunc("/api/rohan/login", s.legacyHandler.Login)
	mux.HandleFunc("/api/rohan/login-remove", s.legacyHandler.LoginRemove)
	mux.HandleFunc("/api/rohan/send-code", s.legacyHandler.SendCode)
	mux.HandleFunc("/api/rohan/server-list", s.legacyHandler.ServerList)
	mux.HandleFunc("/api/rohan/down-flag", s.legacyHandler.DownFlag)

	return mux
}

// withAPIKey оборачивает обработчик проверкой ключа лаунчера
func (s *Server) withAPIKey(handler http.HandlerFunc) http.HandlerFunc {
	return s.apiKey.RequireAPIKey(handler)
}
