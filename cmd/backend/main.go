// Package main provides the entry point for the LaunchGate admission service.
//
//	@title			LaunchGate Admission API
//	@version		1.0.0
//	@description	Launch admission gatekeeper for the game client: session admission, heartbeats and per-IP quotas.
//
//	@contact.name	LaunchGate Support
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
//	@description				Daily launcher key, hex HMAC-SHA256 of the current UTC date
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Authorization header. Format: "Bearer {token}"
package main

import (
	"LaunchGate-Backend/internal/auth"
	"LaunchGate-Backend/internal/config"
	"LaunchGate-Backend/internal/database"
	httpHandler "LaunchGate-Backend/internal/handler/http"
	"LaunchGate-Backend/internal/legacy"
	"LaunchGate-Backend/internal/repository/postgres"
	"LaunchGate-Backend/internal/service"
	"LaunchGate-Backend/internal/settings"
	"LaunchGate-Backend/pkg/logger"
	"LaunchGate-Backend/pkg/useragent"
	"context"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "LaunchGate-Backend/docs" // Import swagger docs
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting LaunchGate admission service", zap.String("env", cfg.Env))

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations if enabled
	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	// Seed default server settings if enabled
	if cfg.Database.SeedData {
		log.Info("seeding database with default settings (seed_data: true)")
		if err := database.SeedData(db, log); err != nil {
			log.Fatal("failed to seed database", zap.Error(err))
		}
	} else {
		log.Info("skipping database seeding (seed_data: false)")
	}

	// Initialize User-Agent parser
	regexesPath := "assets/regexes.yaml"
	if err := useragent.InitGlobalParser(regexesPath, log); err != nil {
		log.Warn("failed to initialize User-Agent parser, client telemetry disabled", zap.Error(err))
	}

	// Initialize storage, settings and services
	storage := postgres.New(db, log)
	settingsProvider := settings.NewProvider(storage, cfg.Launcher.SettingsCacheTTL, log)
	admissionService := service.NewAdmissionService(storage, settingsProvider, &cfg.Launcher, log)
	reaper := service.NewReaper(storage, settingsProvider, cfg.Launcher.ReapInterval, log)

	// Initialize JWT service for the admin API
	jwtService := auth.NewJWTService(&auth.JWTConfig{
		SecretKey:           []byte(cfg.Auth.JWTSecret),
		AccessTokenDuration: cfg.Auth.AccessTokenTTL,
		Issuer:              cfg.Auth.Issuer,
	})
	passwordService := auth.NewPasswordService()

	// Optional legacy account gateway (SQL Server)
	var accountGateway legacy.AccountGateway
	if cfg.LegacyDB.Enabled {
		gateway, err := legacy.NewSQLServerGateway(cfg.LegacyDB.DSN, log)
		if err != nil {
			log.Fatal("failed to connect to legacy account database", zap.Error(err))
		}
		accountGateway = gateway
		log.Info("legacy account gateway enabled")
	} else {
		log.Info("legacy account gateway disabled")
	}

	// Build HTTP handlers
	clientIP := httpHandler.NewClientIPExtractor(cfg.Launcher.TrustedProxies)
	launcherHandler := httpHandler.NewLauncherHandler(admissionService, clientIP, log)
	adminHandler := httpHandler.NewAdminHandler(storage, settingsProvider, log)
	legacyHandler := httpHandler.NewLegacyHandler(accountGateway, settingsProvider, clientIP, log)
	healthHandler := httpHandler.NewHealthHandler(db, log)
	authHandlers := auth.NewAuthHandlers(storage, jwtService, passwordService, log)
	apiKey := auth.NewAPIKeyMiddleware(settingsProvider, log)
	authMiddleware := auth.NewMiddleware(jwtService, log)

	httpAPIServer := httpHandler.NewServer(
		launcherHandler,
		adminHandler,
		legacyHandler,
		healthHandler,
		authHandlers,
		apiKey,
		authMiddleware,
		log,
	)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      httpAPIServer.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// Background reaper closes sessions whose heartbeat went stale
	reaperCtx, reaperCancel := context.WithCancel(context.Background())
	defer reaperCancel()
	go reaper.Run(reaperCtx)

	log.Info("starting HTTP server", zap.String("address", cfg.HTTPServer.Address))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down LaunchGate admission service...")

	reaperCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}
}
