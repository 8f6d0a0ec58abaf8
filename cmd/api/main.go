package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solaudit/internal/auth"
	"solaudit/internal/config"
	"solaudit/internal/database"
	"solaudit/internal/email"
	"solaudit/internal/gemini"
	"solaudit/internal/githubimport"
	"solaudit/internal/handlers"
	"solaudit/internal/logger"
	"solaudit/internal/middleware"
	"solaudit/internal/repository"
	"solaudit/internal/securestore"
	"solaudit/internal/service"
)

// @title SolAudit API
// @version 1.0
// @description Backend API for SolAudit, AI-assisted Solidity smart contract auditing

// @contact.name API Support
// @contact.email support@solaudit.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level: cfg.Log.Level,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		err := db.Close()
		if err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	// Run database migrations
	migrator := database.NewMigrationExecutor(db.DB)
	if err := migrator.RunMigrations("./migrations"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Initialize the encrypted credential store
	store, err := securestore.New(&cfg.SecureStore)
	if err != nil {
		slog.Error("Failed to initialize secure store", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	tokenRepo := repository.NewTokenRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	apiKeyRepo := repository.NewAPIKeyRepository(db.DB, store)
	auditRepo := repository.NewAuditRepository(db.DB)
	activityRepo := repository.NewActivityRepository(db.DB)

	// Initialize services
	authService := auth.NewService(&cfg.JWT)
	emailService := email.NewService(&cfg.Email)
	geminiClient := gemini.NewClient(&cfg.Gemini)
	fetcher := githubimport.NewFetcher(&cfg.GitHub)
	authSvc := service.NewAuthService(userRepo, tokenRepo, sessionRepo, authService, emailService)
	history := service.NewHistoryStore()
	auditSvc := service.NewAuditService(geminiClient, auditRepo, apiKeyRepo, history)

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService, sessionRepo)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)
	activityMw := middleware.NewActivityMiddleware(activityRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authSvc, activityMw, cfg)
	userHandler := handlers.NewUserHandler(userRepo, tokenRepo, authService, emailService, activityMw)
	sessionHandler := handlers.NewSessionHandler(sessionRepo)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeyRepo, activityMw)
	auditHandler := handlers.NewAuditHandler(auditSvc, fetcher, activityMw)
	configHandler := handlers.NewConfigHandler(cfg)

	// Setup router
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/logout", authHandler.Logout)
	mux.HandleFunc("/api/v1/auth/verify-email", authHandler.VerifyEmail)
	mux.HandleFunc("POST /api/v1/auth/password-reset/request", authHandler.RequestPasswordReset)
	mux.HandleFunc("POST /api/v1/auth/password-reset/confirm", authHandler.ResetPassword)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.RefreshToken)

	// Config routes (public)
	mux.HandleFunc("GET /api/v1/config/app", configHandler.GetAppConfig)

	// Protected routes
	mux.Handle("GET /api/v1/users/profile", authMw.Authenticate(http.HandlerFunc(userHandler.GetProfile)))
	mux.Handle("PUT /api/v1/users/profile/update", authMw.Authenticate(http.HandlerFunc(userHandler.UpdateProfile)))
	mux.Handle("POST /api/v1/users/password/change", authMw.Authenticate(http.HandlerFunc(userHandler.ChangePassword)))
	mux.Handle("POST /api/v1/users/resend-verification", authMw.Authenticate(http.HandlerFunc(userHandler.ResendVerificationEmail)))
	mux.Handle("GET /api/v1/users/sessions", authMw.Authenticate(http.HandlerFunc(sessionHandler.GetMySessions)))
	mux.Handle("DELETE /api/v1/users/sessions/{id}", authMw.Authenticate(http.HandlerFunc(sessionHandler.DeleteMySession)))

	// API key routes
	mux.Handle("GET /api/v1/settings/api-keys", authMw.Authenticate(http.HandlerFunc(apiKeyHandler.List)))
	mux.Handle("PUT /api/v1/settings/api-keys", authMw.Authenticate(http.HandlerFunc(apiKeyHandler.Save)))
	mux.Handle("DELETE /api/v1/settings/api-keys/{provider}", authMw.Authenticate(http.HandlerFunc(apiKeyHandler.Delete)))

	// Audit routes
	mux.Handle("POST /api/v1/audits", authMw.Authenticate(http.HandlerFunc(auditHandler.Create)))
	mux.Handle("GET /api/v1/audits", authMw.Authenticate(http.HandlerFunc(auditHandler.List)))
	mux.Handle("POST /api/v1/audits/import/github", authMw.Authenticate(http.HandlerFunc(auditHandler.ImportGitHub)))
	mux.Handle("GET /api/v1/audits/current", authMw.Authenticate(http.HandlerFunc(auditHandler.Current)))
	mux.Handle("GET /api/v1/audits/{id}", authMw.Authenticate(http.HandlerFunc(auditHandler.Get)))
	mux.Handle("DELETE /api/v1/audits/{id}", authMw.Authenticate(http.HandlerFunc(auditHandler.Delete)))
	mux.Handle("PUT /api/v1/audits/{id}/current", authMw.Authenticate(http.HandlerFunc(auditHandler.SetCurrent)))
	mux.Handle("GET /api/v1/audits/{id}/report", authMw.Authenticate(http.HandlerFunc(auditHandler.Report)))
	mux.Handle("GET /api/v1/audits/{id}/export", authMw.Authenticate(http.HandlerFunc(auditHandler.Export)))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, err := w.Write([]byte(`{"status":"unhealthy","database":"error"}`))
			if err != nil {
				slog.Error("Failed to write health check response", "error", err)
				return
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{"status":"healthy","version":"` + cfg.App.Version + `"}`))
		if err != nil {
			slog.Error("Failed to write health check response", "error", err)
			return
		}
	})

	// Purge expired sessions periodically
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			n, err := sessionRepo.DeleteExpired()
			if err != nil {
				slog.Error("Failed to purge expired sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Expired sessions purged", "count", n)
			}
		}
	}()

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		middleware.SecurityHeaders(
			corsMw.Handler(
				rateLimiter.Limit(mux),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
