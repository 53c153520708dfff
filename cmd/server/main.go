package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hugh/c4p-portal/internal/api"
	"github.com/hugh/c4p-portal/internal/api/middleware"
	"github.com/hugh/c4p-portal/internal/auth"
	"github.com/hugh/c4p-portal/internal/bootstrap"
	"github.com/hugh/c4p-portal/internal/candidates"
	"github.com/hugh/c4p-portal/internal/database"
	"github.com/hugh/c4p-portal/internal/proposals"
	"github.com/hugh/c4p-portal/internal/storage"
	"github.com/hugh/c4p-portal/internal/web"
	"github.com/hugh/c4p-portal/pkg/config"
	"github.com/hugh/c4p-portal/pkg/crypto"
	"github.com/hugh/c4p-portal/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env, "server")
	slog.SetDefault(logger)

	logger.Info("starting C4P portal",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
		"storage", cfg.Storage.Provider,
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if cfg.Session.Secret == "dev-secret-key" && !cfg.Server.IsDevelopment() {
		logger.Warn("SECRET_KEY is the development default; sessions can be forged")
	}

	// Connect to database
	db, err := database.Connect(&cfg.Database, cfg.Server.Env, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Initialize encryptor for stored passwords
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if encryptor.Ephemeral() {
		logger.Warn("ENCRYPTION_KEY not set; development key is discarded on restart")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	uploader, err := storage.New(ctx, &cfg.Storage)
	cancel()
	if err != nil {
		logger.Error("failed to configure storage", "provider", cfg.Storage.Provider, "error", err)
		os.Exit(1)
	}

	// Initialize services
	admins := auth.NewAdmins(cfg.Admin.Accounts)
	if len(admins.Emails()) == 0 {
		logger.Warn("ADMIN_ACCOUNTS is empty; nobody can reach the committee pages")
	}
	authService := auth.NewService(db, encryptor, admins)
	sessions := auth.NewSessionService(cfg.Session.Secret, cfg.Session.Expiry())
	candidateService := candidates.NewService(db, uploader)
	proposalService := proposals.NewService(db, uploader)

	ctx, cancel = context.WithTimeout(context.Background(), time.Minute)
	err = bootstrap.Run(ctx, db, authService, admins, logger)
	cancel()
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	// Redis is only pinged by /ready
	var redisClient *redis.Client
	if cfg.Redis.HealthCheck {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
		})
	}

	// Load templates
	templates, err := web.LoadTemplates()
	if err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	// Get static file system
	staticFS, err := web.GetStaticFS()
	if err != nil {
		logger.Error("failed to get static fs", "error", err)
		os.Exit(1)
	}

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:          db,
		Redis:       redisClient,
		Logger:      logger,
		Sessions:    sessions,
		AuthService: authService,
		Candidates:  candidateService,
		Proposals:   proposalService,
		Templates:   templates,
		StaticFS:    staticFS,
		Cookies: middleware.SessionCookies{
			Secure: cfg.Server.CookieSecure,
			MaxAge: sessions.Expiry(),
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		RateLimits: api.RateLimits{
			LoginPerMinute:  cfg.RateLimit.LoginPerMinute,
			SubmitPerMinute: cfg.RateLimit.SubmitPerMinute,
			PerHour:         cfg.RateLimit.PerHour,
			PerDay:          cfg.RateLimit.PerDay,
		},
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
