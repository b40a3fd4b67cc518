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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/trystantbm/portfolio-contact/internal/background"
	"github.com/trystantbm/portfolio-contact/internal/config"
	"github.com/trystantbm/portfolio-contact/internal/handlers"
	middlewareCustom "github.com/trystantbm/portfolio-contact/internal/middleware"
	"github.com/trystantbm/portfolio-contact/internal/repositories"
	"github.com/trystantbm/portfolio-contact/internal/routes"
	"github.com/trystantbm/portfolio-contact/internal/services"
	pkglogger "github.com/trystantbm/portfolio-contact/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Rebuild the logger with the configured level and optional file sink
	logger, logCloser, err := pkglogger.New(pkglogger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		slog.Error("failed to initialize logger", slog.Any("error", err))
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.Bool("dev_mode", cfg.Contact.DevMode),
		slog.String("production_origin", cfg.Contact.ProductionOrigin),
		slog.String("mail_provider", cfg.Email.Provider))

	// Rate limit store: shared Redis counters when configured, otherwise in-process
	policy := services.RateLimitPolicy{
		MaxRequests:   cfg.RateLimit.MaxRequests,
		Window:        cfg.RateLimit.Window,
		CleanupSample: cfg.RateLimit.CleanupSample,
	}

	var (
		store          services.RateLimitStore
		pinger         handlers.Pinger
		cleanupManager *background.CleanupManager
	)
	if cfg.RateLimit.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		defer rdb.Close()

		repo := repositories.NewRedisRateLimitRepository(rdb, policy.MaxRequests, policy.Window)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := repo.Ping(ctx); err != nil {
			// Fail-open limiter keeps serving; health reports the outage
			logger.Warn("redis unreachable at startup", slog.Any("error", err))
		}
		cancel()

		store = repo
		pinger = repo
		logger.Info("using redis rate limit store", slog.String("addr", cfg.RateLimit.RedisAddr))
	} else {
		memStore := services.NewMemoryRateLimitStore(policy)
		store = memStore
		if cfg.RateLimit.SweepInterval > 0 {
			cleanupManager = background.NewCleanupManager(memStore, logger, cfg.RateLimit.SweepInterval)
		}
	}
	rateLimitService := services.NewRateLimitService(store, logger)

	// External collaborators
	verifier := services.NewTurnstileVerifier(cfg.Turnstile.VerifyURL, cfg.Turnstile.SecretKey, cfg.Turnstile.Timeout, logger)

	emailService, err := newEmailService(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}
	emailService = services.NewThrottledEmailService(emailService, cfg.Email.SendsPerMinute, logger)

	contactService := services.NewContactService(verifier, emailService, cfg.Contact.MinSubmitTime, logger)

	// Initialize handlers
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Contact.ProductionOrigin, cfg.Contact.DevMode)
	auditLogger := pkglogger.NewAuditLogger(logger)
	contactHandler := handlers.NewContactHandler(contactService, rateLimitService, corsConfig, auditLogger)
	healthHandler := handlers.NewHealthHandler(pinger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{DevMode: cfg.Contact.DevMode}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	// Outbound calls are bounded to fit inside the server write deadline
	router.Use(middleware.Timeout(cfg.SubmissionTimeout()))

	floodGuard := middlewareCustom.FloodGuardConfig{RequestsPerMinute: cfg.Server.FloodRequestsPerMinute}
	routes.RegisterRoutes(router, contactHandler, healthHandler, corsConfig, floodGuard)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	if cleanupManager != nil {
		go cleanupManager.Start(cleanupCtx)
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	if cleanupManager != nil {
		cleanupManager.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// newEmailService picks the dispatcher for the deployment. Dev mode never
// sends real mail regardless of MAIL_PROVIDER.
func newEmailService(cfg *config.Config, logger *slog.Logger) (services.EmailService, error) {
	sender := services.Sender{Address: cfg.Email.FromAddress, Name: cfg.Email.FromName}
	recipient := cfg.Contact.RecipientEmail

	if cfg.Contact.DevMode {
		return services.NewDevEmailService(sender, recipient, logger), nil
	}

	switch cfg.Email.Provider {
	case config.MailProviderSES:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		sesService, err := services.NewAWSSESEmailService(ctx, cfg.Email.AWSRegion, sender, recipient, logger)
		if err != nil {
			return nil, err
		}
		return sesService, nil
	case config.MailProviderMailChannels:
		return services.NewMailChannelsEmailService(cfg.Email.MailChannelsURL, sender, recipient, cfg.Email.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Email.Provider)
	}
}
