package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"wortschatz/internal/config"
	"wortschatz/internal/content"
	"wortschatz/internal/database"
	"wortschatz/internal/handlers"
	"wortschatz/internal/repository"
	"wortschatz/internal/security"
	"wortschatz/internal/service"
)

const (
	initDataMaxAge   = 24 * time.Hour
	authRequests     = 20
	sweepInterval    = time.Minute
	shutdownDeadline = 10 * time.Second
)

func main() {
	// Load configuration
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TelegramBotToken == "" {
		slog.Warn("TELEGRAM_BOT_TOKEN is not set; Telegram logins are disabled")
	}

	startup := handlers.NewStartupStatus(handlers.StepDatabase, handlers.StepMigrations, handlers.StepContent, handlers.StepServices)

	// Serve the startup status until the API is ready
	var api atomic.Pointer[http.Handler]
	server := &http.Server{
		Addr: ":" + cfg.ServerPort,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h := api.Load(); h != nil {
				(*h).ServeHTTP(w, r)
				return
			}
			startup.Health(w, r)
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Initialize database with config (supports sqlite, postgres, pgx, mysql)
	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		fatal("failed to initialize database", err)
	}
	defer db.Close()
	startup.CompleteStep(handlers.StepDatabase)
	slog.Info("database connection established", "type", cfg.DatabaseType)

	startup.SetCurrentStep(handlers.StepMigrations)
	if err := db.RunMigrations(ctx); err != nil {
		fatal("failed to run migrations", err)
	}
	startup.CompleteStep(handlers.StepMigrations)

	startup.SetCurrentStep(handlers.StepContent)
	settingsRepo := repository.NewSettingsRepository(db)
	resolver := content.NewResolver(content.NewFSStore(os.DirFS(cfg.ContentPath)), cfg.DefaultLevel)
	if saved, ok, err := settingsRepo.CurrentLevel(ctx); err != nil {
		slog.Warn("failed to load saved level", "error", err)
	} else if ok {
		resolver.SetCurrentLevel(string(saved.Major), saved.Sub)
	}
	current := resolver.CurrentLevel()
	if err := resolver.Warm(ctx, current); err != nil {
		// content is retried on first use
		slog.Warn("content warm-up failed", "level", current.Key(), "error", err)
	}
	startup.CompleteStep(handlers.StepContent)
	slog.Info("content loaded", "path", cfg.ContentPath, "level", current.Key())

	startup.SetCurrentStep(handlers.StepServices)

	// Initialize repositories
	progressRepo := repository.NewProgressRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize services
	quizService := service.NewQuizService(resolver, progressRepo)
	progressService := service.NewProgressService(progressRepo, userRepo, resolver)

	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	verifier := security.NewInitDataVerifier(cfg.TelegramBotToken, initDataMaxAge)
	limiter := security.NewRateLimiter(authRequests, time.Minute)

	router := handlers.NewRouter(handlers.Routes{
		Startup:    startup,
		Middleware: handlers.NewMiddleware(tokens, cfg.IsAdmin, limiter),
		Content:    handlers.NewContentHandler(resolver),
		Sessions:   handlers.NewSessionHandler(quizService),
		Progress:   handlers.NewProgressHandler(progressService),
		Auth:       handlers.NewAuthHandler(verifier, tokens, progressService),
		Admin:      handlers.NewAdminHandler(resolver, settingsRepo),
	})
	var h http.Handler = router
	api.Store(&h)

	startup.CompleteStep(handlers.StepServices)
	startup.MarkReady()
	slog.Info("server ready")

	go sweep(ctx, quizService, limiter, cfg.SessionIdleTimeout)

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		fatal("server failed", err)
	}

	slog.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
}

// sweep periodically drops idle quiz sessions and stale rate limiter entries
func sweep(ctx context.Context, quizService *service.QuizService, limiter *security.RateLimiter, idle time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			quizService.CleanupIdle(idle)
			if n := limiter.Cleanup(); n > 0 {
				slog.Debug("rate limiter entries removed", "count", n)
			}
		}
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
