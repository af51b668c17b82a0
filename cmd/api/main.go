// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Bizaek identity and access server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire token service, mailer, stores and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/bizaek/internal/api"
	"github.com/taibuivan/bizaek/internal/platform/config"
	"github.com/taibuivan/bizaek/internal/platform/constants"
	"github.com/taibuivan/bizaek/internal/platform/mailer"
	"github.com/taibuivan/bizaek/internal/platform/migration"
	pgstore "github.com/taibuivan/bizaek/internal/platform/postgres"
	redisstore "github.com/taibuivan/bizaek/internal/platform/redis"
	"github.com/taibuivan/bizaek/internal/platform/sec"
	"github.com/taibuivan/bizaek/internal/users/account"
	"github.com/taibuivan/bizaek/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("[Bizaek] service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("registration_mode", cfg.RegistrationMode),
	)

	// Root context lives until shutdown; background workers (rate limiter
	// janitor) stop when it is cancelled.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Security primitives ────────────────────────────────────────────
	tokenService, err := sec.NewTokenService([]byte(cfg.TokenSecret), cfg.TokenIssuer, time.Now)
	must(log, err, "initialize token service")

	var transport mailer.Mailer = mailer.NewLogMailer(log)
	if cfg.MailEnabled() {
		transport = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	} else {
		log.Warn("smtp_not_configured", slog.String("fallback", "log"))
	}
	outbox := mailer.NewAsync(transport, constants.MailDispatchTimeout)

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: pgstore.Checker(pool),
		CheckCache:    redisstore.Checker(rdb),
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	ledger := auth.NewOTPLedger(rdb)
	states := auth.NewStateStore(rdb)

	authService := auth.NewService(userRepository, ledger, tokenService, outbox, auth.Settings{
		UserTokenTTL:   cfg.UserTokenTTL,
		AdminTokenTTL:  cfg.AdminTokenTTL,
		OTPTTL:         cfg.OTPTTL,
		OTPMaxAttempts: cfg.OTPMaxAttempts,
	}, time.Now)

	bridge := auth.NewBridge(userRepository, time.Now)
	gate := auth.NewGate(userRepository, tokenService)

	providers := auth.NewProviders(cfg.OAuthCallbackBaseURL, map[auth.Provider]auth.ProviderCredentials{
		auth.ProviderGoogle:   {ClientID: cfg.GoogleClientID, ClientSecret: cfg.GoogleClientSecret},
		auth.ProviderFacebook: {ClientID: cfg.FacebookClientID, ClientSecret: cfg.FacebookClientSecret},
		auth.ProviderGithub:   {ClientID: cfg.GithubClientID, ClientSecret: cfg.GithubClientSecret},
	})
	log.Info("oauth_providers_enabled", slog.Int("count", len(providers)))

	var registrar auth.Registrar = auth.NewOTPRegistrar(authService)
	if cfg.RegistrationMode == config.RegistrationModeDirect {
		registrar = auth.NewDirectRegistrar(authService, sec.RoleMember)
	}

	options := auth.HandlerOptions{
		Production:      cfg.IsProduction(),
		CookieDomain:    cfg.CookieDomain,
		OAuthSuccessURL: cfg.OAuthSuccessURL,
		OAuthFailureURL: cfg.OAuthFailureURL,
	}

	authHandler := auth.NewHandler(registrar, authService, bridge, providers, states, options)
	adminAuthHandler := auth.NewAdminHandler(auth.NewDirectRegistrar(authService, sec.RoleAdmin), authService, options)

	accountService := account.NewService(account.NewAccountRepository(pool))
	accountHandler := account.NewHandler(accountService)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		AdminAuth: adminAuthHandler,
		Account:   accountHandler,
	}

	server := api.NewServer(rootCtx, cfg, log, gate, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the JSON logger every entry point shares.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", "bizaek"))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
