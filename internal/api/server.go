// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/bizaek/internal/platform/config"
	"github.com/taibuivan/bizaek/internal/platform/constants"
	"github.com/taibuivan/bizaek/internal/platform/middleware"
	"github.com/taibuivan/bizaek/internal/platform/sec"
	"github.com/taibuivan/bizaek/internal/users/account"
	"github.com/taibuivan/bizaek/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler. It always returns 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. It returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles the public identity routes (register, login, reset, OAuth).
	Auth *auth.Handler

	// AdminAuth handles administrator registration and login behind the guest gate.
	AdminAuth *auth.AdminHandler

	// Account serves the caller's record and admin status changes.
	Account *account.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
//
// # Route map
//
//	/health, /ready                      public health checks
//	/api/v1/auth/*                       public
//	/api/v1/admin/auth/*                 HTTP Basic guest gate
//	/api/v1/admin/users/{id}/status      bearer token, admin role
//	/api/v1/me                           bearer token
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger, authenticator middleware.Authenticator, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	if cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(ctx, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst))
	r.Use(middleware.PanicRecovery())
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health checks for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	requireAuth := middleware.RequireAuth(authenticator)
	requireAdmin := middleware.RequireRole(sec.AtLeast(sec.RoleAdmin))

	// # Application API
	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", h.Auth.Routes())

		api.Route("/admin", func(admin chi.Router) {
			admin.With(middleware.GuestAccess(cfg.GuestUsername, cfg.GuestPassword)).
				Mount("/auth", h.AdminAuth.Routes())
			admin.With(requireAuth, requireAdmin).
				Mount("/", h.Account.AdminRoutes())
		})

		api.With(requireAuth).Mount("/", h.Account.Routes())
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the fully wired router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
