// Package server wires handlers and middleware into a router and runs the
// HTTP listener.
//
// DEPENDENCY INJECTION FLOW:
// main.go opens the store and builds the services, then hands them here:
//
//	Store → AuthService, MealPlanService → AuthHandler, MealPlanHandler → routes
//
// The server owns no resources of its own; closing the store is main's job.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/meal-planner/internal/auth"
	"github.com/sakif/meal-planner/internal/config"
	"github.com/sakif/meal-planner/internal/handler"
	"github.com/sakif/meal-planner/internal/metrics"
	"github.com/sakif/meal-planner/internal/middleware"
	"github.com/sakif/meal-planner/internal/service"
)

// defaultShutdownTimeout applies when the config leaves the grace unset. It
// is longer than a provider call is allowed to take.
const defaultShutdownTimeout = 150 * time.Second

// Deps are the services the routes are built on.
type Deps struct {
	Auth      *service.AuthService
	MealPlans *service.MealPlanService
	// Limiter guards plan generation. Nil disables rate limiting.
	Limiter   middleware.Allower
}

// Server represents the HTTP server and its routes.
type Server struct {
	router *chi.Mux
	config config.ServerConfig
	logger *slog.Logger
}

// New creates a Server and registers every route.
func New(cfg config.ServerConfig, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.setupRoutes(deps)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE (under the API prefix, default /api):
// GET    /health                          → liveness
// POST   /auth/register                   → create account
// POST   /auth/login                      → sign in
// GET    /auth/me                         → current user
// POST   /meal-plan/generate              → generate a weekly plan [rate limited]
// GET    /meal-plan/me                    → caller's latest plan   [auth]
// GET    /meal-plan/history               → caller's plans         [auth]
// GET    /meal-plan/{sessionId}           → latest plan for session
// GET    /meal-plan/{sessionId}/grocery-list
// GET    /meal-plan/{sessionId}/nutrition
//
// GET    /metrics (outside the prefix)    → Prometheus scrape
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID, RealIP: later middleware logs the id and keys on the IP
//  2. Recoverer: a panic becomes a 500
//  3. Logger, Metrics: see the final status
//  4. CORS: answers preflights before auth runs
//  5. OptionalAuth: attaches the identity, if any, for everything below
func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(middleware.CORS(s.config.CORSOrigins))

	s.router.Handle("/metrics", metrics.Handler())

	authHandler := handler.NewAuthHandler(deps.Auth, s.logger)
	planHandler := handler.NewMealPlanHandler(deps.MealPlans, s.logger)

	generate := http.Handler(http.HandlerFunc(planHandler.HandleGenerate))
	if deps.Limiter != nil {
		generate = middleware.RateLimit(deps.Limiter, s.logger)(generate)
	}

	prefix := s.config.APIPrefix
	if prefix == "" {
		prefix = "/"
	}

	s.router.Route(prefix, func(r chi.Router) {
		r.Use(auth.OptionalAuth(deps.Auth))

		r.Get("/health", handler.HandleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Get("/me", authHandler.HandleMe)
		})

		r.Route("/meal-plan", func(r chi.Router) {
			r.Method(http.MethodPost, "/generate", generate)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth)
				r.Get("/me", planHandler.HandleMine)
				r.Get("/history", planHandler.HandleHistory)
			})

			r.Get("/{sessionId}", planHandler.HandleBySession)
			r.Get("/{sessionId}/grocery-list", planHandler.HandleGroceryList)
			r.Get("/{sessionId}/nutrition", planHandler.HandleNutrition)
		})
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Give in-flight requests ShutdownTimeout to finish (a generation can
//     take most of a minute)
//  3. Cancel the request contexts of whatever is still running and wait for
//     those handlers to return
//
// Start only returns once no handler is running, so main can close the store.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener, which it closes.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	var inflight sync.WaitGroup
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inflight.Add(1)
			defer inflight.Done()
			s.router.ServeHTTP(w, r)
		}),
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", ln.Addr().String()),
			slog.String("apiPrefix", s.config.APIPrefix),
		)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		grace := s.config.ShutdownTimeout
		if grace <= 0 {
			grace = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			s.logger.Warn("cancelling requests still running after shutdown grace",
				slog.Duration("grace", grace))
		}
		cancelRequests()
		inflight.Wait()

		if err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
