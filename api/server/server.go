// Package server wires the dashboard API handlers into an HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/manaskarra/pdash/api/handlers"
	"github.com/manaskarra/pdash/api/metrics"
)

// Server is the HTTP server for the partner dashboard API.
type Server struct {
	router *chi.Mux
	srv    *http.Server
	logger *slog.Logger
}

// New creates the HTTP server and registers all API routes.
func New(bind string, port int, h *handlers.Handler, allowedOrigins []string, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
	}

	s.setupRoutes(h, allowedOrigins)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", bind, port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes(h *handlers.Handler, allowedOrigins []string) {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(metrics.Middleware)

	// Endpoints that hit Postgres per request or call out to Anthropic get a
	// per-IP limiter. Snapshot-backed endpoints serve from memory and don't
	// need one.
	queryLimiter := handlers.NewRateLimiter(rate.Every(time.Minute/100), 20)
	aiLimiter := handlers.NewRateLimiter(rate.Every(time.Minute/10), 3)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/partner-overview", h.Overview)
		r.Get("/partners", h.Partners)
		r.Get("/filters", h.Filters)
		r.Post("/analytics", h.Analytics)

		r.Get("/tier-analytics", h.TierAnalytics)
		r.Get("/country-tier-analytics", h.CountryTierAnalytics)
		r.Get("/tier-detail", h.TierDetail)
		r.Get("/tier-performance", h.TierPerformance)

		r.Get("/partner-tier-progression", h.TierProgression)
		r.Get("/partner-tier-movement-details", h.MovementDetails)
		r.Get("/global-tier-progression-countries", h.GlobalProgressionCountries)

		r.Group(func(r chi.Router) {
			r.Use(handlers.RateLimitMiddleware(queryLimiter))
			r.Get("/db-health", h.DBHealth)
			r.Get("/partners/{partnerID}", h.PartnerDetail)
			r.Get("/partners/{partnerID}/funnel", h.PartnerFunnel)
			r.Get("/partner-application-countries", h.ApplicationCountries)
			r.Get("/partner-application-funnel", h.ApplicationFunnel)
			r.Get("/monthly-country-funnel", h.MonthlyCountryFunnel)
		})

		r.Group(func(r chi.Router) {
			r.Use(handlers.RateLimitMiddleware(aiLimiter))
			r.Post("/ai-insights", h.AIInsights)
		})
	})

	s.router.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// Start starts the HTTP server and blocks until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.srv.Shutdown(ctx)
}
