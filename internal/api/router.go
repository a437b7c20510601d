// Package api exposes the neighbour engine over HTTP.
package api

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/naka-gawa/star-neighbours/internal/usecase"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	Engine NeighbourService
	// Defaults are the query options used when a request does not override them.
	Defaults usecase.Options
	// RequestTimeout bounds one neighbour query; zero disables the bound.
	RequestTimeout time.Duration
	Logger         *log.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg *RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", HealthHandler)

	h := NewNeighbourHandler(cfg.Engine, cfg.Defaults, cfg.RequestTimeout, cfg.Logger)
	r.Get("/neighbours", h.Neighbours)
	r.Get("/repos/{owner}/{repo}/starneighbours", h.StarNeighbours)
	r.Get("/ratelimit", h.RateLimit)

	return r
}
