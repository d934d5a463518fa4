// Package api exposes resolution and delivery over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flashdl/internal/config"
	"flashdl/internal/log"
	"flashdl/internal/media"
	"flashdl/internal/proxy"
)

// Resolver resolves a user URL.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (*media.Resolution, error)
}

// Deliverer opens deliveries for fetch specs.
type Deliverer interface {
	Open(ctx context.Context, spec media.FetchSpec) (*proxy.Delivery, error)
}

// Server holds the HTTP handlers.
type Server struct {
	resolver       Resolver
	deliverer      Deliverer
	caps           config.Capabilities
	allowedOrigins []string
	rateLimit      int
}

// New creates a Server.
func New(cfg *config.Config, caps config.Capabilities, resolver Resolver, deliverer Deliverer) *Server {
	return &Server{
		resolver:       resolver,
		deliverer:      deliverer,
		caps:           caps,
		allowedOrigins: cfg.AllowedOrigins,
		rateLimit:      cfg.RateLimit,
	}
}

// Handler builds the router with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(CORS(s.allowedOrigins))
	r.Use(Metrics())
	r.Use(log.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.With(RateLimit(s.rateLimit)).Post("/extract", s.handleExtract)

	r.Get("/proxy_download", s.handleProxyDownload)
	r.Get("/proxy_image", s.handleProxyImage)
	r.Get("/process_merge", s.handleProcessMerge)

	return r
}
