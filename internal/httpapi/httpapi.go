// Package httpapi exposes the gateway over HTTP. It owns routing, bearer
// authentication, JSON shaping, and the mapping from the gateway's error
// taxonomy to status codes; no business rules live here.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/filebox/internal/audit"
	"github.com/dmitrymomot/filebox/internal/gateway"
	"github.com/dmitrymomot/filebox/internal/tenant"
	"github.com/dmitrymomot/filebox/pkg/apikey"
	"github.com/dmitrymomot/filebox/pkg/health"
	"github.com/dmitrymomot/filebox/pkg/job"
)

// Server bundles the HTTP-facing collaborators.
type Server struct {
	gateway *gateway.Service
	keys    *apikey.Service
	tenants *tenant.Service
	queue   *job.Enqueuer
	audit   *audit.Recorder
	checks  health.Checks
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithHealthChecks registers readiness probes.
func WithHealthChecks(checks health.Checks) Option {
	return func(s *Server) { s.checks = checks }
}

// WithQueueStats enables the queue observability endpoint.
func WithQueueStats(e *job.Enqueuer) Option {
	return func(s *Server) { s.queue = e }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer wires the HTTP layer over the gateway.
func NewServer(gw *gateway.Service, keys *apikey.Service, tenants *tenant.Service, rec *audit.Recorder, opts ...Option) *Server {
	s := &Server{
		gateway: gw,
		keys:    keys,
		tenants: tenants,
		audit:   rec,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", health.LivenessHandler())
	r.Get("/ready", health.ReadinessHandler(s.checks))

	// Organization bootstrap is an operator endpoint: it is how the very
	// first credential comes into existence, so it cannot demand one.
	r.Post("/v1/organizations", s.handleCreateOrganization)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/files", func(r chi.Router) {
			r.Post("/", s.handleRequestUpload)
			r.Get("/", s.handleListFiles)
			r.Route("/{fileID}", func(r chi.Router) {
				r.Get("/", s.handleGetFile)
				r.Post("/confirm", s.handleConfirmUpload)
				r.Get("/download", s.handleRequestDownload)
				r.Get("/audit", s.handleAuditTrail)
				r.Delete("/", s.handleDeleteFile)
			})
		})

		r.Route("/keys", func(r chi.Router) {
			r.Post("/", s.handleCreateKey)
			r.Get("/", s.handleListKeys)
			r.Delete("/{keyID}", s.handleRevokeKey)
		})

		r.Get("/queue/stats", s.handleQueueStats)
	})

	return r
}
