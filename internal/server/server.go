// Package server exposes the reviewer action surface of a reconciliation
// session over HTTP.
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/recon"
	"github.com/sells-group/recon-cli/internal/store"
)

// ErrNoStore is returned when saving without a session store.
var ErrNoStore = eris.New("server: no session store configured")

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server serialises reviewer actions against one engine. Last write wins
// per (document, field).
type Server struct {
	mu      sync.Mutex
	engine  *recon.Engine
	store   store.Store
	metrics *Metrics
	opts    Options
}

// New returns a server over engine. st may be nil, in which case saving a
// session fails with 503.
func New(engine *recon.Engine, st store.Store, opts Options) *Server {
	return &Server{
		engine:  engine,
		store:   st,
		metrics: NewMetrics(),
		opts:    opts,
	}
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Snapshot captures the engine's persistable state.
func (s *Server) Snapshot() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// SaveSnapshot persists snap and records the outcome.
func (s *Server) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	if s.store == nil {
		return ErrNoStore
	}
	err := s.store.SaveSnapshot(ctx, snap)
	s.metrics.RecordSave(err)
	return err
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimit(s.opts.RateLimitRPS, s.opts.RateLimitBurst))

		r.Get("/summary", s.handleSummary)
		r.Get("/export.xlsx", s.handleExport)
		r.Post("/session/save", s.handleSave)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Route("/{documentID}", func(r chi.Router) {
				r.Get("/", s.handleGetDocument)
				r.Put("/corrections/{field}", s.handleSetCorrection)
				r.Delete("/corrections/{field}", s.handleClearCorrection)
				r.Put("/judgment", s.handleSelectJudgment)
				r.Delete("/judgment", s.handleClearJudgment)
				r.Post("/judgment/confirm", s.handleConfirmJudgment)
				r.Get("/coordinates/{field}/{source}", s.handleCoordinates)
			})
		})
	})
	return r
}
