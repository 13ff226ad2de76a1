// Package server exposes the goramble pipeline and its stored results over
// a JSON REST API.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/goramble/internal/logging"
	"github.com/me/goramble/internal/modifier"
	"github.com/me/goramble/internal/store"
	"github.com/me/goramble/internal/workspace"
)

// Version is reported by the health and discovery endpoints.
const Version = "0.1.0"

// defaultMaxDocumentBytes caps POSTed configuration documents.
const defaultMaxDocumentBytes = 4 << 20

// Server is the goramble REST API server.
type Server struct {
	router           chi.Router
	logger           *slog.Logger
	startTime        time.Time
	workspace        *workspace.Workspace
	modifiers        *modifier.Registry
	store            store.Store // optional; nil disables persistence endpoints
	maxDocumentBytes int64
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithStore enables persistence of expansions and the read endpoints over them.
func WithStore(st store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithMaxDocumentBytes limits the size of documents accepted by POST /expansions.
func WithMaxDocumentBytes(n int64) Option {
	return func(s *Server) {
		s.maxDocumentBytes = n
	}
}

// New creates a new Server with all routes registered.
func New(ws *workspace.Workspace, mods *modifier.Registry, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:           chi.NewRouter(),
		logger:           logging.OrDiscard(logger).With("component", "server"),
		startTime:        time.Now(),
		workspace:        ws,
		modifiers:        mods,
		maxDocumentBytes: defaultMaxDocumentBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		r.Get("/schema", s.handleGetSchema)
		r.Get("/schema/{level}", s.handleGetSchema)

		r.Route("/modifiers", func(r chi.Router) {
			r.Get("/", s.handleListModifiers)
			r.Get("/{name}", s.handleGetModifier)
		})

		r.Route("/expansions", func(r chi.Router) {
			r.Get("/", s.handleListExpansions)
			r.Post("/", s.handleCreateExpansion)
			r.Get("/{id}", s.handleGetExpansion)
		})

		r.Route("/instances", func(r chi.Router) {
			r.Get("/", s.handleListInstances)
			r.Get("/{id}", s.handleGetInstance)
		})
	})
}
