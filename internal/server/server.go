// Package server exposes the classification pipeline over HTTP: a small
// JSON API for the current model and session history, and a websocket
// stream of per-tick display models.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/danielpatrickdp/mindstate/internal/catalog"
	"github.com/danielpatrickdp/mindstate/internal/display"
	"github.com/danielpatrickdp/mindstate/internal/provenance"
)

// #region config

// Config for the HTTP server.
type Config struct {
	Addr         string
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

// DefaultConfig returns the canonical server settings.
func DefaultConfig() Config {
	return Config{
		Addr:         ":9053",
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
}

// #endregion config

// #region server

// Server serves the display model and history. The provenance store is
// optional; history endpoints answer 404 without one.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	hub        *Hub

	cat   *catalog.Catalog
	store *provenance.Store

	mu        sync.RWMutex
	latest    display.Model
	hasLatest bool
}

// New creates an API server over a catalog and an optional provenance
// store.
func New(config Config, cat *catalog.Catalog, store *provenance.Store) *Server {
	s := &Server{
		hub:   NewHub(config.WriteTimeout),
		cat:   cat,
		store: store,
	}
	s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: 0, // websocket connections outlive any write timeout
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures all routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleGetState)
		r.Get("/states", s.handleGetStates)
		r.Get("/sessions", s.handleGetSessions)
		r.Get("/transitions", s.handleGetTransitions)
	})

	r.Get("/ws", s.hub.HandleWS)
	r.Get("/health", s.handleHealth)

	s.router = r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server and disconnects subscribers.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// Publish records the latest model and fans it out to websocket
// subscribers. Called once per stabilizer tick.
func (s *Server) Publish(model display.Model) {
	s.mu.Lock()
	s.latest = model
	s.hasLatest = true
	s.mu.Unlock()

	s.hub.Broadcast(model)
}

// #endregion server

// #region handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	model, ok := s.latest, s.hasLatest
	s.mu.RUnlock()

	if !ok {
		respondError(w, http.StatusServiceUnavailable, "no model emitted yet")
		return
	}
	respondJSON(w, http.StatusOK, model)
}

func (s *Server) handleGetStates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.cat.All())
}

func (s *Server) handleGetSessions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotFound, "no provenance store configured")
		return
	}
	sessions, err := s.store.ListSessions(limitParam(r, 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []provenance.SessionRecord{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetTransitions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotFound, "no provenance store configured")
		return
	}
	transitions, err := s.store.ListTransitions(limitParam(r, 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if transitions == nil {
		transitions = []provenance.TransitionRecord{}
	}
	respondJSON(w, http.StatusOK, transitions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	hasLatest := s.hasLatest
	s.mu.RUnlock()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"has_model":   hasLatest,
		"subscribers": s.hub.ClientCount(),
		"timestamp":   time.Now().UTC(),
	})
}

// #endregion handlers

// #region helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func limitParam(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	if n > 500 {
		n = 500
	}
	return n
}

// #endregion helpers
