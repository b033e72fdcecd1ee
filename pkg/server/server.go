package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ameling/kinship/pkg/bus"
	"github.com/ameling/kinship/pkg/relationship"
)

// Server is the kinship HTTP API gateway. It translates requests into
// engine calls and forwards the resulting notifications to the bus.
type Server struct {
	engine  *relationship.Engine
	bus     *bus.NotificationBus
	version string
	started time.Time

	// healthCheck reports storage reachability for the health endpoint.
	healthCheck func() error

	router chi.Router
}

// New creates a Server around an engine. The notification bus and health
// check are optional.
func New(engine *relationship.Engine, nb *bus.NotificationBus, version string, healthCheck func() error) *Server {
	s := &Server{
		engine:      engine,
		bus:         nb,
		version:     version,
		started:     time.Now(),
		healthCheck: healthCheck,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/achievements", s.handleListAchievements)

		r.Route("/pairs/{userID}/{companionID}", func(r chi.Router) {
			r.Get("/", s.handleGetState)
			r.Post("/interactions", s.handleInteraction)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	storageOK := true
	if s.healthCheck != nil && s.healthCheck() != nil {
		storageOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"storage": storageOK,
	})
}
