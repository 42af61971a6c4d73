package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/vachat/internal/db"
)

// Config holds server configuration.
type Config struct {
	Port     int
	DataDir  string // directory for the SQLite DB
	AllowAll bool   // allow all CORS origins (dev mode)
}

// ChunkCounter reports how many chunks the document store holds.
// vectordb.DocumentStore satisfies it.
type ChunkCounter interface {
	Count(ctx context.Context) (int, error)
}

// Server is the vachat HTTP server. Feature packages mount their routes on
// Router().
type Server struct {
	cfg        Config
	db         *db.DB
	docs       ChunkCounter
	router     chi.Router
	httpServer *http.Server
}

// New creates a server. docs may be nil, in which case /healthz does not
// report the index size.
func New(cfg Config, database *db.DB, docs ChunkCounter) *Server {
	s := &Server{
		cfg:  cfg,
		db:   database,
		docs: docs,
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// No router-wide timeout: /ws/chat connections are long-lived and each
	// provider call is bounded by the engine.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", s.handleHealth)

	return r
}

type healthResponse struct {
	Status string `json:"status"`
	Chunks *int   `json:"chunks,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	status := http.StatusOK

	if s.docs != nil {
		n, err := s.docs.Count(r.Context())
		if err != nil {
			resp.Status = "degraded"
			resp.Error = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp.Chunks = &n
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Database returns the database connection.
func (s *Server) Database() *db.DB { return s.db }

// ServerConfig returns the server configuration.
func (s *Server) ServerConfig() Config { return s.cfg }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("vachat server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
