package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stagebox/stagebox/internal/store"
)

// Config holds server configuration.
type Config struct {
	Port           int
	DataDir        string   // directory for the SQLite DB and extracted apps
	AllowAll       bool     // allow all CORS origins (dev mode)
	IgnoreGlobs    []string // patterns hidden from file trees
	MaxUploadBytes int64    // zip upload size cap
}

// Server is the stagebox backend: app uploads, file trees, file content,
// static serving, and the embedded viewer page.
type Server struct {
	cfg        Config
	db         *store.DB
	hub        *eventHub
	router     chi.Router
	httpServer *http.Server
}

// New creates a new server over the given metadata store.
func New(cfg Config, db *store.DB) *Server {
	s := &Server{
		cfg: cfg,
		db:  db,
		hub: newEventHub(),
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "stagebox frontend previewer API"})
	})

	s.registerAppRoutes(r)

	r.Get("/viewer/{id}", s.handleViewer)
	r.Get("/ws/events", s.hub.handleWebSocket)

	return r
}

// Router returns the chi router, exposed for tests.
func (s *Server) Router() chi.Router { return s.router }

// appsDir is the root directory holding one subdirectory per app.
func (s *Server) appsDir() string { return filepath.Join(s.cfg.DataDir, "apps") }

// appDir is the extracted tree of a single app.
func (s *Server) appDir(id string) string { return filepath.Join(s.appsDir(), id) }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("stagebox server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
