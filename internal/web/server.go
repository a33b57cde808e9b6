package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/vision"
	"github.com/kozaktomas/face-attend/internal/web/handlers"
	"github.com/kozaktomas/face-attend/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *config.Config
	store      database.Store
	router     *chi.Mux
	httpServer *http.Server
	hub        *handlers.EventsHub
	log        *logrus.Logger
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, store database.Store, port int, host string, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}

	r := chi.NewRouter()

	s := &Server{
		config: cfg,
		store:  store,
		router: r,
		hub:    handlers.NewEventsHub(),
		log:    log,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))
	r.Use(middleware.CORS())

	visionClient := vision.NewClient(cfg.Vision.URL, cfg.Engine.EmbeddingDim)
	s.setupRoutes(visionClient)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long timeout for SSE
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Hub returns the SSE broadcast hub. Wire it into the session engine as
// a notifier so connected clients see transitions live.
func (s *Server) Hub() *handlers.EventsHub {
	return s.hub
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("starting web server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
