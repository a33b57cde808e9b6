package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attend/internal/vision"
	"github.com/kozaktomas/face-attend/internal/web/handlers"
)

func (s *Server) setupRoutes(visionClient *vision.Client) {
	reportHandler := handlers.NewReportHandler(s.store)
	identitiesHandler := handlers.NewIdentitiesHandler(s.store, visionClient, s.config.FacesDir, s.log)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Reports
		r.Get("/report", reportHandler.Get)
		r.Get("/sessions", reportHandler.Sessions)

		// Identities
		r.Get("/identities", identitiesHandler.List)
		r.Post("/identities", identitiesHandler.Register)
		r.Post("/identities/{name}/embeddings", identitiesHandler.AddEmbedding)
		r.Delete("/identities/{name}", identitiesHandler.Delete)

		// Live attendance events (SSE)
		r.Get("/events", s.hub.Stream)
	})
}
