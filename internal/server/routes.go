package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/promptlens/promptlens/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes(analysis *handlers.AnalysisHandler) {
	// Health endpoints
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	if analysis == nil {
		return
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", analysis.Analyze)
		r.Post("/analyze/pending", analysis.AnalyzePending)
		r.Post("/analyze/batch", analysis.AnalyzeBatch)
		r.Post("/followup", analysis.FollowUp)
		r.Get("/history", analysis.History)
	})
}
