package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/monroehq/photo-pairer/internal/companycam"
	"github.com/monroehq/photo-pairer/internal/pairing"
	"github.com/monroehq/photo-pairer/internal/pipeline"
	"github.com/monroehq/photo-pairer/internal/state"
	"github.com/monroehq/photo-pairer/internal/web/handlers"
	"github.com/monroehq/photo-pairer/internal/web/middleware"
)

func (s *Server) setupRoutes(p *pipeline.Pipeline, cam *companycam.Client,
	tracker *state.Tracker, pairCfg pairing.Config, saveState func() error) {

	// Create handlers
	projectHandler := handlers.NewProjectHandler(cam, pairCfg)
	scanHandler := handlers.NewScanHandler(p, pairCfg, s.jobManager, saveState)
	stateHandler := handlers.NewStateHandler(tracker)

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Get("/metrics", promhttp.Handler().ServeHTTP)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.Web.Token))

		// Projects
		r.Get("/projects", projectHandler.List)
		r.Get("/projects/{projectID}/batches", projectHandler.Batches)

		// Scan (long-running operations)
		r.Post("/scan", scanHandler.Start)
		r.Get("/scan/{jobId}", scanHandler.Status)
		r.Get("/scan/{jobId}/events", scanHandler.Events)
		r.Delete("/scan/{jobId}", scanHandler.Cancel)

		// Run state
		r.Get("/state", stateHandler.Get)
	})
}
