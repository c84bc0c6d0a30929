// Package api exposes the classification pipeline over HTTP.
package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/halcyonlabs/saffron/internal/approval"
	"github.com/halcyonlabs/saffron/internal/metrics"
	"github.com/halcyonlabs/saffron/internal/pipeline"
	"github.com/halcyonlabs/saffron/internal/service"
)

// Server wires the HTTP routes to the pipeline services.
type Server struct {
	app          *fiber.App
	orchestrator *pipeline.Orchestrator
	approvals    *approval.Service
	tracker      *metrics.Tracker
	store        service.Store
	logger       *slog.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(orchestrator *pipeline.Orchestrator, approvals *approval.Service, tracker *metrics.Tracker, store service.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "saffron",
			DisableStartupMessage: true,
		}),
		orchestrator: orchestrator,
		approvals:    approvals,
		tracker:      tracker,
		store:        store,
		logger:       logger,
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/api/health", s.handleHealth)

	v1 := s.app.Group("/api/v1/classification")
	v1.Post("/classify", s.handleClassify)
	v1.Post("/classify-legacy", s.handleClassifyLegacy)
	v1.Post("/approve", s.handleApprove)
	v1.Get("/rules", s.handleRules)
	v1.Get("/accuracy", s.handleAccuracy)
}

// Listen starts serving on the given address and blocks.
func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
