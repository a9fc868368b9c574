// Package api exposes the engine and schedule stores to the presentation
// layer over HTTP.
package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/vitalia-app/vitalia/internal/call"
	"github.com/vitalia-app/vitalia/internal/config"
	"github.com/vitalia-app/vitalia/internal/store"
)

// Server handles the HTTP API
type Server struct {
	app          *fiber.App
	config       *config.Config
	store        *store.Store
	orchestrator *call.Orchestrator
	logger       *zap.Logger
}

// New creates a new API server
func New(cfg *config.Config, st *store.Store, orchestrator *call.Orchestrator, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:          app,
		config:       cfg,
		store:        st,
		orchestrator: orchestrator,
		logger:       logger,
	}

	s.setupRoutes()
	return s
}

// Start begins listening. Blocks until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	s.logger.Info("API server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(10 * time.Second)
}
