package api

import (
	"strings"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Server.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")

	// Call session surface for the presentation layer.
	api.Get("/call", s.handleGetCall)
	api.Post("/call/accept", s.handleAcceptCall)
	api.Post("/call/hangup", s.handleHangUpCall)
	api.Post("/alerts", s.handleManualAlert)

	// Vital-sign intake: classify on save, alert synchronously.
	api.Post("/readings/glucose", s.handleCreateGlucoseReading)
	api.Get("/readings/glucose/stats", s.handleGlucoseStats)
	api.Post("/readings/blood-pressure", s.handleCreateBloodPressureReading)

	// Schedule sources, owned by their feature screens.
	api.Get("/medications", s.handleListMedications)
	api.Post("/medications", s.handleCreateMedication)
	api.Put("/medications/:id", s.handleUpdateMedication)
	api.Delete("/medications/:id", s.handleDeleteMedication)

	api.Get("/insulin", s.handleListInsulinDoses)
	api.Post("/insulin", s.handleCreateInsulinDose)
	api.Put("/insulin/:id", s.handleUpdateInsulinDose)
	api.Delete("/insulin/:id", s.handleDeleteInsulinDose)

	api.Get("/meals", s.handleListMealPlans)
	api.Post("/meals", s.handleCreateMealPlan)
	api.Put("/meals/:id", s.handleUpdateMealPlan)
	api.Delete("/meals/:id", s.handleDeleteMealPlan)

	api.Get("/appointments", s.handleListAppointments)
	api.Post("/appointments", s.handleCreateAppointment)
	api.Delete("/appointments/:id", s.handleDeleteAppointment)

	api.Get("/hydration", s.handleGetHydration)
	api.Post("/hydration/increment", s.handleIncrementHydration)
}
