package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/vitalia-app/vitalia/internal/errors"
	"github.com/vitalia-app/vitalia/internal/metrics"
	"github.com/vitalia-app/vitalia/internal/store"
	"github.com/vitalia-app/vitalia/internal/vitals"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": "1.0.0",
	})
}

// ==================== Call Session ====================

func (s *Server) handleGetCall(c *fiber.Ctx) error {
	return c.JSON(s.orchestrator.Snapshot())
}

func (s *Server) handleAcceptCall(c *fiber.Ctx) error {
	if err := s.orchestrator.Accept(); err != nil {
		return s.callError(c, err)
	}
	return c.JSON(s.orchestrator.Snapshot())
}

func (s *Server) handleHangUpCall(c *fiber.Ctx) error {
	if err := s.orchestrator.HangUp(); err != nil {
		return s.callError(c, err)
	}
	return c.JSON(s.orchestrator.Snapshot())
}

func (s *Server) callError(c *fiber.Ctx, err error) error {
	status := fiber.StatusConflict
	if err == apperrors.ErrNoSession {
		status = fiber.StatusNotFound
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  apperrors.GetCode(err),
	})
}

func (s *Server) handleManualAlert(c *fiber.Ctx) error {
	var req struct {
		Message     string `json:"message"`
		CallerLabel string `json:"caller_label"`
	}
	if err := c.BodyParser(&req); err != nil || req.Message == "" {
		return badRequest(c, "message is required")
	}
	if req.CallerLabel == "" {
		req.CallerLabel = "Alerta"
	}

	triggered := s.orchestrator.TriggerManualAlert(req.Message, req.CallerLabel)
	return c.JSON(fiber.Map{"triggered": triggered})
}

// ==================== Readings ====================

func (s *Server) handleCreateGlucoseReading(c *fiber.Ctx) error {
	var req struct {
		Value      float64   `json:"value"`
		Context    string    `json:"context"`
		MeasuredAt time.Time `json:"measured_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	classification, err := vitals.ClassifyGlucose(req.Value, req.Context)
	if err != nil {
		return badRequest(c, "value must be a positive number")
	}
	metrics.ReadingsClassified.WithLabelValues("glucose", string(classification.Tier)).Inc()

	reading := &store.GlucoseReading{
		Value:      req.Value,
		Context:    req.Context,
		MeasuredAt: req.MeasuredAt,
	}
	if err := s.store.CreateGlucoseReading(reading); err != nil {
		return s.internalError(c, "failed to save glucose reading", err)
	}

	triggered := false
	if classification.AlertWorthy {
		triggered = s.orchestrator.TriggerManualAlert(classification.Judgment, "Monitor de Glucosa")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"reading":        reading,
		"classification": classification,
		"triggered":      triggered,
	})
}

func (s *Server) handleGlucoseStats(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)
	if days <= 0 {
		return badRequest(c, "days must be positive")
	}

	since := time.Now().AddDate(0, 0, -days)
	readings, err := s.store.ListGlucoseReadings(since)
	if err != nil {
		return s.internalError(c, "failed to list glucose readings", err)
	}

	samples := make([]vitals.GlucoseSample, len(readings))
	for i, r := range readings {
		samples[i] = vitals.GlucoseSample{Value: r.Value, Context: r.Context}
	}

	return c.JSON(fiber.Map{
		"days":  days,
		"stats": vitals.AggregateGlucose(samples),
	})
}

func (s *Server) handleCreateBloodPressureReading(c *fiber.Ctx) error {
	var req struct {
		Systolic   int       `json:"systolic"`
		Diastolic  int       `json:"diastolic"`
		MeasuredAt time.Time `json:"measured_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Systolic <= 0 || req.Diastolic <= 0 {
		return badRequest(c, "systolic and diastolic must be positive")
	}

	classification := vitals.ClassifyBloodPressure(req.Systolic, req.Diastolic)
	metrics.ReadingsClassified.WithLabelValues("blood_pressure", string(classification.Tier)).Inc()

	reading := &store.BloodPressureReading{
		Systolic:   req.Systolic,
		Diastolic:  req.Diastolic,
		MeasuredAt: req.MeasuredAt,
	}
	if err := s.store.CreateBloodPressureReading(reading); err != nil {
		return s.internalError(c, "failed to save blood pressure reading", err)
	}

	// Every tier narrates its verdict, including the congratulation.
	triggered := s.orchestrator.TriggerManualAlert(classification.Message, classification.CallerLabel)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"reading":        reading,
		"classification": classification,
		"triggered":      triggered,
	})
}

// ==================== Medications ====================

func (s *Server) handleListMedications(c *fiber.Ctx) error {
	meds, err := s.store.ListMedications(c.QueryBool("enabled", false))
	if err != nil {
		return s.internalError(c, "failed to list medications", err)
	}
	return c.JSON(meds)
}

func (s *Server) handleCreateMedication(c *fiber.Ctx) error {
	var med store.Medication
	if err := c.BodyParser(&med); err != nil {
		return badRequest(c, "invalid request body")
	}
	if med.Name == "" {
		return badRequest(c, "name is required")
	}
	if err := validateTimes(med.Times); err != nil {
		return badRequest(c, err.Error())
	}

	if err := s.store.CreateMedication(&med); err != nil {
		return s.internalError(c, "failed to create medication", err)
	}
	return c.Status(fiber.StatusCreated).JSON(med)
}

func (s *Server) handleUpdateMedication(c *fiber.Ctx) error {
	existing, err := s.store.GetMedication(c.Params("id"))
	if err != nil {
		return s.internalError(c, "failed to load medication", err)
	}
	if existing == nil {
		return notFound(c)
	}

	var med store.Medication
	if err := c.BodyParser(&med); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validateTimes(med.Times); err != nil {
		return badRequest(c, err.Error())
	}

	med.ID = existing.ID
	med.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateMedication(&med); err != nil {
		return s.internalError(c, "failed to update medication", err)
	}
	return c.JSON(med)
}

func (s *Server) handleDeleteMedication(c *fiber.Ctx) error {
	if err := s.store.DeleteMedication(c.Params("id")); err != nil {
		return s.internalError(c, "failed to delete medication", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ==================== Insulin ====================

func (s *Server) handleListInsulinDoses(c *fiber.Ctx) error {
	doses, err := s.store.ListInsulinDoses(c.QueryBool("enabled", false))
	if err != nil {
		return s.internalError(c, "failed to list insulin doses", err)
	}
	return c.JSON(doses)
}

func (s *Server) handleCreateInsulinDose(c *fiber.Ctx) error {
	var dose store.InsulinDose
	if err := c.BodyParser(&dose); err != nil {
		return badRequest(c, "invalid request body")
	}
	if dose.Description == "" {
		return badRequest(c, "description is required")
	}
	if err := validateTimes(dose.Times); err != nil {
		return badRequest(c, err.Error())
	}

	if err := s.store.CreateInsulinDose(&dose); err != nil {
		return s.internalError(c, "failed to create insulin dose", err)
	}
	return c.Status(fiber.StatusCreated).JSON(dose)
}

func (s *Server) handleUpdateInsulinDose(c *fiber.Ctx) error {
	existing, err := s.store.GetInsulinDose(c.Params("id"))
	if err != nil {
		return s.internalError(c, "failed to load insulin dose", err)
	}
	if existing == nil {
		return notFound(c)
	}

	var dose store.InsulinDose
	if err := c.BodyParser(&dose); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validateTimes(dose.Times); err != nil {
		return badRequest(c, err.Error())
	}

	dose.ID = existing.ID
	dose.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateInsulinDose(&dose); err != nil {
		return s.internalError(c, "failed to update insulin dose", err)
	}
	return c.JSON(dose)
}

func (s *Server) handleDeleteInsulinDose(c *fiber.Ctx) error {
	if err := s.store.DeleteInsulinDose(c.Params("id")); err != nil {
		return s.internalError(c, "failed to delete insulin dose", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ==================== Meals ====================

func (s *Server) handleListMealPlans(c *fiber.Ctx) error {
	meals, err := s.store.ListMealPlans(c.QueryBool("enabled", false))
	if err != nil {
		return s.internalError(c, "failed to list meal plans", err)
	}
	return c.JSON(meals)
}

func (s *Server) handleCreateMealPlan(c *fiber.Ctx) error {
	var meal store.MealPlan
	if err := c.BodyParser(&meal); err != nil {
		return badRequest(c, "invalid request body")
	}
	if meal.MealType == "" {
		return badRequest(c, "meal_type is required")
	}
	if err := validateTimes(meal.Times); err != nil {
		return badRequest(c, err.Error())
	}

	if err := s.store.CreateMealPlan(&meal); err != nil {
		return s.internalError(c, "failed to create meal plan", err)
	}
	return c.Status(fiber.StatusCreated).JSON(meal)
}

func (s *Server) handleUpdateMealPlan(c *fiber.Ctx) error {
	existing, err := s.store.GetMealPlan(c.Params("id"))
	if err != nil {
		return s.internalError(c, "failed to load meal plan", err)
	}
	if existing == nil {
		return notFound(c)
	}

	var meal store.MealPlan
	if err := c.BodyParser(&meal); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validateTimes(meal.Times); err != nil {
		return badRequest(c, err.Error())
	}

	meal.ID = existing.ID
	meal.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateMealPlan(&meal); err != nil {
		return s.internalError(c, "failed to update meal plan", err)
	}
	return c.JSON(meal)
}

func (s *Server) handleDeleteMealPlan(c *fiber.Ctx) error {
	if err := s.store.DeleteMealPlan(c.Params("id")); err != nil {
		return s.internalError(c, "failed to delete meal plan", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ==================== Appointments ====================

func (s *Server) handleListAppointments(c *fiber.Ctx) error {
	appts, err := s.store.ListAppointments()
	if err != nil {
		return s.internalError(c, "failed to list appointments", err)
	}
	return c.JSON(appts)
}

func (s *Server) handleCreateAppointment(c *fiber.Ctx) error {
	var appt store.Appointment
	if err := c.BodyParser(&appt); err != nil {
		return badRequest(c, "invalid request body")
	}
	if appt.Doctor == "" {
		return badRequest(c, "doctor is required")
	}
	if _, err := appt.When(time.Local); err != nil {
		return badRequest(c, "date must be YYYY-MM-DD and time must be HH:MM")
	}

	if err := s.store.CreateAppointment(&appt); err != nil {
		return s.internalError(c, "failed to create appointment", err)
	}
	return c.Status(fiber.StatusCreated).JSON(appt)
}

func (s *Server) handleDeleteAppointment(c *fiber.Ctx) error {
	if err := s.store.DeleteAppointment(c.Params("id")); err != nil {
		return s.internalError(c, "failed to delete appointment", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ==================== Hydration ====================

func (s *Server) handleGetHydration(c *fiber.Ctx) error {
	date := time.Now().Format("2006-01-02")
	count, err := s.store.HydrationCount(date)
	if err != nil {
		return s.internalError(c, "failed to get hydration count", err)
	}
	return c.JSON(fiber.Map{
		"date":  date,
		"count": count,
		"goal":  s.config.Engine.HydrationGoal,
	})
}

func (s *Server) handleIncrementHydration(c *fiber.Ctx) error {
	date := time.Now().Format("2006-01-02")
	count, err := s.store.IncrementHydration(date)
	if err != nil {
		return s.internalError(c, "failed to increment hydration", err)
	}
	return c.JSON(fiber.Map{
		"date":  date,
		"count": count,
		"goal":  s.config.Engine.HydrationGoal,
	})
}

// ==================== Helpers ====================

// validateTimes rejects schedule times the evaluator would silently skip.
func validateTimes(times []string) error {
	for _, t := range times {
		if _, err := time.Parse("15:04", t); err != nil {
			return apperrors.Wrap(err, apperrors.ErrMalformedTime.Code, "times must be HH:MM, got "+t)
		}
	}
	return nil
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"code":  apperrors.ErrBadRequest.Code,
	})
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "resource not found",
		"code":  apperrors.ErrNotFound.Code,
	})
}

func (s *Server) internalError(c *fiber.Ctx, message string, err error) error {
	s.logger.Error(message, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": message,
		"code":  apperrors.ErrInternal.Code,
	})
}
