package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vitalia-app/vitalia/internal/config"
	apperrors "github.com/vitalia-app/vitalia/internal/errors"
	"github.com/vitalia-app/vitalia/internal/metrics"
)

// Evaluator polls schedule sources on two cadences and emits at most one
// reminder event per due occurrence. Medication schedules are checked on
// the fast tick; diet, insulin, appointments and hydration on the slow one.
type Evaluator struct {
	cfg    config.EngineConfig
	ledger Ledger
	sink   Sink
	clock  Clock
	logger *zap.Logger

	fast []ScheduleSource
	slow []ScheduleSource

	appointments AppointmentProvider
	hydration    HydrationProvider

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewEvaluator creates an evaluator. Sources are attached with the Add/Set
// methods before Start.
func NewEvaluator(cfg config.EngineConfig, ledger Ledger, sink Sink, clock Clock, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		cfg:    cfg,
		ledger: ledger,
		sink:   sink,
		clock:  clock,
		logger: logger,
	}
}

// AddFastSource attaches a source to the fast cadence.
func (e *Evaluator) AddFastSource(src ScheduleSource) {
	e.fast = append(e.fast, src)
}

// AddSlowSource attaches a source to the slow cadence.
func (e *Evaluator) AddSlowSource(src ScheduleSource) {
	e.slow = append(e.slow, src)
}

// SetAppointments attaches the appointment provider.
func (e *Evaluator) SetAppointments(p AppointmentProvider) {
	e.appointments = p
}

// SetHydration attaches the hydration provider.
func (e *Evaluator) SetHydration(p HydrationProvider) {
	e.hydration = p
}

// Start begins ticking on both cadences.
func (e *Evaluator) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return apperrors.ErrEngineRunning
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cronSpec(e.cfg.FastTickSeconds), e.TickFast); err != nil {
		return fmt.Errorf("failed to schedule fast tick: %w", err)
	}
	if _, err := c.AddFunc(cronSpec(e.cfg.SlowTickSeconds), e.TickSlow); err != nil {
		return fmt.Errorf("failed to schedule slow tick: %w", err)
	}
	c.Start()

	e.cron = c
	e.running = true

	e.logger.Info("Reminder evaluator started",
		zap.Int("fast_tick_seconds", e.cfg.FastTickSeconds),
		zap.Int("slow_tick_seconds", e.cfg.SlowTickSeconds),
	)

	return nil
}

// Stop cancels both cadences and waits for in-flight ticks to finish.
func (e *Evaluator) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	c := e.cron
	e.cron = nil
	e.mu.Unlock()

	<-c.Stop().Done()
	e.logger.Info("Reminder evaluator stopped")
}

// IsRunning returns true if the evaluator is ticking.
func (e *Evaluator) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// cronSpec builds a seconds-resolution cron expression for an interval.
func cronSpec(seconds int) string {
	if seconds >= 60 {
		minutes := seconds / 60
		if minutes <= 1 {
			return "0 * * * * *"
		}
		return fmt.Sprintf("0 */%d * * * *", minutes)
	}
	return fmt.Sprintf("*/%d * * * * *", seconds)
}

// TickFast evaluates the fast-cadence sources once.
func (e *Evaluator) TickFast() {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic in fast tick", zap.Any("recover", r))
		}
	}()

	now := e.clock.Now()
	for _, src := range e.fast {
		e.evaluateSource(now, src)
	}
}

// TickSlow evaluates the slow-cadence sources, the next appointment, and
// the hydration goal once.
func (e *Evaluator) TickSlow() {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic in slow tick", zap.Any("recover", r))
		}
	}()

	now := e.clock.Now()
	for _, src := range e.slow {
		e.evaluateSource(now, src)
	}
	e.checkAppointment(now)
	e.checkHydration(now)
}

// evaluateSource emits one event per item/time matching the current minute.
// Items are evaluated in source-list order; the ledger, not timer precision,
// enforces at-most-once per occurrence.
func (e *Evaluator) evaluateSource(now time.Time, src ScheduleSource) {
	items, err := src.List()
	if err != nil {
		e.logger.Warn("Schedule source read failed",
			zap.String("domain", src.Domain()),
			zap.Error(err),
		)
		return
	}

	date := now.Format("2006-01-02")
	hhmm := now.Format("15:04")

	for _, item := range items {
		if !item.Enabled {
			continue
		}
		for _, t := range item.Times {
			parsed, err := time.Parse("15:04", t)
			if err != nil {
				e.logger.Warn("Skipping malformed schedule time",
					zap.String("domain", src.Domain()),
					zap.String("item_id", item.ID),
					zap.String("time", t),
				)
				continue
			}
			// Compare the canonical form: "8:00" parses but never
			// string-equals the zero-padded "08:00".
			canonical := parsed.Format("15:04")
			if canonical != hhmm {
				continue
			}

			key := DedupKey(src.Domain(), date, item.ID, canonical)
			if e.ledger.HasFired(key) {
				continue
			}
			e.ledger.MarkFired(key)

			e.emit(Event{
				CallerLabel: src.CallerLabel(),
				Message:     item.Message,
				Domain:      src.Domain(),
			})
		}
	}
}

// checkAppointment reminds about the nearest future appointment once per
// day when it enters the lookahead window.
func (e *Evaluator) checkAppointment(now time.Time) {
	if e.appointments == nil {
		return
	}

	appt, err := e.appointments.NextAppointment(now)
	if err != nil {
		e.logger.Warn("Appointment lookup failed", zap.Error(err))
		return
	}
	if appt == nil {
		return
	}

	when, err := appt.When(now.Location())
	if err != nil {
		e.logger.Warn("Skipping appointment with malformed date/time",
			zap.String("appointment_id", appt.ID),
			zap.String("date", appt.Date),
			zap.String("time", appt.Time),
		)
		return
	}

	until := when.Sub(now)
	lookahead := time.Duration(e.cfg.AppointmentLookahead) * time.Minute
	if until < 0 || until > lookahead {
		return
	}

	date := now.Format("2006-01-02")
	key := DedupKey(DomainAppointment, date, appt.ID, "daily")
	if e.ledger.HasFired(key) {
		return
	}
	e.ledger.MarkFired(key)

	msg := fmt.Sprintf("Tienes una cita con %s a las %s.", appt.Doctor, appt.Time)
	if appt.Location != "" {
		msg += fmt.Sprintf(" Lugar: %s.", appt.Location)
	}
	if appt.Reason != "" {
		msg += fmt.Sprintf(" Motivo: %s.", appt.Reason)
	}

	e.emit(Event{
		CallerLabel: "Recordatorio de Cita",
		Message:     msg,
		Domain:      DomainAppointment,
	})
}

// checkHydration nudges once per day, during the evening window, while the
// daily goal is unmet.
func (e *Evaluator) checkHydration(now time.Time) {
	if e.hydration == nil {
		return
	}

	hour := now.Hour()
	if hour < e.cfg.HydrationStartHour || hour > e.cfg.HydrationEndHour {
		return
	}

	date := now.Format("2006-01-02")
	count, err := e.hydration.HydrationCount(date)
	if err != nil {
		e.logger.Warn("Hydration lookup failed", zap.Error(err))
		return
	}
	if count >= e.cfg.HydrationGoal {
		return
	}

	key := DedupKey(DomainHydration, date, "daily", "goal")
	if e.ledger.HasFired(key) {
		return
	}
	e.ledger.MarkFired(key)

	e.emit(Event{
		CallerLabel: "Recordatorio de Hidratación",
		Message:     fmt.Sprintf("Recuerda beber agua. Llevas %d de %d vasos hoy.", count, e.cfg.HydrationGoal),
		Domain:      DomainHydration,
	})
}

// emit hands the event to the sink. Events rejected while a call session is
// active are dropped, not queued; reminders are advisory.
func (e *Evaluator) emit(ev Event) {
	metrics.RemindersEmitted.WithLabelValues(ev.Domain).Inc()

	if !e.sink.Trigger(ev) {
		metrics.RemindersDropped.WithLabelValues(ev.Domain).Inc()
		e.logger.Debug("Reminder dropped, call session busy",
			zap.String("domain", ev.Domain),
		)
	}
}
