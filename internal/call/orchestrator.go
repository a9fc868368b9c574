package call

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitalia-app/vitalia/internal/config"
	"github.com/vitalia-app/vitalia/internal/engine"
	apperrors "github.com/vitalia-app/vitalia/internal/errors"
	"github.com/vitalia-app/vitalia/internal/metrics"
	"github.com/vitalia-app/vitalia/internal/speech"
)

// DomainManual labels classifier-driven alerts triggered by feature screens.
const DomainManual = "manual"

// Orchestrator owns the single active call session. New events arriving
// while a session is Incoming or Active are dropped, not queued.
type Orchestrator struct {
	narrator   speech.Narrator
	speechOpts speech.Options
	endDelay   time.Duration
	autoAnswer bool
	logger     *zap.Logger

	mu      sync.Mutex
	current *Session
}

// NewOrchestrator creates the orchestrator from the engine and speech
// configuration.
func NewOrchestrator(narrator speech.Narrator, speechCfg config.SpeechConfig, engineCfg config.EngineConfig, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		narrator: narrator,
		speechOpts: speech.Options{
			Language: speechCfg.Language,
			Voice:    speechCfg.Voice,
			Rate:     speechCfg.Rate,
			Pitch:    speechCfg.Pitch,
		},
		endDelay:   time.Duration(engineCfg.CallEndDelaySeconds) * time.Second,
		autoAnswer: engineCfg.AutoAnswer,
		logger:     logger,
	}
}

// Trigger starts a session for the event, or reports false when one is
// already active. Implements engine.Sink.
func (o *Orchestrator) Trigger(ev engine.Event) bool {
	o.mu.Lock()
	if o.current != nil && !o.current.Ended() {
		o.mu.Unlock()
		return false
	}

	session := NewSession(ev.CallerLabel, ev.Message, o.narrator, o.speechOpts, o.endDelay, o.logger)
	o.current = session
	o.mu.Unlock()

	metrics.SessionsStarted.Inc()
	o.logger.Info("Call session started",
		zap.String("domain", ev.Domain),
		zap.String("caller", ev.CallerLabel),
	)

	if o.autoAnswer {
		session.Accept() //nolint:errcheck // fresh session, cannot be ended
	}
	return true
}

// TriggerManualAlert is the trigger surface for feature screens (blood
// pressure entry, glucose entry).
func (o *Orchestrator) TriggerManualAlert(message, callerLabel string) bool {
	return o.Trigger(engine.Event{
		CallerLabel: callerLabel,
		Message:     message,
		Domain:      DomainManual,
	})
}

// Accept answers the current incoming session.
func (o *Orchestrator) Accept() error {
	session := o.session()
	if session == nil {
		return apperrors.ErrNoSession
	}
	return session.Accept()
}

// HangUp ends the current session.
func (o *Orchestrator) HangUp() error {
	session := o.session()
	if session == nil {
		return apperrors.ErrNoSession
	}
	return session.HangUp()
}

// Snapshot returns the current session view, or an idle snapshot when no
// session exists.
func (o *Orchestrator) Snapshot() Snapshot {
	session := o.session()
	if session == nil {
		return Snapshot{State: StateIdle}
	}
	return session.Snapshot()
}

func (o *Orchestrator) session() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}
