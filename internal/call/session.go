// Package call presents one reminder or alert as a simulated incoming call
// with speech narration.
package call

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/vitalia-app/vitalia/internal/errors"
	"github.com/vitalia-app/vitalia/internal/metrics"
	"github.com/vitalia-app/vitalia/internal/speech"
)

// State is a call session state. Transitions: Incoming -> Active -> Ended,
// with a direct Incoming -> Ended on hang-up. Ended is terminal.
type State string

const (
	StateIdle     State = "idle" // presentation-only: no session exists
	StateIncoming State = "incoming"
	StateActive   State = "active"
	StateEnded    State = "ended"
)

// Snapshot is the presentation-layer view of a session.
type Snapshot struct {
	State          State  `json:"state"`
	CallerLabel    string `json:"caller_label"`
	Message        string `json:"message"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
}

// Session renders and narrates a single reminder event.
type Session struct {
	mu      sync.Mutex
	state   State
	caller  string
	message string
	elapsed int

	narrator   speech.Narrator
	speechOpts speech.Options
	endDelay   time.Duration
	logger     *zap.Logger

	tickerStop chan struct{}
	endTimer   *time.Timer
}

// NewSession creates a session in the Incoming state.
func NewSession(callerLabel, message string, narrator speech.Narrator, opts speech.Options, endDelay time.Duration, logger *zap.Logger) *Session {
	return &Session{
		state:      StateIncoming,
		caller:     callerLabel,
		message:    message,
		narrator:   narrator,
		speechOpts: opts,
		endDelay:   endDelay,
		logger:     logger,
	}
}

// Accept transitions Incoming -> Active: the elapsed counter starts and the
// message is narrated. Narration is best-effort; a failure leaves a silent
// visual alert that ends only on hang-up.
func (s *Session) Accept() error {
	s.mu.Lock()
	switch s.state {
	case StateActive:
		s.mu.Unlock()
		return nil
	case StateEnded:
		s.mu.Unlock()
		return apperrors.ErrSessionEnded
	}

	s.state = StateActive
	s.tickerStop = make(chan struct{})
	s.mu.Unlock()

	go s.countElapsed()

	done := s.narrator.Speak(context.Background(), s.message, s.speechOpts)
	go func() {
		if err := <-done; err != nil {
			s.logger.Warn("Narration failed, alert stays visual-only", zap.Error(err))
			return
		}
		s.armEndTimer()
	}()

	return nil
}

// HangUp ends the session from any non-terminal state and cancels in-flight
// narration immediately.
func (s *Session) HangUp() error {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return apperrors.ErrSessionEnded
	}
	s.finishLocked()
	s.mu.Unlock()

	s.narrator.CancelAll()
	metrics.SessionsEnded.WithLabelValues("hangup").Inc()
	return nil
}

// countElapsed increments the elapsed counter once per second until the
// session ends.
func (s *Session) countElapsed() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.tickerStop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.elapsed++
			s.mu.Unlock()
		}
	}
}

// armEndTimer schedules the Active -> Ended transition a fixed short delay
// after narration completes.
func (s *Session) armEndTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return
	}
	s.endTimer = time.AfterFunc(s.endDelay, s.endByNarration)
}

func (s *Session) endByNarration() {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return
	}
	s.finishLocked()
	s.mu.Unlock()

	metrics.SessionsEnded.WithLabelValues("narration").Inc()
}

// finishLocked moves to Ended and releases timers. Caller holds s.mu.
func (s *Session) finishLocked() {
	s.state = StateEnded
	if s.tickerStop != nil {
		close(s.tickerStop)
		s.tickerStop = nil
	}
	if s.endTimer != nil {
		s.endTimer.Stop()
		s.endTimer = nil
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ended reports whether the session reached the terminal state.
func (s *Session) Ended() bool {
	return s.State() == StateEnded
}

// Snapshot returns the presentation view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:          s.state,
		CallerLabel:    s.caller,
		Message:        s.message,
		ElapsedSeconds: s.elapsed,
	}
}
