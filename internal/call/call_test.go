package call

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitalia-app/vitalia/internal/config"
	"github.com/vitalia-app/vitalia/internal/engine"
	apperrors "github.com/vitalia-app/vitalia/internal/errors"
	"github.com/vitalia-app/vitalia/internal/speech"
)

func setupOrchestrator(t *testing.T, autoAnswer bool) (*Orchestrator, *speech.MockNarrator) {
	narrator := speech.NewMockNarrator()
	logger, _ := zap.NewDevelopment()

	orch := NewOrchestrator(narrator, config.SpeechConfig{Language: "es", Rate: 1.0},
		config.EngineConfig{CallEndDelaySeconds: 0, AutoAnswer: autoAnswer}, logger)

	return orch, narrator
}

func medicationEvent(message string) engine.Event {
	return engine.Event{
		CallerLabel: "Recordatorio de Medicamento",
		Message:     message,
		Domain:      engine.DomainMedication,
	}
}

func TestOrchestrator_AutoAnswerNarratesAndEnds(t *testing.T) {
	orch, narrator := setupOrchestrator(t, true)

	ok := orch.Trigger(medicationEvent("Es hora de tomar tu medicamento: Metformina."))
	require.True(t, ok)

	snap := orch.Snapshot()
	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, "Recordatorio de Medicamento", snap.CallerLabel)
	assert.Equal(t, []string{"Es hora de tomar tu medicamento: Metformina."}, narrator.Spoken)

	narrator.FinishAll()

	assert.Eventually(t, func() bool {
		return orch.Snapshot().State == StateEnded
	}, time.Second, 10*time.Millisecond)
}

func TestOrchestrator_DropsEventWhileSessionActive(t *testing.T) {
	orch, _ := setupOrchestrator(t, true)

	require.True(t, orch.Trigger(medicationEvent("primera")))
	assert.False(t, orch.Trigger(medicationEvent("segunda")))

	// State is unchanged: still the first event's session.
	snap := orch.Snapshot()
	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, "primera", snap.Message)
}

func TestOrchestrator_NewSessionAfterEnded(t *testing.T) {
	orch, narrator := setupOrchestrator(t, true)

	require.True(t, orch.Trigger(medicationEvent("primera")))
	require.NoError(t, orch.HangUp())
	assert.Equal(t, StateEnded, orch.Snapshot().State)

	require.True(t, orch.Trigger(medicationEvent("segunda")))
	snap := orch.Snapshot()
	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, "segunda", snap.Message)
	assert.Equal(t, []string{"primera", "segunda"}, narrator.Spoken)
}

func TestSession_HangUpFromIncoming(t *testing.T) {
	orch, narrator := setupOrchestrator(t, false)

	require.True(t, orch.Trigger(medicationEvent("hola")))
	assert.Equal(t, StateIncoming, orch.Snapshot().State)
	assert.Empty(t, narrator.Spoken)

	// Hang-up from Incoming goes straight to Ended, never entering Active.
	require.NoError(t, orch.HangUp())
	assert.Equal(t, StateEnded, orch.Snapshot().State)
	assert.Empty(t, narrator.Spoken)
	assert.Equal(t, 1, narrator.Cancelled)
}

func TestSession_AcceptThenHangUpCancelsNarration(t *testing.T) {
	orch, narrator := setupOrchestrator(t, false)

	require.True(t, orch.Trigger(medicationEvent("hola")))
	require.NoError(t, orch.Accept())
	assert.Equal(t, StateActive, orch.Snapshot().State)
	assert.Len(t, narrator.Spoken, 1)

	require.NoError(t, orch.HangUp())
	assert.Equal(t, StateEnded, orch.Snapshot().State)
	assert.Equal(t, 1, narrator.Cancelled)
}

func TestSession_EndedIsTerminal(t *testing.T) {
	orch, _ := setupOrchestrator(t, false)

	require.True(t, orch.Trigger(medicationEvent("hola")))
	require.NoError(t, orch.HangUp())

	assert.ErrorIs(t, orch.Accept(), apperrors.ErrSessionEnded)
	assert.ErrorIs(t, orch.HangUp(), apperrors.ErrSessionEnded)
	assert.Equal(t, StateEnded, orch.Snapshot().State)
}

func TestSession_NarrationFailureStaysVisual(t *testing.T) {
	orch, narrator := setupOrchestrator(t, true)
	narrator.FailWith(errors.New("no speech backend"))

	require.True(t, orch.Trigger(medicationEvent("hola")))

	// Narration failed immediately; the session must not auto-end.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateActive, orch.Snapshot().State)

	require.NoError(t, orch.HangUp())
	assert.Equal(t, StateEnded, orch.Snapshot().State)
}

func TestOrchestrator_NoSession(t *testing.T) {
	orch, _ := setupOrchestrator(t, false)

	assert.Equal(t, StateIdle, orch.Snapshot().State)
	assert.ErrorIs(t, orch.Accept(), apperrors.ErrNoSession)
	assert.ErrorIs(t, orch.HangUp(), apperrors.ErrNoSession)
}

func TestOrchestrator_TriggerManualAlert(t *testing.T) {
	orch, narrator := setupOrchestrator(t, true)

	ok := orch.TriggerManualAlert("ALERTA ROJA: presión en crisis.", "Monitor de Presión Arterial")
	require.True(t, ok)

	snap := orch.Snapshot()
	assert.Equal(t, "Monitor de Presión Arterial", snap.CallerLabel)
	assert.Equal(t, []string{"ALERTA ROJA: presión en crisis."}, narrator.Spoken)
}
