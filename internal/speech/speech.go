// Package speech wraps the host's text-to-speech capability behind a small
// Narrator interface so callers can be tested without an audio backend.
package speech

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/vitalia-app/vitalia/internal/errors"
)

// Options control voice selection for one utterance.
type Options struct {
	Language string  // BCP-47-ish language tag, e.g. "es"
	Voice    string  // backend-specific voice name, optional
	Rate     float64 // 1.0 = normal
	Pitch    float64 // 1.0 = normal
}

// Narrator synthesizes speech. Speak is asynchronous: the returned channel
// receives exactly one value when narration finishes (nil) or fails.
type Narrator interface {
	Name() string
	IsReady() bool
	Speak(ctx context.Context, text string, opts Options) <-chan error
	CancelAll()
}

// EspeakNarrator speaks through an espeak-ng/espeak/say subprocess.
type EspeakNarrator struct {
	binary string
	logger *zap.Logger

	mu      sync.Mutex
	cancels map[int]context.CancelFunc
	nextID  int
}

// NewEspeakNarrator locates a speech binary on the host. The narrator is
// still usable when none is found; Speak then fails immediately and callers
// degrade to a silent visual alert.
func NewEspeakNarrator(logger *zap.Logger) *EspeakNarrator {
	n := &EspeakNarrator{
		logger:  logger,
		cancels: make(map[int]context.CancelFunc),
	}
	n.binary = findSpeechBinary()
	if n.binary == "" {
		logger.Warn("No speech binary found, narration disabled")
	}
	return n
}

func findSpeechBinary() string {
	candidates := []string{
		"espeak-ng",
		"espeak",
		"say", // macOS
		"/usr/local/bin/espeak-ng",
		"/usr/bin/espeak-ng",
	}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path
		}
	}

	return ""
}

// Name returns the provider name
func (n *EspeakNarrator) Name() string {
	return "espeak"
}

// IsReady returns true if a speech binary was found
func (n *EspeakNarrator) IsReady() bool {
	return n.binary != ""
}

// Speak synthesizes the text asynchronously.
func (n *EspeakNarrator) Speak(ctx context.Context, text string, opts Options) <-chan error {
	done := make(chan error, 1)

	if n.binary == "" {
		done <- apperrors.ErrNarrationUnavailable
		return done
	}

	speakCtx, cancel := context.WithCancel(ctx)

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.cancels[id] = cancel
	n.mu.Unlock()

	go func() {
		defer func() {
			n.mu.Lock()
			delete(n.cancels, id)
			n.mu.Unlock()
			cancel()
		}()

		cmd := exec.CommandContext(speakCtx, n.binary, n.buildArgs(text, opts)...)
		if err := cmd.Run(); err != nil {
			if speakCtx.Err() != nil {
				done <- speakCtx.Err()
				return
			}
			done <- fmt.Errorf("speech synthesis failed: %w", err)
			return
		}
		done <- nil
	}()

	return done
}

// buildArgs maps Options onto the discovered binary's flags.
func (n *EspeakNarrator) buildArgs(text string, opts Options) []string {
	if isSayBinary(n.binary) {
		args := []string{}
		if opts.Voice != "" {
			args = append(args, "-v", opts.Voice)
		}
		if opts.Rate > 0 && opts.Rate != 1.0 {
			args = append(args, "-r", fmt.Sprintf("%.0f", 175*opts.Rate))
		}
		return append(args, text)
	}

	args := []string{}
	voice := opts.Voice
	if voice == "" && opts.Language != "" {
		voice = opts.Language
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	if opts.Rate > 0 && opts.Rate != 1.0 {
		args = append(args, "-s", fmt.Sprintf("%.0f", 175*opts.Rate))
	}
	if opts.Pitch > 0 && opts.Pitch != 1.0 {
		pitch := 50 * opts.Pitch
		if pitch > 99 {
			pitch = 99
		}
		args = append(args, "-p", fmt.Sprintf("%.0f", pitch))
	}
	return append(args, text)
}

func isSayBinary(path string) bool {
	return len(path) >= 3 && path[len(path)-3:] == "say"
}

// CancelAll stops every in-flight narration immediately.
func (n *EspeakNarrator) CancelAll() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, cancel := range n.cancels {
		cancel()
		delete(n.cancels, id)
	}
}

// MockNarrator records utterances for tests. Narration completes only when
// the test calls FinishAll, so state transitions can be observed mid-flight.
type MockNarrator struct {
	mu        sync.Mutex
	Spoken    []string
	Cancelled int
	pending   []chan error
	failWith  error
}

// NewMockNarrator creates a mock narrator
func NewMockNarrator() *MockNarrator {
	return &MockNarrator{}
}

// FailWith makes subsequent Speak calls complete immediately with err.
func (m *MockNarrator) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Name returns the provider name
func (m *MockNarrator) Name() string { return "mock" }

// IsReady returns true
func (m *MockNarrator) IsReady() bool { return true }

// Speak records the utterance
func (m *MockNarrator) Speak(ctx context.Context, text string, opts Options) <-chan error {
	m.mu.Lock()
	defer m.mu.Unlock()

	done := make(chan error, 1)
	m.Spoken = append(m.Spoken, text)
	if m.failWith != nil {
		done <- m.failWith
		return done
	}
	m.pending = append(m.pending, done)
	return done
}

// FinishAll completes every pending utterance successfully.
func (m *MockNarrator) FinishAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, done := range m.pending {
		done <- nil
	}
	m.pending = nil
}

// CancelAll counts cancellations and drops pending utterances.
func (m *MockNarrator) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Cancelled++
	for _, done := range m.pending {
		done <- context.Canceled
	}
	m.pending = nil
}
