package recognition

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/echovision/voice-client/internal/observability"
	"github.com/echovision/voice-client/internal/speech"
)

// Callbacks are the machine's outbound notifications. OnFinal receives a
// normalized finalized transcript and runs until the downstream work
// settles; the machine stays in the loading state for its duration. All
// callbacks may be nil.
type Callbacks struct {
	OnFinal   func(ctx context.Context, text string)
	OnInterim func(text string)
	OnState   func(State)
	Status    speech.StatusFunc
}

// Machine wraps a recognition engine and manages the idle/active/loading
// lifecycle. A nil engine means the platform has no live transcription;
// Start then fails with ErrUnsupportedPlatform.
type Machine struct {
	engine        Engine
	cues          speech.CuePlayer
	startCue      []byte
	stopCue       []byte
	confirmations map[string]struct{}
	callbacks     Callbacks
	logger        zerolog.Logger

	mu             sync.Mutex
	state          State
	sessionGen     uint64
	sessionCancel  context.CancelFunc
	liveTranscript string
}

// NewMachine creates a recognition state machine. confirmations is the
// word list whose exact matches are discarded instead of routed (leaked
// acknowledgements like "yes" or "stop").
func NewMachine(engine Engine, cues speech.CuePlayer, startCue, stopCue []byte, confirmations []string, callbacks Callbacks) *Machine {
	confirm := make(map[string]struct{}, len(confirmations))
	for _, w := range confirmations {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			confirm[w] = struct{}{}
		}
	}

	return &Machine{
		engine:        engine,
		cues:          cues,
		startCue:      startCue,
		stopCue:       stopCue,
		confirmations: confirm,
		callbacks:     callbacks,
		logger:        observability.ComponentLogger("recognition"),
		state:         StateIdle,
	}
}

// State returns the current lifecycle state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LiveTranscript returns the current interim transcript buffer
func (m *Machine) LiveTranscript() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveTranscript
}

// Start begins listening. An already-active machine first aborts its
// in-flight session so stale engine callbacks cannot leak into the new
// one. Without an engine it returns ErrUnsupportedPlatform and stays idle.
func (m *Machine) Start(ctx context.Context) error {
	if m.engine == nil {
		m.logger.Warn().Msg("No recognition engine available")
		return ErrUnsupportedPlatform
	}

	m.mu.Lock()
	if m.state == StateActive {
		// Fresh state: kill the previous session before starting anew
		if m.sessionCancel != nil {
			m.sessionCancel()
		}
		m.mu.Unlock()
		m.engine.Abort()
		m.mu.Lock()
	}

	m.sessionGen++
	gen := m.sessionGen
	sessionCtx, cancel := context.WithCancel(ctx)
	m.sessionCancel = cancel
	m.liveTranscript = ""
	m.mu.Unlock()

	if err := m.engine.Start(sessionCtx); err != nil {
		cancel()
		return err
	}

	m.setState(StateActive)
	m.playCue(m.startCue)

	go m.pump(sessionCtx, gen)
	return nil
}

// Stop ends listening and returns the machine to idle
func (m *Machine) Stop() {
	m.mu.Lock()
	if m.state == StateIdle {
		m.mu.Unlock()
		return
	}
	if m.sessionCancel != nil {
		m.sessionCancel()
	}
	m.liveTranscript = ""
	m.mu.Unlock()

	if m.engine != nil {
		if err := m.engine.Stop(); err != nil {
			m.logger.Warn().Err(err).Msg("Engine stop failed")
		}
	}

	m.setState(StateIdle)
	m.playCue(m.stopCue)
}

// Toggle flips between listening and idle. It is the machine's binding
// for the global toggle control.
func (m *Machine) Toggle(ctx context.Context) error {
	if m.State() == StateIdle {
		return m.Start(ctx)
	}
	m.Stop()
	return nil
}

// SendAudio forwards microphone audio to the active session
func (m *Machine) SendAudio(data []byte) error {
	m.mu.Lock()
	active := m.state == StateActive
	m.mu.Unlock()

	if !active || m.engine == nil {
		return nil // Audio outside an active session is dropped
	}
	return m.engine.SendAudio(data)
}

// pump consumes engine results for one session until the session ends
func (m *Machine) pump(ctx context.Context, gen uint64) {
	results := m.engine.Results()

	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-results:
			if !ok {
				return
			}
			if !m.currentSession(gen) {
				continue // Stale callback from an aborted session
			}

			switch {
			case r.Err != nil:
				m.handleError(r.Err)
			case r.Final:
				m.handleFinal(ctx, gen, r.Text)
				return // One final ends the session
			default:
				m.handleInterim(r.Text)
			}
		}
	}
}

func (m *Machine) handleInterim(text string) {
	m.mu.Lock()
	m.liveTranscript = text
	m.mu.Unlock()

	if m.callbacks.OnInterim != nil {
		m.callbacks.OnInterim(text)
	}
}

func (m *Machine) handleFinal(ctx context.Context, gen uint64, text string) {
	if err := m.engine.Stop(); err != nil {
		m.logger.Warn().Err(err).Msg("Engine stop after final failed")
	}

	normalized := strings.TrimSpace(text)
	observability.RecordRecognitionFinal()

	if normalized == "" || m.isConfirmation(normalized) {
		m.logger.Debug().Str("text", normalized).Msg("Discarding confirmation word")
		observability.RecordRecognitionDiscard()
		m.settle(gen)
		return
	}

	m.setState(StateLoading)

	go func() {
		// The machine always returns to a safe resting state, even if
		// downstream processing panics or errors internally
		defer m.settle(gen)

		if m.callbacks.OnFinal != nil {
			m.callbacks.OnFinal(ctx, normalized)
		}
	}()
}

func (m *Machine) handleError(err error) {
	if isBenign(err) {
		m.logger.Debug().Err(err).Msg("Ignoring benign recognition error")
		return
	}

	m.logger.Error().Err(err).Msg("Recognition error")
	observability.RecordRecognitionError("engine")
	if m.callbacks.Status != nil {
		m.callbacks.Status("Speech recognition error: " + err.Error())
	}
	m.setState(StateIdle)
}

// isConfirmation reports whether text exactly matches the confirmation
// word list, case-insensitive with an optional trailing period.
func (m *Machine) isConfirmation(text string) bool {
	w := strings.ToLower(strings.TrimSpace(text))
	w = strings.TrimRight(w, ".")
	_, ok := m.confirmations[w]
	return ok
}

// isBenign reports whether an engine error is expected noise: no speech
// detected, or a session we aborted ourselves.
func isBenign(err error) bool {
	if err == nil {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no-speech") ||
		strings.Contains(msg, "no speech") ||
		strings.Contains(msg, "aborted")
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	m.mu.Unlock()

	if m.callbacks.OnState != nil {
		m.callbacks.OnState(s)
	}
}

// settle returns the machine to idle after gen's final transcript has
// been fully processed. If a newer session started in the meantime the
// reset belongs to it, not us, so the call is a no-op. The generation
// check and the transition share one critical section so a session
// starting in between cannot be clobbered.
func (m *Machine) settle(gen uint64) {
	m.mu.Lock()
	if m.sessionGen != gen || m.state == StateIdle {
		m.mu.Unlock()
		return
	}
	m.state = StateIdle
	m.mu.Unlock()

	if m.callbacks.OnState != nil {
		m.callbacks.OnState(StateIdle)
	}
}

func (m *Machine) currentSession(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionGen == gen
}

func (m *Machine) playCue(cue []byte) {
	if m.cues != nil && len(cue) > 0 {
		m.cues.PlayCue(cue)
	}
}
