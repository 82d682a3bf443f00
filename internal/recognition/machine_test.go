package recognition

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeEngine is a scriptable recognition engine for tests
type fakeEngine struct {
	mu       sync.Mutex
	results  chan Result
	started  int
	stopped  int
	aborted  int
	startErr error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{results: make(chan Result, 10)}
}

func (f *fakeEngine) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	return nil
}

func (f *fakeEngine) SendAudio(data []byte) error { return nil }
func (f *fakeEngine) Results() <-chan Result      { return f.results }

func (f *fakeEngine) Abort() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted++
}

func (f *fakeEngine) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) counts() (started, stopped, aborted int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, f.stopped, f.aborted
}

// fakeCues records cue playback
type fakeCues struct {
	mu    sync.Mutex
	plays [][]byte
}

func (f *fakeCues) PlayCue(audio []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, audio)
}

func (f *fakeCues) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.plays)
}

var testConfirmations = []string{"yes", "yeah", "no", "cancel", "stop", "proceed"}

func waitForState(t *testing.T, m *Machine, want State) {
	t.Helper()
	deadline := time.After(time.Second)
	for m.State() != want {
		select {
		case <-deadline:
			t.Fatalf("Timed out waiting for state %v, at %v", want, m.State())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestMachine_NilEngineUnsupported(t *testing.T) {
	m := NewMachine(nil, nil, nil, nil, testConfirmations, Callbacks{})

	err := m.Start(context.Background())
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("Expected ErrUnsupportedPlatform, got %v", err)
	}
	if m.State() != StateIdle {
		t.Errorf("Machine must stay idle after unsupported start, got %v", m.State())
	}
}

func TestMachine_StartStopLifecycle(t *testing.T) {
	engine := newFakeEngine()
	cues := &fakeCues{}
	m := NewMachine(engine, cues, []byte{1}, []byte{2}, testConfirmations, Callbacks{})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if m.State() != StateActive {
		t.Errorf("Expected active state, got %v", m.State())
	}
	if cues.count() != 1 {
		t.Errorf("Expected start cue, got %d cues", cues.count())
	}

	m.Stop()
	if m.State() != StateIdle {
		t.Errorf("Expected idle state after stop, got %v", m.State())
	}
	if cues.count() != 2 {
		t.Errorf("Expected stop cue, got %d cues", cues.count())
	}
}

func TestMachine_RestartAbortsPriorSession(t *testing.T) {
	engine := newFakeEngine()
	m := NewMachine(engine, nil, nil, nil, testConfirmations, Callbacks{})

	m.Start(context.Background())
	m.Start(context.Background())

	started, _, aborted := engine.counts()
	if started != 2 {
		t.Errorf("Expected 2 engine starts, got %d", started)
	}
	if aborted != 1 {
		t.Errorf("Expected prior session aborted, got %d aborts", aborted)
	}
}

func TestMachine_FinalRoutesAndSettles(t *testing.T) {
	engine := newFakeEngine()

	var finalMu sync.Mutex
	var finals []string
	settle := make(chan struct{})

	m := NewMachine(engine, nil, nil, nil, testConfirmations, Callbacks{
		OnFinal: func(ctx context.Context, text string) {
			finalMu.Lock()
			finals = append(finals, text)
			finalMu.Unlock()
			<-settle // Simulate downstream work in flight
		},
	})

	m.Start(context.Background())
	engine.results <- Result{Text: "  next page ", Final: true}

	waitForState(t, m, StateLoading)

	finalMu.Lock()
	if len(finals) != 1 || finals[0] != "next page" {
		t.Errorf("Expected normalized final 'next page', got %v", finals)
	}
	finalMu.Unlock()

	close(settle)
	waitForState(t, m, StateIdle)
}

func TestMachine_StaleSettleDoesNotClobberNewSession(t *testing.T) {
	engine := newFakeEngine()
	settle := make(chan struct{})

	m := NewMachine(engine, nil, nil, nil, testConfirmations, Callbacks{
		OnFinal: func(ctx context.Context, text string) { <-settle },
	})

	m.Start(context.Background())
	engine.results <- Result{Text: "next page", Final: true}
	waitForState(t, m, StateLoading)

	// The user toggles the mic off and back on while the first final is
	// still being processed downstream
	m.Stop()
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	waitForState(t, m, StateActive)

	// The old session finishes; its idle reset must not touch the new one
	close(settle)
	time.Sleep(20 * time.Millisecond)

	if m.State() != StateActive {
		t.Errorf("Old session's cleanup clobbered the new session, got %v", m.State())
	}
}

func TestMachine_ConfirmationWordsDiscarded(t *testing.T) {
	cases := []string{"yes", "Yes", "YEAH.", "no", "Cancel", "stop.", "Proceed"}

	for _, word := range cases {
		t.Run(word, func(t *testing.T) {
			engine := newFakeEngine()
			routed := false
			m := NewMachine(engine, nil, nil, nil, testConfirmations, Callbacks{
				OnFinal: func(ctx context.Context, text string) { routed = true },
			})

			m.Start(context.Background())
			engine.results <- Result{Text: word, Final: true}

			waitForState(t, m, StateIdle)
			if routed {
				t.Errorf("Confirmation word %q should have been discarded, not routed", word)
			}
		})
	}
}

func TestMachine_NonConfirmationNotDiscarded(t *testing.T) {
	engine := newFakeEngine()
	routed := make(chan string, 1)
	m := NewMachine(engine, nil, nil, nil, testConfirmations, Callbacks{
		OnFinal: func(ctx context.Context, text string) { routed <- text },
	})

	m.Start(context.Background())
	engine.results <- Result{Text: "yes please continue", Final: true}

	select {
	case text := <-routed:
		if text != "yes please continue" {
			t.Errorf("Unexpected routed text: %q", text)
		}
	case <-time.After(time.Second):
		t.Fatal("Multi-word phrase starting with a confirmation word must still be routed")
	}
}

func TestMachine_InterimUpdatesLiveTranscript(t *testing.T) {
	engine := newFakeEngine()
	m := NewMachine(engine, nil, nil, nil, testConfirmations, Callbacks{})

	m.Start(context.Background())
	engine.results <- Result{Text: "next pa"}

	deadline := time.After(time.Second)
	for m.LiveTranscript() != "next pa" {
		select {
		case <-deadline:
			t.Fatalf("Live transcript never updated, got %q", m.LiveTranscript())
		case <-time.After(time.Millisecond):
		}
	}
	if m.State() != StateActive {
		t.Errorf("Interim result must not change state, got %v", m.State())
	}
}

func TestMachine_BenignErrorsSwallowed(t *testing.T) {
	engine := newFakeEngine()
	var statuses []string
	m := NewMachine(engine, nil, nil, nil, testConfirmations, Callbacks{
		Status: func(msg string) { statuses = append(statuses, msg) },
	})

	m.Start(context.Background())
	engine.results <- Result{Err: errors.New("no-speech detected")}
	engine.results <- Result{Err: errors.New("session aborted")}

	time.Sleep(20 * time.Millisecond)
	if m.State() != StateActive {
		t.Errorf("Benign errors must not change state, got %v", m.State())
	}
	if len(statuses) != 0 {
		t.Errorf("Benign errors must not surface, got %v", statuses)
	}
}

func TestMachine_EngineErrorReturnsToIdle(t *testing.T) {
	engine := newFakeEngine()
	statusCh := make(chan string, 1)
	m := NewMachine(engine, nil, nil, nil, testConfirmations, Callbacks{
		Status: func(msg string) { statusCh <- msg },
	})

	m.Start(context.Background())
	engine.results <- Result{Err: errors.New("network dropped")}

	select {
	case <-statusCh:
	case <-time.After(time.Second):
		t.Fatal("Engine error never surfaced via status")
	}
	waitForState(t, m, StateIdle)
}

func TestMachine_Toggle(t *testing.T) {
	engine := newFakeEngine()
	m := NewMachine(engine, nil, nil, nil, testConfirmations, Callbacks{})

	m.Toggle(context.Background())
	if m.State() != StateActive {
		t.Errorf("Toggle from idle should activate, got %v", m.State())
	}

	m.Toggle(context.Background())
	if m.State() != StateIdle {
		t.Errorf("Toggle from active should idle, got %v", m.State())
	}
}
