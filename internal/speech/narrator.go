package speech

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/echovision/voice-client/internal/observability"
)

// Narrator owns the shared playback channel. Every Speak call preempts
// whatever is currently sounding: the previous payload is stopped before
// the new one starts, so no two fragments ever overlap. Callers that need
// ordered narration of multiple fragments serialize their own calls (see
// SessionQueue).
type Narrator struct {
	synth  Synthesizer
	sink   AudioSink
	status StatusFunc
	logger zerolog.Logger

	mu         sync.Mutex
	gen        uint64             // Bumped by every Speak; stale generations never play
	playCancel context.CancelFunc // Cancels the playback context of the generation sounding now

	playMu sync.Mutex // Held for the duration of one playback
}

// NewNarrator creates a narrator around the given synthesizer and sink.
// status receives soft warnings (synthesis failures); it may be nil.
func NewNarrator(synth Synthesizer, sink AudioSink, status StatusFunc) *Narrator {
	if status == nil {
		status = func(string) {}
	}
	return &Narrator{
		synth:  synth,
		sink:   sink,
		status: status,
		logger: observability.ComponentLogger("narrator"),
	}
}

// Speak narrates text through the shared channel, preempting any current
// playback first. Empty text is a pure cancellation: stop whatever is
// sounding and return. Speak returns only after the playback resource has
// been released again, so a sequential caller gets strict FIFO narration.
//
// Synthesis failure is a soft degradation: it is reported through the
// status channel and Speak returns nil with no audio produced.
func (n *Narrator) Speak(ctx context.Context, text string) error {
	myGen := n.claim()

	if text == "" {
		return nil
	}

	audio, err := n.synth.Synthesize(ctx, text)
	if err != nil {
		n.logger.Warn().Err(err).Msg("Synthesis failed, skipping narration")
		observability.RecordNarration("synthesis_error")
		n.status("Audio temporarily unavailable")
		return nil
	}

	if n.stale(myGen) {
		observability.RecordNarrationPreemption()
		return nil
	}

	// Serialize against the previous fragment's playback. Stop in claim()
	// already asked it to end; this wait is for its Play call to return
	// and release the resource.
	n.playMu.Lock()
	defer n.playMu.Unlock()

	// Register this generation's playback context before the sink sees
	// any audio. A claim landing from here on cancels playCtx, so a
	// preempting Stop always reaches this playback even when the sink's
	// own Stop raced ahead of Play.
	n.mu.Lock()
	if n.gen != myGen {
		n.mu.Unlock()
		observability.RecordNarrationPreemption()
		return nil
	}
	playCtx, cancel := context.WithCancel(ctx)
	n.playCancel = cancel
	n.mu.Unlock()
	defer cancel()

	if err := n.sink.Play(playCtx, audio); err != nil {
		if errors.Is(err, context.Canceled) {
			observability.RecordNarrationPreemption()
			return nil
		}
		n.logger.Warn().Err(err).Msg("Playback ended with error")
		observability.RecordNarration("playback_error")
		return nil
	}

	observability.RecordNarration("played")
	return nil
}

// Stop cancels any current playback without starting a new one.
// Equivalent to Speak with empty text.
func (n *Narrator) Stop() {
	n.claim()
}

// claim bumps the generation, cancels the playing generation's context
// and stops current playback, taking ownership of the channel for this
// Speak call.
func (n *Narrator) claim() uint64 {
	n.mu.Lock()
	n.gen++
	myGen := n.gen
	cancel := n.playCancel
	n.playCancel = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	n.sink.Stop()
	return myGen
}

func (n *Narrator) stale(myGen uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.gen != myGen
}
