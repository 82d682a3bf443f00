// Package orchestrator wires the voice pipeline together: finalized
// transcripts flow through the router into either the command dispatcher
// or the streaming answer consumer, and all narration funnels into the
// shared speech channel.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/echovision/voice-client/internal/audio"
	"github.com/echovision/voice-client/internal/command"
	"github.com/echovision/voice-client/internal/config"
	"github.com/echovision/voice-client/internal/observability"
	"github.com/echovision/voice-client/internal/readerapi"
	"github.com/echovision/voice-client/internal/recognition"
	"github.com/echovision/voice-client/internal/resilience"
	"github.com/echovision/voice-client/internal/router"
	"github.com/echovision/voice-client/internal/session"
	"github.com/echovision/voice-client/internal/speech"
	"github.com/echovision/voice-client/internal/stream"
)

// Notifier pushes orchestrator events to the presentation surface
type Notifier interface {
	Status(message string)
	MicState(state string)
	LiveTranscript(text string)
	AnswerUpdate(content string)
	OpenFileDialog()
}

// Orchestrator owns the session state and the full command/question
// pipeline for one client.
type Orchestrator struct {
	cfg        *config.Config
	api        *readerapi.Client
	state      *session.State
	narrator   *speech.Narrator
	machine    *recognition.Machine
	dispatcher *command.Dispatcher
	consumer   *stream.Consumer
	notify     Notifier
	logger     zerolog.Logger
}

// New assembles the pipeline. engine may be nil on platforms without
// live transcription; the mic then reports unsupported when toggled.
func New(cfg *config.Config, api *readerapi.Client, sink speech.AudioSink, cues speech.CuePlayer, engine recognition.Engine, notify Notifier) *Orchestrator {
	state := session.New()
	narrator := speech.NewNarrator(api, sink, notify.Status)

	o := &Orchestrator{
		cfg:      cfg,
		api:      api,
		state:    state,
		narrator: narrator,
		notify:   notify,
		logger:   observability.ComponentLogger("orchestrator"),
	}

	o.consumer = stream.NewConsumer(api, narrator, state, cfg.HistoryTurns, cfg.SpeechQueueLen,
		notify.Status, notify.AnswerUpdate)

	o.dispatcher = command.NewDispatcher(api, narrator, state,
		o.consumer.AskQuestion, notify.OpenFileDialog, notify.Status)

	o.machine = recognition.NewMachine(engine, cues,
		audio.StartCue(cfg.CueSampleRate), audio.StopCue(cfg.CueSampleRate),
		cfg.Confirmations(),
		recognition.Callbacks{
			OnFinal:   o.handleFinal,
			OnInterim: notify.LiveTranscript,
			OnState:   func(s recognition.State) { notify.MicState(s.String()) },
			Status:    notify.Status,
		})

	return o
}

// State exposes the session state for read-only presentation
func (o *Orchestrator) State() *session.State {
	return o.state
}

// Startup polls the reader backend's readiness once, with bounded
// retries, to gate the conversational surface. A backend that never
// answers leaves the client usable for later retries; it is not fatal.
func (o *Orchestrator) Startup(ctx context.Context) {
	retryCfg := resilience.RetryConfig{
		MaxAttempts:  o.cfg.StatusPollMaxAttempts,
		InitialDelay: time.Duration(o.cfg.StatusPollBackoff) * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}

	var st *readerapi.Status
	err := resilience.Retry(ctx, retryCfg, func() error {
		var pollErr error
		st, pollErr = o.api.Status(ctx)
		return pollErr
	})
	if err != nil {
		o.logger.Warn().Err(err).Msg("Reader backend not reachable at startup")
		o.state.SetAPIReady(false)
		o.notify.Status("Assistant backend is not ready")
		return
	}

	o.state.SetAPIReady(st.APIReady)
	if st.DocLoaded {
		o.state.SetDocument(st.DocTitle, st.PageCount)
		if st.CurrentPage > 0 {
			page := st.CurrentPage
			o.state.SetPage(&page, nil, "", "")
		}
	}

	o.logger.Info().
		Bool("api_ready", st.APIReady).
		Bool("doc_loaded", st.DocLoaded).
		Msg("Reader backend status")
}

// handleFinal routes one finalized transcript. The recognition machine
// holds the loading state until this returns.
func (o *Orchestrator) handleFinal(ctx context.Context, text string) {
	conversational := o.state.View() == session.ViewConversation
	kind, payload := router.Classify(text, conversational)

	o.logger.Info().
		Str("kind", kind.String()).
		Str("text", payload).
		Msg("Routing finalized transcript")

	switch kind {
	case router.KindQuestion:
		o.consumer.AskQuestion(ctx, payload)
	default:
		o.dispatcher.Dispatch(ctx, payload)
	}
}

// ToggleMic flips the recognition machine between idle and active
func (o *Orchestrator) ToggleMic(ctx context.Context) error {
	err := o.machine.Toggle(ctx)
	if errors.Is(err, recognition.ErrUnsupportedPlatform) {
		o.notify.Status("Voice input is not available on this platform")
		observability.RecordRecognitionError("unsupported")
	}
	return err
}

// MicState returns the recognition machine's current state
func (o *Orchestrator) MicState() recognition.State {
	return o.machine.State()
}

// SendAudio feeds microphone audio into the active recognition session
func (o *Orchestrator) SendAudio(data []byte) error {
	return o.machine.SendAudio(data)
}

// StopSpeech cancels current narration and drops any in-flight answer
// session's queued fragments.
func (o *Orchestrator) StopSpeech() {
	o.consumer.Cancel()
	o.narrator.Stop()
}

// Speak narrates arbitrary text through the shared channel
func (o *Orchestrator) Speak(ctx context.Context, text string) {
	o.narrator.Speak(ctx, text)
}

// AskQuestion submits a typed (non-voice) question
func (o *Orchestrator) AskQuestion(ctx context.Context, question string) {
	o.consumer.AskQuestion(ctx, question)
}

// DispatchCommand submits a typed (non-voice) command
func (o *Orchestrator) DispatchCommand(ctx context.Context, text string) {
	o.dispatcher.Dispatch(ctx, text)
}

// Shutdown stops listening and narration for process exit
func (o *Orchestrator) Shutdown() {
	o.machine.Stop()
	o.StopSpeech()
}
