package recognition

import (
	"context"
	"fmt"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/echovision/voice-client/internal/config"
	"github.com/echovision/voice-client/internal/observability"
	"github.com/echovision/voice-client/internal/resilience"
)

// deepgramCallback implements the SDK's LiveMessageCallback interface.
// It embeds the default handler and overrides only message and error
// delivery.
type deepgramCallback struct {
	*websocketv1api.DefaultCallbackHandler
	onMessage func(*msginterfaces.MessageResponse)
	onError   func(*msginterfaces.ErrorResponse) error
}

func (c *deepgramCallback) Message(msg *msginterfaces.MessageResponse) error {
	c.onMessage(msg)
	return nil
}

func (c *deepgramCallback) Error(errResp *msginterfaces.ErrorResponse) error {
	if c.onError != nil {
		return c.onError(errResp)
	}
	return c.DefaultCallbackHandler.Error(errResp)
}

// DeepgramEngine implements Engine over Deepgram's live transcription
// websocket. The connection is established per session and guarded by a
// reconnector, since the socket drops on long silences.
type DeepgramEngine struct {
	cfg         *config.Config
	results     chan Result
	reconnector *resilience.Reconnector
	logger      zerolog.Logger

	mu       sync.RWMutex
	client   *listenClient.WSCallback
	active   bool
	aborting bool
	cancel   context.CancelFunc
}

// NewDeepgramEngine creates a Deepgram live transcription engine.
// Returns nil when no API key is configured, which the state machine
// reports as an unsupported platform.
func NewDeepgramEngine(cfg *config.Config) *DeepgramEngine {
	if cfg.DeepgramAPIKey == "" {
		return nil
	}

	reconnectCfg := resilience.ReconnectConfig{
		MaxAttempts:  cfg.ReconnectMaxAttempts,
		InitialDelay: time.Duration(cfg.ReconnectBackoff) * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	logger := observability.ComponentLogger("deepgram")

	return &DeepgramEngine{
		cfg:         cfg,
		results:     make(chan Result, 100),
		reconnector: resilience.NewReconnector("deepgram", reconnectCfg, logger),
		logger:      logger,
	}
}

// Start opens a fresh live transcription session
func (d *DeepgramEngine) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.active {
		d.mu.Unlock()
		return fmt.Errorf("deepgram engine is already active")
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.aborting = false
	d.mu.Unlock()

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.cfg.DeepgramModel,
		Language:       d.cfg.DeepgramLanguage,
		Punctuate:      true,
		InterimResults: true,
		UtteranceEndMs: "1000",
		VadEvents:      true,
		Encoding:       "linear16",
		Channels:       1,
		SampleRate:     d.cfg.MicSampleRate,
	}

	callback := &deepgramCallback{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		onMessage:              d.handleMessage,
		onError:                d.handleError,
	}

	err := d.reconnector.Connect(sessionCtx, func() error {
		client, err := listenClient.NewWSUsingCallback(
			sessionCtx,
			d.cfg.DeepgramAPIKey,
			nil, // ClientOptions: defaults
			tOptions,
			callback,
		)
		if err != nil {
			return fmt.Errorf("failed to create deepgram client: %w", err)
		}

		d.mu.Lock()
		d.client = client
		d.active = true
		d.mu.Unlock()
		return nil
	})
	if err != nil {
		cancel()
		return err
	}

	d.logger.Info().
		Str("model", d.cfg.DeepgramModel).
		Str("language", d.cfg.DeepgramLanguage).
		Msg("Live transcription session started")
	return nil
}

func (d *DeepgramEngine) handleMessage(msg *msginterfaces.MessageResponse) {
	if msg == nil {
		return
	}

	switch msg.Type {
	case "Results", "Message":
		if len(msg.Channel.Alternatives) == 0 {
			return
		}
		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" {
			return
		}

		d.mu.RLock()
		aborting := d.aborting
		d.mu.RUnlock()
		if aborting {
			return // Session was abandoned; drop its transcripts
		}

		d.emit(Result{Text: alt.Transcript, Final: msg.IsFinal})

	case "SpeechStarted", "UtteranceEnd", "Metadata":
		d.logger.Debug().Str("type", msg.Type).Msg("Deepgram event")

	default:
		d.logger.Debug().Str("type", msg.Type).Msg("Unknown deepgram message type")
	}
}

func (d *DeepgramEngine) handleError(errResp *msginterfaces.ErrorResponse) error {
	d.logger.Warn().Interface("error", errResp).Msg("Deepgram error")
	d.reconnector.MarkDisconnected()
	d.emit(Result{Err: fmt.Errorf("deepgram error: %+v", errResp)})

	d.mu.Lock()
	d.active = false
	d.mu.Unlock()
	return nil
}

func (d *DeepgramEngine) emit(r Result) {
	select {
	case d.results <- r:
	default:
		d.logger.Warn().Msg("Result channel full, dropping transcription")
	}
}

// SendAudio forwards raw linear16 audio to the live session
func (d *DeepgramEngine) SendAudio(data []byte) error {
	d.mu.RLock()
	active := d.active
	client := d.client
	d.mu.RUnlock()

	if !active || client == nil {
		return fmt.Errorf("deepgram engine is not active")
	}

	if _, err := client.Write(data); err != nil {
		d.reconnector.MarkDisconnected()
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

// Results delivers interim/final transcripts and errors
func (d *DeepgramEngine) Results() <-chan Result {
	return d.results
}

// Abort abandons the current session; transcripts still in flight for it
// are discarded rather than emitted.
func (d *DeepgramEngine) Abort() {
	d.mu.Lock()
	d.aborting = true
	d.mu.Unlock()

	if err := d.Stop(); err != nil {
		d.logger.Debug().Err(err).Msg("Stop during abort failed")
	}
}

// Stop finishes the current session gracefully
func (d *DeepgramEngine) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	d.client.Finish()
	d.active = false
	if d.cancel != nil {
		d.cancel()
	}
	return nil
}

// Close tears down the engine. The results channel stays open briefly so
// pending reads can drain.
func (d *DeepgramEngine) Close() error {
	if err := d.Stop(); err != nil {
		return err
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		close(d.results)
	}()
	return nil
}
