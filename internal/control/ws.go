// Package control is the websocket surface a thin UI binds to: it sends
// mic audio and control events in, and receives narration audio, live
// transcripts, and state changes out. The global mic-toggle shortcut in
// the UI maps to a single toggle_mic event here.
package control

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/echovision/voice-client/internal/audio"
	"github.com/echovision/voice-client/internal/config"
	"github.com/echovision/voice-client/internal/observability"
	"github.com/echovision/voice-client/internal/orchestrator"
	"github.com/echovision/voice-client/internal/readerapi"
	"github.com/echovision/voice-client/internal/recognition"
	"github.com/echovision/voice-client/internal/resilience"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Local control surface; the UI runs on the same host
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// inboundMessage is one event from the UI
type inboundMessage struct {
	Event    string        `json:"event"`
	Text     string        `json:"text,omitempty"`
	Question string        `json:"question,omitempty"`
	Media    *inboundMedia `json:"media,omitempty"`
}

// inboundMedia carries one base64-encoded chunk of mic audio
type inboundMedia struct {
	Payload string `json:"payload"`
}

// outboundMessage is one event to the UI
type outboundMessage struct {
	Event   string `json:"event"`
	State   string `json:"state,omitempty"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
	Audio   string `json:"audio,omitempty"` // Base64-encoded payload
}

// clientSession is one connected UI. It doubles as the orchestrator's
// audio sink (narration plays in the UI, which acks with playback_ended)
// and its event notifier.
type clientSession struct {
	conn *websocket.Conn
	cfg  *config.Config
	orch *orchestrator.Orchestrator

	writeMu sync.Mutex // gorilla allows one concurrent writer

	mu      sync.Mutex
	playAck chan struct{} // Closed when the current narration finishes
	active  bool

	micBuffer *audio.RingBuffer
	done      chan struct{}
	logger    zerolog.Logger
}

// Handler returns the websocket endpoint. Each connection gets its own
// session state, reader client, and recognition engine, mirroring one
// user sitting in front of one document.
func Handler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger := observability.GetLogger()
			logger.Error().Err(err).Msg("Websocket upgrade failed")
			return
		}
		defer conn.Close()

		s := newClientSession(conn, cfg)
		s.logger.Info().Msg("Control connection established")
		s.run(r.Context())
		s.logger.Info().Msg("Control connection closed")
	}
}

func newClientSession(conn *websocket.Conn, cfg *config.Config) *clientSession {
	correlationID := observability.NewCorrelationID()
	logger := observability.WithCorrelationID(correlationID).
		With().
		Str("session_id", uuid.New().String()[:8]).
		Logger()

	s := &clientSession{
		conn:      conn,
		cfg:       cfg,
		micBuffer: audio.NewRingBuffer(cfg.MicBufferSize),
		done:      make(chan struct{}),
		active:    true,
		logger:    logger,
	}

	ttsBreaker := resilience.NewCircuitBreaker("tts",
		cfg.TTSBreakerMaxFailures,
		time.Duration(cfg.TTSBreakerResetTimeout)*time.Second)
	api := readerapi.NewClient(cfg.ReaderAPIBaseURL, ttsBreaker)

	// A typed nil engine must become a nil interface so the recognition
	// machine reports the platform as unsupported
	var engine recognition.Engine
	if dg := recognition.NewDeepgramEngine(cfg); dg != nil {
		engine = dg
	}

	s.orch = orchestrator.New(cfg, api, s, s, engine, s)
	return s
}

func (s *clientSession) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.orch.Shutdown()

	go s.orch.Startup(ctx)
	go s.micPump(ctx)

	s.readLoop(ctx)
	close(s.done)
}

// readLoop consumes UI events until the connection drops
func (s *clientSession) readLoop(ctx context.Context) {
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("Websocket read error")
			}
			s.mu.Lock()
			s.active = false
			s.mu.Unlock()
			s.Stop() // Release any narration waiting on an ack
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.logger.Error().Err(err).Msg("Failed to parse control message")
			continue
		}

		s.handleEvent(ctx, msg)
	}
}

func (s *clientSession) handleEvent(ctx context.Context, msg inboundMessage) {
	switch msg.Event {
	case "toggle_mic":
		if err := s.orch.ToggleMic(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Mic toggle failed")
		}

	case "media":
		if msg.Media != nil {
			s.handleMedia(msg.Media)
		}

	case "command":
		// Typed command entry, same path as a spoken one
		go s.orch.DispatchCommand(ctx, msg.Text)

	case "ask":
		go s.orch.AskQuestion(ctx, msg.Question)

	case "stop_speech":
		s.orch.StopSpeech()

	case "playback_ended":
		s.ackPlayback()

	default:
		s.logger.Debug().Str("event", msg.Event).Msg("Unknown control event")
	}
}

// handleMedia decodes one mic chunk into the ring buffer
func (s *clientSession) handleMedia(media *inboundMedia) {
	data, err := base64.StdEncoding.DecodeString(media.Payload)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to decode mic audio")
		return
	}

	if written := s.micBuffer.Write(data); written < len(data) {
		s.logger.Warn().
			Int("dropped", len(data)-written).
			Msg("Mic buffer full, dropping audio")
	}
}

// micPump drains buffered mic audio into the recognition engine at a
// steady cadence, decoupling websocket arrival from engine pacing.
func (s *clientSession) micPump(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			data := s.micBuffer.Drain()
			if len(data) == 0 {
				continue
			}
			if err := s.orch.SendAudio(data); err != nil {
				s.logger.Debug().Err(err).Msg("Audio not forwarded")
			}
		}
	}
}

// Play implements speech.AudioSink: ship the audio to the UI and block
// until it reports playback_ended, the narrator preempts us, or the
// context ends.
func (s *clientSession) Play(ctx context.Context, audioData []byte) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return errors.New("control connection closed")
	}
	ack := make(chan struct{})
	s.playAck = ack
	s.mu.Unlock()

	s.send(outboundMessage{
		Event: "narration",
		Audio: base64.StdEncoding.EncodeToString(audioData),
	})

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errors.New("control connection closed")
	}
}

// Stop implements speech.AudioSink: tell the UI to halt playback and
// release whoever is waiting on the ack.
func (s *clientSession) Stop() {
	s.ackPlayback()
	s.send(outboundMessage{Event: "playback_stop"})
}

func (s *clientSession) ackPlayback() {
	s.mu.Lock()
	if s.playAck != nil {
		close(s.playAck)
		s.playAck = nil
	}
	s.mu.Unlock()
}

// PlayCue implements speech.CuePlayer: cues bypass the narration channel
// entirely and never wait for an ack.
func (s *clientSession) PlayCue(audioData []byte) {
	s.send(outboundMessage{
		Event: "cue",
		Audio: base64.StdEncoding.EncodeToString(audioData),
	})
}

// Notifier implementation

func (s *clientSession) Status(message string) {
	s.send(outboundMessage{Event: "status", Message: message})
}

func (s *clientSession) MicState(state string) {
	s.send(outboundMessage{Event: "mic_state", State: state})
}

func (s *clientSession) LiveTranscript(text string) {
	s.send(outboundMessage{Event: "live_transcript", Text: text})
}

func (s *clientSession) AnswerUpdate(content string) {
	s.send(outboundMessage{Event: "answer", Text: content})
}

func (s *clientSession) OpenFileDialog() {
	s.send(outboundMessage{Event: "open_file_dialog"})
}

func (s *clientSession) send(msg outboundMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug().Err(err).Str("event", msg.Event).Msg("Failed to send control event")
	}
}
