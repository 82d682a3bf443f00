// Package stream consumes chunked answer streams from the reader service,
// updating the live transcript and narrating completed sentences as they
// arrive.
package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/echovision/voice-client/internal/observability"
	"github.com/echovision/voice-client/internal/readerapi"
	"github.com/echovision/voice-client/internal/segment"
	"github.com/echovision/voice-client/internal/session"
	"github.com/echovision/voice-client/internal/speech"
)

// AskClient is the slice of the reader API the consumer needs
type AskClient interface {
	Ask(ctx context.Context, question string, history []readerapi.Turn) (io.ReadCloser, error)
}

// Consumer runs one streaming answer session at a time. Starting a new
// question cancels the previous session's context, which drops its
// unplayed fragments instead of letting them race the new narration.
type Consumer struct {
	api          AskClient
	narrator     *speech.Narrator
	state        *session.State
	historyTurns int
	queueLen     int
	status       speech.StatusFunc
	onUpdate     func(content string)
	logger       zerolog.Logger

	mu            sync.Mutex
	sessionCancel context.CancelFunc
}

// NewConsumer creates a streaming answer consumer. onUpdate receives the
// growing answer text after every chunk; it and status may be nil.
func NewConsumer(api AskClient, narrator *speech.Narrator, state *session.State, historyTurns, queueLen int, status speech.StatusFunc, onUpdate func(string)) *Consumer {
	if status == nil {
		status = func(string) {}
	}
	if onUpdate == nil {
		onUpdate = func(string) {}
	}
	return &Consumer{
		api:          api,
		narrator:     narrator,
		state:        state,
		historyTurns: historyTurns,
		queueLen:     queueLen,
		status:       status,
		onUpdate:     onUpdate,
		logger:       observability.ComponentLogger("stream"),
	}
}

// AskQuestion submits question with bounded history and consumes the
// answer stream to completion. It blocks until the stream has ended and
// all of this session's fragments have been handed to the narrator.
func (c *Consumer) AskQuestion(ctx context.Context, question string) {
	sessionCtx := c.beginSession(ctx)

	c.state.SetView(session.ViewConversation)
	history := c.state.BeginAnswer(question, c.historyTurns)

	body, err := c.api.Ask(sessionCtx, question, toTurns(history))
	if err != nil {
		c.fail("Question failed: " + err.Error())
		return
	}
	defer body.Close()

	queue := speech.NewSessionQueue(sessionCtx, c.narrator, c.queueLen)
	defer queue.Close()

	c.consume(sessionCtx, body, queue)
}

// Cancel aborts any in-flight session, dropping its unplayed fragments
func (c *Consumer) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionCancel != nil {
		c.sessionCancel()
		c.sessionCancel = nil
	}
}

// beginSession cancels the previous session and registers a new one
func (c *Consumer) beginSession(ctx context.Context) context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionCancel != nil {
		c.sessionCancel()
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	c.sessionCancel = cancel
	return sessionCtx
}

// consume reads the stream chunk by chunk. cursor marks how far into the
// accumulated answer sentences have already been dispatched to speech; it
// only moves forward, so spoken text is never re-scanned.
func (c *Consumer) consume(ctx context.Context, body io.Reader, queue *speech.SessionQueue) {
	var accumulated strings.Builder
	cursor := 0
	buf := make([]byte, 4096)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			accumulated.Write(buf[:n])
			text := accumulated.String()
			c.state.UpdateAnswer(text)
			c.onUpdate(text)
			observability.RecordStreamChunk()

			// A single chunk may complete several sentences; each is
			// enqueued separately, in left-to-right order
			for {
				s, ok := segment.Next(text[cursor:])
				if !ok {
					break
				}
				cursor += s.Matched
				if s.Text != "" {
					if enqErr := queue.Enqueue(s.Text); enqErr != nil {
						return // Session cancelled mid-stream
					}
				}
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				c.finish(accumulated.String(), cursor, queue)
			} else if ctx.Err() != nil {
				// Superseded by a newer question or an explicit stop;
				// not a failure
				c.logger.Debug().Msg("Stream session cancelled")
				observability.RecordStreamSession("cancelled")
			} else {
				c.fail("Answer stream failed: " + err.Error())
			}
			return
		}
	}
}

// finish narrates the trailing unterminated remainder, if any
func (c *Consumer) finish(accumulated string, cursor int, queue *speech.SessionQueue) {
	remainder := strings.TrimSpace(accumulated[cursor:])
	if remainder != "" {
		_ = queue.Enqueue(remainder)
	}

	observability.RecordStreamSession("completed")
	c.logger.Debug().Int("length", len(accumulated)).Msg("Answer stream completed")
}

func (c *Consumer) fail(message string) {
	c.logger.Error().Msg(message)
	c.state.AppendSystem(message)
	c.status(message)
	observability.RecordStreamSession("error")
	observability.RecordError("transport", "stream")
}

func toTurns(history []session.Message) []readerapi.Turn {
	turns := make([]readerapi.Turn, len(history))
	for i, m := range history {
		turns[i] = readerapi.Turn{Role: string(m.Role), Content: m.Content}
	}
	return turns
}
