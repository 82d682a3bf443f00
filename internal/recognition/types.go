// Package recognition bridges a continuous speech-recognition engine to
// discrete finalized transcripts via an explicit state machine.
package recognition

import (
	"context"
	"errors"
)

// ErrUnsupportedPlatform is returned by Start when no recognition engine
// is available. Terminal for that attempt; the machine stays idle.
var ErrUnsupportedPlatform = errors.New("live transcription is not supported on this platform")

// Result is one event from the recognition engine: an interim or final
// transcript, or an engine error.
type Result struct {
	Text  string
	Final bool
	Err   error
}

// Engine is a continuous speech-recognition session source
type Engine interface {
	// Start opens a fresh recognition session
	Start(ctx context.Context) error
	// SendAudio feeds raw microphone audio into the active session
	SendAudio(data []byte) error
	// Results delivers interim/final transcripts and errors
	Results() <-chan Result
	// Abort discards the current session without emitting finals
	Abort()
	// Stop finishes the current session gracefully
	Stop() error
	// Close tears down the engine entirely
	Close() error
}

// State is the recognition lifecycle state
type State int

const (
	StateIdle    State = iota // Not listening
	StateActive               // Listening for speech
	StateLoading              // A finalized transcript is being processed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateLoading:
		return "loading"
	}
	return "unknown"
}
