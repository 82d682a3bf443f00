// Package speech serializes all narrated output through one audible
// channel: a narrator that owns the single playback resource, and a
// per-question FIFO queue that feeds it completed answer fragments.
package speech

import (
	"context"
)

// Synthesizer converts text to a playable audio payload
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AudioSink is the single audio output resource. Play blocks until the
// payload has finished sounding, or returns early when Stop is called or
// ctx is cancelled. Stop is safe to call at any time, including when
// nothing is playing.
type AudioSink interface {
	Play(ctx context.Context, audio []byte) error
	Stop()
}

// CuePlayer plays short earcons outside the narration channel. Cues are
// fire-and-forget and never contend with the narrator's sink.
type CuePlayer interface {
	PlayCue(audio []byte)
}

// StatusFunc receives soft, user-visible status messages
type StatusFunc func(message string)
