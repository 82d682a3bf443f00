package speech

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/echovision/voice-client/internal/observability"
)

// SessionQueue is the private FIFO serializer for one streaming answer
// session. Fragments are narrated strictly in enqueue order: the worker
// only calls Speak for fragment k+1 after fragment k's playback has ended,
// so fragments of one session never preempt each other. Cancelling the
// session context drops everything still queued.
type SessionQueue struct {
	ctx      context.Context
	narrator *Narrator
	ch       chan string
	done     chan struct{}
	dropped  atomic.Int64
	closeMu  sync.Mutex
	closed   bool
}

// NewSessionQueue starts a queue bound to ctx with the given buffer size
func NewSessionQueue(ctx context.Context, narrator *Narrator, size int) *SessionQueue {
	q := &SessionQueue{
		ctx:      ctx,
		narrator: narrator,
		ch:       make(chan string, size),
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *SessionQueue) run() {
	defer close(q.done)

	for text := range q.ch {
		// A cancelled session drops the remainder instead of speaking it
		if q.ctx.Err() != nil {
			q.dropped.Add(1)
			observability.RecordFragmentDropped()
			continue
		}

		_ = q.narrator.Speak(q.ctx, text)
		observability.RecordStreamFragment()
	}
}

// Enqueue adds a fragment to the tail of the queue. It blocks while the
// buffer is full and returns the context error once the session has been
// cancelled, in which case the fragment is counted as dropped.
func (q *SessionQueue) Enqueue(text string) error {
	select {
	case <-q.ctx.Done():
		q.dropped.Add(1)
		observability.RecordFragmentDropped()
		return q.ctx.Err()
	case q.ch <- text:
		return nil
	}
}

// Close stops accepting fragments and waits for the worker to drain.
// Fragments still queued are spoken unless the session context has been
// cancelled. Close is idempotent.
func (q *SessionQueue) Close() {
	q.closeMu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.closeMu.Unlock()

	<-q.done
}

// Dropped returns how many fragments were discarded due to cancellation
func (q *SessionQueue) Dropped() int64 {
	return q.dropped.Load()
}
