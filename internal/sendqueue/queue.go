// Package sendqueue implements the shared send queue and sender loop
// of spec.md §4.5: a bounded-only-by-memory FIFO of CAN envelopes,
// drained in batches of up to 100 and streamed to the server.
package sendqueue

import (
	"sync"

	"github.com/hostmobility/insight-agent/internal/dbc"
)

// MaxBatch is the maximum number of envelopes drained per batch
// (spec.md §4.5 step 1, §8 boundary behaviour 10).
const MaxBatch = 100

// Envelope is one CAN message worth of decoded signals, per spec.md §3.
type Envelope struct {
	Bus     string
	Signals []dbc.DecodedSignal
}

// Queue is the shared FIFO. The zero value is an empty, ready-to-use
// queue; New returns one.
type Queue struct {
	mu  sync.Mutex
	buf []Envelope
}

func New() *Queue {
	return &Queue{}
}

// Push appends an envelope to the tail of the queue. It never
// returns an error today (the queue has no capacity bound), but
// returns one to leave room for a future bounded implementation
// without changing every call site.
func (q *Queue) Push(e Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buf = append(q.buf, e)
	return nil
}

// Len reports the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// DrainBatch removes and returns up to MaxBatch envelopes from the
// head of the queue, in arrival order (spec.md §4.5 step 1, §5
// ordering). It returns an empty, non-nil slice if the queue is
// empty.
func (q *Queue) DrainBatch() []Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.buf)
	if n > MaxBatch {
		n = MaxBatch
	}
	batch := make([]Envelope, n)
	copy(batch, q.buf[:n])
	q.buf = q.buf[n:]
	return batch
}
