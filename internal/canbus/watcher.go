// Package canbus implements the CAN watcher (spec.md §4.2): one
// instance per configured bus, decoding frames via internal/dbc,
// suppressing duplicates, and enqueueing grouped signal envelopes.
package canbus

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/brutella/can"

	"github.com/hostmobility/insight-agent/internal/dbc"
	"github.com/hostmobility/insight-agent/internal/sendqueue"
)

// Watcher reads frames from one CAN bus and pushes decoded envelopes
// onto a shared send queue.
type Watcher struct {
	Bus        string
	Bitrate    int
	ListenOnly bool

	db    *dbc.Database
	queue *sendqueue.Queue

	mu   sync.Mutex
	prev map[string]dbc.Value
}

// New creates a watcher for one CAN bus.
func New(busName string, bitrate int, listenOnly bool, db *dbc.Database, queue *sendqueue.Queue) *Watcher {
	return &Watcher{
		Bus:        busName,
		Bitrate:    bitrate,
		ListenOnly: listenOnly,
		db:         db,
		queue:      queue,
		prev:       make(map[string]dbc.Value),
	}
}

// Run brings the interface up, opens a raw CAN socket on it, and
// processes frames until ctx is cancelled or the bus errs.
func (w *Watcher) Run(ctx context.Context) error {
	if err := BringUp(ctx, w.Bus, w.Bitrate, w.ListenOnly); err != nil {
		return err
	}

	bus, err := can.NewBusForInterfaceWithName(w.Bus)
	if err != nil {
		return fmt.Errorf("canbus: open %s: %w", w.Bus, err)
	}
	defer bus.Disconnect()

	bus.SubscribeFunc(w.handleFrame)

	errCh := make(chan error, 1)
	go func() { errCh <- bus.ConnectAndPublish() }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (w *Watcher) handleFrame(frame can.Frame) {
	msg, ok := w.db.Messages[uint32(frame.ID)]
	if !ok {
		return
	}
	payload := frame.Data[:frame.Length]

	w.mu.Lock()
	signals := ProcessFrame(msg, payload, w.prev)
	w.mu.Unlock()

	if len(signals) == 0 {
		return
	}

	if err := w.queue.Push(sendqueue.Envelope{Bus: w.Bus, Signals: signals}); err != nil {
		log.Printf("canbus: %s: enqueue: %v", w.Bus, err)
	}
}

// ProcessFrame implements spec.md §4.2 steps 1-4: iterate the
// message's signals in DBC declaration order, tracking the current
// multiplexor value, decoding each signal via internal/dbc.Decode,
// and suppressing values equal to the previous emission for that
// signal name. prev is mutated in place.
//
// As spec.md notes, this relies on the multiplexor appearing before
// its multiplexed dependents in declaration order — the hazard is
// preserved, not fixed.
func ProcessFrame(msg *dbc.Message, payload []byte, prev map[string]dbc.Value) []dbc.DecodedSignal {
	var out []dbc.DecodedSignal
	var mx uint64

	for _, sig := range msg.Signals {
		value, ok := dbc.Decode(payload, sig)
		if !ok {
			continue
		}

		switch sig.Mux {
		case dbc.Multiplexor:
			if value.Kind == dbc.KindU64 {
				mx = value.U64
			}
			continue
		case dbc.Multiplexed, dbc.MultiplexedAndMultiplexor:
			if sig.MuxValue != mx {
				continue
			}
		}

		if last, ok := prev[sig.Name]; ok && last.Equal(value) {
			continue
		}
		prev[sig.Name] = value

		out = append(out, dbc.DecodedSignal{
			Name:  sig.Name,
			Unit:  dbc.ResolveUnit(sig.Unit, value),
			Value: value,
		})
	}

	return out
}
