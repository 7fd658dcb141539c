package sendqueue

import (
	"context"
	"time"

	"github.com/hostmobility/insight-agent/internal/dbc"
	"github.com/hostmobility/insight-agent/internal/rpc"
)

// idleSleep is how long the sender waits before re-checking an empty
// queue, per spec.md §4.5 step 1.
const idleSleep = 100 * time.Millisecond

// ReplyHandler routes a server reply (or a transport failure) through
// the reply dispatcher (C8). A nil error means the caller should
// proceed; a non-nil error means the caller should retry — the
// dispatcher has already performed any required back-off sleep.
type ReplyHandler interface {
	HandleReply(ctx context.Context, reply *rpc.Reply) error
	HandleTransportError(ctx context.Context, cause error) error
}

// Sender is the single consumer of a Queue: it batches, streams and
// retries per spec.md §4.5.
type Sender struct {
	Queue   *Queue
	Client  *rpc.AgentClient
	Replies ReplyHandler
}

func NewSender(q *Queue, client *rpc.AgentClient, replies ReplyHandler) *Sender {
	return &Sender{Queue: q, Client: client, Replies: replies}
}

// Run loops until ctx is cancelled, draining and streaming batches.
func (s *Sender) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		batch := s.Queue.DrainBatch()
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(idleSleep):
			}
			continue
		}

		// Retry the same batch until it is accepted — per spec.md
		// §4.5 step 3, the dispatcher has already slept on failure,
		// so this loop does not spin.
		for {
			if err := s.sendBatch(ctx, batch); err == nil {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

func (s *Sender) sendBatch(ctx context.Context, batch []Envelope) error {
	stream, err := s.Client.SendCanMessageStream(ctx)
	if err != nil {
		return s.Replies.HandleTransportError(ctx, err)
	}

	for _, env := range batch {
		if err := stream.Send(toWireMessage(env)); err != nil {
			return s.Replies.HandleTransportError(ctx, err)
		}
	}

	reply, err := stream.CloseAndRecv()
	if err != nil {
		return s.Replies.HandleTransportError(ctx, err)
	}

	return s.Replies.HandleReply(ctx, reply)
}

func toWireMessage(env Envelope) *rpc.CanMessage {
	sigs := make([]rpc.SignalValue, len(env.Signals))
	for i, sig := range env.Signals {
		sigs[i] = wireSignal(sig)
	}
	return &rpc.CanMessage{Bus: env.Bus, Signals: sigs}
}

func wireSignal(sig dbc.DecodedSignal) rpc.SignalValue {
	sv := rpc.SignalValue{Name: sig.Name, Unit: sig.Unit}
	switch sig.Value.Kind {
	case dbc.KindU64:
		sv.Kind = rpc.SignalValueU64
		sv.U64 = sig.Value.U64
	case dbc.KindI64:
		sv.Kind = rpc.SignalValueI64
		sv.I64 = sig.Value.I64
	case dbc.KindF64:
		sv.Kind = rpc.SignalValueF64
		sv.F64 = sig.Value.F64
	case dbc.KindStr:
		sv.Kind = rpc.SignalValueStr
		sv.Str = sig.Value.Str
	}
	return sv
}
