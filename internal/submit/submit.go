// Package submit implements the unary submitter (C6): single
// measurement and state reports that retry through the reply
// dispatcher exactly like the streamed CAN path, per spec.md §4.6.
package submit

import (
	"context"

	"github.com/hostmobility/insight-agent/internal/rpc"
)

// Replies is the subset of the dispatcher (C8) a unary submitter
// needs: route a reply or a transport failure, and learn whether to
// retry.
type Replies interface {
	HandleReply(ctx context.Context, reply *rpc.Reply) error
	HandleTransportError(ctx context.Context, cause error) error
}

// Client is the subset of rpc.AgentClient a unary submitter needs.
// Narrowing to an interface here keeps this package testable without
// a live gRPC connection.
type Client interface {
	SendValues(ctx context.Context, in *rpc.Values) (*rpc.Reply, error)
	SendCurrentState(ctx context.Context, in *rpc.State) (*rpc.Reply, error)
}

// Submitter sends single Values or State reports, retrying on
// transport failure the same way the CAN sender does: the dispatcher
// sleeps, then this loop tries again with the same payload.
type Submitter struct {
	Client  Client
	Replies Replies
}

func New(client Client, replies Replies) *Submitter {
	return &Submitter{Client: client, Replies: replies}
}

// SubmitValue sends one named measurement, used by the digital-in
// watcher (C3) for edge events and the supervisor's start-up report
// (C10).
func (s *Submitter) SubmitValue(ctx context.Context, v *rpc.Values) error {
	for {
		reply, err := s.Client.SendValues(ctx, v)
		if err != nil {
			// HandleTransportError always sleeps before returning; it
			// only fails to return here because it has already exited
			// the process (ETIME) or ctx was cancelled underneath it.
			s.Replies.HandleTransportError(ctx, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		return s.Replies.HandleReply(ctx, reply)
	}
}

// SubmitState sends the one-shot current-state report (sw_version,
// config checksum, optional DBC checksum) spec.md §4.10 step 3 sends
// at start-up.
func (s *Submitter) SubmitState(ctx context.Context, state *rpc.State) error {
	for {
		reply, err := s.Client.SendCurrentState(ctx, state)
		if err != nil {
			s.Replies.HandleTransportError(ctx, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		return s.Replies.HandleReply(ctx, reply)
	}
}
