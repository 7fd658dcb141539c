// Package heartbeat implements the periodic heartbeat (C7, spec.md
// §4.7): a ticker that submits a Status report on a fixed interval and
// routes whatever comes back through the reply dispatcher.
package heartbeat

import (
	"context"
	"time"

	"github.com/hostmobility/insight-agent/internal/rpc"
)

// Client is the subset of rpc.AgentClient the heartbeat needs.
type Client interface {
	HeartBeat(ctx context.Context, in *rpc.Status) (*rpc.Reply, error)
}

// Replies routes a reply or a transport failure through the
// dispatcher (C8).
type Replies interface {
	HandleReply(ctx context.Context, reply *rpc.Reply) error
	HandleTransportError(ctx context.Context, cause error) error
}

// Heartbeat sends Status{OK: true} every Interval until ctx is
// cancelled.
type Heartbeat struct {
	Client   Client
	Replies  Replies
	Interval time.Duration
}

func New(client Client, replies Replies, interval time.Duration) *Heartbeat {
	return &Heartbeat{Client: client, Replies: replies, Interval: interval}
}

// Run ticks every Interval, sending one heartbeat per tick. A
// transport failure is handled by the dispatcher (which sleeps) and
// then simply waits for the next tick rather than retrying
// immediately — a missed heartbeat is not itself an error condition.
func (h *Heartbeat) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.beat(ctx)
		}
	}
}

func (h *Heartbeat) beat(ctx context.Context) {
	reply, err := h.Client.HeartBeat(ctx, &rpc.Status{OK: true})
	if err != nil {
		h.Replies.HandleTransportError(ctx, err)
		return
	}
	_ = h.Replies.HandleReply(ctx, reply)
}
