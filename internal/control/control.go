// Package control implements the remote-control session (C9,
// spec.md §4.9): a small Idle/Armed/Active state machine driven by a
// single-permit barrier that the reply dispatcher (C8) signals and
// this package's Session task awaits.
package control

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/hostmobility/insight-agent/internal/rpc"
)

// Setter is the digital-out surface (C4) the session drives while
// Active.
type Setter interface {
	Set(externalName string, active bool) error
}

// Restorer runs restore_defaults() on every termination path, as
// spec.md §4.9 requires.
type Restorer interface {
	RestoreDefaults()
}

// Client opens the server-streamed control_stream RPC.
type Client interface {
	ControlStream(ctx context.Context, in *rpc.ControlStatus) (rpc.RemoteControl_ControlStreamClient, error)
}

// Session is the C9 state machine. The zero value is not usable; use
// New.
type Session struct {
	Client   Client
	Output   Setter
	Restorer Restorer

	barrier chan struct{}

	mu   sync.Mutex
	busy bool // gate flag: armed or active
}

func New(client Client, output Setter, restorer Restorer) *Session {
	return &Session{
		Client:   client,
		Output:   output,
		Restorer: restorer,
		barrier:  make(chan struct{}, 1),
	}
}

// Arm is the dispatcher's ReleaseControlGate hook: Idle -> Armed. It
// returns false without effect if the gate is already set, matching
// the "log and ignore" rule of spec.md §4.8's ControlRequest row.
func (s *Session) Arm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return false
	}
	s.busy = true
	select {
	case s.barrier <- struct{}{}:
		return true
	default:
		// Barrier already holds a permit; busy should have caught
		// this, but guard against a lost wake-up regardless.
		return true
	}
}

// ForceBusy holds the gate closed for the duration of the
// supervisor's initial-value transmission window (spec.md §4.9, last
// paragraph), so a ControlRequest seen during start-up is ignored
// rather than queued.
func (s *Session) ForceBusy() {
	s.mu.Lock()
	s.busy = true
	s.mu.Unlock()
}

// ClearBusy ends the forced-busy window without arming a session.
func (s *Session) ClearBusy() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// Run waits for the barrier to be signalled, then runs one Active
// session to completion, repeating until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.barrier:
		}

		if err := s.runActive(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("control: session ended: %v", err)
		}

		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()

		if s.Restorer != nil {
			s.Restorer.RestoreDefaults()
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Session) runActive(ctx context.Context) error {
	stream, err := s.Client.ControlStream(ctx, &rpc.ControlStatus{Ready: true})
	if err != nil {
		return err
	}

	for {
		cmd, err := stream.Recv()
		if err != nil {
			return err
		}

		if cmd.Cmd == "Close" {
			return nil
		}

		if s.Output == nil {
			log.Printf("control: command for %q ignored, no digital outputs configured", cmd.Cmd)
			continue
		}

		if err := s.Output.Set(cmd.Cmd, cmd.State == rpc.Active); err != nil {
			log.Printf("control: set %q: %v", cmd.Cmd, err)
		}
	}
}
