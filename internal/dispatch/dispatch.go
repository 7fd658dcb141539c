// Package dispatch implements the reply dispatcher (C8, spec.md §4.8):
// the central handler for every server reply, driving process exit,
// the remote-control gate, config/identity/resource updates and
// software-upgrade requests, plus the jittered retry back-off applied
// to transport errors.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hostmobility/insight-agent/internal/identity"
	"github.com/hostmobility/insight-agent/internal/rpc"
	"github.com/hostmobility/insight-agent/internal/transport"
)

// Exit codes, per spec.md §6.
const (
	ExitOK      = 0
	ExitETIME   = 62
	ExitSwUpdate = 100
)

// Hooks breaks the cyclic dependency noted in spec.md §9: the
// dispatcher needs to restore digital-output defaults and release the
// remote-control gate, but must not import the gpio or control
// packages directly. The supervisor supplies these callbacks.
type Hooks struct {
	// RestoreDefaults drives every configured digital output back to
	// its default state. Nil is treated as a no-op (no digital
	// outputs configured).
	RestoreDefaults func()

	// ReleaseControlGate signals the remote-control session's
	// barrier. It returns false (and does nothing) if the gate is
	// already armed or active, in which case the caller logs and
	// ignores the request.
	ReleaseControlGate func() bool
}

// Dispatcher is the stateful half of C8: it owns the current retry
// sleep duration.
type Dispatcher struct {
	ConfDir string

	SleepMin time.Duration
	SleepMax time.Duration

	Hooks Hooks

	// Exit terminates the process. Defaults to os.Exit; overridable
	// for tests.
	Exit func(code int)

	// Rand is the jitter source. Defaults to the package-level
	// rand.Float64; overridable for deterministic tests.
	Rand func() float64

	mu    sync.Mutex
	sleep time.Duration
}

// New creates a Dispatcher with its retry sleep initialized to sleepMin.
func New(confDir string, sleepMin, sleepMax time.Duration, hooks Hooks) *Dispatcher {
	return &Dispatcher{
		ConfDir:  confDir,
		SleepMin: sleepMin,
		SleepMax: sleepMax,
		Hooks:    hooks,
		Exit:     os.Exit,
		Rand:     rand.Float64,
		sleep:    sleepMin,
	}
}

func (d *Dispatcher) resetSleep() {
	d.mu.Lock()
	d.sleep = d.SleepMin
	d.mu.Unlock()
}

func (d *Dispatcher) cleanup() {
	if d.Hooks.RestoreDefaults != nil {
		d.Hooks.RestoreDefaults()
	}
}

// HandleReply implements the Action table of spec.md §4.8 for a
// reply successfully received from the server. A nil error means the
// caller (C5/C6/C7) should proceed; any action that terminates the
// process does so via Exit and never returns to the caller in
// practice.
func (d *Dispatcher) HandleReply(ctx context.Context, reply *rpc.Reply) error {
	switch reply.Action {
	case rpc.ActionCarryOn:
		d.resetSleep()
		return nil

	case rpc.ActionExit:
		d.resetSleep()
		d.cleanup()
		d.Exit(reply.ExitReason)
		return nil

	case rpc.ActionControlRequest:
		d.resetSleep()
		if d.Hooks.ReleaseControlGate == nil || !d.Hooks.ReleaseControlGate() {
			log.Printf("dispatch: control request ignored, session already active")
		}
		return nil

	case rpc.ActionConfigUpdate:
		d.resetSleep()
		path := filepath.Join(d.ConfDir, "conf-new.toml")
		if err := os.WriteFile(path, reply.ConfigBytes, 0644); err != nil {
			log.Fatalf("dispatch: write %s: %v", path, err)
		}
		d.cleanup()
		d.Exit(ExitOK)
		return nil

	case rpc.ActionIdentityUpdate:
		d.resetSleep()
		id := identity.Identity{UID: reply.IdentityUID, Domain: reply.IdentityDomain}
		if err := identity.Replace(d.ConfDir, id); err != nil {
			log.Fatalf("dispatch: replace identity: %v", err)
		}
		d.cleanup()
		d.Exit(ExitOK)
		return nil

	case rpc.ActionFetchResource:
		d.resetSleep()
		if _, err := transport.FetchResource(ctx, d.ConfDir, reply.ResourceURL, reply.ResourceTarget); err != nil {
			log.Fatalf("dispatch: fetch resource: %v", err)
		}
		d.cleanup()
		d.Exit(ExitOK)
		return nil

	case rpc.ActionSwUpdate:
		d.resetSleep()
		if err := transport.RequestUpgrade(ctx, reply.SwVersion); err != nil {
			log.Printf("dispatch: software upgrade request failed: %v", err)
			return nil
		}
		d.cleanup()
		d.Exit(ExitSwUpdate)
		return nil

	default:
		// An unrecognised action is a protocol error, which is fatal.
		log.Fatalf("dispatch: unrecognised reply action %q", reply.Action)
		return nil
	}
}

// HandleTransportError implements the "any transport error" row of
// spec.md §4.8's table: a jittered exponential back-off, with an
// ETIME exit once the pre-update sleep has already exceeded SleepMax.
// It always returns a non-nil error — the caller retries the same
// operation — unless it exits the process first.
func (d *Dispatcher) HandleTransportError(ctx context.Context, cause error) error {
	d.mu.Lock()
	current := d.sleep
	d.mu.Unlock()

	jittered := jitter(current, d.Rand)
	if jittered > d.SleepMax {
		jittered = d.SleepMax
	}
	sleepCtx(ctx, jittered)

	if current > d.SleepMax {
		d.cleanup()
		d.Exit(ExitETIME)
		return fmt.Errorf("dispatch: retry sleep exceeded max: %w", cause)
	}

	d.mu.Lock()
	d.sleep = current * 2
	d.mu.Unlock()

	return fmt.Errorf("dispatch: transport error, retrying: %w", cause)
}

// jitter computes s' = U[s*0.9, s*1.1], per spec.md §4.8.
func jitter(s time.Duration, randFloat func() float64) time.Duration {
	low := float64(s) * 0.9
	high := float64(s) * 1.1
	return time.Duration(low + randFloat()*(high-low))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
