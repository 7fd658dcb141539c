package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hostmobility/insight-agent/internal/rpc"
)

func newTestDispatcher(t *testing.T, sleepMin, sleepMax time.Duration) (*Dispatcher, *int) {
	t.Helper()
	exitCode := -1
	d := New(t.TempDir(), sleepMin, sleepMax, Hooks{})
	d.Exit = func(code int) { exitCode = code }
	d.Rand = func() float64 { return 0.5 } // midpoint, no jitter surprises
	return d, &exitCode
}

func TestHandleReplyCarryOnResetsSleep(t *testing.T) {
	d, _ := newTestDispatcher(t, time.Second, 4*time.Second)
	d.sleep = 4 * time.Second

	if err := d.HandleReply(context.Background(), &rpc.Reply{Action: rpc.ActionCarryOn}); err != nil {
		t.Fatalf("HandleReply: %v", err)
	}
	if d.sleep != time.Second {
		t.Errorf("sleep = %v, want SleepMin", d.sleep)
	}
}

func TestHandleReplyExit(t *testing.T) {
	d, exitCode := newTestDispatcher(t, time.Second, 4*time.Second)

	if err := d.HandleReply(context.Background(), &rpc.Reply{Action: rpc.ActionExit, ExitReason: 7}); err != nil {
		t.Fatalf("HandleReply: %v", err)
	}
	if *exitCode != 7 {
		t.Errorf("exit code = %d, want 7", *exitCode)
	}
}

func TestHandleReplyControlRequestReleasesGateWhenClear(t *testing.T) {
	released := false
	d, _ := newTestDispatcher(t, time.Second, 4*time.Second)
	d.Hooks.ReleaseControlGate = func() bool { released = true; return true }

	if err := d.HandleReply(context.Background(), &rpc.Reply{Action: rpc.ActionControlRequest}); err != nil {
		t.Fatalf("HandleReply: %v", err)
	}
	if !released {
		t.Error("expected the control gate to be released")
	}
}

func TestHandleReplyConfigUpdateWritesConfNewAndExits(t *testing.T) {
	restored := false
	dir := t.TempDir()
	d := New(dir, time.Second, 4*time.Second, Hooks{RestoreDefaults: func() { restored = true }})
	exitCode := -1
	d.Exit = func(code int) { exitCode = code }

	body := []byte("heartbeat_s = 1\n")
	if err := d.HandleReply(context.Background(), &rpc.Reply{Action: rpc.ActionConfigUpdate, ConfigBytes: body}); err != nil {
		t.Fatalf("HandleReply: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "conf-new.toml"))
	if err != nil {
		t.Fatalf("read conf-new.toml: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("conf-new.toml content = %q, want %q", got, body)
	}
	if !restored {
		t.Error("expected digital outputs to be restored before exit")
	}
	if exitCode != ExitOK {
		t.Errorf("exit code = %d, want %d", exitCode, ExitOK)
	}
}

func TestHandleTransportErrorDoublesSleepAndRetries(t *testing.T) {
	d, exitCode := newTestDispatcher(t, time.Second, 4*time.Second)
	d.sleep = time.Second

	if err := d.HandleTransportError(context.Background(), nil); err == nil {
		t.Error("expected a retry error")
	}
	if d.sleep != 2*time.Second {
		t.Errorf("sleep = %v, want 2s", d.sleep)
	}
	if *exitCode != -1 {
		t.Error("should not have exited yet")
	}
}

func TestHandleTransportErrorExitsETIMEOncePastMax(t *testing.T) {
	d, exitCode := newTestDispatcher(t, time.Second, 4*time.Second)
	d.sleep = 8 * time.Second // already exceeds SleepMax from a prior doubling

	if err := d.HandleTransportError(context.Background(), nil); err == nil {
		t.Error("expected an error")
	}
	if *exitCode != ExitETIME {
		t.Errorf("exit code = %d, want %d", *exitCode, ExitETIME)
	}
}

func TestJitterStaysWithinBounds(t *testing.T) {
	s := 10 * time.Second
	for _, r := range []float64{0, 0.25, 0.5, 0.75, 1} {
		got := jitter(s, func() float64 { return r })
		low := time.Duration(float64(s) * 0.9)
		high := time.Duration(float64(s) * 1.1)
		if got < low || got > high {
			t.Errorf("jitter(%v, %v) = %v, want within [%v, %v]", s, r, got, low, high)
		}
	}
}
