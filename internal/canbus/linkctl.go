package canbus

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

const (
	defaultBitrate    = 500000
	defaultListenOnly = true
)

// BringUp brings a CAN interface up at the given bitrate, per
// spec.md §6: set the link down, then up with
// `type can bitrate <n> listen-only on|off`.
func BringUp(ctx context.Context, iface string, bitrate int, listenOnly bool) error {
	if bitrate == 0 {
		bitrate = defaultBitrate
	}

	if err := run(ctx, "ip", "link", "set", iface, "down"); err != nil {
		return fmt.Errorf("canbus: bring down %s: %w", iface, err)
	}

	onOff := "off"
	if listenOnly {
		onOff = "on"
	}
	args := []string{"link", "set", iface, "up", "type", "can",
		"bitrate", strconv.Itoa(bitrate), "listen-only", onOff}
	if err := run(ctx, "ip", args...); err != nil {
		return fmt.Errorf("canbus: bring up %s: %w", iface, err)
	}

	return nil
}

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Run()
}
