package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// OutPort is one configured digital output: the kernel line to drive,
// the external name it is addressed by in control commands, and the
// level it is restored to whenever control releases the port.
type OutPort struct {
	Line         Line
	DefaultState int
}

// OutController drives the configured digital output lines on behalf
// of a remote-control session (C9) and the reply dispatcher's
// restore-defaults hook (C8).
type OutController struct {
	mu    sync.Mutex
	lines map[string]*gpiocdev.Line // external name -> open line
	ports map[string]OutPort        // external name -> configuration
}

// NewOutController opens one output line per configured port, driving
// each to its DefaultState immediately, per spec.md §4.4.
func NewOutController(ports []OutPort) (*OutController, error) {
	c := &OutController{
		lines: make(map[string]*gpiocdev.Line, len(ports)),
		ports: make(map[string]OutPort, len(ports)),
	}

	for _, p := range ports {
		chip, offset, err := resolve(p.Line.InternalName)
		if err != nil {
			c.Close()
			return nil, err
		}
		l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(p.DefaultState))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("gpio: request %s: %w", p.Line.InternalName, err)
		}
		c.lines[p.Line.ExternalName] = l
		c.ports[p.Line.ExternalName] = p
	}

	return c, nil
}

// Set drives the named output per spec.md §4.4: Active drives
// 1-default_state, Inactive drives default_state.
func (c *OutController) Set(externalName string, active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.lines[externalName]
	if !ok {
		return fmt.Errorf("gpio: unknown output %q", externalName)
	}
	return l.SetValue(driveLevel(c.ports[externalName].DefaultState, active))
}

// driveLevel implements spec.md §4.4's Set rule as a pure function so
// it can be unit-tested without a real GPIO chip: Active drives
// 1-default_state, Inactive drives default_state.
func driveLevel(defaultState int, active bool) int {
	if active {
		return 1 - defaultState
	}
	return defaultState
}

// RestoreDefaults drives every configured output back to its
// configured default level. It is the Hooks.RestoreDefaults callback
// the dispatcher (C8) and the control session (C9) invoke on every
// termination path.
func (c *OutController) RestoreDefaults() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, l := range c.lines {
		p := c.ports[name]
		if err := l.SetValue(p.DefaultState); err != nil {
			// Best effort: a failure on one output is ignored and the
			// remaining outputs are still restored.
			continue
		}
	}
}

// Close releases every open line. Used during start-up if opening a
// later port fails, and by the supervisor on shutdown.
func (c *OutController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range c.lines {
		l.Close()
	}
	c.lines = make(map[string]*gpiocdev.Line)
}
