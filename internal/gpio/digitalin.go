// Package gpio implements the digital-in watcher (C3) and
// digital-out controller (C4) of spec.md §4.3/§4.4, built on
// github.com/warthog618/go-gpiocdev — the GPIO chardev library used
// by the doismellburning-samoyed gateway in the retrieval pack.
package gpio

import (
	"context"
	"fmt"
	"log"

	"github.com/warthog618/go-gpiocdev"

	"github.com/hostmobility/insight-agent/internal/rpc"
)

// Line identifies a GPIO line by the kernel name used to resolve it
// and the external label it is reported under.
type Line struct {
	InternalName string
	ExternalName string
}

// resolve scans every chip on the host for a line whose kernel name
// matches internalName, per spec.md §4.3.
func resolve(internalName string) (chip string, offset int, err error) {
	chips, err := gpiocdev.Chips()
	if err != nil {
		return "", 0, fmt.Errorf("gpio: enumerate chips: %w", err)
	}

	for _, name := range chips {
		c, err := gpiocdev.NewChip(name)
		if err != nil {
			continue
		}
		for i := 0; i < c.Lines; i++ {
			info, err := c.LineInfo(i)
			if err != nil {
				continue
			}
			if info.Name == internalName {
				c.Close()
				return name, i, nil
			}
		}
		c.Close()
	}

	return "", 0, fmt.Errorf("gpio: no line named %q on any chip", internalName)
}

// Submitter is the unary submission surface the digital-in watcher
// uses to report edge events (C6).
type Submitter interface {
	SubmitValue(ctx context.Context, v *rpc.Values) error
}

// InWatcher watches one digital input line for edge events.
type InWatcher struct {
	Line      Line
	Submitter Submitter
}

// NewInWatcher creates a watcher for one configured digital input port.
func NewInWatcher(line Line, submitter Submitter) *InWatcher {
	return &InWatcher{Line: line, Submitter: submitter}
}

// CurrentLevel reads the line's present level without subscribing to
// events, used by the supervisor's start-up measurement (spec.md
// §4.10 step 4).
func (w *InWatcher) CurrentLevel(ctx context.Context) (int, error) {
	chip, offset, err := resolve(w.Line.InternalName)
	if err != nil {
		return 0, err
	}
	l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsInput)
	if err != nil {
		return 0, fmt.Errorf("gpio: request %s: %w", w.Line.InternalName, err)
	}
	defer l.Close()
	return l.Value()
}

// Run subscribes to both-edge events on the line and submits a
// boolean measurement for each one, until ctx is cancelled.
func (w *InWatcher) Run(ctx context.Context) error {
	chip, offset, err := resolve(w.Line.InternalName)
	if err != nil {
		return err
	}

	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			w.handleEvent(ctx, evt)
		}),
	)
	if err != nil {
		return fmt.Errorf("gpio: request %s: %w", w.Line.InternalName, err)
	}
	defer l.Close()

	<-ctx.Done()
	return ctx.Err()
}

func (w *InWatcher) handleEvent(ctx context.Context, evt gpiocdev.LineEvent) {
	value := 0.0
	if evt.Type == gpiocdev.LineEventRisingEdge {
		value = 1.0
	}
	if err := w.Submitter.SubmitValue(ctx, &rpc.Values{Name: w.Line.ExternalName, Value: value}); err != nil {
		log.Printf("gpio: %s: submit: %v", w.Line.ExternalName, err)
	}
}
