// Package supervisor implements C10, spec.md §4.10: the process
// entry point's start-up sequence and the fan-out/join of every other
// component, using golang.org/x/sync/errgroup the way
// samsamfire-gocanopen and several other pack repos coordinate
// concurrent I/O loops.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hostmobility/insight-agent/internal/buildinfo"
	"github.com/hostmobility/insight-agent/internal/canbus"
	"github.com/hostmobility/insight-agent/internal/config"
	"github.com/hostmobility/insight-agent/internal/control"
	"github.com/hostmobility/insight-agent/internal/dbc"
	"github.com/hostmobility/insight-agent/internal/dispatch"
	"github.com/hostmobility/insight-agent/internal/gpio"
	"github.com/hostmobility/insight-agent/internal/heartbeat"
	"github.com/hostmobility/insight-agent/internal/identity"
	"github.com/hostmobility/insight-agent/internal/rpc"
	"github.com/hostmobility/insight-agent/internal/sendqueue"
	"github.com/hostmobility/insight-agent/internal/submit"
	"github.com/hostmobility/insight-agent/internal/transport"
)

// Supervisor owns the process lifetime: load, connect, report, spawn,
// await, clean up.
type Supervisor struct {
	ConfDir string
}

func New(confDir string) *Supervisor {
	return &Supervisor{ConfDir: confDir}
}

// Run implements the six steps of spec.md §4.10. It returns only if
// every spawned task returns without the dispatcher having already
// exited the process.
func (s *Supervisor) Run(ctx context.Context) error {
	id, err := identity.Load(s.ConfDir)
	if err != nil {
		return fmt.Errorf("supervisor: load identity: %w", err)
	}

	cfg, err := config.Load(s.ConfDir)
	if err != nil {
		return fmt.Errorf("supervisor: load config: %w", err)
	}

	cc, err := transport.NewChannel(id)
	if err != nil {
		return fmt.Errorf("supervisor: build channel: %w", err)
	}
	defer cc.Close()

	agentClient := rpc.NewAgentClient(cc)
	controlClient := rpc.NewRemoteControlClient(cc)

	var out *gpio.OutController
	if cfg.DigitalOut != nil && len(cfg.DigitalOut.Ports) > 0 {
		ports := make([]gpio.OutPort, len(cfg.DigitalOut.Ports))
		for i, p := range cfg.DigitalOut.Ports {
			ports[i] = gpio.OutPort{
				Line:         gpio.Line{InternalName: p.InternalName, ExternalName: p.ExternalName},
				DefaultState: p.DefaultState,
			}
		}
		out, err = gpio.NewOutController(ports)
		if err != nil {
			return fmt.Errorf("supervisor: open digital outputs: %w", err)
		}
		defer out.Close()
		out.RestoreDefaults()
	}

	session := control.New(controlClient, setterOf(out), restorerOf(out))
	disp := dispatch.New(s.ConfDir, durationS(cfg.SleepMinS), durationS(cfg.SleepMaxS), dispatch.Hooks{
		RestoreDefaults:    restoreDefaultsFunc(out),
		ReleaseControlGate: session.Arm,
	})

	if err := s.reportStartupState(ctx, cfg, id, agentClient, disp, session); err != nil {
		return fmt.Errorf("supervisor: start-up report: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	var db *dbc.Database
	if cfg.CAN != nil && cfg.CAN.DBCFile != "" {
		db, err = dbc.Load(cfg.CAN.DBCFile)
		if err != nil {
			return fmt.Errorf("supervisor: load dbc: %w", err)
		}
	}

	if cfg.CAN != nil && db != nil {
		queue := sendqueue.New()
		for _, port := range cfg.CAN.Ports {
			port := port
			listenOnly := true
			if port.ListenOnly != nil {
				listenOnly = *port.ListenOnly
			}
			watcher := canbus.New(port.Name, port.Bitrate, listenOnly, db, queue)
			g.Go(func() error { return logged("canbus:"+port.Name, watcher.Run(ctx)) })
		}

		sender := sendqueue.NewSender(queue, agentClient, disp)
		g.Go(func() error { return logged("sender", sender.Run(ctx)) })
	}

	if cfg.DigitalIn != nil {
		submitter := submit.New(agentClient, disp)
		for _, port := range cfg.DigitalIn.Ports {
			port := port
			w := gpio.NewInWatcher(gpio.Line{InternalName: port.InternalName, ExternalName: port.ExternalName}, submitter)
			g.Go(func() error { return logged("digital-in:"+port.ExternalName, w.Run(ctx)) })
		}
	}

	g.Go(func() error { return logged("control", session.Run(ctx)) })

	hb := heartbeat.New(agentClient, disp, durationS(cfg.HeartbeatS))
	g.Go(func() error { return logged("heartbeat", hb.Run(ctx)) })

	err = g.Wait()

	if out != nil {
		out.RestoreDefaults()
	}

	return err
}

// reportStartupState implements spec.md §4.10 step 4: force the
// control gate closed, send the state report and one measurement per
// digital input, then reopen the gate.
func (s *Supervisor) reportStartupState(ctx context.Context, cfg *config.Config, id identity.Identity, client *rpc.AgentClient, disp *dispatch.Dispatcher, session *control.Session) error {
	session.ForceBusy()
	defer session.ClearBusy()

	submitter := submit.New(client, disp)

	configMD5, err := transport.MD5File(cfg.Path())
	if err != nil {
		return fmt.Errorf("md5 config: %w", err)
	}

	state := &rpc.State{
		SwVersion: buildinfo.Version(),
		ConfigMD5: configMD5,
	}

	if cfg.CAN != nil && cfg.CAN.DBCFile != "" {
		dbcMD5, err := transport.MD5File(cfg.CAN.DBCFile)
		if err != nil {
			return fmt.Errorf("md5 dbc: %w", err)
		}
		state.DBCMD5 = &dbcMD5
	}

	if err := submitter.SubmitState(ctx, state); err != nil {
		return err
	}

	if cfg.DigitalIn == nil {
		return nil
	}

	for _, port := range cfg.DigitalIn.Ports {
		w := gpio.NewInWatcher(gpio.Line{InternalName: port.InternalName, ExternalName: port.ExternalName}, submitter)
		level, err := w.CurrentLevel(ctx)
		if err != nil {
			log.Printf("supervisor: read current level of %s: %v", port.ExternalName, err)
			continue
		}
		if err := submitter.SubmitValue(ctx, &rpc.Values{Name: port.ExternalName, Value: float64(level)}); err != nil {
			return err
		}
	}

	return nil
}

func restoreDefaultsFunc(out *gpio.OutController) func() {
	if out == nil {
		return nil
	}
	return out.RestoreDefaults
}

func restorerOf(out *gpio.OutController) control.Restorer {
	if out == nil {
		return nil
	}
	return out
}

func setterOf(out *gpio.OutController) control.Setter {
	if out == nil {
		return nil
	}
	return out
}

func durationS(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func logged(label string, err error) error {
	if err != nil {
		log.Printf("supervisor: %s: %v", label, err)
	}
	return err
}
