// Package node brings the panel up: it shows the splash screen, creates the
// four tasks, fills the registry and hands control to the kernel.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/smazurov/panelnode/internal/display"
	"github.com/smazurov/panelnode/internal/events"
	"github.com/smazurov/panelnode/internal/kernel"
	"github.com/smazurov/panelnode/internal/periph"
	"github.com/smazurov/panelnode/internal/registry"
	"github.com/smazurov/panelnode/internal/tasks"
)

// Task names as they appear in logs, metrics and the API.
const (
	TaskLED    = "LED_Task"
	TaskBuzzer = "Buzzer_Task"
	TaskButton = "Button_Task"
	TaskOLED   = "OLED_Task"
)

// Task priorities. The button task outranks the periodic work.
const (
	PriorityNormal  kernel.Priority = 1
	PriorityControl kernel.Priority = 2
)

const (
	defaultStackSize = 256
	splashText       = "Display Init..."
	failureText      = "Task error!"
)

var (
	// ErrTaskCreate is returned by Start when any task could not be created.
	ErrTaskCreate = errors.New("node: task creation failed")

	// ErrInjectUnsupported is returned by Press on backends without software inputs.
	ErrInjectUnsupported = errors.New("node: peripheral backend does not accept injected input")
)

// Config tunes the tasks. Zero values take the panel defaults.
type Config struct {
	StackSize  int
	SplashHold time.Duration
	Indicator  tasks.IndicatorConfig
	Pulse      tasks.PulseConfig
	Control    tasks.ControlConfig
	Status     tasks.StatusConfig
}

// withChannels points task wiring left unset at the controller's channels,
// in mapping order: every output takes part in the indicator cycle, the first
// PWM channel pulses and the first two inputs toggle the indicator and the
// buzzer. A controller without channels leaves the task defaults in place.
func (c Config) withChannels(ch periph.Channels, logger *slog.Logger) Config {
	if c.Indicator.Channels == nil && len(ch.Outputs) > 0 {
		c.Indicator.Channels = slices.Clone(ch.Outputs)
	}
	if c.Pulse.Channel == "" && len(ch.PWM) > 0 {
		c.Pulse.Channel = ch.PWM[0]
		if len(ch.PWM) > 1 {
			logger.Warn("Only the first PWM channel is pulsed", "channel", ch.PWM[0], "ignored", ch.PWM[1:])
		}
	}
	if c.Control.Bindings == nil && len(ch.Inputs) > 0 {
		defaults := tasks.DefaultBindings()
		for i, input := range ch.Inputs {
			if i == len(defaults) {
				logger.Warn("Inputs beyond the two buttons are not monitored", "ignored", ch.Inputs[i:])
				break
			}
			b := defaults[i]
			b.Input = input
			c.Control.Bindings = append(c.Control.Bindings, b)
		}
	}
	return c
}

// Node owns the kernel, the registry and the four task bodies.
type Node struct {
	kernel *kernel.Kernel
	reg    *registry.Registry
	periph periph.Controller
	disp   display.Display
	cfg    Config
	logger *slog.Logger

	indicator *tasks.Indicator
	pulse     *tasks.Pulse
	control   *tasks.Control
	status    *tasks.Status
}

// New wires the task bodies. Nothing is drawn or scheduled until Start.
func New(k *kernel.Kernel, ctrl periph.Controller, disp display.Display, bus *events.Bus, cfg Config, logger *slog.Logger) (*Node, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StackSize == 0 {
		cfg.StackSize = defaultStackSize
	}
	cfg = cfg.withChannels(ctrl.Available(), logger)

	reg := registry.New(registry.SlotIndicator, registry.SlotPulse)

	indicator, err := tasks.NewIndicator(ctrl, cfg.Indicator, logger.With("task", TaskLED))
	if err != nil {
		return nil, fmt.Errorf("indicator: %w", err)
	}

	return &Node{
		kernel:    k,
		reg:       reg,
		periph:    ctrl,
		disp:      disp,
		cfg:       cfg,
		logger:    logger,
		indicator: indicator,
		pulse:     tasks.NewPulse(ctrl, cfg.Pulse, logger.With("task", TaskBuzzer)),
		control:   tasks.NewControl(ctrl, reg, bus, cfg.Control, logger.With("task", TaskButton)),
		status:    tasks.NewStatus(disp, reg, bus, cfg.Status, logger.With("task", TaskOLED)),
	}, nil
}

// Start shows the splash screen, creates every task and registers the
// controllable ones. Every creation is attempted; if any fails the display
// shows an error and ErrTaskCreate is returned. The caller must treat that
// as fatal.
func (n *Node) Start() error {
	n.show(splashText)
	n.logger.Info("Hardware ready", "backend", n.periph.Backend(), "channels", n.periph.Available())
	if n.cfg.SplashHold > 0 {
		time.Sleep(n.cfg.SplashHold)
	}

	specs := []struct {
		entry kernel.Entry
		name  string
		prio  kernel.Priority
	}{
		{n.indicator.Run, TaskLED, PriorityNormal},
		{n.pulse.Run, TaskBuzzer, PriorityNormal},
		{n.control.Run, TaskButton, PriorityControl},
		{n.status.Run, TaskOLED, PriorityNormal},
	}

	created := make(map[string]*kernel.Task, len(specs))
	var errs []error
	for _, s := range specs {
		t, err := n.kernel.CreateTask(s.entry, s.name, n.cfg.StackSize, s.prio)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		created[s.name] = t
	}

	if len(errs) > 0 {
		err := fmt.Errorf("%w: %w", ErrTaskCreate, errors.Join(errs...))
		n.show(failureText)
		n.logger.Error("Failed to create one or more tasks", "error", err)
		return err
	}

	if err := n.reg.Register(registry.SlotIndicator, registry.FromTask(created[TaskLED])); err != nil {
		return err
	}
	if err := n.reg.Register(registry.SlotPulse, registry.FromTask(created[TaskBuzzer])); err != nil {
		return err
	}

	n.logger.Info("Tasks created", "count", len(created))
	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (n *Node) Run(ctx context.Context) error {
	n.logger.Info("Scheduler starting", "tick", n.kernel.TickPeriod())
	err := n.kernel.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (n *Node) show(text string) {
	n.disp.Clear()
	n.disp.DrawText(0, 0, 1, text)
	n.disp.Present()
}

// MinPressHold is the shortest hold the Control task is certain to see: one
// poll period plus a tick of scheduling slack.
func (n *Node) MinPressHold() time.Duration {
	return n.control.PollPeriod() + n.kernel.TickPeriod()
}

// Press simulates a button tap. The Control task picks it up on its next
// poll, the same as a physical press. Holds shorter than MinPressHold are
// lengthened so the press cannot slip between polls; the applied hold is
// returned.
func (n *Node) Press(input string, hold time.Duration) (time.Duration, error) {
	inj, ok := n.periph.(periph.Injector)
	if !ok {
		return 0, ErrInjectUnsupported
	}
	hold = max(hold, n.MinPressHold())
	if err := inj.Tap(input, hold); err != nil {
		return 0, err
	}
	return hold, nil
}

// Uptime returns kernel time since the scheduler started.
func (n *Node) Uptime() time.Duration { return n.kernel.Now() }

// Kernel returns the scheduler.
func (n *Node) Kernel() *kernel.Kernel { return n.kernel }

// Registry returns the task registry.
func (n *Node) Registry() *registry.Registry { return n.reg }

// Peripherals returns the peripheral controller.
func (n *Node) Peripherals() periph.Controller { return n.periph }

// Indicator returns the indicator task body.
func (n *Node) Indicator() *tasks.Indicator { return n.indicator }

// Pulse returns the pulse task body.
func (n *Node) Pulse() *tasks.Pulse { return n.pulse }

// Control returns the button task body.
func (n *Node) Control() *tasks.Control { return n.control }

// Status returns the status task body.
func (n *Node) Status() *tasks.Status { return n.status }

// Frame returns the last frame presented on the display, if the device keeps one.
func (n *Node) Frame() (display.Frame, bool) {
	snap, ok := n.disp.(display.Snapshotter)
	if !ok {
		return display.Frame{}, false
	}
	return snap.LastFrame()
}
