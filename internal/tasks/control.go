package tasks

import (
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/smazurov/panelnode/internal/events"
	"github.com/smazurov/panelnode/internal/kernel"
	"github.com/smazurov/panelnode/internal/periph"
	"github.com/smazurov/panelnode/internal/registry"
)

// EdgeDetector remembers the level seen on the previous poll.
type EdgeDetector struct {
	previous bool
}

// Update stores level and reports whether it is a rising edge.
func (e *EdgeDetector) Update(level bool) bool {
	rising := level && !e.previous
	e.previous = level
	return rising
}

// Previous returns the level seen on the last Update.
func (e *EdgeDetector) Previous() bool {
	return e.previous
}

// Binding ties an input to the task it toggles.
type Binding struct {
	Input string
	Slot  registry.Slot
	Label string // used in log lines, e.g. "LED"
}

// DefaultBindings is the panel wiring: A toggles the indicator, B the buzzer.
func DefaultBindings() []Binding {
	return []Binding{
		{Input: "button_a", Slot: registry.SlotIndicator, Label: "LED"},
		{Input: "button_b", Slot: registry.SlotPulse, Label: "Buzzer"},
	}
}

// HandleSource resolves a slot to its control handle.
type HandleSource interface {
	Lookup(slot registry.Slot) (registry.Handle, bool)
}

// ControlConfig configures the button monitor.
type ControlConfig struct {
	Bindings  []Binding
	Poll      time.Duration // default 100ms, doubles as debounce window
	ActiveLow bool          // pull-up wiring: pressed reads low
}

// Control polls the buttons and toggles the bound task on each rising edge.
// It is the only component that changes run-state.
type Control struct {
	in     periph.Inputs
	reg    HandleSource
	bus    *events.Bus
	cfg    ControlConfig
	logger *slog.Logger

	detectors []EdgeDetector
	edges     atomic.Uint64
	toggles   atomic.Uint64
}

// NewControl creates a button monitor. bus may be nil.
func NewControl(in periph.Inputs, reg HandleSource, bus *events.Bus, cfg ControlConfig, logger *slog.Logger) *Control {
	if cfg.Bindings == nil {
		cfg.Bindings = DefaultBindings()
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Control{
		in:        in,
		reg:       reg,
		bus:       bus,
		cfg:       cfg,
		logger:    logger,
		detectors: make([]EdgeDetector, len(cfg.Bindings)),
	}
}

// Run is the task body.
func (c *Control) Run(tc *kernel.Context) {
	for {
		c.Poll()
		tc.Delay(c.cfg.Poll)
	}
}

// Poll samples every input once and handles rising edges.
func (c *Control) Poll() {
	for i, b := range c.cfg.Bindings {
		pressed := c.in.ReadInput(b.Input)
		if c.cfg.ActiveLow {
			pressed = !pressed
		}
		if c.detectors[i].Update(pressed) {
			c.edges.Add(1)
			c.toggle(b)
		}
	}
}

func (c *Control) toggle(b Binding) {
	h, ok := c.reg.Lookup(b.Slot)
	c.bus.Publish(events.ButtonEdgeEvent{
		Input:     b.Input,
		Target:    string(b.Slot),
		Handled:   ok,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if !ok {
		c.logger.Debug("Button edge ignored, no handle", "input", b.Input, "slot", b.Slot)
		return
	}

	var next registry.RunState
	switch h.RunState() {
	case registry.RunStateUnknown:
		c.logger.Debug("Button edge ignored, handle not valid", "input", b.Input, "slot", b.Slot)
		return
	case registry.RunStateSuspended:
		h.RequestResume()
		next = registry.RunStateRunning
		c.logger.Info(b.Label+" task resumed", "task", h.Name(), "input", b.Input)
	default:
		h.RequestPause()
		next = registry.RunStateSuspended
		c.logger.Info(b.Label+" task suspended", "task", h.Name(), "input", b.Input)
	}

	c.toggles.Add(1)
	c.bus.Publish(events.TaskStateChangedEvent{
		Task:      h.Name(),
		Slot:      string(b.Slot),
		State:     next.String(),
		Input:     b.Input,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// PollPeriod returns the time between input samples. A press shorter than
// this can fall between two polls.
func (c *Control) PollPeriod() time.Duration {
	return c.cfg.Poll
}

// Edges returns how many rising edges have been seen.
func (c *Control) Edges() uint64 {
	return c.edges.Load()
}

// Toggles returns how many run-state changes have been requested.
func (c *Control) Toggles() uint64 {
	return c.toggles.Load()
}

// Bindings returns the inputs being monitored and the slots they toggle.
func (c *Control) Bindings() []Binding {
	return slices.Clone(c.cfg.Bindings)
}
