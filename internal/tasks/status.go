package tasks

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/smazurov/panelnode/internal/display"
	"github.com/smazurov/panelnode/internal/events"
	"github.com/smazurov/panelnode/internal/kernel"
	"github.com/smazurov/panelnode/internal/registry"
)

// StateSource is the read-only view of the registry the status task needs.
type StateSource interface {
	Ready() <-chan struct{}
	State(slot registry.Slot) registry.RunState
}

// StatusLine is one row of the status screen.
type StatusLine struct {
	Label string // "LED", "Buzz"
	Slot  registry.Slot
}

// DefaultStatusLines is the two-row panel layout.
func DefaultStatusLines() []StatusLine {
	return []StatusLine{
		{Label: "LED", Slot: registry.SlotIndicator},
		{Label: "Buzz", Slot: registry.SlotPulse},
	}
}

// StatusConfig configures the status screen.
type StatusConfig struct {
	Lines      []StatusLine
	Period     time.Duration // default 250ms
	LineHeight int           // default 10px
}

// Status redraws the run-state of the controllable tasks.
type Status struct {
	disp   display.Display
	reg    StateSource
	bus    *events.Bus
	cfg    StatusConfig
	logger *slog.Logger

	announced bool
	frames    atomic.Uint64
}

// NewStatus creates the status task. It owns disp from here on. bus may be nil.
func NewStatus(disp display.Display, reg StateSource, bus *events.Bus, cfg StatusConfig, logger *slog.Logger) *Status {
	if cfg.Lines == nil {
		cfg.Lines = DefaultStatusLines()
	}
	if cfg.Period <= 0 {
		cfg.Period = 250 * time.Millisecond
	}
	if cfg.LineHeight <= 0 {
		cfg.LineHeight = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Status{disp: disp, reg: reg, bus: bus, cfg: cfg, logger: logger}
}

// Run is the task body. It does not look at any state until the registry is
// ready.
func (s *Status) Run(tc *kernel.Context) {
	tc.Wait(s.reg.Ready())
	if !s.announced {
		s.announced = true
		s.logger.Info("Status task started")
	}

	for {
		s.Render()
		tc.Delay(s.cfg.Period)
	}
}

// Render draws one full frame: clear, one line per row, present.
func (s *Status) Render() []string {
	texts := make([]string, len(s.cfg.Lines))
	for i, l := range s.cfg.Lines {
		texts[i] = FormatLine(l.Label, s.reg.State(l.Slot))
	}

	s.disp.Clear()
	for i, text := range texts {
		s.disp.DrawText(0, i*s.cfg.LineHeight, 1, text)
	}
	s.disp.Present()

	seq := s.frames.Add(1)
	s.bus.Publish(events.DisplayFrameEvent{
		Lines:     texts,
		Sequence:  seq,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return texts
}

// Frames returns how many frames have been presented.
func (s *Status) Frames() uint64 {
	return s.frames.Load()
}

// FormatLine renders one status row, e.g. "Task LED: Run".
func FormatLine(label string, state registry.RunState) string {
	return fmt.Sprintf("Task %s: %s", label, state.Label())
}
