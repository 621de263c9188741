package collectors

import (
	"github.com/smazurov/panelnode/internal/events"
	"github.com/smazurov/panelnode/internal/metrics"
)

// EventCollector counts bus events as they happen.
type EventCollector struct {
	bus    *events.Bus
	unsubs []func()
}

// NewEventCollector creates a collector over bus.
func NewEventCollector(bus *events.Bus) *EventCollector {
	return &EventCollector{bus: bus}
}

// Start subscribes to button, run-state and display events. Run-state events
// only flip the suspended flag; the scheduler state comes from the
// KernelCollector sample.
func (c *EventCollector) Start() {
	c.unsubs = append(c.unsubs,
		c.bus.Subscribe(func(e events.ButtonEdgeEvent) {
			metrics.IncButtonEdges(e.Input)
		}),
		c.bus.Subscribe(func(e events.TaskStateChangedEvent) {
			metrics.IncTaskToggles(e.Task)
			metrics.SetTaskSuspended(e.Task, e.State == "suspended")
		}),
		c.bus.Subscribe(func(events.DisplayFrameEvent) {
			metrics.IncDisplayFrames()
		}),
	)
}

// Stop unsubscribes from the bus.
func (c *EventCollector) Stop() {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
}
