package exporters

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/panelnode/internal/events"
	"github.com/smazurov/panelnode/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter samples the per-task metric cache and publishes a
// TaskMetricsEvent for every task whose values moved since the last sample.
// Every resendEvery samples all tasks are published again so clients that
// connected in between catch up.
type SSEExporter struct {
	eventBus    EventPublisher
	interval    time.Duration
	resendEvery int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	last  map[string]metrics.TaskMetrics
	ticks int
}

// NewSSEExporter creates an exporter sampling once a second.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus:    eventBus,
		interval:    time.Second,
		resendEvery: 10,
		last:        make(map[string]metrics.TaskMetrics),
	}
}

// Start begins sampling until ctx is done or Stop is called. Starting a
// running exporter is a no-op.
func (s *SSEExporter) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop halts sampling and waits for the loop to exit. It is safe to call
// before Start and more than once.
func (s *SSEExporter) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *SSEExporter) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

// sample publishes changed tasks in name order.
func (s *SSEExporter) sample() {
	all := metrics.GetAllTaskMetrics()

	s.ticks++
	full := s.resendEvery > 0 && s.ticks%s.resendEvery == 0

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		cur := *all[name]
		if prev, seen := s.last[name]; seen && prev == cur && !full {
			continue
		}
		s.last[name] = cur
		s.eventBus.Publish(events.TaskMetricsEvent{
			EventType: "task_metrics",
			Task:      name,
			State:     cur.State,
			Suspended: cur.Suspended,
			Toggles:   cur.Toggles,
			Faults:    cur.Faults,
		})
	}

	for name := range s.last {
		if _, ok := all[name]; !ok {
			delete(s.last, name)
		}
	}
}

// EventTypes returns the SSE event names this exporter produces, keyed the
// way huma's sse.Register expects.
func EventTypes() map[string]any {
	return map[string]any{
		"task-metrics": events.TaskMetricsEvent{},
	}
}
