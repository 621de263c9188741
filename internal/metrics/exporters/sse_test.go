package exporters

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/panelnode/internal/events"
	"github.com/smazurov/panelnode/internal/metrics"
)

type recordingBus struct {
	mu        sync.Mutex
	events    []events.TaskMetricsEvent
	published chan struct{}
}

func newRecordingBus() *recordingBus {
	return &recordingBus{published: make(chan struct{}, 100)}
}

func (b *recordingBus) Publish(ev events.Event) {
	tme, ok := ev.(events.TaskMetricsEvent)
	if !ok {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, tme)
	b.mu.Unlock()
	select {
	case b.published <- struct{}{}:
	default:
	}
}

// take returns and clears the events recorded for task.
func (b *recordingBus) take(task string) []events.TaskMetricsEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.TaskMetricsEvent
	rest := b.events[:0]
	for _, ev := range b.events {
		if ev.Task == task {
			out = append(out, ev)
		} else {
			rest = append(rest, ev)
		}
	}
	b.events = rest
	return out
}

func TestSampleOnlyPublishesChanges(t *testing.T) {
	task := "sample-changes"
	metrics.DeleteTaskMetrics(task)
	defer metrics.DeleteTaskMetrics(task)

	bus := newRecordingBus()
	exporter := NewSSEExporter(bus)
	exporter.resendEvery = 0

	metrics.SetTaskState(task, "suspended", true)
	metrics.IncTaskToggles(task)
	metrics.SetTaskFaults(task, 2)

	exporter.sample()
	got := bus.take(task)
	if len(got) != 1 {
		t.Fatalf("first sample published %d events, want 1", len(got))
	}
	ev := got[0]
	if ev.EventType != "task_metrics" || ev.State != "suspended" || !ev.Suspended {
		t.Errorf("event = %+v", ev)
	}
	if ev.Toggles != 1 || ev.Faults != 2 {
		t.Errorf("Toggles = %v Faults = %v, want 1 and 2", ev.Toggles, ev.Faults)
	}

	exporter.sample()
	if got := bus.take(task); len(got) != 0 {
		t.Errorf("unchanged task republished: %+v", got)
	}

	metrics.SetTaskState(task, "ready", false)
	exporter.sample()
	got = bus.take(task)
	if len(got) != 1 || got[0].Suspended {
		t.Errorf("after resume got %+v", got)
	}
}

func TestSampleResendsPeriodically(t *testing.T) {
	task := "sample-resend"
	metrics.DeleteTaskMetrics(task)
	defer metrics.DeleteTaskMetrics(task)
	metrics.SetTaskState(task, "blocked", false)

	bus := newRecordingBus()
	exporter := NewSSEExporter(bus)
	exporter.resendEvery = 3

	for range 6 {
		exporter.sample()
	}
	// First sample, then ticks 3 and 6
	if got := bus.take(task); len(got) != 3 {
		t.Errorf("published %d events over 6 samples, want 3", len(got))
	}
}

func TestSampleForgetsDeletedTasks(t *testing.T) {
	task := "sample-deleted"
	metrics.SetTaskState(task, "ready", false)

	bus := newRecordingBus()
	exporter := NewSSEExporter(bus)
	exporter.resendEvery = 0

	exporter.sample()
	metrics.DeleteTaskMetrics(task)
	exporter.sample()

	if _, ok := exporter.last[task]; ok {
		t.Error("deleted task still tracked")
	}
	if got := bus.take(task); len(got) != 1 {
		t.Errorf("published %d events, want 1", len(got))
	}

	// Coming back counts as a change
	metrics.SetTaskState(task, "ready", false)
	defer metrics.DeleteTaskMetrics(task)
	exporter.sample()
	if got := bus.take(task); len(got) != 1 {
		t.Errorf("returning task published %d events, want 1", len(got))
	}
}

func TestExporterStartStop(t *testing.T) {
	task := "exporter-loop"
	metrics.SetTaskFaults(task, 1)
	defer metrics.DeleteTaskMetrics(task)

	bus := newRecordingBus()
	exporter := NewSSEExporter(bus)
	exporter.interval = 10 * time.Millisecond

	// Stop before Start is harmless
	exporter.Stop()

	exporter.Start(context.Background())
	exporter.Start(context.Background())

	select {
	case <-bus.published:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for a sample")
	}

	exporter.Stop()
	exporter.Stop()

	bus.mu.Lock()
	before := len(bus.events)
	bus.mu.Unlock()

	metrics.SetTaskFaults(task, 5)
	time.Sleep(30 * time.Millisecond)

	bus.mu.Lock()
	after := len(bus.events)
	bus.mu.Unlock()
	if after != before {
		t.Errorf("events published after Stop: %d -> %d", before, after)
	}
}

func TestEventTypes(t *testing.T) {
	if _, ok := EventTypes()["task-metrics"]; !ok {
		t.Error("expected task-metrics event type")
	}
}
