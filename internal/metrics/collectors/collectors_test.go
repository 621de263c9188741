package collectors

import (
	"context"
	"testing"
	"time"

	"github.com/smazurov/panelnode/internal/events"
	"github.com/smazurov/panelnode/internal/metrics"
	"github.com/smazurov/panelnode/internal/node"
)

type fakeSource struct {
	tasks []node.TaskStatus
}

func (f *fakeSource) Tasks() []node.TaskStatus { return f.tasks }

func TestKernelCollectorCollect(t *testing.T) {
	defer metrics.DeleteTaskMetrics("collect-led")
	defer metrics.DeleteTaskMetrics("collect-buzz")

	src := &fakeSource{tasks: []node.TaskStatus{
		{Name: "collect-led", State: "suspended", Faults: 2},
		{Name: "collect-buzz", State: "blocked"},
	}}
	c := NewKernelCollector(src, func() time.Duration { return 3 * time.Second })
	c.Collect()

	led := metrics.GetTaskMetrics("collect-led")
	if led == nil || !led.Suspended || led.Faults != 2 {
		t.Errorf("collect-led = %+v", led)
	}
	buzz := metrics.GetTaskMetrics("collect-buzz")
	if buzz == nil || buzz.Suspended || buzz.State != "blocked" {
		t.Errorf("collect-buzz = %+v", buzz)
	}
}

func TestKernelCollectorStartStop(t *testing.T) {
	defer metrics.DeleteTaskMetrics("startstop")

	c := NewKernelCollector(&fakeSource{tasks: []node.TaskStatus{{Name: "startstop", State: "ready"}}}, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for metrics.GetTaskMetrics("startstop") == nil {
		if time.Now().After(deadline) {
			t.Fatal("first sample not taken")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := c.Stop(); err != nil {
		t.Errorf("Stop() = %v", err)
	}
}

func TestEventCollectorCountsToggles(t *testing.T) {
	task := "event-led"
	metrics.DeleteTaskMetrics(task)
	defer metrics.DeleteTaskMetrics(task)

	bus := events.New()
	c := NewEventCollector(bus)
	c.Start()
	defer c.Stop()

	metrics.SetTaskState(task, "blocked", false)
	bus.Publish(events.TaskStateChangedEvent{Task: task, State: "suspended"})

	deadline := time.Now().Add(time.Second)
	for {
		m := metrics.GetTaskMetrics(task)
		if m != nil && m.Toggles == 1 && m.Suspended {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics = %+v, want one toggle and suspended", m)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTaskStateKeepsSchedulerVocabulary(t *testing.T) {
	task := "vocab-led"
	metrics.DeleteTaskMetrics(task)
	defer metrics.DeleteTaskMetrics(task)

	bus := events.New()
	ec := NewEventCollector(bus)
	ec.Start()
	defer ec.Stop()
	kc := NewKernelCollector(&fakeSource{tasks: []node.TaskStatus{{Name: task, State: "blocked"}}}, nil)

	kc.Collect()
	bus.Publish(events.TaskStateChangedEvent{Task: task, State: "running"})
	bus.Publish(events.TaskStateChangedEvent{Task: task, State: "suspended"})

	deadline := time.Now().Add(time.Second)
	for {
		m := metrics.GetTaskMetrics(task)
		if m != nil && m.Toggles == 2 {
			if m.State != "blocked" {
				t.Errorf("State = %q after run-state events, want scheduler state blocked", m.State)
			}
			if !m.Suspended {
				t.Error("Suspended should follow the last run-state event")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics = %+v, want two toggles", m)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
