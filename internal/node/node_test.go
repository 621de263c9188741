package node

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/smazurov/panelnode/internal/display"
	"github.com/smazurov/panelnode/internal/events"
	"github.com/smazurov/panelnode/internal/kernel"
	"github.com/smazurov/panelnode/internal/periph"
	"github.com/smazurov/panelnode/internal/registry"
	"github.com/smazurov/panelnode/internal/tasks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type rig struct {
	node *Node
	k    *kernel.Kernel
	sim  *periph.Sim
	disp *display.Memory
}

func newRig(t *testing.T, opts kernel.Options) *rig {
	t.Helper()
	opts.Logger = discardLogger()
	k := kernel.New(opts)
	t.Cleanup(k.Stop)

	sim := periph.NewSim(periph.SimOptions{
		Outputs:   []string{"red", "green", "blue"},
		PWM:       []string{"buzzer"},
		Inputs:    []string{"button_a", "button_b"},
		IdleInput: true,
		Clock:     k.Now,
	})
	mem := display.NewMemory(display.DefaultWidth, display.DefaultHeight)

	n, err := New(k, sim, mem, events.New(), Config{
		Control: tasks.ControlConfig{ActiveLow: true},
	}, discardLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return &rig{node: n, k: k, sim: sim, disp: mem}
}

func (r *rig) lines(t *testing.T) []string {
	t.Helper()
	f, ok := r.disp.LastFrame()
	if !ok {
		t.Fatal("nothing presented yet")
	}
	return f.Texts()
}

func (r *rig) tap(input string) {
	r.sim.Press(input)
	r.k.Advance(100)
	r.sim.Release(input)
}

func TestStartCreatesTasks(t *testing.T) {
	r := newRig(t, kernel.Options{})

	if err := r.node.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if got := r.lines(t); len(got) != 1 || got[0] != "Display Init..." {
		t.Errorf("splash = %v", got)
	}
	if !r.node.Registry().IsReady() {
		t.Error("registry should be ready after Start")
	}

	want := []struct {
		name string
		prio int
	}{
		{TaskLED, 1}, {TaskBuzzer, 1}, {TaskButton, 2}, {TaskOLED, 1},
	}
	got := r.node.Tasks()
	if len(got) != len(want) {
		t.Fatalf("Tasks() = %+v", got)
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Priority != w.prio || got[i].StackSize != 256 {
			t.Errorf("task %d = %+v, want %s prio %d", i, got[i], w.name, w.prio)
		}
	}
	if got[0].Slot != "indicator" || got[1].Slot != "pulse" || got[2].Slot != "" {
		t.Errorf("slots = %q %q %q", got[0].Slot, got[1].Slot, got[2].Slot)
	}

	r.k.Advance(1200)

	if steps := r.node.Indicator().Steps(); steps != 2 {
		t.Errorf("indicator steps = %d, want 2", steps)
	}
	if cycles := r.node.Pulse().Cycles(); cycles != 1 {
		t.Errorf("pulse cycles = %d, want 1", cycles)
	}
	for _, slot := range []registry.Slot{registry.SlotIndicator, registry.SlotPulse} {
		if s := r.node.Registry().State(slot); s != registry.RunStateRunning {
			t.Errorf("%s run-state = %v, want running", slot, s)
		}
	}

	lines := r.lines(t)
	if len(lines) != 2 || lines[0] != "Task LED: Run" || lines[1] != "Task Buzz: Run" {
		t.Errorf("status lines = %v", lines)
	}
}

func TestStartFailure(t *testing.T) {
	r := newRig(t, kernel.Options{MaxTasks: 3})

	err := r.node.Start()
	if !errors.Is(err, ErrTaskCreate) {
		t.Fatalf("Start() error = %v, want ErrTaskCreate", err)
	}
	if !errors.Is(err, kernel.ErrTooManyTasks) {
		t.Errorf("Start() error = %v, should carry the kernel cause", err)
	}
	if got := r.lines(t); len(got) != 1 || got[0] != "Task error!" {
		t.Errorf("display = %v, want the error screen", got)
	}
	if r.node.Registry().IsReady() {
		t.Error("registry must stay empty after a failed bring-up")
	}
}

func TestButtonSuspendsIndicator(t *testing.T) {
	r := newRig(t, kernel.Options{})
	if err := r.node.Start(); err != nil {
		t.Fatal(err)
	}
	r.k.Advance(1200)

	lit := r.node.Indicator().Current()
	r.tap("button_a")

	if s := r.node.Registry().State(registry.SlotIndicator); s != registry.RunStateSuspended {
		t.Fatalf("indicator run-state = %v, want suspended", s)
	}
	if s := r.k.Lookup(TaskLED).State(); s != kernel.StateSuspended {
		t.Errorf("LED_Task state = %v, want suspended", s)
	}

	cyclesBefore := r.node.Pulse().Cycles()
	r.k.Advance(1000)

	// Outputs stay frozen while suspended
	if got := r.node.Indicator().Current(); got != lit {
		t.Errorf("indicator moved to %s while suspended", got)
	}
	if steps := r.node.Indicator().Steps(); steps != 2 {
		t.Errorf("indicator steps = %d, want 2", steps)
	}
	if !r.sim.Output(lit) {
		t.Errorf("%s should stay lit", lit)
	}
	if r.node.Pulse().Cycles() <= cyclesBefore {
		t.Error("pulse should keep cycling while indicator is suspended")
	}

	lines := r.lines(t)
	if len(lines) != 2 || lines[0] != "Task LED: Suspended" || lines[1] != "Task Buzz: Run" {
		t.Errorf("status lines = %v", lines)
	}

	r.tap("button_a")
	if s := r.node.Registry().State(registry.SlotIndicator); s != registry.RunStateRunning {
		t.Fatalf("indicator run-state = %v, want running", s)
	}
	r.k.Advance(600)
	if steps := r.node.Indicator().Steps(); steps <= 2 {
		t.Errorf("indicator steps = %d, want progress after resume", steps)
	}
	if toggles := r.node.Control().Toggles(); toggles != 2 {
		t.Errorf("toggles = %d, want 2", toggles)
	}
}

func TestButtonSuspendsPulse(t *testing.T) {
	r := newRig(t, kernel.Options{})
	if err := r.node.Start(); err != nil {
		t.Fatal(err)
	}
	r.k.Advance(50) // buzzer on phase

	r.tap("button_b")
	if !r.node.Suspended(registry.SlotPulse) {
		t.Fatal("pulse should be suspended")
	}

	cycles := r.node.Pulse().Cycles()
	r.k.Advance(2000)
	if got := r.node.Pulse().Cycles(); got != cycles {
		t.Errorf("pulse cycles = %d, want %d while suspended", got, cycles)
	}

	lines := r.lines(t)
	if len(lines) != 2 || lines[0] != "Task LED: Run" || lines[1] != "Task Buzz: Suspended" {
		t.Errorf("status lines = %v", lines)
	}
}

func TestControlPreemptsSameTickWork(t *testing.T) {
	r := newRig(t, kernel.Options{})
	if err := r.node.Start(); err != nil {
		t.Fatal(err)
	}
	r.k.Advance(1450)

	// The next poll and the indicator's third step both fall on 1500ms.
	// The button task outranks the indicator and suspends it first.
	r.sim.Press("button_a")
	r.k.Advance(50)
	r.sim.Release("button_a")

	if !r.node.Suspended(registry.SlotIndicator) {
		t.Fatal("indicator should be suspended")
	}
	if steps := r.node.Indicator().Steps(); steps != 2 {
		t.Errorf("indicator steps = %d, want 2", steps)
	}
}

func TestHeldButtonTogglesOnce(t *testing.T) {
	r := newRig(t, kernel.Options{})
	if err := r.node.Start(); err != nil {
		t.Fatal(err)
	}

	r.sim.Press("button_a")
	r.k.Advance(1000)
	r.sim.Release("button_a")
	r.k.Advance(200)

	if toggles := r.node.Control().Toggles(); toggles != 1 {
		t.Errorf("toggles = %d, want 1", toggles)
	}
	if !r.node.Suspended(registry.SlotIndicator) {
		t.Error("indicator should be suspended after one press")
	}
}

func TestPressWithoutInjector(t *testing.T) {
	k := kernel.New(kernel.Options{Logger: discardLogger()})
	t.Cleanup(k.Stop)

	ctrl, err := periph.New(periph.Config{Backend: periph.BackendNoop, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	n, err := New(k, ctrl, display.NewMemory(128, 64), nil, Config{}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := n.Press("button_a", 0); !errors.Is(err, ErrInjectUnsupported) {
		t.Errorf("Press() error = %v, want ErrInjectUnsupported", err)
	}
}
