package registry

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/smazurov/panelnode/internal/kernel"
)

type fakeHandle struct {
	name  string
	state RunState
}

func (f *fakeHandle) Name() string       { return f.name }
func (f *fakeHandle) RequestPause()      { f.state = RunStateSuspended }
func (f *fakeHandle) RequestResume()     { f.state = RunStateRunning }
func (f *fakeHandle) RunState() RunState { return f.state }

func TestRegisterBecomesReady(t *testing.T) {
	r := New(SlotIndicator, SlotPulse)

	if r.IsReady() {
		t.Fatal("registry should not be ready before registration")
	}

	if err := r.Register(SlotIndicator, &fakeHandle{name: "LED_Task"}); err != nil {
		t.Fatalf("Register(indicator) failed: %v", err)
	}
	if r.IsReady() {
		t.Fatal("registry should not be ready with one of two handles")
	}

	if err := r.Register(SlotPulse, &fakeHandle{name: "Buzzer_Task"}); err != nil {
		t.Fatalf("Register(pulse) failed: %v", err)
	}

	select {
	case <-r.Ready():
	case <-time.After(time.Second):
		t.Fatal("Ready() was not closed after all slots registered")
	}
}

func TestRegisterErrors(t *testing.T) {
	r := New(SlotIndicator)
	if err := r.Register(SlotIndicator, &fakeHandle{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name    string
		slot    Slot
		handle  Handle
		wantErr error
	}{
		{"write twice", SlotIndicator, &fakeHandle{}, ErrAlreadyRegistered},
		{"unknown slot", SlotPulse, &fakeHandle{}, ErrUnknownSlot},
		{"nil handle", SlotIndicator, nil, ErrNilHandle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.slot, tt.handle)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLookupAndState(t *testing.T) {
	r := New(SlotIndicator, SlotPulse)
	h := &fakeHandle{name: "LED_Task", state: RunStateRunning}
	_ = r.Register(SlotIndicator, h)

	got, ok := r.Lookup(SlotIndicator)
	if !ok || got != h {
		t.Fatalf("Lookup(indicator) = %v, %v", got, ok)
	}
	if _, ok := r.Lookup(SlotPulse); ok {
		t.Error("Lookup(pulse) should fail before registration")
	}

	if s := r.State(SlotPulse); s != RunStateUnknown {
		t.Errorf("State(pulse) = %v, want unknown", s)
	}
	h.RequestPause()
	if s := r.State(SlotIndicator); s != RunStateSuspended {
		t.Errorf("State(indicator) = %v, want suspended", s)
	}
}

func TestEmptyRegistryIsReady(t *testing.T) {
	if !New().IsReady() {
		t.Error("a registry with no slots should be ready immediately")
	}
}

func TestRunStateLabels(t *testing.T) {
	tests := []struct {
		state RunState
		label string
		str   string
	}{
		{RunStateRunning, "Run", "running"},
		{RunStateSuspended, "Suspended", "suspended"},
		{RunStateUnknown, "unavailable", "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.Label(); got != tt.label {
			t.Errorf("%v.Label() = %q, want %q", tt.state, got, tt.label)
		}
		if got := tt.state.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
	}
}

func TestFromTask(t *testing.T) {
	k := kernel.New(kernel.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	defer k.Stop()

	task, err := k.CreateTask(func(tc *kernel.Context) {
		for {
			tc.Delay(10 * time.Millisecond)
		}
	}, "LED_Task", 256, 1)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	k.Launch()

	h := FromTask(task)
	if h.Name() != "LED_Task" {
		t.Errorf("Name() = %q", h.Name())
	}
	if h.RunState() != RunStateRunning {
		t.Errorf("blocked task should read as running, got %v", h.RunState())
	}

	h.RequestPause()
	if h.RunState() != RunStateSuspended {
		t.Errorf("expected suspended, got %v", h.RunState())
	}

	h.RequestResume()
	if h.RunState() != RunStateRunning {
		t.Errorf("expected running after resume, got %v", h.RunState())
	}

	nilHandle := FromTask(nil)
	nilHandle.RequestPause()
	if nilHandle.RunState() != RunStateUnknown {
		t.Errorf("nil task handle should be unknown, got %v", nilHandle.RunState())
	}
}
