package kernel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testKernel(t *testing.T) *Kernel {
	t.Helper()
	k := New(Options{
		TickPeriod: time.Millisecond,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(k.Stop)
	return k
}

func mustCreate(t *testing.T, k *Kernel, entry Entry, name string, prio Priority) *Task {
	t.Helper()
	task, err := k.CreateTask(entry, name, 256, prio)
	if err != nil {
		t.Fatalf("CreateTask(%s) failed: %v", name, err)
	}
	return task
}

func TestCreateTaskErrors(t *testing.T) {
	k := New(Options{MaxTasks: 1, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	defer k.Stop()

	noop := func(tc *Context) {
		for {
			tc.Delay(time.Millisecond)
		}
	}

	tests := []struct {
		name    string
		entry   Entry
		task    string
		stack   int
		wantErr error
	}{
		{"nil entry", nil, "a", 256, ErrNilEntry},
		{"empty name", noop, "", 256, ErrEmptyName},
		{"small stack", noop, "a", 16, ErrInvalidStack},
		{"ok", noop, "a", 256, nil},
		{"table full", noop, "b", 256, ErrTooManyTasks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.CreateTask(tt.entry, tt.task, tt.stack, 1)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateTask() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateTaskAfterStop(t *testing.T) {
	k := testKernel(t)
	k.Stop()

	_, err := k.CreateTask(func(tc *Context) {}, "late", 256, 1)
	if !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestDelayTiming(t *testing.T) {
	k := testKernel(t)

	var wakes []time.Duration
	mustCreate(t, k, func(tc *Context) {
		for {
			wakes = append(wakes, tc.Now())
			tc.Delay(500 * time.Millisecond)
		}
	}, "periodic", 1)

	k.Launch()
	k.Advance(1200)

	want := []time.Duration{0, 500 * time.Millisecond, 1000 * time.Millisecond}
	if len(wakes) != len(want) {
		t.Fatalf("expected %d wakes, got %v", len(want), wakes)
	}
	for i := range want {
		if wakes[i] != want[i] {
			t.Errorf("wake %d at %v, want %v", i, wakes[i], want[i])
		}
	}
}

func TestPriorityOrder(t *testing.T) {
	k := testKernel(t)

	var order []string
	body := func(name string) Entry {
		return func(tc *Context) {
			for {
				order = append(order, name)
				tc.Delay(10 * time.Millisecond)
			}
		}
	}

	mustCreate(t, k, body("low-1"), "low-1", 1)
	mustCreate(t, k, body("high"), "high", 2)
	mustCreate(t, k, body("low-2"), "low-2", 1)

	k.Launch()

	want := []string{"high", "low-1", "low-2"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestSuspendResume(t *testing.T) {
	k := testKernel(t)

	runs := 0
	task := mustCreate(t, k, func(tc *Context) {
		for {
			runs++
			tc.Delay(100 * time.Millisecond)
		}
	}, "worker", 1)

	k.Launch()
	if task.State() != StateBlocked {
		t.Errorf("expected blocked after first iteration, got %v", task.State())
	}

	task.Suspend()
	if task.State() != StateSuspended {
		t.Errorf("expected suspended, got %v", task.State())
	}

	k.Advance(500)
	if runs != 1 {
		t.Errorf("suspended task ran: runs = %d", runs)
	}

	// Resume abandons the pending delay, so the task runs on the next pass.
	task.Resume()
	k.Advance(1)
	if runs != 2 {
		t.Errorf("expected resumed task to run once, runs = %d", runs)
	}
	if task.State() != StateBlocked {
		t.Errorf("expected blocked after resume, got %v", task.State())
	}
}

func TestSuspendIsIdempotent(t *testing.T) {
	k := testKernel(t)

	task := mustCreate(t, k, func(tc *Context) {
		for {
			tc.Delay(time.Millisecond)
		}
	}, "worker", 1)

	k.Launch()
	task.Suspend()
	task.Suspend()
	task.Resume()
	task.Resume()

	if task.State() == StateSuspended {
		t.Error("task should be running after a single resume")
	}
}

func TestNilTask(t *testing.T) {
	var task *Task
	if task.State() != StateInvalid {
		t.Errorf("nil task state = %v, want invalid", task.State())
	}
	// Must not panic.
	task.Suspend()
	task.Resume()
	if task.Name() != "" {
		t.Error("nil task should have empty name")
	}
}

func TestWait(t *testing.T) {
	k := testKernel(t)

	ready := make(chan struct{})
	var startedAt time.Duration = -1
	task := mustCreate(t, k, func(tc *Context) {
		tc.Wait(ready)
		startedAt = tc.Now()
		for {
			tc.Delay(time.Second)
		}
	}, "waiter", 1)

	k.Launch()
	k.Advance(50)
	if startedAt != -1 {
		t.Fatal("task ran past Wait before the channel was closed")
	}
	if task.State() != StateBlocked {
		t.Errorf("expected blocked, got %v", task.State())
	}

	close(ready)
	k.Advance(1)
	if startedAt != 51*time.Millisecond {
		t.Errorf("task resumed at %v, want 51ms", startedAt)
	}
}

func TestResumeKeepsOpenWait(t *testing.T) {
	k := testKernel(t)

	ready := make(chan struct{})
	passed := false
	task := mustCreate(t, k, func(tc *Context) {
		tc.Wait(ready)
		passed = true
		for {
			tc.Delay(time.Second)
		}
	}, "waiter", 1)

	k.Launch()
	task.Suspend()
	task.Resume()
	k.Advance(10)

	if passed {
		t.Error("resume must not release a task waiting on an open channel")
	}
}

func TestPanicIsContained(t *testing.T) {
	k := testKernel(t)

	entries := 0
	iterations := 0
	task := mustCreate(t, k, func(tc *Context) {
		entries++
		if entries == 1 {
			panic("boom")
		}
		for {
			iterations++
			tc.Delay(10 * time.Millisecond)
		}
	}, "fragile", 1)

	sibling := 0
	mustCreate(t, k, func(tc *Context) {
		for {
			sibling++
			tc.Delay(10 * time.Millisecond)
		}
	}, "sibling", 1)

	k.Launch()
	k.Advance(1)

	if task.Faults() != 1 {
		t.Errorf("faults = %d, want 1", task.Faults())
	}
	if entries != 2 || iterations != 1 {
		t.Errorf("expected re-entry after one tick: entries=%d iterations=%d", entries, iterations)
	}
	if sibling != 1 {
		t.Errorf("sibling should be unaffected, ran %d times", sibling)
	}
}

func TestReturnedBodyIsDeleted(t *testing.T) {
	k := testKernel(t)

	task := mustCreate(t, k, func(tc *Context) {}, "oneshot", 1)
	k.Launch()

	if task.State() != StateDeleted {
		t.Errorf("expected deleted, got %v", task.State())
	}

	// Suspend on a deleted task is a no-op.
	task.Suspend()
	if task.State() != StateDeleted {
		t.Errorf("expected deleted after suspend, got %v", task.State())
	}
}

func TestTasksSnapshot(t *testing.T) {
	k := testKernel(t)

	mustCreate(t, k, func(tc *Context) {
		for {
			tc.Delay(time.Millisecond)
		}
	}, "a", 1)
	b := mustCreate(t, k, func(tc *Context) {
		for {
			tc.Delay(time.Millisecond)
		}
	}, "b", 2)

	k.Launch()
	b.Suspend()

	infos := k.Tasks()
	if len(infos) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(infos))
	}
	if infos[0].Name != "a" || infos[1].Name != "b" {
		t.Errorf("unexpected order: %+v", infos)
	}
	if infos[1].State != StateSuspended || infos[1].Priority != 2 {
		t.Errorf("unexpected info for b: %+v", infos[1])
	}
	if k.Lookup("b") != b {
		t.Error("Lookup(b) did not return the created task")
	}
	if k.Lookup("missing") != nil {
		t.Error("Lookup(missing) should return nil")
	}
}

func TestRunWallClock(t *testing.T) {
	k := testKernel(t)

	ticks := make(chan struct{}, 1024)
	mustCreate(t, k, func(tc *Context) {
		for {
			select {
			case ticks <- struct{}{}:
			default:
			}
			tc.Delay(time.Millisecond)
		}
	}, "ticker", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := k.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want deadline exceeded", err)
	}
	if len(ticks) < 2 {
		t.Errorf("expected the task to run repeatedly, ran %d times", len(ticks))
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateInvalid:   "invalid",
		StateReady:     "ready",
		StateRunning:   "running",
		StateBlocked:   "blocked",
		StateSuspended: "suspended",
		StateDeleted:   "deleted",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
