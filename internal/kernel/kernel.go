package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// Entry is a task body. It is expected to loop forever, calling Delay or
// Wait on every iteration.
type Entry func(tc *Context)

// Options configures a Kernel.
type Options struct {
	TickPeriod   time.Duration // default 1ms
	MaxTasks     int           // default 8
	MinStackSize int           // default 128
	Logger       *slog.Logger
}

// Kernel owns the task table and the single execution slot.
type Kernel struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	tasks    []*Task
	now      uint64
	launched bool
	stopped  bool
	current  *Task

	dispatchMu sync.Mutex
	parked     chan struct{}
	kick       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// New creates a kernel. No task runs until Launch or Run.
func New(opts Options) *Kernel {
	if opts.TickPeriod <= 0 {
		opts.TickPeriod = time.Millisecond
	}
	if opts.MaxTasks <= 0 {
		opts.MaxTasks = 8
	}
	if opts.MinStackSize <= 0 {
		opts.MinStackSize = 128
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Kernel{
		opts:   opts,
		logger: logger,
		parked: make(chan struct{}),
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// CreateTask adds a task to the table. Tasks created before Launch start
// together on the first pass; tasks created later join the next pass.
func (k *Kernel) CreateTask(entry Entry, name string, stackSize int, prio Priority) (*Task, error) {
	switch {
	case entry == nil:
		return nil, ErrNilEntry
	case name == "":
		return nil, ErrEmptyName
	case stackSize < k.opts.MinStackSize:
		return nil, fmt.Errorf("%w: %s wants %d, minimum %d", ErrInvalidStack, name, stackSize, k.opts.MinStackSize)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.stopped {
		return nil, ErrStopped
	}
	if len(k.tasks) >= k.opts.MaxTasks {
		return nil, fmt.Errorf("%w: cannot add %s (max %d)", ErrTooManyTasks, name, k.opts.MaxTasks)
	}

	t := &Task{
		k:     k,
		name:  name,
		prio:  prio,
		stack: stackSize,
		entry: entry,
		cpu:   make(chan struct{}, 1),
	}
	k.tasks = append(k.tasks, t)
	if k.launched {
		k.spawn(t)
	}

	k.logger.Debug("Task created", "task", name, "priority", int(prio), "stack", stackSize)
	return t, nil
}

// spawn starts the goroutine behind a task (must hold k.mu).
func (k *Kernel) spawn(t *Task) {
	k.wg.Add(1)
	go t.loop()
}

// Launch starts every created task and runs the first dispatch pass.
// Calling it again is a no-op.
func (k *Kernel) Launch() {
	k.mu.Lock()
	if k.launched || k.stopped {
		k.mu.Unlock()
		return
	}
	k.launched = true
	for _, t := range k.tasks {
		k.spawn(t)
	}
	count := len(k.tasks)
	k.mu.Unlock()

	k.logger.Info("Scheduler started", "tasks", count, "tick", k.opts.TickPeriod)
	k.dispatch()
}

// Advance drives n ticks by hand, running every pass to completion.
func (k *Kernel) Advance(n int) {
	k.Launch()
	for i := 0; i < n; i++ {
		k.tick()
	}
}

// Run drives ticks from the wall clock until ctx is cancelled or Stop is called.
func (k *Kernel) Run(ctx context.Context) error {
	k.Launch()

	ticker := time.NewTicker(k.opts.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			k.Stop()
			return ctx.Err()
		case <-k.done:
			return ErrStopped
		case <-ticker.C:
			k.tick()
		case <-k.kick:
			k.dispatch()
		}
	}
}

// Stop unwinds every task goroutine. It must not be called from a task body.
func (k *Kernel) Stop() {
	k.stopOnce.Do(func() {
		k.mu.Lock()
		k.stopped = true
		k.mu.Unlock()
		close(k.done)
	})
	k.wg.Wait()
}

// Now reports kernel time: elapsed ticks times the tick period.
func (k *Kernel) Now() time.Duration {
	k.mu.Lock()
	defer k.mu.Unlock()
	return time.Duration(k.now) * k.opts.TickPeriod
}

// TickPeriod returns the configured tick length.
func (k *Kernel) TickPeriod() time.Duration {
	return k.opts.TickPeriod
}

// Lookup finds a task by name. Returns nil if there is none.
func (k *Kernel) Lookup(name string) *Task {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, t := range k.tasks {
		if t.name == name {
			return t
		}
	}
	return nil
}

// Tasks returns a snapshot of the task table in creation order.
func (k *Kernel) Tasks() []Info {
	k.mu.Lock()
	defer k.mu.Unlock()

	infos := make([]Info, 0, len(k.tasks))
	for _, t := range k.tasks {
		infos = append(infos, Info{
			Name:      t.name,
			Priority:  t.prio,
			StackSize: t.stack,
			State:     t.stateLocked(),
			Faults:    t.faults,
		})
	}
	return infos
}

func (k *Kernel) tick() {
	k.mu.Lock()
	k.now++
	k.mu.Unlock()
	k.dispatch()
}

// nudge asks a running Run loop for an extra pass without advancing time.
func (k *Kernel) nudge() {
	select {
	case k.kick <- struct{}{}:
	default:
	}
}

// dispatch hands the execution slot to ready tasks, one at a time, until
// none is left.
func (k *Kernel) dispatch() {
	k.dispatchMu.Lock()
	defer k.dispatchMu.Unlock()

	for {
		t := k.next()
		if t == nil {
			return
		}

		t.cpu <- struct{}{}
		select {
		case <-k.parked:
		case <-k.done:
			return
		}

		k.mu.Lock()
		k.current = nil
		k.mu.Unlock()
	}
}

// next wakes due waiters and picks the highest priority ready task.
func (k *Kernel) next() *Task {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.stopped {
		return nil
	}

	var best *Task
	for _, t := range k.tasks {
		if t.deleted || t.suspended {
			continue
		}
		if t.blocked && !t.wakeLocked() {
			continue
		}
		if best == nil || t.prio > best.prio {
			best = t
		}
	}
	k.current = best
	return best
}

// release returns the execution slot to the dispatcher.
func (k *Kernel) release() {
	select {
	case k.parked <- struct{}{}:
	case <-k.done:
	}
}

func (k *Kernel) ticksFor(d time.Duration) uint64 {
	n := uint64(d / k.opts.TickPeriod)
	if n == 0 {
		n = 1
	}
	return n
}

// Task is a handle to a scheduled routine. It stays valid for the lifetime
// of the kernel.
type Task struct {
	k     *Kernel
	name  string
	prio  Priority
	stack int
	entry Entry
	cpu   chan struct{}

	// guarded by k.mu
	suspended bool
	blocked   bool
	wakeAt    uint64
	waitCh    <-chan struct{}
	deleted   bool
	faults    uint64
}

// Name returns the task name given at creation.
func (t *Task) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Priority returns the task priority.
func (t *Task) Priority() Priority {
	return t.prio
}

// Suspend removes the task from dispatch. It takes effect at the task's next
// preemption point and is idempotent.
func (t *Task) Suspend() {
	if t == nil {
		return
	}
	t.k.mu.Lock()
	if !t.deleted {
		t.suspended = true
	}
	t.k.mu.Unlock()
}

// Resume makes a suspended task ready again. A pending delay is abandoned; a
// pending Wait on an open channel is kept.
func (t *Task) Resume() {
	if t == nil {
		return
	}
	t.k.mu.Lock()
	if t.suspended {
		t.suspended = false
		if t.blocked && t.waitCh == nil {
			t.blocked = false
		}
	}
	t.k.mu.Unlock()
	t.k.nudge()
}

// State reports the current scheduler state of the task.
func (t *Task) State() State {
	if t == nil {
		return StateInvalid
	}
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	return t.stateLocked()
}

// Faults returns how many times the task body panicked.
func (t *Task) Faults() uint64 {
	if t == nil {
		return 0
	}
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	return t.faults
}

func (t *Task) stateLocked() State {
	switch {
	case t.deleted:
		return StateDeleted
	case t.suspended:
		return StateSuspended
	case t.k.current == t:
		return StateRunning
	case t.blocked:
		return StateBlocked
	default:
		return StateReady
	}
}

// wakeLocked clears the blocked flag if the wait is over (must hold k.mu).
func (t *Task) wakeLocked() bool {
	if t.waitCh != nil {
		select {
		case <-t.waitCh:
		default:
			return false
		}
	} else if t.wakeAt > t.k.now {
		return false
	}
	t.blocked = false
	t.waitCh = nil
	return true
}

func (t *Task) loop() {
	defer t.k.wg.Done()

	if !t.await() {
		return
	}

	tc := &Context{t: t}
	for {
		if !t.invoke(tc) {
			t.k.mu.Lock()
			t.deleted = true
			t.k.mu.Unlock()
			t.k.logger.Warn("Task body returned", "task", t.name)
			t.k.release()
			return
		}

		t.k.mu.Lock()
		t.faults++
		t.blocked = true
		t.waitCh = nil
		t.wakeAt = t.k.now + 1
		t.k.mu.Unlock()

		t.k.release()
		if !t.await() {
			return
		}
	}
}

// invoke runs the body once and reports whether it panicked.
func (t *Task) invoke(tc *Context) (faulted bool) {
	defer func() {
		if r := recover(); r != nil {
			faulted = true
			t.k.logger.Error("Task body panicked, re-entering",
				"task", t.name,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	t.entry(tc)
	return false
}

// await blocks until the dispatcher hands over the slot. False means the
// kernel stopped.
func (t *Task) await() bool {
	select {
	case <-t.cpu:
		return true
	case <-t.k.done:
		return false
	}
}

// yield gives the slot back and waits to be dispatched again.
func (t *Task) yield() {
	t.k.release()
	if !t.await() {
		runtime.Goexit()
	}
}

// Context is what a task body sees of the kernel.
type Context struct {
	t *Task
}

// Task returns the handle of the calling task.
func (tc *Context) Task() *Task {
	return tc.t
}

// Now reports kernel time.
func (tc *Context) Now() time.Duration {
	return tc.t.k.Now()
}

// Delay blocks the calling task for d, rounded down to whole ticks with a
// minimum of one tick.
func (tc *Context) Delay(d time.Duration) {
	t := tc.t
	k := t.k

	k.mu.Lock()
	t.blocked = true
	t.waitCh = nil
	t.wakeAt = k.now + k.ticksFor(d)
	k.mu.Unlock()

	t.yield()
}

// Wait blocks the calling task until ch is closed. The kernel checks the
// channel on every pass, so the task resumes at most one tick after close.
func (tc *Context) Wait(ch <-chan struct{}) {
	select {
	case <-ch:
		return
	default:
	}

	t := tc.t
	t.k.mu.Lock()
	t.blocked = true
	t.waitCh = ch
	t.k.mu.Unlock()

	t.yield()
}

// Suspend suspends the calling task and yields.
func (tc *Context) Suspend() {
	tc.t.Suspend()
	tc.t.yield()
}
