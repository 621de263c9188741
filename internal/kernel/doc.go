// Package kernel provides the task primitives the panel routines are built on.
//
// # Model
//
// Every task body runs on its own goroutine, but the kernel hands out a single
// execution slot: exactly one body executes at a time, as on a single-core
// microcontroller. Bodies give the slot back only at preemption points:
//
//	tc.Delay(500 * time.Millisecond) // timed wait, measured in ticks
//	tc.Wait(ready)                   // block until a channel is closed
//
// On every tick the kernel wakes expired delays and closed waits, then runs
// ready tasks in priority order (higher first, creation order within a
// priority) until each one blocks again.
//
// # Control
//
// Suspend and Resume may be called from any goroutine. A suspended task is
// removed from dispatch at its next preemption point; a resumed task abandons
// any pending delay and becomes ready on the next pass.
//
// # Time
//
// Run drives ticks from a wall-clock ticker. Tests use Launch and Advance to
// drive ticks by hand, which makes every schedule deterministic:
//
//	k := kernel.New(kernel.Options{TickPeriod: time.Millisecond})
//	t, _ := k.CreateTask(entry, "LED_Task", 256, 1)
//	k.Launch()
//	k.Advance(1200)
//
// A panic inside a task body is recovered and logged, and the body is entered
// again one tick later. Tasks never terminate on their own; Stop unwinds them
// for process shutdown.
package kernel
