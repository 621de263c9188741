package kernel

import "errors"

// State is the scheduler's view of a task.
type State int32

// Task states.
const (
	StateInvalid   State = iota // No such task
	StateReady                  // Waiting for the execution slot
	StateRunning                // Holding the execution slot
	StateBlocked                // Inside Delay or Wait
	StateSuspended              // Held off the ready set
	StateDeleted                // Body returned
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateSuspended:
		return "suspended"
	case StateDeleted:
		return "deleted"
	default:
		return "invalid"
	}
}

// Priority orders tasks competing for the execution slot. Higher runs first.
type Priority int

// Task creation errors.
var (
	ErrStopped      = errors.New("kernel: stopped")
	ErrTooManyTasks = errors.New("kernel: task table full")
	ErrInvalidStack = errors.New("kernel: stack size below minimum")
	ErrEmptyName    = errors.New("kernel: task name is required")
	ErrNilEntry     = errors.New("kernel: task entry is nil")
)

// Info is a point-in-time description of a task.
type Info struct {
	Name      string
	Priority  Priority
	StackSize int
	State     State
	Faults    uint64
}
