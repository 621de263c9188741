package registry

import "github.com/smazurov/panelnode/internal/kernel"

// RunState is the externally visible state of a controllable task.
type RunState int

// Run states. Unknown applies only while a handle is not valid.
const (
	RunStateUnknown RunState = iota
	RunStateRunning
	RunStateSuspended
)

func (s RunState) String() string {
	switch s {
	case RunStateRunning:
		return "running"
	case RunStateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// Label is the short text shown on the status display.
func (s RunState) Label() string {
	switch s {
	case RunStateRunning:
		return "Run"
	case RunStateSuspended:
		return "Suspended"
	default:
		return "unavailable"
	}
}

// Handle is the narrow control surface a controllable task exposes.
type Handle interface {
	Name() string
	RequestPause()
	RequestResume()
	RunState() RunState
}

// taskHandle adapts a kernel task to Handle.
type taskHandle struct {
	task *kernel.Task
}

// FromTask wraps a kernel task. A nil task yields a handle that reports
// Unknown and ignores pause/resume requests.
func FromTask(t *kernel.Task) Handle {
	return &taskHandle{task: t}
}

func (h *taskHandle) Name() string {
	return h.task.Name()
}

func (h *taskHandle) RequestPause() {
	h.task.Suspend()
}

func (h *taskHandle) RequestResume() {
	h.task.Resume()
}

func (h *taskHandle) RunState() RunState {
	switch h.task.State() {
	case kernel.StateInvalid, kernel.StateDeleted:
		return RunStateUnknown
	case kernel.StateSuspended:
		return RunStateSuspended
	default:
		return RunStateRunning
	}
}
