// Package registry holds the control handles of the controllable tasks.
//
// Handles are written once during bring-up and read for the lifetime of the
// process. Readers that must not run before every handle exists wait on
// Ready instead of polling.
package registry

import (
	"errors"
	"fmt"
	"sync"
)

// Slot names a controllable task.
type Slot string

// Well-known slots.
const (
	SlotIndicator Slot = "indicator"
	SlotPulse     Slot = "pulse"
)

// Registry errors.
var (
	ErrUnknownSlot       = errors.New("registry: unknown slot")
	ErrAlreadyRegistered = errors.New("registry: slot already registered")
	ErrNilHandle         = errors.New("registry: nil handle")
)

// Registry is a write-once map from slot to handle.
type Registry struct {
	mu      sync.RWMutex
	slots   []Slot
	handles map[Slot]Handle
	ready   chan struct{}
}

// New creates a registry that becomes ready once every slot is registered.
func New(slots ...Slot) *Registry {
	r := &Registry{
		slots:   slots,
		handles: make(map[Slot]Handle, len(slots)),
		ready:   make(chan struct{}),
	}
	if len(slots) == 0 {
		close(r.ready)
	}
	return r
}

// Register stores the handle for a slot. A slot can be written only once.
func (r *Registry) Register(slot Slot, h Handle) error {
	if h == nil {
		return fmt.Errorf("%w: %s", ErrNilHandle, slot)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.knows(slot) {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}
	if _, exists := r.handles[slot]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, slot)
	}

	r.handles[slot] = h
	if len(r.handles) == len(r.slots) {
		close(r.ready)
	}
	return nil
}

// Lookup returns the handle for a slot, if registered.
func (r *Registry) Lookup(slot Slot) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[slot]
	return h, ok
}

// Ready is closed once every slot holds a handle.
func (r *Registry) Ready() <-chan struct{} {
	return r.ready
}

// IsReady reports whether every slot holds a handle.
func (r *Registry) IsReady() bool {
	select {
	case <-r.ready:
		return true
	default:
		return false
	}
}

// Slots returns the slots in declaration order.
func (r *Registry) Slots() []Slot {
	out := make([]Slot, len(r.slots))
	copy(out, r.slots)
	return out
}

// State returns the run-state of a slot, Unknown if it has no handle yet.
func (r *Registry) State(slot Slot) RunState {
	h, ok := r.Lookup(slot)
	if !ok {
		return RunStateUnknown
	}
	return h.RunState()
}

func (r *Registry) knows(slot Slot) bool {
	for _, s := range r.slots {
		if s == slot {
			return true
		}
	}
	return false
}
