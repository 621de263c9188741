package node

import "github.com/smazurov/panelnode/internal/registry"

// TaskStatus describes one task for the API and metrics.
type TaskStatus struct {
	Name      string `json:"name" example:"LED_Task" doc:"Task name"`
	Priority  int    `json:"priority" example:"1" doc:"Scheduler priority, higher runs first"`
	StackSize int    `json:"stack_size" example:"256" doc:"Requested stack size"`
	State     string `json:"state" example:"blocked" doc:"Scheduler state"`
	Slot      string `json:"slot,omitempty" example:"indicator" doc:"Registry slot for controllable tasks"`
	RunState  string `json:"run_state,omitempty" example:"running" doc:"Run-state for controllable tasks"`
	Faults    uint64 `json:"faults" doc:"Recovered panics in the task body"`
}

// Tasks returns a snapshot of every task in creation order.
func (n *Node) Tasks() []TaskStatus {
	slots := make(map[string]registry.Slot)
	for _, slot := range n.reg.Slots() {
		if h, ok := n.reg.Lookup(slot); ok {
			slots[h.Name()] = slot
		}
	}

	infos := n.kernel.Tasks()
	out := make([]TaskStatus, 0, len(infos))
	for _, info := range infos {
		ts := TaskStatus{
			Name:      info.Name,
			Priority:  int(info.Priority),
			StackSize: info.StackSize,
			State:     info.State.String(),
			Faults:    info.Faults,
		}
		if slot, ok := slots[info.Name]; ok {
			ts.Slot = string(slot)
			ts.RunState = n.reg.State(slot).String()
		}
		out = append(out, ts)
	}
	return out
}

// Faults returns the total number of recovered task panics.
func (n *Node) Faults() uint64 {
	var total uint64
	for _, info := range n.kernel.Tasks() {
		total += info.Faults
	}
	return total
}

// Suspended reports whether a controllable task is currently suspended.
func (n *Node) Suspended(slot registry.Slot) bool {
	return n.reg.State(slot) == registry.RunStateSuspended
}
