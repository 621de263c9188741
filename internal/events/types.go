package events

// Event type constants for kelindar/event.
const (
	TypeTaskStateChanged uint32 = iota + 1
	TypeButtonEdge
	TypeDisplayFrame
	TypeLogEntry
	TypeTaskMetrics
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// TaskStateChangedEvent is published when a controllable task is paused or resumed.
type TaskStateChangedEvent struct {
	Task      string `json:"task" example:"LED_Task" doc:"Name of the task"`
	Slot      string `json:"slot" example:"indicator" doc:"Registry slot the task fills"`
	State     string `json:"state" example:"suspended" doc:"New run-state: running or suspended"`
	Input     string `json:"input" example:"button_a" doc:"Input whose edge caused the change"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for TaskStateChangedEvent.
func (e TaskStateChangedEvent) Type() uint32 { return TypeTaskStateChanged }

// ButtonEdgeEvent is published on every rising edge of a monitored input.
type ButtonEdgeEvent struct {
	Input     string `json:"input" example:"button_a" doc:"Input channel"`
	Target    string `json:"target" example:"indicator" doc:"Slot the input toggles"`
	Handled   bool   `json:"handled" doc:"False when the target handle was not available"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ButtonEdgeEvent.
func (e ButtonEdgeEvent) Type() uint32 { return TypeButtonEdge }

// DisplayFrameEvent is published each time the status screen is presented.
type DisplayFrameEvent struct {
	Lines     []string `json:"lines" doc:"Text lines in draw order"`
	Sequence  uint64   `json:"sequence" doc:"Frame counter"`
	Timestamp string   `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DisplayFrameEvent.
func (e DisplayFrameEvent) Type() uint32 { return TypeDisplayFrame }

// LogEntryEvent carries a log record to live log viewers.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" doc:"Sequence number for ordering"`
	Timestamp  string         `json:"timestamp" doc:"Log timestamp (RFC3339)"`
	Level      string         `json:"level" doc:"Log level (debug, info, warn, error)"`
	Module     string         `json:"module" doc:"Module that generated the log"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Additional structured attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// TaskMetricsEvent is a periodic per-task metrics sample for live dashboards.
type TaskMetricsEvent struct {
	EventType string  `json:"type" example:"task_metrics" doc:"Event type"`
	Task      string  `json:"task" example:"Buzzer_Task" doc:"Name of the task"`
	State     string  `json:"state" example:"blocked" doc:"Scheduler state"`
	Suspended bool    `json:"suspended" doc:"Whether the task is held off the scheduler"`
	Toggles   float64 `json:"toggles" doc:"Run-state changes requested by buttons"`
	Faults    float64 `json:"faults" doc:"Recovered panics in the task body"`
}

// Type returns the event type identifier for TaskMetricsEvent.
func (e TaskMetricsEvent) Type() uint32 { return TypeTaskMetrics }
