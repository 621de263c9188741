package models

import "github.com/smazurov/panelnode/internal/node"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.21.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Task models
type TaskListData struct {
	Tasks    []node.TaskStatus `json:"tasks" doc:"Tasks in creation order"`
	Count    int               `json:"count" example:"4" doc:"Number of tasks"`
	UptimeMs int64             `json:"uptime_ms" example:"1200" doc:"Kernel time since the scheduler started"`
}

type TaskListResponse struct {
	Body TaskListData
}

type TaskRequest struct {
	Name string `path:"name" example:"LED_Task" doc:"Task name"`
}

type TaskResponse struct {
	Body node.TaskStatus
}

// Display models
type DisplayData struct {
	Lines     []string `json:"lines" doc:"Text lines in draw order"`
	Sequence  uint64   `json:"sequence" example:"42" doc:"Frame counter"`
	Presented string   `json:"presented" example:"2025-01-27T10:30:00Z" doc:"When the frame was presented"`
}

type DisplayResponse struct {
	Body DisplayData
}

// Peripheral models
type PeripheralData struct {
	Backend string   `json:"backend" example:"sim" doc:"Active peripheral backend"`
	Board   string   `json:"board" example:"Raspberry Pi 4 Model B Rev 1.4" doc:"Detected board model"`
	Outputs []string `json:"outputs" doc:"Digital output channels"`
	PWM     []string `json:"pwm" doc:"PWM channels"`
	Inputs  []string `json:"inputs" doc:"Digital input channels"`
}

type PeripheralResponse struct {
	Body PeripheralData
}

// Button models
type ButtonPressRequest struct {
	Input  string `path:"input" example:"button_a" doc:"Input channel to press"`
	HoldMs int    `query:"hold_ms" minimum:"1" maximum:"10000" default:"250" doc:"How long the button is held; raised to one poll period plus a tick"`
}

type ButtonPressData struct {
	Input  string `json:"input" example:"button_a" doc:"Input channel"`
	HoldMs int    `json:"hold_ms" example:"250" doc:"Hold time applied after raising it to the minimum"`
}

type ButtonPressResponse struct {
	Body ButtonPressData
}

// Log models
type LogsRequest struct {
	Since uint64 `query:"since" doc:"Return only entries with a higher sequence number"`
}

type LogEntryData struct {
	Seq        uint64         `json:"seq" doc:"Sequence number"`
	Timestamp  string         `json:"timestamp" doc:"Log timestamp (RFC3339)"`
	Level      string         `json:"level" doc:"Log level"`
	Module     string         `json:"module" doc:"Module that generated the log"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Additional structured attributes"`
	Line       string         `json:"line" doc:"The entry rendered as a single text line"`
}

type LogsData struct {
	Entries []LogEntryData `json:"entries" doc:"Buffered log entries, oldest first"`
	Count   int            `json:"count" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
