package models

// SystemdServiceStatus contains the status information for a systemd unit.
type SystemdServiceStatus struct {
	Service  string `json:"service" example:"panelnode.service" doc:"Unit name"`
	Status   string `json:"status" example:"active" doc:"Unit ActiveState (active, inactive, failed, etc.)"`
	SubState string `json:"sub_state" example:"running" doc:"Unit SubState"`
	MainPID  uint32 `json:"main_pid,omitempty" example:"812" doc:"PID of the service main process"`
	Restarts uint32 `json:"restarts" example:"0" doc:"Times systemd restarted the service"`
	Since    string `json:"since,omitempty" example:"2026-03-01T12:00:00Z" doc:"When the unit last became active (RFC3339)"`
}

// SystemdServiceStatusResponse wraps SystemdServiceStatus for API responses.
type SystemdServiceStatusResponse struct {
	Body SystemdServiceStatus
}

// SystemdServiceAction contains the result of a systemd service action.
type SystemdServiceAction struct {
	Service string `json:"service" example:"panelnode.service" doc:"Unit name"`
	Action  string `json:"action" example:"restart" doc:"Action performed"`
	Success bool   `json:"success" example:"true" doc:"Whether the action succeeded"`
}

// SystemdServiceActionResponse wraps SystemdServiceAction for API responses.
type SystemdServiceActionResponse struct {
	Body SystemdServiceAction
}
