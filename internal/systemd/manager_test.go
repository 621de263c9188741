package systemd

import (
	"testing"
	"time"
)

func TestStatusFromProperties(t *testing.T) {
	since := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		unit    map[string]any
		service map[string]any
		want    UnitStatus
	}{
		{
			name: "running service",
			unit: map[string]any{
				"ActiveState":          "active",
				"SubState":             "running",
				"ActiveEnterTimestamp": uint64(since.UnixMicro()),
			},
			service: map[string]any{"MainPID": uint32(812), "NRestarts": uint32(2)},
			want: UnitStatus{
				Unit: DefaultUnit, ActiveState: "active", SubState: "running",
				MainPID: 812, Restarts: 2, Since: since,
			},
		},
		{
			name: "never started",
			unit: map[string]any{"ActiveState": "inactive", "SubState": "dead", "ActiveEnterTimestamp": uint64(0)},
			want: UnitStatus{Unit: DefaultUnit, ActiveState: "inactive", SubState: "dead"},
		},
		{
			name:    "unexpected types are ignored",
			unit:    map[string]any{"ActiveState": 3},
			service: map[string]any{"MainPID": "812"},
			want:    UnitStatus{Unit: DefaultUnit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statusFromProperties(DefaultUnit, tt.unit, tt.service)
			if got != tt.want {
				t.Errorf("statusFromProperties() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
