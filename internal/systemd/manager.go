package systemd

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
)

// DefaultUnit is the unit name the service installs as.
const DefaultUnit = "panelnode.service"

// UnitStatus is the subset of unit properties the API reports.
type UnitStatus struct {
	Unit        string
	ActiveState string
	SubState    string
	MainPID     uint32
	Restarts    uint32
	Since       time.Time // zero when the unit never became active
}

// Manager queries and restarts the panelnode unit via D-Bus.
type Manager struct {
	conn *dbus.Conn
	unit string
}

// NewManager creates a manager with a user-level D-Bus connection.
func NewManager(ctx context.Context, unit string) (*Manager, error) {
	if unit == "" {
		unit = DefaultUnit
	}
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return nil, err
	}
	return &Manager{conn: conn, unit: unit}, nil
}

// Unit returns the managed unit name.
func (m *Manager) Unit() string {
	return m.unit
}

// Status reads the unit state plus the service main PID and restart count.
// Service properties are best effort; a unit that is not a service still
// reports its state.
func (m *Manager) Status(ctx context.Context) (UnitStatus, error) {
	unitProps, err := m.conn.GetUnitPropertiesContext(ctx, m.unit)
	if err != nil {
		return UnitStatus{}, fmt.Errorf("read properties of %s: %w", m.unit, err)
	}
	serviceProps, err := m.conn.GetUnitTypePropertiesContext(ctx, m.unit, "Service")
	if err != nil {
		serviceProps = nil
	}
	return statusFromProperties(m.unit, unitProps, serviceProps), nil
}

func statusFromProperties(unit string, unitProps, serviceProps map[string]any) UnitStatus {
	st := UnitStatus{Unit: unit}
	st.ActiveState, _ = unitProps["ActiveState"].(string)
	st.SubState, _ = unitProps["SubState"].(string)
	if usec, ok := unitProps["ActiveEnterTimestamp"].(uint64); ok && usec > 0 {
		st.Since = time.UnixMicro(int64(usec)).UTC()
	}
	st.MainPID, _ = serviceProps["MainPID"].(uint32)
	st.Restarts, _ = serviceProps["NRestarts"].(uint32)
	return st
}

// Restart restarts the unit using the replace mode.
func (m *Manager) Restart(ctx context.Context) error {
	_, err := m.conn.RestartUnitContext(ctx, m.unit, "replace", nil)
	return err
}

// Close cleanly closes the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}
