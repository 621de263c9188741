package periph

import "log/slog"

// noop implements Controller as a no-op for hosts without panel hardware
type noop struct {
	logger *slog.Logger
	idle   bool
}

// newNoop creates a new no-op controller
func newNoop(logger *slog.Logger, idle bool) *noop {
	return &noop{
		logger: logger,
		idle:   idle,
	}
}

// SetOutput logs the request but drives nothing
func (n *noop) SetOutput(channel string, on bool) {
	n.logger.Debug("Output not available (no-op)", "channel", channel, "on", on)
}

// SetDuty logs the request but drives nothing
func (n *noop) SetDuty(channel string, duty uint16) {
	n.logger.Debug("PWM not available (no-op)", "channel", channel, "duty", duty)
}

// MaxDuty returns the default full scale
func (n *noop) MaxDuty() uint16 {
	return DefaultMaxDuty
}

// ReadInput always reads the released level
func (n *noop) ReadInput(string) bool {
	return n.idle
}

// Available returns no channels
func (n *noop) Available() Channels {
	return Channels{Outputs: []string{}, PWM: []string{}, Inputs: []string{}}
}

// Backend implements Controller
func (n *noop) Backend() string {
	return "noop"
}
