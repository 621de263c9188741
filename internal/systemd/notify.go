// Package systemd talks to the service manager: readiness and watchdog
// notifications over the notify socket, unit control over D-Bus.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages. Outside systemd every call is a no-op.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Ready reports startup complete.
func (n *Notifier) Ready() bool {
	return n.send(daemon.SdNotifyReady)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(text string) bool {
	return n.send("STATUS=" + text)
}

// Stopping reports shutdown has begun.
func (n *Notifier) Stopping() bool {
	return n.send(daemon.SdNotifyStopping)
}

func (n *Notifier) send(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return false
	}
	if sent {
		n.logger.Debug("sd_notify sent", "state", state)
	}
	return sent
}

// Watchdog pings the service manager at half the configured watchdog
// interval until ctx is done. alive is consulted before each ping; a false
// result skips the ping so systemd can restart a wedged process. Returns
// immediately when no watchdog is configured.
func (n *Notifier) Watchdog(ctx context.Context, alive func() bool) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Invalid watchdog configuration", "error", err)
		return
	}
	if interval == 0 {
		return
	}

	period := interval / 2
	n.logger.Info("Systemd watchdog enabled", "interval", interval)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if alive != nil && !alive() {
				n.logger.Warn("Skipping watchdog ping, scheduler not advancing")
				continue
			}
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
