package tasks

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/smazurov/panelnode/internal/kernel"
	"github.com/smazurov/panelnode/internal/periph"
)

// PulseConfig configures the buzzer rhythm.
type PulseConfig struct {
	Channel string        // default buzzer
	Duty    uint16        // active duty, default half of MaxDuty
	On      time.Duration // default 100ms
	Off     time.Duration // default 900ms
}

// Pulse drives a PWM channel on for On, off for Off, forever.
type Pulse struct {
	pwm    periph.PWM
	cfg    PulseConfig
	logger *slog.Logger

	cycles atomic.Uint64
}

// NewPulse creates a pulse generator over pwm.
func NewPulse(pwm periph.PWM, cfg PulseConfig, logger *slog.Logger) *Pulse {
	if cfg.Channel == "" {
		cfg.Channel = "buzzer"
	}
	if cfg.Duty == 0 {
		cfg.Duty = pwm.MaxDuty()/2 + 1
	}
	if cfg.On <= 0 {
		cfg.On = 100 * time.Millisecond
	}
	if cfg.Off <= 0 {
		cfg.Off = 900 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pulse{pwm: pwm, cfg: cfg, logger: logger}
}

// Run is the task body. After a suspension the loop restarts from whichever
// phase it was parked in; the elapsed part of that phase is not kept.
func (p *Pulse) Run(tc *kernel.Context) {
	for {
		p.pwm.SetDuty(p.cfg.Channel, p.cfg.Duty)
		tc.Delay(p.cfg.On)
		p.pwm.SetDuty(p.cfg.Channel, 0)
		tc.Delay(p.cfg.Off)
		p.cycles.Add(1)
	}
}

// Cycles returns how many full on/off cycles have completed.
func (p *Pulse) Cycles() uint64 {
	return p.cycles.Load()
}

// Config returns the effective configuration.
func (p *Pulse) Config() PulseConfig {
	return p.cfg
}
