package tasks

import (
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/smazurov/panelnode/internal/kernel"
	"github.com/smazurov/panelnode/internal/periph"
)

// ErrNoChannels is returned when an indicator has nothing to cycle through.
var ErrNoChannels = errors.New("tasks: indicator needs at least one channel")

// IndicatorConfig configures the color-cycling indicator.
type IndicatorConfig struct {
	Channels []string      // default red, green, blue
	Period   time.Duration // default 500ms
	Start    int           // index lit first
}

// Indicator lights exactly one of N output channels and moves to the next one
// every period.
type Indicator struct {
	out    periph.Outputs
	cfg    IndicatorConfig
	logger *slog.Logger

	started bool
	index   atomic.Int64
	steps   atomic.Uint64
}

// NewIndicator creates an indicator over out.
func NewIndicator(out periph.Outputs, cfg IndicatorConfig, logger *slog.Logger) (*Indicator, error) {
	if cfg.Channels == nil {
		cfg.Channels = []string{"red", "green", "blue"}
	}
	if len(cfg.Channels) == 0 {
		return nil, ErrNoChannels
	}
	if cfg.Period <= 0 {
		cfg.Period = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Channels = slices.Clone(cfg.Channels)

	n := len(cfg.Channels)
	i := &Indicator{out: out, cfg: cfg, logger: logger}
	i.index.Store(int64(((cfg.Start % n) + n) % n))
	return i, nil
}

// Run is the task body.
func (i *Indicator) Run(tc *kernel.Context) {
	if !i.started {
		for _, ch := range i.cfg.Channels {
			i.out.SetOutput(ch, false)
		}
		i.out.SetOutput(i.Current(), true)
		i.started = true
		i.logger.Debug("Indicator started", "channel", i.Current(), "period", i.cfg.Period)
	}

	for {
		tc.Delay(i.cfg.Period)
		i.step()
	}
}

func (i *Indicator) step() {
	n := int64(len(i.cfg.Channels))
	cur := i.index.Load()
	next := (cur + 1) % n

	i.out.SetOutput(i.cfg.Channels[cur], false)
	i.index.Store(next)
	i.out.SetOutput(i.cfg.Channels[next], true)
	i.steps.Add(1)
}

// Current returns the channel that is lit.
func (i *Indicator) Current() string {
	return i.cfg.Channels[i.index.Load()]
}

// Steps returns how many times the indicator has advanced.
func (i *Indicator) Steps() uint64 {
	return i.steps.Load()
}
