package periph

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Default channel wiring of the panel board.
const (
	DefaultOutputs = "red=13,green=11,blue=12"
	DefaultPWM     = "buzzer=0:0"
	DefaultInputs  = "button_a=5,button_b=6"
)

// Backend names accepted by New.
const (
	BackendAuto  = "auto"
	BackendSysfs = "sysfs"
	BackendSim   = "sim"
	BackendNoop  = "noop"
)

// Config selects and configures a peripheral backend.
type Config struct {
	Backend  string // auto, sysfs, sim or noop
	Root     string // sysfs root, default /sys
	Outputs  string // "name=target,..."
	PWM      string
	Inputs   string
	PeriodNs int64

	// ActiveLow selects pull-up wiring: a released input reads high. With
	// pull-down wiring a released input reads low. Every backend reports
	// the released level for inputs it cannot read.
	ActiveLow bool

	Logger *slog.Logger
}

// Injector is implemented by backends whose inputs can be driven in software.
type Injector interface {
	Tap(channel string, hold time.Duration) error
}

// New creates a controller for the configured backend. With BackendAuto the
// board is detected from the device tree: known single-board computers get
// sysfs, anything else gets the simulated board.
func New(cfg Config) (Controller, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	outputs, pwm, inputs, err := cfg.mappings()
	if err != nil {
		return nil, err
	}

	backend := cfg.Backend
	if backend == "" {
		backend = BackendAuto
	}

	if backend == BackendAuto {
		model := DetectBoard()
		logger.Info("Detecting board for peripheral control", "board_model", model)
		if isKnownBoard(model) {
			backend = BackendSysfs
		} else {
			logger.Info("No panel hardware detected, using simulated board", "board_model", model)
			backend = BackendSim
		}
	}

	switch backend {
	case BackendSysfs:
		s, err := newSysfs(SysfsOptions{
			Root:      cfg.Root,
			Outputs:   outputs,
			PWM:       pwm,
			Inputs:    inputs,
			PeriodNs:  cfg.PeriodNs,
			ActiveLow: cfg.ActiveLow,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		if missing := s.Missing(); len(missing) > 0 {
			logger.Warn("Some sysfs attributes are missing, writes to them will be dropped", "missing", missing)
		}
		logger.Info("Using sysfs peripheral controller", "channels", s.Available())
		return s, nil

	case BackendSim:
		return NewSim(SimOptions{
			Outputs:   names(outputs),
			PWM:       names(pwm),
			Inputs:    names(inputs),
			IdleInput: cfg.ActiveLow,
		}), nil

	case BackendNoop:
		return newNoop(logger, cfg.ActiveLow), nil

	default:
		return nil, fmt.Errorf("unknown peripheral backend %q", backend)
	}
}

func (c Config) mappings() (outputs, pwm, inputs []Mapping, err error) {
	parse := func(spec, fallback, kind string) ([]Mapping, error) {
		if spec == "" {
			spec = fallback
		}
		m, err := ParseMapping(spec)
		if err != nil {
			return nil, fmt.Errorf("%s channels: %w", kind, err)
		}
		return m, nil
	}

	if outputs, err = parse(c.Outputs, DefaultOutputs, "output"); err != nil {
		return nil, nil, nil, err
	}
	if pwm, err = parse(c.PWM, DefaultPWM, "pwm"); err != nil {
		return nil, nil, nil, err
	}
	if inputs, err = parse(c.Inputs, DefaultInputs, "input"); err != nil {
		return nil, nil, nil, err
	}
	return outputs, pwm, inputs, nil
}

func isKnownBoard(model string) bool {
	for _, board := range []string{"Raspberry Pi", "Orange Pi", "NanoPC-T6"} {
		if strings.Contains(model, board) {
			return true
		}
	}
	return false
}

// DetectBoard reads the device tree model to identify the board.
func DetectBoard() string {
	return readBoardModel(deviceTreeModelPath)
}

func readBoardModel(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	model := strings.TrimRight(string(data), "\x00")
	if model == "" {
		return "unknown"
	}
	return model
}
