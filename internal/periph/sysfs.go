package periph

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultSysfsRoot = "/sys"

// PWMTarget addresses one channel of a sysfs PWM chip.
type PWMTarget struct {
	Chip     int
	Channel  int
	PeriodNs int64
}

// SysfsOptions maps logical channels onto the Linux sysfs interfaces.
//
// Output targets are either a GPIO number ("13", driven through
// class/gpio/gpio13/value) or an LED class name ("usr_led", driven through
// class/leds/usr_led/brightness). PWM targets are "chip:channel". Input
// targets are GPIO numbers.
type SysfsOptions struct {
	Root     string // default /sys
	Outputs  []Mapping
	PWM      []Mapping
	Inputs   []Mapping
	MaxDuty  uint16
	PeriodNs int64 // PWM period, default 125000 (8 kHz)

	// ActiveLow marks pull-up wiring; the released level is then high. It
	// seeds every input until its first good read.
	ActiveLow bool

	Logger *slog.Logger
}

// sysfs implements Controller on top of Linux sysfs attribute files.
type sysfs struct {
	root     string
	outputs  map[string]string // channel -> attribute file
	pwms     map[string]PWMTarget
	inputs   map[string]string // channel -> value file
	channels Channels
	maxDuty  uint16
	idle     bool
	logger   *slog.Logger
	faults   *rate.Limiter

	mu       sync.Mutex
	lastRead map[string]bool
}

// newSysfs resolves every mapping into an attribute path.
func newSysfs(opts SysfsOptions) (*sysfs, error) {
	if opts.Root == "" {
		opts.Root = defaultSysfsRoot
	}
	if opts.MaxDuty == 0 {
		opts.MaxDuty = DefaultMaxDuty
	}
	if opts.PeriodNs <= 0 {
		opts.PeriodNs = 125000
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &sysfs{
		root:     opts.Root,
		outputs:  make(map[string]string, len(opts.Outputs)),
		pwms:     make(map[string]PWMTarget, len(opts.PWM)),
		inputs:   make(map[string]string, len(opts.Inputs)),
		channels: Channels{Outputs: names(opts.Outputs), PWM: names(opts.PWM), Inputs: names(opts.Inputs)},
		maxDuty:  opts.MaxDuty,
		idle:     opts.ActiveLow,
		logger:   logger,
		faults:   rate.NewLimiter(rate.Every(10*time.Second), 3),
		lastRead: make(map[string]bool, len(opts.Inputs)),
	}

	for _, m := range opts.Outputs {
		s.outputs[m.Name] = s.outputPath(m.Target)
	}

	for _, m := range opts.PWM {
		target, err := parsePWMTarget(m.Target, opts.PeriodNs)
		if err != nil {
			return nil, fmt.Errorf("pwm channel %s: %w", m.Name, err)
		}
		s.pwms[m.Name] = target
	}

	for _, m := range opts.Inputs {
		gpio, err := strconv.Atoi(m.Target)
		if err != nil {
			return nil, fmt.Errorf("input channel %s: gpio number expected, got %q", m.Name, m.Target)
		}
		s.inputs[m.Name] = filepath.Join(s.root, "class", "gpio", fmt.Sprintf("gpio%d", gpio), "value")
		s.lastRead[m.Name] = s.idle
	}

	return s, nil
}

func (s *sysfs) outputPath(target string) string {
	if gpio, err := strconv.Atoi(target); err == nil {
		return filepath.Join(s.root, "class", "gpio", fmt.Sprintf("gpio%d", gpio), "value")
	}
	return filepath.Join(s.root, "class", "leds", target, "brightness")
}

func parsePWMTarget(target string, periodNs int64) (PWMTarget, error) {
	chipStr, chanStr, ok := strings.Cut(target, ":")
	if !ok {
		return PWMTarget{}, fmt.Errorf("target %q: want chip:channel", target)
	}
	chip, err := strconv.Atoi(chipStr)
	if err != nil {
		return PWMTarget{}, fmt.Errorf("target %q: bad chip: %w", target, err)
	}
	channel, err := strconv.Atoi(chanStr)
	if err != nil {
		return PWMTarget{}, fmt.Errorf("target %q: bad channel: %w", target, err)
	}
	return PWMTarget{Chip: chip, Channel: channel, PeriodNs: periodNs}, nil
}

// SetOutput writes 1 or 0 to the channel's value/brightness file.
func (s *sysfs) SetOutput(channel string, on bool) {
	path, ok := s.outputs[channel]
	if !ok {
		s.fault("Unknown output channel", channel, nil)
		return
	}

	value := "0"
	if on {
		value = "1"
	}
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		s.fault("Failed to set output", channel, err)
	}
}

// SetDuty scales duty onto the PWM period and writes duty_cycle in ns.
func (s *sysfs) SetDuty(channel string, duty uint16) {
	target, ok := s.pwms[channel]
	if !ok {
		s.fault("Unknown PWM channel", channel, nil)
		return
	}
	if duty > s.maxDuty {
		duty = s.maxDuty
	}

	ns := target.PeriodNs * int64(duty) / int64(s.maxDuty)
	path := filepath.Join(s.root, "class", "pwm",
		fmt.Sprintf("pwmchip%d", target.Chip),
		fmt.Sprintf("pwm%d", target.Channel),
		"duty_cycle")
	if err := os.WriteFile(path, []byte(strconv.FormatInt(ns, 10)), 0644); err != nil {
		s.fault("Failed to set PWM duty", channel, err)
	}
}

// MaxDuty implements PWM.
func (s *sysfs) MaxDuty() uint16 {
	return s.maxDuty
}

// ReadInput reads the GPIO value file. A failed read repeats the last good
// level so a flaky read never looks like an edge.
func (s *sysfs) ReadInput(channel string) bool {
	path, ok := s.inputs[channel]
	if !ok {
		s.fault("Unknown input channel", channel, nil)
		return s.idle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		s.fault("Failed to read input", channel, err)
		return s.lastRead[channel]
	}

	level := strings.TrimSpace(string(data)) != "0"
	s.lastRead[channel] = level
	return level
}

// Available implements Controller.
func (s *sysfs) Available() Channels {
	return s.channels
}

// Backend implements Controller.
func (s *sysfs) Backend() string {
	return "sysfs"
}

// Missing returns the attribute files that do not exist.
func (s *sysfs) Missing() []string {
	var missing []string
	check := func(path string) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			missing = append(missing, path)
		}
	}
	for _, ch := range s.channels.Outputs {
		check(s.outputs[ch])
	}
	for _, ch := range s.channels.PWM {
		t := s.pwms[ch]
		check(filepath.Join(s.root, "class", "pwm", fmt.Sprintf("pwmchip%d", t.Chip), fmt.Sprintf("pwm%d", t.Channel)))
	}
	for _, ch := range s.channels.Inputs {
		check(s.inputs[ch])
	}
	return missing
}

// fault logs a peripheral failure, throttled so a dead pin cannot flood logs.
func (s *sysfs) fault(msg, channel string, err error) {
	if !s.faults.Allow() {
		return
	}
	if err != nil {
		s.logger.Debug(msg, "channel", channel, "error", err)
		return
	}
	s.logger.Debug(msg, "channel", channel)
}
