package periph

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Kind tells which surface a recorded change went through.
type Kind string

// Change kinds.
const (
	KindOutput Kind = "output"
	KindPWM    Kind = "pwm"
	KindInput  Kind = "input"
)

// Change is one recorded call on the simulated board.
type Change struct {
	At      time.Duration
	Kind    Kind
	Channel string
	Value   int
}

// SimOptions configures a simulated board.
type SimOptions struct {
	Outputs []string
	PWM     []string
	Inputs  []string

	// IdleInput is the level of a released input (true for pull-up wiring).
	IdleInput bool
	MaxDuty   uint16

	// Clock timestamps recorded changes. Defaults to time since creation.
	Clock func() time.Duration
}

// Sim is an in-memory board. It records every call and lets inputs be
// driven programmatically.
type Sim struct {
	mu       sync.Mutex
	channels Channels
	idle     bool
	maxDuty  uint16
	clock    func() time.Duration
	outputs  map[string]bool
	duty     map[string]uint16
	inputs   map[string]bool
	history  []Change
}

// NewSim creates a simulated board with every output off, every duty zero
// and every input at its idle level.
func NewSim(opts SimOptions) *Sim {
	if opts.MaxDuty == 0 {
		opts.MaxDuty = DefaultMaxDuty
	}
	clock := opts.Clock
	if clock == nil {
		start := time.Now()
		clock = func() time.Duration { return time.Since(start) }
	}

	s := &Sim{
		channels: Channels{
			Outputs: slices.Clone(opts.Outputs),
			PWM:     slices.Clone(opts.PWM),
			Inputs:  slices.Clone(opts.Inputs),
		},
		idle:    opts.IdleInput,
		maxDuty: opts.MaxDuty,
		clock:   clock,
		outputs: make(map[string]bool),
		duty:    make(map[string]uint16),
		inputs:  make(map[string]bool),
	}
	for _, ch := range opts.Inputs {
		s.inputs[ch] = opts.IdleInput
	}
	return s
}

// SetClock replaces the timestamp source, e.g. with kernel time.
func (s *Sim) SetClock(clock func() time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// SetOutput implements Outputs.
func (s *Sim) SetOutput(channel string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[channel] = on
	s.record(KindOutput, channel, boolToInt(on))
}

// SetDuty implements PWM. Values above MaxDuty are clamped.
func (s *Sim) SetDuty(channel string, duty uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if duty > s.maxDuty {
		duty = s.maxDuty
	}
	s.duty[channel] = duty
	s.record(KindPWM, channel, int(duty))
}

// MaxDuty implements PWM.
func (s *Sim) MaxDuty() uint16 {
	return s.maxDuty
}

// ReadInput implements Inputs. Unknown channels read as idle.
func (s *Sim) ReadInput(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	level, ok := s.inputs[channel]
	if !ok {
		return s.idle
	}
	return level
}

// Available implements Controller.
func (s *Sim) Available() Channels {
	return Channels{
		Outputs: slices.Clone(s.channels.Outputs),
		PWM:     slices.Clone(s.channels.PWM),
		Inputs:  slices.Clone(s.channels.Inputs),
	}
}

// Backend implements Controller.
func (s *Sim) Backend() string {
	return "sim"
}

// SetInput drives the raw level of an input.
func (s *Sim) SetInput(channel string, level bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs[channel] = level
	s.record(KindInput, channel, boolToInt(level))
}

// Press drives an input to its active level.
func (s *Sim) Press(channel string) {
	s.SetInput(channel, !s.idle)
}

// Release drives an input back to its idle level.
func (s *Sim) Release(channel string) {
	s.SetInput(channel, s.idle)
}

// Tap presses an input and releases it after hold.
func (s *Sim) Tap(channel string, hold time.Duration) error {
	if !slices.Contains(s.channels.Inputs, channel) {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}
	s.Press(channel)
	time.AfterFunc(hold, func() { s.Release(channel) })
	return nil
}

// Output returns the last level written to an output.
func (s *Sim) Output(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputs[channel]
}

// Duty returns the last duty written to a PWM channel.
func (s *Sim) Duty(channel string) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duty[channel]
}

// History returns a copy of every recorded change.
func (s *Sim) History() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// record appends a change (must hold s.mu).
func (s *Sim) record(kind Kind, channel string, value int) {
	s.history = append(s.history, Change{
		At:      s.clock(),
		Kind:    kind,
		Channel: channel,
		Value:   value,
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
