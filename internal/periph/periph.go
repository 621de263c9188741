// Package periph abstracts the digital outputs, PWM outputs and digital
// inputs the panel tasks drive. Calls are fire-and-forget: implementations
// never report write failures to the caller.
package periph

import (
	"errors"
	"fmt"
	"strings"
)

// Outputs drives binary output channels.
type Outputs interface {
	// SetOutput drives a channel high (on) or low. Idempotent.
	SetOutput(channel string, on bool)
}

// PWM drives duty-cycle output channels.
type PWM interface {
	// SetDuty sets the duty of a channel, 0..MaxDuty(). Idempotent.
	SetDuty(channel string, duty uint16)

	// MaxDuty returns the full-scale duty value.
	MaxDuty() uint16
}

// Inputs reads digital input channels.
type Inputs interface {
	// ReadInput returns the raw electrical level of a channel.
	ReadInput(channel string) bool
}

// Controller is the full peripheral surface of a board.
type Controller interface {
	Outputs
	PWM
	Inputs

	// Available lists the channels this controller knows, per kind.
	Available() Channels

	// Backend names the implementation (sysfs, sim, noop).
	Backend() string
}

// Channels groups channel names by kind.
type Channels struct {
	Outputs []string `json:"outputs"`
	PWM     []string `json:"pwm"`
	Inputs  []string `json:"inputs"`
}

// DefaultMaxDuty is the 12-bit full scale used by the buzzer output.
const DefaultMaxDuty uint16 = 4095

// ErrUnknownChannel is returned by helpers that address a channel by name.
var ErrUnknownChannel = errors.New("periph: unknown channel")

// ParseMapping parses "name=target,name=target" into an ordered list of pairs.
func ParseMapping(spec string) ([]Mapping, error) {
	var out []Mapping
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, target, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		target = strings.TrimSpace(target)
		if !ok || name == "" || target == "" {
			return nil, fmt.Errorf("invalid channel mapping %q (want name=target)", part)
		}
		out = append(out, Mapping{Name: name, Target: target})
	}
	return out, nil
}

// Mapping binds a logical channel name to a backend-specific target.
type Mapping struct {
	Name   string
	Target string
}

// names returns the channel names of a mapping list.
func names(ms []Mapping) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Name)
	}
	return out
}
