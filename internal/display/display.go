// Package display models the small text panel the status task draws on.
//
// A Display is driven with Clear, any number of DrawText calls and Present.
// Nothing becomes visible before Present, and Present swaps in the whole
// frame at once, so a reader never observes a partially drawn screen.
package display

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Panel geometry of the SSD1306 module the panel ships with.
const (
	DefaultWidth  = 128
	DefaultHeight = 64
	CharWidth     = 6
	CharHeight    = 8
)

// Device kinds accepted by New.
const (
	KindMemory  = "memory"
	KindConsole = "console"
)

var (
	// ErrUnknownKind is returned by New for an unsupported device kind.
	ErrUnknownKind = errors.New("display: unknown device kind")

	// ErrInvalidGeometry is returned by New when the panel cannot fit one character.
	ErrInvalidGeometry = errors.New("display: invalid geometry")
)

// Display is the drawing surface handed to the status task.
type Display interface {
	// Clear empties the pending frame.
	Clear()

	// DrawText queues a line of text at pixel position (x, y).
	DrawText(x, y, scale int, text string)

	// Present makes the pending frame visible.
	Present()
}

// Snapshotter exposes the last presented frame.
type Snapshotter interface {
	LastFrame() (Frame, bool)
}

// Line is one text run of a frame.
type Line struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Scale int    `json:"scale"`
	Text  string `json:"text"`
}

// Frame is a complete presented screen.
type Frame struct {
	Sequence  uint64    `json:"sequence"`
	Lines     []Line    `json:"lines"`
	Presented time.Time `json:"presented"`
}

// Texts returns the text of every line in draw order.
func (f Frame) Texts() []string {
	out := make([]string, 0, len(f.Lines))
	for _, l := range f.Lines {
		out = append(out, l.Text)
	}
	return out
}

// String renders the frame on one line, lines separated by " | ".
func (f Frame) String() string {
	return strings.Join(f.Texts(), " | ")
}

// Options configures a display device.
type Options struct {
	Width  int
	Height int
	Writer io.Writer // console output, default os.Stdout
	Logger *slog.Logger
}

// New creates a display device of the given kind.
func New(kind string, opts Options) (Display, error) {
	if opts.Width == 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height == 0 {
		opts.Height = DefaultHeight
	}
	if opts.Width < CharWidth || opts.Height < CharHeight {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, opts.Width, opts.Height)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch kind {
	case KindMemory, "":
		return NewMemory(opts.Width, opts.Height), nil
	case KindConsole:
		return newConsole(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// clip fits a line onto a width x height panel. Lines starting off-panel or
// overflowing the bottom edge are dropped; text past the right edge is cut.
func clip(width, height int, l Line) (Line, bool) {
	if l.Scale < 1 {
		l.Scale = 1
	}
	if l.X < 0 || l.Y < 0 || l.X >= width || l.Y+CharHeight*l.Scale > height {
		return Line{}, false
	}

	fit := (width - l.X) / (CharWidth * l.Scale)
	if fit <= 0 {
		return Line{}, false
	}
	if runes := []rune(l.Text); len(runes) > fit {
		l.Text = string(runes[:fit])
	}
	return l, true
}
