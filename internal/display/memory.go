package display

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Memory is a framebuffer-less display that keeps the last presented frame.
type Memory struct {
	width  int
	height int

	mu      sync.Mutex
	pending []Line
	seq     uint64

	last atomic.Pointer[Frame]
}

// NewMemory creates an in-memory display.
func NewMemory(width, height int) *Memory {
	return &Memory{width: width, height: height}
}

// Clear implements Display.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = m.pending[:0]
}

// DrawText implements Display.
func (m *Memory) DrawText(x, y, scale int, text string) {
	line, ok := clip(m.width, m.height, Line{X: x, Y: y, Scale: scale, Text: text})
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, line)
}

// Present implements Display.
func (m *Memory) Present() {
	m.present()
}

func (m *Memory) present() Frame {
	m.mu.Lock()
	m.seq++
	frame := Frame{
		Sequence:  m.seq,
		Lines:     slices.Clone(m.pending),
		Presented: time.Now(),
	}
	m.mu.Unlock()

	m.last.Store(&frame)
	return frame
}

// LastFrame returns the last presented frame. False before the first Present.
func (m *Memory) LastFrame() (Frame, bool) {
	f := m.last.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}
