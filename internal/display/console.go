package display

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// console prints each presented frame that differs from the previous one.
type console struct {
	*Memory

	w      io.Writer
	logger *slog.Logger

	mu    sync.Mutex
	shown string
}

func newConsole(opts Options) *console {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	return &console{
		Memory: NewMemory(opts.Width, opts.Height),
		w:      w,
		logger: opts.Logger,
	}
}

// Present implements Display.
func (c *console) Present() {
	frame := c.present()
	text := frame.String()

	c.mu.Lock()
	defer c.mu.Unlock()
	if text == c.shown {
		return
	}
	c.shown = text

	if _, err := fmt.Fprintf(c.w, "[display #%d] %s\n", frame.Sequence, text); err != nil {
		c.logger.Debug("Display write failed", "error", err)
	}
}
