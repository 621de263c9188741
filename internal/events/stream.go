package events

import (
	"sync"
	"sync/atomic"

	"github.com/kelindar/event"
)

// Stream merges one or more event types into a single buffered channel, the
// shape an SSE handler selects on. A slow reader loses events rather than
// stalling publishers; losses are counted.
type Stream struct {
	ch      chan any
	dropped atomic.Uint64

	mu     sync.Mutex
	unsubs []func()
}

// NewStream creates a stream with room for size pending events.
func NewStream(size int) *Stream {
	return &Stream{ch: make(chan any, size)}
}

// Forward subscribes s to events of type T on bus.
func Forward[T Event](s *Stream, bus *Bus) {
	unsub := event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case s.ch <- e:
		default:
			s.dropped.Add(1)
		}
	})
	s.mu.Lock()
	s.unsubs = append(s.unsubs, unsub)
	s.mu.Unlock()
}

// C returns the receive side of the stream.
func (s *Stream) C() <-chan any { return s.ch }

// Dropped reports how many events did not fit the buffer.
func (s *Stream) Dropped() uint64 { return s.dropped.Load() }

// Close removes every subscription. The channel stays open; pending events
// can still be drained.
func (s *Stream) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}
