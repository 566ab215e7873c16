package window

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-showcase/engine/renderer"
)

type pendingFrame struct {
	id renderer.FrameID
	cb renderer.FrameCallback
}

// frameScheduler queues frame callbacks until the window loop runs them.
// Requests may come from any goroutine.
type frameScheduler struct {
	mu *sync.Mutex

	nextID  renderer.FrameID
	pending []pendingFrame
}

func newFrameScheduler() *frameScheduler {
	return &frameScheduler{mu: &sync.Mutex{}}
}

func (s *frameScheduler) request(cb renderer.FrameCallback) renderer.FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.pending = append(s.pending, pendingFrame{id: s.nextID, cb: cb})
	return s.nextID
}

func (s *frameScheduler) cancel(id renderer.FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.pending {
		if f.id == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// run invokes the callbacks pending at call time in request order.
// Callbacks requested while running wait for the next call.
func (s *frameScheduler) run() int {
	s.mu.Lock()
	due := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, f := range due {
		f.cb()
	}
	return len(due)
}

func (s *frameScheduler) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
