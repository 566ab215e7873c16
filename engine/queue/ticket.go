package queue

import (
	"context"
	"sync"
)

// Ticket is the eventual result of an enqueued render task.
// It settles exactly once, either with an image data URL or an error.
type Ticket struct {
	mu *sync.Mutex

	id      int64
	done    chan struct{}
	settled bool
	url     string
	err     error
}

func newTicket(id int64) *Ticket {
	return &Ticket{
		mu:   &sync.Mutex{},
		id:   id,
		done: make(chan struct{}),
	}
}

// ID returns the task id, usable with Cancel.
//
// Returns:
//   - int64: the id
func (t *Ticket) ID() int64 {
	return t.id
}

// Done returns a channel closed once the ticket settles.
//
// Returns:
//   - <-chan struct{}: the done channel
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Result returns the settled outcome without blocking.
//
// Returns:
//   - string: the image data URL
//   - error: the task error, or ErrPending before the ticket settles
func (t *Ticket) Result() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.settled {
		return "", ErrPending
	}
	return t.url, t.err
}

// Wait blocks until the ticket settles or ctx is done.
//
// Parameters:
//   - ctx: bounds the wait, it does not cancel the task
//
// Returns:
//   - string: the image data URL
//   - error: the task error, or ctx.Err() if ctx ended first
func (t *Ticket) Wait(ctx context.Context) (string, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// settle records the outcome. Later calls are ignored.
func (t *Ticket) settle(url string, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.settled {
		return false
	}
	t.settled = true
	t.url = url
	t.err = err
	close(t.done)
	return true
}
