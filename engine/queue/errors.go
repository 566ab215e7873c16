package queue

import "errors"

var (
	// ErrCancelled settles a ticket whose task was cancelled before it produced a result.
	ErrCancelled = errors.New("render task cancelled")
	// ErrClosed settles tickets of tasks that were pending when the queue closed, or enqueued after.
	ErrClosed = errors.New("rendering queue closed")
	// ErrPending is returned by Ticket.Result before the ticket settles.
	ErrPending = errors.New("render task pending")
)
