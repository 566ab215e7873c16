package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/engine/renderer"
)

// DefaultIdleTimeout is how long the queue stays empty before its renderer is disposed.
const DefaultIdleTimeout = 5 * time.Second

// RendererFactory builds the renderer tasks run on. It is called lazily and again
// after the previous renderer was disposed for idleness.
type RendererFactory func() (renderer.SceneRenderer, error)

// task is one queued render request.
type task struct {
	id        int64
	sourceURL string
	meta      *common.DisplayMeta
	ticket    *Ticket
	ctx       context.Context
	cancel    context.CancelFunc
}

// renderingQueue is the implementation of the RenderingQueue interface.
type renderingQueue struct {
	mu *sync.Mutex

	factory         RendererFactory
	rendererOptions []renderer.SceneRendererBuilderOption
	idleTimeout     time.Duration
	logger          *slog.Logger

	nextID   int64
	pending  []*task
	current  *task
	working  bool
	closed   bool
	renderer renderer.SceneRenderer

	idleTimer *time.Timer
	idleGen   uint64
}

// RenderingQueue serializes thumbnail render requests onto one shared SceneRenderer.
// Tasks run one at a time in FIFO order. The renderer is built on first use and
// disposed after the queue has been idle for the idle timeout.
type RenderingQueue interface {
	// Enqueue adds a render task and returns immediately.
	//
	// Parameters:
	//   - sourceURL: the asset to render
	//   - meta: saved camera framing, may be nil
	//
	// Returns:
	//   - *Ticket: settles with the image data URL or an error
	//   - int64: the task id, usable with Cancel
	Enqueue(sourceURL string, meta *common.DisplayMeta) (*Ticket, int64)

	// Cancel cancels a pending or in-flight task. Its ticket settles with ErrCancelled.
	//
	// Parameters:
	//   - id: the task id
	//
	// Returns:
	//   - bool: false if no pending or running task has that id
	Cancel(id int64) bool

	// Len returns the number of pending tasks, excluding the running one.
	//
	// Returns:
	//   - int: the pending count
	Len() int

	// Working reports whether a task is running.
	//
	// Returns:
	//   - bool: true while a task runs
	Working() bool

	// RendererDisposed reports whether no live renderer is held.
	//
	// Returns:
	//   - bool: true before first use and after idle disposal
	RendererDisposed() bool

	// Close rejects pending tasks with ErrClosed, cancels the running one and disposes the renderer.
	Close()
}

var _ RenderingQueue = &renderingQueue{}

// NewRenderingQueue creates a RenderingQueue.
// Without a factory option, renderers are built paused at 400x400 with the grid hidden.
//
// Parameters:
//   - options: functional options to configure the queue
//
// Returns:
//   - RenderingQueue: the queue
func NewRenderingQueue(options ...RenderingQueueBuilderOption) RenderingQueue {
	q := &renderingQueue{
		mu:          &sync.Mutex{},
		idleTimeout: DefaultIdleTimeout,
		logger:      common.Logger("queue"),
	}
	for _, option := range options {
		option(q)
	}
	if q.factory == nil {
		q.factory = q.defaultFactory
	}
	return q
}

func (q *renderingQueue) defaultFactory() (renderer.SceneRenderer, error) {
	opts := append([]renderer.SceneRendererBuilderOption{
		renderer.WithSize(renderer.DefaultWidth, renderer.DefaultHeight),
		renderer.WithPaused(true),
		renderer.WithDoubleSided(true),
		renderer.WithGrid(false),
	}, q.rendererOptions...)
	return renderer.NewSceneRenderer(opts...)
}

func (q *renderingQueue) Enqueue(sourceURL string, meta *common.DisplayMeta) (*Ticket, int64) {
	q.mu.Lock()
	q.nextID++
	id := q.nextID
	ticket := newTicket(id)
	if q.closed {
		q.mu.Unlock()
		ticket.settle("", ErrClosed)
		return ticket, id
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.pending = append(q.pending, &task{
		id:        id,
		sourceURL: sourceURL,
		meta:      meta,
		ticket:    ticket,
		ctx:       ctx,
		cancel:    cancel,
	})
	q.mu.Unlock()

	q.logger.Debug("task enqueued", "task_id", id, "source", sourceURL)
	go q.pump()
	return ticket, id
}

func (q *renderingQueue) Cancel(id int64) bool {
	q.mu.Lock()
	for i, t := range q.pending {
		if t.id != id {
			continue
		}
		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		q.mu.Unlock()
		t.cancel()
		t.ticket.settle("", ErrCancelled)
		q.logger.Debug("pending task cancelled", "task_id", id)
		return true
	}
	if q.current != nil && q.current.id == id {
		t := q.current
		q.mu.Unlock()
		t.cancel()
		t.ticket.settle("", ErrCancelled)
		q.logger.Debug("running task cancelled", "task_id", id)
		return true
	}
	q.mu.Unlock()
	return false
}

func (q *renderingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *renderingQueue) Working() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.working
}

func (q *renderingQueue) RendererDisposed() bool {
	q.mu.Lock()
	r := q.renderer
	q.mu.Unlock()
	return r == nil || r.Disposed()
}

func (q *renderingQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	pending := q.pending
	q.pending = nil
	current := q.current
	q.stopIdleTimer()
	var r renderer.SceneRenderer
	if !q.working {
		r = q.renderer
		q.renderer = nil
	}
	q.mu.Unlock()

	for _, t := range pending {
		t.cancel()
		t.ticket.settle("", ErrClosed)
	}
	if current != nil {
		current.cancel()
		current.ticket.settle("", ErrClosed)
	}
	if r != nil {
		r.Dispose()
	}
	q.logger.Debug("queue closed", "rejected", len(pending))
}

// pump runs the head task if nothing else is running, then schedules itself again.
// With nothing pending it arms the idle timer instead.
func (q *renderingQueue) pump() {
	q.mu.Lock()
	if q.working || q.closed {
		q.mu.Unlock()
		return
	}
	if len(q.pending) == 0 {
		q.armIdleTimer()
		q.mu.Unlock()
		return
	}
	t := q.pending[0]
	q.pending = q.pending[1:]
	q.working = true
	q.current = t
	q.stopIdleTimer()
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.working = false
		q.current = nil
		var orphan renderer.SceneRenderer
		if q.closed {
			orphan = q.renderer
			q.renderer = nil
		}
		q.mu.Unlock()
		if orphan != nil {
			orphan.Dispose()
		}
		go q.pump()
	}()

	url, err := q.run(t)
	t.cancel()
	if err != nil {
		if t.ticket.settle("", err) {
			q.logger.Warn("render failed", "task_id", t.id, "source", t.sourceURL, "error", err)
		}
		return
	}
	if t.ticket.settle(url, nil) {
		q.logger.Debug("render finished", "task_id", t.id, "bytes", len(url))
	}
}

// run executes one task on the shared renderer, building it first if needed.
func (q *renderingQueue) run(t *task) (_ string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			q.logger.Error("render task panicked", "task_id", t.id, "panic", rec)
			err = fmt.Errorf("render %s: panic: %v", t.sourceURL, rec)
		}
	}()

	r, err := q.acquireRenderer()
	if err != nil {
		return "", err
	}

	if err := r.LoadAsset(t.ctx, t.sourceURL, true); err != nil {
		return "", taskError(t, err)
	}
	// the asset may have finished loading just as the task was cancelled
	if t.ctx.Err() != nil {
		r.RemoveAsset()
		return "", ErrCancelled
	}
	r.ApplyDisplayMeta(t.meta)
	r.SetDoubleSided(t.meta.DoubleSidedOrDefault())
	if err := r.RenderFrame(); err != nil {
		r.RemoveAsset()
		return "", fmt.Errorf("render %s: %w", t.sourceURL, err)
	}
	url, err := r.ExportImage()
	r.RemoveAsset()
	if err != nil {
		return "", fmt.Errorf("export %s: %w", t.sourceURL, err)
	}
	if t.ctx.Err() != nil {
		return "", ErrCancelled
	}
	return url, nil
}

// acquireRenderer returns the shared renderer, building and warming up a new one when
// none is held or the last one was disposed.
func (q *renderingQueue) acquireRenderer() (renderer.SceneRenderer, error) {
	q.mu.Lock()
	r := q.renderer
	q.mu.Unlock()
	if r != nil && !r.Disposed() {
		return r, nil
	}

	r, err := q.factory()
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	if err := r.RenderFrame(); err != nil {
		q.logger.Warn("renderer warm-up failed", "error", err)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		r.Dispose()
		return nil, ErrClosed
	}
	q.renderer = r
	q.mu.Unlock()
	q.logger.Debug("renderer created", "renderer_id", r.ID())
	return r, nil
}

func taskError(t *task, err error) error {
	if t.ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return ErrCancelled
	}
	return err
}

// armIdleTimer (re)starts the idle countdown. Caller must hold the mutex.
func (q *renderingQueue) armIdleTimer() {
	if q.renderer == nil || q.idleTimeout <= 0 {
		return
	}
	q.stopIdleTimer()
	gen := q.idleGen
	q.idleTimer = time.AfterFunc(q.idleTimeout, func() { q.onIdle(gen) })
}

// stopIdleTimer cancels a pending idle countdown. Caller must hold the mutex.
func (q *renderingQueue) stopIdleTimer() {
	q.idleGen++
	if q.idleTimer != nil {
		q.idleTimer.Stop()
		q.idleTimer = nil
	}
}

func (q *renderingQueue) onIdle(gen uint64) {
	q.mu.Lock()
	if gen != q.idleGen || q.working || len(q.pending) > 0 || q.renderer == nil {
		q.mu.Unlock()
		return
	}
	r := q.renderer
	q.renderer = nil
	q.idleTimer = nil
	q.mu.Unlock()

	r.Dispose()
	q.logger.Debug("idle renderer disposed", "renderer_id", r.ID())
}

var (
	defaultMu    = &sync.Mutex{}
	defaultQueue RenderingQueue
)

// Default returns the process-wide queue, creating it with default options on first use.
//
// Returns:
//   - RenderingQueue: the shared queue
func Default() RenderingQueue {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultQueue == nil {
		defaultQueue = NewRenderingQueue()
	}
	return defaultQueue
}

// SetDefault replaces the process-wide queue. The previous queue is not closed.
//
// Parameters:
//   - q: the new shared queue
func SetDefault(q RenderingQueue) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultQueue = q
}
