package queue

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-showcase/engine/renderer"
)

// RenderingQueueBuilderOption is a functional option for configuring a RenderingQueue via NewRenderingQueue.
type RenderingQueueBuilderOption func(*renderingQueue)

// WithRendererFactory is an option builder that sets how the shared renderer is built.
//
// Parameters:
//   - factory: the renderer factory
//
// Returns:
//   - RenderingQueueBuilderOption: a function that applies the factory option to a queue
func WithRendererFactory(factory RendererFactory) RenderingQueueBuilderOption {
	return func(q *renderingQueue) {
		q.factory = factory
	}
}

// WithRendererOptions is an option builder that adds options to the default renderer factory.
// It has no effect together with WithRendererFactory.
//
// Parameters:
//   - options: renderer options applied after the queue defaults
//
// Returns:
//   - RenderingQueueBuilderOption: a function that applies the renderer options to a queue
func WithRendererOptions(options ...renderer.SceneRendererBuilderOption) RenderingQueueBuilderOption {
	return func(q *renderingQueue) {
		q.rendererOptions = append(q.rendererOptions, options...)
	}
}

// WithIdleTimeout is an option builder that sets how long the queue waits empty before disposing its renderer.
//
// Parameters:
//   - d: the idle timeout, zero or negative keeps the renderer forever
//
// Returns:
//   - RenderingQueueBuilderOption: a function that applies the idle timeout option to a queue
func WithIdleTimeout(d time.Duration) RenderingQueueBuilderOption {
	return func(q *renderingQueue) {
		q.idleTimeout = d
	}
}

// WithLogger is an option builder that sets the queue's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - RenderingQueueBuilderOption: a function that applies the logger option to a queue
func WithLogger(logger *slog.Logger) RenderingQueueBuilderOption {
	return func(q *renderingQueue) {
		if logger != nil {
			q.logger = logger.With("component", "queue")
		}
	}
}
