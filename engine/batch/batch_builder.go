package batch

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-showcase/catalog"
	"github.com/Carmen-Shannon/oxy-showcase/engine/cache"
	"github.com/Carmen-Shannon/oxy-showcase/engine/queue"
)

// ThumbnailerBuilderOption is a functional option for configuring a Thumbnailer via NewThumbnailer.
type ThumbnailerBuilderOption func(*thumbnailer)

// WithCatalog is an option builder that sets the catalog client models are listed from.
//
// Parameters:
//   - c: the catalog client
//
// Returns:
//   - ThumbnailerBuilderOption: a function that applies the catalog option to a thumbnailer
func WithCatalog(c catalog.Client) ThumbnailerBuilderOption {
	return func(t *thumbnailer) {
		t.catalog = c
	}
}

// WithQueue is an option builder that sets the rendering queue.
//
// Parameters:
//   - q: the queue
//
// Returns:
//   - ThumbnailerBuilderOption: a function that applies the queue option to a thumbnailer
func WithQueue(q queue.RenderingQueue) ThumbnailerBuilderOption {
	return func(t *thumbnailer) {
		t.queue = q
	}
}

// WithCache is an option builder that sets the render cache. Without it every model is rendered.
//
// Parameters:
//   - c: the cache
//
// Returns:
//   - ThumbnailerBuilderOption: a function that applies the cache option to a thumbnailer
func WithCache(c cache.Cache) ThumbnailerBuilderOption {
	return func(t *thumbnailer) {
		t.cache = c
	}
}

// WithWorkers is an option builder that sets how many models are processed concurrently.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - ThumbnailerBuilderOption: a function that applies the worker option to a thumbnailer
func WithWorkers(n int) ThumbnailerBuilderOption {
	return func(t *thumbnailer) {
		if n > 0 {
			t.workers = n
		}
	}
}

// WithPageSize is an option builder that sets the catalog page size.
//
// Parameters:
//   - n: models per page
//
// Returns:
//   - ThumbnailerBuilderOption: a function that applies the page size option to a thumbnailer
func WithPageSize(n int) ThumbnailerBuilderOption {
	return func(t *thumbnailer) {
		if n > 0 {
			t.pageSize = n
		}
	}
}

// WithSearch is an option builder that restricts the run to models matching a search text.
//
// Parameters:
//   - search: the search text
//
// Returns:
//   - ThumbnailerBuilderOption: a function that applies the search option to a thumbnailer
func WithSearch(search string) ThumbnailerBuilderOption {
	return func(t *thumbnailer) {
		t.search = search
	}
}

// WithOutputDir is an option builder that also writes each thumbnail as a PNG file.
//
// Parameters:
//   - dir: the output directory
//
// Returns:
//   - ThumbnailerBuilderOption: a function that applies the output option to a thumbnailer
func WithOutputDir(dir string) ThumbnailerBuilderOption {
	return func(t *thumbnailer) {
		t.outputDir = dir
	}
}

// WithOnResult is an option builder that sets a callback invoked for every model result.
// It may be called from several goroutines at once.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - ThumbnailerBuilderOption: a function that applies the callback option to a thumbnailer
func WithOnResult(fn func(Result)) ThumbnailerBuilderOption {
	return func(t *thumbnailer) {
		t.onResult = fn
	}
}

// WithLogger is an option builder that sets the thumbnailer's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ThumbnailerBuilderOption: a function that applies the logger option to a thumbnailer
func WithLogger(logger *slog.Logger) ThumbnailerBuilderOption {
	return func(t *thumbnailer) {
		if logger != nil {
			t.logger = logger.With("component", "batch")
		}
	}
}
