package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-showcase/engine/loader"
	"github.com/gogpu/gg"
)

// SceneRendererBuilderOption is a functional option for configuring a SceneRenderer via NewSceneRenderer.
type SceneRendererBuilderOption func(*sceneRenderer)

// WithSize is an option builder that sets the output size in pixels.
//
// Parameters:
//   - width, height: the surface size
//
// Returns:
//   - SceneRendererBuilderOption: a function that applies the size option to a renderer
func WithSize(width, height int) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		r.width = width
		r.height = height
	}
}

// WithPaused is an option builder that starts the renderer without the live loop.
// Paused renderers only draw on explicit RenderFrame calls.
//
// Parameters:
//   - paused: the paused flag
//
// Returns:
//   - SceneRendererBuilderOption: a function that applies the paused option to a renderer
func WithPaused(paused bool) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		r.paused = paused
	}
}

// WithDoubleSided is an option builder that sets the double-sided flag applied to loaded assets.
//
// Parameters:
//   - doubleSided: the requested flag
//
// Returns:
//   - SceneRendererBuilderOption: a function that applies the double-sided option to a renderer
func WithDoubleSided(doubleSided bool) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		r.doubleSided = doubleSided
	}
}

// WithPanoramaURL is an option builder that sets an equirectangular sky image.
//
// Parameters:
//   - url: the image reference
//
// Returns:
//   - SceneRendererBuilderOption: a function that applies the panorama option to a renderer
func WithPanoramaURL(url string) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		r.panoramaURL = url
	}
}

// WithHost is an option builder that sets the platform host. Defaults to an offscreen host.
//
// Parameters:
//   - host: the host
//
// Returns:
//   - SceneRendererBuilderOption: a function that applies the host option to a renderer
func WithHost(host Host) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		r.host = host
	}
}

// WithLoader is an option builder that sets the asset loader.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - SceneRendererBuilderOption: a function that applies the loader option to a renderer
func WithLoader(l loader.Loader) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		r.loader = l
	}
}

// WithGrid is an option builder that shows or hides the ground grid.
//
// Parameters:
//   - visible: the grid visibility
//
// Returns:
//   - SceneRendererBuilderOption: a function that applies the grid option to a renderer
func WithGrid(visible bool) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		r.showGrid = visible
	}
}

// WithSupersample is an option builder that sets the supersampling factor resolved by the AA pass.
//
// Parameters:
//   - factor: samples per output pixel along each axis, at least 1
//
// Returns:
//   - SceneRendererBuilderOption: a function that applies the supersample option to a renderer
func WithSupersample(factor int) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		if factor >= 1 {
			r.supersample = factor
		}
	}
}

// WithClearColor is an option builder that sets the background color shown without a panorama.
//
// Parameters:
//   - c: the color
//
// Returns:
//   - SceneRendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(c gg.RGBA) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		r.clearColor = c
	}
}

// WithClock is an option builder that sets the frame clock.
//
// Parameters:
//   - c: the clock
//
// Returns:
//   - SceneRendererBuilderOption: a function that applies the clock option to a renderer
func WithClock(c Clock) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		r.clock = c
	}
}

// WithRasterWorkers is an option builder that sets how many workers rasterize bands in parallel.
// One disables the worker pool.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - SceneRendererBuilderOption: a function that applies the worker option to a renderer
func WithRasterWorkers(n int) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		if n >= 1 {
			r.workers = n
		}
	}
}

// WithLogger is an option builder that sets the renderer's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - SceneRendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(logger *slog.Logger) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		if logger != nil {
			r.logger = logger.With("component", "renderer")
		}
	}
}
