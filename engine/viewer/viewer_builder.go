package viewer

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/engine/renderer"
)

// ViewerBuilderOption is a functional option for configuring a Viewer.
type ViewerBuilderOption func(v *viewerImpl)

// WithHost sets the host dialog renderers are created on.
//
// Parameters:
//   - host: the renderer host, typically a window host
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithHost(host renderer.Host) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.host = host
	}
}

// WithRendererOptions appends options to every dialog renderer. They are
// applied after the viewer's own, so they can override size or pause state.
//
// Parameters:
//   - options: renderer options
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithRendererOptions(options ...renderer.SceneRendererBuilderOption) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.rendererOptions = append(v.rendererOptions, options...)
	}
}

// WithPanoramaURL sets the background panorama of the dialog.
//
// Parameters:
//   - url: the equirectangular image URL
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithPanoramaURL(url string) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.panoramaURL = url
	}
}

// WithCloseDelay sets how long the fly-out plays before disposal.
//
// Parameters:
//   - d: the delay, zero disposes on the next timer tick
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithCloseDelay(d time.Duration) ViewerBuilderOption {
	return func(v *viewerImpl) {
		if d >= 0 {
			v.closeDelay = d
		}
	}
}

// WithFollowScale sets the pointer gains of the idle-follow animation.
//
// Parameters:
//   - x: radians of model rotation per unit of horizontal pointer offset
//   - y: camera height per unit of vertical pointer offset
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithFollowScale(x, y float64) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.followScaleX = x
		v.followScaleY = y
	}
}

// WithSize sets the initial dialog size.
//
// Parameters:
//   - width, height: the size in pixels
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithSize(width, height int) ViewerBuilderOption {
	return func(v *viewerImpl) {
		if width > 0 && height > 0 {
			v.width = width
			v.height = height
		}
	}
}

// WithOnMeta sets what the M key does with the captured display metadata.
// The default logs it.
//
// Parameters:
//   - fn: receives the current framing
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithOnMeta(fn func(common.DisplayMeta)) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.onMeta = fn
	}
}

// WithLogger sets the viewer logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) ViewerBuilderOption {
	return func(v *viewerImpl) {
		if logger != nil {
			v.logger = logger
		}
	}
}
