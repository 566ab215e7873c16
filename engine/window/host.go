package window

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/engine/renderer"
)

// Host is a renderer.Host that shows frames in a window.
// Frame callbacks and GPU presentation both happen in Flush, which the
// window loop calls once per iteration.
type Host interface {
	renderer.Host

	// Flush runs the due frame callbacks, then presents the newest frame if it changed
	// or the window was resized.
	//
	// Returns:
	//   - int: the number of frame callbacks run
	Flush() int

	// Pending returns the number of frame requests waiting for the next Flush.
	//
	// Returns:
	//   - int: the pending count
	Pending() int

	// Release frees the GPU resources. The host must not be used afterwards.
	Release()
}

// framePresenter puts a finished frame on screen.
type framePresenter interface {
	present(frame *image.RGBA, width, height int) error
	release()
}

type windowHost struct {
	mu *sync.Mutex

	logger    *slog.Logger
	size      func() (int, int)
	presenter framePresenter
	frames    *frameScheduler

	surface     *windowSurface
	lastWidth   int
	lastHeight  int
	lastPresent *image.RGBA
	released    bool
}

var _ Host = &windowHost{}

// NewHost creates a Host that presents through a wgpu surface of w.
// Must be called on the window's goroutine.
//
// Parameters:
//   - w: the window to present into
//   - options: functional options
//
// Returns:
//   - Host: the host
//   - error: error if the GPU cannot be initialized for the window
func NewHost(w Window, options ...HostBuilderOption) (Host, error) {
	cfg := &hostConfig{logger: common.Logger("window")}
	for _, opt := range options {
		opt(cfg)
	}
	desc := w.SurfaceDescriptor()
	if desc == nil {
		return nil, errNotInitialized
	}
	p, err := newWGPUPresenter(desc, cfg.forceFallbackAdapter, cfg.vsync)
	if err != nil {
		return nil, fmt.Errorf("init presenter: %w", err)
	}
	return newWindowHost(p, func() (int, int) { return w.Width(), w.Height() }, cfg.logger), nil
}

func newWindowHost(p framePresenter, size func() (int, int), logger *slog.Logger) *windowHost {
	return &windowHost{
		mu:        &sync.Mutex{},
		logger:    logger,
		size:      size,
		presenter: p,
		frames:    newFrameScheduler(),
	}
}

func (h *windowHost) CreateSurface(width, height int) (renderer.Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", renderer.ErrInvalidSize, width, height)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, renderer.ErrDisposed
	}
	s := &windowSurface{mu: &sync.Mutex{}, width: width, height: height}
	h.surface = s
	h.lastPresent = nil
	return s, nil
}

func (h *windowHost) RequestFrame(cb renderer.FrameCallback) renderer.FrameID {
	return h.frames.request(cb)
}

func (h *windowHost) CancelFrame(id renderer.FrameID) {
	h.frames.cancel(id)
}

func (h *windowHost) ExportImage(frame image.Image) (string, error) {
	return renderer.EncodeDataURL(frame)
}

func (h *windowHost) Flush() int {
	n := h.frames.run()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released || h.surface == nil {
		return n
	}
	frame := h.surface.latest()
	if frame == nil {
		return n
	}
	width, height := h.size()
	if width <= 0 || height <= 0 {
		return n
	}
	if frame == h.lastPresent && width == h.lastWidth && height == h.lastHeight {
		return n
	}
	if err := h.presenter.present(frame, width, height); err != nil {
		h.logger.Warn("present frame", "error", err)
		return n
	}
	h.lastPresent = frame
	h.lastWidth = width
	h.lastHeight = height
	return n
}

func (h *windowHost) Pending() int {
	return h.frames.len()
}

func (h *windowHost) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	h.presenter.release()
}

// windowSurface holds the newest frame until the window loop presents it.
type windowSurface struct {
	mu *sync.Mutex

	width    int
	height   int
	frame    *image.RGBA
	released bool
}

var _ renderer.Surface = &windowSurface{}

func (s *windowSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *windowSurface) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", renderer.ErrInvalidSize, width, height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
	s.height = height
	return nil
}

func (s *windowSurface) Present(frame *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return renderer.ErrDisposed
	}
	s.frame = frame
	return nil
}

func (s *windowSurface) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.frame = nil
}

func (s *windowSurface) latest() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}
