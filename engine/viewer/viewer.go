package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/engine/animation"
	"github.com/Carmen-Shannon/oxy-showcase/engine/renderer"
	"github.com/Carmen-Shannon/oxy-showcase/engine/window"
)

const (
	// DefaultCloseDelay is how long the fly-out plays before the renderer is disposed.
	DefaultCloseDelay = 300 * time.Millisecond
	// DefaultWidth and DefaultHeight size the dialog renderer before the first resize.
	DefaultWidth  = 400
	DefaultHeight = 400

	defaultFollowScaleX = math.Pi / 2
	defaultFollowScaleY = 0.5
	scrollZoomStep      = 1
)

var (
	// ErrNotOpen is returned by operations that need an open dialog.
	ErrNotOpen = errors.New("viewer is not open")
	// ErrNoSource is returned when opening a subject without an asset URL.
	ErrNoSource = errors.New("subject has no asset url")
)

// Subject is what the dialog shows: an asset and its saved framing.
type Subject struct {
	Name string
	URL  string
	Meta *common.DisplayMeta
}

// Viewer is the interactive preview dialog. It owns one renderer per open
// dialog, created on Open and disposed shortly after Close.
type Viewer interface {
	// Open shows subject. A dialog that is already open is torn down first.
	// The renderer stays paused until the asset is loaded and framed, then
	// the fly-in animation starts.
	//
	// Parameters:
	//   - ctx: cancels the asset download
	//   - subject: the asset to show
	//
	// Returns:
	//   - error: ErrNoSource, or the renderer or load error
	Open(ctx context.Context, subject Subject) error

	// Close starts the fly-out animation and disposes the renderer after the close delay.
	// No-op when the dialog is not open.
	Close()

	// IsOpen reports whether a dialog is open and not closing.
	IsOpen() bool

	// Loaded reports whether the open dialog finished loading its asset.
	Loaded() bool

	// Subject returns the subject of the open dialog.
	Subject() (Subject, bool)

	// Renderer returns the dialog renderer, or nil when none exists.
	Renderer() renderer.SceneRenderer

	// Reload reloads the current subject's asset, keeping the current framing.
	//
	// Parameters:
	//   - ctx: cancels the download
	//
	// Returns:
	//   - error: ErrNotOpen or the load error
	Reload(ctx context.Context) error

	// Watch reloads the subject whenever the file at path changes, until ctx ends.
	//
	// Parameters:
	//   - ctx: stops the watcher
	//   - path: the local file to watch
	//
	// Returns:
	//   - error: error if the watcher cannot be started
	Watch(ctx context.Context, path string) error

	// HandleKey applies a key binding. See the common.Key* constants.
	HandleKey(keyCode uint32)

	// HandleMouseDown stops the running animation and starts an orbit drag on the left button.
	HandleMouseDown(button window.MouseButton, x, y int32)

	// HandleMouseUp ends an orbit drag.
	HandleMouseUp(button window.MouseButton, x, y int32)

	// HandleMouseMove orbits while dragging and feeds the pointer to the idle-follow animation.
	HandleMouseMove(x, y int32)

	// HandleScroll zooms the camera.
	HandleScroll(delta float32)

	// Resize resizes the dialog renderer.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	Resize(width, height int)

	// Bind routes the window's input and resize events to this viewer.
	//
	// Parameters:
	//   - w: the window
	Bind(w window.Window)

	// Done is closed once a closed dialog's renderer has been disposed.
	// Each Open replaces the channel.
	Done() <-chan struct{}
}

type viewerImpl struct {
	mu *sync.Mutex

	logger          *slog.Logger
	host            renderer.Host
	rendererOptions []renderer.SceneRendererBuilderOption
	panoramaURL     string
	closeDelay      time.Duration
	followScaleX    float64
	followScaleY    float64
	onMeta          func(common.DisplayMeta)

	width  int
	height int

	subject  Subject
	r        renderer.SceneRenderer
	open     bool
	loaded   bool
	closing  bool
	done     chan struct{}
	generate int

	dragging bool
	lastX    int32
	lastY    int32
}

var _ Viewer = &viewerImpl{}

// NewViewer creates a closed viewer.
//
// Parameters:
//   - options: functional options; WithHost is required for anything but tests
//
// Returns:
//   - Viewer: the viewer
func NewViewer(options ...ViewerBuilderOption) Viewer {
	v := &viewerImpl{
		mu:           &sync.Mutex{},
		logger:       common.Logger("viewer"),
		closeDelay:   DefaultCloseDelay,
		followScaleX: defaultFollowScaleX,
		followScaleY: defaultFollowScaleY,
		width:        DefaultWidth,
		height:       DefaultHeight,
		done:         make(chan struct{}),
	}
	for _, opt := range options {
		opt(v)
	}
	if v.host == nil {
		v.host = renderer.NewOffscreenHost(0)
	}
	if v.onMeta == nil {
		v.onMeta = func(m common.DisplayMeta) {
			v.logger.Info("display meta", "meta", m)
		}
	}
	close(v.done)
	return v
}

func (v *viewerImpl) Open(ctx context.Context, subject Subject) error {
	if subject.URL == "" {
		return ErrNoSource
	}

	v.mu.Lock()
	v.teardownLocked()
	v.generate++
	gen := v.generate
	v.subject = subject
	v.open = true
	v.loaded = false
	v.closing = false
	v.done = make(chan struct{})
	width, height := v.width, v.height

	options := []renderer.SceneRendererBuilderOption{
		renderer.WithHost(v.host),
		renderer.WithSize(width, height),
		renderer.WithPaused(true),
		renderer.WithDoubleSided(subject.Meta.DoubleSidedOrDefault()),
	}
	if v.panoramaURL != "" {
		options = append(options, renderer.WithPanoramaURL(v.panoramaURL))
	}
	options = append(options, v.rendererOptions...)
	r, err := renderer.NewSceneRenderer(options...)
	if err != nil {
		v.open = false
		close(v.done)
		v.mu.Unlock()
		return fmt.Errorf("create dialog renderer: %w", err)
	}
	v.r = r
	v.mu.Unlock()

	if err := r.LoadAsset(ctx, subject.URL, true); err != nil {
		v.mu.Lock()
		superseded := v.generate != gen || !v.open || v.closing
		if !superseded {
			v.teardownLocked()
		}
		v.mu.Unlock()
		if superseded && errors.Is(err, renderer.ErrDisposed) {
			return nil
		}
		return fmt.Errorf("load %s: %w", subject.URL, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.generate != gen || v.closing {
		return nil
	}
	r.ApplyDisplayMeta(subject.Meta)
	var landing *common.Vec3
	if subject.Meta != nil {
		landing = subject.Meta.CameraPosition
	}
	r.SetAnimation(animation.NewFlyIn(landing))
	v.loaded = true
	r.SetPaused(false)
	v.logger.Info("dialog opened", "name", subject.Name, "url", subject.URL, "renderer", r.ID())
	return nil
}

func (v *viewerImpl) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open || v.closing {
		return
	}
	v.closing = true
	v.loaded = false
	v.dragging = false

	r := v.r
	gen := v.generate
	if r != nil && !r.Disposed() {
		x, y, z := r.Controls().Position()
		r.SetAnimation(animation.NewFlyOut(common.Vec3{x, y, z}))
		if r.Paused() {
			r.SetPaused(false)
		}
	}
	time.AfterFunc(v.closeDelay, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.generate == gen && v.closing {
			v.teardownLocked()
		}
	})
}

// teardownLocked disposes the renderer and marks the dialog closed.
func (v *viewerImpl) teardownLocked() {
	if v.r != nil {
		v.r.Dispose()
		v.logger.Debug("dialog renderer disposed", "renderer", v.r.ID())
		v.r = nil
	}
	wasActive := v.open
	v.open = false
	v.loaded = false
	v.closing = false
	v.dragging = false
	if wasActive {
		close(v.done)
	}
}

func (v *viewerImpl) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open && !v.closing
}

func (v *viewerImpl) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

func (v *viewerImpl) Subject() (Subject, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.subject, v.open
}

func (v *viewerImpl) Renderer() renderer.SceneRenderer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.r
}

func (v *viewerImpl) Done() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.done
}

func (v *viewerImpl) Reload(ctx context.Context) error {
	v.mu.Lock()
	r := v.r
	subject := v.subject
	active := v.open && !v.closing
	v.mu.Unlock()
	if !active || r == nil {
		return ErrNotOpen
	}

	framing := r.CaptureDisplayMeta()
	if err := r.LoadAsset(ctx, subject.URL, true); err != nil {
		return fmt.Errorf("reload %s: %w", subject.URL, err)
	}
	r.ApplyDisplayMeta(&framing)
	if r.Paused() {
		if err := r.RenderFrame(); err != nil {
			return err
		}
	}
	v.logger.Info("asset reloaded", "url", subject.URL)
	return nil
}

func (v *viewerImpl) HandleKey(keyCode uint32) {
	switch keyCode {
	case common.KeyEsc:
		v.Close()
		return
	case common.KeyR:
		subject, ok := v.Subject()
		if ok {
			go func() {
				if err := v.Open(context.Background(), subject); err != nil {
					v.logger.Warn("replay failed", "error", err)
				}
			}()
		}
		return
	}

	r := v.activeRenderer()
	if r == nil {
		return
	}
	switch keyCode {
	case common.KeyC:
		r.CenterModel()
	case common.KeyG:
		r.SetGridVisible(!r.GridVisible())
	case common.KeyM:
		v.onMeta(r.CaptureDisplayMeta())
	case common.KeyP:
		r.SetPaused(!r.Paused())
	case common.KeySpace:
		x, y, z := r.Controls().Position()
		r.SetAnimation(animation.NewIdleFollow(animation.WithBaseCamera(common.Vec3{x, y, z})))
	}
}

// activeRenderer returns the renderer of a loaded dialog that is not closing, or nil.
func (v *viewerImpl) activeRenderer() renderer.SceneRenderer {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.loaded || v.closing {
		return nil
	}
	return v.r
}

func (v *viewerImpl) HandleMouseDown(button window.MouseButton, x, y int32) {
	r := v.activeRenderer()
	if r == nil {
		return
	}
	r.SetAnimation(nil)
	if button != window.MouseButtonLeft {
		return
	}
	v.mu.Lock()
	v.dragging = true
	v.lastX, v.lastY = x, y
	v.mu.Unlock()
}

func (v *viewerImpl) HandleMouseUp(button window.MouseButton, _, _ int32) {
	if button != window.MouseButtonLeft {
		return
	}
	v.mu.Lock()
	v.dragging = false
	v.mu.Unlock()
}

func (v *viewerImpl) HandleMouseMove(x, y int32) {
	r := v.activeRenderer()
	if r == nil {
		return
	}
	v.mu.Lock()
	dragging := v.dragging
	dx, dy := x-v.lastX, y-v.lastY
	v.lastX, v.lastY = x, y
	width, height := v.width, v.height
	scaleX, scaleY := v.followScaleX, v.followScaleY
	v.mu.Unlock()

	if dragging {
		r.Controls().Rotate(float32(dx), float32(dy))
		if r.Paused() {
			_ = r.RenderFrame()
		}
		return
	}
	if a := r.Animation(); a != nil && a.Kind() == animation.KindIdleFollow && width > 0 && height > 0 {
		offsetX := float64(x)/float64(width) - 0.5
		offsetY := float64(y)/float64(height) - 0.5
		a.SetPointerOffset(offsetX, offsetY, scaleX, scaleY)
	}
}

func (v *viewerImpl) HandleScroll(delta float32) {
	r := v.activeRenderer()
	if r == nil {
		return
	}
	r.Camera().ZoomBy(delta * scrollZoomStep)
	if r.Paused() {
		_ = r.RenderFrame()
	}
}

func (v *viewerImpl) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	v.mu.Lock()
	v.width, v.height = width, height
	r := v.r
	v.mu.Unlock()
	if r == nil {
		return
	}
	if err := r.Resize(width, height); err != nil && !errors.Is(err, renderer.ErrDisposed) {
		v.logger.Warn("resize dialog", "width", width, "height", height, "error", err)
	}
}

func (v *viewerImpl) Bind(w window.Window) {
	v.Resize(w.Width(), w.Height())
	w.SetResizeCallback(v.Resize)
	w.SetKeyDownCallback(v.HandleKey)
	w.SetMouseDownCallback(v.HandleMouseDown)
	w.SetMouseUpCallback(v.HandleMouseUp)
	w.SetMouseMoveCallback(v.HandleMouseMove)
	w.SetScrollCallback(v.HandleScroll)
}
