package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/engine/animation"
	"github.com/Carmen-Shannon/oxy-showcase/engine/camera"
	"github.com/Carmen-Shannon/oxy-showcase/engine/loader"
	"github.com/Carmen-Shannon/oxy-showcase/engine/model"
	"github.com/gogpu/gg"
	"github.com/google/uuid"
)

const (
	// DefaultWidth is the surface width used when no size option is given.
	DefaultWidth = 400
	// DefaultHeight is the surface height used when no size option is given.
	DefaultHeight = 400

	// framingScale multiplies the largest model dimension to get both the camera
	// distance and the visible height of a centred model.
	framingScale = 1.7
	// nearPlaneRatio is the near plane distance as a fraction of the framing distance.
	nearPlaneRatio = 1e-3
	// doubleSidedThreshold is the smallest mesh dimension that may render double-sided.
	doubleSidedThreshold = 0.5
	panoramaTimeout      = 30 * time.Second
)

// framingDirection is the fixed isometric direction from the target to the camera.
var framingDirection = common.Vec3{-1, 0.8, -1}.Normalize()

// sceneRenderer is the implementation of the SceneRenderer interface.
type sceneRenderer struct {
	mu *sync.Mutex

	id     string
	logger *slog.Logger

	width       int
	height      int
	supersample int
	paused      bool
	doubleSided bool
	showGrid    bool
	clearColor  gg.RGBA
	panoramaURL string
	workers     int

	host    Host
	loader  loader.Loader
	clock   Clock
	surface Surface
	pool    worker.DynamicWorkerPool

	cam      camera.Camera
	controls camera.CameraController

	canvas *gg.Context
	sky    *skyPass
	grid   *gridPass
	pass   *renderPass
	aa     *aaPass

	asset     model.Model
	anim      *animation.Strategy
	elapsed   float64
	loaded    int
	lastFrame *image.RGBA

	framedHalfHeight float32

	frameID      FrameID
	framePending bool

	cancelPanorama context.CancelFunc
	disposed       bool
}

// SceneRenderer renders one 3D asset at a time onto a host surface.
// It runs either as a live loop that requests a new frame after each one, or paused,
// where frames are only produced by explicit RenderFrame calls.
type SceneRenderer interface {
	// ID returns the renderer's unique id.
	//
	// Returns:
	//   - string: the id
	ID() string

	// LoadAsset fetches and installs an asset, replacing any previous one.
	// On failure the previously loaded asset and camera are left untouched.
	//
	// Parameters:
	//   - ctx: aborts the fetch when cancelled
	//   - url: the asset reference
	//   - center: when true the model is centred on the ground plane and the camera reframed
	//
	// Returns:
	//   - error: error if loading fails, the context is cancelled or the renderer is disposed
	LoadAsset(ctx context.Context, url string, center bool) error

	// ApplyDisplayMeta applies the present fields of a saved camera pose, then updates the controls.
	//
	// Parameters:
	//   - meta: the pose, may be nil
	ApplyDisplayMeta(meta *common.DisplayMeta)

	// CaptureDisplayMeta returns the current camera pose and double-sided flag.
	//
	// Returns:
	//   - common.DisplayMeta: the pose with every field set
	CaptureDisplayMeta() common.DisplayMeta

	// SetDoubleSided requests double-sided materials. Meshes thinner than 0.5 stay single-sided.
	//
	// Parameters:
	//   - doubleSided: the requested flag
	SetDoubleSided(doubleSided bool)

	// CenterModel re-runs centring and framing for the loaded asset.
	CenterModel()

	// RenderFrame advances the clock and animation, renders and presents one frame.
	// When not paused it also requests the next frame from the host.
	//
	// Returns:
	//   - error: error if the renderer is disposed or presentation fails
	RenderFrame() error

	// Resize changes the output size, keeping the framed vertical extent.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	//
	// Returns:
	//   - error: error if the size is invalid or the surface cannot be resized
	Resize(width, height int) error

	// Size returns the output size.
	//
	// Returns:
	//   - width, height: the size in pixels
	Size() (width, height int)

	// ExportImage encodes the last presented frame as a PNG data URL.
	//
	// Returns:
	//   - string: the data URL
	//   - error: ErrNoAsset before the first frame, ErrDisposed after Dispose
	ExportImage() (string, error)

	// RemoveAsset disposes and detaches the loaded asset without disposing the renderer.
	RemoveAsset()

	// Model returns the loaded asset, or nil.
	//
	// Returns:
	//   - model.Model: the asset
	Model() model.Model

	// Camera returns the orthographic camera.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Controls returns the orbit controls driving the camera.
	//
	// Returns:
	//   - camera.CameraController: the controls
	Controls() camera.CameraController

	// SetAnimation attaches a strategy, replacing the current one. Nil detaches.
	//
	// Parameters:
	//   - s: the strategy
	SetAnimation(s *animation.Strategy)

	// Animation returns the attached strategy, or nil.
	//
	// Returns:
	//   - *animation.Strategy: the strategy
	Animation() *animation.Strategy

	// SetGridVisible shows or hides the ground grid.
	//
	// Parameters:
	//   - visible: the grid visibility
	SetGridVisible(visible bool)

	// GridVisible reports whether the ground grid is drawn.
	//
	// Returns:
	//   - bool: the grid visibility
	GridVisible() bool

	// SetPaused switches between the live loop and explicit rendering.
	// Unpausing starts the loop.
	//
	// Parameters:
	//   - paused: the paused flag
	SetPaused(paused bool)

	// Paused reports whether the live loop is stopped.
	//
	// Returns:
	//   - bool: the paused flag
	Paused() bool

	// Elapsed returns the seconds accumulated by rendered frames.
	//
	// Returns:
	//   - float64: the elapsed time
	Elapsed() float64

	// LoadedAssets returns the number of assets loaded over the renderer's lifetime.
	//
	// Returns:
	//   - int: the load count
	LoadedAssets() int

	// Dispose cancels any pending frame and releases the asset, passes and surface. Idempotent.
	Dispose()

	// Disposed reports whether Dispose has been called.
	//
	// Returns:
	//   - bool: true once disposed
	Disposed() bool
}

var _ SceneRenderer = &sceneRenderer{}

// NewSceneRenderer creates a SceneRenderer and allocates its surface from the host.
// When a panorama URL is set the image is loaded in the background; until then,
// or if it fails, the background is the clear colour.
//
// Parameters:
//   - options: functional options to configure the renderer
//
// Returns:
//   - SceneRenderer: the renderer
//   - error: error if the size is invalid or the surface cannot be created
func NewSceneRenderer(options ...SceneRendererBuilderOption) (SceneRenderer, error) {
	r := &sceneRenderer{
		mu:          &sync.Mutex{},
		id:          uuid.NewString(),
		width:       DefaultWidth,
		height:      DefaultHeight,
		supersample: 2,
		doubleSided: true,
		showGrid:    true,
		workers:     runtime.NumCPU(),
	}
	for _, option := range options {
		option(r)
	}
	if r.width <= 0 || r.height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, r.width, r.height)
	}
	if r.logger == nil {
		r.logger = common.Logger("renderer")
	}
	r.logger = r.logger.With("renderer_id", r.id)
	if r.host == nil {
		r.host = NewOffscreenHost(0)
	}
	if r.loader == nil {
		r.loader = loader.NewLoader()
	}
	if r.clock == nil {
		r.clock = NewSystemClock()
	}

	surface, err := r.host.CreateSurface(r.width, r.height)
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}
	r.surface = surface

	if r.workers > 1 {
		r.pool = worker.NewDynamicWorkerPool(r.workers, 256, time.Second)
	}

	r.controls = camera.NewCameraController(
		camera.WithTarget(0, 0, 0),
		camera.WithPosition(-0.85, 0.7, -0.85),
	)
	aspect := float32(r.width) / float32(r.height)
	r.framedHalfHeight = 1
	r.cam = camera.NewCamera(
		camera.WithFrustum(aspect, 1),
		camera.WithController(r.controls),
	)

	sw, sh := r.targetSize()
	r.canvas = gg.NewContext(sw, sh)
	r.sky = newSkyPass(r.pool, r.workers, sw, sh)
	r.grid = newGridPass(r.showGrid)
	r.pass = newRenderPass(r.pool, r.workers, sw, sh)
	r.aa = newAAPass(r.width, r.height)

	if r.panoramaURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), panoramaTimeout)
		r.cancelPanorama = cancel
		go r.loadPanorama(ctx, r.panoramaURL)
	}

	r.logger.Debug("renderer created", "width", r.width, "height", r.height, "paused", r.paused)
	if !r.paused {
		r.mu.Lock()
		r.requestFrame()
		r.mu.Unlock()
	}
	return r, nil
}

func (r *sceneRenderer) ID() string {
	return r.id
}

func (r *sceneRenderer) LoadAsset(ctx context.Context, url string, center bool) error {
	if r.Disposed() {
		return ErrDisposed
	}

	m, err := r.loader.Load(ctx, url)
	if err != nil {
		return fmt.Errorf("load asset: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		m.Dispose()
		return ErrDisposed
	}
	if err := ctx.Err(); err != nil {
		m.Dispose()
		return fmt.Errorf("load asset: %w", err)
	}

	if r.asset != nil {
		r.asset.Dispose()
	}
	r.asset = m
	r.loaded++
	m.SetShading(model.ShadingUnlit, model.FilterNearest)
	m.ApplyDoubleSided(r.doubleSided, doubleSidedThreshold)
	if center {
		r.centerModel()
	}
	r.logger.Info("asset loaded", "model", m.Name(), "triangles", m.TriangleCount(), "centered", center)
	return nil
}

func (r *sceneRenderer) ApplyDisplayMeta(meta *common.DisplayMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if meta != nil {
		if meta.ControlsTarget != nil {
			t := *meta.ControlsTarget
			r.controls.SetTarget(t[0], t[1], t[2])
		}
		if meta.CameraPosition != nil {
			p := *meta.CameraPosition
			r.controls.SetPosition(p[0], p[1], p[2])
		}
		if meta.CameraZoom != nil {
			r.cam.SetZoom(*meta.CameraZoom)
		}
	}
	r.controls.Update()
	r.cam.Update()
}

func (r *sceneRenderer) CaptureDisplayMeta() common.DisplayMeta {
	r.mu.Lock()
	defer r.mu.Unlock()
	px, py, pz := r.controls.Position()
	tx, ty, tz := r.controls.Target()
	return common.DisplayMeta{
		CameraPosition: &common.Vec3{px, py, pz},
		ControlsTarget: &common.Vec3{tx, ty, tz},
		CameraZoom:     common.Ptr(r.cam.Zoom()),
		DoubleSided:    common.Ptr(r.doubleSided),
	}
}

func (r *sceneRenderer) SetDoubleSided(doubleSided bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doubleSided = doubleSided
	if r.asset != nil {
		r.asset.ApplyDoubleSided(doubleSided, doubleSidedThreshold)
	}
}

func (r *sceneRenderer) CenterModel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.centerModel()
}

// centerModel rests the asset on y=0 centred on x/z and frames it from the isometric direction.
// Caller must hold the mutex.
func (r *sceneRenderer) centerModel() {
	if r.asset == nil {
		return
	}
	bounds := r.asset.WorldBounds()
	if bounds.IsEmpty() {
		return
	}
	c := bounds.Center()
	size := bounds.Size()
	r.asset.SetPosition(r.asset.Position().Sub(common.Vec3{c[0], bounds.Min[1], c[2]}))

	target := common.Vec3{0, size[1] / 2, 0}
	maxDim := bounds.MaxDimension()
	if maxDim <= 0 {
		maxDim = 1
	}
	pos := target.Add(framingDirection.Scale(maxDim * framingScale))

	r.controls.SetTarget(target[0], target[1], target[2])
	r.controls.SetPosition(pos[0], pos[1], pos[2])
	r.controls.Update()

	r.framedHalfHeight = maxDim * framingScale / 2
	r.cam.SetZoom(1)
	r.applyFrustum()
	// Clip planes follow the framing distance.
	dist := maxDim * framingScale
	r.cam.SetNear(dist * nearPlaneRatio)
	r.cam.SetFar(max(r.cam.Far(), dist*4))
	r.cam.Update()
}

// applyFrustum sets the half-extents from the framed height and current aspect. Caller must hold the mutex.
func (r *sceneRenderer) applyFrustum() {
	aspect := float32(r.width) / float32(r.height)
	r.cam.SetFrustum(r.framedHalfHeight*aspect, r.framedHalfHeight)
}

func (r *sceneRenderer) RenderFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return ErrDisposed
	}

	r.elapsed += r.clock.Delta()
	if r.anim != nil {
		r.anim.Animate(frameTarget{r}, r.elapsed)
	}
	r.controls.Update()
	r.cam.Update()

	frame, err := r.composeFrame()
	if err != nil {
		return fmt.Errorf("render frame: %w", err)
	}
	if err := r.surface.Present(frame); err != nil {
		return fmt.Errorf("present frame: %w", err)
	}
	r.lastFrame = frame

	if !r.paused {
		r.requestFrame()
	}
	return nil
}

// composeFrame draws sky, grid and model onto the supersampled canvas and resolves it. Caller must hold the mutex.
func (r *sceneRenderer) composeFrame() (*image.RGBA, error) {
	view := r.cam.ViewMatrix()
	viewProj := r.cam.ViewProjectionMatrix()

	r.canvas.ClearWithColor(r.clearColor)
	if sky := r.sky.render(view); sky != nil {
		r.canvas.DrawImage(gg.ImageBufFromImage(sky), 0, 0)
	}
	if err := r.grid.draw(r.canvas, viewProj, float64(r.supersample)); err != nil {
		return nil, err
	}
	if r.asset != nil {
		layer := r.pass.render(r.asset, viewProj)
		r.canvas.DrawImage(gg.ImageBufFromImage(layer), 0, 0)
	}
	if err := r.canvas.FlushGPU(); err != nil {
		return nil, err
	}
	return r.aa.resolve(r.canvas.Image()), nil
}

// requestFrame registers the next live frame unless one is already pending. Caller must hold the mutex.
func (r *sceneRenderer) requestFrame() {
	if r.framePending || r.disposed {
		return
	}
	r.framePending = true
	r.frameID = r.host.RequestFrame(r.onFrame)
}

func (r *sceneRenderer) onFrame() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("frame panicked", "panic", rec)
		}
	}()

	r.mu.Lock()
	r.framePending = false
	r.mu.Unlock()

	if err := r.RenderFrame(); err != nil && !errors.Is(err, ErrDisposed) {
		r.logger.Warn("frame failed", "error", err)
	}
}

func (r *sceneRenderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return ErrDisposed
	}
	if err := r.surface.Resize(width, height); err != nil {
		return fmt.Errorf("resize surface: %w", err)
	}
	r.width = width
	r.height = height
	r.applyFrustum()

	sw, sh := r.targetSize()
	if err := r.canvas.Resize(sw, sh); err != nil {
		return fmt.Errorf("resize canvas: %w", err)
	}
	r.sky.resize(sw, sh)
	r.pass.resize(sw, sh)
	r.aa.setSize(width, height)
	return nil
}

func (r *sceneRenderer) Size() (width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// targetSize is the supersampled canvas size. Caller must hold the mutex or be constructing.
func (r *sceneRenderer) targetSize() (int, int) {
	ss := max(r.supersample, 1)
	return r.width * ss, r.height * ss
}

func (r *sceneRenderer) ExportImage() (string, error) {
	r.mu.Lock()
	disposed := r.disposed
	frame := r.lastFrame
	r.mu.Unlock()
	if disposed {
		return "", ErrDisposed
	}
	if frame == nil {
		return "", ErrNoAsset
	}
	return r.host.ExportImage(frame)
}

func (r *sceneRenderer) RemoveAsset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.asset == nil {
		return
	}
	r.asset.Dispose()
	r.asset = nil
}

func (r *sceneRenderer) Model() model.Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.asset
}

func (r *sceneRenderer) Camera() camera.Camera {
	return r.cam
}

func (r *sceneRenderer) Controls() camera.CameraController {
	return r.controls
}

func (r *sceneRenderer) SetAnimation(s *animation.Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anim = s
}

func (r *sceneRenderer) Animation() *animation.Strategy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.anim
}

func (r *sceneRenderer) SetGridVisible(visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.showGrid = visible
	r.grid.visible = visible
}

func (r *sceneRenderer) GridVisible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.showGrid
}

func (r *sceneRenderer) SetPaused(paused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = paused
	if paused {
		if r.framePending {
			r.host.CancelFrame(r.frameID)
			r.framePending = false
		}
		return
	}
	r.requestFrame()
}

func (r *sceneRenderer) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

func (r *sceneRenderer) Elapsed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

func (r *sceneRenderer) LoadedAssets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

func (r *sceneRenderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.disposed = true

	if r.framePending {
		r.host.CancelFrame(r.frameID)
		r.framePending = false
	}
	if r.cancelPanorama != nil {
		r.cancelPanorama()
	}
	if r.asset != nil {
		r.asset.Dispose()
		r.asset = nil
	}
	if err := r.canvas.Close(); err != nil {
		r.logger.Warn("close canvas", "error", err)
	}
	r.sky.release()
	r.pass.resize(0, 0)
	common.StopWorkerPool(r.pool)
	r.pool = nil
	r.surface.Release()
	r.lastFrame = nil
	r.anim = nil
	r.logger.Debug("renderer disposed", "loaded_assets", r.loaded)
}

func (r *sceneRenderer) Disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}

func (r *sceneRenderer) loadPanorama(ctx context.Context, url string) {
	img, err := r.loader.LoadImage(ctx, url)
	if err != nil {
		r.logger.Warn("panorama unavailable", "url", url, "error", err)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.sky.setPanorama(img)
	r.logger.Debug("panorama loaded", "width", img.Rect.Dx(), "height", img.Rect.Dy())
}

// frameTarget exposes the renderer to an animation strategy. Used while the renderer mutex is held.
type frameTarget struct {
	r *sceneRenderer
}

func (t frameTarget) CameraPosition() common.Vec3 {
	x, y, z := t.r.controls.Position()
	return common.Vec3{x, y, z}
}

func (t frameTarget) SetCameraPosition(p common.Vec3) {
	t.r.controls.SetPosition(p[0], p[1], p[2])
}

func (t frameTarget) SetModelRotationY(rot float32) {
	if t.r.asset == nil {
		return
	}
	t.r.asset.SetRotationY(rot)
}
