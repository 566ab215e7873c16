package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-showcase/common"
)

const (
	defaultNear    = 0.01
	defaultFar     = 1000.0
	defaultMinZoom = 0.1
	defaultMaxZoom = 20.0
)

type cameraImpl struct {
	mu *sync.Mutex

	halfWidth  float32
	halfHeight float32
	zoom       float32
	minZoom    float32
	maxZoom    float32
	zoomSpeed  float32
	near       float32
	far        float32

	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32

	controller CameraController
}

// Camera defines the interface for the orthographic camera.
// The visible volume is the box [-halfWidth, halfWidth] x [-halfHeight, halfHeight]
// around the view axis, divided by the zoom factor. Position and target come
// from an attached CameraController each time Update is called.
type Camera interface {
	// Frustum returns the unzoomed half-extents of the view volume.
	//
	// Returns:
	//   - halfWidth: half of the horizontal extent
	//   - halfHeight: half of the vertical extent
	Frustum() (halfWidth, halfHeight float32)

	// Bounds returns the effective left, right, bottom and top planes after zoom is applied.
	//
	// Returns:
	//   - left, right, bottom, top: the view volume planes
	Bounds() (left, right, bottom, top float32)

	// Zoom returns the zoom factor. Values above 1 magnify.
	//
	// Returns:
	//   - float32: the zoom factor
	Zoom() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// ViewMatrix returns the current 4x4 view matrix (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ViewProjectionMatrix returns the combined view-projection matrix (column-major).
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// Update reads position/target from the controller and recomputes matrices.
	// If no controller is attached, this method does nothing.
	Update()

	// SetFrustum sets the unzoomed half-extents and recomputes matrices.
	//
	// Parameters:
	//   - halfWidth: half of the horizontal extent
	//   - halfHeight: half of the vertical extent
	SetFrustum(halfWidth, halfHeight float32)

	// SetZoom sets the zoom factor, clamped to the configured bounds.
	//
	// Parameters:
	//   - zoom: the zoom factor
	SetZoom(zoom float32)

	// ZoomBy scales the zoom factor by (1 + delta * zoomSpeed), clamped to the configured bounds.
	// Positive delta magnifies.
	//
	// Parameters:
	//   - delta: the zoom input, typically a scroll offset
	ZoomBy(delta float32)

	// SetNear sets the near clipping plane distance and recomputes matrices.
	// Geometry closer to the camera than near is clipped.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance and recomputes matrices.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new orthographic Camera with a 1x1 view volume and zoom 1.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:         &sync.Mutex{},
		halfWidth:  1,
		halfHeight: 1,
		zoom:       1,
		minZoom:    defaultMinZoom,
		maxZoom:    defaultMaxZoom,
		zoomSpeed:  0.1,
		near:       defaultNear,
		far:        defaultFar,
	}
	common.Identity(c.viewMatrix[:])
	common.Identity(c.projectionMatrix[:])
	common.Identity(c.viewProjectionMatrix[:])
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Frustum() (halfWidth, halfHeight float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.halfWidth, c.halfHeight
}

func (c *cameraImpl) Bounds() (left, right, bottom, top float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bounds()
}

func (c *cameraImpl) Zoom() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoom
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.updateMatrices()
}

func (c *cameraImpl) SetFrustum(halfWidth, halfHeight float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if halfWidth <= 0 || halfHeight <= 0 {
		return
	}
	c.halfWidth = halfWidth
	c.halfHeight = halfHeight
	c.updateMatrices()
}

func (c *cameraImpl) SetZoom(zoom float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = clamp(zoom, c.minZoom, c.maxZoom)
	c.updateMatrices()
}

func (c *cameraImpl) ZoomBy(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	factor := 1 + delta*c.zoomSpeed
	if factor <= 0 {
		return
	}
	c.zoom = clamp(c.zoom*factor, c.minZoom, c.maxZoom)
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

// bounds applies zoom to the half-extents. Caller must hold the mutex.
func (c *cameraImpl) bounds() (left, right, bottom, top float32) {
	hw := c.halfWidth / c.zoom
	hh := c.halfHeight / c.zoom
	return -hw, hw, -hh, hh
}

// updateMatrices recalculates the view, projection and view-projection matrices.
// The view matrix is left untouched when no controller is attached.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	l, r, b, t := c.bounds()
	common.Orthographic(c.projectionMatrix[:], l, r, b, t, c.near, c.far)

	if c.controller != nil {
		px, py, pz := c.controller.Position()
		tx, ty, tz := c.controller.Target()
		common.LookAt(c.viewMatrix[:],
			px, py, pz,
			tx, ty, tz,
			0, 1, 0,
		)
	}

	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
