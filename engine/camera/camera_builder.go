package camera

// CameraBuilderOption is a functional option for configuring a Camera via NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithFrustum sets the unzoomed half-extents of the view volume.
//
// Parameters:
//   - halfWidth: half of the horizontal extent
//   - halfHeight: half of the vertical extent
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's frustum
func WithFrustum(halfWidth, halfHeight float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if halfWidth > 0 && halfHeight > 0 {
			c.halfWidth = halfWidth
			c.halfHeight = halfHeight
		}
	}
}

// WithZoom sets the initial zoom factor.
//
// Parameters:
//   - zoom: the zoom factor
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's zoom
func WithZoom(zoom float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if zoom > 0 {
			c.zoom = zoom
		}
	}
}

// WithZoomBounds sets the minimum and maximum zoom factors.
//
// Parameters:
//   - min: minimum zoom
//   - max: maximum zoom
//
// Returns:
//   - CameraBuilderOption: a function that sets the zoom bounds
func WithZoomBounds(min, max float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.minZoom = min
		c.maxZoom = max
	}
}

// WithZoomSpeed sets the multiplier applied to ZoomBy input.
//
// Parameters:
//   - speed: the zoom speed
//
// Returns:
//   - CameraBuilderOption: a function that sets the zoom speed
func WithZoomSpeed(speed float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.zoomSpeed = speed
	}
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithController attaches a CameraController to the camera.
//
// Parameters:
//   - ctrl: the controller to attach
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
