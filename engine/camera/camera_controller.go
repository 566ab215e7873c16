package camera

// CameraController is the orbit control of a camera: a position circling a target.
// Position and target may be set independently; the orbit angles are re-derived
// from the offset between them, so a persisted pose can be restored exactly.
type CameraController interface {
	// Position returns the camera's world-space position.
	Position() (x, y, z float32)

	// Target returns the point the camera orbits and looks at.
	Target() (x, y, z float32)

	// SetTarget moves the orbit pivot. The camera position is unchanged.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetTarget(x, y, z float32)

	// SetPosition moves the camera. The target is unchanged.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetPosition(x, y, z float32)

	// Update finalizes the controls: it re-derives the orbit angles, applies the
	// elevation and radius bounds and recomputes the position.
	Update()

	// Rotate orbits the camera by a pointer drag. Positive dx orbits right, positive dy orbits down.
	//
	// Parameters:
	//   - dx, dy: pointer movement in pixels, scaled by the drag sensitivity
	Rotate(dx, dy float32)

	// Orbit turns the camera around the target by explicit angles. Elevation is clamped.
	//
	// Parameters:
	//   - dAzimuth: radians around the Y axis
	//   - dElevation: radians above the horizontal plane
	Orbit(dAzimuth, dElevation float32)

	// Radius returns the distance from the target.
	Radius() float32

	// Azimuth returns the horizontal angle around the Y axis in radians.
	Azimuth() float32

	// Elevation returns the vertical angle from the horizontal plane in radians.
	Elevation() float32

	// ElevationBounds returns the allowed elevation range in radians.
	ElevationBounds() (min, max float32)
}
