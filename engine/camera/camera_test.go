package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func project(c Camera, x, y, z float32) (float32, float32, float32) {
	vp := c.ViewProjectionMatrix()
	cx, cy, cz, cw := common.TransformPoint(vp[:], x, y, z)
	return cx / cw, cy / cw, cz / cw
}

func TestCamera_OrthographicProjection(t *testing.T) {
	ctrl := NewCameraController(WithPosition(0, 0, 5))
	c := NewCamera(WithController(ctrl), WithFrustum(2, 1))

	x, y, z := project(c, 2, 1, 0)
	assert.InDelta(t, 1, x, 1e-5)
	assert.InDelta(t, 1, y, 1e-5)
	assert.True(t, z > 0 && z < 1)

	// orthographic: distance along the view axis does not change screen position
	x2, y2, _ := project(c, 2, 1, -3)
	assert.InDelta(t, x, x2, 1e-5)
	assert.InDelta(t, y, y2, 1e-5)
}

func TestCamera_Zoom(t *testing.T) {
	ctrl := NewCameraController(WithPosition(0, 0, 5))
	c := NewCamera(WithController(ctrl), WithFrustum(2, 1))
	c.SetZoom(2)

	l, r, b, top := c.Bounds()
	assert.InDelta(t, -1, l, 1e-6)
	assert.InDelta(t, 1, r, 1e-6)
	assert.InDelta(t, -0.5, b, 1e-6)
	assert.InDelta(t, 0.5, top, 1e-6)

	x, y, _ := project(c, 1, 0.5, 0)
	assert.InDelta(t, 1, x, 1e-5)
	assert.InDelta(t, 1, y, 1e-5)

	c.SetZoom(1000)
	assert.Equal(t, float32(defaultMaxZoom), c.Zoom())

	c.SetZoom(1)
	c.ZoomBy(1)
	assert.InDelta(t, 1.1, c.Zoom(), 1e-6)
	c.ZoomBy(-100)
	assert.InDelta(t, 1.1, c.Zoom(), 1e-6, "non-positive factors are ignored")
}

func TestCamera_SetFrustumRejectsNonPositive(t *testing.T) {
	c := NewCamera(WithFrustum(3, 2))
	c.SetFrustum(0, 5)
	hw, hh := c.Frustum()
	assert.Equal(t, float32(3), hw)
	assert.Equal(t, float32(2), hh)
}

func TestController_SetPositionKeepsTarget(t *testing.T) {
	cc := NewCameraController(WithTarget(0, 1, 0))
	cc.SetPosition(-0.85, 0.7, -0.85)
	cc.Update()

	x, y, z := cc.Position()
	assert.InDelta(t, -0.85, x, 1e-5)
	assert.InDelta(t, 0.7, y, 1e-5)
	assert.InDelta(t, -0.85, z, 1e-5)

	tx, ty, tz := cc.Target()
	assert.Equal(t, [3]float32{0, 1, 0}, [3]float32{tx, ty, tz})
}

func TestController_SetTargetKeepsPosition(t *testing.T) {
	cc := NewCameraController(WithPosition(3, 4, 0))
	cc.SetTarget(0, 4, 0)
	cc.Update()

	x, y, z := cc.Position()
	assert.InDelta(t, 3, x, 1e-5)
	assert.InDelta(t, 4, y, 1e-5)
	assert.InDelta(t, 0, z, 1e-5)
	assert.InDelta(t, 3, cc.Radius(), 1e-5)
	assert.InDelta(t, 0, cc.Elevation(), 1e-5)
	assert.InDelta(t, math32.Pi/2, cc.Azimuth(), 1e-5)
}

func TestController_RotateClampsElevation(t *testing.T) {
	cc := NewCameraController(WithRadius(2), WithDragSensitivity(0.01))
	_, maxElev := cc.ElevationBounds()
	cc.Rotate(0, 10000)
	assert.Equal(t, maxElev, cc.Elevation())
	_, y, _ := cc.Position()
	assert.InDelta(t, 2*math32.Sin(maxElev), y, 1e-5)

	az := cc.Azimuth()
	cc.Rotate(10, 0)
	assert.InDelta(t, az-0.1, cc.Azimuth(), 1e-6)
}

func TestController_OrbitByAngles(t *testing.T) {
	cc := NewCameraController(WithElevation(0))
	cc.Orbit(0.5, 0)
	assert.InDelta(t, 0.5, cc.Azimuth(), 1e-6)
	cc.Orbit(-1, 0.25)
	assert.InDelta(t, -0.5, cc.Azimuth(), 1e-6)
	assert.InDelta(t, 0.25, cc.Elevation(), 1e-6)

	minElev, _ := cc.ElevationBounds()
	cc.Orbit(0, -10)
	assert.Equal(t, minElev, cc.Elevation())
}
