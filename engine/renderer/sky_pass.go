package renderer

import (
	"image"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/chewxy/math32"
)

const (
	skyFov  = 70 * math32.Pi / 180
	skyNear = 0.1
	skyFar  = 2000
)

// skyPass draws an equirectangular panorama as seen by a perspective sky camera
// that shares the main camera's orientation but sits at the origin.
type skyPass struct {
	pool  worker.DynamicWorkerPool
	bands int

	width    int
	height   int
	panorama *image.RGBA
	layer    *image.RGBA
}

func newSkyPass(pool worker.DynamicWorkerPool, bands, width, height int) *skyPass {
	s := &skyPass{pool: pool, bands: max(bands, 1)}
	s.resize(width, height)
	return s
}

func (s *skyPass) resize(width, height int) {
	s.width = width
	s.height = height
	s.layer = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (s *skyPass) setPanorama(img *image.RGBA) {
	s.panorama = img
}

func (s *skyPass) hasPanorama() bool {
	return s.panorama != nil && !s.panorama.Rect.Empty()
}

func (s *skyPass) release() {
	s.panorama = nil
	s.layer = nil
}

// skyInverseViewProjection builds the inverse view-projection of the sky camera from the main view matrix.
func skyInverseViewProjection(view [16]float32, aspect float32) ([16]float32, bool) {
	rot := view
	rot[12], rot[13], rot[14] = 0, 0, 0

	var proj, vp, inv [16]float32
	common.Perspective(proj[:], skyFov, aspect, skyNear, skyFar)
	common.Mul4(vp[:], proj[:], rot[:])
	ok := common.Invert4(inv[:], vp[:])
	return inv, ok
}

// render fills the layer with the panorama. It returns nil when no panorama is loaded.
func (s *skyPass) render(view [16]float32) *image.RGBA {
	if !s.hasPanorama() {
		return nil
	}
	inv, ok := skyInverseViewProjection(view, float32(s.width)/float32(s.height))
	if !ok {
		return nil
	}

	w := float32(s.width)
	h := float32(s.height)
	parallelRows(s.pool, s.height, s.bands, func(y0, y1 int) {
		for py := y0; py < y1; py++ {
			ny := 1 - (float32(py)+0.5)/h*2
			for px := 0; px < s.width; px++ {
				nx := (float32(px)+0.5)/w*2 - 1
				dir := unprojectDirection(inv, nx, ny)
				r, g, b, a := s.sample(dir)

				off := py*s.layer.Stride + px*4
				pix := s.layer.Pix[off : off+4 : off+4]
				pix[0] = toByte(r * a)
				pix[1] = toByte(g * a)
				pix[2] = toByte(b * a)
				pix[3] = toByte(a)
			}
		}
	})
	return s.layer
}

func unprojectDirection(inv [16]float32, nx, ny float32) common.Vec3 {
	x0, y0, z0, w0 := common.TransformPoint(inv[:], nx, ny, 0)
	x1, y1, z1, w1 := common.TransformPoint(inv[:], nx, ny, 1)
	near := common.Vec3{x0 / w0, y0 / w0, z0 / w0}
	far := common.Vec3{x1 / w1, y1 / w1, z1 / w1}
	return far.Sub(near).Normalize()
}

// sample maps a view direction to equirectangular coordinates.
func (s *skyPass) sample(dir common.Vec3) (r, g, b, a float32) {
	u := math32.Atan2(dir[2], dir[0])/(2*math32.Pi) + 0.5
	v := 0.5 - math32.Asin(max(-1, min(1, dir[1])))/math32.Pi
	return sampleBilinear(s.panorama, u, v)
}
