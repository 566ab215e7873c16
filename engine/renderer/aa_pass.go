package renderer

import (
	"image"

	"golang.org/x/image/draw"
)

// aaPass resolves the supersampled frame down to the surface resolution.
type aaPass struct {
	width      int
	height     int
	resolution [2]float32
}

func newAAPass(width, height int) *aaPass {
	a := &aaPass{}
	a.setSize(width, height)
	return a
}

// setSize updates the output size and the (1/w, 1/h) resolution uniform.
func (a *aaPass) setSize(width, height int) {
	a.width = width
	a.height = height
	a.resolution = [2]float32{1 / float32(width), 1 / float32(height)}
}

// resolve returns a new image of the output size filtered from src.
func (a *aaPass) resolve(src image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, a.width, a.height))
	if src.Bounds().Dx() == a.width && src.Bounds().Dy() == a.height {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
