package renderer

import (
	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/gogpu/gg"
)

// gridPass draws a ground grid on the y=0 plane.
type gridPass struct {
	size        float32
	divisions   int
	centerColor gg.RGBA
	lineColor   gg.RGBA
	lineWidth   float64
	visible     bool
}

func newGridPass(visible bool) *gridPass {
	return &gridPass{
		size:        1,
		divisions:   10,
		centerColor: gg.RGBA{R: 1, G: 1, B: 1, A: 1},
		lineColor:   gg.RGBA{R: 0.667, G: 0.667, B: 0.667, A: 1},
		lineWidth:   1,
		visible:     visible,
	}
}

// draw strokes the grid lines onto dc using the given view-projection.
// scale multiplies the line width for supersampled targets.
func (g *gridPass) draw(dc *gg.Context, viewProj [16]float32, scale float64) error {
	if !g.visible {
		return nil
	}
	w := float64(dc.Width())
	h := float64(dc.Height())
	project := func(x, z float32) (float64, float64) {
		cx, cy, _, cw := common.TransformPoint(viewProj[:], x, 0, z)
		if cw != 0 {
			cx, cy = cx/cw, cy/cw
		}
		return (float64(cx) + 1) * 0.5 * w, (1 - float64(cy)) * 0.5 * h
	}

	half := g.size / 2
	step := g.size / float32(g.divisions)
	dc.SetLineWidth(g.lineWidth * scale)

	// grey lines first so the centre lines stay on top
	for pass := 0; pass < 2; pass++ {
		center := pass == 1
		col := g.lineColor
		if center {
			col = g.centerColor
		}
		dc.SetRGBA(col.R, col.G, col.B, col.A)
		for i := 0; i <= g.divisions; i++ {
			if (i*2 == g.divisions) != center {
				continue
			}
			t := -half + float32(i)*step

			x0, y0 := project(t, -half)
			x1, y1 := project(t, half)
			dc.MoveTo(x0, y0)
			dc.LineTo(x1, y1)

			x0, y0 = project(-half, t)
			x1, y1 = project(half, t)
			dc.MoveTo(x0, y0)
			dc.LineTo(x1, y1)
		}
		if err := dc.Stroke(); err != nil {
			return err
		}
	}
	return nil
}
