package renderer

import (
	"image"
	"math"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/engine/model"
	"github.com/chewxy/math32"
)

// ambient and directional weights of ShadingStandard
const (
	standardAmbient = 0.65
	standardDiffuse = 0.35
)

var standardLightDir = common.Vec3{0.4, 1, 0.3}.Normalize()

type screenVertex struct {
	x, y, z float32
	u, v    float32
}

type rasterTri struct {
	v     [3]screenVertex
	mat   *model.Material
	light float32
	depth float32
}

// renderPass rasterizes the loaded model into a transparent color layer with a depth buffer.
// Rows are split into horizontal bands rasterized concurrently on a worker pool.
type renderPass struct {
	pool  worker.DynamicWorkerPool
	bands int

	width  int
	height int
	color  *image.RGBA
	depth  []float32
}

func newRenderPass(pool worker.DynamicWorkerPool, bands, width, height int) *renderPass {
	p := &renderPass{pool: pool, bands: max(bands, 1)}
	p.resize(width, height)
	return p
}

func (p *renderPass) resize(width, height int) {
	p.width = width
	p.height = height
	p.color = image.NewRGBA(image.Rect(0, 0, width, height))
	p.depth = make([]float32, width*height)
}

func (p *renderPass) clear() {
	clear(p.color.Pix)
	for i := range p.depth {
		p.depth[i] = math32.Inf(1)
	}
}

// render draws m with the given view-projection matrix and returns the color layer.
// The returned image is reused by the next call.
func (p *renderPass) render(m model.Model, viewProj [16]float32) *image.RGBA {
	p.clear()
	if m == nil || m.Disposed() {
		return p.color
	}

	opaque, blended := p.setup(m, viewProj)
	// back to front
	sort.SliceStable(blended, func(i, j int) bool { return blended[i].depth > blended[j].depth })

	parallelRows(p.pool, p.height, p.bands, func(y0, y1 int) {
		for i := range opaque {
			p.rasterize(&opaque[i], y0, y1, false)
		}
		for i := range blended {
			p.rasterize(&blended[i], y0, y1, true)
		}
	})
	return p.color
}

// setup transforms every mesh to screen space and culls back faces.
func (p *renderPass) setup(m model.Model, viewProj [16]float32) (opaque, blended []rasterTri) {
	modelMatrix := m.ModelMatrix()
	var mvp [16]float32
	common.Mul4(mvp[:], viewProj[:], modelMatrix[:])

	w := float32(p.width)
	h := float32(p.height)

	meshes := m.Meshes()
	for mi := range meshes {
		mesh := &meshes[mi]
		mat := mesh.Material
		if mat == nil {
			continue
		}

		screen := make([]screenVertex, len(mesh.Positions))
		world := make([]common.Vec3, len(mesh.Positions))
		for i, pos := range mesh.Positions {
			cx, cy, cz, cw := common.TransformPoint(mvp[:], pos[0], pos[1], pos[2])
			if cw != 0 && cw != 1 {
				cx, cy, cz = cx/cw, cy/cw, cz/cw
			}
			sv := screenVertex{
				x: (cx + 1) * 0.5 * w,
				y: (1 - cy) * 0.5 * h,
				z: cz,
			}
			if i < len(mesh.UVs) {
				sv.u, sv.v = mesh.UVs[i][0], mesh.UVs[i][1]
			}
			screen[i] = sv
			wx, wy, wz, _ := common.TransformPoint(modelMatrix[:], pos[0], pos[1], pos[2])
			world[i] = common.Vec3{wx, wy, wz}
		}

		for t := 0; t+2 < len(mesh.Indices); t += 3 {
			i0, i1, i2 := mesh.Indices[t], mesh.Indices[t+1], mesh.Indices[t+2]
			a, b, c := screen[i0], screen[i1], screen[i2]

			// screen y points down, so counter-clockwise front faces have negative area here
			area := (b.x-a.x)*(c.y-a.y) - (c.x-a.x)*(b.y-a.y)
			if area == 0 || (area > 0 && !mat.DoubleSided) {
				continue
			}

			tri := rasterTri{
				v:     [3]screenVertex{a, b, c},
				mat:   mat,
				light: 1,
				depth: (a.z + b.z + c.z) / 3,
			}
			if mat.Shading == model.ShadingStandard {
				tri.light = faceLight(world[i0], world[i1], world[i2])
			}
			if mat.AlphaMode == model.AlphaBlend {
				blended = append(blended, tri)
			} else {
				opaque = append(opaque, tri)
			}
		}
	}
	return opaque, blended
}

func faceLight(a, b, c common.Vec3) float32 {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	n := common.Vec3{
		e1[1]*e2[2] - e1[2]*e2[1],
		e1[2]*e2[0] - e1[0]*e2[2],
		e1[0]*e2[1] - e1[1]*e2[0],
	}.Normalize()
	d := math32.Abs(n[0]*standardLightDir[0] + n[1]*standardLightDir[1] + n[2]*standardLightDir[2])
	return standardAmbient + standardDiffuse*d
}

// rasterize fills the part of tri that lies in rows [y0, y1).
func (p *renderPass) rasterize(tri *rasterTri, y0, y1 int, blend bool) {
	a, b, c := tri.v[0], tri.v[1], tri.v[2]

	minX := max(int(math32.Floor(min(a.x, b.x, c.x))), 0)
	maxX := min(int(math32.Ceil(max(a.x, b.x, c.x))), p.width-1)
	minY := max(int(math32.Floor(min(a.y, b.y, c.y))), y0)
	maxY := min(int(math32.Ceil(max(a.y, b.y, c.y))), y1-1)
	if minX > maxX || minY > maxY {
		return
	}

	area := edge(a.x, a.y, b.x, b.y, c.x, c.y)
	if area == 0 {
		return
	}
	inv := 1 / area

	for py := minY; py <= maxY; py++ {
		fy := float32(py) + 0.5
		row := py * p.width
		for px := minX; px <= maxX; px++ {
			fx := float32(px) + 0.5
			w0 := edge(b.x, b.y, c.x, c.y, fx, fy) * inv
			w1 := edge(c.x, c.y, a.x, a.y, fx, fy) * inv
			w2 := edge(a.x, a.y, b.x, b.y, fx, fy) * inv
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*a.z + w1*b.z + w2*c.z
			if z < 0 || z > 1 {
				continue
			}
			idx := row + px
			if z >= p.depth[idx] {
				continue
			}

			u := w0*a.u + w1*b.u + w2*c.u
			v := w0*a.v + w1*b.v + w2*c.v
			r, g, bl, al, ok := shade(tri.mat, u, v, tri.light)
			if !ok {
				continue
			}

			off := py*p.color.Stride + px*4
			pix := p.color.Pix[off : off+4 : off+4]
			if !blend {
				pix[0] = toByte(r)
				pix[1] = toByte(g)
				pix[2] = toByte(bl)
				pix[3] = 255
				p.depth[idx] = z
				continue
			}
			// premultiplied source-over
			inva := 1 - al
			pix[0] = toByte(r*al + float32(pix[0])/255*inva)
			pix[1] = toByte(g*al + float32(pix[1])/255*inva)
			pix[2] = toByte(bl*al + float32(pix[2])/255*inva)
			pix[3] = toByte(al + float32(pix[3])/255*inva)
		}
	}
}

// edge is twice the signed area of (a, b, p).
func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// shade returns the straight-alpha fragment color, or ok=false when the fragment is discarded.
func shade(mat *model.Material, u, v, light float32) (r, g, b, a float32, ok bool) {
	r, g, b, a = mat.BaseColor[0], mat.BaseColor[1], mat.BaseColor[2], mat.BaseColor[3]
	if mat.Texture != nil {
		var tr, tg, tb, ta float32
		if mat.Filter == model.FilterNearest {
			tr, tg, tb, ta = sampleNearest(mat.Texture, u, v)
		} else {
			tr, tg, tb, ta = sampleBilinear(mat.Texture, u, v)
		}
		r *= tr
		g *= tg
		b *= tb
		a *= ta
	}
	r *= light
	g *= light
	b *= light

	alphaTest := mat.AlphaMode == model.AlphaMask || mat.Shading == model.ShadingUnlit
	if alphaTest && a < mat.AlphaCutoff {
		return 0, 0, 0, 0, false
	}
	if mat.AlphaMode != model.AlphaBlend {
		a = 1
	}
	return r, g, b, a, true
}

func wrap(t float32) float32 {
	return t - math32.Floor(t)
}

// texel returns the straight-alpha color at integer coordinates, wrapping around the edges.
func texel(tex *image.RGBA, x, y int) (r, g, b, a float32) {
	bounds := tex.Rect
	w, h := bounds.Dx(), bounds.Dy()
	x = ((x % w) + w) % w
	y = ((y % h) + h) % h
	off := tex.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
	s := tex.Pix[off : off+4 : off+4]
	if s[3] == 0 {
		return 0, 0, 0, 0
	}
	alpha := float32(s[3])
	return float32(s[0]) / alpha, float32(s[1]) / alpha, float32(s[2]) / alpha, alpha / 255
}

func sampleNearest(tex *image.RGBA, u, v float32) (r, g, b, a float32) {
	w, h := tex.Rect.Dx(), tex.Rect.Dy()
	if w == 0 || h == 0 {
		return 1, 1, 1, 1
	}
	x := int(wrap(u) * float32(w))
	y := int(wrap(v) * float32(h))
	return texel(tex, min(x, w-1), min(y, h-1))
}

func sampleBilinear(tex *image.RGBA, u, v float32) (r, g, b, a float32) {
	w, h := tex.Rect.Dx(), tex.Rect.Dy()
	if w == 0 || h == 0 {
		return 1, 1, 1, 1
	}
	fx := wrap(u)*float32(w) - 0.5
	fy := wrap(v)*float32(h) - 0.5
	x0 := int(math32.Floor(fx))
	y0 := int(math32.Floor(fy))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	r00, g00, b00, a00 := texel(tex, x0, y0)
	r10, g10, b10, a10 := texel(tex, x0+1, y0)
	r01, g01, b01, a01 := texel(tex, x0, y0+1)
	r11, g11, b11, a11 := texel(tex, x0+1, y0+1)

	mix := func(c00, c10, c01, c11 float32) float32 {
		top := c00 + (c10-c00)*tx
		bottom := c01 + (c11-c01)*tx
		return top + (bottom-top)*ty
	}
	return mix(r00, r10, r01, r11), mix(g00, g10, g01, g11), mix(b00, b10, b01, b11), mix(a00, a10, a01, a11)
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// parallelRows splits [0, height) into bands and runs fn for each band on the pool,
// returning once every band is done. A nil pool runs the bands inline.
func parallelRows(pool worker.DynamicWorkerPool, height, bands int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	bands = max(min(bands, height), 1)
	rows := int(math.Ceil(float64(height) / float64(bands)))

	if pool == nil || bands == 1 {
		for y := 0; y < height; y += rows {
			fn(y, min(y+rows, height))
		}
		return
	}

	var wg sync.WaitGroup
	id := 0
	for y := 0; y < height; y += rows {
		y0, y1 := y, min(y+rows, height)
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				fn(y0, y1)
				return nil, nil
			},
		})
		id++
	}
	wg.Wait()
}
