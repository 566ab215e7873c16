package renderer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/engine/animation"
	"github.com/Carmen-Shannon/oxy-showcase/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var boxIndices = []uint32{
	0, 1, 2, 0, 2, 3,
	4, 6, 5, 4, 7, 6,
	0, 4, 5, 0, 5, 1,
	1, 5, 6, 1, 6, 2,
	2, 6, 7, 2, 7, 3,
	3, 7, 4, 3, 4, 0,
}

// boxMesh builds a closed box with a flat unlit color.
func boxMesh(name string, min, max common.Vec3, rgba [4]float32) model.Mesh {
	pos := make([][3]float32, 8)
	for i := range pos {
		p := min
		if i&1 != 0 {
			p[0] = max[0]
		}
		if i&2 != 0 {
			p[1] = max[1]
		}
		if i&4 != 0 {
			p[2] = max[2]
		}
		pos[i] = p
	}
	mat := model.DefaultMaterial()
	mat.BaseColor = rgba
	return model.Mesh{
		Name:      name,
		Positions: pos,
		Indices:   append([]uint32(nil), boxIndices...),
		Material:  mat,
		Bounds:    common.EmptyAABB().Expand(min).Expand(max),
	}
}

// stubLoader serves models built on demand, keyed by source.
type stubLoader struct {
	mu *sync.Mutex

	models   map[string]func() model.Model
	panorama *image.RGBA
	err      error
	loads    int
}

func newStubLoader() *stubLoader {
	return &stubLoader{mu: &sync.Mutex{}, models: make(map[string]func() model.Model)}
}

func (s *stubLoader) add(source string, meshes ...model.Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[source] = func() model.Model {
		cp := append([]model.Mesh(nil), meshes...)
		for i := range cp {
			mat := *cp[i].Material
			cp[i].Material = &mat
		}
		return model.NewModel(&model.ImportedModel{Name: source, Meshes: cp})
	}
}

func (s *stubLoader) Load(ctx context.Context, source string) (model.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	build, ok := s.models[source]
	if !ok {
		return nil, errors.New("not found")
	}
	return build(), nil
}

func (s *stubLoader) LoadBytes(ctx context.Context, source string, _ []byte) (model.Model, error) {
	return s.Load(ctx, source)
}

func (s *stubLoader) LoadImage(ctx context.Context, _ string) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panorama == nil {
		return nil, errors.New("no panorama")
	}
	return s.panorama, nil
}

var red = [4]float32{1, 0, 0, 1}

func newTestRenderer(t *testing.T, host *ManualHost, l *stubLoader, options ...SceneRendererBuilderOption) *sceneRenderer {
	t.Helper()
	opts := append([]SceneRendererBuilderOption{
		WithHost(host),
		WithLoader(l),
		WithSize(64, 64),
		WithPaused(true),
		WithGrid(false),
		WithRasterWorkers(1),
		WithClock(NewStepClock(0.1)),
	}, options...)
	r, err := NewSceneRenderer(opts...)
	require.NoError(t, err)
	t.Cleanup(r.Dispose)
	return r.(*sceneRenderer)
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestNewSceneRendererSurfaceFailure(t *testing.T) {
	host := NewManualHost()
	boom := errors.New("no gpu")
	host.FailSurfaces(boom)

	_, err := NewSceneRenderer(WithHost(host), WithLoader(newStubLoader()))
	require.ErrorIs(t, err, boom)
}

func TestNewSceneRendererInvalidSize(t *testing.T) {
	_, err := NewSceneRenderer(WithHost(NewManualHost()), WithLoader(newStubLoader()), WithSize(0, 10))
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestLoadAssetCentersAndFrames(t *testing.T) {
	host := NewManualHost()
	l := newStubLoader()
	l.add("box", boxMesh("box", common.Vec3{4, 5, 4}, common.Vec3{6, 7, 6}, red))
	r := newTestRenderer(t, host, l, WithRasterWorkers(2))

	require.NoError(t, r.LoadAsset(context.Background(), "box", true))
	require.NotNil(t, r.Model())
	assert.Equal(t, 1, r.LoadedAssets())

	b := r.Model().WorldBounds()
	assert.InDelta(t, 0, b.Min[1], 1e-5)
	assert.InDelta(t, 0, b.Center()[0], 1e-5)
	assert.InDelta(t, 0, b.Center()[2], 1e-5)

	tx, ty, tz := r.Controls().Target()
	assert.InDelta(t, 0, tx, 1e-5)
	assert.InDelta(t, 1, ty, 1e-5)
	assert.InDelta(t, 0, tz, 1e-5)

	px, py, pz := r.Controls().Position()
	dist := common.Vec3{px, py - 1, pz}.Len()
	assert.InDelta(t, 2*framingScale, dist, 1e-4)
	assert.Less(t, px, float32(0))
	assert.Greater(t, py, float32(1))
	assert.Less(t, pz, float32(0))

	hw, hh := r.Camera().Frustum()
	assert.InDelta(t, framingScale, hh, 1e-5)
	assert.InDelta(t, framingScale, hw, 1e-5)
	assert.Equal(t, float32(1), r.Camera().Zoom())

	require.NoError(t, r.RenderFrame())
	url, err := r.ExportImage()
	require.NoError(t, err)
	img, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	center := rgbaAt(img, 32, 32)
	assert.Greater(t, center.R, uint8(200))
	assert.Less(t, center.G, uint8(40))
	assert.Greater(t, center.A, uint8(200))
	for _, p := range []image.Point{{0, 0}, {63, 0}, {0, 63}, {63, 63}} {
		assert.Equal(t, uint8(0), rgbaAt(img, p.X, p.Y).A, "corner %v", p)
	}
	assert.Equal(t, 1, host.Exports())
}

func TestLoadAssetFailureKeepsPreviousState(t *testing.T) {
	host := NewManualHost()
	l := newStubLoader()
	l.add("box", boxMesh("box", common.Vec3{}, common.Vec3{1, 1, 1}, red))
	r := newTestRenderer(t, host, l)

	require.NoError(t, r.LoadAsset(context.Background(), "box", true))
	prev := r.Model()
	px, py, pz := r.Controls().Position()

	require.Error(t, r.LoadAsset(context.Background(), "missing", true))
	assert.Same(t, prev, r.Model())
	assert.False(t, prev.Disposed())
	nx, ny, nz := r.Controls().Position()
	assert.Equal(t, []float32{px, py, pz}, []float32{nx, ny, nz})
	assert.Equal(t, 1, r.LoadedAssets())
}

func TestLoadAssetReplacesPrevious(t *testing.T) {
	l := newStubLoader()
	l.add("a", boxMesh("a", common.Vec3{}, common.Vec3{1, 1, 1}, red))
	l.add("b", boxMesh("b", common.Vec3{}, common.Vec3{2, 2, 2}, red))
	r := newTestRenderer(t, NewManualHost(), l)

	require.NoError(t, r.LoadAsset(context.Background(), "a", false))
	first := r.Model()
	require.NoError(t, r.LoadAsset(context.Background(), "b", false))

	assert.True(t, first.Disposed())
	assert.Equal(t, "b", r.Model().Name())
	assert.Equal(t, 2, r.LoadedAssets())
	assert.Equal(t, model.ShadingUnlit, r.Model().Meshes()[0].Material.Shading)
	assert.Equal(t, model.FilterNearest, r.Model().Meshes()[0].Material.Filter)
}

func TestLoadAssetCancelled(t *testing.T) {
	l := newStubLoader()
	l.add("box", boxMesh("box", common.Vec3{}, common.Vec3{1, 1, 1}, red))
	r := newTestRenderer(t, NewManualHost(), l)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.LoadAsset(ctx, "box", true)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, r.Model())
}

func TestDisplayMetaRoundTrip(t *testing.T) {
	r := newTestRenderer(t, NewManualHost(), newStubLoader())

	meta := &common.DisplayMeta{
		CameraPosition: &common.Vec3{2, 1.5, -2},
		ControlsTarget: &common.Vec3{0, 0.5, 0},
		CameraZoom:     common.Ptr(float32(1.5)),
		DoubleSided:    common.Ptr(false),
	}
	r.ApplyDisplayMeta(meta)
	r.SetDoubleSided(meta.DoubleSidedOrDefault())

	got := r.CaptureDisplayMeta()
	require.NotNil(t, got.CameraPosition)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, meta.CameraPosition[i], got.CameraPosition[i], 1e-4)
		assert.InDelta(t, meta.ControlsTarget[i], got.ControlsTarget[i], 1e-4)
	}
	assert.InDelta(t, 1.5, *got.CameraZoom, 1e-6)
	assert.False(t, *got.DoubleSided)

	r2 := newTestRenderer(t, NewManualHost(), newStubLoader())
	r2.ApplyDisplayMeta(&got)
	a := r.Camera().ViewProjectionMatrix()
	b := r2.Camera().ViewProjectionMatrix()
	assert.InDeltaSlice(t, a[:], b[:], 1e-4)
}

func TestApplyDisplayMetaPartial(t *testing.T) {
	r := newTestRenderer(t, NewManualHost(), newStubLoader())
	px, py, pz := r.Controls().Position()

	r.ApplyDisplayMeta(&common.DisplayMeta{CameraZoom: common.Ptr(float32(2))})
	nx, ny, nz := r.Controls().Position()
	assert.Equal(t, []float32{px, py, pz}, []float32{nx, ny, nz})
	assert.Equal(t, float32(2), r.Camera().Zoom())

	r.ApplyDisplayMeta(nil)
	assert.Equal(t, float32(2), r.Camera().Zoom())
}

func TestSetDoubleSidedThreshold(t *testing.T) {
	l := newStubLoader()
	l.add("mixed",
		boxMesh("thick", common.Vec3{}, common.Vec3{1, 1, 1}, red),
		boxMesh("thin", common.Vec3{}, common.Vec3{1, 0.1, 1}, red),
	)
	r := newTestRenderer(t, NewManualHost(), l)
	require.NoError(t, r.LoadAsset(context.Background(), "mixed", false))

	meshes := r.Model().Meshes()
	assert.True(t, meshes[0].Material.DoubleSided)
	assert.False(t, meshes[1].Material.DoubleSided)

	r.SetDoubleSided(false)
	assert.False(t, meshes[0].Material.DoubleSided)
	assert.False(t, meshes[1].Material.DoubleSided)
	assert.False(t, *r.CaptureDisplayMeta().DoubleSided)
}

func TestPausedRendererOnlyRendersOnDemand(t *testing.T) {
	host := NewManualHost()
	r := newTestRenderer(t, host, newStubLoader())
	assert.Equal(t, 0, host.Pending())

	require.NoError(t, r.RenderFrame())
	assert.Equal(t, 0, host.Pending())
	assert.NotNil(t, host.LastFrame())
}

func TestLiveLoopKeepsOneOutstandingRequest(t *testing.T) {
	host := NewManualHost()
	r := newTestRenderer(t, host, newStubLoader(), WithPaused(false))
	assert.Equal(t, 1, host.Pending())

	require.NoError(t, r.RenderFrame())
	assert.Equal(t, 1, host.Pending())

	for i := 0; i < 3; i++ {
		assert.Equal(t, 1, host.Tick())
		assert.Equal(t, 1, host.Pending())
	}
	assert.NotNil(t, host.LastFrame())
	assert.InDelta(t, 0.3, r.Elapsed(), 1e-9)

	r.SetPaused(true)
	assert.Equal(t, 0, host.Pending())
	r.SetPaused(false)
	assert.Equal(t, 1, host.Pending())
}

func TestDisposeIsIdempotent(t *testing.T) {
	host := NewManualHost()
	l := newStubLoader()
	l.add("box", boxMesh("box", common.Vec3{}, common.Vec3{1, 1, 1}, red))
	r := newTestRenderer(t, host, l, WithPaused(false))
	require.NoError(t, r.LoadAsset(context.Background(), "box", true))
	m := r.Model()

	r.Dispose()
	r.Dispose()

	assert.True(t, r.Disposed())
	assert.True(t, m.Disposed())
	assert.Equal(t, 0, host.Pending())
	created, released := host.Surfaces()
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, released)

	require.ErrorIs(t, r.RenderFrame(), ErrDisposed)
	require.ErrorIs(t, r.LoadAsset(context.Background(), "box", true), ErrDisposed)
	_, err := r.ExportImage()
	require.ErrorIs(t, err, ErrDisposed)
	require.ErrorIs(t, r.Resize(10, 10), ErrDisposed)
}

func TestResizeKeepsFramedHeight(t *testing.T) {
	l := newStubLoader()
	l.add("box", boxMesh("box", common.Vec3{}, common.Vec3{1, 1, 1}, red))
	r := newTestRenderer(t, NewManualHost(), l)
	require.NoError(t, r.LoadAsset(context.Background(), "box", true))
	_, hh := r.Camera().Frustum()

	require.NoError(t, r.Resize(200, 100))
	w, h := r.Size()
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)

	hw, hh2 := r.Camera().Frustum()
	assert.InDelta(t, hh, hh2, 1e-6)
	assert.InDelta(t, 2*hh, hw, 1e-6)
	assert.Equal(t, [2]float32{1.0 / 200, 1.0 / 100}, r.aa.resolution)

	require.NoError(t, r.RenderFrame())
	url, err := r.ExportImage()
	require.NoError(t, err)
	img, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())

	require.ErrorIs(t, r.Resize(-1, 5), ErrInvalidSize)
}

func TestExportImageBeforeFrame(t *testing.T) {
	r := newTestRenderer(t, NewManualHost(), newStubLoader())
	_, err := r.ExportImage()
	require.ErrorIs(t, err, ErrNoAsset)
}

func TestRemoveAsset(t *testing.T) {
	l := newStubLoader()
	l.add("box", boxMesh("box", common.Vec3{}, common.Vec3{1, 1, 1}, red))
	r := newTestRenderer(t, NewManualHost(), l)
	require.NoError(t, r.LoadAsset(context.Background(), "box", true))
	m := r.Model()

	r.RemoveAsset()
	assert.Nil(t, r.Model())
	assert.True(t, m.Disposed())
	assert.False(t, r.Disposed())
	require.NoError(t, r.RenderFrame())
}

func TestAnimationDrivesCamera(t *testing.T) {
	r := newTestRenderer(t, NewManualHost(), newStubLoader(), WithClock(NewStepClock(0.5)))
	r.SetAnimation(animation.NewFlyIn(nil))
	assert.Equal(t, animation.KindFlyIn, r.Animation().Kind())

	require.NoError(t, r.RenderFrame())
	from, to := r.Animation().FlyInPoses()
	x, y, z := r.Controls().Position()
	assert.InDelta(t, from[0], x, 1e-4)
	assert.InDelta(t, from[1], y, 1e-4)
	assert.InDelta(t, from[2], z, 1e-4)

	require.NoError(t, r.RenderFrame())
	require.NoError(t, r.RenderFrame())
	require.NoError(t, r.RenderFrame())
	assert.InDelta(t, 1.5, r.Elapsed(), 1e-9)
	x, y, z = r.Controls().Position()
	assert.InDelta(t, to[0], x, 1e-4)
	assert.InDelta(t, to[1], y, 1e-4)
	assert.InDelta(t, to[2], z, 1e-4)
}

func TestIdleFollowRotatesModel(t *testing.T) {
	l := newStubLoader()
	l.add("box", boxMesh("box", common.Vec3{}, common.Vec3{1, 1, 1}, red))
	r := newTestRenderer(t, NewManualHost(), l, WithClock(NewStepClock(0.05)))
	require.NoError(t, r.LoadAsset(context.Background(), "box", true))

	idle := animation.NewIdleFollow()
	idle.SetPointerOffset(1, 0, 0.5, 0)
	r.SetAnimation(idle)
	for i := 0; i < 40; i++ {
		require.NoError(t, r.RenderFrame())
	}
	assert.InDelta(t, 0.5, r.Model().RotationY(), 1e-2)
}

func TestPanoramaFillsBackground(t *testing.T) {
	l := newStubLoader()
	pano := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for i := 0; i < len(pano.Pix); i += 4 {
		pano.Pix[i+2] = 255
		pano.Pix[i+3] = 255
	}
	l.panorama = pano
	r := newTestRenderer(t, NewManualHost(), l, WithPanoramaURL("sky.png"))

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.sky.hasPanorama()
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, r.RenderFrame())
	c := rgbaAt(r.lastFrame, 1, 1)
	assert.Greater(t, c.B, uint8(200))
	assert.Greater(t, c.A, uint8(200))
}

func TestGridVisibility(t *testing.T) {
	r := newTestRenderer(t, NewManualHost(), newStubLoader(), WithGrid(true))
	assert.True(t, r.GridVisible())
	r.ApplyDisplayMeta(&common.DisplayMeta{
		CameraPosition: &common.Vec3{-0.85, 0.7, -0.85},
		ControlsTarget: &common.Vec3{0, 0, 0},
	})
	require.NoError(t, r.RenderFrame())

	drawn := 0
	frame := r.lastFrame
	for i := 3; i < len(frame.Pix); i += 4 {
		if frame.Pix[i] > 0 {
			drawn++
		}
	}
	assert.Positive(t, drawn)

	r.SetGridVisible(false)
	assert.False(t, r.GridVisible())
	require.NoError(t, r.RenderFrame())
	frame = r.lastFrame
	for i := 3; i < len(frame.Pix); i += 4 {
		require.Equal(t, uint8(0), frame.Pix[i])
	}
}

func TestDisposeStopsRasterWorkers(t *testing.T) {
	l := newStubLoader()
	l.add("box", boxMesh("box", common.Vec3{0, 0, 0}, common.Vec3{1, 1, 1}, red))
	before := runtime.NumGoroutine()

	for i := 0; i < 5; i++ {
		r, err := NewSceneRenderer(
			WithHost(NewManualHost()),
			WithLoader(l),
			WithSize(32, 32),
			WithPaused(true),
			WithRasterWorkers(4),
		)
		require.NoError(t, err)
		require.NoError(t, r.LoadAsset(context.Background(), "box", true))
		require.NoError(t, r.RenderFrame())
		r.Dispose()
		r.Dispose()
	}

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond, "raster workers outlived their renderer")
}

func TestLoadAssetScalesClipPlanesForTinyModels(t *testing.T) {
	l := newStubLoader()
	l.add("speck", boxMesh("speck", common.Vec3{0, 0, 0}, common.Vec3{0.002, 0.002, 0.002}, red))
	r := newTestRenderer(t, NewManualHost(), l)

	require.NoError(t, r.LoadAsset(context.Background(), "speck", true))
	dist := float32(0.002 * framingScale)
	assert.InDelta(t, dist*nearPlaneRatio, r.Camera().Near(), 1e-9)
	assert.Less(t, r.Camera().Near(), dist-0.002)

	require.NoError(t, r.RenderFrame())
	center := rgbaAt(r.lastFrame, 32, 32)
	assert.Greater(t, center.R, uint8(200))
	assert.Greater(t, center.A, uint8(200))
}
