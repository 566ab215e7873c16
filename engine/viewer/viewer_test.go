package viewer

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/engine/animation"
	"github.com/Carmen-Shannon/oxy-showcase/engine/model"
	"github.com/Carmen-Shannon/oxy-showcase/engine/renderer"
	"github.com/Carmen-Shannon/oxy-showcase/engine/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// boxLoader serves a unit box for every source except those marked as failing.
type boxLoader struct {
	mu *sync.Mutex

	loads    map[string]int
	failures map[string]error
}

func newBoxLoader() *boxLoader {
	return &boxLoader{mu: &sync.Mutex{}, loads: make(map[string]int), failures: make(map[string]error)}
}

func (b *boxLoader) count(source string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads[source]
}

func (b *boxLoader) Load(ctx context.Context, source string) (model.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.loads[source]++
	failure := b.failures[source]
	b.mu.Unlock()
	if failure != nil {
		return nil, failure
	}
	mat := model.DefaultMaterial()
	mat.BaseColor = [4]float32{0, 0, 1, 1}
	return model.NewModel(&model.ImportedModel{
		Name: source,
		Meshes: []model.Mesh{{
			Name:      source,
			Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 1}},
			Indices:   []uint32{0, 1, 2, 0, 2, 3},
			Material:  mat,
			Bounds:    common.AABB{Min: common.Vec3{0, 0, 0}, Max: common.Vec3{1, 1, 1}},
		}},
	}), nil
}

func (b *boxLoader) LoadBytes(ctx context.Context, source string, _ []byte) (model.Model, error) {
	return b.Load(ctx, source)
}

func (b *boxLoader) LoadImage(context.Context, string) (*image.RGBA, error) {
	return nil, errors.New("no images")
}

func newTestViewer(t *testing.T, options ...ViewerBuilderOption) (Viewer, *renderer.ManualHost, *boxLoader) {
	t.Helper()
	host := renderer.NewManualHost()
	l := newBoxLoader()
	opts := append([]ViewerBuilderOption{
		WithHost(host),
		WithSize(64, 64),
		WithCloseDelay(10 * time.Millisecond),
		WithRendererOptions(
			renderer.WithLoader(l),
			renderer.WithClock(renderer.NewStepClock(0.1)),
			renderer.WithRasterWorkers(1),
			renderer.WithGrid(false),
		),
	}, options...)
	return NewViewer(opts...), host, l
}

func cameraPosition(r renderer.SceneRenderer) common.Vec3 {
	x, y, z := r.Controls().Position()
	return common.Vec3{x, y, z}
}

func TestOpen_LoadsAndFliesIn(t *testing.T) {
	v, host, l := newTestViewer(t)
	landing := common.Vec3{-1.2, 1, -1.2}
	meta := &common.DisplayMeta{CameraPosition: &landing, DoubleSided: common.Ptr(false)}

	require.NoError(t, v.Open(context.Background(), Subject{Name: "box", URL: "box.gltf", Meta: meta}))
	assert.True(t, v.IsOpen())
	assert.True(t, v.Loaded())
	assert.Equal(t, 1, l.count("box.gltf"))

	r := v.Renderer()
	require.NotNil(t, r)
	assert.False(t, r.Paused())
	require.NotNil(t, r.Animation())
	assert.Equal(t, animation.KindFlyIn, r.Animation().Kind())
	assert.False(t, *r.CaptureDisplayMeta().DoubleSided)

	host.Tick()
	assert.InDelta(t, 0, r.Elapsed(), 1e-9)
	start := cameraPosition(r)
	assert.InDelta(t, landing[1]+0.4, start[1], 1e-2)

	for i := 0; i < 12; i++ {
		host.Tick()
	}
	end := cameraPosition(r)
	assert.InDelta(t, landing[0], end[0], 1e-2)
	assert.InDelta(t, landing[1], end[1], 1e-2)
	assert.InDelta(t, landing[2], end[2], 1e-2)
	assert.Equal(t, 1, host.Pending())
}

func TestOpen_RequiresSource(t *testing.T) {
	v, _, _ := newTestViewer(t)
	assert.ErrorIs(t, v.Open(context.Background(), Subject{Name: "nothing"}), ErrNoSource)
	assert.False(t, v.IsOpen())
}

func TestOpen_LoadFailureTearsDown(t *testing.T) {
	v, host, l := newTestViewer(t)
	boom := errors.New("boom")
	l.failures["broken.gltf"] = boom

	err := v.Open(context.Background(), Subject{URL: "broken.gltf"})
	assert.ErrorIs(t, err, boom)
	assert.False(t, v.IsOpen())
	assert.Nil(t, v.Renderer())

	created, released := host.Surfaces()
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, released)

	select {
	case <-v.Done():
	default:
		t.Fatal("done channel not closed after failed open")
	}
}

func TestOpen_ReplacesPreviousDialog(t *testing.T) {
	v, _, _ := newTestViewer(t)
	require.NoError(t, v.Open(context.Background(), Subject{URL: "a.gltf"}))
	first := v.Renderer()
	firstDone := v.Done()

	require.NoError(t, v.Open(context.Background(), Subject{URL: "b.gltf"}))
	assert.True(t, first.Disposed())
	assert.NotSame(t, first, v.Renderer())
	subject, ok := v.Subject()
	assert.True(t, ok)
	assert.Equal(t, "b.gltf", subject.URL)

	select {
	case <-firstDone:
	default:
		t.Fatal("previous dialog not reported done")
	}
}

func TestClose_FliesOutThenDisposes(t *testing.T) {
	v, host, _ := newTestViewer(t, WithCloseDelay(200*time.Millisecond))
	require.NoError(t, v.Open(context.Background(), Subject{URL: "box.gltf"}))
	r := v.Renderer()
	host.Tick()

	v.Close()
	assert.False(t, v.IsOpen())
	assert.False(t, v.Loaded())
	require.NotNil(t, r.Animation())
	assert.Equal(t, animation.KindFlyOut, r.Animation().Kind())

	before := cameraPosition(r)
	host.Tick()
	host.Tick()
	assert.Greater(t, cameraPosition(r).Len(), before.Len())

	select {
	case <-v.Done():
	case <-time.After(time.Second):
		t.Fatal("dialog not disposed after close delay")
	}
	assert.True(t, r.Disposed())
	assert.Nil(t, v.Renderer())

	v.Close()
}

func TestKeys(t *testing.T) {
	var captured []common.DisplayMeta
	v, host, _ := newTestViewer(t, WithOnMeta(func(m common.DisplayMeta) { captured = append(captured, m) }))

	v.HandleKey(common.KeyG)
	v.HandleKey(common.KeyM)
	assert.Empty(t, captured)

	require.NoError(t, v.Open(context.Background(), Subject{URL: "box.gltf"}))
	r := v.Renderer()

	v.HandleKey(common.KeyG)
	assert.True(t, r.GridVisible())
	v.HandleKey(common.KeyG)
	assert.False(t, r.GridVisible())

	v.HandleKey(common.KeyP)
	assert.True(t, r.Paused())
	assert.Equal(t, 0, host.Pending())
	v.HandleKey(common.KeyP)
	assert.False(t, r.Paused())

	v.HandleKey(common.KeyM)
	require.Len(t, captured, 1)
	assert.NotNil(t, captured[0].CameraPosition)

	v.HandleKey(common.KeySpace)
	require.NotNil(t, r.Animation())
	assert.Equal(t, animation.KindIdleFollow, r.Animation().Kind())

	r.Controls().SetTarget(3, 3, 3)
	v.HandleKey(common.KeyC)
	x, _, z := r.Controls().Target()
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, z, 1e-6)

	v.HandleKey(common.KeyEsc)
	assert.False(t, v.IsOpen())
}

func TestReplayKeyReopens(t *testing.T) {
	v, _, l := newTestViewer(t)
	require.NoError(t, v.Open(context.Background(), Subject{URL: "box.gltf"}))
	first := v.Renderer()

	v.HandleKey(common.KeyR)
	require.Eventually(t, func() bool {
		r := v.Renderer()
		return r != nil && r != first && v.Loaded()
	}, time.Second, 5*time.Millisecond)
	assert.True(t, first.Disposed())
	assert.Equal(t, 2, l.count("box.gltf"))
	assert.Equal(t, animation.KindFlyIn, v.Renderer().Animation().Kind())
}

func TestPointerInput(t *testing.T) {
	v, host, _ := newTestViewer(t)
	require.NoError(t, v.Open(context.Background(), Subject{URL: "box.gltf"}))
	r := v.Renderer()

	v.HandleMouseDown(window.MouseButtonLeft, 10, 10)
	assert.Nil(t, r.Animation())

	before := cameraPosition(r)
	v.HandleMouseMove(40, 10)
	assert.NotEqual(t, before, cameraPosition(r))
	v.HandleMouseUp(window.MouseButtonLeft, 40, 10)

	moved := cameraPosition(r)
	v.HandleMouseMove(60, 30)
	assert.Equal(t, moved, cameraPosition(r))

	zoom := r.Camera().Zoom()
	v.HandleScroll(1)
	assert.Greater(t, r.Camera().Zoom(), zoom)

	v.HandleKey(common.KeySpace)
	follow := r.Animation()
	v.HandleMouseMove(64, 32)
	host.Tick()
	host.Tick()
	host.Tick()
	rotation, _ := follow.FollowState()
	assert.Greater(t, rotation, 0.0)
}

func TestResize(t *testing.T) {
	v, _, _ := newTestViewer(t)
	v.Resize(100, 50)
	require.NoError(t, v.Open(context.Background(), Subject{URL: "box.gltf"}))
	w, h := v.Renderer().Size()
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)

	v.Resize(80, 80)
	w, h = v.Renderer().Size()
	assert.Equal(t, 80, w)
	assert.Equal(t, 80, h)

	v.Resize(0, 10)
	w, _ = v.Renderer().Size()
	assert.Equal(t, 80, w)
}

func TestReloadKeepsFraming(t *testing.T) {
	v, _, l := newTestViewer(t)
	assert.ErrorIs(t, v.Reload(context.Background()), ErrNotOpen)

	require.NoError(t, v.Open(context.Background(), Subject{URL: "box.gltf"}))
	r := v.Renderer()
	r.Controls().SetPosition(2, 1, 2)
	r.Controls().Update()
	framing := r.CaptureDisplayMeta()

	require.NoError(t, v.Reload(context.Background()))
	assert.Equal(t, 2, r.LoadedAssets())
	assert.Equal(t, 2, l.count("box.gltf"))
	assert.InDeltaSlice(t, framing.CameraPosition[:], r.CaptureDisplayMeta().CameraPosition[:], 1e-4)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gltf")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	v, _, l := newTestViewer(t)
	require.NoError(t, v.Open(context.Background(), Subject{URL: path}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, v.Watch(ctx, path))

	require.NoError(t, os.WriteFile(path, []byte(`{"asset":{}}`), 0o644))
	require.Eventually(t, func() bool { return l.count(path) >= 2 }, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, v.Renderer().LoadedAssets(), 2)
}

func TestWatchMissingDirectory(t *testing.T) {
	v, _, _ := newTestViewer(t)
	err := v.Watch(context.Background(), filepath.Join(t.TempDir(), "missing", "model.gltf"))
	assert.Error(t, err)
}
