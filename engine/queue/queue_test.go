package queue

import (
	"context"
	"errors"
	"image"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/engine/model"
	"github.com/Carmen-Shannon/oxy-showcase/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateLoader serves a unit box for every source. Sources with a gate block until
// the gate is closed or the request context ends.
type gateLoader struct {
	mu *sync.Mutex

	gates     map[string]chan struct{}
	failures  map[string]error
	started   chan string
	order     []string
	active    int
	maxActive int
}

func newGateLoader() *gateLoader {
	return &gateLoader{
		mu:       &sync.Mutex{},
		gates:    make(map[string]chan struct{}),
		failures: make(map[string]error),
		started:  make(chan string, 32),
	}
}

func (g *gateLoader) gate(source string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.gates[source] = ch
	return ch
}

func (g *gateLoader) fail(source string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[source] = err
}

func (g *gateLoader) loaded() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.order...)
}

func (g *gateLoader) Load(ctx context.Context, source string) (model.Model, error) {
	g.mu.Lock()
	g.active++
	g.maxActive = max(g.maxActive, g.active)
	g.order = append(g.order, source)
	gate := g.gates[source]
	failure := g.failures[source]
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.active--
		g.mu.Unlock()
	}()
	g.started <- source

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}

	mat := model.DefaultMaterial()
	mat.BaseColor = [4]float32{0, 1, 0, 1}
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

func (g *gateLoader) LoadBytes(ctx context.Context, source string, _ []byte) (model.Model, error) {
	return g.Load(ctx, source)
}

func (g *gateLoader) LoadImage(context.Context, string) (*image.RGBA, error) {
	return nil, errors.New("no images")
}

// countingRenderer counts Dispose calls on the wrapped renderer.
type countingRenderer struct {
	renderer.SceneRenderer
	disposes *atomic.Int32
}

func (c *countingRenderer) Dispose() {
	c.disposes.Add(1)
	c.SceneRenderer.Dispose()
}

type harness struct {
	loader   *gateLoader
	workers  int
	built    atomic.Int32
	disposes atomic.Int32

	mu   sync.Mutex
	last renderer.SceneRenderer
	err  error
}

func (h *harness) factory() (renderer.SceneRenderer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		err := h.err
		h.err = nil
		return nil, err
	}
	r, err := renderer.NewSceneRenderer(
		renderer.WithHost(renderer.NewManualHost()),
		renderer.WithLoader(h.loader),
		renderer.WithSize(32, 32),
		renderer.WithPaused(true),
		renderer.WithGrid(false),
		renderer.WithRasterWorkers(max(h.workers, 1)),
	)
	if err != nil {
		return nil, err
	}
	h.built.Add(1)
	h.last = &countingRenderer{SceneRenderer: r, disposes: &h.disposes}
	return h.last, nil
}

func (h *harness) renderer() renderer.SceneRenderer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func newHarness(t *testing.T, idle time.Duration) (*harness, RenderingQueue) {
	t.Helper()
	h := &harness{loader: newGateLoader()}
	q := NewRenderingQueue(WithRendererFactory(h.factory), WithIdleTimeout(idle))
	t.Cleanup(q.Close)
	return h, q
}

func wait(t *testing.T, ticket *Ticket) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url, err := ticket.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return url, err
}

func awaitStart(t *testing.T, g *gateLoader, source string) {
	t.Helper()
	select {
	case got := <-g.started:
		require.Equal(t, source, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("load of %s never started", source)
	}
}

func TestTasksRunInOrderOneAtATime(t *testing.T) {
	h, q := newHarness(t, time.Minute)

	var tickets []*Ticket
	for _, src := range []string{"a", "b", "c"} {
		ticket, _ := q.Enqueue(src, nil)
		tickets = append(tickets, ticket)
	}
	for _, ticket := range tickets {
		url, err := wait(t, ticket)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, renderer.DataURLPrefix))
	}

	assert.Equal(t, []string{"a", "b", "c"}, h.loader.loaded())
	assert.Equal(t, 1, h.loader.maxActive)
	assert.Equal(t, int32(1), h.built.Load())
	assert.Nil(t, h.renderer().Model())
}

func TestEnqueueReturnsIncreasingIDs(t *testing.T) {
	_, q := newHarness(t, time.Minute)
	t1, id1 := q.Enqueue("a", nil)
	t2, id2 := q.Enqueue("b", nil)
	assert.Less(t, id1, id2)
	assert.Equal(t, id1, t1.ID())
	assert.Equal(t, id2, t2.ID())
	_, _ = wait(t, t2)
}

func TestCancelPendingTask(t *testing.T) {
	h, q := newHarness(t, time.Minute)
	release := h.loader.gate("a")

	ta, _ := q.Enqueue("a", nil)
	awaitStart(t, h.loader, "a")
	tb, idb := q.Enqueue("b", nil)

	assert.True(t, q.Cancel(idb))
	_, err := wait(t, tb)
	require.ErrorIs(t, err, ErrCancelled)
	assert.False(t, q.Cancel(idb))

	close(release)
	_, err = wait(t, ta)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, h.loader.loaded())
}

func TestCancelRunningTask(t *testing.T) {
	h, q := newHarness(t, time.Minute)
	h.loader.gate("a")

	ta, ida := q.Enqueue("a", nil)
	awaitStart(t, h.loader, "a")
	assert.True(t, q.Working())

	assert.True(t, q.Cancel(ida))
	select {
	case <-ta.Done():
	case <-time.After(time.Second):
		t.Fatal("cancelled ticket did not settle")
	}
	_, err := ta.Result()
	require.ErrorIs(t, err, ErrCancelled)

	tb, _ := q.Enqueue("b", nil)
	_, err = wait(t, tb)
	require.NoError(t, err)

	_, err = ta.Result()
	require.ErrorIs(t, err, ErrCancelled)
	assert.Nil(t, h.renderer().Model())
}

func TestCancelUnknownTask(t *testing.T) {
	_, q := newHarness(t, time.Minute)
	assert.False(t, q.Cancel(42))
}

func TestCancelScenario(t *testing.T) {
	h, q := newHarness(t, time.Minute)
	release := h.loader.gate("first")

	t1, _ := q.Enqueue("first", nil)
	awaitStart(t, h.loader, "first")
	t2, id2 := q.Enqueue("second", nil)
	t3, _ := q.Enqueue("third", &common.DisplayMeta{DoubleSided: common.Ptr(false)})
	assert.Equal(t, 2, q.Len())

	require.True(t, q.Cancel(id2))
	assert.Equal(t, 1, q.Len())
	close(release)

	_, err := wait(t, t1)
	require.NoError(t, err)
	_, err = wait(t, t2)
	require.ErrorIs(t, err, ErrCancelled)
	_, err = wait(t, t3)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "third"}, h.loader.loaded())
}

func TestLoadFailureDoesNotStopQueue(t *testing.T) {
	h, q := newHarness(t, time.Minute)
	boom := errors.New("404")
	h.loader.fail("broken", boom)

	t1, _ := q.Enqueue("broken", nil)
	t2, _ := q.Enqueue("ok", nil)

	_, err := wait(t, t1)
	require.ErrorIs(t, err, boom)
	_, err = wait(t, t2)
	require.NoError(t, err)
}

func TestIdleRendererDisposedOnceAndRebuilt(t *testing.T) {
	h, q := newHarness(t, 30*time.Millisecond)

	t1, _ := q.Enqueue("a", nil)
	_, err := wait(t, t1)
	require.NoError(t, err)

	require.Eventually(t, q.RendererDisposed, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), h.disposes.Load())

	t2, _ := q.Enqueue("b", nil)
	_, err = wait(t, t2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), h.built.Load())
	assert.False(t, q.RendererDisposed())
}

func TestIdleRebuildWithPooledRenderers(t *testing.T) {
	before := runtime.NumGoroutine()
	h := &harness{loader: newGateLoader(), workers: 4}
	q := NewRenderingQueue(WithRendererFactory(h.factory), WithIdleTimeout(20*time.Millisecond))

	for _, src := range []string{"a", "b", "c"} {
		ticket, _ := q.Enqueue(src, nil)
		url, err := wait(t, ticket)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, renderer.DataURLPrefix))
		require.Eventually(t, q.RendererDisposed, 2*time.Second, 5*time.Millisecond)
	}
	assert.Equal(t, int32(3), h.built.Load())
	require.Eventually(t, func() bool { return h.disposes.Load() == 3 }, 2*time.Second, 5*time.Millisecond)

	q.Close()
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond, "renderer workers survived idle teardown")
}

func TestIdleTimerDebounced(t *testing.T) {
	h, q := newHarness(t, 300*time.Millisecond)
	for _, src := range []string{"a", "b", "c"} {
		ticket, _ := q.Enqueue(src, nil)
		_, err := wait(t, ticket)
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, int32(1), h.built.Load())
	assert.Equal(t, int32(0), h.disposes.Load())
}

func TestFactoryFailureRejectsTaskAndRetries(t *testing.T) {
	h, q := newHarness(t, time.Minute)
	boom := errors.New("no surface")
	h.err = boom

	t1, _ := q.Enqueue("a", nil)
	_, err := wait(t, t1)
	require.ErrorIs(t, err, boom)
	assert.True(t, q.RendererDisposed())

	t2, _ := q.Enqueue("b", nil)
	_, err = wait(t, t2)
	require.NoError(t, err)
	assert.Equal(t, int32(1), h.built.Load())
}

func TestCloseRejectsPendingAndLaterTasks(t *testing.T) {
	h, q := newHarness(t, time.Minute)
	h.loader.gate("a")

	ta, _ := q.Enqueue("a", nil)
	awaitStart(t, h.loader, "a")
	tb, _ := q.Enqueue("b", nil)

	q.Close()
	_, err := wait(t, ta)
	require.ErrorIs(t, err, ErrClosed)
	_, err = wait(t, tb)
	require.ErrorIs(t, err, ErrClosed)

	tc, _ := q.Enqueue("c", nil)
	_, err = tc.Result()
	require.ErrorIs(t, err, ErrClosed)

	require.Eventually(t, q.RendererDisposed, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), h.disposes.Load())
}

func TestTicketResultPendingAndWaitTimeout(t *testing.T) {
	ticket := newTicket(1)
	_, err := ticket.Result()
	require.ErrorIs(t, err, ErrPending)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = ticket.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.True(t, ticket.settle("data:x", nil))
	assert.False(t, ticket.settle("", ErrCancelled))
	url, err := ticket.Result()
	require.NoError(t, err)
	assert.Equal(t, "data:x", url)
}

func TestDefaultQueue(t *testing.T) {
	q := NewRenderingQueue(WithIdleTimeout(time.Second))
	prev := Default()
	SetDefault(q)
	t.Cleanup(func() { SetDefault(prev) })

	assert.Same(t, q, Default())
}
