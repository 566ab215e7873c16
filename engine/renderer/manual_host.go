package renderer

import (
	"image"
	"sort"
	"sync"
)

// ManualHost is a Host whose frame callbacks only run when Tick is called.
// Surfaces are kept in memory and can be inspected.
type ManualHost struct {
	mu *sync.Mutex

	nextID     FrameID
	pending    map[FrameID]FrameCallback
	surfaces   []*memorySurface
	surfaceErr error
	exports    int
}

var _ Host = &ManualHost{}

// NewManualHost creates a ManualHost with no pending frames.
//
// Returns:
//   - *ManualHost: the host
func NewManualHost() *ManualHost {
	return &ManualHost{
		mu:      &sync.Mutex{},
		pending: make(map[FrameID]FrameCallback),
	}
}

// FailSurfaces makes every later CreateSurface call return err. Nil restores normal behaviour.
//
// Parameters:
//   - err: the error to return
func (h *ManualHost) FailSurfaces(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.surfaceErr = err
}

func (h *ManualHost) CreateSurface(width, height int) (Surface, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.surfaceErr != nil {
		return nil, h.surfaceErr
	}
	s, err := newMemorySurface(width, height)
	if err != nil {
		return nil, err
	}
	h.surfaces = append(h.surfaces, s)
	return s, nil
}

func (h *ManualHost) RequestFrame(cb FrameCallback) FrameID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.pending[h.nextID] = cb
	return h.nextID
}

func (h *ManualHost) CancelFrame(id FrameID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, id)
}

func (h *ManualHost) ExportImage(frame image.Image) (string, error) {
	h.mu.Lock()
	h.exports++
	h.mu.Unlock()
	return EncodeDataURL(frame)
}

// Tick runs every callback that was pending when Tick was called, in request order.
// Callbacks requested during the tick wait for the next one.
//
// Returns:
//   - int: the number of callbacks run
func (h *ManualHost) Tick() int {
	h.mu.Lock()
	ids := make([]FrameID, 0, len(h.pending))
	for id := range h.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	cbs := make([]FrameCallback, 0, len(ids))
	for _, id := range ids {
		cbs = append(cbs, h.pending[id])
		delete(h.pending, id)
	}
	h.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
	return len(cbs)
}

// Pending returns the number of outstanding frame requests.
//
// Returns:
//   - int: the pending count
func (h *ManualHost) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// Exports returns how many images were exported.
//
// Returns:
//   - int: the export count
func (h *ManualHost) Exports() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exports
}

// LastFrame returns the most recent frame presented to the newest surface, or nil.
//
// Returns:
//   - *image.RGBA: the frame
func (h *ManualHost) LastFrame() *image.RGBA {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.surfaces) == 0 {
		return nil
	}
	return h.surfaces[len(h.surfaces)-1].Frame()
}

// Surfaces returns how many surfaces were created and how many of them are released.
//
// Returns:
//   - created: surfaces created
//   - released: surfaces released
func (h *ManualHost) Surfaces() (created, released int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.surfaces {
		if s.Released() {
			released++
		}
	}
	return len(h.surfaces), released
}
