package renderer

import (
	"image"
	"sync"
	"time"
)

const defaultFrameInterval = time.Second / 60

// offscreenHost renders into memory and schedules frames with timers.
type offscreenHost struct {
	mu *sync.Mutex

	interval time.Duration
	nextID   FrameID
	timers   map[FrameID]*time.Timer
}

var _ Host = &offscreenHost{}

// NewOffscreenHost creates a Host with in-memory surfaces and a timer-driven frame scheduler.
//
// Parameters:
//   - frameInterval: the delay before a requested frame fires, zero for 60 Hz
//
// Returns:
//   - Host: the offscreen host
func NewOffscreenHost(frameInterval time.Duration) Host {
	if frameInterval <= 0 {
		frameInterval = defaultFrameInterval
	}
	return &offscreenHost{
		mu:       &sync.Mutex{},
		interval: frameInterval,
		timers:   make(map[FrameID]*time.Timer),
	}
}

func (h *offscreenHost) CreateSurface(width, height int) (Surface, error) {
	return newMemorySurface(width, height)
}

func (h *offscreenHost) RequestFrame(cb FrameCallback) FrameID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.timers[id] = time.AfterFunc(h.interval, func() {
		h.mu.Lock()
		_, ok := h.timers[id]
		delete(h.timers, id)
		h.mu.Unlock()
		if ok {
			cb()
		}
	})
	return id
}

func (h *offscreenHost) CancelFrame(id FrameID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.timers[id]; ok {
		t.Stop()
		delete(h.timers, id)
	}
}

func (h *offscreenHost) ExportImage(frame image.Image) (string, error) {
	return EncodeDataURL(frame)
}
