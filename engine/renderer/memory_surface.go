package renderer

import (
	"fmt"
	"image"
	"sync"
)

// memorySurface keeps the last presented frame in memory.
type memorySurface struct {
	mu *sync.Mutex

	width    int
	height   int
	frame    *image.RGBA
	presents int
	released bool
}

func newMemorySurface(width, height int) (*memorySurface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return &memorySurface{
		mu:     &sync.Mutex{},
		width:  width,
		height: height,
	}, nil
}

func (s *memorySurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *memorySurface) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	s.width = width
	s.height = height
	return nil
}

func (s *memorySurface) Present(frame *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ErrDisposed
	}
	s.frame = frame
	s.presents++
	return nil
}

func (s *memorySurface) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.frame = nil
}

// Frame returns the last presented frame, or nil.
func (s *memorySurface) Frame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Presents returns how many frames were presented.
func (s *memorySurface) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// Released reports whether Release was called.
func (s *memorySurface) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
