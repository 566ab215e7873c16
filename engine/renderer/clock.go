package renderer

import (
	"sync"
	"time"
)

// Clock reports the time elapsed between successive frames.
type Clock interface {
	// Delta returns the seconds since the previous call. The first call returns 0.
	Delta() float64
}

type systemClock struct {
	mu      *sync.Mutex
	last    time.Time
	started bool
}

// NewSystemClock creates a Clock backed by the monotonic wall clock.
//
// Returns:
//   - Clock: the clock
func NewSystemClock() Clock {
	return &systemClock{mu: &sync.Mutex{}}
}

func (c *systemClock) Delta() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if !c.started {
		c.started = true
		c.last = now
		return 0
	}
	d := now.Sub(c.last).Seconds()
	c.last = now
	return d
}

// StepClock is a Clock that advances by a fixed step per call, after a first call returning 0.
type StepClock struct {
	mu      *sync.Mutex
	step    float64
	started bool
}

// NewStepClock creates a StepClock.
//
// Parameters:
//   - step: seconds returned by every call after the first
//
// Returns:
//   - *StepClock: the clock
func NewStepClock(step float64) *StepClock {
	return &StepClock{mu: &sync.Mutex{}, step: step}
}

// SetStep changes the step returned by later calls.
//
// Parameters:
//   - step: seconds per call
func (c *StepClock) SetStep(step float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = step
}

func (c *StepClock) Delta() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		c.started = true
		return 0
	}
	return c.step
}
