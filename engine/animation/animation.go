package animation

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-showcase/common"
)

// Kind identifies the active variant of a Strategy.
type Kind int

const (
	// KindIdleFollow eases the model rotation and camera height toward pointer-driven targets.
	KindIdleFollow Kind = iota
	// KindFlyIn moves the camera from an offset pose onto its resting pose.
	KindFlyIn
	// KindFlyOut pulls the camera away from the origin.
	KindFlyOut
)

func (k Kind) String() string {
	switch k {
	case KindIdleFollow:
		return "idle-follow"
	case KindFlyIn:
		return "fly-in"
	case KindFlyOut:
		return "fly-out"
	default:
		return "unknown"
	}
}

// Target is the part of a renderer a Strategy drives.
type Target interface {
	// CameraPosition returns the current camera position.
	CameraPosition() common.Vec3
	// SetCameraPosition moves the camera.
	SetCameraPosition(p common.Vec3)
	// SetModelRotationY rotates the loaded model around Y. No-op without a model.
	SetModelRotationY(r float32)
}

// Strategy is a per-frame camera/model animation.
// It is a tagged union: Kind selects which variant state Animate advances.
// A Strategy is attached to one renderer at a time and replaced wholesale.
type Strategy struct {
	mu *sync.Mutex

	kind Kind

	idle   idleFollowState
	flyIn  flyInState
	flyOut flyOutState
}

// Kind returns the strategy variant.
//
// Returns:
//   - Kind: the variant
func (s *Strategy) Kind() Kind {
	return s.kind
}

// Animate advances the strategy to elapsed and writes the result into target.
//
// Parameters:
//   - target: the renderer state to update
//   - elapsed: seconds since the renderer started its clock
func (s *Strategy) Animate(target Target, elapsed float64) {
	if s == nil || target == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.kind {
	case KindIdleFollow:
		s.idle.animate(target, elapsed)
	case KindFlyIn:
		s.flyIn.animate(target, elapsed)
	case KindFlyOut:
		s.flyOut.animate(target, elapsed)
	}
}

// Done reports whether a finite variant has run its full duration at elapsed.
// IdleFollow never finishes.
//
// Parameters:
//   - elapsed: seconds since the renderer started its clock
//
// Returns:
//   - bool: true once the animation has completed
func (s *Strategy) Done(elapsed float64) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.kind {
	case KindFlyIn:
		return elapsed > s.flyIn.length
	case KindFlyOut:
		return s.flyOut.started && elapsed-s.flyOut.start > s.flyOut.length
	default:
		return false
	}
}

// EaseOutCubic maps linear progress in [0, 1] to a decelerating curve.
//
// Parameters:
//   - x: linear progress
//
// Returns:
//   - float64: eased progress
func EaseOutCubic(x float64) float64 {
	inv := 1 - x
	return 1 - inv*inv*inv
}

func lerp(a, b common.Vec3, t float64) common.Vec3 {
	return a.Lerp(b, float32(t))
}

func newStrategy(kind Kind) *Strategy {
	return &Strategy{
		mu:   &sync.Mutex{},
		kind: kind,
	}
}
