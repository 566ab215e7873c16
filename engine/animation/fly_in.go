package animation

import "github.com/Carmen-Shannon/oxy-showcase/common"

const defaultFlyInLength = 1.0

var (
	defaultFlyInFrom = common.Vec3{-1, 1.1, -0.5}
	defaultFlyInTo   = common.Vec3{-0.85, 0.7, -0.95}
	flyInOffset      = common.Vec3{-0.2, 0.4, 0.5}
)

type flyInState struct {
	length float64
	from   common.Vec3
	to     common.Vec3
}

// NewFlyIn creates the dialog-open animation. With a nil target the camera flies
// between the default poses; otherwise it lands on target from target + (-0.2, 0.4, 0.5).
//
// Parameters:
//   - target: the resting camera position, or nil
//   - options: functional options, see WithDuration
//
// Returns:
//   - *Strategy: the fly-in strategy
func NewFlyIn(target *common.Vec3, options ...StrategyOption) *Strategy {
	s := newStrategy(KindFlyIn)
	s.flyIn.length = defaultFlyInLength
	s.flyIn.from = defaultFlyInFrom
	s.flyIn.to = defaultFlyInTo
	if target != nil {
		s.flyIn.to = *target
		s.flyIn.from = target.Add(flyInOffset)
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// FlyInPoses returns the start and end camera positions of a fly-in strategy.
//
// Returns:
//   - from: the initial camera position
//   - to: the resting camera position
func (s *Strategy) FlyInPoses() (from, to common.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flyIn.from, s.flyIn.to
}

func (st *flyInState) animate(target Target, elapsed float64) {
	if elapsed > st.length {
		return
	}
	t := EaseOutCubic(elapsed / st.length)
	target.SetCameraPosition(lerp(st.from, st.to, t))
}
