package animation

import "github.com/Carmen-Shannon/oxy-showcase/common"

// StrategyOption is a functional option for configuring a Strategy.
type StrategyOption func(*Strategy)

// WithSpeed sets the idle-follow convergence speed.
//
// Parameters:
//   - speed: the fraction of the remaining distance covered per second
//
// Returns:
//   - StrategyOption: a function that sets the follow speed
func WithSpeed(speed float64) StrategyOption {
	return func(s *Strategy) {
		if speed > 0 {
			s.idle.speed = speed
		}
	}
}

// WithBaseCamera sets the resting camera pose the idle-follow height offset is added to.
//
// Parameters:
//   - base: the resting camera position
//
// Returns:
//   - StrategyOption: a function that sets the base camera
func WithBaseCamera(base common.Vec3) StrategyOption {
	return func(s *Strategy) {
		s.idle.base = base
	}
}

// WithDuration sets the length in seconds of a fly-in or fly-out strategy.
//
// Parameters:
//   - seconds: the duration
//
// Returns:
//   - StrategyOption: a function that sets the duration
func WithDuration(seconds float64) StrategyOption {
	return func(s *Strategy) {
		if seconds <= 0 {
			return
		}
		s.flyIn.length = seconds
		s.flyOut.length = seconds
	}
}
