package animation

import "github.com/Carmen-Shannon/oxy-showcase/common"

const (
	defaultFlyOutLength = 2.0
	flyOutScale         = 1.5
)

type flyOutState struct {
	length float64
	from   common.Vec3
	to     common.Vec3

	started bool
	start   float64
}

// NewFlyOut creates the dialog-close animation: the camera moves from `from` to
// from*1.5, away from the origin. The clock starts on the first Animate call.
//
// Parameters:
//   - from: the camera position when the dialog starts closing
//   - options: functional options, see WithDuration
//
// Returns:
//   - *Strategy: the fly-out strategy
func NewFlyOut(from common.Vec3, options ...StrategyOption) *Strategy {
	s := newStrategy(KindFlyOut)
	s.flyOut.length = defaultFlyOutLength
	s.flyOut.from = from
	s.flyOut.to = from.Scale(flyOutScale)
	for _, option := range options {
		option(s)
	}
	return s
}

func (st *flyOutState) animate(target Target, elapsed float64) {
	if !st.started {
		st.started = true
		st.start = elapsed
	}
	progress := elapsed - st.start
	if progress > st.length {
		return
	}
	t := EaseOutCubic(progress / st.length)
	target.SetCameraPosition(lerp(st.from, st.to, t))
}
