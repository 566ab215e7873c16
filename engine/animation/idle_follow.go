package animation

import (
	"math"

	"github.com/Carmen-Shannon/oxy-showcase/common"
)

const (
	defaultFollowSpeed = 8.0
	followEpsilon      = 1e-6
	// frames further apart than this are treated as a stall and skipped
	maxFollowDelta = 0.5
)

// DefaultBaseCamera is the resting camera pose of the idle-follow landing scene.
var DefaultBaseCamera = common.Vec3{-7.27, 2.57, -13.6}

type idleFollowState struct {
	speed float64
	base  common.Vec3

	last float64

	rotation      float64
	cameraOffsetY float64

	targetRotation      float64
	targetCameraOffsetY float64
}

// NewIdleFollow creates a strategy that eases the model's Y rotation and the camera
// height toward targets set with SetPointerOffset.
//
// Parameters:
//   - options: functional options, see WithSpeed and WithBaseCamera
//
// Returns:
//   - *Strategy: the idle-follow strategy
func NewIdleFollow(options ...StrategyOption) *Strategy {
	s := newStrategy(KindIdleFollow)
	s.idle.speed = defaultFollowSpeed
	s.idle.base = DefaultBaseCamera
	for _, option := range options {
		option(s)
	}
	return s
}

// SetPointerOffset sets the follow targets from a normalized pointer offset.
// Target rotation becomes offsetX*scaleX and the target camera height offset becomes offsetY*scaleY.
// Has no effect on other variants.
//
// Parameters:
//   - offsetX, offsetY: pointer offset, typically in [-1, 1] from the viewport centre
//   - scaleX, scaleY: gains applied to each axis
func (s *Strategy) SetPointerOffset(offsetX, offsetY, scaleX, scaleY float64) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kind != KindIdleFollow {
		return
	}
	s.idle.targetRotation = offsetX * scaleX
	s.idle.targetCameraOffsetY = offsetY * scaleY
}

// FollowState returns the current eased rotation and camera height offset of an idle-follow strategy.
//
// Returns:
//   - rotation: the model rotation in radians
//   - cameraOffsetY: the camera height offset
func (s *Strategy) FollowState() (rotation, cameraOffsetY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idle.rotation, s.idle.cameraOffsetY
}

func (st *idleFollowState) animate(target Target, elapsed float64) {
	delta := elapsed - st.last
	st.last = elapsed
	if delta > maxFollowDelta {
		return
	}

	st.rotation += followStep(st.targetRotation-st.rotation, st.speed, delta)
	st.cameraOffsetY += followStep(st.targetCameraOffsetY-st.cameraOffsetY, st.speed, delta)

	target.SetModelRotationY(float32(st.rotation))

	pos := target.CameraPosition()
	pos[1] = st.base[1] + float32(st.cameraOffsetY)
	target.SetCameraPosition(pos)
}

// followStep is the increment for one frame, or zero when it is below the epsilon.
func followStep(diff, speed, delta float64) float64 {
	step := diff * speed * delta
	if math.Abs(step) < followEpsilon {
		return 0
	}
	return step
}
