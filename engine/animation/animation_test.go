package animation

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	camera    common.Vec3
	rotationY float32
	rotations int
}

func (f *fakeTarget) CameraPosition() common.Vec3 { return f.camera }

func (f *fakeTarget) SetCameraPosition(p common.Vec3) { f.camera = p }

func (f *fakeTarget) SetModelRotationY(r float32) {
	f.rotationY = r
	f.rotations++
}

func assertVec(t *testing.T, want, got common.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d", i)
	}
}

func TestEaseOutCubic(t *testing.T) {
	assert.Equal(t, 0.0, EaseOutCubic(0))
	assert.Equal(t, 1.0, EaseOutCubic(1))
	assert.InDelta(t, 0.875, EaseOutCubic(0.5), 1e-12)
}

func TestFlyIn_DefaultPoses(t *testing.T) {
	s := NewFlyIn(nil)
	require.Equal(t, KindFlyIn, s.Kind())
	target := &fakeTarget{}

	s.Animate(target, 0)
	assertVec(t, common.Vec3{-1, 1.1, -0.5}, target.camera)

	s.Animate(target, 1)
	assertVec(t, common.Vec3{-0.85, 0.7, -0.95}, target.camera)
}

func TestFlyIn_WithTarget(t *testing.T) {
	s := NewFlyIn(&common.Vec3{0, 0, 0})
	from, to := s.FlyInPoses()
	assertVec(t, common.Vec3{-0.2, 0.4, 0.5}, from)
	assertVec(t, common.Vec3{0, 0, 0}, to)

	target := &fakeTarget{}
	s.Animate(target, 0.5)
	assertVec(t, common.Vec3{-0.025, 0.05, 0.0625}, target.camera)
}

func TestFlyIn_NoOpAfterLength(t *testing.T) {
	s := NewFlyIn(nil)
	target := &fakeTarget{camera: common.Vec3{9, 9, 9}}
	s.Animate(target, 1.5)
	assertVec(t, common.Vec3{9, 9, 9}, target.camera)
	assert.True(t, s.Done(1.5))
	assert.False(t, s.Done(0.5))
}

func TestFlyOut_CapturesStartOnFirstCall(t *testing.T) {
	s := NewFlyOut(common.Vec3{2, 0, 0})
	target := &fakeTarget{}

	s.Animate(target, 10)
	assertVec(t, common.Vec3{2, 0, 0}, target.camera)
	assert.False(t, s.Done(10))

	s.Animate(target, 12)
	assertVec(t, common.Vec3{3, 0, 0}, target.camera)

	target.camera = common.Vec3{7, 7, 7}
	s.Animate(target, 12.5)
	assertVec(t, common.Vec3{7, 7, 7}, target.camera)
	assert.True(t, s.Done(12.5))
}

func TestIdleFollow_ConvergesMonotonically(t *testing.T) {
	s := NewIdleFollow()
	s.SetPointerOffset(1, 0, 0.5, 0)
	target := &fakeTarget{}

	prev := 0.0
	elapsed := 0.0
	for i := 0; i < 200; i++ {
		elapsed += 1.0 / 60
		s.Animate(target, elapsed)
		rot, _ := s.FollowState()
		assert.GreaterOrEqual(t, rot, prev)
		assert.LessOrEqual(t, rot, 0.5)
		prev = rot
	}
	assert.InDelta(t, 0.5, prev, 1e-3)
	assert.InDelta(t, 0.5, target.rotationY, 1e-3)
	assert.InDelta(t, DefaultBaseCamera[1], target.camera[1], 1e-6)
}

func TestIdleFollow_MatchesExponentialApproach(t *testing.T) {
	s := NewIdleFollow()
	s.SetPointerOffset(1, 1, 0.5, 0.5)
	target := &fakeTarget{}

	// With small steps the lerp approaches target * (1 - e^(-speed*t)).
	for i := 1; i <= 500; i++ {
		s.Animate(target, float64(i)*0.001)
	}
	want := 0.5 * (1 - math.Exp(-8*0.5))
	rot, offY := s.FollowState()
	assert.InDelta(t, want, rot, 1e-3)
	assert.InDelta(t, want, offY, 1e-3)
	assert.InDelta(t, want, float64(target.rotationY), 1e-3)
}

func TestIdleFollow_FirstStep(t *testing.T) {
	s := NewIdleFollow()
	s.SetPointerOffset(0.5, 1, 1, 2)
	target := &fakeTarget{}

	s.Animate(target, 0.1)
	rot, offY := s.FollowState()
	assert.InDelta(t, 0.5*8*0.1, rot, 1e-9)
	assert.InDelta(t, 2*8*0.1, offY, 1e-9)
	assert.InDelta(t, 2.57+1.6, target.camera[1], 1e-5)
}

func TestIdleFollow_SkipsLongDelta(t *testing.T) {
	s := NewIdleFollow()
	s.SetPointerOffset(1, 1, 1, 1)
	target := &fakeTarget{camera: common.Vec3{1, 1, 1}}

	s.Animate(target, 0.6)
	rot, offY := s.FollowState()
	assert.Equal(t, 0.0, rot)
	assert.Equal(t, 0.0, offY)
	assertVec(t, common.Vec3{1, 1, 1}, target.camera)
	assert.Equal(t, 0, target.rotations)

	// the skipped frame still advances the clock
	s.Animate(target, 0.7)
	rot, _ = s.FollowState()
	assert.InDelta(t, 0.8, rot, 1e-9)
}

func TestIdleFollow_EpsilonStops(t *testing.T) {
	s := NewIdleFollow()
	s.SetPointerOffset(1e-8, 0, 1, 1)
	target := &fakeTarget{}
	s.Animate(target, 0.016)
	rot, _ := s.FollowState()
	assert.Equal(t, 0.0, rot)
}

func TestIdleFollow_Options(t *testing.T) {
	s := NewIdleFollow(WithSpeed(1), WithBaseCamera(common.Vec3{0, 10, 0}))
	s.SetPointerOffset(0, 1, 0, 1)
	target := &fakeTarget{}
	s.Animate(target, 0.5)
	assert.InDelta(t, 10.5, target.camera[1], 1e-6)
	assert.False(t, s.Done(math.MaxFloat64))
}

func TestStrategy_NilSafe(t *testing.T) {
	var s *Strategy
	s.Animate(&fakeTarget{}, 1)
	s.SetPointerOffset(1, 1, 1, 1)
	assert.True(t, s.Done(0))
}

func TestSetPointerOffset_IgnoredByOtherKinds(t *testing.T) {
	s := NewFlyIn(nil)
	s.SetPointerOffset(1, 1, 1, 1)
	rot, off := s.FollowState()
	assert.Equal(t, 0.0, rot)
	assert.Equal(t, 0.0, off)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "idle-follow", KindIdleFollow.String())
	assert.Equal(t, "fly-out", KindFlyOut.String())
}
