package model

import "github.com/Carmen-Shannon/oxy-showcase/common"

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName overrides the imported model name.
//
// Parameters:
//   - name: the model name
//
// Returns:
//   - ModelBuilderOption: a function that sets the name
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithPosition sets the initial root translation.
//
// Parameters:
//   - p: the translation
//
// Returns:
//   - ModelBuilderOption: a function that sets the position
func WithPosition(p common.Vec3) ModelBuilderOption {
	return func(m *model) {
		m.position = p
	}
}

// WithRotationY sets the initial root rotation around Y, wrapped into (-Pi, Pi].
//
// Parameters:
//   - r: rotation in radians
//
// Returns:
//   - ModelBuilderOption: a function that sets the rotation
func WithRotationY(r float32) ModelBuilderOption {
	return func(m *model) {
		m.rotationY = normalizeAngle(r)
	}
}
