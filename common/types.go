// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/chewxy/math32"
)

// Vec3 is a 3-component float32 vector. It marshals to a JSON array, matching the
// [x, y, z] form used by the catalog's display metadata.
type Vec3 [3]float32

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v * s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Len returns the Euclidean length of v.
func (v Vec3) Len() float32 {
	return math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Normalize returns v scaled to unit length. A zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l < 1e-8 {
		return v
	}
	return v.Scale(1 / l)
}

// Lerp linearly interpolates from v to o by t.
//
// Parameters:
//   - o: the end vector
//   - t: interpolation factor, 0 yields v and 1 yields o
//
// Returns:
//   - Vec3: the interpolated vector
func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	return Vec3{
		v[0] + (o[0]-v[0])*t,
		v[1] + (o[1]-v[1])*t,
		v[2] + (o[2]-v[2])*t,
	}
}

// AABB is an axis-aligned bounding box. An empty box has Min > Max on every axis.
type AABB struct {
	Min Vec3
	Max Vec3
}

// EmptyAABB returns a box that contains nothing and grows on the first Expand.
//
// Returns:
//   - AABB: the empty box
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Expand grows the box to include p.
//
// Parameters:
//   - p: the point to include
//
// Returns:
//   - AABB: the grown box
func (b AABB) Expand(p Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = math32.Min(b.Min[i], p[i])
		b.Max[i] = math32.Max(b.Max[i], p[i])
	}
	return b
}

// Union returns the smallest box containing both b and o.
func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	return b.Expand(o.Min).Expand(o.Max)
}

// Translate returns the box moved by d.
func (b AABB) Translate(d Vec3) AABB {
	if b.IsEmpty() {
		return b
	}
	return AABB{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}

// Size returns the extent of the box on each axis, or zero for an empty box.
func (b AABB) Size() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box, or zero for an empty box.
func (b AABB) Center() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return b.Min.Add(b.Max).Scale(0.5)
}

// MinDimension returns the smallest extent across the three axes.
func (b AABB) MinDimension() float32 {
	s := b.Size()
	return math32.Min(s[0], math32.Min(s[1], s[2]))
}

// MaxDimension returns the largest extent across the three axes.
func (b AABB) MaxDimension() float32 {
	s := b.Size()
	return math32.Max(s[0], math32.Max(s[1], s[2]))
}

// DisplayMeta is the persisted camera framing and render flags of a catalog asset.
// Every field is optional; nil means "use the computed default".
type DisplayMeta struct {
	// CameraPosition is the saved camera position in world space.
	CameraPosition *Vec3 `json:"camera_position,omitempty" yaml:"camera_position,omitempty" msgpack:"camera_position,omitempty"`
	// ControlsTarget is the saved orbit pivot.
	ControlsTarget *Vec3 `json:"controls_target,omitempty" yaml:"controls_target,omitempty" msgpack:"controls_target,omitempty"`
	// CameraZoom is the saved orthographic zoom factor.
	CameraZoom *float32 `json:"camera_zoom,omitempty" yaml:"camera_zoom,omitempty" msgpack:"camera_zoom,omitempty"`
	// DoubleSided requests double-sided materials. Defaults to true when nil.
	DoubleSided *bool `json:"double_sided,omitempty" yaml:"double_sided,omitempty" msgpack:"double_sided,omitempty"`
}

// DoubleSidedOrDefault resolves the double-sided flag, defaulting to true.
// A nil receiver is allowed.
//
// Returns:
//   - bool: the requested flag, or true when unspecified
func (m *DisplayMeta) DoubleSidedOrDefault() bool {
	if m == nil {
		return true
	}
	return Deref(m.DoubleSided, true)
}

// AssetMeta is the metadata envelope stored next to an asset by the catalog API.
type AssetMeta struct {
	Render *DisplayMeta `json:"render,omitempty"`
}

// Display returns the render section, or nil when absent. A nil receiver is allowed.
func (m *AssetMeta) Display() *DisplayMeta {
	if m == nil {
		return nil
	}
	return m.Render
}
