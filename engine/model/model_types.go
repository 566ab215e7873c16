package model

import (
	"image"

	"github.com/Carmen-Shannon/oxy-showcase/common"
)

// AlphaMode mirrors the glTF material alpha modes.
type AlphaMode int

const (
	// AlphaOpaque ignores texture and base color alpha.
	AlphaOpaque AlphaMode = iota
	// AlphaMask discards fragments whose alpha is below AlphaCutoff.
	AlphaMask
	// AlphaBlend composites fragments over what is already drawn.
	AlphaBlend
)

// Shading selects how the render pass colors a material's fragments.
type Shading int

const (
	// ShadingStandard applies a fixed ambient + directional term, the loader default.
	ShadingStandard Shading = iota
	// ShadingUnlit outputs the nearest texel untouched, the blocky look resource-pack models are authored for.
	ShadingUnlit
)

// Filter selects how textures are sampled.
type Filter int

const (
	// FilterLinear samples with bilinear interpolation.
	FilterLinear Filter = iota
	// FilterNearest samples the closest texel.
	FilterNearest
)

// Material holds the render properties of a single mesh.
// Each mesh owns its own Material so per-mesh policies (double-sidedness) never
// leak into other meshes that share the same source material.
type Material struct {
	// Name is the source material name.
	Name string
	// BaseColor is the RGBA factor multiplied with the texture.
	BaseColor [4]float32
	// Texture is the decoded base color texture, or nil.
	Texture *image.RGBA
	// AlphaMode is the source alpha mode.
	AlphaMode AlphaMode
	// AlphaCutoff is the discard threshold used by AlphaMask.
	AlphaCutoff float32
	// DoubleSided disables back-face culling when true.
	DoubleSided bool
	// Shading selects the fragment color model.
	Shading Shading
	// Filter selects texture sampling.
	Filter Filter
}

// Mesh is a triangle list with positions already in asset space (node transforms applied).
type Mesh struct {
	// Name is the source mesh (or node) name.
	Name string
	// Positions are the vertex positions.
	Positions [][3]float32
	// UVs are the texture coordinates, parallel to Positions. May be nil.
	UVs [][2]float32
	// Indices are triangle vertex indices, three per triangle.
	Indices []uint32
	// Material is the mesh's own material.
	Material *Material
	// Bounds is the asset-space bounding box of Positions.
	Bounds common.AABB
}

// TriangleCount returns the number of triangles in the mesh.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// ImportedModel is the intermediate result produced by a loader backend
// before it is wrapped into a Model.
type ImportedModel struct {
	// Name is the model identifier.
	Name string
	// Meshes are the flattened meshes.
	Meshes []Mesh
}
