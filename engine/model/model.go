package model

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/chewxy/math32"
)

// model is the implementation of the Model interface.
type model struct {
	mu *sync.Mutex

	name      string
	meshes    []Mesh
	bounds    common.AABB
	position  common.Vec3
	rotationY float32
	disposed  bool
}

// Model defines the interface for a loaded 3D asset.
// A Model owns its meshes, materials and decoded textures, plus a root
// transform (translation and rotation around Y) used for centering and
// the idle pointer-follow animation.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Meshes returns the model's meshes. The slice must not be modified.
	//
	// Returns:
	//   - []Mesh: the meshes, empty after Dispose
	Meshes() []Mesh

	// Bounds returns the asset-space bounding box of all meshes, before the root transform.
	//
	// Returns:
	//   - common.AABB: the local bounds
	Bounds() common.AABB

	// WorldBounds returns the bounding box after the root transform is applied.
	//
	// Returns:
	//   - common.AABB: the world-space bounds
	WorldBounds() common.AABB

	// Position returns the root translation.
	//
	// Returns:
	//   - common.Vec3: the translation
	Position() common.Vec3

	// SetPosition sets the root translation.
	//
	// Parameters:
	//   - p: the new translation
	SetPosition(p common.Vec3)

	// RotationY returns the root rotation around the Y axis in radians.
	//
	// Returns:
	//   - float32: the rotation
	RotationY() float32

	// SetRotationY sets the root rotation around the Y axis in radians.
	//
	// Parameters:
	//   - r: the rotation
	SetRotationY(r float32)

	// ModelMatrix returns the root transform as a column-major matrix.
	//
	// Returns:
	//   - [16]float32: the model matrix
	ModelMatrix() [16]float32

	// ApplyDoubleSided sets each mesh's material double-sided only when requested is true
	// and the mesh's smallest bounding dimension exceeds threshold. Thin, flat parts stay
	// single-sided. When requested is false every material is forced single-sided.
	//
	// Parameters:
	//   - requested: the requested double-sided flag
	//   - threshold: minimum bounding dimension for a mesh to become double-sided
	ApplyDoubleSided(requested bool, threshold float32)

	// SetShading applies a shading model and texture filter to every material.
	//
	// Parameters:
	//   - shading: the shading model
	//   - filter: the texture filter
	SetShading(shading Shading, filter Filter)

	// TriangleCount returns the total number of triangles.
	//
	// Returns:
	//   - int: the triangle count
	TriangleCount() int

	// Dispose releases mesh data and textures. Safe to call multiple times.
	Dispose()

	// Disposed reports whether Dispose has been called.
	//
	// Returns:
	//   - bool: true once disposed
	Disposed() bool
}

var _ Model = &model{}

// NewModel creates a Model from imported data.
//
// Parameters:
//   - imported: the imported meshes and name
//   - options: functional options applied after construction
//
// Returns:
//   - Model: the newly created model
func NewModel(imported *ImportedModel, options ...ModelBuilderOption) Model {
	m := &model{
		mu:     &sync.Mutex{},
		bounds: common.EmptyAABB(),
	}
	if imported != nil {
		m.name = imported.Name
		m.meshes = imported.Meshes
	}
	for i := range m.meshes {
		if m.meshes[i].Material == nil {
			m.meshes[i].Material = DefaultMaterial()
		}
		m.bounds = m.bounds.Union(m.meshes[i].Bounds)
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// DefaultMaterial returns the material used for meshes without one: opaque white, single-sided.
//
// Returns:
//   - *Material: a new default material
func DefaultMaterial() *Material {
	return &Material{
		Name:        "default",
		BaseColor:   [4]float32{1, 1, 1, 1},
		AlphaCutoff: 0.5,
	}
}

func (m *model) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

func (m *model) Meshes() []Mesh {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meshes
}

func (m *model) Bounds() common.AABB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bounds
}

func (m *model) WorldBounds() common.AABB {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bounds.IsEmpty() {
		return m.bounds
	}
	mat := m.matrix()
	out := common.EmptyAABB()
	for i := 0; i < 8; i++ {
		c := m.bounds.Min
		if i&1 != 0 {
			c[0] = m.bounds.Max[0]
		}
		if i&2 != 0 {
			c[1] = m.bounds.Max[1]
		}
		if i&4 != 0 {
			c[2] = m.bounds.Max[2]
		}
		x, y, z, _ := common.TransformPoint(mat[:], c[0], c[1], c[2])
		out = out.Expand(common.Vec3{x, y, z})
	}
	return out
}

func (m *model) Position() common.Vec3 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *model) SetPosition(p common.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = p
}

func (m *model) RotationY() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rotationY
}

func (m *model) SetRotationY(r float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rotationY = r
}

func (m *model) ModelMatrix() [16]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matrix()
}

func (m *model) ApplyDoubleSided(requested bool, threshold float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.meshes {
		mesh := &m.meshes[i]
		mesh.Material.DoubleSided = requested && mesh.Bounds.MinDimension() > threshold
	}
}

func (m *model) SetShading(shading Shading, filter Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.meshes {
		m.meshes[i].Material.Shading = shading
		m.meshes[i].Material.Filter = filter
	}
}

func (m *model) TriangleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.meshes {
		n += m.meshes[i].TriangleCount()
	}
	return n
}

func (m *model) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	for i := range m.meshes {
		if m.meshes[i].Material != nil {
			m.meshes[i].Material.Texture = nil
		}
	}
	m.meshes = nil
	m.disposed = true
}

func (m *model) Disposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

// matrix builds the root transform. Caller must hold the mutex.
func (m *model) matrix() [16]float32 {
	var out [16]float32
	common.BuildModelMatrix(out[:],
		m.position[0], m.position[1], m.position[2],
		0, m.rotationY, 0,
		1, 1, 1,
	)
	return out
}

// normalizeAngle wraps an angle into (-Pi, Pi].
func normalizeAngle(a float32) float32 {
	a = math32.Mod(a+math32.Pi, 2*math32.Pi)
	if a <= 0 {
		a += 2 * math32.Pi
	}
	return a - math32.Pi
}
