package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/engine/model"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser    gltfParser
	materials gltfMaterialExtractor
}

// gltfMeshExtractor flattens the node hierarchy of a parsed document into asset-space meshes.
// Each primitive of each mesh instance becomes one model.Mesh with node transforms baked
// into its positions.
type gltfMeshExtractor interface {
	// ExtractScene extracts every mesh instance reachable from the default scene.
	// Documents without scenes fall back to every root node.
	//
	// Returns:
	//   - []model.Mesh: the flattened meshes
	//   - error: error if extraction fails
	ExtractScene() ([]model.Mesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - materials: resolves primitive materials
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser, materials gltfMaterialExtractor) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser, materials: materials}
}

func (e *gltfMeshExtractorImpl) ExtractScene() ([]model.Mesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	roots := e.rootNodes(doc)
	var identity [16]float32
	common.Identity(identity[:])

	var meshes []model.Mesh
	visited := make(map[int]bool, len(doc.Nodes))
	for _, root := range roots {
		if err := e.walk(doc, root, identity, visited, &meshes); err != nil {
			return nil, err
		}
	}
	return meshes, nil
}

// rootNodes returns the default scene's roots, or every node that is no other node's child.
func (e *gltfMeshExtractorImpl) rootNodes(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func (e *gltfMeshExtractorImpl) walk(doc *gltfDocument, nodeIndex int, parent [16]float32, visited map[int]bool, out *[]model.Mesh) error {
	if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
		return fmt.Errorf("node index %d out of range", nodeIndex)
	}
	if visited[nodeIndex] {
		return fmt.Errorf("node %d: cycle in node hierarchy", nodeIndex)
	}
	visited[nodeIndex] = true
	defer delete(visited, nodeIndex)

	node := &doc.Nodes[nodeIndex]
	var local, world [16]float32
	nodeLocalMatrix(node, local[:])
	common.Mul4(world[:], parent[:], local[:])

	if node.Mesh != nil {
		if *node.Mesh < 0 || *node.Mesh >= len(doc.Meshes) {
			return fmt.Errorf("node %d: mesh index %d out of range", nodeIndex, *node.Mesh)
		}
		src := &doc.Meshes[*node.Mesh]
		name := common.Coalesce(src.Name, node.Name)
		for primIdx := range src.Primitives {
			mesh, err := e.extractPrimitive(&src.Primitives[primIdx], name, world)
			if err != nil {
				return fmt.Errorf("mesh %d primitive %d: %w", *node.Mesh, primIdx, err)
			}
			if mesh != nil {
				*out = append(*out, *mesh)
			}
		}
	}

	for _, child := range node.Children {
		if err := e.walk(doc, child, world, visited, out); err != nil {
			return err
		}
	}
	return nil
}

func nodeLocalMatrix(node *gltfNode, out []float32) {
	if node.Matrix != nil {
		copy(out, node.Matrix[:])
		return
	}
	t := [3]float32{0, 0, 0}
	q := [4]float32{0, 0, 0, 1}
	s := [3]float32{1, 1, 1}
	if node.Translation != nil {
		t = *node.Translation
	}
	if node.Rotation != nil {
		q = *node.Rotation
	}
	if node.Scale != nil {
		s = *node.Scale
	}
	common.ComposeTRS(out, t, q, s)
}

// extractPrimitive returns nil for primitives that carry no triangles (points, lines).
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive, name string, world [16]float32) (*model.Mesh, error) {
	mode := gltfPrimitiveModeTriangles
	if prim.Mode != nil {
		mode = *prim.Mode
	}
	if mode != gltfPrimitiveModeTriangles && mode != gltfPrimitiveModeTriangleStrip && mode != gltfPrimitiveModeTriangleFan {
		return nil, nil
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := e.parser.ReadVec3Accessor(posAccessor)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	var uvs [][2]float32
	if uvAccessor, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err = e.parser.ReadVec2Accessor(uvAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read texcoords: %w", err)
		}
		if len(uvs) != len(positions) {
			uvs = nil
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = e.parser.ReadIndicesAccessor(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	indices = triangulate(indices, mode)
	for _, idx := range indices {
		if int(idx) >= len(positions) {
			return nil, fmt.Errorf("index %d exceeds vertex count %d", idx, len(positions))
		}
	}

	bounds := common.EmptyAABB()
	for i, p := range positions {
		x, y, z, _ := common.TransformPoint(world[:], p[0], p[1], p[2])
		positions[i] = [3]float32{x, y, z}
		bounds = bounds.Expand(common.Vec3{x, y, z})
	}

	// a mirroring transform flips winding
	if determinant3(world) < 0 {
		for i := 0; i+2 < len(indices); i += 3 {
			indices[i+1], indices[i+2] = indices[i+2], indices[i+1]
		}
	}

	mat, err := e.materials.Material(prim.Material)
	if err != nil {
		return nil, err
	}

	return &model.Mesh{
		Name:      name,
		Positions: positions,
		UVs:       uvs,
		Indices:   indices,
		Material:  mat,
		Bounds:    bounds,
	}, nil
}

// triangulate converts strip and fan index orders into a triangle list.
func triangulate(indices []uint32, mode int) []uint32 {
	switch mode {
	case gltfPrimitiveModeTriangleStrip:
		var out []uint32
		for i := 0; i+2 < len(indices); i++ {
			if i%2 == 0 {
				out = append(out, indices[i], indices[i+1], indices[i+2])
			} else {
				out = append(out, indices[i+1], indices[i], indices[i+2])
			}
		}
		return out
	case gltfPrimitiveModeTriangleFan:
		var out []uint32
		for i := 1; i+1 < len(indices); i++ {
			out = append(out, indices[0], indices[i], indices[i+1])
		}
		return out
	default:
		return indices[:len(indices)-len(indices)%3]
	}
}

// determinant3 is the determinant of the upper-left 3x3 of a column-major matrix.
func determinant3(m [16]float32) float32 {
	return m[0]*(m[5]*m[10]-m[9]*m[6]) -
		m[4]*(m[1]*m[10]-m[9]*m[2]) +
		m[8]*(m[1]*m[6]-m[5]*m[2])
}
