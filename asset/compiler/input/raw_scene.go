package input

import (
	"math"

	"github.com/achilleasa/lanetrace/types"
)

// A triangle primitive
type Primitive struct {
	Vertices [3]types.Vec3

	bbox   [2]types.Vec3
	center types.Vec3
}

// Create a primitive and calculate its bounding box and centroid.
func NewPrimitive(v0, v1, v2 types.Vec3) *Primitive {
	return &Primitive{
		Vertices: [3]types.Vec3{v0, v1, v2},
		bbox: [2]types.Vec3{
			types.MinVec3(v0, types.MinVec3(v1, v2)),
			types.MaxVec3(v0, types.MaxVec3(v1, v2)),
		},
		center: v0.Add(v1).Add(v2).Mul(1.0 / 3.0),
	}
}

// Get the primitive AABB.
func (prim *Primitive) BBox() [2]types.Vec3 {
	return prim.bbox
}

// Get primitive centroid.
func (prim *Primitive) Center() types.Vec3 {
	return prim.center
}

// A mesh is constructed by a list of primitives.
type Mesh struct {
	Name       string
	Primitives []*Primitive

	bbox            [2]types.Vec3
	bboxNeedsUpdate bool
}

// Create a new mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:            name,
		Primitives:      make([]*Primitive, 0),
		bboxNeedsUpdate: true,
	}
}

// Mark the bbox of this mesh as dirty.
func (m *Mesh) MarkBBoxDirty() {
	m.bboxNeedsUpdate = true
}

// Get mesh bounding box.
func (m *Mesh) BBox() [2]types.Vec3 {
	if m.bboxNeedsUpdate {
		m.bbox = [2]types.Vec3{
			{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
			{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
		}

		for _, prim := range m.Primitives {
			primBBox := prim.BBox()
			m.bbox[0] = types.MinVec3(m.bbox[0], primBBox[0])
			m.bbox[1] = types.MaxVec3(m.bbox[1], primBBox[1])
		}

		m.bboxNeedsUpdate = false
	}

	return m.bbox
}

// Camera settings.
type Camera struct {
	FOV  float32
	Eye  types.Vec3
	Look types.Vec3
	Up   types.Vec3

	// True if the scene explicitly sets the eye or look-at point.
	Placed bool
}

// The scene contains all elements that are processed and optimized by the
// scene compiler.
type Scene struct {
	Meshes []*Mesh
	Camera *Camera
}

// Create a new scene.
func NewScene() *Scene {
	return &Scene{
		Meshes: make([]*Mesh, 0),
		Camera: &Camera{
			FOV:  45.0,
			Eye:  types.Vec3{0, 0, 0},
			Look: types.Vec3{0, 0, -1},
			Up:   types.Vec3{0, 1, 0},
		},
	}
}

// Count primitives across all meshes.
func (sc *Scene) PrimitiveCount() int {
	count := 0
	for _, m := range sc.Meshes {
		count += len(m.Primitives)
	}
	return count
}
