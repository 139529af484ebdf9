package geometry

import (
	"errors"
	"math"

	"github.com/achilleasa/lanetrace/simd"
	"github.com/achilleasa/lanetrace/types"
)

var (
	// Returned when more than simd.Width triangles are packed into a leaf.
	ErrTooManyTriangles = errors.New("geometry: too many triangles for a single leaf")

	// Returned when a packed triangle carries a negative geometry id.
	ErrInvalidTriangleID = errors.New("geometry: triangle geometry id must be >= 0")
)

// A triangle and the identifiers recorded when a ray hits it.
type Triangle struct {
	V0, V1, V2 types.Vec3

	// Geometry and primitive ids. ID0 must be >= 0.
	ID0, ID1 int32
}

// Triangle4 packs up to simd.Width triangles, one per lane slot, in the layout
// consumed by Intersect and Occluded. Edges and the geometric normal are
// computed once at pack time:
//
//	E1 = v1 - v0
//	E2 = v2 - v0
//	Ng = cross(E1, E2)
//
// Unused slots have ID0 set to -1 and zero geometry. A Triangle4 is never
// modified after NewTriangle4 returns so it may be shared between goroutines.
type Triangle4 struct {
	V0, E1, E2, Ng simd.Vec3f4
	ID0, ID1       simd.Int4
}

// Pack triangles into a leaf.
func NewTriangle4(tris []Triangle) (Triangle4, error) {
	var leaf Triangle4
	if len(tris) > simd.Width {
		return leaf, ErrTooManyTriangles
	}

	leaf.ID0 = simd.SplatI(-1)
	leaf.ID1 = simd.SplatI(-1)
	for i, tri := range tris {
		if tri.ID0 < 0 {
			return Triangle4{}, ErrInvalidTriangleID
		}

		e1 := tri.V1.Sub(tri.V0)
		e2 := tri.V2.Sub(tri.V0)
		leaf.V0.SetLane(i, tri.V0)
		leaf.E1.SetLane(i, e1)
		leaf.E2.SetLane(i, e2)
		leaf.Ng.SetLane(i, e1.Cross(e2))
		leaf.ID0[i] = tri.ID0
		leaf.ID1[i] = tri.ID1
	}
	return leaf, nil
}

// Get the number of used slots. Slots are filled front to back so the first
// slot with a negative id terminates the leaf.
func (t *Triangle4) Size() int {
	for i, id := range t.ID0 {
		if id < 0 {
			return i
		}
	}
	return simd.Width
}

// Reconstruct the triangle stored in slot i.
func (t *Triangle4) Triangle(i int) Triangle {
	v0 := t.V0.Lane(i)
	return Triangle{
		V0:  v0,
		V1:  v0.Add(t.E1.Lane(i)),
		V2:  v0.Add(t.E2.Lane(i)),
		ID0: t.ID0[i],
		ID1: t.ID1[i],
	}
}

// Calculate the axis aligned bounding box of all used slots.
func (t *Triangle4) BBox() [2]types.Vec3 {
	bbox := emptyBBox()
	for i := 0; i < t.Size(); i++ {
		tri := t.Triangle(i)
		for _, v := range [3]types.Vec3{tri.V0, tri.V1, tri.V2} {
			bbox[0] = types.MinVec3(bbox[0], v)
			bbox[1] = types.MaxVec3(bbox[1], v)
		}
	}
	return bbox
}

func emptyBBox() [2]types.Vec3 {
	return [2]types.Vec3{
		{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}
