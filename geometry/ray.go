package geometry

import (
	"github.com/achilleasa/lanetrace/simd"
	"github.com/achilleasa/lanetrace/types"
)

// A single ray with its valid hit interval.
type Ray struct {
	Org, Dir    types.Vec3
	Tnear, Tfar float32
}

// The hit record of a single ray lane.
type Hit struct {
	T, U, V  float32
	ID0, ID1 int32
	Ng       types.Vec3
}

// Returns true if the hit record points to a primitive.
func (h Hit) Valid() bool {
	return h.ID0 >= 0
}

// Ray4 is a packet of simd.Width rays stored as a struct of arrays. Org, Dir
// and Tnear are read by the kernels; Tfar, U, V, ID0, ID1 and Ng form the hit
// record that Intersect updates in place. Which lanes take part in a query is
// decided by the mask passed alongside the packet.
type Ray4 struct {
	Org, Dir    simd.Vec3f4
	Tnear, Tfar simd.Float4

	U, V     simd.Float4
	ID0, ID1 simd.Int4
	Ng       simd.Vec3f4
}

// Pack a set of rays into a packet with a cleared hit record.
func NewRay4(rays [simd.Width]Ray) Ray4 {
	var r Ray4
	for i, ray := range rays {
		r.Org.SetLane(i, ray.Org)
		r.Dir.SetLane(i, ray.Dir)
		r.Tnear[i] = ray.Tnear
		r.Tfar[i] = ray.Tfar
	}
	r.ID0 = simd.SplatI(-1)
	r.ID1 = simd.SplatI(-1)
	return r
}

// Set the hit interval of all lanes and clear the hit record.
func (r *Ray4) Reset(tnear, tfar float32) {
	r.Tnear = simd.SplatF(tnear)
	r.Tfar = simd.SplatF(tfar)
	r.U = simd.Float4{}
	r.V = simd.Float4{}
	r.ID0 = simd.SplatI(-1)
	r.ID1 = simd.SplatI(-1)
	r.Ng = simd.Vec3f4{}
}

// Extract the ray stored in lane i.
func (r *Ray4) Ray(i int) Ray {
	return Ray{
		Org:   r.Org.Lane(i),
		Dir:   r.Dir.Lane(i),
		Tnear: r.Tnear[i],
		Tfar:  r.Tfar[i],
	}
}

// Extract the hit record stored in lane i.
func (r *Ray4) Lane(i int) Hit {
	return Hit{
		T:   r.Tfar[i],
		U:   r.U[i],
		V:   r.V[i],
		ID0: r.ID0[i],
		ID1: r.ID1[i],
		Ng:  r.Ng.Lane(i),
	}
}

// Get the mask of lanes that have recorded a hit.
func (r *Ray4) HitMask() simd.Bool4 {
	return r.ID0.Eq(simd.SplatI(-1)).Not()
}
