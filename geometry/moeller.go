// Package geometry implements the leaf-level intersection kernels that test a
// packet of rays against a packed leaf of triangles.
//
// The kernels use a variant of the Moeller-Trumbore test that relies on the
// precomputed edges and normal of Triangle4. All divisions by the determinant
// are folded into sign flips and deferred until a lane is known to hit, at
// which point a single reciprocal is taken.
//
// Both kernels are pure functions of their inputs. They never retain
// references to the ray packet or the leaf and never touch lanes outside the
// valid mask.
package geometry

import "github.com/achilleasa/lanetrace/simd"

// The unnormalized barycentric and depth numerators for one triangle slot.
// Each lane has already been multiplied by sign(det) so that comparisons
// against absDet replace divisions by det.
type slotTest struct {
	valid  simd.Bool4
	absDet simd.Float4
	u, v   simd.Float4
	t      simd.Float4
	ng     simd.Vec3f4
}

// Test all lanes in valid against slot i. If the returned mask is empty the
// remaining fields are undefined.
func testSlot(valid simd.Bool4, ray *Ray4, tri *Triangle4, i int) (res slotTest) {
	p0 := simd.SplatV(tri.V0.Lane(i))
	e1 := simd.SplatV(tri.E1.Lane(i))
	e2 := simd.SplatV(tri.E2.Lane(i))
	res.ng = simd.SplatV(tri.Ng.Lane(i))

	// determinant
	c := p0.Sub(ray.Org)
	r := ray.Dir.Cross(c)
	det := res.ng.Dot(ray.Dir)
	res.absDet = det.Abs()
	valid = valid.And(det.Ne(simd.Float4{}))
	if valid.None() {
		return res
	}

	// edge v0 v2; r is oriented for e1 so the e2 numerator is mirrored
	res.u = r.Dot(e2).Neg().XorSign(det)
	valid = valid.And(res.u.Ge(simd.Float4{}))
	if valid.None() {
		res.valid = valid
		return res
	}

	// edge v0 v1
	res.v = r.Dot(e1).XorSign(det)
	valid = valid.And(res.v.Ge(simd.Float4{}))
	if valid.None() {
		res.valid = valid
		return res
	}

	// edge v1 v2
	w := res.absDet.Sub(res.u).Sub(res.v)
	valid = valid.And(w.Ge(simd.Float4{}))
	if valid.None() {
		res.valid = valid
		return res
	}

	// depth; both ends of the interval are inclusive
	res.t = res.ng.Dot(c).XorSign(det)
	valid = valid.
		And(res.t.Ge(res.absDet.Mul(ray.Tnear))).
		And(res.absDet.Mul(ray.Tfar).Ge(res.t))

	res.valid = valid
	return res
}

// Intersect the lanes of ray selected by valid with every triangle in tri and
// record the nearest hit. For each lane that hits a triangle at a distance
// inside [Tnear, Tfar], Tfar, U, V, ID0, ID1 and Ng are overwritten with the
// hit data. Since Tfar shrinks as hits are recorded, later slots only replace
// a hit when they are at least as close; on an exact tie the later slot wins.
// Lanes outside valid are never modified.
func Intersect(valid simd.Bool4, ray *Ray4, tri *Triangle4) {
	for i, size := 0, tri.Size(); i < size; i++ {
		res := testSlot(valid, ray, tri, i)
		if res.valid.None() {
			continue
		}

		rcpAbsDet := res.absDet.Rcp()
		ray.U = simd.SelectF(res.valid, res.u.Mul(rcpAbsDet), ray.U)
		ray.V = simd.SelectF(res.valid, res.v.Mul(rcpAbsDet), ray.V)
		ray.Tfar = simd.SelectF(res.valid, res.t.Mul(rcpAbsDet), ray.Tfar)
		ray.ID0 = simd.SelectI(res.valid, simd.SplatI(tri.ID0[i]), ray.ID0)
		ray.ID1 = simd.SelectI(res.valid, simd.SplatI(tri.ID1[i]), ray.ID1)
		ray.Ng = simd.SelectV(res.valid, res.ng, ray.Ng)
	}
}

// Test whether the lanes of ray selected by valid are blocked by any triangle
// in tri within [Tnear, Tfar]. Lanes outside valid are reported as occluded so
// that callers can check for termination with All(). The ray is not modified.
func Occluded(valid simd.Bool4, ray *Ray4, tri *Triangle4) simd.Bool4 {
	occlusion := valid.Not()

	for i, size := 0, tri.Size(); i < size; i++ {
		res := testSlot(valid, ray, tri, i)
		if res.valid.None() {
			continue
		}

		occlusion = occlusion.Or(res.valid)
		if occlusion.All() {
			return occlusion
		}
	}
	return occlusion
}
