package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/achilleasa/lanetrace/simd"
	"github.com/achilleasa/lanetrace/types"
	"github.com/google/go-cmp/cmp"
)

var unitTri = Triangle{
	V0:  types.Vec3{0, 0, 0},
	V1:  types.Vec3{1, 0, 0},
	V2:  types.Vec3{0, 1, 0},
	ID0: 7,
	ID1: 42,
}

func mustPack(t testing.TB, tris ...Triangle) Triangle4 {
	leaf, err := NewTriangle4(tris)
	if err != nil {
		t.Fatal(err)
	}
	return leaf
}

func splatRay(ray Ray) Ray4 {
	return NewRay4([simd.Width]Ray{ray, ray, ray, ray})
}

func approxEq(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

func TestGroundTruthHit(t *testing.T) {
	leaf := mustPack(t, unitTri)
	ray := splatRay(Ray{
		Org:  types.Vec3{0.25, 0.25, 1},
		Dir:  types.Vec3{0, 0, -1},
		Tfar: math.MaxFloat32,
	})

	Intersect(simd.SplatB(true), &ray, &leaf)

	for lane := 0; lane < simd.Width; lane++ {
		hit := ray.Lane(lane)
		if !hit.Valid() {
			t.Fatalf("[lane %d] expected a hit", lane)
		}
		if hit.T != 1 || hit.U != 0.25 || hit.V != 0.25 {
			t.Fatalf("[lane %d] expected t=1, u=0.25, v=0.25; got t=%f, u=%f, v=%f", lane, hit.T, hit.U, hit.V)
		}
		if hit.ID0 != unitTri.ID0 || hit.ID1 != unitTri.ID1 {
			t.Fatalf("[lane %d] expected ids (%d, %d); got (%d, %d)", lane, unitTri.ID0, unitTri.ID1, hit.ID0, hit.ID1)
		}
		expNg := types.Vec3{0, 0, 1}
		if hit.Ng != expNg {
			t.Fatalf("[lane %d] expected Ng to be %v; got %v", lane, expNg, hit.Ng)
		}
	}
}

func TestBarycentricWeights(t *testing.T) {
	leaf := mustPack(t, unitTri)

	type spec struct {
		org        types.Vec3
		dir        types.Vec3
		expT       float32
		expU, expV float32
	}
	specs := []spec{
		// u weighs v1, v weighs v2
		{types.Vec3{0.5, 0.25, 1}, types.Vec3{0, 0, -1}, 1, 0.5, 0.25},
		{types.Vec3{0.125, 0.75, 2}, types.Vec3{0, 0, -1}, 2, 0.125, 0.75},
		// approaching from the back side
		{types.Vec3{0.5, 0.25, -3}, types.Vec3{0, 0, 1}, 3, 0.5, 0.25},
		// non unit direction scales t
		{types.Vec3{0.5, 0.25, 1}, types.Vec3{0, 0, -2}, 0.5, 0.5, 0.25},
	}

	for index, s := range specs {
		ray := splatRay(Ray{Org: s.org, Dir: s.dir, Tfar: math.MaxFloat32})
		Intersect(simd.SplatB(true), &ray, &leaf)

		hit := ray.Lane(0)
		if !hit.Valid() {
			t.Fatalf("[spec %d] expected a hit", index)
		}
		if !approxEq(hit.T, s.expT, 1e-6) || !approxEq(hit.U, s.expU, 1e-6) || !approxEq(hit.V, s.expV, 1e-6) {
			t.Fatalf("[spec %d] expected t=%f, u=%f, v=%f; got t=%f, u=%f, v=%f", index, s.expT, s.expU, s.expV, hit.T, hit.U, hit.V)
		}
	}
}

func TestParallelMiss(t *testing.T) {
	leaf := mustPack(t, unitTri)
	ray := splatRay(Ray{
		Org:  types.Vec3{0.25, 0.25, 1},
		Dir:  types.Vec3{1, 0, 0},
		Tfar: math.MaxFloat32,
	})
	before := ray

	Intersect(simd.SplatB(true), &ray, &leaf)
	if diff := cmp.Diff(before, ray); diff != "" {
		t.Fatalf("expected parallel ray to leave the packet untouched; diff (-before +after):\n%s", diff)
	}

	occluded := Occluded(simd.SplatB(true), &ray, &leaf)
	if occluded.Any() {
		t.Fatalf("expected no lane to be occluded; got %v", occluded)
	}

	// A ray lying inside the triangle plane also has a zero determinant.
	ray = splatRay(Ray{
		Org:  types.Vec3{-1, 0.25, 0},
		Dir:  types.Vec3{1, 0, 0},
		Tfar: math.MaxFloat32,
	})
	if occluded = Occluded(simd.SplatB(true), &ray, &leaf); occluded.Any() {
		t.Fatalf("expected in-plane ray to miss; got %v", occluded)
	}
}

func TestOutsideTriangleMiss(t *testing.T) {
	leaf := mustPack(t, unitTri)

	origins := []types.Vec3{
		{-0.1, 0.25, 1}, // fails u
		{0.25, -0.1, 1}, // fails v
		{0.6, 0.6, 1},   // fails w
	}
	for index, org := range origins {
		ray := splatRay(Ray{Org: org, Dir: types.Vec3{0, 0, -1}, Tfar: math.MaxFloat32})
		Intersect(simd.SplatB(true), &ray, &leaf)
		if ray.HitMask().Any() {
			t.Fatalf("[spec %d] expected ray from %v to miss", index, org)
		}
	}
}

func TestDepthInterval(t *testing.T) {
	leaf := mustPack(t, unitTri)

	type spec struct {
		tnear, tfar float32
		expHit      bool
	}
	specs := []spec{
		{0, 0.5, false},
		{1.5, 10, false},
		{0, 2, true},
		// inclusive boundaries
		{1, 1, true},
		{0, 1, true},
	}

	for index, s := range specs {
		ray := splatRay(Ray{Org: types.Vec3{0.25, 0.25, 1}, Dir: types.Vec3{0, 0, -1}, Tnear: s.tnear, Tfar: s.tfar})
		occluded := Occluded(simd.SplatB(true), &ray, &leaf)
		Intersect(simd.SplatB(true), &ray, &leaf)

		if got := ray.Lane(0).Valid(); got != s.expHit {
			t.Fatalf("[spec %d] expected hit to be %t; got %t", index, s.expHit, got)
		}
		if occluded[0] != s.expHit {
			t.Fatalf("[spec %d] expected occlusion to be %t; got %t", index, s.expHit, occluded[0])
		}
	}
}

func TestNearestHitAcrossLeaf(t *testing.T) {
	near := Triangle{V0: types.Vec3{-1, -1, -1}, V1: types.Vec3{1, -1, -1}, V2: types.Vec3{0, 1, -1}, ID0: 0, ID1: 1}
	far := Triangle{V0: types.Vec3{-1, -1, -4}, V1: types.Vec3{1, -1, -4}, V2: types.Vec3{0, 1, -4}, ID0: 0, ID1: 2}

	for index, order := range [][]Triangle{{near, far}, {far, near}} {
		leaf := mustPack(t, order...)
		ray := splatRay(Ray{Org: types.Vec3{0, 0, 1}, Dir: types.Vec3{0, 0, -1}, Tfar: math.MaxFloat32})

		Intersect(simd.SplatB(true), &ray, &leaf)

		for lane := 0; lane < simd.Width; lane++ {
			hit := ray.Lane(lane)
			if hit.T != 2 {
				t.Fatalf("[order %d, lane %d] expected nearest hit at t=2; got %f", index, lane, hit.T)
			}
			if hit.ID1 != near.ID1 {
				t.Fatalf("[order %d, lane %d] expected primitive %d; got %d", index, lane, near.ID1, hit.ID1)
			}
		}
	}
}

func TestPerLaneResults(t *testing.T) {
	leaf := mustPack(t, unitTri)
	ray := NewRay4([simd.Width]Ray{
		{Org: types.Vec3{0.25, 0.25, 1}, Dir: types.Vec3{0, 0, -1}, Tfar: math.MaxFloat32},
		{Org: types.Vec3{2, 2, 1}, Dir: types.Vec3{0, 0, -1}, Tfar: math.MaxFloat32},
		{Org: types.Vec3{0.25, 0.25, 1}, Dir: types.Vec3{1, 0, 0}, Tfar: math.MaxFloat32},
		{Org: types.Vec3{0.1, 0.2, -2}, Dir: types.Vec3{0, 0, 1}, Tfar: math.MaxFloat32},
	})

	occluded := Occluded(simd.SplatB(true), &ray, &leaf)
	Intersect(simd.SplatB(true), &ray, &leaf)

	exp := simd.Bool4{true, false, false, true}
	if got := ray.HitMask(); got != exp {
		t.Fatalf("expected hit mask %v; got %v", exp, got)
	}
	if occluded != exp {
		t.Fatalf("expected occlusion mask %v; got %v", exp, occluded)
	}
	if hit := ray.Lane(3); !approxEq(hit.T, 2, 1e-6) || !approxEq(hit.U, 0.1, 1e-6) || !approxEq(hit.V, 0.2, 1e-6) {
		t.Fatalf("expected lane 3 to hit at t=2, u=0.1, v=0.2; got %+v", hit)
	}
}

func TestInactiveLanesUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	valid := simd.Bool4{true, false, true, false}

	for iter := 0; iter < 500; iter++ {
		leaf := randomLeaf(rng)
		ray := randomRay4(rng)
		// Pretend an earlier leaf recorded something in every lane.
		for lane := 0; lane < simd.Width; lane++ {
			ray.U[lane] = rng.Float32()
			ray.V[lane] = rng.Float32()
			ray.ID0[lane] = int32(rng.Intn(100))
			ray.ID1[lane] = int32(rng.Intn(100))
			ray.Ng.SetLane(lane, randomVec3(rng))
		}
		before := ray

		Intersect(valid, &ray, &leaf)

		for lane := 0; lane < simd.Width; lane++ {
			if valid[lane] {
				continue
			}
			if !bitIdentical(before.Lane(lane), ray.Lane(lane)) {
				t.Fatalf("[iter %d] expected inactive lane %d to be untouched; before %+v, after %+v", iter, lane, before.Lane(lane), ray.Lane(lane))
			}
		}
	}
}

func TestOccludedMatchesIntersect(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	hits := 0

	for iter := 0; iter < 2000; iter++ {
		leaf := randomLeaf(rng)
		ray := randomRay4(rng)
		valid := simd.Bool4{rng.Intn(4) != 0, rng.Intn(4) != 0, rng.Intn(4) != 0, rng.Intn(4) != 0}

		before := ray
		occluded := Occluded(valid, &ray, &leaf)
		if diff := cmp.Diff(before, ray); diff != "" {
			t.Fatalf("[iter %d] expected Occluded not to modify the packet; diff (-before +after):\n%s", iter, diff)
		}

		Intersect(valid, &ray, &leaf)
		hitMask := ray.HitMask().And(valid)
		if got := occluded.And(valid); got != hitMask {
			t.Fatalf("[iter %d] expected occlusion mask %v to match hit mask %v", iter, got, hitMask)
		}
		if inactive := occluded.AndNot(valid); inactive != valid.Not() {
			t.Fatalf("[iter %d] expected inactive lanes to be reported as occluded; got %v", iter, occluded)
		}
		hits += hitMask.Count()
	}

	if hits == 0 {
		t.Fatal("expected the random scenes to produce at least one hit")
	}
}

func TestOccludedWithNoActiveLanes(t *testing.T) {
	leaf := mustPack(t, unitTri)
	ray := splatRay(Ray{Org: types.Vec3{0.25, 0.25, 1}, Dir: types.Vec3{0, 0, -1}, Tfar: math.MaxFloat32})

	if got := Occluded(simd.Bool4{}, &ray, &leaf); !got.All() {
		t.Fatalf("expected all lanes to be reported as occluded; got %v", got)
	}
}

func TestIntersectIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for iter := 0; iter < 200; iter++ {
		leaf := randomLeaf(rng)
		initial := randomRay4(rng)

		first := initial
		Intersect(simd.SplatB(true), &first, &leaf)
		second := initial
		Intersect(simd.SplatB(true), &second, &leaf)

		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("[iter %d] expected identical results; diff:\n%s", iter, diff)
		}
	}
}

func TestDegenerateTriangleNeverHits(t *testing.T) {
	rng := rand.New(rand.NewSource(4))

	for iter := 0; iter < 1000; iter++ {
		v0 := randomVec3(rng)
		degenerate := []Triangle{
			{V0: v0, V1: v0, V2: randomVec3(rng), ID0: 1},
			{V0: v0, V1: randomVec3(rng), V2: v0, ID0: 2},
			{V0: v0, V1: v0, V2: v0, ID0: 3},
		}
		leaf := mustPack(t, degenerate...)

		// Aim at the degenerate geometry from a random position.
		org := randomVec3(rng).Mul(4)
		ray := splatRay(Ray{Org: org, Dir: v0.Sub(org), Tfar: math.MaxFloat32})
		ray.Dir.SetLane(1, randomVec3(rng))
		ray.Dir.SetLane(2, degenerate[0].V2.Sub(org))

		if occluded := Occluded(simd.SplatB(true), &ray, &leaf); occluded.Any() {
			t.Fatalf("[iter %d] expected degenerate triangles never to occlude; got %v", iter, occluded)
		}
		Intersect(simd.SplatB(true), &ray, &leaf)
		if ray.HitMask().Any() {
			t.Fatalf("[iter %d] expected degenerate triangles never to be hit", iter)
		}
	}
}

func TestAgreesWithScalarReference(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	checked := 0

	for iter := 0; iter < 20000; iter++ {
		tri := Triangle{V0: randomVec3(rng), V1: randomVec3(rng), V2: randomVec3(rng), ID0: 0, ID1: int32(iter)}
		ray := Ray{Org: randomVec3(rng).Mul(3), Dir: randomVec3(rng), Tnear: 0, Tfar: 100}

		ref, ok := referenceIntersect(ray, tri)
		if !ok {
			continue
		}

		leaf := mustPack(t, tri)
		packet := splatRay(ray)
		Intersect(simd.SplatB(true), &packet, &leaf)
		hit := packet.Lane(0)

		if ref.hit != hit.Valid() {
			t.Fatalf("[iter %d] expected hit to be %t; got %t (ray %+v, tri %+v)", iter, ref.hit, hit.Valid(), ray, tri)
		}
		if ref.hit {
			checked++
			if !approxEq(hit.T, float32(ref.t), 1e-3*float32(math.Max(1, ref.t))) ||
				!approxEq(hit.U, float32(ref.u), 1e-3) || !approxEq(hit.V, float32(ref.v), 1e-3) {
				t.Fatalf("[iter %d] expected t=%f, u=%f, v=%f; got t=%f, u=%f, v=%f", iter, ref.t, ref.u, ref.v, hit.T, hit.U, hit.V)
			}
		}
	}

	if checked == 0 {
		t.Fatal("expected some reference hits")
	}
}

func TestTriangle4Packing(t *testing.T) {
	_, err := NewTriangle4(make([]Triangle, simd.Width+1))
	if err != ErrTooManyTriangles {
		t.Fatalf("expected to get %v; got %v", ErrTooManyTriangles, err)
	}

	badID := unitTri
	badID.ID0 = -5
	goodID := unitTri
	goodID.ID0 = 3
	if _, err = NewTriangle4([]Triangle{badID, goodID}); err != ErrInvalidTriangleID {
		t.Fatalf("expected to get %v; got %v", ErrInvalidTriangleID, err)
	}

	tris := []Triangle{
		unitTri,
		{V0: types.Vec3{0, 0, 1}, V1: types.Vec3{2, 0, 1}, V2: types.Vec3{0, 2, 1}, ID0: 1, ID1: 3},
		{V0: types.Vec3{1, 1, 1}, V1: types.Vec3{1, 2, 1}, V2: types.Vec3{1, 1, 3}, ID0: 2, ID1: 9},
	}
	leaf := mustPack(t, tris...)

	if leaf.Size() != len(tris) {
		t.Fatalf("expected leaf size %d; got %d", len(tris), leaf.Size())
	}
	if leaf.ID0[3] != -1 || leaf.ID1[3] != -1 {
		t.Fatalf("expected unused slot to carry id -1; got (%d, %d)", leaf.ID0[3], leaf.ID1[3])
	}
	for i, tri := range tris {
		if diff := cmp.Diff(tri, leaf.Triangle(i)); diff != "" {
			t.Fatalf("[slot %d] unexpected triangle; diff:\n%s", i, diff)
		}
		expNg := tri.V1.Sub(tri.V0).Cross(tri.V2.Sub(tri.V0))
		if got := leaf.Ng.Lane(i); got != expNg {
			t.Fatalf("[slot %d] expected Ng %v; got %v", i, expNg, got)
		}
	}

	expBBox := [2]types.Vec3{{0, 0, 0}, {2, 2, 3}}
	if got := leaf.BBox(); got != expBBox {
		t.Fatalf("expected bbox %v; got %v", expBBox, got)
	}

	full := mustPack(t, tris[0], tris[1], tris[2], tris[0])
	if full.Size() != simd.Width {
		t.Fatalf("expected full leaf size %d; got %d", simd.Width, full.Size())
	}
}

func BenchmarkIntersect(b *testing.B) {
	rng := rand.New(rand.NewSource(6))
	leaf := randomLeaf(rng)
	ray := randomRay4(rng)
	valid := simd.SplatB(true)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := ray
		Intersect(valid, &r, &leaf)
	}
}

func BenchmarkOccluded(b *testing.B) {
	rng := rand.New(rand.NewSource(6))
	leaf := randomLeaf(rng)
	ray := randomRay4(rng)
	valid := simd.SplatB(true)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Occluded(valid, &ray, &leaf)
	}
}

func bitIdentical(a, b Hit) bool {
	same := func(x, y float32) bool { return math.Float32bits(x) == math.Float32bits(y) }
	return same(a.T, b.T) && same(a.U, b.U) && same(a.V, b.V) &&
		a.ID0 == b.ID0 && a.ID1 == b.ID1 &&
		same(a.Ng[0], b.Ng[0]) && same(a.Ng[1], b.Ng[1]) && same(a.Ng[2], b.Ng[2])
}

func randomVec3(rng *rand.Rand) types.Vec3 {
	return types.Vec3{rng.Float32()*4 - 2, rng.Float32()*4 - 2, rng.Float32()*4 - 2}
}

// Rays start near the origin and point at the [-1, 1] cube so that a good
// fraction of them hit the random triangles.
func randomRay4(rng *rand.Rand) Ray4 {
	var rays [simd.Width]Ray
	for i := range rays {
		org := randomVec3(rng).Mul(2)
		target := randomVec3(rng).Mul(0.5)
		rays[i] = Ray{Org: org, Dir: target.Sub(org), Tnear: 0, Tfar: math.MaxFloat32}
	}
	return NewRay4(rays)
}

func randomLeaf(rng *rand.Rand) Triangle4 {
	tris := make([]Triangle, 1+rng.Intn(simd.Width))
	for i := range tris {
		tris[i] = Triangle{V0: randomVec3(rng), V1: randomVec3(rng), V2: randomVec3(rng), ID0: 0, ID1: int32(i)}
	}
	leaf, _ := NewTriangle4(tris)
	return leaf
}

type referenceHit struct {
	hit     bool
	t, u, v float64
}

// A textbook scalar Moeller-Trumbore test in float64. The second return value
// is false if the configuration is too close to a decision boundary for a
// float32 kernel to be expected to agree.
func referenceIntersect(ray Ray, tri Triangle) (referenceHit, bool) {
	v := func(a types.Vec3) [3]float64 { return [3]float64{float64(a[0]), float64(a[1]), float64(a[2])} }
	sub := func(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
	dot := func(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
	cross := func(a, b [3]float64) [3]float64 {
		return [3]float64{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
	}

	org, dir := v(ray.Org), v(ray.Dir)
	v0, v1, v2 := v(tri.V0), v(tri.V1), v(tri.V2)
	e1, e2 := sub(v1, v0), sub(v2, v0)

	h := cross(dir, e2)
	a := dot(e1, h)
	if math.Abs(a) < 0.5 {
		return referenceHit{}, false
	}
	f := 1 / a
	s := sub(org, v0)
	u := f * dot(s, h)
	q := cross(s, e1)
	bv := f * dot(dir, q)
	t := f * dot(e2, q)

	const margin = 1e-3
	w := 1 - u - bv
	if math.Abs(u) < margin || math.Abs(bv) < margin || math.Abs(w) < margin ||
		math.Abs(t-float64(ray.Tnear)) < margin || math.Abs(t-float64(ray.Tfar)) < margin {
		return referenceHit{}, false
	}

	hit := u > 0 && bv > 0 && w > 0 && t > float64(ray.Tnear) && t < float64(ray.Tfar)
	return referenceHit{hit: hit, t: t, u: u, v: bv}, true
}
