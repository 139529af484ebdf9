package scene

import (
	"math"

	"github.com/achilleasa/lanetrace/geometry"
	"github.com/achilleasa/lanetrace/simd"
)

// The traversal stack grows past this depth only for degenerate trees.
const traversalStackSize = 64

var (
	posInf = simd.SplatF(float32(math.Inf(1)))
	negInf = simd.SplatF(float32(math.Inf(-1)))
)

// Traversal statistics. Counters are owned by the caller and are never shared
// between goroutines.
type Counters struct {
	// Number of packet/node box tests.
	NodeVisits uint64

	// Number of packet/Triangle4 tests and the active lanes summed over them.
	LeafTests   uint64
	ActiveLanes uint64
}

// Merge counters.
func (c *Counters) Add(other Counters) {
	c.NodeVisits += other.NodeVisits
	c.LeafTests += other.LeafTests
	c.ActiveLanes += other.ActiveLanes
}

// Get the average fraction of lanes that were active during leaf tests.
func (c *Counters) LaneUtilization() float32 {
	if c.LeafTests == 0 {
		return 0
	}
	return float32(c.ActiveLanes) / float32(c.LeafTests*simd.Width)
}

// Find the nearest hit for the lanes of ray selected by valid. The hit record
// of ray is updated in place; lanes outside valid are not modified. If
// counters is not nil it accumulates traversal statistics.
func (sc *Scene) Intersect(valid simd.Bool4, ray *geometry.Ray4, counters *Counters) {
	if len(sc.BvhNodeList) == 0 || valid.None() {
		return
	}

	var local Counters
	rcpDir := rcp(ray.Dir)

	var stackBuf [traversalStackSize]uint32
	stack := append(stackBuf[:0], 0)
	for len(stack) > 0 {
		node := &sc.BvhNodeList[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		local.NodeVisits++
		active := valid.And(node.hit(ray, rcpDir))
		if active.None() {
			continue
		}

		if !node.IsLeaf() {
			left, right := node.GetChildNodes()
			stack = append(stack, right, left)
			continue
		}

		first, count := node.GetPrimitives()
		for index := first; index < first+count; index++ {
			local.LeafTests++
			local.ActiveLanes += uint64(active.Count())
			geometry.Intersect(active, ray, &sc.Triangles[index])
		}
	}

	if counters != nil {
		counters.Add(local)
	}
}

// Check whether the lanes of ray selected by valid are blocked by any scene
// primitive within [Tnear, Tfar]. Lanes outside valid are reported as
// occluded. Traversal stops as soon as every lane is occluded.
func (sc *Scene) Occluded(valid simd.Bool4, ray *geometry.Ray4, counters *Counters) simd.Bool4 {
	occluded := valid.Not()
	if len(sc.BvhNodeList) == 0 || occluded.All() {
		return occluded
	}

	var local Counters
	rcpDir := rcp(ray.Dir)

	var stackBuf [traversalStackSize]uint32
	stack := append(stackBuf[:0], 0)
	for len(stack) > 0 && !occluded.All() {
		node := &sc.BvhNodeList[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		local.NodeVisits++
		active := valid.AndNot(occluded).And(node.hit(ray, rcpDir))
		if active.None() {
			continue
		}

		if !node.IsLeaf() {
			left, right := node.GetChildNodes()
			stack = append(stack, right, left)
			continue
		}

		first, count := node.GetPrimitives()
		for index := first; index < first+count && active.Any(); index++ {
			local.LeafTests++
			local.ActiveLanes += uint64(active.Count())
			blocked := geometry.Occluded(active, ray, &sc.Triangles[index]).And(active)
			occluded = occluded.Or(blocked)
			active = active.AndNot(blocked)
		}
	}

	if counters != nil {
		counters.Add(local)
	}
	return occluded
}

// Slab test of all lanes against the node bbox, clipped to the current
// [Tnear, Tfar] interval of each lane.
func (n *BvhNode) hit(ray *geometry.Ray4, rcpDir [3]simd.Float4) simd.Bool4 {
	org := [3]simd.Float4{ray.Org.X, ray.Org.Y, ray.Org.Z}
	tmin, tmax := ray.Tnear, ray.Tfar
	for axis := 0; axis < 3; axis++ {
		lo, hi := simd.SplatF(n.Min[axis]), simd.SplatF(n.Max[axis])
		t0 := lo.Sub(org[axis]).Mul(rcpDir[axis])
		t1 := hi.Sub(org[axis]).Mul(rcpDir[axis])
		near, far := t0.Min(t1), t0.Max(t1)

		// Lanes parallel to the slab either span it entirely or miss it.
		// Both faces of the slab count as inside.
		parallel := rcpDir[axis].Abs().Eq(posInf)
		inside := org[axis].Ge(lo).And(org[axis].Le(hi))
		near = simd.SelectF(parallel, simd.SelectF(inside, negInf, posInf), near)
		far = simd.SelectF(parallel, simd.SelectF(inside, posInf, negInf), far)

		tmin = tmin.Max(near)
		tmax = tmax.Min(far)
	}
	return tmin.Le(tmax)
}

func rcp(dir simd.Vec3f4) [3]simd.Float4 {
	return [3]simd.Float4{dir.X.Rcp(), dir.Y.Rcp(), dir.Z.Rcp()}
}
