package simd

import "github.com/achilleasa/lanetrace/types"

// A packet of 3 component vectors stored as one lane-vector per component.
type Vec3f4 struct {
	X, Y, Z Float4
}

// Broadcast a scalar vector to all lanes.
func SplatV(v types.Vec3) Vec3f4 {
	return Vec3f4{SplatF(v[0]), SplatF(v[1]), SplatF(v[2])}
}

// Add a vector packet.
func (a Vec3f4) Add(b Vec3f4) Vec3f4 {
	return Vec3f4{a.X.Add(b.X), a.Y.Add(b.Y), a.Z.Add(b.Z)}
}

// Subtract a vector packet.
func (a Vec3f4) Sub(b Vec3f4) Vec3f4 {
	return Vec3f4{a.X.Sub(b.X), a.Y.Sub(b.Y), a.Z.Sub(b.Z)}
}

// Scale each lane by the matching lane of s.
func (a Vec3f4) Mul(s Float4) Vec3f4 {
	return Vec3f4{a.X.Mul(s), a.Y.Mul(s), a.Z.Mul(s)}
}

// Calculate lane-wise dot product.
func (a Vec3f4) Dot(b Vec3f4) Float4 {
	return a.X.Mul(b.X).Add(a.Y.Mul(b.Y)).Add(a.Z.Mul(b.Z))
}

// Calculate lane-wise cross product.
func (a Vec3f4) Cross(b Vec3f4) Vec3f4 {
	return Vec3f4{
		a.Y.Mul(b.Z).Sub(a.Z.Mul(b.Y)),
		a.Z.Mul(b.X).Sub(a.X.Mul(b.Z)),
		a.X.Mul(b.Y).Sub(a.Y.Mul(b.X)),
	}
}

// Extract a single lane.
func (a Vec3f4) Lane(i int) types.Vec3 {
	return types.Vec3{a.X[i], a.Y[i], a.Z[i]}
}

// Overwrite a single lane.
func (a *Vec3f4) SetLane(i int, v types.Vec3) {
	a.X[i], a.Y[i], a.Z[i] = v[0], v[1], v[2]
}

// Pick lanes from a where mask is set and from b otherwise.
func SelectV(mask Bool4, a, b Vec3f4) Vec3f4 {
	return Vec3f4{SelectF(mask, a.X, b.X), SelectF(mask, a.Y, b.Y), SelectF(mask, a.Z, b.Z)}
}
