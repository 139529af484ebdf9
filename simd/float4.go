// Package simd provides a small fixed-width lane abstraction that the packet
// kernels are written against. Every type holds Width lanes and every
// operation is applied lane-wise; on targets without vector units the
// compiler emits an unrolled scalar loop with identical semantics.
package simd

import "math"

// The number of lanes in a packet.
const Width = 4

const signBit uint32 = 1 << 31

// A packet of float32 lanes.
type Float4 [Width]float32

// Broadcast a scalar to all lanes.
func SplatF(s float32) Float4 {
	return Float4{s, s, s, s}
}

// Add a packet.
func (a Float4) Add(b Float4) Float4 {
	return Float4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

// Subtract a packet.
func (a Float4) Sub(b Float4) Float4 {
	return Float4{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

// Multiply with a packet.
func (a Float4) Mul(b Float4) Float4 {
	return Float4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

// Negate all lanes.
func (a Float4) Neg() Float4 {
	return Float4{-a[0], -a[1], -a[2], -a[3]}
}

// Clear the sign bit of all lanes.
func (a Float4) Abs() Float4 {
	var out Float4
	for i := range a {
		out[i] = math.Float32frombits(math.Float32bits(a[i]) &^ signBit)
	}
	return out
}

// Calculate the reciprocal of all lanes.
func (a Float4) Rcp() Float4 {
	return Float4{1 / a[0], 1 / a[1], 1 / a[2], 1 / a[3]}
}

// Flip the sign of each lane whose counterpart in s has its sign bit set.
// This is equivalent to multiplying by sign(s) without a multiply or branch;
// a lane with s == -0 is also flipped.
func (a Float4) XorSign(s Float4) Float4 {
	var out Float4
	for i := range a {
		out[i] = math.Float32frombits(math.Float32bits(a[i]) ^ (math.Float32bits(s[i]) & signBit))
	}
	return out
}

// Lane-wise minimum.
func (a Float4) Min(b Float4) Float4 {
	out := a
	for i := range b {
		if b[i] < out[i] {
			out[i] = b[i]
		}
	}
	return out
}

// Lane-wise maximum.
func (a Float4) Max(b Float4) Float4 {
	out := a
	for i := range b {
		if b[i] > out[i] {
			out[i] = b[i]
		}
	}
	return out
}

// Compare for equality.
func (a Float4) Eq(b Float4) Bool4 {
	return Bool4{a[0] == b[0], a[1] == b[1], a[2] == b[2], a[3] == b[3]}
}

// Compare for inequality.
func (a Float4) Ne(b Float4) Bool4 {
	return Bool4{a[0] != b[0], a[1] != b[1], a[2] != b[2], a[3] != b[3]}
}

// Compare lanes for a < b.
func (a Float4) Lt(b Float4) Bool4 {
	return Bool4{a[0] < b[0], a[1] < b[1], a[2] < b[2], a[3] < b[3]}
}

// Compare lanes for a <= b.
func (a Float4) Le(b Float4) Bool4 {
	return Bool4{a[0] <= b[0], a[1] <= b[1], a[2] <= b[2], a[3] <= b[3]}
}

// Compare lanes for a > b.
func (a Float4) Gt(b Float4) Bool4 {
	return Bool4{a[0] > b[0], a[1] > b[1], a[2] > b[2], a[3] > b[3]}
}

// Compare lanes for a >= b.
func (a Float4) Ge(b Float4) Bool4 {
	return Bool4{a[0] >= b[0], a[1] >= b[1], a[2] >= b[2], a[3] >= b[3]}
}

// Pick lanes from a where mask is set and from b otherwise.
func SelectF(mask Bool4, a, b Float4) Float4 {
	out := b
	for i := range mask {
		if mask[i] {
			out[i] = a[i]
		}
	}
	return out
}
