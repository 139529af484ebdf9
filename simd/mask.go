package simd

// A per-lane boolean mask.
type Bool4 [Width]bool

// A mask with all lanes set to v.
func SplatB(v bool) Bool4 {
	return Bool4{v, v, v, v}
}

// Keep the lanes set in both masks.
func (m Bool4) And(o Bool4) Bool4 {
	return Bool4{m[0] && o[0], m[1] && o[1], m[2] && o[2], m[3] && o[3]}
}

// Set the lanes set in either mask.
func (m Bool4) Or(o Bool4) Bool4 {
	return Bool4{m[0] || o[0], m[1] || o[1], m[2] || o[2], m[3] || o[3]}
}

// Clear the lanes of m that are set in o.
func (m Bool4) AndNot(o Bool4) Bool4 {
	return Bool4{m[0] && !o[0], m[1] && !o[1], m[2] && !o[2], m[3] && !o[3]}
}

// Invert all lanes.
func (m Bool4) Not() Bool4 {
	return Bool4{!m[0], !m[1], !m[2], !m[3]}
}

// Returns true if at least one lane is set.
func (m Bool4) Any() bool {
	return m[0] || m[1] || m[2] || m[3]
}

// Returns true if no lane is set.
func (m Bool4) None() bool {
	return !m.Any()
}

// Returns true if every lane is set.
func (m Bool4) All() bool {
	return m[0] && m[1] && m[2] && m[3]
}

// Count set lanes.
func (m Bool4) Count() int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

// A packet of int32 lanes.
type Int4 [Width]int32

// Broadcast a scalar to all lanes.
func SplatI(s int32) Int4 {
	return Int4{s, s, s, s}
}

// Compare for equality.
func (a Int4) Eq(b Int4) Bool4 {
	return Bool4{a[0] == b[0], a[1] == b[1], a[2] == b[2], a[3] == b[3]}
}

// Pick lanes from a where mask is set and from b otherwise.
func SelectI(mask Bool4, a, b Int4) Int4 {
	out := b
	for i := range mask {
		if mask[i] {
			out[i] = a[i]
		}
	}
	return out
}
