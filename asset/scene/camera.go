package scene

import (
	"fmt"
	"math"

	"github.com/achilleasa/lanetrace/geometry"
	"github.com/achilleasa/lanetrace/simd"
	"github.com/achilleasa/lanetrace/types"
)

// Stores the ray directions at the four corners of the camera frustrum in
// TL, TR, BL, BR order. Per pixel rays are generated by interpolating the
// corner rays.
type Frustrum [4]types.Vec3

func (fr Frustrum) String() string {
	return fmt.Sprintf(
		"Frustrum Rays:\nTL : %v\nTR : %v\nBL : %v\nBR : %v",
		fr[0], fr[1], fr[2], fr[3],
	)
}

// The camera type controls the scene camera.
type Camera struct {
	Eye  types.Vec3
	Look types.Vec3
	Up   types.Vec3

	// Rotation angles (in radians) applied to the view direction by Update.
	Pitch float32
	Yaw   float32

	// Vertical field of view in degrees.
	FOV float32

	Frustrum Frustrum
}

func NewCamera(fov float32) *Camera {
	return &Camera{
		Eye:  types.Vec3{0, 0, 0},
		Look: types.Vec3{0, 0, -1},
		Up:   types.Vec3{0, 1, 0},
		FOV:  fov,
	}
}

// Setup camera frustrum for the given aspect ratio (width / height).
func (c *Camera) SetupProjection(aspect float32) {
	c.Update()

	dir := c.Look.Sub(c.Eye).Normalize()
	right := dir.Cross(c.Up).Normalize()
	up := right.Cross(dir)

	halfH := float32(math.Tan(float64(c.FOV) * math.Pi / 360.0))
	halfW := halfH * aspect
	right = right.Mul(halfW)
	up = up.Mul(halfH)

	c.Frustrum[0] = dir.Sub(right).Add(up)
	c.Frustrum[1] = dir.Add(right).Add(up)
	c.Frustrum[2] = dir.Sub(right).Sub(up)
	c.Frustrum[3] = dir.Add(right).Sub(up)
}

// Apply pending pitch/yaw rotations to the look-at point.
func (c *Camera) Update() {
	if c.Pitch == 0 && c.Yaw == 0 {
		return
	}

	dir := c.Look.Sub(c.Eye)
	pitchAxis := dir.Cross(c.Up)
	pitchQuat := types.QuatFromAxisAngle(pitchAxis, c.Pitch)
	yawQuat := types.QuatFromAxisAngle(c.Up, c.Yaw)
	orientQuat := pitchQuat.Mul(yawQuat).Normalize()

	c.Look = c.Eye.Add(orientQuat.Rotate(dir))
	c.Pitch, c.Yaw = 0, 0
}

// Generate a primary ray for a point on the image plane. The s and t
// coordinates are in [0, 1] with (0, 0) mapping to the top-left corner.
func (c *Camera) Ray(s, t float32) geometry.Ray {
	top := types.Lerp(c.Frustrum[0], c.Frustrum[1], s)
	bottom := types.Lerp(c.Frustrum[2], c.Frustrum[3], s)
	return geometry.Ray{
		Org:   c.Eye,
		Dir:   types.Lerp(top, bottom, t),
		Tnear: 0,
		Tfar:  math.MaxFloat32,
	}
}

// Generate a ray packet for a set of image plane points.
func (c *Camera) Ray4(points [simd.Width]types.Vec2) geometry.Ray4 {
	var rays [simd.Width]geometry.Ray
	for i, p := range points {
		rays[i] = c.Ray(p[0], p[1])
	}
	return geometry.NewRay4(rays)
}
