// Package cpu implements a tracer that renders frame blocks on the CPU by
// tracing 2x2 pixel quads as simd.Width-wide ray packets.
package cpu

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/achilleasa/lanetrace/asset/scene"
	"github.com/achilleasa/lanetrace/geometry"
	"github.com/achilleasa/lanetrace/log"
	"github.com/achilleasa/lanetrace/simd"
	"github.com/achilleasa/lanetrace/tracer"
	"github.com/achilleasa/lanetrace/types"
)

const (
	// Constant light term for Shaded mode.
	ambient float32 = 0.15

	// Bytes per frame buffer pixel.
	bytesPerPixel = 4
)

var (
	// Pixel offsets of each packet lane within a quad.
	laneOffsetX = [simd.Width]uint32{0, 1, 0, 1}
	laneOffsetY = [simd.Width]uint32{0, 0, 1, 1}

	// Base colors for Shaded mode, indexed by mesh.
	palette = []types.Vec3{
		{0.85, 0.85, 0.85},
		{0.90, 0.45, 0.35},
		{0.40, 0.70, 0.45},
		{0.35, 0.55, 0.90},
		{0.90, 0.80, 0.35},
		{0.70, 0.45, 0.85},
	}
)

// Tracer options.
type Options struct {
	Mode tracer.Mode

	// Direction towards the light source used by Shaded mode. A zero
	// vector selects the default light direction.
	LightDir types.Vec3
}

type cpuTracer struct {
	logger log.Logger

	// The tracer id.
	id string

	sc   *scene.Scene
	mode tracer.Mode

	// Normalized direction towards the light.
	lightDir types.Vec3

	// Frame dims and output buffer.
	frameW, frameH uint32
	frameBuffer    []uint8

	// Distance mapped to black in Depth mode.
	depthScale float32

	// Offset applied to shadow ray origins along the surface normal.
	shadowEps float32

	// Statistics for the last traced block.
	stats *tracer.Stats
}

// Create a new cpu tracer for a compiled scene. The scene camera must be set
// up for the frame aspect ratio before blocks are traced.
func NewTracer(id string, sc *scene.Scene, opts Options) tracer.Tracer {
	lightDir := opts.LightDir
	if lightDir.Len() == 0 {
		lightDir = types.Vec3{0.5, 1, 0.75}
	}

	return &cpuTracer{
		logger:   log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:       id,
		sc:       sc,
		mode:     opts.Mode,
		lightDir: lightDir.Normalize(),
		stats:    &tracer.Stats{},
	}
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// All cpu tracers share the same baseline speed.
func (tr *cpuTracer) SpeedEstimate() float32 {
	return 1.0
}

// Retrieve last block statistics.
func (tr *cpuTracer) Stats() *tracer.Stats {
	return tr.stats
}

// Shutdown and cleanup tracer.
func (tr *cpuTracer) Close() {
	tr.frameBuffer = nil
	tr.logger.Debug("closed tracer")
}

// Setup the tracer.
func (tr *cpuTracer) Setup(frameW, frameH uint32, frameBuffer []uint8) error {
	if tr.sc.Camera == nil {
		return tracer.ErrCameraNotDefined
	}
	if len(frameBuffer) != int(frameW)*int(frameH)*bytesPerPixel {
		return tracer.ErrInvalidFrameBuffer
	}

	tr.frameW, tr.frameH = frameW, frameH
	tr.frameBuffer = frameBuffer

	bbox := tr.sc.BBox()
	extent := bbox[1].Sub(bbox[0]).Len()
	center := bbox[0].Add(bbox[1]).Mul(0.5)
	tr.depthScale = tr.sc.Camera.Eye.Sub(center).Len() + 0.5*extent
	if tr.depthScale <= 0 {
		tr.depthScale = 1
	}
	tr.shadowEps = float32(math.Max(float64(extent)*1e-4, 1e-5))

	tr.logger.Debugf("setup for %dx%d frame in %s mode", frameW, frameH, tr.mode)
	return nil
}

// Render the rows of the requested block.
func (tr *cpuTracer) Trace(ctx context.Context, req tracer.BlockRequest) error {
	if tr.frameBuffer == nil {
		return tracer.ErrNotSetup
	}
	blockEnd := req.BlockY + req.BlockH
	if blockEnd > tr.frameH {
		return tracer.ErrInvalidBlock
	}

	start := time.Now()
	stats := tracer.Stats{BlockH: req.BlockH}
	for y := req.BlockY; y < blockEnd; y += 2 {
		if err := ctx.Err(); err != nil {
			return err
		}

		for x := uint32(0); x < tr.frameW; x += 2 {
			tr.traceQuad(x, y, blockEnd, &stats)
		}
	}

	stats.BlockTime = time.Since(start).Nanoseconds()
	*tr.stats = stats
	return nil
}

// Trace the quad whose top-left pixel is (x, y). Lanes that fall outside the
// frame or past blockEnd are masked off.
func (tr *cpuTracer) traceQuad(x, y, blockEnd uint32, stats *tracer.Stats) {
	var points [simd.Width]types.Vec2
	var valid simd.Bool4
	for lane := range points {
		px, py := x+laneOffsetX[lane], y+laneOffsetY[lane]
		valid[lane] = px < tr.frameW && py < blockEnd
		points[lane] = types.Vec2{
			(float32(px) + 0.5) / float32(tr.frameW),
			(float32(py) + 0.5) / float32(tr.frameH),
		}
	}

	packet := tr.sc.Camera.Ray4(points)
	tr.sc.Intersect(valid, &packet, &stats.Counters)
	stats.Rays += uint64(valid.Count())

	hitMask := valid.And(packet.HitMask())
	lit := hitMask
	if tr.mode == tracer.Shaded && hitMask.Any() {
		lit = tr.lightMask(hitMask, &packet, stats)
	}

	for lane := 0; lane < simd.Width; lane++ {
		if !valid[lane] {
			continue
		}
		color := tr.shade(packet.Ray(lane).Dir, packet.Lane(lane), lit[lane])
		tr.writePixel(x+laneOffsetX[lane], y+laneOffsetY[lane], color)
	}
}

// Get the mask of hit lanes that face the light and have an unobstructed
// path to it.
func (tr *cpuTracer) lightMask(hitMask simd.Bool4, primary *geometry.Ray4, stats *tracer.Stats) simd.Bool4 {
	var rays [simd.Width]geometry.Ray
	var facing simd.Bool4
	for lane := 0; lane < simd.Width; lane++ {
		if !hitMask[lane] {
			continue
		}

		ray := primary.Ray(lane)
		hit := primary.Lane(lane)
		n := faceForward(hit.Ng, ray.Dir)
		if n.Dot(tr.lightDir) <= 0 {
			continue
		}

		facing[lane] = true
		rays[lane] = geometry.Ray{
			Org:  ray.Org.Add(ray.Dir.Mul(hit.T)).Add(n.Mul(tr.shadowEps)),
			Dir:  tr.lightDir,
			Tfar: math.MaxFloat32,
		}
	}

	if facing.None() {
		return facing
	}

	shadow := geometry.NewRay4(rays)
	occluded := tr.sc.Occluded(facing, &shadow, &stats.Counters)
	stats.Rays += uint64(facing.Count())
	return facing.AndNot(occluded)
}

// Map a hit record to a color according to the tracer mode.
func (tr *cpuTracer) shade(dir types.Vec3, hit geometry.Hit, lit bool) types.Vec3 {
	if !hit.Valid() {
		return types.Vec3{}
	}

	switch tr.mode {
	case tracer.Depth:
		v := 1 - clamp(hit.T*dir.Len()/tr.depthScale)
		return types.Vec3{v, v, v}
	case tracer.Normals:
		return hit.Ng.Normalize().Mul(0.5).Add(types.Vec3{0.5, 0.5, 0.5})
	case tracer.Barycentric:
		return types.Vec3{1 - hit.U - hit.V, hit.U, hit.V}
	}

	intensity := ambient
	if lit {
		n := faceForward(hit.Ng, dir)
		intensity += (1 - ambient) * n.Dot(tr.lightDir)
	}
	return palette[int(hit.ID0)%len(palette)].Mul(intensity)
}

func (tr *cpuTracer) writePixel(x, y uint32, color types.Vec3) {
	offset := (int(y)*int(tr.frameW) + int(x)) * bytesPerPixel
	tr.frameBuffer[offset] = toByte(color[0])
	tr.frameBuffer[offset+1] = toByte(color[1])
	tr.frameBuffer[offset+2] = toByte(color[2])
	tr.frameBuffer[offset+3] = 255
}

// Normalize ng and flip it so that it faces against dir.
func faceForward(ng, dir types.Vec3) types.Vec3 {
	n := ng.Normalize()
	if n.Dot(dir) > 0 {
		return n.Mul(-1)
	}
	return n
}

func clamp(v float32) float32 {
	if v < 0 {
		return 0
	} else if v > 1 {
		return 1
	}
	return v
}

func toByte(v float32) uint8 {
	return uint8(clamp(v)*255 + 0.5)
}
