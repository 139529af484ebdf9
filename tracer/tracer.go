package tracer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/achilleasa/lanetrace/asset/scene"
)

var (
	ErrInvalidFrameBuffer = errors.New("tracer: frame buffer size does not match frame dimensions")
	ErrCameraNotDefined   = errors.New("tracer: scene does not define a camera")
	ErrNotSetup           = errors.New("tracer: Trace called before Setup")
	ErrInvalidBlock       = errors.New("tracer: block request exceeds frame height")
)

// The output of a tracer.
type Mode uint8

const (
	// Grayscale distance to the nearest hit.
	Depth Mode = iota

	// Geometric normal of the nearest hit mapped to RGB.
	Normals

	// Barycentric coordinates of the nearest hit mapped to RGB.
	Barycentric

	// Lambert shading from a directional light with hard shadows.
	Shaded
)

var modeNames = []string{"depth", "normals", "barycentric", "shaded"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", m)
}

// Parse a mode name.
func ParseMode(name string) (Mode, error) {
	for index, modeName := range modeNames {
		if strings.EqualFold(name, modeName) {
			return Mode(index), nil
		}
	}
	return Depth, fmt.Errorf("tracer: unknown mode %q; supported modes: %s", name, strings.Join(modeNames, ", "))
}

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// Block start row and height.
	BlockY uint32
	BlockH uint32
}

// Tracer statistics.
type Stats struct {
	// The rendered block height
	BlockH uint32

	// The time for rendering this block (in nanoseconds)
	BlockTime int64

	// Number of primary and shadow rays traced.
	Rays uint64

	// Accumulated BVH traversal statistics.
	Counters scene.Counters
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Shutdown and cleanup tracer.
	Close()

	// Get the tracers computation speed estimate compared to a
	// baseline (cpu) implementation.
	SpeedEstimate() float32

	// Setup the tracer. Rendered pixels are written to frameBuffer as
	// RGBA8 values in row-major order.
	Setup(frameW, frameH uint32, frameBuffer []uint8) error

	// Render the rows of the requested block. Tracing stops early if ctx
	// is cancelled.
	Trace(ctx context.Context, req BlockRequest) error

	// Retrieve last block statistics.
	Stats() *Stats
}
