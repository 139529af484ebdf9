package renderer

import (
	"github.com/achilleasa/lanetrace/tracer"
	"github.com/achilleasa/lanetrace/types"
)

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Tracer output mode.
	Mode tracer.Mode

	// Direction towards the light for tracer.Shaded.
	LightDir types.Vec3

	// Number of cpu tracers. Values <= 0 select one tracer per CPU.
	Workers int
}
