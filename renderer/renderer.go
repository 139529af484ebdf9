package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"runtime"
	"time"

	"github.com/achilleasa/lanetrace/asset/scene"
	"github.com/achilleasa/lanetrace/log"
	"github.com/achilleasa/lanetrace/tracer"
	"github.com/achilleasa/lanetrace/tracer/cpu"
	"golang.org/x/sync/errgroup"
)

type Renderer interface {
	// Render frame.
	Render(ctx context.Context) error

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics for the last frame.
	Stats() FrameStats

	// Get the last rendered frame.
	Frame() *image.RGBA
}

type defaultRenderer struct {
	logger log.Logger

	// The scene being rendered.
	sc *scene.Scene

	// Attached tracers and the scheduler that splits frames between them.
	tracers          []tracer.Tracer
	scheduler        tracer.BlockScheduler
	blockAssignments []uint32

	// The frame buffer shared by all tracers. Each tracer only writes to
	// the rows of its assigned block.
	frame *image.RGBA

	options Options
	stats   FrameStats
}

// Create a renderer that splits frames between opts.Workers cpu tracers.
func NewDefault(sc *scene.Scene, scheduler tracer.BlockScheduler, opts Options) (Renderer, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	tracers := make([]tracer.Tracer, workers)
	for index := range tracers {
		tracers[index] = cpu.NewTracer(
			fmt.Sprintf("cpu-%d", index),
			sc,
			cpu.Options{Mode: opts.Mode, LightDir: opts.LightDir},
		)
	}

	return New(sc, scheduler, tracers, opts)
}

// Create a renderer that uses the supplied tracers. The renderer takes
// ownership of the tracers and closes them when it is closed.
func New(sc *scene.Scene, scheduler tracer.BlockScheduler, tracers []tracer.Tracer, opts Options) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return nil, ErrInvalidFrameSize
	}
	if len(tracers) == 0 {
		return nil, ErrNoTracers
	}

	r := &defaultRenderer{
		logger:    log.New("renderer"),
		sc:        sc,
		tracers:   tracers,
		scheduler: scheduler,
		frame:     image.NewRGBA(image.Rect(0, 0, int(opts.FrameW), int(opts.FrameH))),
		options:   opts,
	}

	// Update projection for the frame aspect ratio
	sc.Camera.SetupProjection(float32(opts.FrameW) / float32(opts.FrameH))

	for _, tr := range tracers {
		if err := tr.Setup(opts.FrameW, opts.FrameH, r.frame.Pix); err != nil {
			r.Close()
			return nil, fmt.Errorf("renderer: could not setup tracer %s: %w", tr.Id(), err)
		}
	}

	r.logger.Infof("attached %d tracers for %dx%d frame (%s mode)", len(tracers), opts.FrameW, opts.FrameH, opts.Mode)
	return r, nil
}

// Shutdown renderer and any attached tracer.
func (r *defaultRenderer) Close() {
	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Get render statistics for the last frame.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}

// Get the last rendered frame.
func (r *defaultRenderer) Frame() *image.RGBA {
	return r.frame
}

// Render a frame by splitting it into blocks and tracing each block in its
// own goroutine.
func (r *defaultRenderer) Render(ctx context.Context) error {
	if len(r.tracers) == 0 {
		return ErrNoTracers
	}

	start := time.Now()
	r.blockAssignments = append(r.blockAssignments[:0], r.scheduler.Schedule(r.tracers, r.options.FrameH)...)

	group, groupCtx := errgroup.WithContext(ctx)
	var blockY uint32 = 0
	for index, tr := range r.tracers {
		req := tracer.BlockRequest{BlockY: blockY, BlockH: r.blockAssignments[index]}
		blockY += req.BlockH
		if req.BlockH == 0 {
			*tr.Stats() = tracer.Stats{}
			continue
		}

		tr := tr
		group.Go(func() error {
			return tr.Trace(groupCtx, req)
		})
	}

	if err := group.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ErrInterrupted
		}
		return err
	}

	r.collectStats(time.Since(start))
	return nil
}

// Collect per-tracer statistics for the last frame.
func (r *defaultRenderer) collectStats(renderTime time.Duration) {
	r.stats = FrameStats{
		Tracers:    make([]TracerStat, len(r.tracers)),
		RenderTime: renderTime,
	}

	for index, tr := range r.tracers {
		trStats := tr.Stats()
		r.stats.Tracers[index] = TracerStat{
			Id:           tr.Id(),
			BlockH:       r.blockAssignments[index],
			FramePercent: 100 * float32(r.blockAssignments[index]) / float32(r.options.FrameH),
			RenderTime:   time.Duration(trStats.BlockTime),
			Rays:         trStats.Rays,
			Counters:     trStats.Counters,
		}
		r.stats.Rays += trStats.Rays
		r.stats.Counters.Add(trStats.Counters)
	}

	r.logger.Debugf("rendered frame in %s (%d rays)", renderTime, r.stats.Rays)
}

// Encode the last rendered frame as a PNG file.
func SavePNG(r Renderer, imgFile string) error {
	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}

	if err = png.Encode(f, r.Frame()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
