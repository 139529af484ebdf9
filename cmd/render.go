package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/lanetrace/asset/scene"
	"github.com/achilleasa/lanetrace/asset/scene/reader"
	"github.com/achilleasa/lanetrace/renderer"
	"github.com/achilleasa/lanetrace/tracer"
	"github.com/achilleasa/lanetrace/types"
	"github.com/urfave/cli"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts, err := rendererOptions(ctx)
	if err != nil {
		return err
	}

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	r, err := renderer.NewDefault(sc, tracer.NewPerfectScheduler(), opts)
	if err != nil {
		return err
	}
	defer r.Close()

	renderCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Noticef("rendering %dx%d frame (%s mode)", opts.FrameW, opts.FrameH, opts.Mode)
	if err = r.Render(renderCtx); err != nil {
		return err
	}

	// Display stats
	displayFrameStats(r.Stats())

	imgFile := ctx.String("out")
	start := time.Now()
	if err = renderer.SavePNG(r, imgFile); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s in %d ms", imgFile, time.Since(start).Nanoseconds()/1e6)

	return nil
}

// Render a sequence of frames and report aggregated traversal statistics.
func Bench(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts, err := rendererOptions(ctx)
	if err != nil {
		return err
	}

	frames := ctx.Int("frames")
	if frames <= 0 {
		return errors.New("frame count must be positive")
	}

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	r, err := renderer.NewDefault(sc, tracer.NewPerfectScheduler(), opts)
	if err != nil {
		return err
	}
	defer r.Close()

	benchCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Noticef("rendering %d %dx%d frames (%s mode)", frames, opts.FrameW, opts.FrameH, opts.Mode)
	var total renderer.FrameStats
	for frame := 0; frame < frames; frame++ {
		if err = r.Render(benchCtx); err != nil {
			return err
		}
		total.Add(r.Stats())
	}

	displayFrameStats(total)
	logger.Noticef(
		"%d frames, %.2f Mrays/s, %.1f ms/frame, %3.1f%% lane utilization",
		frames,
		total.RaysPerSecond()/1e6,
		float64(total.RenderTime.Nanoseconds())/1e6/float64(frames),
		100*total.Counters.LaneUtilization(),
	)

	return nil
}

func loadScene(ctx *cli.Context) (*scene.Scene, error) {
	if ctx.NArg() != 1 {
		return nil, errors.New("missing scene file argument")
	}

	return reader.ReadScene(ctx.Args().First())
}

// Build renderer options from command flags.
func rendererOptions(ctx *cli.Context) (renderer.Options, error) {
	opts := renderer.Options{
		FrameW:  uint32(ctx.Int("width")),
		FrameH:  uint32(ctx.Int("height")),
		Workers: ctx.Int("workers"),
	}

	if ctx.Int("width") <= 0 || ctx.Int("height") <= 0 {
		return opts, errors.New("frame width and height must be positive")
	}

	var err error
	if opts.Mode, err = tracer.ParseMode(ctx.String("mode")); err != nil {
		return opts, err
	}

	if light := ctx.String("light"); light != "" {
		if opts.LightDir, err = parseVec3(light); err != nil {
			return opts, fmt.Errorf("invalid light direction: %w", err)
		}
	}

	return opts, nil
}

// Parse a comma separated vector.
func parseVec3(value string) (types.Vec3, error) {
	var v types.Vec3
	tokens := strings.Split(value, ",")
	if len(tokens) != 3 {
		return v, fmt.Errorf("expected 3 comma separated values; got %d", len(tokens))
	}

	for index, token := range tokens {
		coord, err := strconv.ParseFloat(strings.TrimSpace(token), 32)
		if err != nil {
			return v, err
		}
		v[index] = float32(coord)
	}
	return v, nil
}

func displayFrameStats(stats renderer.FrameStats) {
	logger.Noticef("frame statistics\n%s", stats.Table())
}
