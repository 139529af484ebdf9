package cmd

import (
	"runtime"

	"github.com/urfave/cli"
)

// Flags shared by the render and bench commands.
func frameFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 512,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 512,
			Usage: "frame height",
		},
		cli.StringFlag{
			Name:  "mode, m",
			Value: "shaded",
			Usage: "output mode (depth, normals, barycentric, shaded)",
		},
		cli.IntFlag{
			Name:  "workers, w",
			Value: runtime.NumCPU(),
			Usage: "number of cpu tracers",
		},
		cli.StringFlag{
			Name:  "light",
			Usage: "direction towards the light as x,y,z (shaded mode)",
		},
	}
}

// Create the command line application.
func NewApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "lanetrace"
	app.Usage = "trace scenes with 4-wide ray packets"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "set log level (debug, info, notice, warning, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile text scene representation into a binary compressed format",
			Description: `
Parse a scene definition from a wavefront obj file, build a BVH tree to optimize
ray intersection tests and pack leaf triangles into 4-wide blocks.

The compiled scene data is then written to a zip archive which can be supplied
as an argument to the render and bench commands.`,
			ArgsUsage: "scene_file1.obj scene_file2.obj.gz ...",
			Action:    CompileScene,
		},
		{
			Name:      "info",
			Usage:     "print scene statistics",
			ArgsUsage: "scene_file",
			Action:    ShowSceneInfo,
		},
		{
			Name:        "render",
			Usage:       "render a single frame",
			Description: `Render a single frame and save it as a PNG image.`,
			ArgsUsage:   "scene_file",
			Flags: append(frameFlags(),
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			),
			Action: RenderFrame,
		},
		{
			Name:        "bench",
			Usage:       "measure tracing throughput",
			Description: `Render a number of frames and report ray throughput and traversal statistics.`,
			ArgsUsage:   "scene_file",
			Flags: append(frameFlags(),
				cli.IntFlag{
					Name:  "frames, f",
					Value: 10,
					Usage: "number of frames to render",
				},
			),
			Action: Bench,
		},
	}

	return app
}
