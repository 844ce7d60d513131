package cmd

import (
	"github.com/df07/go-realtime-restir/pkg/renderer"
	"github.com/urfave/cli"
)

// NewApp assembles the command line interface.
func NewApp() *cli.App {
	defaults := renderer.DefaultConfig()

	// -v selects verbose logging, not the version
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "go-realtime-restir"
	app.Usage = "render scenes with reservoir-based direct and indirect lighting"
	app.Version = "0.1.0"
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
			Usage: "per-module log levels, e.g. renderer=debug,scene=info",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a frame sequence of a scene",
			Description: `
Load a built-in scene or a PLY model, draw the requested number of frames so
reservoirs and indirect history accumulate, then write the last frame as PNG.
The resolved lighting buffers can additionally be exported as OpenEXR.`,
			ArgsUsage: "[scene]",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "scene, s",
					Value: "default",
					Usage: "scene id (see list-scenes)",
				},
				cli.IntFlag{
					Name:  "width",
					Usage: "frame width (0 = scene default)",
				},
				cli.IntFlag{
					Name:  "height",
					Usage: "frame height (0 = scene default)",
				},
				cli.IntFlag{
					Name:  "frames, f",
					Value: 16,
					Usage: "frames to render",
				},
				cli.StringFlag{
					Name:  "view",
					Value: renderer.ViewFinal.String(),
					Usage: "view mode: final, direct, indirect, normals, reservoirs or depth",
				},
				cli.Float64Flag{
					Name:  "orbit",
					Usage: "orbit the camera by this many degrees per frame",
				},
				cli.IntFlag{
					Name:  "candidates",
					Value: defaults.CandidatesPerPixel,
					Usage: "light candidates per pixel per frame",
				},
				cli.IntFlag{
					Name:  "spatial-samples",
					Value: defaults.SpatialSamples,
					Usage: "neighbors merged by spatial reuse",
				},
				cli.Float64Flag{
					Name:  "spatial-radius",
					Value: defaults.SpatialRadius,
					Usage: "spatial reuse radius in pixels (0 disables it)",
				},
				cli.Float64Flag{
					Name:  "max-history",
					Value: defaults.MaxHistory,
					Usage: "cap on reservoir history",
				},
				cli.IntFlag{
					Name:  "indirect-depth",
					Value: defaults.IndirectDepth,
					Usage: "indirect bounces (0 disables indirect lighting)",
				},
				cli.Float64Flag{
					Name:  "exposure",
					Value: defaults.Exposure,
					Usage: "camera exposure for tone-mapping",
				},
				cli.IntFlag{
					Name:  "workers",
					Usage: "worker goroutines (0 = CPU count)",
				},
				cli.Int64Flag{
					Name:  "seed",
					Usage: "noise seed (0 = default)",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "image filename for the last frame (default output/<scene>/render_<timestamp>.png)",
				},
				cli.StringFlag{
					Name:  "exr",
					Usage: "also export the last frame's lighting buffers to this OpenEXR file",
				},
			},
			Action: RenderScene,
		},
		{
			Name:   "list-scenes",
			Usage:  "list built-in scenes and discovered PLY models",
			Action: ListScenes,
		},
		{
			Name:  "serve",
			Usage: "start the web interface",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "port, p",
					Value: 8080,
					Usage: "port to serve on",
				},
				cli.StringFlag{
					Name:  "static",
					Value: "web/static",
					Usage: "directory the web client is served from",
				},
			},
			Action: Serve,
		},
	}
	return app
}
