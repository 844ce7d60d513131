package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/df07/go-realtime-restir/pkg/renderer"
	"github.com/df07/go-realtime-restir/pkg/scenes"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// renderCamera is the camera id the render command draws through
const renderCamera renderer.CameraID = 1

// RenderScene renders a sequence of frames of a scene and writes the last one.
func RenderScene(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	sceneID := ctx.String("scene")
	if ctx.NArg() > 0 {
		sceneID = ctx.Args().First()
	}
	mode, err := renderer.ParseViewMode(ctx.String("view"))
	if err != nil {
		return err
	}
	frames := ctx.Int("frames")
	if frames < 1 {
		return fmt.Errorf("frames must be at least 1, got %d", frames)
	}

	override := scenes.CameraConfig{Width: ctx.Int("width")}
	if w, h := ctx.Int("width"), ctx.Int("height"); w > 0 && h > 0 {
		override.AspectRatio = float64(w) / float64(h)
	}
	sc, err := scenes.Load(sceneID, override)
	if err != nil {
		return err
	}

	engine := renderer.NewEngine(renderConfig(ctx))
	defer engine.Close()
	if err := sc.Upload(engine, renderCamera, mode); err != nil {
		return err
	}

	size := sc.CameraConfig.Size()
	logger.Noticef("rendering %d frames of %s (%dx%d, %d triangles, %d lights, view %s)",
		frames, sceneID, size.X, size.Y, sc.TriangleCount(), len(sc.Host.Lights), mode)

	loop := renderer.FrameLoopConfig{
		MaxFrames: frames,
		Animate:   sc.FrameAnimation(ctx.Float64("orbit")),
	}
	start := time.Now()
	frameChan, errChan := engine.RenderLoop(context.Background(), renderCamera, loop)

	var last renderer.FrameResult
	totals := &passTotals{}
	for result := range frameChan {
		last = result
		totals.add(result.Stats)
	}
	if err := <-errChan; err != nil {
		return err
	}
	logger.Noticef("rendered %d frames in %v", frames, time.Since(start).Round(time.Millisecond))

	out := ctx.String("out")
	if out == "" {
		out = defaultOutputPath(sceneID, time.Now())
	}
	if err := writePNG(out, last); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s", out)

	if exr := ctx.String("exr"); exr != "" {
		if err := engine.ExportHDR(renderCamera, exr); err != nil {
			return err
		}
		logger.Noticef("wrote HDR buffers to %s", exr)
	}

	displayFrameStats(totals, last.Stats)
	return nil
}

// renderConfig builds the engine configuration from the command flags
func renderConfig(ctx *cli.Context) renderer.Config {
	config := renderer.DefaultConfig()
	if workers := ctx.Int("workers"); workers > 0 {
		config.NumWorkers = workers
	}
	config.CandidatesPerPixel = ctx.Int("candidates")
	config.SpatialSamples = ctx.Int("spatial-samples")
	config.SpatialRadius = ctx.Float64("spatial-radius")
	config.MaxHistory = ctx.Float64("max-history")
	config.IndirectDepth = ctx.Int("indirect-depth")
	config.Exposure = ctx.Float64("exposure")
	if seed := ctx.Int64("seed"); seed != 0 {
		config.Seed = uint64(seed)
	}
	return config
}

// defaultOutputPath returns output/<scene>/render_<timestamp>.png
func defaultOutputPath(sceneID string, now time.Time) string {
	dir := strings.NewReplacer(":", "_", "/", "_", `\`, "_").Replace(sceneID)
	return filepath.Join("output", dir, fmt.Sprintf("render_%s.png", now.Format("20060102_150405")))
}

func writePNG(path string, result renderer.FrameResult) error {
	if result.Image == nil {
		return fmt.Errorf("no frame to write")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, result.Image)
}

// passTotals accumulates pass timings over a frame sequence
type passTotals struct {
	frames int
	names  []string
	totals map[string]time.Duration
	total  time.Duration
}

func (p *passTotals) add(stats renderer.FrameStats) {
	if p.totals == nil {
		p.totals = make(map[string]time.Duration)
	}
	for _, pass := range stats.Passes {
		if _, ok := p.totals[pass.Name]; !ok {
			p.names = append(p.names, pass.Name)
		}
		p.totals[pass.Name] += pass.Duration
	}
	p.total += stats.Total
	p.frames++
}

// average returns the mean duration of a pass, or of the whole frame when
// name is empty
func (p *passTotals) average(name string) time.Duration {
	if p.frames == 0 {
		return 0
	}
	if name == "" {
		return p.total / time.Duration(p.frames)
	}
	return p.totals[name] / time.Duration(p.frames)
}

func displayFrameStats(totals *passTotals, last renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Pass", "Average", "Last frame", "% of frame"})

	lastByName := make(map[string]time.Duration, len(last.Passes))
	for _, pass := range last.Passes {
		lastByName[pass.Name] = pass.Duration
	}
	frameAverage := totals.average("")
	for _, name := range totals.names {
		percent := 0.0
		if frameAverage > 0 {
			percent = 100 * float64(totals.average(name)) / float64(frameAverage)
		}
		table.Append([]string{
			name,
			totals.average(name).String(),
			lastByName[name].String(),
			fmt.Sprintf("%02.1f %%", percent),
		})
	}
	table.SetFooter([]string{"TOTAL", frameAverage.String(), last.Total.String(), ""})
	table.Render()

	logger.Noticef("frame statistics over %d frames\n%s", totals.frames, buf.String())
	logger.Noticef("last frame: %d pixels, %d sky, avg M %.2f, max M %.0f, reprojected %.1f %%",
		last.TotalPixels, last.SkyPixels, last.AverageM, last.MaxM, 100*last.ReprojectionRate())
}
