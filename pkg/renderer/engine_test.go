package renderer

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"
	"testing"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/scene"
	"github.com/gogpu/gputypes"
)

func TestEngine_PointLightMatchesAnalyticFalloff(t *testing.T) {
	light := scene.NewPointLight(core.NewVec3(0, 2, 0), 0.01, core.NewVec3(10, 10, 10), 0)
	camera := topDownCamera(15, 5)
	engine := newTestEngine(t, testConfig(), planeChangelog(light), camera)

	drawFrames(t, engine, 0, 64)
	c, _ := engine.Controller(planeCamera)
	buf := c.Buffers()

	frame64 := append([]core.Vec3(nil), buf.Directs...)
	for y := 0; y < 15; y++ {
		for x := 0; x < 15; x++ {
			expected := analyticDiffuse(planeHit(camera, x, y), light)
			got := frame64[buf.Index(x, y)]
			if relativeError(got.X, expected) > 2e-3 {
				t.Errorf("Pixel (%d, %d): expected radiance %.5f, got %.5f", x, y, expected, got.X)
			}
		}
	}

	// The pixel under the light sees it head on at distance 2
	center := frame64[buf.Index(7, 7)]
	expectedCenter := planeAlbedo / math.Pi * 10 / 4
	if relativeError(center.X, expectedCenter) > 2e-3 {
		t.Errorf("Expected center radiance %.5f, got %.5f", expectedCenter, center.X)
	}

	drawFrames(t, engine, 64, 1)
	for i, before := range frame64 {
		if buf.Directs[i].Subtract(before).Length() > 1e-9 {
			t.Fatalf("Pixel %d changed between frame 64 and 65: %v -> %v", i, before, buf.Directs[i])
		}
	}
}

func TestEngine_ZeroLightsOnlyShowsAtmosphere(t *testing.T) {
	camera := NewLookAtCamera(core.NewVec3(0, 1, 5), core.NewVec3(0, 1, 0), core.NewVec3(0, 1, 0), 60, image.Pt(16, 16))
	config := testConfig()
	config.IndirectDepth = 1
	engine := newTestEngine(t, config, planeChangelog(), camera)

	drawFrames(t, engine, 0, 4)
	c, _ := engine.Controller(planeCamera)
	buf := c.Buffers()
	sun := engine.Store().Sun()

	sky, surface := 0, 0
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			i := buf.Index(x, y)
			if buf.GBufferD0[i][2] == 0 {
				sky++
				expected := engine.Atmosphere().Sample(sun.Direction, camera.PrimaryRay(x, y).Direction, sun.Intensity)
				if buf.Directs[i].Subtract(expected).Length() > 1e-12 {
					t.Errorf("Sky pixel (%d, %d): expected %v, got %v", x, y, expected, buf.Directs[i])
				}
				continue
			}
			surface++
			if !buf.Directs[i].IsZero() {
				t.Errorf("Surface pixel (%d, %d): expected no direct light, got %v", x, y, buf.Directs[i])
			}
		}
	}
	if sky == 0 || surface == 0 {
		t.Fatalf("Expected both sky and surface pixels, got %d sky and %d surface", sky, surface)
	}
}

func TestEngine_OnePixelCameraMoveKeepsHistory(t *testing.T) {
	const size = 32
	light := scene.NewPointLight(core.NewVec3(1, 3, -1), 0.01, core.NewVec3(20, 20, 20), 0)
	camera := topDownCamera(size, 5)
	engine := newTestEngine(t, testConfig(), planeChangelog(light), camera)

	drawFrames(t, engine, 0, 30)
	before, err := engine.Stats(planeCamera)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if before.AverageM < 0.9*engine.Config().MaxHistory {
		t.Fatalf("Expected saturated history before the move, got average M %.2f", before.AverageM)
	}

	// One pixel at the plane's depth
	step := 2 * 5 * math.Tan(float64(camera.Projection.FovY)/2) / size
	moved := camera
	moved.Transform = camera.Transform.Mul4(translation(step, 0, 0))
	if err := engine.SetCamera(planeCamera, moved); err != nil {
		t.Fatalf("SetCamera failed: %v", err)
	}
	drawFrames(t, engine, 30, 1)

	after, _ := engine.Stats(planeCamera)
	if rate := after.ReprojectionRate(); rate < 0.9 {
		t.Errorf("Expected most pixels to reproject after a one pixel move, got %.2f", rate)
	}
	if after.AverageM < 0.9*before.AverageM {
		t.Errorf("Expected history to survive the move, average M went from %.2f to %.2f", before.AverageM, after.AverageM)
	}

	c, _ := engine.Controller(planeCamera)
	buf := c.Buffers()
	reset := 0
	for y := 1; y < size-1; y++ {
		for x := 1; x < size-2; x++ {
			if buf.History[buf.Index(x, y)] < engine.Config().MaxHistory/2 {
				reset++
			}
		}
	}
	if reset > 0 {
		t.Errorf("Expected no interior history resets, got %d", reset)
	}
}

func TestEngine_HistoryNeverExceedsCap(t *testing.T) {
	frames := uint32(10000)
	if testing.Short() {
		frames = 1000
	}

	config := testConfig()
	light := scene.NewPointLight(core.NewVec3(0, 2, 0), 0.01, core.NewVec3(10, 10, 10), 0)
	other := scene.NewPointLight(core.NewVec3(2, 1, 1), 0.01, core.NewVec3(5, 2, 2), 0)
	engine := newTestEngine(t, config, planeChangelog(light, other), topDownCamera(8, 3))
	c, _ := engine.Controller(planeCamera)
	buf := c.Buffers()

	for frame := uint32(0); frame < frames; frame++ {
		if err := engine.Draw(planeCamera, nil, frame); err != nil {
			t.Fatalf("Draw frame %d failed: %v", frame, err)
		}
		for i, r := range buf.PrevReservoirs() {
			if r.M > config.MaxHistory {
				t.Fatalf("Frame %d pixel %d: M %.2f exceeds cap %.0f", frame, i, r.M, config.MaxHistory)
			}
		}
		for i, h := range buf.PrevIndirectHistory() {
			if h.Frames > config.MaxHistory {
				t.Fatalf("Frame %d pixel %d: indirect history %.2f exceeds cap", frame, i, h.Frames)
			}
		}
	}
}

// TestEngine_SpatialReuseConvergesToReference compares the temporal average of
// the resolved direct light against an exhaustive sum over all lights. Spatial
// reuse is biased but convergent: the signed error of the average stays well
// under 2% (about 0.4% over 1024 frames), while the absolute per-pixel error
// still carries variance and is held to 5%.
func TestEngine_SpatialReuseConvergesToReference(t *testing.T) {
	lightList := []scene.Light{
		scene.NewPointLight(core.NewVec3(0, 1.5, 0), 0.01, core.NewVec3(4, 4, 4), 0),
		scene.NewPointLight(core.NewVec3(2, 3, -1), 0.01, core.NewVec3(30, 30, 30), 0),
		scene.NewPointLight(core.NewVec3(-2, 1, 2), 0.01, core.NewVec3(2, 2, 2), 0),
		scene.NewPointLight(core.NewVec3(-1, 4, -3), 0.01, core.NewVec3(12, 12, 12), 0),
	}
	const size = 24
	camera := topDownCamera(size, 4)
	engine := newTestEngine(t, testConfig(), planeChangelog(lightList...), camera)
	c, _ := engine.Controller(planeCamera)
	buf := c.Buffers()

	drawFrames(t, engine, 0, 1)
	reference := directReference(engine, buf, camera)
	firstError, _ := meanErrors(buf.Directs, reference)

	const frames = 512
	average := make([]core.Vec3, size*size)
	for frame := uint32(1); frame <= frames; frame++ {
		drawFrames(t, engine, frame, 1)
		for i := range average {
			average[i] = average[i].Add(buf.Directs[i].Multiply(1.0 / frames))
		}
	}
	averageError, bias := meanErrors(average, reference)

	if averageError >= firstError {
		t.Errorf("Expected the temporal average to improve on the first frame, got %.4f vs %.4f", averageError, firstError)
	}
	if averageError > 0.05 {
		t.Errorf("Expected mean relative error below 5%%, got %.4f", averageError)
	}
	if math.Abs(bias) > 0.02 {
		t.Errorf("Expected mean signed error below 2%%, got %.4f", bias)
	}
}

func TestEngine_LightRemovalDiscardsReservoirs(t *testing.T) {
	farDim := scene.NewPointLight(core.NewVec3(0, 6, 0), 0.01, core.NewVec3(2, 2, 2), 0)
	nearBright := scene.NewPointLight(core.NewVec3(0, 1.5, 0), 0.01, core.NewVec3(10, 10, 10), 0)
	side := scene.NewPointLight(core.NewVec3(3, 1, 0), 0.01, core.NewVec3(3, 3, 3), 0)

	const size = 24
	camera := topDownCamera(size, 4)
	engine := newTestEngine(t, testConfig(), planeChangelog(farDim, nearBright, side), camera)
	drawFrames(t, engine, 0, 40)

	// Removing the lowest id shifts every remaining light down one index
	var removal scene.Changelog
	removal.Lights.Remove(1)
	if err := engine.Apply(&removal); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	c, _ := engine.Controller(planeCamera)
	buf := c.Buffers()
	for frame := uint32(40); frame < 43; frame++ {
		drawFrames(t, engine, frame, 1)
		reference := directReference(engine, buf, camera)
		_, bias := meanErrors(buf.Directs, reference)
		if math.Abs(bias) > 0.1 {
			t.Errorf("Frame %d: expected mean signed error below 10%% after removing a light, got %.4f", frame, bias)
		}

		center := buf.Index(size/2, size/2)
		if got := buf.Directs[center].X; relativeError(got, reference[center]) > 0.3 {
			t.Errorf("Frame %d: expected center radiance near %.3f, got %.3f", frame, reference[center], got)
		}
	}
}

func TestEngine_ConcurrentCamerasMatchSequential(t *testing.T) {
	light := scene.NewPointLight(core.NewVec3(0, 2, 0), 0.01, core.NewVec3(10, 10, 10), 0)
	other := scene.NewPointLight(core.NewVec3(2, 1, 1), 0.01, core.NewVec3(5, 2, 2), 0)
	const second CameraID = 2
	cameras := map[CameraID]Camera{
		planeCamera: topDownCamera(16, 3),
		second:      NewLookAtCamera(core.NewVec3(2, 3, 4), core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 0), 60, image.Pt(20, 12)),
	}

	setup := func() *Engine {
		engine := newTestEngine(t, testConfig(), planeChangelog(light, other), cameras[planeCamera])
		if err := engine.SetCamera(second, cameras[second]); err != nil {
			t.Fatalf("SetCamera failed: %v", err)
		}
		return engine
	}
	directs := func(engine *Engine, id CameraID) []core.Vec3 {
		c, err := engine.Controller(id)
		if err != nil {
			t.Fatalf("Controller(%d) failed: %v", id, err)
		}
		return append([]core.Vec3(nil), c.Buffers().Directs...)
	}

	const frames = 12
	sequential := setup()
	for frame := uint32(0); frame < frames; frame++ {
		for _, id := range []CameraID{planeCamera, second} {
			if err := sequential.Draw(id, nil, frame); err != nil {
				t.Fatalf("Draw camera %d frame %d failed: %v", id, frame, err)
			}
		}
	}

	concurrent := setup()
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, id := range []CameraID{planeCamera, second} {
		wg.Add(1)
		go func(id CameraID) {
			defer wg.Done()
			for frame := uint32(0); frame < frames; frame++ {
				if err := concurrent.Draw(id, nil, frame); err != nil {
					errs <- err
					return
				}
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Concurrent draw failed: %v", err)
	}

	for _, id := range []CameraID{planeCamera, second} {
		want, got := directs(sequential, id), directs(concurrent, id)
		for i := range want {
			if want[i] != got[i] {
				t.Fatalf("Camera %d pixel %d: expected %v, got %v", id, i, want[i], got[i])
			}
		}
	}

	// Removing one camera between frames leaves the other untouched
	concurrent.RemoveCamera(second)
	for _, engine := range []*Engine{sequential, concurrent} {
		if err := engine.Draw(planeCamera, nil, frames); err != nil {
			t.Fatalf("Draw after removal failed: %v", err)
		}
	}
	if err := concurrent.Draw(second, nil, frames); !errors.Is(err, ErrUnknownCamera) {
		t.Errorf("Expected ErrUnknownCamera for the removed camera, got %v", err)
	}
	want, got := directs(sequential, planeCamera), directs(concurrent, planeCamera)
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("Pixel %d after removal: expected %v, got %v", i, want[i], got[i])
		}
	}

	if err := concurrent.SetCamera(second, cameras[second]); err != nil {
		t.Fatalf("SetCamera failed: %v", err)
	}
	c, _ := concurrent.Controller(second)
	if c.Buffers().HasHistory() {
		t.Errorf("Expected a re-added camera to start without history")
	}
}

func TestEngine_Errors(t *testing.T) {
	engine := newTestEngine(t, testConfig(), planeChangelog(), topDownCamera(8, 3))

	if err := engine.Draw(42, nil, 0); !errors.Is(err, ErrUnknownCamera) {
		t.Errorf("Expected ErrUnknownCamera, got %v", err)
	}
	if _, err := engine.Stats(planeCamera); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Expected ErrNoFrame before the first draw, got %v", err)
	}

	bad := topDownCamera(8, 3)
	bad.Mode = ViewMode(99)
	if err := engine.SetCamera(2, bad); !errors.Is(err, ErrUnknownViewMode) {
		t.Errorf("Expected ErrUnknownViewMode, got %v", err)
	}

	depth := NewPixmap(8, 8, gputypes.TextureFormatDepth24PlusStencil8)
	if err := engine.Draw(planeCamera, depth, 0); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
	small := NewPixmap(4, 8, gputypes.TextureFormatRGBA8Unorm)
	if err := engine.Draw(planeCamera, small, 0); !errors.Is(err, ErrTargetTooSmall) {
		t.Errorf("Expected ErrTargetTooSmall, got %v", err)
	}

	var dynamic scene.Changelog
	dynamic.Images.Set(1, scene.Image{Data: image.NewNRGBA(image.Rect(0, 0, 2, 2)), Dynamic: true})
	if err := engine.Apply(&dynamic); !errors.Is(err, scene.ErrDynamicImageNotCopyable) {
		t.Errorf("Expected ErrDynamicImageNotCopyable, got %v", err)
	}

	engine.Close()
	if err := engine.Draw(planeCamera, nil, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after Close, got %v", err)
	}
	if err := engine.Apply(planeChangelog()); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Apply after Close, got %v", err)
	}
}

func TestEngine_ResizeDiscardsHistory(t *testing.T) {
	camera := topDownCamera(8, 3)
	engine := newTestEngine(t, testConfig(), planeChangelog(), camera)
	drawFrames(t, engine, 0, 2)

	c, _ := engine.Controller(planeCamera)
	original := c.Buffers()
	if !original.HasHistory() {
		t.Fatalf("Expected history after two frames")
	}

	// Same size keeps the buffers
	moved := camera
	moved.Transform = camera.Transform.Mul4(translation(0.1, 0, 0))
	if err := engine.SetCamera(planeCamera, moved); err != nil {
		t.Fatalf("SetCamera failed: %v", err)
	}
	if c.Buffers() != original {
		t.Errorf("Expected buffers to be kept when the size is unchanged")
	}

	resized := topDownCamera(12, 3)
	if err := engine.SetCamera(planeCamera, resized); err != nil {
		t.Fatalf("SetCamera failed: %v", err)
	}
	buf := c.Buffers()
	if buf == original || buf.Size() != image.Pt(12, 12) {
		t.Fatalf("Expected new 12x12 buffers, got %v", buf.Size())
	}
	if buf.HasHistory() {
		t.Errorf("Expected resized buffers to start without history")
	}
	for i, r := range buf.PrevReservoirs() {
		if r.M != 0 {
			t.Fatalf("Expected empty reservoirs after resize, pixel %d has M %.1f", i, r.M)
		}
	}

	engine.RemoveCamera(planeCamera)
	if _, err := engine.Controller(planeCamera); !errors.Is(err, ErrUnknownCamera) {
		t.Errorf("Expected removed camera to be unknown, got %v", err)
	}
}

func TestEngine_RenderLoop(t *testing.T) {
	light := scene.NewPointLight(core.NewVec3(0, 2, 0), 0.01, core.NewVec3(10, 10, 10), 0)
	engine := newTestEngine(t, testConfig(), planeChangelog(light), topDownCamera(8, 3))

	config := DefaultFrameLoopConfig()
	config.MaxFrames = 3
	frameChan, errChan := engine.RenderLoop(context.Background(), planeCamera, config)

	var results []FrameResult
	for result := range frameChan {
		results = append(results, result)
	}
	if err := <-errChan; err != nil {
		t.Fatalf("RenderLoop failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Expected 3 frames, got %d", len(results))
	}
	for i, result := range results {
		if result.Frame != uint32(i) {
			t.Errorf("Expected frame %d, got %d", i, result.Frame)
		}
		if result.Image.Bounds().Dx() != 8 || result.Image.Bounds().Dy() != 8 {
			t.Errorf("Expected 8x8 image, got %v", result.Image.Bounds())
		}
		if result.IsLast != (i == 2) {
			t.Errorf("Frame %d: unexpected IsLast %v", i, result.IsLast)
		}
	}
}

func TestEngine_RenderLoopCancelled(t *testing.T) {
	engine := newTestEngine(t, testConfig(), planeChangelog(), topDownCamera(8, 3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frameChan, errChan := engine.RenderLoop(ctx, planeCamera, FrameLoopConfig{})

	for range frameChan {
	}
	if err := <-errChan; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestController_InspectWhileDrawing(t *testing.T) {
	light := scene.NewPointLight(core.NewVec3(0, 2, 0), 0.01, core.NewVec3(10, 10, 10), 0)
	engine := newTestEngine(t, testConfig(), planeChangelog(light), topDownCamera(8, 3))
	c, _ := engine.Controller(planeCamera)

	done := make(chan error, 1)
	go func() {
		for frame := uint32(0); frame < 20; frame++ {
			if err := engine.Draw(planeCamera, nil, frame); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	// Every read sees a whole frame: a pixel with history always has a
	// resolved direct value under the light
	for {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Draw failed: %v", err)
			}
			return
		default:
		}
		c.Inspect(func(buf *CameraBuffers) {
			i := buf.Index(4, 4)
			if buf.Frames() > 0 && buf.Directs[i].X <= 0 {
				t.Errorf("Frame %d: expected lit center pixel, got %v", buf.Frames(), buf.Directs[i])
			}
		})
	}
}
