package renderer

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/mrjoshuak/go-openexr/exr"
)

// CameraController owns the buffer set of one camera and runs its pipeline.
// Frames of one camera are strictly sequential; different controllers may
// draw concurrently.
type CameraController struct {
	mu       sync.Mutex
	id       CameraID
	camera   Camera
	buffers  *CameraBuffers
	pipeline []Pass
	tiles    []Tile
	stats    FrameStats
	drawn    bool
	layout   uint64 // Light layout the reservoirs were built against
}

// NewCameraController creates a controller with buffers sized for the camera
func NewCameraController(id CameraID, camera Camera) *CameraController {
	c := &CameraController{
		id:       id,
		pipeline: newPipeline(),
	}
	c.setCamera(camera)
	return c
}

// ID returns the camera id the controller draws
func (c *CameraController) ID() CameraID {
	return c.id
}

// Camera returns the camera used by the next frame
func (c *CameraController) Camera() Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.camera
}

// SetCamera updates the camera. A new viewport size reallocates the buffers
// and discards all history.
func (c *CameraController) SetCamera(camera Camera) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCamera(camera)
}

func (c *CameraController) setCamera(camera Camera) {
	if c.buffers == nil || c.buffers.Size() != camera.Viewport.Size {
		logger.Debugf("Camera %d: allocating buffers for %dx%d", c.id, camera.Viewport.Size.X, camera.Viewport.Size.Y)
		c.buffers = NewCameraBuffers(camera.Viewport.Size)
		c.tiles = NewTileGrid(camera.Viewport.Size.X, camera.Viewport.Size.Y, TileSize)
		c.drawn = false
	}
	c.camera = camera
}

// Buffers returns the controller's buffer set. The set is owned by the
// draw in progress, if any: Buffers waits for it to finish, but the caller
// must not hold the result across a later Draw.
func (c *CameraController) Buffers() *CameraBuffers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffers
}

// Inspect calls fn with the buffer set while no frame is being drawn
func (c *CameraController) Inspect(fn func(*CameraBuffers)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.buffers)
}

// Stats returns the statistics of the last drawn frame
func (c *CameraController) Stats() (FrameStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats, c.drawn
}

// Draw runs the fixed pass sequence for one frame. Every pass is dispatched
// over all tiles and completes before the next one starts. The target may be
// nil to resolve a frame without drawing it.
func (c *CameraController) Draw(pool *WorkerPool, bindings Bindings) (FrameStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := validateViewport(c.camera.Viewport, bindings.Target); err != nil {
		return FrameStats{}, err
	}

	// Reservoirs name lights by index, so a new layout invalidates them
	if layout := bindings.Store.LightLayout(); layout != c.layout {
		if c.buffers.Frames() > 0 {
			logger.Debugf("Camera %d: light layout changed, discarding reservoirs", c.id)
		}
		c.buffers.DiscardReservoirs()
		c.layout = layout
	}

	bindings.Buffers = c.buffers
	bindings.Camera = c.camera
	stats := FrameStats{Camera: c.id, Frame: bindings.Frame}
	frameStart := time.Now()

	for _, pass := range c.pipeline {
		passStart := time.Now()
		pass.Bind(&bindings)
		if err := pool.Dispatch(c.tiles, pass.Run); err != nil {
			return FrameStats{}, fmt.Errorf("%s pass: %w", pass.Name(), err)
		}
		if f, ok := pass.(finisher); ok {
			f.Finish()
		}
		stats.Passes = append(stats.Passes, PassTiming{Name: pass.Name(), Duration: time.Since(passStart)})
	}

	c.buffers.EndFrame(c.camera.ViewProjection())
	stats.Total = time.Since(frameStart)
	stats.collect(c.buffers)

	c.stats = stats
	c.drawn = true
	return stats, nil
}

// validateViewport checks that the viewport is drawable into target
func validateViewport(viewport Viewport, target Target) error {
	if viewport.Size.X <= 0 || viewport.Size.Y <= 0 || viewport.Position.X < 0 || viewport.Position.Y < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidViewport, viewport.Rect())
	}
	if target == nil {
		return nil
	}
	if !supportedFormat(target.Format()) {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, target.Format())
	}
	bounds := image.Rect(0, 0, target.Width(), target.Height())
	if !viewport.Rect().In(bounds) || target.Stride() < target.Width()*4 {
		return fmt.Errorf("%w: viewport %v, target %v", ErrTargetTooSmall, viewport.Rect(), bounds)
	}
	return nil
}

// ExportHDR writes the last resolved linear radiance (direct plus indirect)
// to an OpenEXR file
func (c *CameraController) ExportHDR(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.drawn {
		return ErrNoFrame
	}

	size := c.buffers.Size()
	img := exr.NewRGBAImage(image.Rect(0, 0, size.X, size.Y))
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			i := c.buffers.Index(x, y)
			radiance := c.buffers.Directs[i].Add(c.buffers.Indirects[i])
			img.SetRGBA(x, y, float32(radiance.X), float32(radiance.Y), float32(radiance.Z), 1)
		}
	}

	if err := exr.EncodeFile(path, img); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	logger.Infof("Camera %d: wrote HDR frame to %s", c.id, path)
	return nil
}
