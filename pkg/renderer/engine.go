package renderer

import (
	"fmt"
	"sync"

	"github.com/df07/go-realtime-restir/pkg/atmosphere"
	"github.com/df07/go-realtime-restir/pkg/lights"
	"github.com/df07/go-realtime-restir/pkg/log"
	"github.com/df07/go-realtime-restir/pkg/scene"
)

var logger = log.New("renderer")

// Engine owns the scene store, the shared lookup tables and one controller
// per camera. Draws hold the read side of the lock, so cameras draw
// concurrently against an unchanging scene; Apply and Prepare take the
// write side between frames.
type Engine struct {
	mu         sync.RWMutex
	config     Config
	store      *scene.Store
	sampler    *lights.Sampler
	atmosphere *atmosphere.Model
	pool       *WorkerPool
	cameras    map[CameraID]*CameraController
	closed     bool
}

// NewEngine creates an engine with an empty scene and starts its workers
func NewEngine(config Config) *Engine {
	if config.MaxHistory < 1 {
		config.MaxHistory = 1
	}

	logger.Debugf("Precomputing atmosphere tables")
	e := &Engine{
		config:     config,
		store:      scene.NewStore(config.Scene),
		sampler:    lights.NewSampler(nil),
		atmosphere: atmosphere.New(config.Atmosphere),
		pool:       NewWorkerPool(config.NumWorkers),
		cameras:    make(map[CameraID]*CameraController),
	}
	e.pool.Start()
	logger.Infof("Engine started with %d workers", e.pool.GetNumWorkers())
	return e
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.config
}

// Store returns the scene store. Callers must not mutate it.
func (e *Engine) Store() *scene.Store {
	return e.store
}

// Atmosphere returns the precomputed sky model
func (e *Engine) Atmosphere() *atmosphere.Model {
	return e.atmosphere
}

// Apply applies a scene changelog. A configuration violation rejects the
// whole changelog and leaves the scene untouched.
func (e *Engine) Apply(changelog *scene.Changelog) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if err := e.store.Apply(changelog); err != nil {
		return fmt.Errorf("apply changelog: %w", err)
	}
	e.sampler = lights.NewSampler(e.store.Lights())
	return nil
}

// Prepare re-reads dynamic textures before the frame's draws
func (e *Engine) Prepare() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if n := e.store.Refresh(); n > 0 {
		logger.Debugf("Refreshed %d dynamic images", n)
	}
}

// SetCamera creates or updates a camera
func (e *Engine) SetCamera(id CameraID, camera Camera) error {
	if int(camera.Mode) >= len(viewModeNames) {
		return fmt.Errorf("%w: %d", ErrUnknownViewMode, camera.Mode)
	}
	if camera.Viewport.Size.X <= 0 || camera.Viewport.Size.Y <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidViewport, camera.Viewport.Rect())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if c, ok := e.cameras[id]; ok {
		c.SetCamera(camera)
		return nil
	}
	e.cameras[id] = NewCameraController(id, camera)
	logger.Debugf("Camera %d added", id)
	return nil
}

// RemoveCamera releases a camera and its buffers
func (e *Engine) RemoveCamera(id CameraID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.cameras[id]; ok {
		delete(e.cameras, id)
		logger.Debugf("Camera %d removed", id)
	}
}

// Controller returns the controller of a camera
func (e *Engine) Controller(id CameraID) (*CameraController, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	c, ok := e.cameras[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCamera, id)
	}
	return c, nil
}

// Draw renders one frame of a camera into target. A nil target resolves the
// frame without drawing it. A failed draw is a dropped frame; history is kept.
func (e *Engine) Draw(id CameraID, target Target, frame uint32) error {
	_, err := e.DrawStats(id, target, frame)
	return err
}

// DrawStats is Draw returning the statistics of the frame
func (e *Engine) DrawStats(id CameraID, target Target, frame uint32) (FrameStats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return FrameStats{}, ErrClosed
	}
	c, ok := e.cameras[id]
	if !ok {
		return FrameStats{}, fmt.Errorf("%w: %d", ErrUnknownCamera, id)
	}

	bindings := Bindings{
		Store:      e.store,
		Lights:     e.sampler,
		Atmosphere: e.atmosphere,
		Config:     &e.config,
		Frame:      frame,
		Target:     target,
	}
	stats, err := c.Draw(e.pool, bindings)
	if err != nil {
		logger.Warningf("Camera %d: dropped frame %d: %v", id, frame, err)
		return FrameStats{}, err
	}
	return stats, nil
}

// Stats returns the statistics of a camera's last frame
func (e *Engine) Stats(id CameraID) (FrameStats, error) {
	c, err := e.Controller(id)
	if err != nil {
		return FrameStats{}, err
	}
	stats, ok := c.Stats()
	if !ok {
		return FrameStats{}, ErrNoFrame
	}
	return stats, nil
}

// ExportHDR writes a camera's last resolved frame to an OpenEXR file
func (e *Engine) ExportHDR(id CameraID, path string) error {
	c, err := e.Controller(id)
	if err != nil {
		return err
	}
	return c.ExportHDR(path)
}

// Close stops the workers and releases every camera. Later calls fail with
// ErrClosed.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.cameras = make(map[CameraID]*CameraController)
	e.pool.Stop()
	logger.Debugf("Engine closed")
}
