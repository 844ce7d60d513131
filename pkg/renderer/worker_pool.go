package renderer

import (
	"fmt"
	"image"
	"runtime"
	"sync"
)

// TileTask is one tile of one pass dispatch
type TileTask struct {
	Tile    Tile
	Kernel  func(bounds image.Rectangle)
	Results chan<- TileResult // Per-dispatch channel, so dispatches never mix results
}

// TileResult reports the completion of a tile
type TileResult struct {
	TileID int
	Error  error
}

// WorkerPool runs tile kernels on a fixed set of goroutines. Several cameras
// may dispatch concurrently; each dispatch waits only for its own tiles.
type WorkerPool struct {
	taskQueue  chan TileTask
	numWorkers int
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once
}

// NewWorkerPool creates a worker pool with the specified number of workers
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{
		taskQueue:  make(chan TileTask, numWorkers*4),
		numWorkers: numWorkers,
	}
}

// Start begins all workers
func (wp *WorkerPool) Start() {
	wp.startOnce.Do(func() {
		for i := 0; i < wp.numWorkers; i++ {
			wp.wg.Add(1)
			go wp.run()
		}
	})
}

// Stop gracefully shuts down all workers. Dispatching after Stop panics.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.taskQueue) // No more tasks
		wp.wg.Wait()        // Wait for workers to finish
	})
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// Dispatch runs kernel over every tile and returns once all of them have
// finished. This is the barrier between passes.
func (wp *WorkerPool) Dispatch(tiles []Tile, kernel func(bounds image.Rectangle)) error {
	results := make(chan TileResult, len(tiles))
	for _, tile := range tiles {
		wp.taskQueue <- TileTask{Tile: tile, Kernel: kernel, Results: results}
	}

	var firstErr error
	for i := 0; i < len(tiles); i++ {
		result := <-results
		if result.Error != nil && firstErr == nil {
			firstErr = result.Error
		}
	}
	return firstErr
}

// run is the main worker loop
func (wp *WorkerPool) run() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		task.Results <- execute(task)
	}
}

// execute runs one tile; a panicking kernel fails the tile instead of the process
func execute(task TileTask) (result TileResult) {
	result.TileID = task.Tile.ID
	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("tile %d: %v", task.Tile.ID, r)
		}
	}()
	task.Kernel(task.Tile.Bounds)
	return result
}

// Tile represents a rectangular region of the viewport
type Tile struct {
	ID     int             // Unique tile identifier
	Bounds image.Rectangle // Pixel bounds in viewport coordinates
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int) []Tile {
	var tiles []Tile
	tileID := 0

	// Calculate number of tiles in each dimension
	tilesX := (width + tileSize - 1) / tileSize // Ceiling division
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, Tile{ID: tileID, Bounds: image.Rect(x0, y0, x1, y1)})
			tileID++
		}
	}

	return tiles
}
