package renderer

import (
	"context"
	"fmt"
	"image"
	"time"
)

// FrameLoopConfig contains configuration for continuous rendering of one camera
type FrameLoopConfig struct {
	MaxFrames int           // Frames to render before stopping (0 = until cancelled)
	Interval  time.Duration // Minimum time between frame starts (0 = as fast as possible)

	// Animate, if set, returns the camera to use for each frame
	Animate func(frame uint32, camera Camera) Camera
}

// DefaultFrameLoopConfig returns sensible default values
func DefaultFrameLoopConfig() FrameLoopConfig {
	return FrameLoopConfig{
		MaxFrames: 64,
		Interval:  0,
	}
}

// FrameResult contains the result of a single frame
type FrameResult struct {
	Frame  uint32
	Image  *image.RGBA
	Stats  FrameStats
	IsLast bool
}

// RenderLoop draws successive frames of a camera with channel-based
// communication. The caller should read from both channels; they are closed
// when the loop ends, after MaxFrames frames, on the first error or when ctx
// is cancelled.
func (e *Engine) RenderLoop(ctx context.Context, id CameraID, config FrameLoopConfig) (<-chan FrameResult, <-chan error) {
	frameChan := make(chan FrameResult, 1)
	errChan := make(chan error, 1)

	go func() {
		defer close(frameChan)
		defer close(errChan)

		c, err := e.Controller(id)
		if err != nil {
			errChan <- err
			return
		}

		logger.Infof("Camera %d: starting frame loop", id)
		var ticker *time.Ticker
		if config.Interval > 0 {
			ticker = time.NewTicker(config.Interval)
			defer ticker.Stop()
		}

		for frame := uint32(0); config.MaxFrames <= 0 || int(frame) < config.MaxFrames; frame++ {
			// Check if the client went away before starting this frame
			select {
			case <-ctx.Done():
				logger.Infof("Camera %d: frame loop cancelled before frame %d", id, frame)
				errChan <- ctx.Err()
				return
			default:
			}

			camera := c.Camera()
			if config.Animate != nil {
				camera = config.Animate(frame, camera)
				if err := e.SetCamera(id, camera); err != nil {
					errChan <- err
					return
				}
			}

			e.Prepare()
			bounds := camera.Viewport.Rect()
			target := NewPixmap(bounds.Max.X, bounds.Max.Y, camera.Viewport.Format)
			stats, err := e.DrawStats(id, target, frame)
			if err != nil {
				errChan <- fmt.Errorf("frame %d: %w", frame, err)
				return
			}

			logger.Debugf("Camera %d: frame %d in %v (avg M %.1f, reprojected %.0f%%)",
				id, frame, stats.Total, stats.AverageM, 100*stats.ReprojectionRate())

			result := FrameResult{
				Frame:  frame,
				Image:  target.ToImage().SubImage(bounds).(*image.RGBA),
				Stats:  stats,
				IsLast: config.MaxFrames > 0 && int(frame)+1 == config.MaxFrames,
			}
			select {
			case frameChan <- result:
			case <-ctx.Done():
				return
			}

			if ticker != nil {
				select {
				case <-ticker.C:
				case <-ctx.Done():
					errChan <- ctx.Err()
					return
				}
			}
		}
	}()

	return frameChan, errChan
}
