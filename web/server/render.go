package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"sync"
	"time"

	"github.com/df07/go-realtime-restir/pkg/renderer"
	"github.com/df07/go-realtime-restir/pkg/scenes"
)

// renderCamera is the camera id every web render draws through
const renderCamera renderer.CameraID = 1

// orbitDegreesPerFrame is how far an orbiting camera turns each frame
const orbitDegreesPerFrame = 0.5

// SSEEvent represents a unified SSE event for thread-safe writing
type SSEEvent struct {
	Type string `json:"type"` // "console", "frame", "error", "complete"
	Data string `json:"data"` // JSON-encoded data
}

// PassUpdate is the timing of one pass of a streamed frame
type PassUpdate struct {
	Name string  `json:"name"`
	Ms   float64 `json:"ms"`
}

// FrameUpdate represents a single streamed frame
type FrameUpdate struct {
	Frame            int          `json:"frame"`       // Frame number (1-based)
	TotalFrames      int          `json:"totalFrames"` // Frames requested
	ImageData        string       `json:"imageData"`   // Base64 encoded PNG
	Width            int          `json:"width"`
	Height           int          `json:"height"`
	ElapsedMs        int64        `json:"elapsedMs"` // Time since the render started
	FrameMs          float64      `json:"frameMs"`   // Time spent drawing this frame
	AverageM         float64      `json:"averageM"`
	MaxM             float64      `json:"maxM"`
	ReprojectionRate float64      `json:"reprojectionRate"`
	SkyPixels        int          `json:"skyPixels"`
	Passes           []PassUpdate `json:"passes"`
	IsComplete       bool         `json:"isComplete"`
}

// RenderingPipeline contains the loaded scene and the engine drawing it
type RenderingPipeline struct {
	Scene  *scenes.Scene
	Engine *renderer.Engine
}

// handleRender streams frames of a scene via SSE until the requested frame
// count is reached or the client disconnects
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers
	s.setSSEHeaders(w)

	ctx := r.Context()

	// Create unified SSE event channel for thread-safe writing. The handler
	// owns the channel and waits for the writer before returning.
	sseEventChan := make(chan SSEEvent, 100)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeSSEEvents(w, ctx, sseEventChan)
	}()
	defer func() {
		close(sseEventChan)
		<-writerDone
	}()

	// Parse and validate request
	req, err := s.parseRenderRequest(r)
	if err != nil {
		s.handleError(ctx, sseEventChan, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	// Setup console logging and streaming
	consoleChan, webLogger := s.setupConsoleLogging()
	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		s.streamConsoleMessages(ctx, consoleChan, sseEventChan)
	}()
	// Console messages are flushed before the stream ends
	stopConsole := sync.OnceFunc(func() {
		close(consoleChan)
		<-consoleDone
	})
	defer stopConsole()

	pipeline, err := s.setupRenderingPipeline(req, webLogger)
	if err != nil {
		s.handleError(ctx, sseEventChan, err.Error())
		return
	}
	defer pipeline.Engine.Close()

	// Start rendering and stream events
	startTime := time.Now()
	loopConfig := renderer.FrameLoopConfig{
		MaxFrames: req.Frames,
		Interval:  time.Duration(req.IntervalMs) * time.Millisecond,
		Animate:   pipeline.Scene.FrameAnimation(req.orbitStep()),
	}
	frameChan, errChan := pipeline.Engine.RenderLoop(ctx, renderCamera, loopConfig)

	if s.handleRenderingEvents(ctx, sseEventChan, frameChan, errChan, req, startTime) {
		webLogger.Printf("Rendered %d frames in %v\n", req.Frames, time.Since(startTime).Round(time.Millisecond))
		stopConsole()
		s.sendEvent(ctx, sseEventChan, SSEEvent{Type: "complete", Data: "Rendering completed"})
	}
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// setupConsoleLogging creates console channel and web logger for a render
func (s *Server) setupConsoleLogging() (chan ConsoleMessage, *WebLogger) {
	consoleChan := make(chan ConsoleMessage, 50)
	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	webLogger := NewWebLogger(renderID, consoleChan)
	return consoleChan, webLogger
}

// writeSSEEvents writes all SSE events from a single goroutine until the
// channel is closed or the client disconnects
func (s *Server) writeSSEEvents(w http.ResponseWriter, ctx context.Context, sseEventChan <-chan SSEEvent) {
	for {
		select {
		case event, ok := <-sseEventChan:
			if !ok {
				return
			}

			_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data)
			if err != nil {
				// Client disconnected during write
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}

		case <-ctx.Done():
			// Client disconnected
			return
		}
	}
}

// streamConsoleMessages forwards console messages until consoleChan closes
func (s *Server) streamConsoleMessages(ctx context.Context, consoleChan <-chan ConsoleMessage, sseEventChan chan<- SSEEvent) {
	for consoleMsg := range consoleChan {
		data, err := json.Marshal(consoleMsg)
		if err != nil {
			logger.Errorf("Error marshaling console message: %v", err)
			continue
		}

		select {
		case sseEventChan <- SSEEvent{Type: "console", Data: string(data)}:
		case <-ctx.Done():
		default:
			// Channel full, skip message to avoid blocking
		}
	}
}

// setupRenderingPipeline loads the scene into a new engine
func (s *Server) setupRenderingPipeline(req *RenderRequest, webLogger *WebLogger) (*RenderingPipeline, error) {
	sceneObj, err := scenes.Load(req.Scene, req.cameraOverride())
	if err != nil {
		return nil, err
	}

	engine := renderer.NewEngine(req.rendererConfig())
	if err := sceneObj.Upload(engine, renderCamera, req.ViewMode); err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to load scene %s: %w", req.Scene, err)
	}

	size := sceneObj.CameraConfig.Size()
	webLogger.Printf("Loaded %s: %d triangles, %d lights, %dx%d, view %s\n",
		req.Scene, sceneObj.TriangleCount(), len(sceneObj.Host.Lights), size.X, size.Y, req.ViewMode)
	return &RenderingPipeline{Scene: sceneObj, Engine: engine}, nil
}

// handleRenderingEvents processes the frame loop until it ends. It reports
// whether every frame was streamed.
func (s *Server) handleRenderingEvents(ctx context.Context, sseEventChan chan<- SSEEvent,
	frameChan <-chan renderer.FrameResult, errChan <-chan error,
	req *RenderRequest, startTime time.Time) bool {

	for {
		select {
		case result, ok := <-frameChan:
			if !ok {
				frameChan = nil // Channel closed
				continue
			}
			s.handleFrame(ctx, sseEventChan, result, req, startTime)

		case err, ok := <-errChan:
			if ok && err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Infof("Render of %s cancelled by client", req.Scene)
					return false
				}
				s.handleError(ctx, sseEventChan, fmt.Sprintf("Rendering failed: %v", err))
				return false
			}
			// errChan closed, stream any frame still buffered
			if frameChan != nil {
				for result := range frameChan {
					s.handleFrame(ctx, sseEventChan, result, req, startTime)
				}
			}
			return ctx.Err() == nil

		case <-ctx.Done():
			// Client disconnected
			return false
		}
	}
}

// handleFrame encodes and sends one frame event
func (s *Server) handleFrame(ctx context.Context, sseEventChan chan<- SSEEvent, result renderer.FrameResult, req *RenderRequest, startTime time.Time) {
	// Check if client is still connected
	select {
	case <-ctx.Done():
		return
	default:
	}

	imageData, err := s.imageToBase64PNG(result.Image)
	if err != nil {
		logger.Errorf("Error encoding frame %d: %v", result.Frame, err)
		return
	}

	bounds := result.Image.Bounds()
	update := FrameUpdate{
		Frame:            int(result.Frame) + 1,
		TotalFrames:      req.Frames,
		ImageData:        imageData,
		Width:            bounds.Dx(),
		Height:           bounds.Dy(),
		ElapsedMs:        time.Since(startTime).Milliseconds(),
		FrameMs:          float64(result.Stats.Total.Microseconds()) / 1000,
		AverageM:         result.Stats.AverageM,
		MaxM:             result.Stats.MaxM,
		ReprojectionRate: result.Stats.ReprojectionRate(),
		SkyPixels:        result.Stats.SkyPixels,
		IsComplete:       result.IsLast,
	}
	for _, pass := range result.Stats.Passes {
		update.Passes = append(update.Passes, PassUpdate{
			Name: pass.Name,
			Ms:   float64(pass.Duration.Microseconds()) / 1000,
		})
	}

	data, err := json.Marshal(update)
	if err != nil {
		logger.Errorf("Error marshaling frame update: %v", err)
		return
	}
	s.sendEvent(ctx, sseEventChan, SSEEvent{Type: "frame", Data: string(data)})
}

// imageToBase64PNG converts an image to base64-encoded PNG
func (s *Server) imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// handleError sends an error event to the SSE channel
func (s *Server) handleError(ctx context.Context, sseEventChan chan<- SSEEvent, message string) {
	logger.Warningf("Render error: %s", message)
	s.sendEvent(ctx, sseEventChan, SSEEvent{Type: "error", Data: message})
}

func (s *Server) sendEvent(ctx context.Context, sseEventChan chan<- SSEEvent, event SSEEvent) {
	select {
	case sseEventChan <- event:
	case <-ctx.Done():
		// Client disconnected, don't block
	}
}
