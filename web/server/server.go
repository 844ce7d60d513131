package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/df07/go-realtime-restir/pkg/log"
	"github.com/df07/go-realtime-restir/pkg/renderer"
	"github.com/df07/go-realtime-restir/pkg/scenes"
)

var logger = log.New("web")

// Request limits shared by the parsers and /api/scene-config
const (
	minSize, maxSize             = 16, 2000
	minFrames, maxFrames         = 1, 100000
	minCandidates, maxCandidates = 1, 64
	maxSpatialSamples            = 32
	maxSpatialRadius             = 64.0
	minHistory, maxHistoryLimit  = 1.0, 1000.0
	maxIndirectDepth             = 8
)

// Server handles web requests for the real-time renderer
type Server struct {
	port      int
	staticDir string
}

// NewServer creates a new web server
func NewServer(port int) *Server {
	return &Server{port: port, staticDir: "static/"}
}

// WithStaticDir sets the directory the web client is served from
func (s *Server) WithStaticDir(dir string) *Server {
	s.staticDir = dir
	return s
}

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Scene          string            `json:"scene"`          // Scene id (e.g., "cornell-box")
	Width          int               `json:"width"`          // Image width
	Height         int               `json:"height"`         // Image height
	Frames         int               `json:"frames"`         // Frames to stream
	IntervalMs     int               `json:"intervalMs"`     // Minimum time between frames
	ViewMode       renderer.ViewMode `json:"viewMode"`       // Buffer shown by the drawing pass
	Candidates     int               `json:"candidates"`     // Light candidates per pixel
	SpatialSamples int               `json:"spatialSamples"` // Neighbors merged by spatial reuse
	SpatialRadius  float64           `json:"spatialRadius"`  // Spatial search radius in pixels
	MaxHistory     float64           `json:"maxHistory"`     // Reservoir history cap
	IndirectDepth  int               `json:"indirectDepth"`  // Indirect bounces
	Exposure       float64           `json:"exposure"`       // Linear exposure
	Orbit          bool              `json:"orbit"`          // Orbit the camera around its look-at point
}

// Handler returns the routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Serve static files
	mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))

	// API endpoints
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/scene-config", s.handleSceneConfig)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	logger.Noticef("Starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the built-in scenes and discovered models
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	response, err := scenes.ListAllScenes()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// handleSceneConfig returns the default camera and renderer settings for a
// scene together with the request limits
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	sceneName := r.URL.Query().Get("scene")
	if sceneName == "" {
		sceneName = "cornell-box" // Default scene
	}

	sceneObj, err := scenes.Load(sceneName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	config := renderer.DefaultConfig()
	size := sceneObj.CameraConfig.Size()
	response := map[string]interface{}{
		"scene":     sceneName,
		"viewModes": renderer.ViewModeNames(),
		"defaults": map[string]interface{}{
			"width":          size.X,
			"height":         size.Y,
			"candidates":     config.CandidatesPerPixel,
			"spatialSamples": config.SpatialSamples,
			"spatialRadius":  config.SpatialRadius,
			"maxHistory":     config.MaxHistory,
			"indirectDepth":  config.IndirectDepth,
			"exposure":       config.Exposure,
			"lights":         len(sceneObj.Host.Lights),
			"triangles":      sceneObj.TriangleCount(),
		},
		"limits": map[string]interface{}{
			"width":          map[string]int{"min": minSize, "max": maxSize},
			"height":         map[string]int{"min": minSize, "max": maxSize},
			"frames":         map[string]int{"min": minFrames, "max": maxFrames},
			"candidates":     map[string]int{"min": minCandidates, "max": maxCandidates},
			"spatialSamples": map[string]int{"min": 0, "max": maxSpatialSamples},
			"spatialRadius":  map[string]float64{"min": 0, "max": maxSpatialRadius},
			"maxHistory":     map[string]float64{"min": minHistory, "max": maxHistoryLimit},
			"indirectDepth":  map[string]int{"min": 0, "max": maxIndirectDepth},
		},
	}

	writeJSON(w, http.StatusOK, response)
}

// parseCommonSceneParams parses the parameters shared by render and inspect
func (s *Server) parseCommonSceneParams(r *http.Request, req *RenderRequest) error {
	query := r.URL.Query()

	if scene := query.Get("scene"); scene != "" {
		req.Scene = scene
	} else {
		req.Scene = "cornell-box" // Default scene
	}

	// Zero keeps the scene's default camera size
	var err error
	if req.Width, err = parseIntParam(query, "width", 0, minSize, maxSize); err != nil {
		return err
	}
	if req.Height, err = parseIntParam(query, "height", 0, minSize, maxSize); err != nil {
		return err
	}

	req.ViewMode = renderer.ViewFinal
	if mode := query.Get("viewMode"); mode != "" {
		if req.ViewMode, err = renderer.ParseViewMode(mode); err != nil {
			return err
		}
	}
	return nil
}

// parseRenderRequest parses request parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	req := &RenderRequest{}
	if err := s.parseCommonSceneParams(r, req); err != nil {
		return nil, err
	}

	query := r.URL.Query()
	defaults := renderer.DefaultConfig()

	var err error
	if req.Frames, err = parseIntParam(query, "frames", 120, minFrames, maxFrames); err != nil {
		return nil, err
	}
	if req.IntervalMs, err = parseIntParam(query, "intervalMs", 0, 0, 10000); err != nil {
		return nil, err
	}
	if req.Candidates, err = parseIntParam(query, "candidates", defaults.CandidatesPerPixel, minCandidates, maxCandidates); err != nil {
		return nil, err
	}
	if req.SpatialSamples, err = parseIntParam(query, "spatialSamples", defaults.SpatialSamples, 0, maxSpatialSamples); err != nil {
		return nil, err
	}
	if req.SpatialRadius, err = parseFloatParam(query, "spatialRadius", defaults.SpatialRadius, 0, maxSpatialRadius); err != nil {
		return nil, err
	}
	if req.MaxHistory, err = parseFloatParam(query, "maxHistory", defaults.MaxHistory, minHistory, maxHistoryLimit); err != nil {
		return nil, err
	}
	if req.IndirectDepth, err = parseIntParam(query, "indirectDepth", defaults.IndirectDepth, 0, maxIndirectDepth); err != nil {
		return nil, err
	}
	if req.Exposure, err = parseFloatParam(query, "exposure", defaults.Exposure, 0.01, 100); err != nil {
		return nil, err
	}
	req.Orbit = query.Get("orbit") == "true"

	// Performance warning
	if req.Width*req.Height > 800*600 && req.IndirectDepth > 2 {
		logger.Warning("Render warning: large image with deep indirect bounces may render slowly")
	}

	return req, nil
}

// cameraOverride returns the camera settings the request overrides
func (req *RenderRequest) cameraOverride() scenes.CameraConfig {
	override := scenes.CameraConfig{Width: req.Width}
	if req.Width > 0 && req.Height > 0 {
		override.AspectRatio = float64(req.Width) / float64(req.Height)
	}
	return override
}

// orbitStep returns the camera's per-frame orbit in degrees
func (req *RenderRequest) orbitStep() float64 {
	if req.Orbit {
		return orbitDegreesPerFrame
	}
	return 0
}

// rendererConfig applies the request's settings to the default configuration
func (req *RenderRequest) rendererConfig() renderer.Config {
	config := renderer.DefaultConfig()
	config.CandidatesPerPixel = req.Candidates
	config.SpatialSamples = req.SpatialSamples
	config.SpatialRadius = req.SpatialRadius
	config.MaxHistory = req.MaxHistory
	config.IndirectDepth = req.IndirectDepth
	config.Exposure = req.Exposure
	return config
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Error encoding response: %v", err)
	}
}
