package server

import (
	"fmt"
	"math"
	"net/http"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/renderer"
	"github.com/df07/go-realtime-restir/pkg/scene"
	"github.com/df07/go-realtime-restir/pkg/scenes"
)

// InspectResponse represents the JSON response for pixel inspection
type InspectResponse struct {
	Hit        bool                   `json:"hit"`
	Point      [3]float64             `json:"point"`
	Normal     [3]float64             `json:"normal"`
	Distance   float64                `json:"distance"`
	FrontFace  bool                   `json:"frontFace"`
	TriangleID uint32                 `json:"triangleId"`
	Material   map[string]interface{} `json:"material,omitempty"`
	Reservoir  *ReservoirInfo         `json:"reservoir,omitempty"`
	Direct     [3]float64             `json:"direct"`
	Indirect   [3]float64             `json:"indirect"`
	Frames     int                    `json:"frames"` // Frames drawn before inspecting
}

// ReservoirInfo is the final reservoir of the inspected pixel
type ReservoirInfo struct {
	LightID int64   `json:"lightId"` // Host light id, -1 when the reservoir holds no light
	PHat    float64 `json:"pHat"`
	WSum    float64 `json:"wSum"`
	M       float64 `json:"m"`
	W       float64 `json:"w"`
}

// handleInspect renders a few frames of a scene and reports what one pixel sees
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	req := &RenderRequest{}
	if err := s.parseCommonSceneParams(r, req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	query := r.URL.Query()
	x, err := parseIntParam(query, "x", -1, 0, maxSize)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	y, err := parseIntParam(query, "y", -1, 0, maxSize)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	frames, err := parseIntParam(query, "frames", 4, 1, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sceneObj, err := scenes.Load(req.Scene, req.cameraOverride())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	size := sceneObj.CameraConfig.Size()
	if x < 0 || y < 0 || x >= size.X || y >= size.Y {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("pixel (%d, %d) outside the %dx%d image", x, y, size.X, size.Y),
		})
		return
	}

	config := renderer.DefaultConfig()
	engine := renderer.NewEngine(config)
	defer engine.Close()
	if err := sceneObj.Upload(engine, renderCamera, renderer.ViewFinal); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	response, err := inspectPixel(engine, frames, x, y)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// inspectPixel resolves frames of the render camera, then casts the primary
// ray of pixel (x, y) and reads the pixel's buffers
func inspectPixel(engine *renderer.Engine, frames, x, y int) (InspectResponse, error) {
	for frame := 0; frame < frames; frame++ {
		engine.Prepare()
		if err := engine.Draw(renderCamera, nil, uint32(frame)); err != nil {
			return InspectResponse{}, err
		}
	}

	c, err := engine.Controller(renderCamera)
	if err != nil {
		return InspectResponse{}, err
	}
	camera := c.Camera()
	store := engine.Store()
	response := InspectResponse{Frames: frames}

	ray := camera.PrimaryRay(x, y)
	hit := store.Trace(ray, math.Inf(1))
	if hit.IsMiss() {
		return response, nil
	}

	surface := store.Interpolate(ray, hit)
	response.Hit = true
	response.Point = vec3Array(surface.Position)
	response.Normal = vec3Array(surface.Normal)
	response.Distance = hit.T
	response.TriangleID = hit.TriangleID
	response.FrontFace = store.Triangles()[hit.TriangleID].Normals[0].Dot(ray.Direction) < 0
	response.Material = materialInfo(store, surface)

	c.Inspect(func(buffers *renderer.CameraBuffers) {
		i := buffers.Index(x, y)
		response.Direct = vec3Array(buffers.Directs[i])
		response.Indirect = vec3Array(buffers.Indirects[i])

		res := buffers.PrevReservoirs()[i]
		info := &ReservoirInfo{LightID: -1, PHat: res.Sample.PHat, WSum: res.WSum, M: res.M, W: res.W}
		if ids := store.LightIDs(); res.W > 0 && int(res.Sample.LightID) < len(ids) {
			info.LightID = int64(ids[res.Sample.LightID])
		}
		response.Reservoir = info
	})
	return response, nil
}

// materialInfo describes the compiled material at a surface point
func materialInfo(store *scene.Store, surface scene.SurfacePoint) map[string]interface{} {
	mat := store.Materials()[surface.Material]
	base := store.BaseColor(surface.Material, surface.UV)
	emissive := store.Emissive(surface.Material, surface.UV)

	properties := map[string]interface{}{
		"baseColor": [4]float64{base.X, base.Y, base.Z, base.W},
		"color": fmt.Sprintf("#%02x%02x%02x",
			toByte(base.X), toByte(base.Y), toByte(base.Z)),
		"roughness":   mat.Roughness,
		"metallic":    mat.Metallic,
		"reflectance": mat.Reflectance,
		"alphaMode":   mat.AlphaMode.String(),
		"textured":    mat.BaseColorSlot >= 0,
	}
	if !emissive.IsZero() {
		properties["emission"] = vec3Array(emissive)
	}
	return properties
}

func vec3Array(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func toByte(x float64) int {
	return int(math.Max(0, math.Min(1, x))*255 + 0.5)
}
