package scenes

import (
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/renderer"
	"github.com/df07/go-realtime-restir/pkg/scene"
)

func TestBuiltinScenesLoadIntoStore(t *testing.T) {
	for _, info := range ListBuiltinScenes() {
		t.Run(info.ID, func(t *testing.T) {
			s, err := Load(info.ID)
			if err != nil {
				t.Fatalf("Load(%q) failed: %v", info.ID, err)
			}

			store := scene.NewStore(scene.DefaultConfig())
			changelog := s.Changelog()
			if err := store.Apply(&changelog); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}

			if got, want := len(store.Triangles()), s.TriangleCount(); got != want || got == 0 {
				t.Errorf("Expected %d triangles in the store, got %d", want, got)
			}
			if len(store.Lights()) != len(s.Host.Lights) {
				t.Errorf("Expected %d lights, got %d", len(s.Host.Lights), len(store.Lights()))
			}

			size := s.CameraConfig.Size()
			if size.X <= 0 || size.Y <= 0 {
				t.Errorf("Expected a positive viewport, got %v", size)
			}
		})
	}
}

func TestLoad_UnknownScene(t *testing.T) {
	for _, id := range []string{"", "nope", "ply:", "ply:../secrets"} {
		if _, err := Load(id); !errors.Is(err, ErrUnknownScene) {
			t.Errorf("Load(%q): expected ErrUnknownScene, got %v", id, err)
		}
	}
}

func TestLoad_CameraOverride(t *testing.T) {
	s, err := Load("default", CameraConfig{Width: 64})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.CameraConfig.Width != 64 {
		t.Errorf("Expected width 64, got %d", s.CameraConfig.Width)
	}
	if s.CameraConfig.VFov != 45 {
		t.Errorf("Expected the default field of view to survive, got %v", s.CameraConfig.VFov)
	}
}

func TestMergeCameraConfig(t *testing.T) {
	base := CameraConfig{
		Center:      core.NewVec3(0, 1, 2),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 2,
		VFov:        40,
	}

	tests := []struct {
		name     string
		override CameraConfig
		expected CameraConfig
	}{
		{"empty override", CameraConfig{}, base},
		{"width only", CameraConfig{Width: 100}, CameraConfig{Center: base.Center, LookAt: base.LookAt, Up: base.Up, Width: 100, AspectRatio: 2, VFov: 40}},
		{"position", CameraConfig{Center: core.NewVec3(5, 5, 5)}, CameraConfig{Center: core.NewVec3(5, 5, 5), LookAt: base.LookAt, Up: base.Up, Width: 400, AspectRatio: 2, VFov: 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeCameraConfig(base, tt.override)
			if got != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestCameraConfigSize(t *testing.T) {
	c := CameraConfig{Width: 400, AspectRatio: 16.0 / 9.0}
	if got := c.Size(); got != image.Pt(400, 225) {
		t.Errorf("Expected 400x225, got %v", got)
	}
}

// checkClosedOutward verifies every face of a closed convex mesh centered on
// the origin winds outward
func checkClosedOutward(t *testing.T, name string, mesh scene.Mesh) {
	t.Helper()
	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		v0 := mesh.Positions[mesh.Indices[i]]
		v1 := mesh.Positions[mesh.Indices[i+1]]
		v2 := mesh.Positions[mesh.Indices[i+2]]
		normal := v1.Subtract(v0).Cross(v2.Subtract(v0))
		centroid := v0.Add(v1).Add(v2).Multiply(1.0 / 3.0)
		if normal.Dot(centroid) <= 0 {
			t.Errorf("%s: triangle %d winds inward", name, i/3)
		}
	}
}

func TestMeshes(t *testing.T) {
	box := NewBoxMesh()
	if box.TriangleCount() != 12 {
		t.Errorf("Expected 12 box triangles, got %d", box.TriangleCount())
	}
	checkClosedOutward(t, "box", box)

	ico := NewIcosahedronMesh()
	if ico.TriangleCount() != 20 {
		t.Errorf("Expected 20 icosahedron triangles, got %d", ico.TriangleCount())
	}
	for i, p := range ico.Positions {
		if math.Abs(p.Length()-1) > 1e-9 {
			t.Errorf("Icosahedron vertex %d: expected unit length, got %v", i, p.Length())
		}
	}

	sphere := NewSphereMesh(8, 16)
	if sphere.TriangleCount() != 2*8*16 {
		t.Errorf("Expected %d sphere triangles, got %d", 2*8*16, sphere.TriangleCount())
	}
	if len(sphere.Normals) != len(sphere.Positions) || len(sphere.UVs) != len(sphere.Positions) {
		t.Errorf("Expected one normal and UV per vertex")
	}

	pyramid := NewPyramidMesh()
	if pyramid.TriangleCount() != 6 {
		t.Errorf("Expected 6 pyramid triangles, got %d", pyramid.TriangleCount())
	}
}

func TestNewGroundQuadFacesUp(t *testing.T) {
	quad := NewGroundQuad(core.NewVec3(1, 2, 3), 4)
	for i, n := range quad.Normals {
		if n != core.NewVec3(0, 1, 0) {
			t.Errorf("Normal %d: expected (0,1,0), got %v", i, n)
		}
	}
	for i, p := range quad.Positions {
		if p.Y != 2 || math.Abs(p.X-1) != 2 || math.Abs(p.Z-3) != 2 {
			t.Errorf("Corner %d: unexpected position %v", i, p)
		}
	}
}

func TestTextureSceneAnimatesDynamicImage(t *testing.T) {
	s := NewTextureScene()
	store := scene.NewStore(scene.DefaultConfig())
	changelog := s.Changelog()
	if err := store.Apply(&changelog); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	var screen *image.NRGBA
	for _, img := range s.Host.Images {
		if img.Dynamic {
			screen = img.Data.(*image.NRGBA)
		}
	}
	if screen == nil {
		t.Fatal("Expected a dynamic image")
	}

	before := screen.NRGBAAt(0, 0)
	s.Animate(3)
	if screen.NRGBAAt(0, 0) == before {
		t.Error("Expected Animate to change the screen pixels")
	}
	if refreshed := store.Refresh(); refreshed != 1 {
		t.Errorf("Expected 1 refreshed image, got %d", refreshed)
	}
}

const testPLY = `ply
format ascii 1.0
comment Scene: Test Tetra
comment Description: Four triangles
comment Group: Test Models
element vertex 4
property float x
property float y
property float z
element face 4
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
0 1 0
0 0 1
3 0 2 1
3 0 1 3
3 0 3 2
3 1 2 3
`

func writeModel(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tetra.ply"), []byte(testPLY), 0644); err != nil {
		t.Fatalf("Failed to write model: %v", err)
	}

	saved := ModelDirs
	ModelDirs = []string{dir}
	t.Cleanup(func() { ModelDirs = saved })
	return dir
}

func TestPLYScenes(t *testing.T) {
	writeModel(t)

	infos, err := ListPLYScenes()
	if err != nil {
		t.Fatalf("ListPLYScenes failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Expected 1 model, got %d", len(infos))
	}
	info := infos[0]
	if info.ID != "ply:tetra" || info.Name != "Test Tetra" || info.Group != "Test Models" || info.Description != "Four triangles" {
		t.Errorf("Unexpected metadata %+v", info)
	}

	response, err := ListAllScenes()
	if err != nil {
		t.Fatalf("ListAllScenes failed: %v", err)
	}
	if len(response.Groups) != 2 || response.Groups[0].Name != BuiltinGroup || response.Groups[1].Name != "Test Models" {
		t.Errorf("Unexpected groups %+v", response.Groups)
	}

	s, err := Load(info.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// Ground quad plus the model
	if s.TriangleCount() != 2+4 {
		t.Errorf("Expected 6 triangles, got %d", s.TriangleCount())
	}
	for _, mesh := range s.Host.Meshes {
		if mesh.TriangleCount() != 4 {
			continue
		}
		bounds := core.NewAABBFromPoints(mesh.Positions...)
		if math.Abs(bounds.Max.Y-2) > 1e-9 || math.Abs(bounds.Min.Y) > 1e-9 {
			t.Errorf("Expected the model scaled to [0, 2] in Y, got %v", bounds)
		}
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"cornell-empty", "Cornell Empty"},
		{"stanford_DRAGON", "Stanford Dragon"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := titleCase(tt.input); got != tt.expected {
			t.Errorf("titleCase(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestCameraConfigOrbit(t *testing.T) {
	c := CameraConfig{Center: core.NewVec3(0, 1, 5), LookAt: core.NewVec3(0, 1, 0), Up: core.NewVec3(0, 1, 0)}

	quarter := c.Orbit(90)
	if math.Abs(quarter.Center.X-5) > 1e-9 || math.Abs(quarter.Center.Z) > 1e-9 || quarter.Center.Y != 1 {
		t.Errorf("Expected (5,1,0) after a quarter turn, got %v", quarter.Center)
	}
	if full := c.Orbit(360); full.Center.Subtract(c.Center).Length() > 1e-9 {
		t.Errorf("Expected a full turn to return to %v, got %v", c.Center, full.Center)
	}
	if quarter.LookAt != c.LookAt {
		t.Errorf("Expected the look-at point to stay fixed, got %v", quarter.LookAt)
	}
}

func TestSceneUploadDrawsFrame(t *testing.T) {
	config := renderer.DefaultConfig()
	config.NumWorkers = 2
	engine := renderer.NewEngine(config)
	defer engine.Close()

	s, err := Load("default", CameraConfig{Width: 32})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := s.Upload(engine, 1, renderer.ViewNormals); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	c, err := engine.Controller(1)
	if err != nil {
		t.Fatalf("Controller failed: %v", err)
	}
	if c.Camera().Mode != renderer.ViewNormals {
		t.Errorf("Expected the normals view, got %v", c.Camera().Mode)
	}

	size := s.CameraConfig.Size()
	target := renderer.NewPixmap(size.X, size.Y, c.Camera().Viewport.Format)
	if err := engine.Draw(1, target, 0); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if len(engine.Store().Lights()) != len(s.Host.Lights) {
		t.Errorf("Expected %d lights in the engine, got %d", len(s.Host.Lights), len(engine.Store().Lights()))
	}
}

func TestFrameAnimation(t *testing.T) {
	s := NewTextureScene(CameraConfig{Width: 32})
	frames := 0
	inner := s.Animate
	s.Animate = func(frame uint32) {
		frames++
		inner(frame)
	}

	camera := s.CameraConfig.Camera()
	camera.Mode = renderer.ViewDepth

	still := s.FrameAnimation(0)(5, camera)
	if still != camera {
		t.Error("Expected the camera to be unchanged without an orbit")
	}

	orbiting := s.FrameAnimation(2)
	if got := orbiting(0, camera); got.Transform != camera.Transform {
		t.Error("Expected frame 0 to keep the default viewpoint")
	}
	moved := orbiting(10, camera)
	if moved.Transform == camera.Transform {
		t.Error("Expected the camera to orbit")
	}
	if moved.Mode != renderer.ViewDepth || moved.Viewport != camera.Viewport {
		t.Errorf("Expected the view mode and viewport to be kept, got %v %v", moved.Mode, moved.Viewport)
	}
	if frames != 3 {
		t.Errorf("Expected Animate to run once per frame, got %d", frames)
	}
}
