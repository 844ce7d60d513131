package scenes

import (
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
)

// NewDefaultScene creates a ground plane with a box, a pyramid and an
// icosahedron lit by two point lights and the sun
func NewDefaultScene(cameraOverrides ...CameraConfig) *Scene {
	s := NewScene(CameraConfig{
		Center:      core.NewVec3(0, 2, 6), // Position camera to see the meshes
		LookAt:      core.NewVec3(0, 1, 0), // Look at the center of the scene
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        45.0,
	}, cameraOverrides...)

	ground := s.AddMaterial(Diffuse(core.NewVec3(0.7, 0.7, 0.7)))
	red := s.AddMaterial(Diffuse(core.NewVec3(0.8, 0.2, 0.2)))
	blue := s.AddMaterial(Diffuse(core.NewVec3(0.2, 0.3, 0.8)))
	gold := s.AddMaterial(Metal(core.NewVec3(0.8, 0.6, 0.2), 0.3))

	s.AddShape(NewGroundQuad(core.Vec3{}, 20), ground)

	s.AddInstance(s.AddMesh(NewBoxMesh()), red,
		Placement(core.NewVec3(-2, 0.5, 0), math.Pi/6, core.NewVec3(1, 1, 1)))
	s.AddInstance(s.AddMesh(NewPyramidMesh()), blue,
		Placement(core.NewVec3(0, 0, 0), math.Pi/4, core.NewVec3(1.5, 2, 1.5)))
	s.AddInstance(s.AddMesh(NewIcosahedronMesh()), gold,
		Placement(core.NewVec3(2, 0.8, 0), math.Pi/3, core.NewVec3(0.8, 0.8, 0.8)))

	// Warm key light and cool fill light
	s.AddPointLight(core.NewVec3(2, 4, 3), 0.1, core.NewVec3(30, 27, 24), 0)
	s.AddPointLight(core.NewVec3(-3, 3, 2), 0.1, core.NewVec3(10, 12, 14), 0)

	return s
}
