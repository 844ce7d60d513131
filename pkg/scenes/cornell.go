package scenes

import (
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/scene"
)

// NewCornellScene creates a Cornell box lit by a point light under an
// emissive ceiling panel. The box is open toward the camera and the sun is
// off, so only the interior is lit.
func NewCornellScene(cameraOverrides ...CameraConfig) *Scene {
	const boxSize = 5.55

	s := NewScene(CameraConfig{
		Center:      core.NewVec3(boxSize/2, boxSize/2, -8), // Outside the box looking in
		LookAt:      core.NewVec3(boxSize/2, boxSize/2, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 1.0, // Square aspect ratio for Cornell box
		VFov:        40.0,
	}, cameraOverrides...)
	s.Host.Sun = scene.Sun{Direction: core.NewVec3(0, 1, 0), Intensity: 0}

	white := s.AddMaterial(Diffuse(core.NewVec3(0.73, 0.73, 0.73)))
	red := s.AddMaterial(Diffuse(core.NewVec3(0.65, 0.05, 0.05)))
	green := s.AddMaterial(Diffuse(core.NewVec3(0.12, 0.45, 0.15)))
	panel := s.AddMaterial(Emissive(core.NewVec3(15, 15, 15)))

	x := core.NewVec3(boxSize, 0, 0)
	y := core.NewVec3(0, boxSize, 0)
	z := core.NewVec3(0, 0, boxSize)

	// Walls with normals facing into the box
	s.AddShape(NewQuadMesh(core.Vec3{}, z, x), white)                 // Floor
	s.AddShape(NewQuadMesh(core.NewVec3(0, boxSize, 0), x, z), white) // Ceiling
	s.AddShape(NewQuadMesh(core.NewVec3(0, 0, boxSize), y, x), white) // Back wall
	s.AddShape(NewQuadMesh(core.Vec3{}, y, z), red)                   // Left wall
	s.AddShape(NewQuadMesh(core.NewVec3(boxSize, 0, 0), z, y), green) // Right wall

	// Emissive panel slightly below the ceiling, facing down
	lightSize := 1.3
	lightOffset := (boxSize - lightSize) / 2.0
	s.AddShape(NewQuadMesh(
		core.NewVec3(lightOffset, boxSize-0.01, lightOffset),
		core.NewVec3(lightSize, 0, 0),
		core.NewVec3(0, 0, lightSize),
	), panel)

	// The point light stands in for the panel's emission
	s.AddPointLight(core.NewVec3(boxSize/2, boxSize-0.3, boxSize/2), 0.05, core.NewVec3(40, 40, 40), 0)

	box := s.AddMesh(NewBoxMesh())
	s.AddInstance(box, white, Placement(core.NewVec3(1.85, 1.65, 3.5), -math.Pi/10, core.NewVec3(1.65, 3.3, 1.65)))
	s.AddInstance(box, white, Placement(core.NewVec3(3.7, 0.825, 1.7), math.Pi/12, core.NewVec3(1.65, 1.65, 1.65)))

	return s
}
