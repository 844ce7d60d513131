package scenes

import (
	"fmt"
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/loaders"
)

// NewPLYScene loads a PLY model and stands it on a ground plane, scaled to
// two units tall and centered at the origin
func NewPLYScene(path string, cameraOverrides ...CameraConfig) (*Scene, error) {
	mesh, err := loaders.LoadPLY(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load PLY scene: %w", err)
	}
	if len(mesh.Positions) == 0 {
		return nil, fmt.Errorf("failed to load PLY scene: %s has no vertices", path)
	}

	bounds := core.NewAABBFromPoints(mesh.Positions...)
	size := bounds.Max.Subtract(bounds.Min)
	scale := 2.0 / math.Max(size.MaxComponent(), 1e-6)
	center := bounds.Min.Add(bounds.Max).Multiply(0.5)
	for i, p := range mesh.Positions {
		mesh.Positions[i] = core.NewVec3(p.X-center.X, p.Y-bounds.Min.Y, p.Z-center.Z).Multiply(scale)
	}

	s := NewScene(CameraConfig{
		Center:      core.NewVec3(0, 1.8, 4.5),
		LookAt:      core.NewVec3(0, 0.8, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        40.0,
	}, cameraOverrides...)

	s.AddShape(NewGroundQuad(core.Vec3{}, 20), s.AddMaterial(Diffuse(core.NewVec3(0.6, 0.6, 0.6))))
	s.AddShape(mesh, s.AddMaterial(Metal(core.NewVec3(0.8, 0.6, 0.2), 0.4)))

	s.AddPointLight(core.NewVec3(2, 4, 2), 0.1, core.NewVec3(30, 28, 26), 0)
	s.AddPointLight(core.NewVec3(-2.5, 2, 1), 0.1, core.NewVec3(6, 8, 12), 0)
	return s, nil
}
