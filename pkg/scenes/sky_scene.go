package scenes

import (
	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/scene"
)

// NewSkyScene creates an open plain with no point lights, showing only the
// atmosphere with a low sun
func NewSkyScene(cameraOverrides ...CameraConfig) *Scene {
	s := NewScene(CameraConfig{
		Center:      core.NewVec3(0, 1.5, 0),
		LookAt:      core.NewVec3(0, 2.5, -10),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        70.0,
	}, cameraOverrides...)

	s.Host.Sun = scene.Sun{Direction: core.NewVec3(0.2, 0.08, -1).Normalize(), Intensity: 20}
	s.AddShape(NewGroundQuad(core.Vec3{}, 200), s.AddMaterial(Diffuse(core.NewVec3(0.35, 0.3, 0.25))))
	return s
}
