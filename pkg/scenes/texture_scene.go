package scenes

import (
	"image"
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/scene"
)

// NewTextureScene creates a row of textured shapes: a checkerboard floor,
// gradient and UV debug textures, an alpha-masked cutout and an animated
// emissive screen backed by a dynamic image
func NewTextureScene(cameraOverrides ...CameraConfig) *Scene {
	s := NewScene(CameraConfig{
		Center:      core.NewVec3(0, 2, 8),
		LookAt:      core.NewVec3(0, 1, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        50.0, // Wider FOV to see all shapes
	}, cameraOverrides...)

	checker := s.AddImage(scene.Image{
		Data:  NewCheckerboardImage(256, 256, 32, core.NewVec3(0.9, 0.9, 0.9), core.NewVec3(0.2, 0.2, 0.8)),
		Usage: CopyableUsage,
	})
	gradient := s.AddImage(scene.Image{
		Data:  NewGradientImage(64, 64, core.NewVec3(1.0, 0.2, 0.2), core.NewVec3(0.2, 1.0, 0.2)),
		Usage: CopyableUsage,
	})
	uvDebug := s.AddImage(scene.Image{Data: NewUVDebugImage(64, 64), Usage: CopyableUsage})
	cutout := s.AddImage(scene.Image{Data: NewCutoutImage(64), Usage: CopyableUsage})

	screenPixels := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	paintScreen(screenPixels, 0)
	screen := s.AddImage(scene.Image{Data: screenPixels, Usage: CopyableUsage, Dynamic: true})

	textured := func(id scene.ImageID) scene.Material {
		m := Diffuse(core.NewVec3(1, 1, 1))
		m.BaseColorTexture = &id
		return m
	}

	floor := textured(checker)
	s.AddShape(NewGroundQuad(core.Vec3{}, 16), s.AddMaterial(floor))

	s.AddInstance(s.AddMesh(NewBoxMesh()), s.AddMaterial(textured(gradient)),
		Placement(core.NewVec3(-3, 0.8, 0), math.Pi/8, core.NewVec3(1.6, 1.6, 1.6)))
	s.AddInstance(s.AddMesh(NewSphereMesh(16, 32)), s.AddMaterial(textured(uvDebug)),
		Placement(core.NewVec3(-0.8, 1, 0), 0, core.NewVec3(1, 1, 1)))

	leaf := textured(cutout)
	leaf.BaseColor = core.NewVec4(0.3, 0.7, 0.2, 1)
	leaf.AlphaMode = scene.AlphaMask
	leaf.AlphaCutoff = 0.5
	s.AddShape(NewQuadMesh(core.NewVec3(0.6, 0.2, 0.5), core.NewVec3(1.6, 0, 0), core.NewVec3(0, 1.6, 0)), s.AddMaterial(leaf))

	display := Emissive(core.NewVec3(2, 2, 2))
	display.EmissiveTexture = &screen
	s.AddShape(NewQuadMesh(core.NewVec3(2.6, 0.3, -0.5), core.NewVec3(1.8, 0, 0.4), core.NewVec3(0, 1.4, 0)), s.AddMaterial(display))

	s.AddPointLight(core.NewVec3(0, 5, 3), 0.1, core.NewVec3(40, 38, 36), 0)

	s.Animate = func(frame uint32) {
		paintScreen(screenPixels, frame)
	}
	return s
}

// paintScreen draws scrolling diagonal stripes
func paintScreen(img *image.NRGBA, frame uint32) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			phase := float64(x+y+int(frame)) * 2 * math.Pi / 16
			c := core.NewVec3(0.5+0.5*math.Sin(phase), 0.5+0.5*math.Sin(phase+2), 0.5+0.5*math.Sin(phase+4))
			img.SetNRGBA(x, y, toNRGBA(c, 1))
		}
	}
}
