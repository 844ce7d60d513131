package renderer

import (
	"image"
	"math"
	"testing"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/lights"
	"github.com/df07/go-realtime-restir/pkg/restir"
	"github.com/df07/go-realtime-restir/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	planeCamera CameraID = 1
	planeAlbedo          = 0.8
)

// testConfig returns a small deterministic configuration without indirect bounces
func testConfig() Config {
	config := DefaultConfig()
	config.NumWorkers = 2
	config.IndirectDepth = 0
	return config
}

// planeChangelog builds a 20x20 diffuse plane at y=0 lit by the given lights
func planeChangelog(lightList ...scene.Light) *scene.Changelog {
	var changes scene.Changelog
	changes.Meshes.Set(1, scene.Mesh{
		Positions: []core.Vec3{
			core.NewVec3(-1, 0, -1), core.NewVec3(1, 0, -1),
			core.NewVec3(1, 0, 1), core.NewVec3(-1, 0, 1),
		},
		Indices: []uint32{0, 2, 1, 0, 3, 2},
	})
	changes.Materials.Set(1, scene.Material{
		BaseColor:   core.NewVec4(planeAlbedo, planeAlbedo, planeAlbedo, 1),
		Roughness:   1,
		AlphaCutoff: 0.5,
		IOR:         1,
	})
	changes.Instances.Set(1, scene.Instance{Mesh: 1, Material: 1, Transform: mgl32.Scale3D(10, 1, 10)})
	for i, light := range lightList {
		changes.Lights.Set(scene.LightID(i+1), light)
	}
	return &changes
}

// topDownCamera looks straight down at the origin from the given height
func topDownCamera(size int, height float64) Camera {
	return NewLookAtCamera(core.NewVec3(0, height, 0), core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1), 60, image.Pt(size, size))
}

// newTestEngine creates an engine with the scene applied and one camera
func newTestEngine(t *testing.T, config Config, changes *scene.Changelog, camera Camera) *Engine {
	t.Helper()
	engine := NewEngine(config)
	t.Cleanup(engine.Close)

	if err := engine.Apply(changes); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := engine.SetCamera(planeCamera, camera); err != nil {
		t.Fatalf("SetCamera failed: %v", err)
	}
	return engine
}

// drawFrames resolves frames [first, first+count) without a target
func drawFrames(t *testing.T, engine *Engine, first, count uint32) {
	t.Helper()
	for frame := first; frame < first+count; frame++ {
		if err := engine.Draw(planeCamera, nil, frame); err != nil {
			t.Fatalf("Draw frame %d failed: %v", frame, err)
		}
	}
}

// planeHit intersects a camera pixel ray with the plane y=0
func planeHit(camera Camera, x, y int) core.Vec3 {
	ray := camera.PrimaryRay(x, y)
	return ray.At(-ray.Origin.Y / ray.Direction.Y)
}

// analyticDiffuse is the Lambertian radiance of the plane at p due to a
// point light without range windowing
func analyticDiffuse(p core.Vec3, light scene.Light) float64 {
	toLight := light.Position.Subtract(p)
	distSq := math.Max(toLight.LengthSquared(), light.Radius*light.Radius)
	cos := toLight.Y / toLight.Length()
	return planeAlbedo / math.Pi * light.Radiance.X * cos / distSq
}

// directReference sums the unshadowed contribution of every light at each
// pixel's G-buffer surface
func directReference(engine *Engine, buf *CameraBuffers, camera Camera) []float64 {
	bindings := Bindings{Store: engine.Store(), Camera: camera}
	size := buf.Size()
	reference := make([]float64, size.X*size.Y)
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			i := buf.Index(x, y)
			hit := bindings.shadingHit(x, y, restir.UnpackGBuffer(buf.GBufferD0[i], buf.GBufferD1[i]))
			for _, light := range engine.Store().Lights() {
				reference[i] += lights.Contribution(light, hit).X
			}
		}
	}
	return reference
}

// meanErrors returns the mean absolute and mean signed relative error of the
// red channel of radiance against reference
func meanErrors(radiance []core.Vec3, reference []float64) (absolute, signed float64) {
	for i := range reference {
		absolute += relativeError(radiance[i].X, reference[i])
		signed += (radiance[i].X - reference[i]) / reference[i]
	}
	n := float64(len(reference))
	return absolute / n, signed / n
}

func relativeError(got, expected float64) float64 {
	if expected == 0 {
		return math.Abs(got)
	}
	return math.Abs(got-expected) / math.Abs(expected)
}

// translation returns a camera-space translation matrix
func translation(x, y, z float64) mgl32.Mat4 {
	return mgl32.Translate3D(float32(x), float32(y), float32(z))
}
