// Package scenes contains the built-in demo scenes. Each scene is a host
// snapshot plus a default camera; applying the snapshot's changelog to an
// engine loads it.
package scenes

import (
	"image"
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/extract"
	"github.com/df07/go-realtime-restir/pkg/renderer"
	"github.com/df07/go-realtime-restir/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// CameraConfig describes a scene's default viewpoint
type CameraConfig struct {
	Center      core.Vec3 // Camera position
	LookAt      core.Vec3 // Point the camera looks at
	Up          core.Vec3 // Up direction
	Width       int       // Image width in pixels
	AspectRatio float64   // Width over height
	VFov        float64   // Vertical field of view in degrees
}

// Size returns the viewport size implied by the width and aspect ratio
func (c CameraConfig) Size() image.Point {
	height := int(math.Round(float64(c.Width) / c.AspectRatio))
	return image.Pt(c.Width, max(height, 1))
}

// MergeCameraConfig applies the non-zero fields of override on top of base
func MergeCameraConfig(base, override CameraConfig) CameraConfig {
	result := base
	if !override.Center.IsZero() {
		result.Center = override.Center
	}
	if !override.LookAt.IsZero() {
		result.LookAt = override.LookAt
	}
	if !override.Up.IsZero() {
		result.Up = override.Up
	}
	if override.Width > 0 {
		result.Width = override.Width
	}
	if override.AspectRatio > 0 {
		result.AspectRatio = override.AspectRatio
	}
	if override.VFov > 0 {
		result.VFov = override.VFov
	}
	return result
}

// Orbit returns the configuration with the camera rotated about the vertical
// axis through LookAt
func (c CameraConfig) Orbit(degrees float64) CameraConfig {
	sin, cos := math.Sincos(degrees * math.Pi / 180)
	offset := c.Center.Subtract(c.LookAt)
	rotated := core.NewVec3(offset.X*cos+offset.Z*sin, offset.Y, offset.Z*cos-offset.X*sin)
	c.Center = c.LookAt.Add(rotated)
	return c
}

// Camera builds the renderer camera for the configuration
func (c CameraConfig) Camera() renderer.Camera {
	return renderer.NewLookAtCamera(c.Center, c.LookAt, c.Up, float32(c.VFov), c.Size())
}

// Scene is a built-in scene
type Scene struct {
	Host         extract.HostScene
	CameraConfig CameraConfig

	// Animate, if set, advances animated content such as dynamic image
	// pixels. It must be called between frames, before the engine prepares.
	Animate func(frame uint32)

	nextMesh     scene.MeshID
	nextMaterial scene.MaterialID
	nextImage    scene.ImageID
	nextInstance scene.InstanceID
	nextLight    scene.LightID
}

// NewScene creates an empty scene with the default sun. The first override,
// if any, is merged into the default camera.
func NewScene(defaults CameraConfig, cameraOverrides ...CameraConfig) *Scene {
	cameraConfig := defaults
	if len(cameraOverrides) > 0 {
		cameraConfig = MergeCameraConfig(defaults, cameraOverrides[0])
	}
	return &Scene{Host: extract.NewHostScene(), CameraConfig: cameraConfig}
}

// TriangleCount returns the number of world triangles the scene produces
func (s *Scene) TriangleCount() int {
	count := 0
	for _, inst := range s.Host.Instances {
		count += s.Host.Meshes[inst.Mesh].TriangleCount()
	}
	return count
}

// Changelog returns the changes that load the whole scene into an empty store
func (s *Scene) Changelog() scene.Changelog {
	return extract.NewTracker().Diff(s.Host)
}

// FrameAnimation returns a frame loop hook that advances the scene's animated
// content and, when orbitStep is non-zero, turns the camera orbitStep degrees
// around its look-at point every frame
func (s *Scene) FrameAnimation(orbitStep float64) func(uint32, renderer.Camera) renderer.Camera {
	base := s.CameraConfig
	return func(frame uint32, camera renderer.Camera) renderer.Camera {
		if s.Animate != nil {
			s.Animate(frame)
		}
		if orbitStep == 0 {
			return camera
		}
		orbited := base.Orbit(float64(frame) * orbitStep).Camera()
		orbited.Viewport = camera.Viewport
		orbited.Mode = camera.Mode
		return orbited
	}
}

// Upload loads the scene into an engine and registers its camera under id
func (s *Scene) Upload(engine *renderer.Engine, id renderer.CameraID, mode renderer.ViewMode) error {
	changelog := s.Changelog()
	if err := engine.Apply(&changelog); err != nil {
		return err
	}
	camera := s.CameraConfig.Camera()
	camera.Mode = mode
	return engine.SetCamera(id, camera)
}

// AddMaterial registers a material and returns its id
func (s *Scene) AddMaterial(m scene.Material) scene.MaterialID {
	s.nextMaterial++
	s.Host.Materials[s.nextMaterial] = m
	return s.nextMaterial
}

// AddImage registers a texture and returns its id
func (s *Scene) AddImage(img scene.Image) scene.ImageID {
	s.nextImage++
	s.Host.Images[s.nextImage] = img
	return s.nextImage
}

// AddMesh registers a mesh and returns its id
func (s *Scene) AddMesh(mesh scene.Mesh) scene.MeshID {
	s.nextMesh++
	s.Host.Meshes[s.nextMesh] = mesh
	return s.nextMesh
}

// AddInstance places a mesh in the world
func (s *Scene) AddInstance(mesh scene.MeshID, material scene.MaterialID, transform mgl32.Mat4) scene.InstanceID {
	s.nextInstance++
	s.Host.Instances[s.nextInstance] = scene.Instance{Mesh: mesh, Material: material, Transform: transform}
	return s.nextInstance
}

// AddShape registers a mesh and places it once with the identity transform
func (s *Scene) AddShape(mesh scene.Mesh, material scene.MaterialID) scene.InstanceID {
	return s.AddInstance(s.AddMesh(mesh), material, mgl32.Ident4())
}

// AddPointLight adds a point light
func (s *Scene) AddPointLight(position core.Vec3, radius float64, radiance core.Vec3, lightRange float64) scene.LightID {
	s.nextLight++
	s.Host.Lights[s.nextLight] = scene.NewPointLight(position, radius, radiance, lightRange)
	return s.nextLight
}

// NewGroundQuad creates a horizontal square centered at the given point with
// its normal pointing up (0,1,0)
func NewGroundQuad(center core.Vec3, size float64) scene.Mesh {
	corner := core.NewVec3(center.X-size/2, center.Y, center.Z-size/2)
	// X × Z points down, so the edges run along Z first
	return NewQuadMesh(corner, core.NewVec3(0, 0, size), core.NewVec3(size, 0, 0))
}

// Diffuse returns a rough dielectric material of the given color
func Diffuse(color core.Vec3) scene.Material {
	m := scene.DefaultMaterial()
	m.BaseColor = core.NewVec4(color.X, color.Y, color.Z, 1)
	return m
}

// Metal returns a metallic material of the given color and roughness
func Metal(color core.Vec3, roughness float64) scene.Material {
	m := Diffuse(color)
	m.Metallic = 1
	m.Roughness = roughness
	return m
}

// Emissive returns a black material emitting the given radiance
func Emissive(radiance core.Vec3) scene.Material {
	m := Diffuse(core.Vec3{})
	m.Emissive = radiance
	return m
}

// CopyableUsage is the usage dynamic textures need
const CopyableUsage = gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding
