package scene

import (
	"image"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// Stable identifiers assigned by the host for each entity kind
type (
	MeshID     uint64
	MaterialID uint64
	ImageID    uint64
	InstanceID uint64
	LightID    uint64
)

// Mesh is an indexed triangle list in object space. Normals and UVs are
// optional; when present they have one entry per position.
type Mesh struct {
	Positions []core.Vec3
	Normals   []core.Vec3
	UVs       []core.Vec2
	Indices   []uint32 // Three entries per triangle
}

// TriangleCount returns the number of triangles described by the index list
func (m Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// AlphaMode selects how a material's base alpha affects visibility
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota // Alpha is ignored
	AlphaMask                    // Texels with alpha below the cutoff are skipped
	AlphaBlend                   // Texels with alpha below one half are skipped
)

// String returns the name of the alpha mode
func (a AlphaMode) String() string {
	switch a {
	case AlphaOpaque:
		return "opaque"
	case AlphaMask:
		return "mask"
	case AlphaBlend:
		return "blend"
	default:
		return "unknown"
	}
}

// Material describes a metallic-roughness surface
type Material struct {
	BaseColor        core.Vec4 // Linear RGBA
	BaseColorTexture *ImageID  // Optional texture multiplied into BaseColor
	Emissive         core.Vec3 // Linear emitted radiance
	EmissiveTexture  *ImageID  // Optional texture multiplied into Emissive
	Roughness        float64   // Perceptual roughness in [0, 1]
	Metallic         float64   // 0 for dielectrics, 1 for metals
	Reflectance      float64   // Dielectric specular reflectance in [0, 1]
	AlphaMode        AlphaMode
	AlphaCutoff      float64 // Used by AlphaMask
	IOR              float64 // Index of refraction; values above one override Reflectance
}

// DefaultMaterial returns a white, fully rough dielectric
func DefaultMaterial() Material {
	return Material{
		BaseColor:   core.NewVec4(1, 1, 1, 1),
		Roughness:   1.0,
		Reflectance: 0.5,
		AlphaCutoff: 0.5,
		IOR:         1.0,
	}
}

// Image is a texture supplied by the host. Dynamic images are re-read every
// frame and therefore need to be copyable on the GPU side.
type Image struct {
	Data    image.Image
	Usage   gputypes.TextureUsage
	Dynamic bool
}

// Instance places a mesh in the world with a material
type Instance struct {
	Mesh      MeshID
	Material  MaterialID
	Transform mgl32.Mat4 // World-from-object
}

// LightType tags the emitter kind of a light
type LightType int

const (
	LightTypePoint LightType = iota
)

// String returns the name of the light type
func (t LightType) String() string {
	switch t {
	case LightTypePoint:
		return "point"
	default:
		return "unknown"
	}
}

// Light is an analytic emitter. Radiance is the emitted intensity per
// steradian; Range bounds the light's influence when positive.
type Light struct {
	Type     LightType
	Position core.Vec3
	Radius   float64
	Radiance core.Vec3
	Range    float64
}

// NewPointLight creates a point light
func NewPointLight(position core.Vec3, radius float64, radiance core.Vec3, lightRange float64) Light {
	return Light{
		Type:     LightTypePoint,
		Position: position,
		Radius:   radius,
		Radiance: radiance,
		Range:    lightRange,
	}
}

// Sun drives the atmosphere. Direction points from the scene toward the sun.
type Sun struct {
	Direction core.Vec3
	Intensity float64
}

// DefaultSun returns a mid-morning sun
func DefaultSun() Sun {
	return Sun{Direction: core.NewVec3(0.4, 0.75, 0.3).Normalize(), Intensity: 10.0}
}

// Triangle is a compiled world-space triangle with its shading attributes
type Triangle struct {
	Positions [3]core.Vec3
	Normals   [3]core.Vec3
	UVs       [3]core.Vec2
	Material  uint32 // Index into the compiled material table
}

// CompiledMaterial is a material with texture references resolved to atlas slots
type CompiledMaterial struct {
	BaseColor     core.Vec4
	BaseColorSlot int // Atlas slot, -1 when untextured
	Emissive      core.Vec3
	EmissiveSlot  int // Atlas slot, -1 when untextured
	Roughness     float64
	Metallic      float64
	Reflectance   float64
	AlphaMode     AlphaMode
	AlphaCutoff   float64
}
