package scenes

import (
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
)

// oklchToRGB converts OKLCH color values to RGB
// L: lightness (0-1), C: chroma (0-0.4+), H: hue (0-360 degrees)
func oklchToRGB(l, c, h float64) core.Vec3 {
	// Convert hue from degrees to radians
	hRad := h * math.Pi / 180.0

	// Convert from OKLCH to OKLAB
	a := c * math.Cos(hRad)
	b := c * math.Sin(hRad)

	// Convert from OKLAB to linear RGB
	// Using simplified approximation for OKLAB to RGB conversion
	// This is not perfectly accurate but good enough for our purposes

	// First convert to LMS
	l_ := l + 0.3963377774*a + 0.2158037573*b
	m_ := l - 0.1055613458*a - 0.0638541728*b
	s_ := l - 0.0894841775*a - 1.2914855480*b

	// Cube the values
	l_ = l_ * l_ * l_
	m_ = m_ * m_ * m_
	s_ = s_ * s_ * s_

	// Convert LMS to linear RGB
	r := +4.0767416621*l_ - 3.3077115913*m_ + 0.2309699292*s_
	g := -1.2684380046*l_ + 2.6097574011*m_ - 0.3413193965*s_
	blue := -0.0041960863*l_ - 0.7034186147*m_ + 1.7076147010*s_

	// Clamp to [0, 1] range
	r = math.Max(0, math.Min(1, r))
	g = math.Max(0, math.Min(1, g))
	blue = math.Max(0, math.Min(1, blue))

	return core.NewVec3(r, g, blue)
}

// NewSphereGridScene creates a grid of spheres lit by a ring of many small
// colored point lights
func NewSphereGridScene(cameraOverrides ...CameraConfig) *Scene {
	s := NewScene(CameraConfig{
		Center:      core.NewVec3(4.5, 6, 18), // Position camera farther back and slightly lower
		LookAt:      core.NewVec3(4.5, 0.8, 4.5),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        40.0,
	}, cameraOverrides...)

	// Dim evening sun so the point lights dominate
	s.Host.Sun.Intensity = 1.0

	s.AddShape(NewGroundQuad(core.NewVec3(4.5, 0, 4.5), 40), s.AddMaterial(Diffuse(core.NewVec3(0.5, 0.5, 0.5))))

	gridSize := 8
	targetArea := 9.0
	spacing := targetArea / float64(gridSize-1)
	sphereRadius := math.Min(0.35, spacing*0.35)

	// OKLCH parameters for color variation
	baseLightness := 0.65
	minChroma := 0.05
	maxChroma := 0.25

	sphere := s.AddMesh(NewSphereMesh(12, 24))
	for i := 0; i < gridSize; i++ {
		for j := 0; j < gridSize; j++ {
			x := float64(i)*spacing - targetArea/2.0 + 4.5
			z := float64(j)*spacing - targetArea/2.0 + 4.5

			// Hue across X, chroma across Z
			hue := (float64(i) / float64(gridSize-1)) * 360.0
			chroma := minChroma + (float64(j)/float64(gridSize-1))*(maxChroma-minChroma)
			lightness := baseLightness + 0.1*math.Sin(float64(i+j)*0.5)

			m := Metal(oklchToRGB(lightness, chroma, hue), 0.05+0.1*float64((i+j)%3)/2.0)
			m.Metallic = float64(j) / float64(gridSize-1)

			s.AddInstance(sphere, s.AddMaterial(m),
				Placement(core.NewVec3(x, sphereRadius, z), 0, core.NewVec3(sphereRadius, sphereRadius, sphereRadius)))
		}
	}

	// Ring of ranged lights above the grid
	lightCount := 32
	for k := 0; k < lightCount; k++ {
		angle := 2 * math.Pi * float64(k) / float64(lightCount)
		radius := 3.0 + 2.0*float64(k%2)
		position := core.NewVec3(4.5+radius*math.Cos(angle), 1.2+0.4*float64(k%3), 4.5+radius*math.Sin(angle))
		color := oklchToRGB(0.8, 0.15, 360*float64(k)/float64(lightCount))
		s.AddPointLight(position, 0.05, color.Multiply(6), 5)
	}

	return s
}
