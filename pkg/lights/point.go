package lights

import (
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/material"
	"github.com/df07/go-realtime-restir/pkg/scene"
)

// Hit is the receiving surface a light is evaluated against
type Hit struct {
	Position core.Vec3
	Normal   core.Vec3 // Shading normal, facing the viewer
	ToViewer core.Vec3 // Unit direction from the surface toward the eye
	Params   material.Params
}

// Incident returns the unoccluded irradiance factor arriving at point from
// the light along with the unit direction toward it. A point light's
// intensity falls off with the squared distance, clamped at its radius, and
// is windowed to zero at its range when the range is positive.
func Incident(light scene.Light, point core.Vec3) (core.Vec3, core.Vec3) {
	toLight := light.Position.Subtract(point)
	distSq := toLight.LengthSquared()
	if distSq == 0 {
		return core.Vec3{}, core.Vec3{}
	}
	dir := toLight.Multiply(1 / math.Sqrt(distSq))

	falloff := 1 / math.Max(distSq, light.Radius*light.Radius)
	if light.Range > 0 {
		falloff *= rangeWindow(distSq, light.Range)
	}
	return light.Radiance.Multiply(falloff), dir
}

// rangeWindow smoothly fades a light to zero at its range
func rangeWindow(distSq, lightRange float64) float64 {
	ratio := distSq / (lightRange * lightRange)
	w := math.Max(0, 1-ratio*ratio)
	return w * w
}

// Contribution returns the reflected radiance toward the viewer due to the
// light, ignoring visibility
func Contribution(light scene.Light, hit Hit) core.Vec3 {
	incident, toLight := Incident(light, hit.Position)
	if incident.IsZero() {
		return core.Vec3{}
	}
	return hit.Params.Evaluate(hit.Normal, toLight, hit.ToViewer).MultiplyVec(incident)
}

// TargetPDF is the unnormalized target density used for resampling: the
// luminance of the light's unshadowed contribution
func TargetPDF(light scene.Light, hit Hit) float64 {
	return Contribution(light, hit).Luminance()
}
