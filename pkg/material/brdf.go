package material

import (
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
)

// minRoughness keeps the GGX lobe from collapsing into a delta
const minRoughness = 0.089

// Params are the surface properties needed to shade a point. They are what
// the G-buffer stores for every pixel.
type Params struct {
	BaseColor   core.Vec3
	Roughness   float64 // Perceptual roughness
	Metallic    float64
	Reflectance float64 // Dielectric reflectance, F0 = 0.16 * reflectance^2
}

// DiffuseColor returns the Lambertian albedo; metals have none
func (p Params) DiffuseColor() core.Vec3 {
	return p.BaseColor.Multiply(1 - p.Metallic)
}

// F0 returns the specular reflectance at normal incidence
func (p Params) F0() core.Vec3 {
	dielectric := 0.16 * p.Reflectance * p.Reflectance
	return core.Splat(dielectric).Multiply(1 - p.Metallic).Add(p.BaseColor.Multiply(p.Metallic))
}

// Evaluate returns the BRDF times the cosine term for light arriving from
// toLight and leaving toward toViewer. All directions are unit vectors
// pointing away from the surface.
func (p Params) Evaluate(normal, toLight, toViewer core.Vec3) core.Vec3 {
	nDotL := normal.Dot(toLight)
	if !(nDotL > 0) {
		return core.Vec3{}
	}

	diffuse := p.DiffuseColor().Multiply(1 / math.Pi)
	return diffuse.Add(p.specular(normal, toLight, toViewer, nDotL)).Multiply(nDotL)
}

// specular evaluates the GGX microfacet lobe with a height-correlated
// Smith visibility term and Schlick Fresnel
func (p Params) specular(normal, toLight, toViewer core.Vec3, nDotL float64) core.Vec3 {
	f0 := p.F0()
	// Fresnel grazing reflectance fades out with F0 so F0 = 0 disables the lobe
	f90 := math.Min(1, 50*0.33*(f0.X+f0.Y+f0.Z))
	if f90 == 0 {
		return core.Vec3{}
	}

	h := toLight.Add(toViewer).Normalize()
	if h.IsZero() {
		return core.Vec3{}
	}
	nDotV := math.Max(normal.Dot(toViewer), 1e-4)
	nDotH := math.Max(normal.Dot(h), 0)
	vDotH := math.Max(toViewer.Dot(h), 0)

	roughness := math.Max(p.Roughness, minRoughness)
	a := roughness * roughness

	d := distributionGGX(nDotH, a)
	v := visibilitySmithGGX(nDotV, nDotL, a)
	fresnel := math.Pow(1-vDotH, 5)
	f := f0.Add(core.Splat(f90).Subtract(f0).Multiply(fresnel))

	return f.Multiply(d * v)
}

func distributionGGX(nDotH, a float64) float64 {
	a2 := a * a
	f := nDotH*nDotH*(a2-1) + 1
	return a2 / (math.Pi * f * f)
}

func visibilitySmithGGX(nDotV, nDotL, a float64) float64 {
	a2 := a * a
	lambdaV := nDotL * math.Sqrt(nDotV*nDotV*(1-a2)+a2)
	lambdaL := nDotV * math.Sqrt(nDotL*nDotL*(1-a2)+a2)
	return 0.5 / (lambdaV + lambdaL)
}
