// Package atmosphere provides a precomputed single-scattering sky model used
// when rays leave the scene.
package atmosphere

import (
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
)

// Config describes the planet, its atmosphere and the lookup table sizes.
// Distances are in kilometers, scattering coefficients per kilometer.
type Config struct {
	PlanetRadius     float64 // Radius of the ground sphere
	AtmosphereRadius float64 // Radius of the top of the atmosphere
	ViewHeight       float64 // Observer altitude above the ground

	RayleighScattering  core.Vec3 // Rayleigh scattering coefficient at sea level
	RayleighScaleHeight float64   // Exponential falloff height of Rayleigh particles
	MieScattering       float64   // Mie scattering coefficient at sea level
	MieExtinction       float64   // Mie extinction coefficient at sea level
	MieScaleHeight      float64   // Exponential falloff height of Mie particles
	MieG                float64   // Henyey-Greenstein asymmetry of Mie scattering

	SunAngularRadius float64 // Half-angle of the sun disk in radians
	SunDiskScale     float64 // Radiance of the sun disk relative to the sun intensity

	TransmittanceWidth  int // Transmittance LUT resolution along view zenith
	TransmittanceHeight int // Transmittance LUT resolution along altitude
	SkyZenithSize       int // Sky LUT resolution along view zenith
	SkyAzimuthSize      int // Sky LUT resolution along relative azimuth
	SkySunSize          int // Sky LUT resolution along sun zenith
	IntegrationSteps    int // Ray-march steps per LUT texel
}

// DefaultConfig returns an Earth-like atmosphere
func DefaultConfig() Config {
	return Config{
		PlanetRadius:     6360.0,
		AtmosphereRadius: 6460.0,
		ViewHeight:       0.2,

		RayleighScattering:  core.NewVec3(5.802e-3, 13.558e-3, 33.1e-3),
		RayleighScaleHeight: 8.0,
		MieScattering:       3.996e-3,
		MieExtinction:       4.40e-3,
		MieScaleHeight:      1.2,
		MieG:                0.8,

		SunAngularRadius: 0.00935 / 2,
		SunDiskScale:     20.0,

		TransmittanceWidth:  64,
		TransmittanceHeight: 32,
		SkyZenithSize:       32,
		SkyAzimuthSize:      32,
		SkySunSize:          16,
		IntegrationSteps:    24,
	}
}

// Model holds the precomputed lookup tables. It is never mutated after New
// returns, so Sample may be called from any number of goroutines.
type Model struct {
	config        Config
	transmittance []core.Vec3 // [height][zenith]
	sky           []core.Vec3 // [sun][azimuth][zenith]
	cosSunRadius  float64
}

// New precomputes the transmittance and sky-view tables for the config
func New(config Config) *Model {
	m := &Model{
		config:       config,
		cosSunRadius: math.Cos(config.SunAngularRadius),
	}
	m.transmittance = make([]core.Vec3, config.TransmittanceWidth*config.TransmittanceHeight)
	for y := 0; y < config.TransmittanceHeight; y++ {
		r := config.PlanetRadius + texelCenter(y, config.TransmittanceHeight)*(config.AtmosphereRadius-config.PlanetRadius)
		for x := 0; x < config.TransmittanceWidth; x++ {
			mu := texelCenter(x, config.TransmittanceWidth)*2 - 1
			m.transmittance[y*config.TransmittanceWidth+x] = m.integrateTransmittance(r, mu)
		}
	}

	m.sky = make([]core.Vec3, config.SkySunSize*config.SkyAzimuthSize*config.SkyZenithSize)
	for s := 0; s < config.SkySunSize; s++ {
		muSun := texelCenter(s, config.SkySunSize)*2 - 1
		for a := 0; a < config.SkyAzimuthSize; a++ {
			phi := texelCenter(a, config.SkyAzimuthSize) * math.Pi
			for z := 0; z < config.SkyZenithSize; z++ {
				mu := decodeZenith(texelCenter(z, config.SkyZenithSize))
				m.sky[m.skyIndex(s, a, z)] = m.integrateSky(mu, muSun, phi)
			}
		}
	}

	return m
}

// Sample returns the radiance seen along rayDirection for a sun shining from
// sunDirection with the given intensity. Directions need not be normalized;
// zero-length inputs return black.
func (m *Model) Sample(sunDirection, rayDirection core.Vec3, intensity float64) core.Vec3 {
	if sunDirection.IsZero() || rayDirection.IsZero() || intensity <= 0 {
		return core.Vec3{}
	}
	sun := sunDirection.Normalize()
	dir := rayDirection.Normalize()

	phi := relativeAzimuth(sun, dir)
	radiance := m.lookupSky(dir.Y, sun.Y, phi).Multiply(intensity)

	if dir.Dot(sun) >= m.cosSunRadius {
		r := m.config.PlanetRadius + m.config.ViewHeight
		if !m.hitsGround(r, dir.Y) {
			disk := m.lookupTransmittance(r, dir.Y).Multiply(intensity * m.config.SunDiskScale)
			radiance = radiance.Add(disk)
		}
	}

	return radiance
}

// Transmittance returns the fraction of light that reaches the observer from
// the top of the atmosphere along direction
func (m *Model) Transmittance(direction core.Vec3) core.Vec3 {
	if direction.IsZero() {
		return core.Vec3{}
	}
	r := m.config.PlanetRadius + m.config.ViewHeight
	return m.lookupTransmittance(r, direction.Normalize().Y)
}

// density returns the Rayleigh and Mie particle densities at altitude h
func (m *Model) density(h float64) (float64, float64) {
	return math.Exp(-h / m.config.RayleighScaleHeight), math.Exp(-h / m.config.MieScaleHeight)
}

// extinction returns the total extinction coefficient at altitude h
func (m *Model) extinction(h float64) core.Vec3 {
	rayleigh, mie := m.density(h)
	return m.config.RayleighScattering.Multiply(rayleigh).Add(core.Splat(m.config.MieExtinction * mie))
}

// distanceToTop returns the distance from radius r along cosine mu to the top
// of the atmosphere
func (m *Model) distanceToTop(r, mu float64) float64 {
	disc := r*r*(mu*mu-1) + m.config.AtmosphereRadius*m.config.AtmosphereRadius
	return math.Max(0, -r*mu+math.Sqrt(math.Max(0, disc)))
}

// hitsGround reports whether a ray from radius r along cosine mu hits the planet
func (m *Model) hitsGround(r, mu float64) bool {
	if mu >= 0 {
		return false
	}
	return r*r*(mu*mu-1)+m.config.PlanetRadius*m.config.PlanetRadius >= 0
}

// distanceToGround returns the distance to the planet surface, assuming hitsGround
func (m *Model) distanceToGround(r, mu float64) float64 {
	disc := r*r*(mu*mu-1) + m.config.PlanetRadius*m.config.PlanetRadius
	return math.Max(0, -r*mu-math.Sqrt(math.Max(0, disc)))
}

func (m *Model) integrateTransmittance(r, mu float64) core.Vec3 {
	if m.hitsGround(r, mu) {
		return core.Vec3{}
	}

	steps := m.config.IntegrationSteps
	length := m.distanceToTop(r, mu)
	dt := length / float64(steps)
	var depth core.Vec3
	for i := 0; i < steps; i++ {
		t := (float64(i) + 0.5) * dt
		h := math.Sqrt(r*r+t*t+2*r*mu*t) - m.config.PlanetRadius
		depth = depth.Add(m.extinction(h).Multiply(dt))
	}
	return expNegative(depth)
}

// integrateSky marches a view ray from the observer and accumulates single
// scattered sunlight for a unit-intensity sun
func (m *Model) integrateSky(mu, muSun, phi float64) core.Vec3 {
	r := m.config.PlanetRadius + m.config.ViewHeight

	sinView := math.Sqrt(math.Max(0, 1-mu*mu))
	sinSun := math.Sqrt(math.Max(0, 1-muSun*muSun))
	view := core.NewVec3(sinView, mu, 0)
	sun := core.NewVec3(sinSun*math.Cos(phi), muSun, sinSun*math.Sin(phi))
	cosTheta := view.Dot(sun)
	phaseR := rayleighPhase(cosTheta)
	phaseM := henyeyGreenstein(cosTheta, m.config.MieG)

	var length float64
	if m.hitsGround(r, mu) {
		length = m.distanceToGround(r, mu)
	} else {
		length = m.distanceToTop(r, mu)
	}

	steps := m.config.IntegrationSteps
	dt := length / float64(steps)
	origin := core.NewVec3(0, r, 0)

	var depth, inscatter core.Vec3
	for i := 0; i < steps; i++ {
		t := (float64(i) + 0.5) * dt
		p := origin.Add(view.Multiply(t))
		rp := p.Length()
		h := rp - m.config.PlanetRadius

		rayleigh, mie := m.density(h)
		ext := m.extinction(h)
		viewTransmittance := expNegative(depth.Add(ext.Multiply(dt * 0.5)))
		sunTransmittance := m.lookupTransmittance(rp, p.Dot(sun)/rp)

		scattering := m.config.RayleighScattering.Multiply(rayleigh * phaseR).
			Add(core.Splat(m.config.MieScattering * mie * phaseM))
		inscatter = inscatter.Add(viewTransmittance.MultiplyVec(sunTransmittance).MultiplyVec(scattering).Multiply(dt))
		depth = depth.Add(ext.Multiply(dt))
	}
	return inscatter
}

func (m *Model) lookupTransmittance(r, mu float64) core.Vec3 {
	u := (mu + 1) * 0.5
	v := (r - m.config.PlanetRadius) / (m.config.AtmosphereRadius - m.config.PlanetRadius)
	w, h := m.config.TransmittanceWidth, m.config.TransmittanceHeight

	x0, x1, fx := texelCoords(u, w)
	y0, y1, fy := texelCoords(v, h)
	top := m.transmittance[y0*w+x0].Lerp(m.transmittance[y0*w+x1], fx)
	bottom := m.transmittance[y1*w+x0].Lerp(m.transmittance[y1*w+x1], fx)
	return top.Lerp(bottom, fy)
}

func (m *Model) lookupSky(mu, muSun, phi float64) core.Vec3 {
	z0, z1, fz := texelCoords(encodeZenith(mu), m.config.SkyZenithSize)
	a0, a1, fa := texelCoords(phi/math.Pi, m.config.SkyAzimuthSize)
	s0, s1, fs := texelCoords((muSun+1)*0.5, m.config.SkySunSize)

	slice := func(s int) core.Vec3 {
		near := m.sky[m.skyIndex(s, a0, z0)].Lerp(m.sky[m.skyIndex(s, a0, z1)], fz)
		far := m.sky[m.skyIndex(s, a1, z0)].Lerp(m.sky[m.skyIndex(s, a1, z1)], fz)
		return near.Lerp(far, fa)
	}
	return slice(s0).Lerp(slice(s1), fs)
}

func (m *Model) skyIndex(s, a, z int) int {
	return (s*m.config.SkyAzimuthSize+a)*m.config.SkyZenithSize + z
}

// relativeAzimuth returns the angle in [0, pi] between the horizontal
// projections of the two directions
func relativeAzimuth(sun, dir core.Vec3) float64 {
	sx, sz := sun.X, sun.Z
	dx, dz := dir.X, dir.Z
	sl := math.Hypot(sx, sz)
	dl := math.Hypot(dx, dz)
	if sl == 0 || dl == 0 {
		return 0
	}
	c := (sx*dx + sz*dz) / (sl * dl)
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// encodeZenith maps a view zenith cosine to [0, 1], concentrating texels
// around the horizon
func encodeZenith(mu float64) float64 {
	mu = math.Max(-1, math.Min(1, mu))
	if mu < 0 {
		return 0.5 - 0.5*math.Sqrt(-mu)
	}
	return 0.5 + 0.5*math.Sqrt(mu)
}

func decodeZenith(u float64) float64 {
	x := 2*u - 1
	if x < 0 {
		return -x * x
	}
	return x * x
}

func texelCenter(i, n int) float64 {
	return (float64(i) + 0.5) / float64(n)
}

// texelCoords converts a normalized coordinate to the two neighbouring texel
// indices and the blend factor between them
func texelCoords(u float64, n int) (int, int, float64) {
	x := u*float64(n) - 0.5
	if !(x > 0) {
		return 0, 0, 0
	}
	if x >= float64(n-1) {
		return n - 1, n - 1, 0
	}
	i := int(x)
	return i, i + 1, x - float64(i)
}

func rayleighPhase(cosTheta float64) float64 {
	return 3.0 / (16.0 * math.Pi) * (1 + cosTheta*cosTheta)
}

func henyeyGreenstein(cosTheta, g float64) float64 {
	denom := 1 + g*g - 2*g*cosTheta
	return (1 - g*g) / (4 * math.Pi * denom * math.Sqrt(denom))
}

func expNegative(v core.Vec3) core.Vec3 {
	return core.NewVec3(math.Exp(-v.X), math.Exp(-v.Y), math.Exp(-v.Z))
}
