package renderer

import (
	"image"
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/lights"
	"github.com/df07/go-realtime-restir/pkg/restir"
)

// tracingPass casts primary rays, fills the G-buffer, surface and
// reprojection maps, generates RIS light candidates and traces the raw
// indirect sample of every pixel
type tracingPass struct {
	b *Bindings
}

func (p *tracingPass) Name() string { return "tracing" }

func (p *tracingPass) Bind(bindings *Bindings) { p.b = bindings }

func (p *tracingPass) Run(tile image.Rectangle) {
	b := p.b
	buf := b.Buffers
	for y := tile.Min.Y; y < tile.Max.Y; y++ {
		for x := tile.Min.X; x < tile.Max.X; x++ {
			p.tracePixel(x, y, buf.Index(x, y))
		}
	}
}

func (p *tracingPass) tracePixel(x, y, i int) {
	b := p.b
	buf := b.Buffers
	store := b.Store

	ray := b.Camera.PrimaryRay(x, y)
	hit := store.Trace(ray, math.Inf(1))
	if hit.IsMiss() {
		p.writeSky(i)
		return
	}

	sp := store.Interpolate(ray, hit)
	mat := store.Materials()[sp.Material]
	entry := restir.GBufferEntry{
		BaseColor:   store.BaseColor(sp.Material, sp.UV).XYZ(),
		Emissive:    store.Emissive(sp.Material, sp.UV),
		Normal:      sp.Normal,
		Depth:       b.Camera.LinearDepth(sp.Position),
		Roughness:   mat.Roughness,
		Metallic:    mat.Metallic,
		Reflectance: mat.Reflectance,
	}
	d0, d1 := entry.Pack()
	if d0[2] <= 0 {
		// Closer than float32 resolution; nothing to shade
		p.writeSky(i)
		return
	}

	buf.GBufferD0[i], buf.GBufferD1[i] = d0, d1
	buf.CurrSurfaces()[i] = d0

	// Later passes only see the quantized entry; shade that same entry here
	entry = restir.UnpackGBuffer(d0, d1)
	shading := b.shadingHit(x, y, entry)

	if buf.HasHistory() {
		buf.Reprojection[i] = Reproject(shading.Position, buf.PrevViewProjection(), buf.Size())
	} else {
		buf.Reprojection[i] = restir.Reprojection{}
	}

	noise := b.noise(saltTracing, i)
	buf.Candidates[i] = p.candidates(shading, &noise)
	buf.Indirect[i] = p.indirect(shading, &noise)
}

func (p *tracingPass) writeSky(i int) {
	buf := p.b.Buffers
	buf.GBufferD0[i] = [4]float32{}
	buf.GBufferD1[i] = [4]float32{}
	buf.CurrSurfaces()[i] = [4]float32{}
	buf.Reprojection[i] = restir.Reprojection{}
	buf.Candidates[i] = restir.Reservoir{}
	buf.Indirect[i] = core.Vec3{}
}

// candidates streams CandidatesPerPixel power-sampled lights into a fresh
// reservoir with weight pHat / pSel
func (p *tracingPass) candidates(hit lights.Hit, noise *core.Noise) restir.Reservoir {
	b := p.b
	list := b.Store.Lights()

	var r restir.Reservoir
	for k := 0; k < b.Config.CandidatesPerPixel; k++ {
		index, pSel := b.Lights.Sample(noise.Float())
		if index < 0 || index >= len(list) {
			break
		}
		u := noise.Float()
		if !(pSel > 0) {
			r.M++
			continue
		}
		pHat := lights.TargetPDF(list[index], hit)
		r.Update(restir.Sample{LightID: uint32(index), PHat: pHat}, pHat/pSel, u)
	}
	r.Normalize()
	return r
}

// indirect traces up to IndirectDepth cosine-weighted bounces and returns
// the incoming radiance estimate. Multiplying it by the diffuse albedo of the
// primary surface gives the reflected indirect radiance.
func (p *tracingPass) indirect(primary lights.Hit, noise *core.Noise) core.Vec3 {
	b := p.b
	store := b.Store
	list := store.Lights()

	radiance := core.Vec3{}
	throughput := core.Splat(1)
	origin, normal := primary.Position, primary.Normal

	for bounce := 0; bounce < b.Config.IndirectDepth; bounce++ {
		direction, _ := core.SampleCosineHemisphere(normal, noise.Vec2())
		ray := core.NewSecondaryRay(origin, normal, direction)
		hit := store.Trace(ray, math.Inf(1))
		if hit.IsMiss() {
			radiance = radiance.Add(throughput.MultiplyVec(b.sky(direction)))
			break
		}

		sp := store.Interpolate(ray, hit)
		mat := store.Materials()[sp.Material]
		radiance = radiance.Add(throughput.MultiplyVec(store.Emissive(sp.Material, sp.UV)))

		bounceHit := lights.Hit{
			Position: sp.Position,
			Normal:   sp.Normal,
			ToViewer: direction.Negate(),
		}
		bounceHit.Params.BaseColor = store.BaseColor(sp.Material, sp.UV).XYZ()
		bounceHit.Params.Roughness = mat.Roughness
		bounceHit.Params.Metallic = mat.Metallic
		bounceHit.Params.Reflectance = mat.Reflectance

		// One shadow-tested light sample per bounce
		index, pSel := b.Lights.Sample(noise.Float())
		if index >= 0 && index < len(list) && pSel > 0 {
			light := list[index]
			contribution := lights.Contribution(light, bounceHit)
			if !contribution.IsZero() {
				shadow, tMax := core.NewShadowRay(sp.Position, sp.GeometricNormal, light.Position)
				if !store.Occluded(shadow, tMax) {
					radiance = radiance.Add(throughput.MultiplyVec(contribution).Multiply(1 / pSel))
				}
			}
		}

		throughput = throughput.MultiplyVec(bounceHit.Params.DiffuseColor())
		if throughput.IsZero() {
			break
		}
		origin, normal = sp.Position, sp.Normal
	}

	return radiance
}
