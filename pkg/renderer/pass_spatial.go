package renderer

import (
	"image"
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/restir"
)

// spatialPass merges each pixel's reservoir with reservoirs of similar
// neighbors. Neighbors are reweighted with the target density at the
// receiving pixel but not shadow tested there, so the result is biased near
// occluders and converges as history accumulates.
type spatialPass struct {
	b *Bindings
}

func (p *spatialPass) Name() string { return "spatial" }

func (p *spatialPass) Bind(bindings *Bindings) { p.b = bindings }

func (p *spatialPass) Run(tile image.Rectangle) {
	b := p.b
	buf := b.Buffers
	cfg := b.Config
	curr := buf.CurrReservoirs()
	next := buf.NextReservoirs()
	surfaces := buf.CurrSurfaces()
	numLights := len(b.Store.Lights())

	for y := tile.Min.Y; y < tile.Max.Y; y++ {
		for x := tile.Min.X; x < tile.Max.X; x++ {
			i := buf.Index(x, y)
			r := curr[i]

			entry := restir.UnpackGBuffer(buf.GBufferD0[i], buf.GBufferD1[i])
			if entry.IsSky() || cfg.SpatialRadius <= 0 || cfg.SpatialSamples <= 0 {
				next[i] = r
				continue
			}

			surface := entry.Surface()
			hit := b.shadingHit(x, y, entry)
			noise := b.noise(saltSpatial, i)

			merged := false
			for k := 0; k < cfg.SpatialSamples; k++ {
				offset := core.SamplePointInUnitDisk(noise.Vec2()).Multiply(cfg.SpatialRadius)
				u := noise.Float()
				nx := x + int(math.Round(offset.X))
				ny := y + int(math.Round(offset.Y))
				if (nx == x && ny == y) || !buf.Contains(nx, ny) {
					continue
				}

				j := buf.Index(nx, ny)
				neighbor := curr[j]
				if neighbor.M == 0 || int(neighbor.Sample.LightID) >= numLights {
					continue
				}
				if !cfg.Similarity.CanReuse(surface, restir.UnpackSurface(surfaces[j])) {
					continue
				}

				r.Merge(neighbor, b.targetPDF(neighbor.Sample.LightID, hit), u)
				merged = true
			}

			if merged {
				r.Normalize()
				r.ClampM(cfg.MaxHistory)
			}
			next[i] = r
		}
	}
}
