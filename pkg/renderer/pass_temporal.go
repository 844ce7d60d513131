package renderer

import (
	"image"

	"github.com/df07/go-realtime-restir/pkg/restir"
)

// temporalPass merges each pixel's fresh candidates with the reservoir its
// surface owned in the previous frame
type temporalPass struct {
	b *Bindings
}

func (p *temporalPass) Name() string { return "temporal" }

func (p *temporalPass) Bind(bindings *Bindings) { p.b = bindings }

func (p *temporalPass) Run(tile image.Rectangle) {
	b := p.b
	buf := b.Buffers
	curr := buf.CurrReservoirs()
	prev := buf.PrevReservoirs()
	maxHistory := b.Config.MaxHistory

	for y := tile.Min.Y; y < tile.Max.Y; y++ {
		for x := tile.Min.X; x < tile.Max.X; x++ {
			i := buf.Index(x, y)
			entry := restir.UnpackGBuffer(buf.GBufferD0[i], buf.GBufferD1[i])
			if entry.IsSky() {
				curr[i] = restir.Reservoir{}
				continue
			}

			hit := b.shadingHit(x, y, entry)
			noise := b.noise(saltTemporal, i)

			var r restir.Reservoir
			candidate := buf.Candidates[i]
			r.Merge(candidate, candidate.Sample.PHat, noise.Float())

			if j, ok := b.history(i, entry.Surface()); ok {
				previous := prev[j]
				previous.ClampM(maxHistory)
				if previous.M > 0 && int(previous.Sample.LightID) < len(b.Store.Lights()) {
					r.Merge(previous, b.targetPDF(previous.Sample.LightID, hit), noise.Float())
				}
			}

			r.Normalize()
			if r.W > 0 && !b.visible(r.Sample.LightID, hit) {
				r.Discard()
			}
			r.ClampM(maxHistory)
			curr[i] = r
		}
	}
}
