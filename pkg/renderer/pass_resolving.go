package renderer

import (
	"image"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/lights"
	"github.com/df07/go-realtime-restir/pkg/restir"
)

// resolvingPass turns the final reservoirs into direct radiance and
// accumulates the indirect samples over time
type resolvingPass struct {
	b *Bindings
}

func (p *resolvingPass) Name() string { return "resolving" }

func (p *resolvingPass) Bind(bindings *Bindings) { p.b = bindings }

func (p *resolvingPass) Run(tile image.Rectangle) {
	b := p.b
	buf := b.Buffers
	next := buf.NextReservoirs()
	prevIndirect := buf.PrevIndirectHistory()
	currIndirect := buf.CurrIndirectHistory()
	list := b.Store.Lights()
	maxHistory := b.Config.MaxHistory

	for y := tile.Min.Y; y < tile.Max.Y; y++ {
		for x := tile.Min.X; x < tile.Max.X; x++ {
			i := buf.Index(x, y)
			entry := restir.UnpackGBuffer(buf.GBufferD0[i], buf.GBufferD1[i])
			if entry.IsSky() {
				buf.Directs[i] = b.sky(b.Camera.PrimaryRay(x, y).Direction)
				buf.Indirects[i] = core.Vec3{}
				buf.Normals[i] = core.Vec3{}
				buf.History[i] = 0
				currIndirect[i] = IndirectHistory{}
				continue
			}

			hit := b.shadingHit(x, y, entry)
			r := next[i]

			direct := entry.Emissive
			if r.W > 0 && int(r.Sample.LightID) < len(list) && b.visible(r.Sample.LightID, hit) {
				direct = direct.Add(lights.Contribution(list[r.Sample.LightID], hit).Multiply(r.W))
			}

			sample := buf.Indirect[i]
			history := IndirectHistory{Radiance: sample, Frames: 1}
			if j, ok := b.history(i, entry.Surface()); ok && prevIndirect[j].Frames > 0 {
				frames := max(1, min(prevIndirect[j].Frames+1, maxHistory))
				history = IndirectHistory{
					Radiance: prevIndirect[j].Radiance.Lerp(sample, 1/frames),
					Frames:   frames,
				}
			}
			currIndirect[i] = history

			buf.Directs[i] = direct
			buf.Indirects[i] = history.Radiance.MultiplyVec(entry.Params().DiffuseColor())
			buf.Normals[i] = entry.Normal
			buf.History[i] = r.M
		}
	}
}

// Finish hands the final reservoirs to the next frame
func (p *resolvingPass) Finish() {
	p.b.Buffers.RotateReservoirs()
}
