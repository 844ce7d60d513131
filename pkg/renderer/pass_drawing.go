package renderer

import (
	"image"
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/gogpu/gputypes"
)

// depthScale maps linear depth to the grayscale of the depth view
const depthScale = 0.05

// drawingPass tone maps the resolved buffers into the camera's viewport of
// the target
type drawingPass struct {
	b      *Bindings
	params DrawingParams
}

func (p *drawingPass) Name() string { return "drawing" }

func (p *drawingPass) Bind(bindings *Bindings) {
	p.b = bindings
	p.params = DrawingParams{ViewMode: uint32(bindings.Camera.Mode)}
}

func (p *drawingPass) Run(tile image.Rectangle) {
	b := p.b
	target := b.Target
	if target == nil {
		return
	}

	buf := b.Buffers
	origin := b.Camera.Viewport.Position
	pixels := target.Pixels()
	stride := target.Stride()
	bgra := target.Format() == gputypes.TextureFormatBGRA8Unorm

	for y := tile.Min.Y; y < tile.Max.Y; y++ {
		row := (origin.Y + y) * stride
		for x := tile.Min.X; x < tile.Max.X; x++ {
			i := buf.Index(x, y)
			color := p.shade(i)
			r, g, bl := toByte(color.X), toByte(color.Y), toByte(color.Z)
			if bgra {
				r, bl = bl, r
			}
			o := row + (origin.X+x)*4
			pixels[o+0] = r
			pixels[o+1] = g
			pixels[o+2] = bl
			pixels[o+3] = 255
		}
	}
}

// shade returns the display color of a pixel in [0, 1]
func (p *drawingPass) shade(i int) core.Vec3 {
	b := p.b
	buf := b.Buffers
	exposure := b.Config.Exposure

	switch ViewMode(p.params.ViewMode) {
	case ViewDirectLighting:
		return toneMap(buf.Directs[i], exposure)
	case ViewIndirectLighting:
		return toneMap(buf.Indirects[i], exposure)
	case ViewNormals:
		n := buf.Normals[i]
		if n.IsZero() {
			return core.Vec3{}
		}
		return n.Add(core.Splat(1)).Multiply(0.5)
	case ViewReservoirs:
		return heatMap(buf.History[i] / math.Max(b.Config.MaxHistory, 1))
	case ViewDepth:
		depth := float64(buf.GBufferD0[i][2])
		if depth <= 0 {
			return core.Vec3{}
		}
		return core.Splat(1 / (1 + depth*depthScale))
	default:
		return toneMap(buf.Directs[i].Add(buf.Indirects[i]), exposure)
	}
}

// toneMap applies exposure, Reinhard and gamma 2.2
func toneMap(radiance core.Vec3, exposure float64) core.Vec3 {
	c := radiance.Multiply(exposure)
	return core.NewVec3(reinhardGamma(c.X), reinhardGamma(c.Y), reinhardGamma(c.Z))
}

func reinhardGamma(x float64) float64 {
	if !(x > 0) {
		return 0
	}
	if math.IsInf(x, 1) {
		return 1
	}
	return math.Pow(x/(1+x), 1/2.2)
}

// heatMap maps t in [0, 1] to blue, green, red
func heatMap(t float64) core.Vec3 {
	t = math.Max(0, math.Min(1, t))
	if t < 0.5 {
		return core.NewVec3(0, 2*t, 1-2*t)
	}
	return core.NewVec3(2*t-1, 2-2*t, 0)
}

func toByte(x float64) uint8 {
	if !(x > 0) {
		return 0
	}
	if x >= 1 {
		return 255
	}
	return uint8(x*255 + 0.5)
}
