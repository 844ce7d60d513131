package renderer

import (
	"image"

	"github.com/df07/go-realtime-restir/pkg/atmosphere"
	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/lights"
	"github.com/df07/go-realtime-restir/pkg/restir"
	"github.com/df07/go-realtime-restir/pkg/scene"
)

// Noise salts keep the random streams of different passes independent
const (
	saltTracing  uint64 = 0x74726163
	saltTemporal uint64 = 0x74656d70
	saltSpatial  uint64 = 0x73706174
)

// Bindings are the resources a pass reads and writes during one frame
type Bindings struct {
	Store      *scene.Store
	Lights     *lights.Sampler
	Atmosphere *atmosphere.Model
	Buffers    *CameraBuffers
	Camera     Camera
	Config     *Config
	Frame      uint32
	Target     Target // Nil when the frame is resolved but not drawn
}

// Pass is one stage of the fixed per-camera pipeline. Bind is called once per
// frame before Run is dispatched over every tile of the viewport. Run must
// only write buffer entries of pixels inside its tile.
type Pass interface {
	Name() string
	Bind(bindings *Bindings)
	Run(tile image.Rectangle)
}

// finisher is implemented by passes with work to do after the barrier
type finisher interface {
	Finish()
}

// newPipeline returns the passes in execution order
func newPipeline() []Pass {
	return []Pass{
		&tracingPass{},
		&temporalPass{},
		&spatialPass{},
		&resolvingPass{},
		&drawingPass{},
	}
}

// noise returns the random stream of a pixel for a pass
func (b *Bindings) noise(salt uint64, pixel int) core.Noise {
	return core.NewNoise(b.Config.Seed^salt, b.Frame, pixel)
}

// shadingHit rebuilds the lighting inputs of a pixel from its G-buffer entry.
// The position is reconstructed from the stored depth, so every pass shades
// exactly the same point.
func (b *Bindings) shadingHit(x, y int, entry restir.GBufferEntry) lights.Hit {
	position, ray := b.Camera.PointAtDepth(x, y, entry.Depth)
	return lights.Hit{
		Position: position,
		Normal:   entry.Normal,
		ToViewer: ray.Direction.Negate(),
		Params:   entry.Params(),
	}
}

// targetPDF evaluates a light by id at a hit. Ids outside the current light
// list score zero.
func (b *Bindings) targetPDF(lightID uint32, hit lights.Hit) float64 {
	list := b.Store.Lights()
	if int(lightID) >= len(list) {
		return 0
	}
	return lights.TargetPDF(list[lightID], hit)
}

// visible reports whether the light with the given id is unoccluded from hit
func (b *Bindings) visible(lightID uint32, hit lights.Hit) bool {
	list := b.Store.Lights()
	if int(lightID) >= len(list) {
		return false
	}
	ray, tMax := core.NewShadowRay(hit.Position, hit.Normal, list[lightID].Position)
	return !b.Store.Occluded(ray, tMax)
}

// sky returns the atmosphere radiance along a direction
func (b *Bindings) sky(direction core.Vec3) core.Vec3 {
	sun := b.Store.Sun()
	return b.Atmosphere.Sample(sun.Direction, direction, sun.Intensity)
}

// history returns the previous-frame pixel a reprojection points at, if its
// surface is similar enough to reuse
func (b *Bindings) history(i int, current restir.Surface) (int, bool) {
	buf := b.Buffers
	if !buf.HasHistory() {
		return 0, false
	}
	reprojection := buf.Reprojection[i]
	if !reprojection.Valid {
		return 0, false
	}
	p := reprojection.Pixel()
	if !buf.Contains(p.X, p.Y) {
		return 0, false
	}
	j := buf.Index(p.X, p.Y)
	previous := restir.UnpackSurface(buf.PrevSurfaces()[j])
	if !b.Config.Similarity.CanReuse(current, previous) {
		return 0, false
	}
	return j, true
}
