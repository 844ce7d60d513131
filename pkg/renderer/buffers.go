package renderer

import (
	"image"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/restir"
	"github.com/go-gl/mathgl/mgl32"
)

// IndirectHistory is the temporally accumulated indirect radiance of a pixel
type IndirectHistory struct {
	Radiance core.Vec3
	Frames   float64
}

// CameraBuffers is the per-camera buffer set. Every buffer is indexed by
// viewport pixel, y*width + x. Buffers that carry history between frames are
// double or triple buffered and addressed through rotating role indices, so
// no pass reads and writes the same buffer.
type CameraBuffers struct {
	size image.Point

	GBufferD0    [][4]float32
	GBufferD1    [][4]float32
	Reprojection []restir.Reprojection
	Candidates   []restir.Reservoir
	Indirect     []core.Vec3 // Raw indirect sample of the current frame

	surfaces      [2][][4]float32
	indirects     [2][]IndirectHistory
	reservoirs    [3][]restir.Reservoir
	parity        int // Selects the current surface map and indirect history
	reservoirBase int // Selects the previous reservoir buffer

	// Resolved outputs
	Directs   []core.Vec3
	Indirects []core.Vec3
	Normals   []core.Vec3
	History   []float64 // Reservoir M after the spatial pass

	prevViewProj mgl32.Mat4
	hasHistory   bool
	frames       uint64
}

// NewCameraBuffers allocates a buffer set for a viewport of the given size
func NewCameraBuffers(size image.Point) *CameraBuffers {
	n := size.X * size.Y
	b := &CameraBuffers{
		size:         size,
		GBufferD0:    make([][4]float32, n),
		GBufferD1:    make([][4]float32, n),
		Reprojection: make([]restir.Reprojection, n),
		Candidates:   make([]restir.Reservoir, n),
		Indirect:     make([]core.Vec3, n),
		Directs:      make([]core.Vec3, n),
		Indirects:    make([]core.Vec3, n),
		Normals:      make([]core.Vec3, n),
		History:      make([]float64, n),
	}
	for i := range b.surfaces {
		b.surfaces[i] = make([][4]float32, n)
		b.indirects[i] = make([]IndirectHistory, n)
	}
	for i := range b.reservoirs {
		b.reservoirs[i] = make([]restir.Reservoir, n)
	}
	return b
}

// Size returns the viewport size the buffers were allocated for
func (b *CameraBuffers) Size() image.Point {
	return b.size
}

// Index returns the buffer index of viewport pixel (x, y)
func (b *CameraBuffers) Index(x, y int) int {
	return y*b.size.X + x
}

// Contains reports whether (x, y) lies inside the viewport
func (b *CameraBuffers) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.size.X && y < b.size.Y
}

// Frames returns the number of frames completed with these buffers
func (b *CameraBuffers) Frames() uint64 {
	return b.frames
}

// CurrSurfaces is the surface map written this frame
func (b *CameraBuffers) CurrSurfaces() [][4]float32 { return b.surfaces[b.parity] }

// PrevSurfaces is the surface map written last frame
func (b *CameraBuffers) PrevSurfaces() [][4]float32 { return b.surfaces[1-b.parity] }

// CurrIndirectHistory is the indirect history written this frame
func (b *CameraBuffers) CurrIndirectHistory() []IndirectHistory { return b.indirects[b.parity] }

// PrevIndirectHistory is the indirect history written last frame
func (b *CameraBuffers) PrevIndirectHistory() []IndirectHistory { return b.indirects[1-b.parity] }

// PrevReservoirs holds last frame's final reservoirs
func (b *CameraBuffers) PrevReservoirs() []restir.Reservoir {
	return b.reservoirs[b.reservoirBase%3]
}

// CurrReservoirs receives the temporal pass output
func (b *CameraBuffers) CurrReservoirs() []restir.Reservoir {
	return b.reservoirs[(b.reservoirBase+1)%3]
}

// NextReservoirs receives the spatial pass output
func (b *CameraBuffers) NextReservoirs() []restir.Reservoir {
	return b.reservoirs[(b.reservoirBase+2)%3]
}

// RotateReservoirs makes this frame's final reservoirs next frame's previous
// ones. The old previous buffer becomes the next current buffer.
func (b *CameraBuffers) RotateReservoirs() {
	b.reservoirBase = (b.reservoirBase + 2) % 3
}

// DiscardReservoirs empties every reservoir buffer. Surface and indirect
// history are kept.
func (b *CameraBuffers) DiscardReservoirs() {
	for i := range b.reservoirs {
		clear(b.reservoirs[i])
	}
}

// HasHistory reports whether a previous frame exists to reproject into
func (b *CameraBuffers) HasHistory() bool {
	return b.hasHistory
}

// PrevViewProjection returns the view-projection of the previous frame
func (b *CameraBuffers) PrevViewProjection() mgl32.Mat4 {
	return b.prevViewProj
}

// EndFrame flips the double-buffered maps and records the camera matrix the
// next frame reprojects against
func (b *CameraBuffers) EndFrame(viewProj mgl32.Mat4) {
	b.parity = 1 - b.parity
	b.prevViewProj = viewProj
	b.hasHistory = true
	b.frames++
}
