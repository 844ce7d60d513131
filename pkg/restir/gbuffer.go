package restir

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/material"
	"github.com/mrjoshuak/go-openexr/half"
)

// maxHalf is the largest finite half-precision value
const maxHalf = 65504

// GBufferEntry is the primary-hit data written by the tracing pass and read by
// every later pass instead of re-tracing
type GBufferEntry struct {
	BaseColor   core.Vec3
	Emissive    core.Vec3
	Normal      core.Vec3
	Depth       float64 // Linear view depth, zero for sky
	Roughness   float64
	Metallic    float64
	Reflectance float64
}

// IsSky reports whether the entry describes a miss
func (e GBufferEntry) IsSky() bool {
	return e.Depth == 0
}

// Surface returns the similarity snapshot of the entry
func (e GBufferEntry) Surface() Surface {
	return Surface{Normal: e.Normal, Depth: e.Depth, Roughness: e.Roughness}
}

// Params returns the shading parameters of the entry
func (e GBufferEntry) Params() material.Params {
	return material.Params{
		BaseColor:   e.BaseColor,
		Roughness:   e.Roughness,
		Metallic:    e.Metallic,
		Reflectance: e.Reflectance,
	}
}

// Pack encodes the entry into two four-word texels. d0 holds the octahedral
// normal, depth and roughness as float32; d1 holds base color, emissive,
// metallic and reflectance as eight half floats, two per word.
func (e GBufferEntry) Pack() (d0, d1 [4]float32) {
	ox, oy := EncodeNormal(e.Normal)
	d0 = [4]float32{ox, oy, float32(e.Depth), float32(e.Roughness)}

	d1 = [4]float32{
		packHalves(e.BaseColor.X, e.BaseColor.Y),
		packHalves(e.BaseColor.Z, e.Emissive.X),
		packHalves(e.Emissive.Y, e.Emissive.Z),
		packHalves(e.Metallic, e.Reflectance),
	}
	return d0, d1
}

// UnpackGBuffer decodes an entry written by Pack
func UnpackGBuffer(d0, d1 [4]float32) GBufferEntry {
	var e GBufferEntry
	e.Depth = float64(d0[2])
	if e.Depth == 0 {
		return e
	}
	e.Normal = DecodeNormal(d0[0], d0[1])
	e.Roughness = float64(d0[3])

	var baseZ, emissiveY float64
	e.BaseColor.X, e.BaseColor.Y = unpackHalves(d1[0])
	baseZ, e.Emissive.X = unpackHalves(d1[1])
	emissiveY, e.Emissive.Z = unpackHalves(d1[2])
	e.BaseColor.Z, e.Emissive.Y = baseZ, emissiveY
	e.Metallic, e.Reflectance = unpackHalves(d1[3])
	return e
}

// UnpackSurface decodes only the d0 texel
func UnpackSurface(d0 [4]float32) Surface {
	if d0[2] == 0 {
		return Surface{}
	}
	return Surface{
		Normal:    DecodeNormal(d0[0], d0[1]),
		Depth:     float64(d0[2]),
		Roughness: float64(d0[3]),
	}
}

// PackSurface encodes a surface the same way Pack encodes d0
func PackSurface(s Surface) [4]float32 {
	ox, oy := EncodeNormal(s.Normal)
	return [4]float32{ox, oy, float32(s.Depth), float32(s.Roughness)}
}

func packHalves(lo, hi float64) float32 {
	a := half.FromFloat32(clampHalf(lo)).Bits()
	b := half.FromFloat32(clampHalf(hi)).Bits()
	return math.Float32frombits(uint32(a) | uint32(b)<<16)
}

func unpackHalves(word float32) (float64, float64) {
	bits := math.Float32bits(word)
	lo := half.FromBits(uint16(bits)).Float32()
	hi := half.FromBits(uint16(bits >> 16)).Float32()
	return float64(lo), float64(hi)
}

func clampHalf(x float64) float32 {
	if math.IsNaN(x) {
		return 0
	}
	return float32(math.Max(-maxHalf, math.Min(maxHalf, x)))
}

// EncodeNormal maps a unit vector to the [-1, 1]^2 octahedral square
func EncodeNormal(n core.Vec3) (float32, float32) {
	x, y, z := float32(n.X), float32(n.Y), float32(n.Z)
	l1 := math32.Abs(x) + math32.Abs(y) + math32.Abs(z)
	if !(l1 > 0) {
		return 0, 0
	}
	x, y = x/l1, y/l1
	if z < 0 {
		x, y = (1-math32.Abs(y))*signNotZero(x), (1-math32.Abs(x))*signNotZero(y)
	}
	return x, y
}

// DecodeNormal inverts EncodeNormal
func DecodeNormal(x, y float32) core.Vec3 {
	z := 1 - math32.Abs(x) - math32.Abs(y)
	if z < 0 {
		x, y = (1-math32.Abs(y))*signNotZero(x), (1-math32.Abs(x))*signNotZero(y)
	}
	l := math32.Sqrt(x*x + y*y + z*z)
	return core.NewVec3(float64(x/l), float64(y/l), float64(z/l))
}

func signNotZero(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
