package core

import "math/rand/v2"

// Noise is a per-invocation random stream. Every pixel of every pass seeds its
// own stream from (seed, frame, pixel), so results do not depend on which
// worker ran the tile or in which order.
type Noise struct {
	pcg rand.PCG
}

// NewNoise creates a stream for the given pass seed, frame and pixel index
func NewNoise(seed uint64, frame uint32, pixel int) Noise {
	var n Noise
	n.Reseed(seed, frame, pixel)
	return n
}

// Reseed resets the stream in place
func (n *Noise) Reseed(seed uint64, frame uint32, pixel int) {
	n.pcg.Seed(seed^uint64(frame)<<32, uint64(pixel)*0x9e3779b97f4a7c15+uint64(frame))
}

// Float returns a uniformly distributed value in [0, 1)
func (n *Noise) Float() float64 {
	return float64(n.pcg.Uint64()>>11) * 0x1p-53
}

// Vec2 returns two uniform values in [0, 1)
func (n *Noise) Vec2() Vec2 {
	return Vec2{n.Float(), n.Float()}
}

// IntN returns a uniform integer in [0, bound)
func (n *Noise) IntN(bound int) int {
	if bound <= 0 {
		return 0
	}
	return int(n.pcg.Uint64() % uint64(bound))
}
