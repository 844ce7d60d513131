package lights

import (
	"sort"

	"github.com/df07/go-realtime-restir/pkg/scene"
)

// Sampler picks lights with probability proportional to their emitted power.
// It is immutable once built.
type Sampler struct {
	weights []float64 // Normalized selection probabilities
	cdf     []float64
}

// NewSampler creates a power-weighted sampler over the dense light list. When
// every light has zero power the distribution is uniform.
func NewSampler(lights []scene.Light) *Sampler {
	weights := make([]float64, len(lights))
	total := 0.0
	for i, light := range lights {
		weights[i] = light.Radiance.Luminance()
		total += weights[i]
	}
	return NewWeightedSampler(weights, total)
}

// NewWeightedSampler creates a sampler from non-negative weights summing to total
func NewWeightedSampler(weights []float64, total float64) *Sampler {
	s := &Sampler{
		weights: make([]float64, len(weights)),
		cdf:     make([]float64, len(weights)),
	}
	if len(weights) == 0 {
		return s
	}

	if !(total > 0) {
		// All weights are zero, use uniform distribution
		for i := range s.weights {
			s.weights[i] = 1.0 / float64(len(weights))
		}
	} else {
		for i, w := range weights {
			s.weights[i] = max(w, 0) / total
		}
	}

	cumulative := 0.0
	for i, w := range s.weights {
		cumulative += w
		s.cdf[i] = cumulative
	}
	// Guard against rounding so every u < 1 finds a light
	last := len(s.cdf) - 1
	for last > 0 && s.weights[last] == 0 {
		last--
	}
	for i := last; i < len(s.cdf); i++ {
		s.cdf[i] = 1
	}

	return s
}

// Len returns the number of lights
func (s *Sampler) Len() int {
	return len(s.weights)
}

// Sample selects a light for a uniform u in [0, 1) and returns its index and
// selection probability. It returns -1 when there are no lights.
func (s *Sampler) Sample(u float64) (int, float64) {
	if len(s.cdf) == 0 {
		return -1, 0
	}
	i := sort.Search(len(s.cdf), func(i int) bool { return s.cdf[i] > u })
	if i == len(s.cdf) {
		i = len(s.cdf) - 1
	}
	return i, s.weights[i]
}

// PDF returns the selection probability of the light at index
func (s *Sampler) PDF(index int) float64 {
	if index < 0 || index >= len(s.weights) {
		return 0
	}
	return s.weights[index]
}
