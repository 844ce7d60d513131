// Package restir holds the data structures shared by the resampling passes:
// weighted reservoirs, per-pixel surfaces and the packed G-buffer layout.
package restir

// Sample is the payload a reservoir selects: a light and the target density
// of that light at the surface owning the reservoir.
type Sample struct {
	LightID uint32
	PHat    float64
}

// Reservoir streams weighted candidates and keeps one of them with
// probability proportional to its weight. M counts merged candidates; it is a
// float so that clamping history keeps the weight ratio exact.
type Reservoir struct {
	Sample Sample
	WSum   float64 // Sum of candidate weights
	M      float64 // Number of candidates represented
	W      float64 // Unbiased contribution weight, WSum / (M * PHat)
}

// IsEmpty reports whether the reservoir represents no candidates
func (r *Reservoir) IsEmpty() bool {
	return r.M == 0
}

// Update streams one candidate with the given resampling weight. u is a
// uniform random number in [0, 1); the candidate replaces the current sample
// with probability weight / WSum. It returns whether it was selected.
func (r *Reservoir) Update(sample Sample, weight, u float64) bool {
	r.M++
	if !(weight > 0) {
		return false
	}
	r.WSum += weight
	if u*r.WSum < weight {
		r.Sample = sample
		return true
	}
	return false
}

// Merge streams another reservoir into this one. pHat is the target density
// of the other reservoir's sample evaluated at this reservoir's surface; the
// other reservoir then counts as M candidates of weight pHat * W.
func (r *Reservoir) Merge(other Reservoir, pHat, u float64) bool {
	if other.M == 0 {
		return false
	}
	weight := pHat * other.W * other.M
	m := r.M
	selected := r.Update(Sample{LightID: other.Sample.LightID, PHat: pHat}, weight, u)
	r.M = m + other.M
	return selected
}

// Normalize computes W from the accumulated weights. A reservoir whose sample
// has no target density ends up with zero weight.
func (r *Reservoir) Normalize() {
	if r.M > 0 && r.Sample.PHat > 0 {
		r.W = r.WSum / (r.M * r.Sample.PHat)
	} else {
		r.W = 0
	}
}

// ClampM caps the history length at maxM. WSum is scaled by the same factor
// so that W is unchanged.
func (r *Reservoir) ClampM(maxM float64) {
	if r.M > maxM {
		r.WSum *= maxM / r.M
		r.M = maxM
	}
}

// Discard zeroes the reservoir's contribution while keeping its history
// length, used when the selected sample turns out to be occluded
func (r *Reservoir) Discard() {
	r.WSum = 0
	r.W = 0
}
