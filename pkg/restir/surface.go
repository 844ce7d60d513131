package restir

import (
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
)

// SimilarityConfig tunes when two surfaces are close enough to share
// lighting samples
type SimilarityConfig struct {
	NormalCutoff   float64 // Normal dot products at or below this score zero
	DepthTolerance float64 // Relative depth error at which the score reaches zero
	NearDepth      float64 // Below this depth the absolute error is used instead
	ReuseThreshold float64 // Minimum score for history or neighbors to be reused
}

// DefaultSimilarityConfig returns the empirically chosen thresholds
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{
		NormalCutoff:   0.5,
		DepthTolerance: 0.1,
		NearDepth:      1.0,
		ReuseThreshold: 0.5,
	}
}

// Surface is the per-pixel snapshot used to judge sample reuse. A depth of
// zero marks the sky.
type Surface struct {
	Normal    core.Vec3
	Depth     float64 // Linear view depth
	Roughness float64
}

// IsSky reports whether the pixel hit no geometry
func (s Surface) IsSky() bool {
	return s.Depth == 0
}

// EvaluateSimilarityTo scores how alike two surfaces are, in [0, 1]. Either
// surface being sky scores zero; identical surfaces score one.
func (s Surface) EvaluateSimilarityTo(other Surface, config SimilarityConfig) float64 {
	if s.IsSky() || other.IsSky() {
		return 0
	}

	normalScore := 0.0
	if dot := math.Max(s.Normal.Dot(other.Normal), 0); dot > config.NormalCutoff {
		normalScore = 2 * dot
	}

	var depthScore float64
	t := math.Abs(s.Depth - other.Depth)
	tolerance := config.DepthTolerance * other.Depth
	switch {
	case s.Depth < config.NearDepth:
		depthScore = math.Max(0, 1-t)
	case t >= tolerance:
		depthScore = 0
	default:
		depthScore = 1 - t/tolerance
	}

	score := normalScore * depthScore
	if !(score > 0) {
		return 0
	}
	return math.Min(score, 1)
}

// CanReuse reports whether samples from other may be reused at s
func (c SimilarityConfig) CanReuse(s, other Surface) bool {
	score := s.EvaluateSimilarityTo(other, c)
	return score > 0 && score >= c.ReuseThreshold
}
