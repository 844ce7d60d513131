package renderer

import (
	"runtime"

	"github.com/df07/go-realtime-restir/pkg/atmosphere"
	"github.com/df07/go-realtime-restir/pkg/restir"
	"github.com/df07/go-realtime-restir/pkg/scene"
)

// TileSize is the edge length of the square pixel tiles every pass is
// dispatched over
const TileSize = 8

// Config contains the renderer configuration shared by all cameras
type Config struct {
	NumWorkers         int     // Number of parallel workers (0 = use CPU count)
	MaxHistory         float64 // Cap on reservoir M and indirect history length
	CandidatesPerPixel int     // Light candidates generated per pixel per frame
	SpatialSamples     int     // Neighbors merged by the spatial pass
	SpatialRadius      float64 // Neighbor search radius in pixels (0 disables spatial reuse)
	IndirectDepth      int     // Bounces traced for indirect lighting (0 disables it)
	Similarity         restir.SimilarityConfig
	Seed               uint64  // Base seed of the per-pixel noise
	Exposure           float64 // Linear exposure applied before tone mapping

	Atmosphere atmosphere.Config
	Scene      scene.Config
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		NumWorkers:         runtime.NumCPU(),
		MaxHistory:         20,
		CandidatesPerPixel: 8,
		SpatialSamples:     4,
		SpatialRadius:      16,
		IndirectDepth:      1,
		Similarity:         restir.DefaultSimilarityConfig(),
		Seed:               0x5eed,
		Exposure:           1.0,
		Atmosphere:         atmosphere.DefaultConfig(),
		Scene:              scene.DefaultConfig(),
	}
}
