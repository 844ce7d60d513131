package renderer

import (
	"fmt"
	"strings"
)

// ViewMode selects what the drawing pass writes into the target
type ViewMode uint32

const (
	ViewFinal            ViewMode = iota // Tone-mapped direct plus indirect lighting
	ViewDirectLighting                   // Direct lighting only
	ViewIndirectLighting                 // Indirect lighting only
	ViewNormals                          // Decoded G-buffer normals
	ViewReservoirs                       // Reservoir history length as a heat map
	ViewDepth                            // Linear depth
)

var viewModeNames = []string{
	ViewFinal:            "final",
	ViewDirectLighting:   "direct",
	ViewIndirectLighting: "indirect",
	ViewNormals:          "normals",
	ViewReservoirs:       "reservoirs",
	ViewDepth:            "depth",
}

// String returns the name of the view mode
func (m ViewMode) String() string {
	if int(m) < len(viewModeNames) {
		return viewModeNames[m]
	}
	return fmt.Sprintf("ViewMode(%d)", uint32(m))
}

// ParseViewMode looks a view mode up by name
func ParseViewMode(name string) (ViewMode, error) {
	for i, n := range viewModeNames {
		if strings.EqualFold(n, name) {
			return ViewMode(i), nil
		}
	}
	return ViewFinal, fmt.Errorf("%w: %q", ErrUnknownViewMode, name)
}

// ViewModeNames lists every view mode name
func ViewModeNames() []string {
	return append([]string(nil), viewModeNames...)
}

// DrawingParams is the per-draw parameter block of the drawing pass
type DrawingParams struct {
	ViewMode uint32
}
