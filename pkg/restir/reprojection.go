package restir

import "image"

// Reprojection maps a pixel to where its surface was in the previous frame.
// Position is continuous: pixel (x, y) covers [x, x+1) x [y, y+1).
type Reprojection struct {
	X, Y  float32
	Valid bool
}

// Pixel returns the previous-frame pixel containing the reprojected position
func (r Reprojection) Pixel() image.Point {
	return image.Pt(int(r.X), int(r.Y))
}
