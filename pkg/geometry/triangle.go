package geometry

import "github.com/df07/go-realtime-restir/pkg/core"

// Triangle is the positional part of a scene triangle, the only data the
// tracer needs
type Triangle struct {
	V0, V1, V2 core.Vec3
}

// NewTriangle creates a new triangle from three vertices
func NewTriangle(v0, v1, v2 core.Vec3) Triangle {
	return Triangle{V0: v0, V1: v1, V2: v2}
}

// Bounds returns the axis-aligned bounding box of the triangle
func (t Triangle) Bounds() core.AABB {
	return core.NewAABBFromPoints(t.V0, t.V1, t.V2)
}

// Centroid returns the average of the three vertices
func (t Triangle) Centroid() core.Vec3 {
	return t.V0.Add(t.V1).Add(t.V2).Multiply(1.0 / 3.0)
}

// GeometricNormal returns the unit normal given by the winding order
func (t Triangle) GeometricNormal() core.Vec3 {
	return t.V1.Subtract(t.V0).Cross(t.V2.Subtract(t.V0)).Normalize()
}

// Intersect tests the ray against the triangle using the Möller-Trumbore
// algorithm. It returns the ray parameter and the barycentrics (u, v) of V1
// and V2. Both faces are hit.
func (t Triangle) Intersect(ray core.Ray, tMin, tMax float64) (tHit, u, v float64, ok bool) {
	const epsilon = 1e-12

	edge1 := t.V1.Subtract(t.V0)
	edge2 := t.V2.Subtract(t.V0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)

	// If determinant is near zero, ray lies in plane of triangle
	if a > -epsilon && a < epsilon {
		return 0, 0, 0, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(t.V0)
	u = f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return 0, 0, 0, false
	}

	q := s.Cross(edge1)
	v = f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return 0, 0, 0, false
	}

	tHit = f * edge2.Dot(q)
	// The comparisons are false for NaN, which rejects the hit
	if !(tHit >= tMin && tHit <= tMax) {
		return 0, 0, 0, false
	}

	return tHit, u, v, true
}
