package core

// RayEpsilon is the distance secondary rays are pushed off a surface along its
// normal so they do not re-hit the triangle they start on.
const RayEpsilon = 1e-4

// Ray represents a ray with an origin and direction
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// NewRay creates a new ray
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}

// IsDegenerate reports whether the direction has zero length or the ray contains NaN/Inf
func (r Ray) IsDegenerate() bool {
	if !r.Origin.IsFinite() || !r.Direction.IsFinite() {
		return true
	}
	return r.Direction.LengthSquared() == 0
}

// NewSecondaryRay starts a ray at a surface point, offset along the geometric
// normal to the side the direction points to.
func NewSecondaryRay(point, normal, direction Vec3) Ray {
	offset := normal.Multiply(RayEpsilon)
	if direction.Dot(normal) < 0 {
		offset = offset.Negate()
	}
	return Ray{Origin: point.Add(offset), Direction: direction}
}

// NewShadowRay builds a ray from a surface point toward target; it returns the
// ray and the parametric distance at which target is reached.
func NewShadowRay(point, normal, target Vec3) (Ray, float64) {
	ray := NewSecondaryRay(point, normal, target.Subtract(point))
	// Direction is unnormalized so t = 1 lands on target; stop just short of it.
	return ray, 1 - RayEpsilon
}
