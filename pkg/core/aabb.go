package core

import "math"

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min Vec3 // Minimum corner
	Max Vec3 // Maximum corner
}

// EmptyAABB returns an inverted box that any Grow or Union replaces
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{Min: Splat(inf), Max: Splat(-inf)}
}

// NewAABBFromPoints creates an AABB that bounds all given points
func NewAABBFromPoints(points ...Vec3) AABB {
	box := EmptyAABB()
	for _, p := range points {
		box = box.Grow(p)
	}
	return box
}

// Grow returns the box extended to contain point
func (aabb AABB) Grow(point Vec3) AABB {
	return AABB{Min: aabb.Min.MinVec(point), Max: aabb.Max.MaxVec(point)}
}

// Union returns an AABB that bounds both this AABB and another
func (aabb AABB) Union(other AABB) AABB {
	return AABB{Min: aabb.Min.MinVec(other.Min), Max: aabb.Max.MaxVec(other.Max)}
}

// Center returns the center point of the AABB
func (aabb AABB) Center() Vec3 {
	return aabb.Min.Add(aabb.Max).Multiply(0.5)
}

// Size returns the extent of the AABB along each axis
func (aabb AABB) Size() Vec3 {
	return aabb.Max.Subtract(aabb.Min)
}

// LongestAxis returns the axis (0=X, 1=Y, 2=Z) with the longest extent
func (aabb AABB) LongestAxis() int {
	size := aabb.Size()
	if size.X > size.Y && size.X > size.Z {
		return 0
	}
	if size.Y > size.Z {
		return 1
	}
	return 2
}

// IsValid returns true if min <= max on every axis
func (aabb AABB) IsValid() bool {
	return aabb.Min.X <= aabb.Max.X &&
		aabb.Min.Y <= aabb.Max.Y &&
		aabb.Min.Z <= aabb.Max.Z
}

// Intersect runs the slab test against a ray with a precomputed inverse
// direction. It returns the entry distance clamped to tMin and whether the
// box overlaps [tMin, tMax].
func (aabb AABB) Intersect(origin, invDir Vec3, tMin, tMax float64) (float64, bool) {
	for axis := 0; axis < 3; axis++ {
		o := origin.Axis(axis)
		inv := invDir.Axis(axis)
		t1 := (aabb.Min.Axis(axis) - o) * inv
		t2 := (aabb.Max.Axis(axis) - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		// NaN comes from 0 * Inf when the ray lies on a slab plane; keep the interval.
		if !math.IsNaN(t1) {
			tMin = math.Max(tMin, t1)
		}
		if !math.IsNaN(t2) {
			tMax = math.Min(tMax, t2)
		}
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// InverseDirection returns 1/d per component; zero components become +Inf
func InverseDirection(d Vec3) Vec3 {
	return Vec3{1 / d.X, 1 / d.Y, 1 / d.Z}
}
