package core

import "math"

// OrthonormalBasis builds tangent and bitangent vectors around a unit normal
func OrthonormalBasis(normal Vec3) (Vec3, Vec3) {
	// Find a vector perpendicular to normal
	var nt Vec3
	if math.Abs(normal.X) > 0.1 {
		nt = NewVec3(0, 1, 0)
	} else {
		nt = NewVec3(1, 0, 0)
	}
	tangent := nt.Cross(normal).Normalize()
	bitangent := normal.Cross(tangent)
	return tangent, bitangent
}

// SampleCosineHemisphere generates a cosine-weighted direction in the hemisphere around normal.
// The returned pdf is cos(theta)/pi.
func SampleCosineHemisphere(normal Vec3, sample Vec2) (Vec3, float64) {
	a := 2.0 * math.Pi * sample.X
	r := math.Sqrt(sample.Y)
	x := r * math.Cos(a)
	y := r * math.Sin(a)
	z := math.Sqrt(math.Max(0, 1.0-sample.Y))

	tangent, bitangent := OrthonormalBasis(normal)
	dir := tangent.Multiply(x).Add(bitangent.Multiply(y)).Add(normal.Multiply(z))
	return dir, z / math.Pi
}

// SamplePointInUnitDisk maps a square sample to the unit disk with the
// concentric mapping. This avoids rejection sampling.
func SamplePointInUnitDisk(sample Vec2) Vec2 {
	ox, oy := 2*sample.X-1, 2*sample.Y-1
	if ox == 0 && oy == 0 {
		return Vec2{}
	}

	var theta, r float64
	if math.Abs(ox) > math.Abs(oy) {
		r = ox
		theta = math.Pi / 4 * (oy / ox)
	} else {
		r = oy
		theta = math.Pi/2 - math.Pi/4*(ox/oy)
	}
	return Vec2{r * math.Cos(theta), r * math.Sin(theta)}
}

// SampleOnUnitSphere generates a uniform direction on the unit sphere
func SampleOnUnitSphere(sample Vec2) Vec3 {
	z := 1.0 - 2.0*sample.X
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * sample.Y
	return NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)
}
