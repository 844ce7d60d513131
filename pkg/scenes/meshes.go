package scenes

import (
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// Placement returns the world-from-object transform for a mesh centered at
// the origin: scale, then rotate around Y, then translate
func Placement(center core.Vec3, yRotation float64, scale core.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(float32(center.X), float32(center.Y), float32(center.Z))
	r := mgl32.HomogRotate3DY(float32(yRotation))
	s := mgl32.Scale3D(float32(scale.X), float32(scale.Y), float32(scale.Z))
	return t.Mul4(r).Mul4(s)
}

// NewQuadMesh creates a parallelogram spanned by u and v from corner. The
// face normal is u × v.
func NewQuadMesh(corner, u, v core.Vec3) scene.Mesh {
	normal := u.Cross(v).Normalize()
	return scene.Mesh{
		Positions: []core.Vec3{corner, corner.Add(u), corner.Add(u).Add(v), corner.Add(v)},
		Normals:   []core.Vec3{normal, normal, normal, normal},
		UVs:       []core.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

// NewBoxMesh creates a unit cube centered at the origin. Each face has its
// own vertices so shading normals stay flat.
func NewBoxMesh() scene.Mesh {
	h := 0.5
	faces := []struct{ corner, u, v core.Vec3 }{
		{core.NewVec3(-h, -h, -h), core.NewVec3(0, 1, 0), core.NewVec3(1, 0, 0)}, // Back (Z-)
		{core.NewVec3(-h, -h, h), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0)},  // Front (Z+)
		{core.NewVec3(-h, -h, -h), core.NewVec3(0, 0, 1), core.NewVec3(0, 1, 0)}, // Left (X-)
		{core.NewVec3(h, -h, -h), core.NewVec3(0, 1, 0), core.NewVec3(0, 0, 1)},  // Right (X+)
		{core.NewVec3(-h, -h, -h), core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1)}, // Bottom (Y-)
		{core.NewVec3(-h, h, -h), core.NewVec3(0, 0, 1), core.NewVec3(1, 0, 0)},  // Top (Y+)
	}

	var mesh scene.Mesh
	for _, f := range faces {
		mesh = appendMesh(mesh, NewQuadMesh(f.corner, f.u.Multiply(2*h), f.v.Multiply(2*h)))
	}
	return mesh
}

// NewPyramidMesh creates a square pyramid with a unit base and unit height,
// its base centered on the origin
func NewPyramidMesh() scene.Mesh {
	positions := []core.Vec3{
		core.NewVec3(-0.5, 0, -0.5), // 0: left-back
		core.NewVec3(0.5, 0, -0.5),  // 1: right-back
		core.NewVec3(0.5, 0, 0.5),   // 2: right-front
		core.NewVec3(-0.5, 0, 0.5),  // 3: left-front
		core.NewVec3(0, 1, 0),       // 4: apex
	}
	return scene.Mesh{
		Positions: positions,
		Indices: []uint32{
			0, 1, 2, 0, 2, 3, // Base
			1, 0, 4, // Back
			2, 1, 4, // Right
			3, 2, 4, // Front
			0, 3, 4, // Left
		},
	}
}

// NewIcosahedronMesh creates an icosahedron with unit circumradius
func NewIcosahedronMesh() scene.Mesh {
	phi := (1.0 + math.Sqrt(5)) / 2.0
	scale := 1.0 / math.Sqrt(1+phi*phi)

	positions := []core.Vec3{
		core.NewVec3(-1, phi, 0), core.NewVec3(1, phi, 0), core.NewVec3(-1, -phi, 0), core.NewVec3(1, -phi, 0),
		core.NewVec3(0, -1, phi), core.NewVec3(0, 1, phi), core.NewVec3(0, -1, -phi), core.NewVec3(0, 1, -phi),
		core.NewVec3(phi, 0, -1), core.NewVec3(phi, 0, 1), core.NewVec3(-phi, 0, -1), core.NewVec3(-phi, 0, 1),
	}
	for i := range positions {
		positions[i] = positions[i].Multiply(scale)
	}

	return scene.Mesh{
		Positions: positions,
		Indices: []uint32{
			// 5 faces around point 0
			0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
			// 5 adjacent faces
			1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
			// 5 faces around point 3
			3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
			// 5 adjacent faces
			4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
		},
	}
}

// NewSphereMesh creates a UV sphere of unit radius with smooth normals
func NewSphereMesh(rings, segments int) scene.Mesh {
	rings = max(rings, 2)
	segments = max(segments, 3)

	var mesh scene.Mesh
	for r := 0; r <= rings; r++ {
		theta := math.Pi * float64(r) / float64(rings)
		for s := 0; s <= segments; s++ {
			phi := 2 * math.Pi * float64(s) / float64(segments)
			p := core.NewVec3(math.Sin(theta)*math.Cos(phi), math.Cos(theta), math.Sin(theta)*math.Sin(phi))
			mesh.Positions = append(mesh.Positions, p)
			mesh.Normals = append(mesh.Normals, p)
			mesh.UVs = append(mesh.UVs, core.Vec2{X: float64(s) / float64(segments), Y: float64(r) / float64(rings)})
		}
	}

	stride := uint32(segments + 1)
	for r := uint32(0); r < uint32(rings); r++ {
		for s := uint32(0); s < uint32(segments); s++ {
			a := r*stride + s
			b := a + stride
			mesh.Indices = append(mesh.Indices, a, a+1, b, a+1, b+1, b)
		}
	}
	return mesh
}

// appendMesh concatenates two meshes that both carry normals and UVs
func appendMesh(dst, src scene.Mesh) scene.Mesh {
	base := uint32(len(dst.Positions))
	dst.Positions = append(dst.Positions, src.Positions...)
	dst.Normals = append(dst.Normals, src.Normals...)
	dst.UVs = append(dst.UVs, src.UVs...)
	for _, idx := range src.Indices {
		dst.Indices = append(dst.Indices, base+idx)
	}
	return dst
}
