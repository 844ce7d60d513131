package renderer

import (
	"image"
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/restir"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// CameraID identifies a camera across frames
type CameraID uint64

// Viewport is the rectangle of the target a camera draws into
type Viewport struct {
	Position image.Point // Top-left corner in the target
	Size     image.Point // Width and height in pixels
	Format   gputypes.TextureFormat
}

// Rect returns the viewport rectangle in target coordinates
func (v Viewport) Rect() image.Rectangle {
	return image.Rectangle{Min: v.Position, Max: v.Position.Add(v.Size)}
}

// Projection holds the perspective parameters of a camera
type Projection struct {
	FovY float32 // Vertical field of view in radians
	Near float32
	Far  float32
}

// Camera describes one view for one frame. The camera looks down its local
// -Z axis; Transform maps camera space to world space.
type Camera struct {
	Viewport   Viewport
	Projection Projection
	Transform  mgl32.Mat4
	Mode       ViewMode
}

// NewLookAtCamera creates a camera at eye looking toward target
func NewLookAtCamera(eye, target, up core.Vec3, fovYDegrees float32, size image.Point) Camera {
	return Camera{
		Viewport: Viewport{Size: size, Format: gputypes.TextureFormatRGBA8Unorm},
		Projection: Projection{
			FovY: mgl32.DegToRad(fovYDegrees),
			Near: 0.01,
			Far:  10000,
		},
		Transform: mgl32.LookAtV(eye.Mgl(), target.Mgl(), up.Mgl()).Inv(),
	}
}

// Aspect returns width over height
func (c Camera) Aspect() float64 {
	if c.Viewport.Size.Y == 0 {
		return 1
	}
	return float64(c.Viewport.Size.X) / float64(c.Viewport.Size.Y)
}

// Origin returns the camera position in world space
func (c Camera) Origin() core.Vec3 {
	return core.Vec3FromMgl(c.Transform.Col(3).Vec3())
}

// Forward returns the unit viewing direction in world space
func (c Camera) Forward() core.Vec3 {
	return core.Vec3FromMgl(c.Transform.Col(2).Vec3()).Negate().Normalize()
}

// ViewProjection returns the clip-from-world matrix
func (c Camera) ViewProjection() mgl32.Mat4 {
	proj := mgl32.Perspective(c.Projection.FovY, float32(c.Aspect()), c.Projection.Near, c.Projection.Far)
	return proj.Mul4(c.Transform.Inv())
}

// PrimaryRay returns the unit-direction ray through the center of viewport
// pixel (x, y). Pixel rows grow downward.
func (c Camera) PrimaryRay(x, y int) core.Ray {
	w, h := float64(c.Viewport.Size.X), float64(c.Viewport.Size.Y)
	ndcX := 2*(float64(x)+0.5)/w - 1
	ndcY := 1 - 2*(float64(y)+0.5)/h

	tanHalf := math.Tan(float64(c.Projection.FovY) / 2)
	right := core.Vec3FromMgl(c.Transform.Col(0).Vec3())
	up := core.Vec3FromMgl(c.Transform.Col(1).Vec3())
	back := core.Vec3FromMgl(c.Transform.Col(2).Vec3())

	dir := right.Multiply(ndcX * tanHalf * c.Aspect()).
		Add(up.Multiply(ndcY * tanHalf)).
		Subtract(back).
		Normalize()
	return core.NewRay(c.Origin(), dir)
}

// LinearDepth returns the distance of point along the viewing direction
func (c Camera) LinearDepth(point core.Vec3) float64 {
	return point.Subtract(c.Origin()).Dot(c.Forward())
}

// PointAtDepth reconstructs the world position seen through pixel (x, y) at
// the given linear depth
func (c Camera) PointAtDepth(x, y int, depth float64) (core.Vec3, core.Ray) {
	ray := c.PrimaryRay(x, y)
	cos := ray.Direction.Dot(c.Forward())
	if cos <= 0 {
		return ray.Origin, ray
	}
	return ray.At(depth / cos), ray
}

// Reproject projects a world position with a previous frame's view-projection
// and reports where it landed on a screen of the given size
func Reproject(point core.Vec3, viewProj mgl32.Mat4, size image.Point) restir.Reprojection {
	clip := viewProj.Mul4x1(point.Mgl().Vec4(1))
	if !(clip.W() > 0) {
		return restir.Reprojection{}
	}

	ndcX := clip.X() / clip.W()
	ndcY := clip.Y() / clip.W()
	x := (ndcX + 1) * 0.5 * float32(size.X)
	y := (1 - ndcY) * 0.5 * float32(size.Y)

	valid := x >= 0 && y >= 0 && x < float32(size.X) && y < float32(size.Y)
	return restir.Reprojection{X: x, Y: y, Valid: valid}
}
