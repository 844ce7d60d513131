package scene

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/geometry"
	"github.com/df07/go-realtime-restir/pkg/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

var logger = log.New("scene")

// Config controls how the store compiles scene data
type Config struct {
	AtlasSlotSize int // Edge length of one texture slot in the atlas
}

// DefaultConfig returns the default store configuration
func DefaultConfig() Config {
	return Config{AtlasSlotSize: 256}
}

// Store owns the camera-independent scene data: the compiled triangle list,
// its BVH, the material table, the light list and the texture atlas. It is
// only mutated through Apply and Refresh; callers serialize those against
// readers.
type Store struct {
	config Config

	meshes    map[MeshID]Mesh
	materials map[MaterialID]Material
	images    map[ImageID]Image
	instances map[InstanceID]Instance
	lights    map[LightID]Light
	sun       Sun

	triangles     []Triangle
	bvh           *geometry.BVH
	materialTable []CompiledMaterial
	materialIndex map[MaterialID]uint32
	lightTable    []Light
	lightIDs      []LightID
	atlas         *Atlas
	imageSlots    map[ImageID]int
	version       uint64
	lightLayout   uint64 // Bumped whenever a light index changes meaning
}

// NewStore creates an empty store lit by the default sun
func NewStore(config Config) *Store {
	if config.AtlasSlotSize <= 0 {
		config.AtlasSlotSize = DefaultConfig().AtlasSlotSize
	}
	return &Store{
		config:        config,
		meshes:        make(map[MeshID]Mesh),
		materials:     make(map[MaterialID]Material),
		images:        make(map[ImageID]Image),
		instances:     make(map[InstanceID]Instance),
		lights:        make(map[LightID]Light),
		sun:           DefaultSun(),
		bvh:           geometry.Build(nil),
		materialIndex: make(map[MaterialID]uint32),
		atlas:         NewAtlas(config.AtlasSlotSize, 0),
		imageSlots:    make(map[ImageID]int),
	}
}

// Apply validates and applies a changelog. Validation happens before any
// mutation: when an error is returned the store is left untouched.
func (s *Store) Apply(changelog *Changelog) error {
	if changelog == nil || changelog.IsEmpty() {
		return nil
	}
	if err := validate(changelog); err != nil {
		return err
	}

	geometryDirty := !changelog.Meshes.IsEmpty() || !changelog.Instances.IsEmpty() || !changelog.Materials.IsEmpty()
	materialsDirty := !changelog.Materials.IsEmpty() || !changelog.Images.IsEmpty()
	imagesDirty := !changelog.Images.IsEmpty()
	lightsDirty := !changelog.Lights.IsEmpty()

	applyChanges(s.meshes, changelog.Meshes)
	applyChanges(s.materials, changelog.Materials)
	applyChanges(s.images, changelog.Images)
	applyChanges(s.instances, changelog.Instances)
	applyChanges(s.lights, changelog.Lights)
	if changelog.Sun != nil {
		s.sun = *changelog.Sun
	}

	if imagesDirty {
		s.rebuildAtlas()
	}
	if materialsDirty {
		s.rebuildMaterials()
	}
	if geometryDirty {
		s.rebuildGeometry()
	}
	if lightsDirty {
		s.rebuildLights()
	}

	s.version++
	return nil
}

// Refresh re-reads every dynamic image into its atlas slot and returns how
// many were refreshed
func (s *Store) Refresh() int {
	refreshed := 0
	for _, id := range slices.Sorted(maps.Keys(s.imageSlots)) {
		img := s.images[id]
		if !img.Dynamic {
			continue
		}
		s.atlas.Upload(s.imageSlots[id], img.Data)
		refreshed++
	}
	return refreshed
}

func applyChanges[K comparable, V any](dst map[K]V, changes Changes[K, V]) {
	for _, id := range changes.Removed {
		delete(dst, id)
	}
	for id, value := range changes.Changed {
		dst[id] = value
	}
}

func validate(changelog *Changelog) error {
	for id, img := range changelog.Images.Changed {
		if img.Data == nil {
			return fmt.Errorf("image %d: %w", id, ErrInvalidImage)
		}
		if img.Dynamic && img.Usage&gputypes.TextureUsageCopySrc == 0 {
			return fmt.Errorf("image %d: %w", id, ErrDynamicImageNotCopyable)
		}
	}

	for id, mesh := range changelog.Meshes.Changed {
		if err := validateMesh(mesh); err != nil {
			return fmt.Errorf("mesh %d: %w", id, err)
		}
	}

	for id, light := range changelog.Lights.Changed {
		if light.Type != LightTypePoint {
			return fmt.Errorf("light %d has type %d: %w", id, light.Type, ErrInvalidLight)
		}
		if !light.Position.IsFinite() || !light.Radiance.IsFinite() || light.Radius < 0 {
			return fmt.Errorf("light %d: %w", id, ErrInvalidLight)
		}
	}

	return nil
}

func validateMesh(mesh Mesh) error {
	if len(mesh.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a multiple of three", ErrInvalidMesh, len(mesh.Indices))
	}
	if len(mesh.Normals) != 0 && len(mesh.Normals) != len(mesh.Positions) {
		return fmt.Errorf("%w: %d normals for %d positions", ErrInvalidMesh, len(mesh.Normals), len(mesh.Positions))
	}
	if len(mesh.UVs) != 0 && len(mesh.UVs) != len(mesh.Positions) {
		return fmt.Errorf("%w: %d uvs for %d positions", ErrInvalidMesh, len(mesh.UVs), len(mesh.Positions))
	}
	for _, idx := range mesh.Indices {
		if int(idx) >= len(mesh.Positions) {
			return fmt.Errorf("%w: index %d out of range", ErrInvalidMesh, idx)
		}
	}
	for _, p := range mesh.Positions {
		if !p.IsFinite() {
			return fmt.Errorf("%w: non-finite position", ErrInvalidMesh)
		}
	}
	return nil
}

func (s *Store) rebuildAtlas() {
	ids := slices.Sorted(maps.Keys(s.images))
	s.atlas = NewAtlas(s.config.AtlasSlotSize, len(ids))
	s.imageSlots = make(map[ImageID]int, len(ids))
	for slot, id := range ids {
		s.imageSlots[id] = slot
		s.atlas.Upload(slot, s.images[id].Data)
	}
	logger.Debugf("rebuilt texture atlas with %d slots", len(ids))
}

func (s *Store) rebuildMaterials() {
	ids := slices.Sorted(maps.Keys(s.materials))
	s.materialTable = make([]CompiledMaterial, len(ids))
	s.materialIndex = make(map[MaterialID]uint32, len(ids))
	for i, id := range ids {
		s.materialTable[i] = s.compileMaterial(s.materials[id])
		s.materialIndex[id] = uint32(i)
	}
}

func (s *Store) compileMaterial(m Material) CompiledMaterial {
	reflectance := m.Reflectance
	if m.IOR > 1 {
		// F0 = 0.16 * reflectance^2 = ((ior - 1) / (ior + 1))^2
		reflectance = (m.IOR - 1) / (m.IOR + 1) / 0.4
	}

	compiled := CompiledMaterial{
		BaseColor:     m.BaseColor,
		BaseColorSlot: s.slotOf(m.BaseColorTexture),
		Emissive:      m.Emissive,
		EmissiveSlot:  s.slotOf(m.EmissiveTexture),
		Roughness:     clamp01(m.Roughness),
		Metallic:      clamp01(m.Metallic),
		Reflectance:   clamp01(reflectance),
		AlphaMode:     m.AlphaMode,
		AlphaCutoff:   m.AlphaCutoff,
	}
	return compiled
}

func (s *Store) slotOf(id *ImageID) int {
	if id == nil {
		return -1
	}
	slot, ok := s.imageSlots[*id]
	if !ok {
		logger.Warningf("material references unknown image %d", *id)
		return -1
	}
	return slot
}

func (s *Store) rebuildGeometry() {
	start := time.Now()

	triangles := make([]Triangle, 0, len(s.triangles))
	for _, id := range slices.Sorted(maps.Keys(s.instances)) {
		instance := s.instances[id]
		mesh, ok := s.meshes[instance.Mesh]
		if !ok {
			logger.Warningf("instance %d references unknown mesh %d", id, instance.Mesh)
			continue
		}
		material, ok := s.materialIndex[instance.Material]
		if !ok {
			logger.Warningf("instance %d references unknown material %d", id, instance.Material)
			continue
		}
		triangles = appendInstance(triangles, mesh, instance.Transform, material)
	}
	s.triangles = triangles

	positions := make([]geometry.Triangle, len(s.triangles))
	for i, tri := range s.triangles {
		positions[i] = geometry.NewTriangle(tri.Positions[0], tri.Positions[1], tri.Positions[2])
	}
	s.bvh = geometry.Build(positions)

	logger.Debugf("rebuilt BVH over %d triangles in %v", len(s.triangles), time.Since(start))
}

// appendInstance transforms the mesh into world space
func appendInstance(dst []Triangle, mesh Mesh, transform mgl32.Mat4, material uint32) []Triangle {
	if transform == (mgl32.Mat4{}) {
		transform = mgl32.Ident4()
	}
	normalMatrix := transform.Mat3().Inv().Transpose()

	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		var tri Triangle
		tri.Material = material
		for k := 0; k < 3; k++ {
			idx := mesh.Indices[i+k]
			tri.Positions[k] = core.Vec3FromMgl(mgl32.TransformCoordinate(mesh.Positions[idx].Mgl(), transform))
			if len(mesh.UVs) != 0 {
				tri.UVs[k] = mesh.UVs[idx]
			}
			if len(mesh.Normals) != 0 {
				tri.Normals[k] = core.Vec3FromMgl(normalMatrix.Mul3x1(mesh.Normals[idx].Mgl())).Normalize()
			}
		}
		if len(mesh.Normals) == 0 || tri.Normals[0].IsZero() {
			n := geometry.NewTriangle(tri.Positions[0], tri.Positions[1], tri.Positions[2]).GeometricNormal()
			tri.Normals = [3]core.Vec3{n, n, n}
		}
		dst = append(dst, tri)
	}
	return dst
}

func (s *Store) rebuildLights() {
	ids := slices.Sorted(maps.Keys(s.lights))
	if !slices.Equal(ids, s.lightIDs) {
		s.lightLayout++
	}
	s.lightIDs = ids
	s.lightTable = make([]Light, len(s.lightIDs))
	for i, id := range s.lightIDs {
		s.lightTable[i] = s.lights[id]
	}
	logger.Debugf("rebuilt light list with %d lights", len(s.lightTable))
}

// Version increases with every applied changelog
func (s *Store) Version() uint64 {
	return s.version
}

// LightLayout identifies the mapping from light index to host light id.
// It changes when lights are added or removed, never when a light is only
// updated in place.
func (s *Store) LightLayout() uint64 {
	return s.lightLayout
}

// Triangles returns the compiled triangles indexed by triangle id
func (s *Store) Triangles() []Triangle {
	return s.triangles
}

// BVH returns the acceleration structure over Triangles
func (s *Store) BVH() *geometry.BVH {
	return s.bvh
}

// Materials returns the compiled material table
func (s *Store) Materials() []CompiledMaterial {
	return s.materialTable
}

// Lights returns the dense light list. The position of a light in the list
// is the light id stored in reservoirs.
func (s *Store) Lights() []Light {
	return s.lightTable
}

// LightIDs returns the host identifiers of Lights, in the same order
func (s *Store) LightIDs() []LightID {
	return s.lightIDs
}

// Sun returns the current sun
func (s *Store) Sun() Sun {
	return s.sun
}

// Atlas returns the texture atlas
func (s *Store) Atlas() *Atlas {
	return s.atlas
}

// AlphaFilter returns the any-hit filter that skips transparent texels
func (s *Store) AlphaFilter() geometry.AnyHitFilter {
	return s.acceptsHit
}

func (s *Store) acceptsHit(triangleID uint32, u, v float64) bool {
	tri := &s.triangles[triangleID]
	mat := &s.materialTable[tri.Material]
	if mat.AlphaMode == AlphaOpaque {
		return true
	}

	alpha := mat.BaseColor.W * s.atlas.Sample(mat.BaseColorSlot, interpolateUV(tri, u, v)).W
	if mat.AlphaMode == AlphaMask {
		return alpha >= mat.AlphaCutoff
	}
	return alpha >= 0.5
}

// Trace returns the closest visible hit along the ray
func (s *Store) Trace(ray core.Ray, tMax float64) geometry.Hit {
	return s.bvh.Trace(ray, tMax, s.acceptsHit)
}

// Occluded reports whether any visible geometry blocks the ray before tMax
func (s *Store) Occluded(ray core.Ray, tMax float64) bool {
	return s.bvh.Occluded(ray, tMax, s.acceptsHit)
}

// SurfacePoint is a ray hit expanded with interpolated attributes. Normals
// face the incoming ray.
type SurfacePoint struct {
	Position        core.Vec3
	Normal          core.Vec3 // Interpolated shading normal
	GeometricNormal core.Vec3
	UV              core.Vec2
	Material        uint32
}

// Interpolate expands a hit returned by Trace
func (s *Store) Interpolate(ray core.Ray, hit geometry.Hit) SurfacePoint {
	tri := &s.triangles[hit.TriangleID]
	w := 1 - hit.U - hit.V

	geometric := geometry.NewTriangle(tri.Positions[0], tri.Positions[1], tri.Positions[2]).GeometricNormal()
	normal := tri.Normals[0].Multiply(w).Add(tri.Normals[1].Multiply(hit.U)).Add(tri.Normals[2].Multiply(hit.V)).Normalize()
	if normal.IsZero() {
		normal = geometric
	}
	if geometric.Dot(ray.Direction) > 0 {
		geometric = geometric.Negate()
	}
	if normal.Dot(geometric) < 0 {
		normal = normal.Negate()
	}

	return SurfacePoint{
		Position:        ray.At(hit.T),
		Normal:          normal,
		GeometricNormal: geometric,
		UV:              interpolateUV(tri, hit.U, hit.V),
		Material:        tri.Material,
	}
}

// BaseColor returns the textured base color of a material at uv
func (s *Store) BaseColor(material uint32, uv core.Vec2) core.Vec4 {
	mat := &s.materialTable[material]
	if mat.BaseColorSlot < 0 {
		return mat.BaseColor
	}
	return mat.BaseColor.MultiplyVec(s.atlas.Sample(mat.BaseColorSlot, uv))
}

// Emissive returns the textured emission of a material at uv
func (s *Store) Emissive(material uint32, uv core.Vec2) core.Vec3 {
	mat := &s.materialTable[material]
	if mat.EmissiveSlot < 0 {
		return mat.Emissive
	}
	return mat.Emissive.MultiplyVec(s.atlas.Sample(mat.EmissiveSlot, uv).XYZ())
}

func interpolateUV(tri *Triangle, u, v float64) core.Vec2 {
	w := 1 - u - v
	return tri.UVs[0].Multiply(w).Add(tri.UVs[1].Multiply(u)).Add(tri.UVs[2].Multiply(v))
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
