package geometry

import (
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
)

// Leaf threshold: if we have this many or fewer triangles, store them in a leaf node
const leafThreshold = 8

// stackSize is the traversal stack kept off the heap. Midpoint splits are not
// depth bounded, so deeper trees grow the stack.
const stackSize = 64

// Node is one entry of the flattened hierarchy. Interior nodes store their
// children; leaves store a range into the BVH's triangle permutation.
type Node struct {
	Bounds core.AABB
	Left   int32  // Index of the left child, -1 for leaves
	Right  int32  // Index of the right child, -1 for leaves
	First  uint32 // First entry of the leaf range in Indices
	Count  uint32 // Number of triangles in the leaf (0 for interior nodes)
}

// IsLeaf reports whether the node references triangles directly
func (n *Node) IsLeaf() bool {
	return n.Count > 0
}

// BVH is a flattened bounding volume hierarchy. It is immutable once built
// and safe for concurrent traversal.
type BVH struct {
	Nodes     []Node
	Indices   []uint32   // Triangle ids in leaf order
	Triangles []Triangle // Triangles indexed by triangle id
}

// Hit describes the closest intersection of a ray
type Hit struct {
	TriangleID uint32
	T          float64 // Ray parameter of the hit, +Inf for a miss
	U, V       float64 // Barycentric weights of the second and third vertex
}

// Miss is the hit value returned when nothing was intersected
var Miss = Hit{T: math.Inf(1)}

// IsMiss reports whether the ray hit nothing
func (h Hit) IsMiss() bool {
	return math.IsInf(h.T, 1)
}

// AnyHitFilter decides whether a candidate intersection counts as a hit. It
// lets the scene discard alpha-tested texels. A nil filter accepts every hit.
type AnyHitFilter func(triangleID uint32, u, v float64) bool

// Build constructs a BVH over the triangles. Triangle ids are positions in the
// input slice; the slice is copied.
func Build(triangles []Triangle) *BVH {
	bvh := &BVH{
		Triangles: make([]Triangle, len(triangles)),
		Indices:   make([]uint32, len(triangles)),
	}
	copy(bvh.Triangles, triangles)
	if len(triangles) == 0 {
		return bvh
	}

	centroids := make([]core.Vec3, len(triangles))
	bounds := make([]core.AABB, len(triangles))
	for i, tri := range triangles {
		bvh.Indices[i] = uint32(i)
		centroids[i] = tri.Centroid()
		bounds[i] = tri.Bounds()
	}

	bvh.Nodes = make([]Node, 0, 2*len(triangles)/leafThreshold+1)
	b := builder{bvh: bvh, centroids: centroids, bounds: bounds}
	b.build(0, uint32(len(triangles)))
	return bvh
}

type builder struct {
	bvh       *BVH
	centroids []core.Vec3
	bounds    []core.AABB
}

// build appends the subtree for Indices[first:first+count] depth-first and
// returns its node index
func (b *builder) build(first, count uint32) int32 {
	indices := b.bvh.Indices[first : first+count]

	box := core.EmptyAABB()
	centroidBox := core.EmptyAABB()
	for _, id := range indices {
		box = box.Union(b.bounds[id])
		centroidBox = centroidBox.Grow(b.centroids[id])
	}

	nodeIdx := int32(len(b.bvh.Nodes))
	b.bvh.Nodes = append(b.bvh.Nodes, Node{Bounds: box, Left: -1, Right: -1})

	if count <= leafThreshold {
		b.makeLeaf(nodeIdx, first, count)
		return nodeIdx
	}

	// Midpoint split along the longest centroid axis
	axis := centroidBox.LongestAxis()
	lo, hi := centroidBox.Min.Axis(axis), centroidBox.Max.Axis(axis)
	if hi <= lo {
		// All centroids coincide; nothing to split on
		b.makeLeaf(nodeIdx, first, count)
		return nodeIdx
	}
	splitPos := (lo + hi) * 0.5

	mid := partition(indices, func(id uint32) bool {
		return b.centroids[id].Axis(axis) < splitPos
	})
	if mid == 0 || mid == len(indices) {
		mid = len(indices) / 2
	}

	left := b.build(first, uint32(mid))
	right := b.build(first+uint32(mid), count-uint32(mid))
	b.bvh.Nodes[nodeIdx].Left = left
	b.bvh.Nodes[nodeIdx].Right = right
	return nodeIdx
}

func (b *builder) makeLeaf(nodeIdx int32, first, count uint32) {
	b.bvh.Nodes[nodeIdx].First = first
	b.bvh.Nodes[nodeIdx].Count = count
}

// partition reorders ids in place so that every id satisfying pred comes first
// and returns the number of such ids
func partition(ids []uint32, pred func(uint32) bool) int {
	i := 0
	for j := range ids {
		if pred(ids[j]) {
			ids[i], ids[j] = ids[j], ids[i]
			i++
		}
	}
	return i
}

// Trace returns the closest hit along the ray within (0, tMax]. Equal
// distances resolve to the lowest triangle id. Degenerate rays miss.
func (bvh *BVH) Trace(ray core.Ray, tMax float64, filter AnyHitFilter) Hit {
	if len(bvh.Nodes) == 0 || ray.IsDegenerate() {
		return Miss
	}

	invDir := core.InverseDirection(ray.Direction)
	best := Miss
	best.T = tMax
	found := false

	var storage [stackSize]int32
	stack := append(storage[:0], 0)

	for len(stack) > 0 {
		node := &bvh.Nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		// Children are tested with <= best.T so equal-distance hits in other
		// subtrees still get a chance at the tie-break
		if _, ok := node.Bounds.Intersect(ray.Origin, invDir, 0, best.T); !ok {
			continue
		}

		if node.IsLeaf() {
			for _, id := range bvh.Indices[node.First : node.First+node.Count] {
				t, u, v, ok := bvh.Triangles[id].Intersect(ray, 0, best.T)
				if !ok || t <= 0 {
					continue
				}
				if found && t == best.T && id > best.TriangleID {
					continue
				}
				if filter != nil && !filter(id, u, v) {
					continue
				}
				best = Hit{TriangleID: id, T: t, U: u, V: v}
				found = true
			}
			continue
		}

		// Push the far child first so the near child is visited first
		left, right := node.Left, node.Right
		tLeft, okLeft := bvh.Nodes[left].Bounds.Intersect(ray.Origin, invDir, 0, best.T)
		tRight, okRight := bvh.Nodes[right].Bounds.Intersect(ray.Origin, invDir, 0, best.T)
		if okLeft && okRight && tRight < tLeft {
			left, right = right, left
			okLeft, okRight = okRight, okLeft
		}
		if okRight {
			stack = append(stack, right)
		}
		if okLeft {
			stack = append(stack, left)
		}
	}

	if !found {
		return Miss
	}
	return best
}

// Occluded reports whether anything blocks the ray within (0, tMax). It stops
// at the first accepted hit.
func (bvh *BVH) Occluded(ray core.Ray, tMax float64, filter AnyHitFilter) bool {
	if len(bvh.Nodes) == 0 || ray.IsDegenerate() {
		return false
	}

	invDir := core.InverseDirection(ray.Direction)

	var storage [stackSize]int32
	stack := append(storage[:0], 0)

	for len(stack) > 0 {
		node := &bvh.Nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if _, ok := node.Bounds.Intersect(ray.Origin, invDir, 0, tMax); !ok {
			continue
		}

		if node.IsLeaf() {
			for _, id := range bvh.Indices[node.First : node.First+node.Count] {
				t, u, v, ok := bvh.Triangles[id].Intersect(ray, 0, tMax)
				if !ok || t <= 0 || t >= tMax {
					continue
				}
				if filter == nil || filter(id, u, v) {
					return true
				}
			}
			continue
		}

		stack = append(stack, node.Right, node.Left)
	}

	return false
}

// Bounds returns the bounding box of the whole scene
func (bvh *BVH) Bounds() core.AABB {
	if len(bvh.Nodes) == 0 {
		return core.AABB{}
	}
	return bvh.Nodes[0].Bounds
}

// bvhStats contains statistics about the BVH structure
type bvhStats struct {
	totalNodes     int
	leafNodes      int
	maxDepth       int
	totalTriangles int
}

// stats walks the tree and collects structural statistics
func (bvh *BVH) stats() bvhStats {
	var s bvhStats
	if len(bvh.Nodes) == 0 {
		return s
	}
	bvh.collectStats(0, 0, &s)
	return s
}

func (bvh *BVH) collectStats(idx int32, depth int, s *bvhStats) {
	node := &bvh.Nodes[idx]
	s.totalNodes++
	s.maxDepth = max(s.maxDepth, depth)

	if node.IsLeaf() {
		s.leafNodes++
		s.totalTriangles += int(node.Count)
		return
	}
	bvh.collectStats(node.Left, depth+1, s)
	bvh.collectStats(node.Right, depth+1, s)
}
