// Package extract turns a host application's scene into the changelogs the
// renderer consumes. The host only has to describe its current scene; the
// tracker works out what was added, updated or removed since the last frame.
package extract

import (
	"fmt"
	"image"
	"reflect"

	"github.com/df07/go-realtime-restir/pkg/log"
	"github.com/df07/go-realtime-restir/pkg/scene"
)

var logger = log.New("extract")

// Extractor produces the scene changes since its previous call
type Extractor interface {
	Extract() (scene.Changelog, error)
}

// HostScene is a complete snapshot of a host scene keyed by the host's
// stable ids. Values handed to a Tracker must not be mutated afterwards,
// except the pixels of dynamic images.
type HostScene struct {
	Meshes    map[scene.MeshID]scene.Mesh
	Materials map[scene.MaterialID]scene.Material
	Images    map[scene.ImageID]scene.Image
	Instances map[scene.InstanceID]scene.Instance
	Lights    map[scene.LightID]scene.Light
	Sun       scene.Sun
}

// NewHostScene creates an empty snapshot lit by the default sun
func NewHostScene() HostScene {
	return HostScene{
		Meshes:    make(map[scene.MeshID]scene.Mesh),
		Materials: make(map[scene.MaterialID]scene.Material),
		Images:    make(map[scene.ImageID]scene.Image),
		Instances: make(map[scene.InstanceID]scene.Instance),
		Lights:    make(map[scene.LightID]scene.Light),
		Sun:       scene.DefaultSun(),
	}
}

// Tracker diffs successive snapshots into changelogs
type Tracker struct {
	previous HostScene
	seen     bool
}

// NewTracker creates a tracker that reports everything on its first diff
func NewTracker() *Tracker {
	return &Tracker{previous: NewHostScene()}
}

// Diff returns the changes from the previously diffed snapshot to next and
// remembers next
func (t *Tracker) Diff(next HostScene) scene.Changelog {
	var changes scene.Changelog
	diffKind(&changes.Meshes, t.previous.Meshes, next.Meshes, deepEqual[scene.Mesh])
	diffKind(&changes.Materials, t.previous.Materials, next.Materials, deepEqual[scene.Material])
	diffKind(&changes.Images, t.previous.Images, next.Images, imagesEqual)
	diffKind(&changes.Instances, t.previous.Instances, next.Instances, comparableEqual[scene.Instance])
	diffKind(&changes.Lights, t.previous.Lights, next.Lights, comparableEqual[scene.Light])
	if !t.seen || next.Sun != t.previous.Sun {
		sun := next.Sun
		changes.Sun = &sun
	}

	t.previous = next
	t.seen = true

	if !changes.IsEmpty() {
		logger.Debugf("Extracted %d mesh, %d material, %d image, %d instance and %d light events",
			changes.Meshes.Len(), changes.Materials.Len(), changes.Images.Len(),
			changes.Instances.Len(), changes.Lights.Len())
	}
	return changes
}

// Reset forgets the previous snapshot so the next diff reports everything
func (t *Tracker) Reset() {
	t.previous = NewHostScene()
	t.seen = false
}

func diffKind[K comparable, V any](changes *scene.Changes[K, V], previous, next map[K]V, equal func(a, b V) bool) {
	for id := range previous {
		if _, ok := next[id]; !ok {
			changes.Remove(id)
		}
	}
	for id, value := range next {
		old, ok := previous[id]
		if !ok || !equal(old, value) {
			changes.Set(id, value)
		}
	}
}

func comparableEqual[V comparable](a, b V) bool {
	return a == b
}

// deepEqual compares values holding slices or pointers by content
func deepEqual[V any](a, b V) bool {
	return reflect.DeepEqual(a, b)
}

// imagesEqual compares image data by identity; pixel changes of dynamic
// images are picked up by the store's refresh instead
func imagesEqual(a, b scene.Image) bool {
	return a.Usage == b.Usage && a.Dynamic == b.Dynamic && sameData(a.Data, b.Data)
}

func sameData(a, b image.Image) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if va.Kind() == reflect.Pointer {
		return va.Pointer() == vb.Pointer()
	}
	return reflect.DeepEqual(a, b)
}

// SnapshotExtractor adapts a snapshot source to the Extractor interface
type SnapshotExtractor struct {
	source  func() (HostScene, error)
	tracker *Tracker
}

// NewSnapshotExtractor creates an extractor that diffs what source returns
func NewSnapshotExtractor(source func() (HostScene, error)) *SnapshotExtractor {
	return &SnapshotExtractor{source: source, tracker: NewTracker()}
}

// Extract takes a snapshot and returns what changed since the last one
func (e *SnapshotExtractor) Extract() (scene.Changelog, error) {
	snapshot, err := e.source()
	if err != nil {
		return scene.Changelog{}, fmt.Errorf("extract snapshot: %w", err)
	}
	return e.tracker.Diff(snapshot), nil
}
