package extract

import (
	"errors"
	"image"
	"testing"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
)

func sampleScene() HostScene {
	host := NewHostScene()
	host.Meshes[1] = scene.Mesh{
		Positions: []core.Vec3{core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1)},
		Indices:   []uint32{0, 2, 1},
	}
	host.Materials[1] = scene.DefaultMaterial()
	host.Images[1] = scene.Image{Data: image.NewNRGBA(image.Rect(0, 0, 2, 2))}
	host.Instances[1] = scene.Instance{Mesh: 1, Material: 1, Transform: mgl32.Ident4()}
	host.Lights[1] = scene.NewPointLight(core.NewVec3(0, 2, 0), 0.1, core.NewVec3(5, 5, 5), 0)
	return host
}

// clone copies the maps so snapshots can be edited independently
func clone(host HostScene) HostScene {
	next := NewHostScene()
	for k, v := range host.Meshes {
		next.Meshes[k] = v
	}
	for k, v := range host.Materials {
		next.Materials[k] = v
	}
	for k, v := range host.Images {
		next.Images[k] = v
	}
	for k, v := range host.Instances {
		next.Instances[k] = v
	}
	for k, v := range host.Lights {
		next.Lights[k] = v
	}
	next.Sun = host.Sun
	return next
}

func TestTracker_FirstDiffReportsEverything(t *testing.T) {
	changes := NewTracker().Diff(sampleScene())

	if len(changes.Meshes.Changed) != 1 || len(changes.Materials.Changed) != 1 ||
		len(changes.Images.Changed) != 1 || len(changes.Instances.Changed) != 1 ||
		len(changes.Lights.Changed) != 1 {
		t.Errorf("Expected one added entity per kind, got %+v", changes)
	}
	if changes.Sun == nil {
		t.Errorf("Expected the sun to be reported")
	}
}

func TestTracker_UnchangedSnapshotIsEmpty(t *testing.T) {
	tracker := NewTracker()
	host := sampleScene()
	tracker.Diff(host)

	changes := tracker.Diff(clone(host))
	if !changes.IsEmpty() {
		t.Errorf("Expected no changes, got %+v", changes)
	}
}

func TestTracker_UpdatesAndRemovals(t *testing.T) {
	tracker := NewTracker()
	host := sampleScene()
	tracker.Diff(host)

	next := clone(host)
	next.Lights[1] = scene.NewPointLight(core.NewVec3(0, 3, 0), 0.1, core.NewVec3(5, 5, 5), 0)
	next.Lights[2] = scene.NewPointLight(core.NewVec3(1, 1, 1), 0.1, core.NewVec3(1, 1, 1), 0)
	delete(next.Instances, 1)
	emissive := scene.DefaultMaterial()
	emissive.Emissive = core.NewVec3(1, 0, 0)
	next.Materials[1] = emissive

	changes := tracker.Diff(next)

	if len(changes.Lights.Changed) != 2 {
		t.Errorf("Expected 2 changed lights, got %d", len(changes.Lights.Changed))
	}
	if len(changes.Instances.Removed) != 1 || changes.Instances.Removed[0] != 1 {
		t.Errorf("Expected instance 1 to be removed, got %v", changes.Instances.Removed)
	}
	if _, ok := changes.Materials.Changed[1]; !ok {
		t.Errorf("Expected material 1 to be updated")
	}
	if !changes.Meshes.IsEmpty() || !changes.Images.IsEmpty() {
		t.Errorf("Expected meshes and images to be unchanged")
	}
	if changes.Sun != nil {
		t.Errorf("Expected the sun to be unchanged")
	}
}

func TestTracker_ImagesCompareByIdentity(t *testing.T) {
	tracker := NewTracker()
	host := sampleScene()
	tracker.Diff(host)

	next := clone(host)
	next.Images[1] = scene.Image{Data: image.NewNRGBA(image.Rect(0, 0, 2, 2))}
	changes := tracker.Diff(next)
	if _, ok := changes.Images.Changed[1]; !ok {
		t.Errorf("Expected a replaced image to be reported")
	}
}

func TestTracker_ChangelogAppliesToStore(t *testing.T) {
	tracker := NewTracker()
	store := scene.NewStore(scene.DefaultConfig())

	host := sampleScene()
	changes := tracker.Diff(host)
	if err := store.Apply(&changes); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(store.Triangles()) != 1 || len(store.Lights()) != 1 {
		t.Fatalf("Expected 1 triangle and 1 light, got %d and %d", len(store.Triangles()), len(store.Lights()))
	}

	next := clone(host)
	delete(next.Lights, 1)
	delete(next.Instances, 1)
	changes = tracker.Diff(next)
	if err := store.Apply(&changes); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(store.Triangles()) != 0 || len(store.Lights()) != 0 {
		t.Errorf("Expected an empty scene, got %d triangles and %d lights", len(store.Triangles()), len(store.Lights()))
	}
}

func TestSnapshotExtractor(t *testing.T) {
	calls := 0
	extractor := NewSnapshotExtractor(func() (HostScene, error) {
		calls++
		if calls == 3 {
			return HostScene{}, errors.New("host unavailable")
		}
		return sampleScene(), nil
	})

	var _ Extractor = extractor

	first, err := extractor.Extract()
	if err != nil || first.IsEmpty() {
		t.Fatalf("Expected a full first changelog, got %+v, %v", first, err)
	}
	second, err := extractor.Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	// Only the freshly allocated image differs
	if !second.Meshes.IsEmpty() || !second.Lights.IsEmpty() || !second.Instances.IsEmpty() || second.Sun != nil {
		t.Errorf("Expected everything but images to be unchanged, got %+v", second)
	}
	if second.Images.Len() != 1 {
		t.Errorf("Expected the new image allocation to be reported, got %d events", second.Images.Len())
	}
	if _, err := extractor.Extract(); err == nil {
		t.Errorf("Expected the source error to be returned")
	}
}
