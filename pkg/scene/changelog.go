package scene

// Changes collects the added, updated and removed entities of one kind.
// Added and updated entities are both reported through Changed.
type Changes[K comparable, V any] struct {
	Changed map[K]V
	Removed []K
}

// Set records an added or updated entity
func (c *Changes[K, V]) Set(id K, value V) {
	if c.Changed == nil {
		c.Changed = make(map[K]V)
	}
	c.Changed[id] = value
}

// Remove records a removed entity
func (c *Changes[K, V]) Remove(id K) {
	c.Removed = append(c.Removed, id)
}

// IsEmpty reports whether nothing changed
func (c Changes[K, V]) IsEmpty() bool {
	return len(c.Changed) == 0 && len(c.Removed) == 0
}

// Len returns the number of recorded events
func (c Changes[K, V]) Len() int {
	return len(c.Changed) + len(c.Removed)
}

// Changelog is the set of scene changes reported by the host between two
// frames. Removals of a kind are applied before its changes.
type Changelog struct {
	Meshes    Changes[MeshID, Mesh]
	Materials Changes[MaterialID, Material]
	Images    Changes[ImageID, Image]
	Instances Changes[InstanceID, Instance]
	Lights    Changes[LightID, Light]
	Sun       *Sun // Nil leaves the current sun unchanged
}

// IsEmpty reports whether the changelog carries no events
func (c *Changelog) IsEmpty() bool {
	return c.Meshes.IsEmpty() && c.Materials.IsEmpty() && c.Images.IsEmpty() &&
		c.Instances.IsEmpty() && c.Lights.IsEmpty() && c.Sun == nil
}
