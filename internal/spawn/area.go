package spawn

import (
	"log/slog"
	"sync"

	"github.com/craftmods/cobblespawner/internal/model"
)

// AreaCache memoizes the valid spawn positions of each spawner. Entries are
// computed lazily and removed on world mutation within the spawner's radius,
// on spawner removal, or on full reload. Concurrent invalidation during a
// read is fine: a miss just triggers recomputation.
type AreaCache struct {
	positions sync.Map // map[model.SpawnerKey][]model.Position
}

// NewAreaCache creates an empty cache.
func NewAreaCache() *AreaCache {
	return &AreaCache{}
}

// Compute enumerates every position within the spawner's box and collects
// those passing the ground/clearance predicate. This is the dominant cost
// center, so callers go through Get and reuse the result until invalidated.
func Compute(w World, spawner *model.Spawner) []model.Position {
	r := spawner.Radius()
	center := spawner.Pos()
	valid := make([]model.Position, 0, 16)
	for dx := -r.Width; dx <= r.Width; dx++ {
		for dy := -r.Height; dy <= r.Height; dy++ {
			for dz := -r.Width; dz <= r.Width; dz++ {
				pos := center.Offset(dx, dy, dz)
				if SafeForSpawn(w, pos) {
					valid = append(valid, pos)
				}
			}
		}
	}
	slog.Debug("computed valid spawn positions",
		"spawner", spawner.Name(),
		"pos", center,
		"count", len(valid))
	return valid
}

// Get returns the cached valid positions for the spawner, computing them on
// miss. An empty first computation is retried once (transient chunk-loading
// gaps); a still-empty result is cached so spawn attempts stay cheap until
// the next invalidation.
func (c *AreaCache) Get(w World, spawner *model.Spawner) []model.Position {
	key := spawner.Key()
	if cached, ok := c.positions.Load(key); ok {
		return cached.([]model.Position)
	}

	valid := Compute(w, spawner)
	if len(valid) == 0 {
		valid = Compute(w, spawner)
		if len(valid) == 0 {
			slog.Error("no valid spawn positions found after two attempts",
				"spawner", spawner.Name(),
				"pos", spawner.Pos())
		}
	}

	actual, _ := c.positions.LoadOrStore(key, valid)
	return actual.([]model.Position)
}

// Peek returns the cached positions without computing on miss.
func (c *AreaCache) Peek(key model.SpawnerKey) ([]model.Position, bool) {
	cached, ok := c.positions.Load(key)
	if !ok {
		return nil, false
	}
	return cached.([]model.Position), true
}

// Invalidate removes the cached entry for one spawner.
func (c *AreaCache) Invalidate(key model.SpawnerKey) {
	c.positions.Delete(key)
}

// Reset drops every cached entry (full reload).
func (c *AreaCache) Reset() {
	c.positions.Range(func(key, _ any) bool {
		c.positions.Delete(key)
		return true
	})
}
