package spawn

import (
	"github.com/google/uuid"

	"github.com/craftmods/cobblespawner/internal/model"
)

// Block is the world's answer to a block query: the collision facts the
// position validator needs.
type Block struct {
	Air             bool
	CollisionEmpty  bool    // collision shape has no volume
	SolidTopFace    bool    // reports a full solid top face
	StandingSurface bool    // slab/stair-like partial-height surface
	CollisionTop    float64 // top of collision bounding box, fraction of a block
}

// Passable reports whether a creature body can occupy this block.
func (b Block) Passable() bool {
	return b.Air || b.CollisionEmpty
}

// CreatureState is the host-side liveness view of a spawned creature,
// queried during ledger reconciliation.
type CreatureState struct {
	Alive bool
	Wild  bool // still spawner-owned: not captured, traded or tamed
}

// World is the host world surface the engine consumes. One World per
// dimension; the engine resolves a spawner's dimension to a World through
// the WorldSource it was built with.
type World interface {
	BlockAt(pos model.Position) Block
	ChunkLoaded(pos model.Position) bool

	TimeOfDay() int64
	IsRaining() bool
	IsThundering() bool
	CurrentTick() int64

	// SpawnCreature attempts host-level placement. Returns false when the
	// host rejects the spawn (position occupied, entity limit, ...).
	SpawnCreature(pos model.Position, c model.Creature) (uuid.UUID, bool)
	Creature(id uuid.UUID) (CreatureState, bool)
	RemoveCreature(id uuid.UUID) bool
}

// WorldSource resolves a dimension identifier to its World.
// Returns false when the dimension is unavailable this tick.
type WorldSource interface {
	WorldFor(dimension string) (World, bool)
}
