// Package world provides the in-memory world the daemon and the tests run
// the spawn engine against: a block store with collision metadata, a chunk
// map, world time/weather, and a live creature table.
package world

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/craftmods/cobblespawner/internal/model"
	"github.com/craftmods/cobblespawner/internal/spawn"
)

const chunkSize = 16

// Common block archetypes.
var (
	Air      = spawn.Block{Air: true, CollisionEmpty: true}
	Stone    = spawn.Block{SolidTopFace: true, CollisionTop: 1.0}
	Slab     = spawn.Block{StandingSurface: true, CollisionTop: 0.5}
	Stairs   = spawn.Block{StandingSurface: true, CollisionTop: 1.0}
	Farmland = spawn.Block{CollisionTop: 0.9375}
	Fence    = spawn.Block{CollisionTop: 1.5}
	Water    = spawn.Block{CollisionEmpty: true}
)

type creatureRecord struct {
	creature model.Creature
	pos      model.Position
	state    spawn.CreatureState
}

// Memory is one in-memory dimension. Unset blocks read as air; chunks read
// as loaded unless explicitly unloaded. Safe for concurrent use.
type Memory struct {
	dimension string

	blocks    sync.Map // map[model.Position]spawn.Block
	unloaded  sync.Map // map[[2]int32]struct{}, keyed by chunk (cx, cz)
	creatures sync.Map // map[uuid.UUID]*creatureRecord

	tick atomic.Int64

	mu         sync.RWMutex
	raining    bool
	thundering bool
	rejectNext bool // next SpawnCreature call fails (test hook)
}

// NewMemory creates an empty dimension with the given identifier.
func NewMemory(dimension string) *Memory {
	return &Memory{dimension: dimension}
}

// Dimension returns the dimension identifier.
func (m *Memory) Dimension() string {
	return m.dimension
}

// SetBlock places a block, overwriting whatever was there.
func (m *Memory) SetBlock(pos model.Position, b spawn.Block) {
	if b.Air {
		m.blocks.Delete(pos)
		return
	}
	m.blocks.Store(pos, b)
}

// BlockAt returns the block at pos; unset positions are air.
func (m *Memory) BlockAt(pos model.Position) spawn.Block {
	v, ok := m.blocks.Load(pos)
	if !ok {
		return Air
	}
	return v.(spawn.Block)
}

// SetChunkLoaded marks the chunk containing pos as loaded or unloaded.
func (m *Memory) SetChunkLoaded(pos model.Position, loaded bool) {
	key := chunkKey(pos)
	if loaded {
		m.unloaded.Delete(key)
	} else {
		m.unloaded.Store(key, struct{}{})
	}
}

// ChunkLoaded reports whether the chunk containing pos is loaded.
func (m *Memory) ChunkLoaded(pos model.Position) bool {
	_, unloaded := m.unloaded.Load(chunkKey(pos))
	return !unloaded
}

func chunkKey(pos model.Position) [2]int32 {
	return [2]int32{floorDiv(pos.X, chunkSize), floorDiv(pos.Z, chunkSize)}
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// AdvanceTick moves world time forward one tick.
func (m *Memory) AdvanceTick() {
	m.tick.Add(1)
}

// SetTick sets the absolute world tick (tests and save restore).
func (m *Memory) SetTick(tick int64) {
	m.tick.Store(tick)
}

// CurrentTick returns the monotonic world tick.
func (m *Memory) CurrentTick() int64 {
	return m.tick.Load()
}

// TimeOfDay returns the tick within the 24000-tick day/night cycle.
func (m *Memory) TimeOfDay() int64 {
	return m.tick.Load() % 24000
}

// SetWeather sets the rain and thunder flags.
func (m *Memory) SetWeather(raining, thundering bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raining = raining
	m.thundering = thundering
}

// IsRaining reports whether it is raining.
func (m *Memory) IsRaining() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.raining
}

// IsThundering reports whether a thunderstorm is active.
func (m *Memory) IsThundering() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.thundering
}

// RejectNextSpawn makes the next SpawnCreature call fail (test hook for
// host-level placement rejection).
func (m *Memory) RejectNextSpawn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectNext = true
}

// SpawnCreature places a creature at pos with a fresh identity.
func (m *Memory) SpawnCreature(pos model.Position, c model.Creature) (uuid.UUID, bool) {
	m.mu.Lock()
	reject := m.rejectNext
	m.rejectNext = false
	m.mu.Unlock()
	if reject {
		return uuid.UUID{}, false
	}

	id := uuid.New()
	m.creatures.Store(id, creatureRecord{
		creature: c,
		pos:      pos,
		state:    spawn.CreatureState{Alive: true, Wild: true},
	})
	return id, true
}

// Creature returns the liveness state of a creature.
func (m *Memory) Creature(id uuid.UUID) (spawn.CreatureState, bool) {
	v, ok := m.creatures.Load(id)
	if !ok {
		return spawn.CreatureState{}, false
	}
	return v.(creatureRecord).state, true
}

// CreatureDetail returns the spawned creature's attributes and position.
func (m *Memory) CreatureDetail(id uuid.UUID) (model.Creature, model.Position, bool) {
	v, ok := m.creatures.Load(id)
	if !ok {
		return model.Creature{}, model.Position{}, false
	}
	rec := v.(creatureRecord)
	return rec.creature, rec.pos, true
}

// RemoveCreature discards a creature entity. Returns false for unknown ids.
func (m *Memory) RemoveCreature(id uuid.UUID) bool {
	_, ok := m.creatures.LoadAndDelete(id)
	return ok
}

func (m *Memory) setState(id uuid.UUID, state spawn.CreatureState) bool {
	v, ok := m.creatures.Load(id)
	if !ok {
		return false
	}
	rec := v.(creatureRecord)
	rec.state = state
	m.creatures.Store(id, rec)
	return true
}

// KillCreature marks a creature dead without removing the entity.
func (m *Memory) KillCreature(id uuid.UUID) bool {
	return m.setState(id, spawn.CreatureState{Alive: false, Wild: true})
}

// CaptureCreature marks a creature as no longer wild (captured or traded).
func (m *Memory) CaptureCreature(id uuid.UUID) bool {
	return m.setState(id, spawn.CreatureState{Alive: true, Wild: false})
}

// CreatureCount returns the number of live entities in this dimension.
func (m *Memory) CreatureCount() int {
	count := 0
	m.creatures.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// Source is a registry of dimensions implementing spawn.WorldSource.
type Source struct {
	worlds sync.Map // map[string]*Memory
}

// NewSource creates an empty dimension registry.
func NewSource() *Source {
	return &Source{}
}

// Register adds a dimension to the registry.
func (s *Source) Register(m *Memory) {
	s.worlds.Store(m.Dimension(), m)
}

// WorldFor resolves a dimension identifier.
func (s *Source) WorldFor(dimension string) (spawn.World, bool) {
	v, ok := s.worlds.Load(dimension)
	if !ok {
		return nil, false
	}
	return v.(*Memory), true
}

// Memory returns the concrete dimension (for stepping and inspection).
func (s *Source) Memory(dimension string) (*Memory, bool) {
	v, ok := s.worlds.Load(dimension)
	if !ok {
		return nil, false
	}
	return v.(*Memory), true
}

// Each calls fn for every registered dimension.
func (s *Source) Each(fn func(*Memory)) {
	s.worlds.Range(func(_, v any) bool {
		fn(v.(*Memory))
		return true
	})
}
