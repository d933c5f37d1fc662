package spawn

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"github.com/craftmods/cobblespawner/internal/catalog"
	"github.com/craftmods/cobblespawner/internal/model"
)

// fakeWorld is an in-file World for unit tests: map-backed blocks (default
// air), settable time/weather, recorded spawns.
type fakeWorld struct {
	mu         sync.Mutex
	blocks     map[model.Position]Block
	unloaded   map[model.Position]bool
	timeOfDay  int64
	raining    bool
	thundering bool
	tick       int64
	creatures  map[uuid.UUID]CreatureState
	spawned    []spawnedCreature
	rejectAll  bool
}

type spawnedCreature struct {
	id  uuid.UUID
	pos model.Position
	c   model.Creature
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		blocks:    make(map[model.Position]Block),
		unloaded:  make(map[model.Position]bool),
		creatures: make(map[uuid.UUID]CreatureState),
	}
}

var (
	testAir   = Block{Air: true, CollisionEmpty: true}
	testStone = Block{SolidTopFace: true, CollisionTop: 1.0}
	testSlab  = Block{StandingSurface: true, CollisionTop: 0.5}
	testPath  = Block{CollisionTop: 0.9375}
	testFence = Block{CollisionTop: 1.5}
)

func (w *fakeWorld) setBlock(pos model.Position, b Block) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blocks[pos] = b
}

// addFloor lays a flat stone floor at height y covering [x1,x2]×[z1,z2].
func (w *fakeWorld) addFloor(y, x1, x2, z1, z2 int32) {
	for x := x1; x <= x2; x++ {
		for z := z1; z <= z2; z++ {
			w.setBlock(model.NewPosition(x, y, z), testStone)
		}
	}
}

func (w *fakeWorld) BlockAt(pos model.Position) Block {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.blocks[pos]; ok {
		return b
	}
	return testAir
}

func (w *fakeWorld) ChunkLoaded(pos model.Position) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.unloaded[pos]
}

func (w *fakeWorld) TimeOfDay() int64   { return w.timeOfDay }
func (w *fakeWorld) IsRaining() bool    { return w.raining }
func (w *fakeWorld) IsThundering() bool { return w.thundering }
func (w *fakeWorld) CurrentTick() int64 { return w.tick }

func (w *fakeWorld) SpawnCreature(pos model.Position, c model.Creature) (uuid.UUID, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rejectAll {
		return uuid.UUID{}, false
	}
	id := uuid.New()
	w.creatures[id] = CreatureState{Alive: true, Wild: true}
	w.spawned = append(w.spawned, spawnedCreature{id: id, pos: pos, c: c})
	return id, true
}

func (w *fakeWorld) Creature(id uuid.UUID) (CreatureState, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	state, ok := w.creatures[id]
	return state, ok
}

func (w *fakeWorld) RemoveCreature(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.creatures[id]
	delete(w.creatures, id)
	return ok
}

func (w *fakeWorld) kill(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.creatures[id] = CreatureState{Alive: false, Wild: true}
}

func (w *fakeWorld) capture(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.creatures[id] = CreatureState{Alive: true, Wild: false}
}

func (w *fakeWorld) spawnCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.spawned)
}

// fakeSource maps a single dimension name to one fakeWorld.
type fakeSource struct {
	dimension string
	world     *fakeWorld
}

func (s *fakeSource) WorldFor(dimension string) (World, bool) {
	if dimension != s.dimension {
		return nil, false
	}
	return s.world, true
}

// fakeCatalog resolves a fixed species set and item list.
type fakeCatalog struct {
	species map[string]catalog.Species
	items   map[string]bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		species: make(map[string]catalog.Species),
		items:   make(map[string]bool),
	}
}

func (c *fakeCatalog) add(s catalog.Species) {
	c.species[model.NormalizeName(s.Name)] = s
}

func (c *fakeCatalog) ByName(name string) (catalog.Species, bool) {
	s, ok := c.species[model.NormalizeName(name)]
	return s, ok
}

func (c *fakeCatalog) ItemKnown(id string) bool {
	return c.items[id]
}

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(42, 1))
}

// newTestEngine wires an engine over a fake world with one flat-floor
// spawner, the common fixture for orchestrator tests.
func newTestEngine(w *fakeWorld) (*Engine, *MemoryStore) {
	source := &fakeSource{dimension: "overworld", world: w}
	cat := newFakeCatalog()
	cat.add(catalog.Species{
		Name:   "Fieldmouse",
		Hitbox: catalog.Hitbox{Width: 0.6, Height: 0.5},
	})
	cat.add(catalog.Species{
		Name: "Duskwing",
		Forms: []catalog.Form{
			{ID: "crimson", Aspects: []string{"crimson-wings"}},
		},
		Hitbox: catalog.Hitbox{Width: 0.9, Height: 0.9},
	})
	store := NewMemoryStore()
	engine := NewEngine(store, source, cat, cat, Options{})
	return engine, store
}
