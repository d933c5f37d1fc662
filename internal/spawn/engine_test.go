package spawn

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftmods/cobblespawner/internal/model"
)

// recordSink collects published events for assertions.
type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordSink) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordSink) ofType(t EventType) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// addTestSpawner registers a spawner over a 3×3 stone floor with one
// always-eligible Fieldmouse entry at a fixed level.
func addTestSpawner(t *testing.T, engine *Engine, w *fakeWorld) *model.Spawner {
	t.Helper()
	w.addFloor(63, -1, 1, -1, 1)
	key := model.NewSpawnerKey(model.NewPosition(0, 64, 0), "overworld")
	spawner, err := engine.AddSpawner(context.Background(), key, "test")
	require.NoError(t, err)
	spawner.SetRadius(model.SpawnRadius{Width: 1, Height: 1})
	spawner.SetTimerTicks(200)
	spawner.SetLimit(4)
	spawner.SetAmountPerTick(1)

	entry := model.NewSpawnEntry("Fieldmouse")
	entry.MinLevel = 10
	entry.MaxLevel = 10
	require.True(t, engine.AddEntry(context.Background(), key, entry))
	return spawner
}

func TestTickSpawnsOneCreature(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	key := spawner.Key()

	w.tick = 300
	engine.Tick(context.Background())

	require.Equal(t, 1, w.spawnCount())
	assert.Equal(t, 1, engine.Ledger().CountFor(key))

	sp := w.spawned[0]
	assert.Equal(t, "Fieldmouse", sp.c.Species)
	assert.Equal(t, 10, sp.c.Attributes.Level)
	assert.False(t, sp.c.Attributes.Shiny)

	info, ok := engine.Ledger().Info(sp.id)
	require.True(t, ok)
	assert.Equal(t, key, info.Spawner)
}

func TestTickRespectsTimer(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	addTestSpawner(t, engine, w)

	w.tick = 300
	engine.Tick(context.Background())
	require.Equal(t, 1, w.spawnCount())

	// The cooldown restarted at tick 300: ticks up to and including 500
	// spawn nothing.
	for _, tick := range []int64{301, 400, 500} {
		w.tick = tick
		engine.Tick(context.Background())
	}
	assert.Equal(t, 1, w.spawnCount())

	w.tick = 501
	engine.Tick(context.Background())
	assert.Equal(t, 2, w.spawnCount())
}

func TestTickStopsAtLimit(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	spawner.SetLimit(2)

	tick := int64(300)
	for i := 0; i < 6; i++ {
		w.tick = tick
		engine.Tick(context.Background())
		tick += 201
	}

	assert.Equal(t, 2, w.spawnCount())
	assert.Equal(t, 2, engine.Ledger().CountFor(spawner.Key()))
}

func TestTickZeroTotalWeightSpawnsNothing(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	spawner.UpdateEntry("Fieldmouse", "", func(e *model.SpawnEntry) {
		e.Weight = 0
	})
	second := model.NewSpawnEntry("Duskwing")
	second.Weight = 0
	require.True(t, engine.AddEntry(context.Background(), spawner.Key(), second))

	w.tick = 300
	engine.Tick(context.Background())
	assert.Equal(t, 0, w.spawnCount())

	// The cooldown still restarted: the next eligible window opens only
	// after a full interval.
	spawner.UpdateEntry("Fieldmouse", "", func(e *model.SpawnEntry) {
		e.Weight = 100
	})
	w.tick = 400
	engine.Tick(context.Background())
	assert.Equal(t, 0, w.spawnCount())

	w.tick = 501
	engine.Tick(context.Background())
	assert.Equal(t, 1, w.spawnCount())
}

func TestTickIneligibleEntriesSpawnNothing(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	spawner.UpdateEntry("Fieldmouse", "", func(e *model.SpawnEntry) {
		e.Conditions.Time = model.SpawnTimeNight
	})

	w.tick = 300
	w.timeOfDay = 6000 // noon
	engine.Tick(context.Background())
	assert.Equal(t, 0, w.spawnCount())

	w.tick = 600
	w.timeOfDay = 18000 // midnight
	engine.Tick(context.Background())
	assert.Equal(t, 1, w.spawnCount())
}

func TestReconcileReopensTimerWindow(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	spawner.SetLimit(1)
	key := spawner.Key()

	w.tick = 300
	engine.Tick(context.Background())
	require.Equal(t, 1, engine.Ledger().CountFor(key))

	// The creature dies: the very next tick reconciles the ledger and the
	// freed slot spawns again without waiting out the interval.
	w.kill(w.spawned[0].id)
	w.tick = 301
	engine.Tick(context.Background())

	assert.Equal(t, 2, w.spawnCount())
	assert.Equal(t, 1, engine.Ledger().CountFor(key))
}

func TestTickSkipsUnloadedChunks(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	addTestSpawner(t, engine, w)

	// Every position in the area sits in an unloaded chunk.
	for x := int32(-1); x <= 1; x++ {
		for z := int32(-1); z <= 1; z++ {
			w.unloaded[model.NewPosition(x, 64, z)] = true
		}
	}

	w.tick = 300
	engine.Tick(context.Background())
	assert.Equal(t, 0, w.spawnCount())
}

func TestTickToleratesPlacementRejection(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	w.rejectAll = true

	w.tick = 300
	engine.Tick(context.Background())
	assert.Equal(t, 0, w.spawnCount())
	assert.Equal(t, 0, engine.Ledger().CountFor(spawner.Key()))
}

func TestTickUnknownSpeciesSpawnsNothing(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	spawner.UpdateEntry("Fieldmouse", "", func(e *model.SpawnEntry) {
		e.Species = "Glimmerfox"
	})

	w.tick = 300
	engine.Tick(context.Background())
	assert.Equal(t, 0, w.spawnCount())
}

func TestHandleBlockChangeInvalidation(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	key := spawner.Key()

	positions, ok := engine.ValidPositions(key)
	require.True(t, ok)
	require.Len(t, positions, 9)
	_, cached := engine.Cache().Peek(key)
	require.True(t, cached)

	// A change outside the radius keeps the cache.
	engine.HandleBlockChange("overworld", model.NewPosition(50, 64, 0))
	_, cached = engine.Cache().Peek(key)
	assert.True(t, cached)

	// A change in another dimension keeps it too.
	engine.HandleBlockChange("the_nether", model.NewPosition(0, 64, 0))
	_, cached = engine.Cache().Peek(key)
	assert.True(t, cached)

	// A change within the radius drops it.
	engine.HandleBlockChange("overworld", model.NewPosition(1, 64, 0))
	_, cached = engine.Cache().Peek(key)
	assert.False(t, cached)
}

func TestAddSpawnerDuplicatePosition(t *testing.T) {
	w := newFakeWorld()
	engine, store := newTestEngine(w)
	addTestSpawner(t, engine, w)

	key := model.NewSpawnerKey(model.NewPosition(0, 64, 0), "overworld")
	_, err := engine.AddSpawner(context.Background(), key, "double")
	assert.Error(t, err)
	assert.Equal(t, 1, engine.SpawnerCount())
	assert.Equal(t, 1, store.Len())
}

// flakyStore fails Save while saveErr is set, delegating to a MemoryStore
// otherwise.
type flakyStore struct {
	*MemoryStore
	saveErr error
}

func (s *flakyStore) Save(ctx context.Context, snapshot model.SpawnerSnapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.Save(ctx, snapshot)
}

func TestAddSpawnerRollsBackOnSaveFailure(t *testing.T) {
	w := newFakeWorld()
	store := &flakyStore{MemoryStore: NewMemoryStore(), saveErr: errors.New("connection reset")}
	source := &fakeSource{dimension: "overworld", world: w}
	cat := newFakeCatalog()
	engine := NewEngine(store, source, cat, cat, Options{})
	key := model.NewSpawnerKey(model.NewPosition(0, 64, 0), "overworld")

	_, err := engine.AddSpawner(context.Background(), key, "outpost")
	require.Error(t, err)
	assert.Equal(t, 0, engine.SpawnerCount())
	_, ok := engine.Spawner(key)
	assert.False(t, ok, "failed add leaves no registration behind")

	// With persistence healthy again the same key can be added.
	store.saveErr = nil
	_, err = engine.AddSpawner(context.Background(), key, "outpost")
	require.NoError(t, err)
	assert.Equal(t, 1, engine.SpawnerCount())
	assert.Equal(t, 1, store.Len())
}

func TestRemoveSpawner(t *testing.T) {
	w := newFakeWorld()
	engine, store := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	key := spawner.Key()

	w.tick = 300
	engine.Tick(context.Background())
	require.Equal(t, 1, engine.Ledger().CountFor(key))

	require.True(t, engine.RemoveSpawner(context.Background(), key))
	assert.Equal(t, 0, engine.SpawnerCount())
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, engine.Ledger().CountFor(key), "ledger cleared with the spawner")
	_, ok := engine.Spawner(key)
	assert.False(t, ok)

	assert.False(t, engine.RemoveSpawner(context.Background(), key))
}

func TestRenameSpawner(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	addTestSpawner(t, engine, w)

	other := model.NewSpawnerKey(model.NewPosition(100, 64, 0), "overworld")
	_, err := engine.AddSpawner(context.Background(), other, "second")
	require.NoError(t, err)

	require.NoError(t, engine.RenameSpawner(context.Background(), "test", "primary"))
	_, ok := engine.SpawnerByName("primary")
	assert.True(t, ok)
	_, ok = engine.SpawnerByName("test")
	assert.False(t, ok)

	assert.Error(t, engine.RenameSpawner(context.Background(), "second", "primary"), "duplicate name rejected")
	assert.Error(t, engine.RenameSpawner(context.Background(), "missing", "anything"))
}

func TestEntryLifecycle(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	key := spawner.Key()
	ctx := context.Background()

	// Duplicate species+form rejected.
	assert.False(t, engine.AddEntry(ctx, key, model.NewSpawnEntry("Fieldmouse")))

	// Invalid entry rejected.
	bad := model.NewSpawnEntry("Duskwing")
	bad.MinLevel = 50
	bad.MaxLevel = 10
	assert.False(t, engine.AddEntry(ctx, key, bad))

	second := model.NewSpawnEntry("Duskwing")
	second.Form = "crimson"
	require.True(t, engine.AddEntry(ctx, key, second))
	assert.Equal(t, 2, spawner.EntryCount())

	updated, ok := engine.UpdateEntry(ctx, key, "Duskwing", "crimson", func(e *model.SpawnEntry) {
		e.Weight = 12.5
	})
	require.True(t, ok)
	assert.Equal(t, 12.5, updated.Weight)

	got, ok := engine.Entry(key, "duskwing", "CRIMSON")
	require.True(t, ok, "entry lookup is case-insensitive")
	assert.Equal(t, 12.5, got.Weight)

	require.True(t, engine.RemoveEntry(ctx, key, "Duskwing", "crimson"))
	assert.Equal(t, 1, spawner.EntryCount())
	assert.False(t, engine.RemoveEntry(ctx, key, "Duskwing", "crimson"))
}

func TestUpdateEntryRejectsInvalidMutation(t *testing.T) {
	w := newFakeWorld()
	engine, store := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	key := spawner.Key()
	ctx := context.Background()

	_, ok := engine.UpdateEntry(ctx, key, "Fieldmouse", "", func(e *model.SpawnEntry) {
		e.MinLevel = 50
		e.MaxLevel = 10
	})
	assert.False(t, ok, "inverted level range rejected")

	// Neither the live entry nor the persisted record changed.
	got, ok := engine.Entry(key, "Fieldmouse", "")
	require.True(t, ok)
	assert.Equal(t, 10, got.MinLevel)
	assert.Equal(t, 10, got.MaxLevel)

	snapshots, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	require.Len(t, snapshots[0].Entries, 1)
	assert.Equal(t, 10, snapshots[0].Entries[0].MinLevel)

	// The next cycle spawns from the intact entry.
	w.tick = 300
	engine.Tick(ctx)
	require.Equal(t, 1, w.spawnCount())
	assert.Equal(t, 10, w.spawned[0].c.Attributes.Level)
}

func TestReloadRestoresPersistedState(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	key := spawner.Key()

	// Mutate in memory without persisting, then reload: the persisted
	// configuration wins.
	spawner.SetLimit(99)
	require.NoError(t, engine.Reload(context.Background()))

	reloaded, ok := engine.Spawner(key)
	require.True(t, ok)
	assert.Equal(t, 4, reloaded.Limit())
	assert.Equal(t, 1, reloaded.EntryCount())
	assert.Equal(t, 1, engine.SpawnerCount())
}

func TestReloadKeepsLedger(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	key := spawner.Key()

	w.tick = 300
	engine.Tick(context.Background())
	require.Equal(t, 1, engine.Ledger().CountFor(key))

	require.NoError(t, engine.Reload(context.Background()))
	assert.Equal(t, 1, engine.Ledger().CountFor(key), "live creatures stay attributed across reload")
}

func TestKillSpawned(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	spawner.SetAmountPerTick(3)
	key := spawner.Key()

	w.tick = 300
	engine.Tick(context.Background())
	spawnedCount := engine.Ledger().CountFor(key)
	require.Positive(t, spawnedCount)

	assert.Equal(t, spawnedCount, engine.KillSpawned(key))
	assert.Equal(t, 0, engine.Ledger().CountFor(key))
	for _, sp := range w.spawned {
		_, alive := w.Creature(sp.id)
		assert.False(t, alive, "creature removed from the world")
	}
}

func TestHandleCreatureRemoved(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	key := spawner.Key()

	w.tick = 300
	engine.Tick(context.Background())
	id := w.spawned[0].id

	engine.HandleCreatureRemoved(w, id)
	assert.Equal(t, 0, engine.Ledger().CountFor(key))

	// Unknown ids are a no-op.
	engine.HandleCreatureRemoved(w, uuid.New())
	assert.Equal(t, 0, engine.Ledger().CountFor(key))
}

func TestShutdownCullsWhenConfigured(t *testing.T) {
	w := newFakeWorld()
	source := &fakeSource{dimension: "overworld", world: w}
	cat := newFakeCatalog()
	cat.add(testSpecies())
	engine := NewEngine(NewMemoryStore(), source, cat, cat, Options{CullOnStop: true})

	spawner := addTestSpawner(t, engine, w)
	key := spawner.Key()

	w.tick = 300
	engine.Tick(context.Background())
	require.Equal(t, 1, engine.Ledger().CountFor(key))
	id := w.spawned[0].id

	engine.Shutdown()
	assert.Equal(t, 0, engine.Ledger().CountFor(key))
	_, exists := w.Creature(id)
	assert.False(t, exists)
}

func TestShutdownKeepsCreaturesByDefault(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	spawner := addTestSpawner(t, engine, w)
	key := spawner.Key()

	w.tick = 300
	engine.Tick(context.Background())
	id := w.spawned[0].id

	engine.Shutdown()
	assert.Equal(t, 1, engine.Ledger().CountFor(key))
	_, exists := w.Creature(id)
	assert.True(t, exists)
}

func TestStaggerTimersDelaysFirstCycle(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	addTestSpawner(t, engine, w)

	w.tick = 1000
	engine.StaggerTimers()

	// The seeded last tick lies in [1000, 1005]: a full interval plus the
	// maximum jitter later, the cycle must have fired.
	w.tick = 1200
	engine.Tick(context.Background())
	w.tick = 1206
	engine.Tick(context.Background())
	assert.Equal(t, 1, w.spawnCount())
}

func TestSpawnEventsPublished(t *testing.T) {
	w := newFakeWorld()
	source := &fakeSource{dimension: "overworld", world: w}
	cat := newFakeCatalog()
	cat.add(testSpecies())
	sink := &recordSink{}
	engine := NewEngine(NewMemoryStore(), source, cat, cat, Options{Events: sink})

	spawner := addTestSpawner(t, engine, w)
	key := spawner.Key()

	w.tick = 300
	engine.Tick(context.Background())

	spawnedEvents := sink.ofType(EventSpawned)
	require.Len(t, spawnedEvents, 1)
	assert.Equal(t, key, spawnedEvents[0].Spawner)
	assert.Equal(t, "Fieldmouse", spawnedEvents[0].Species)
	assert.Equal(t, 10, spawnedEvents[0].Level)
	assert.Equal(t, int64(300), spawnedEvents[0].Tick)

	// Death then reconcile publishes an eviction.
	w.kill(spawnedEvents[0].ID)
	w.tick = 301
	engine.Tick(context.Background())
	assert.Len(t, sink.ofType(EventEvicted), 1)

	engine.RemoveSpawner(context.Background(), key)
	assert.NotEmpty(t, sink.ofType(EventRemoved))
}
