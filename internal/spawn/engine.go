package spawn

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/craftmods/cobblespawner/internal/catalog"
	"github.com/craftmods/cobblespawner/internal/model"
)

// maxAttemptsPerSpawn bounds the placement retry loop: one spawn cycle makes
// at most desired×maxAttemptsPerSpawn attempts.
const maxAttemptsPerSpawn = 5

// startJitterTicks staggers spawner timers on startup so they do not all
// fire on the same tick.
const startJitterTicks = 5

// SpeciesResolver looks up a species descriptor by configured name.
type SpeciesResolver interface {
	ByName(name string) (catalog.Species, bool)
}

// Store persists spawner records. Implementations: the pgx repository in
// internal/db, in-memory mocks in tests.
type Store interface {
	LoadAll(ctx context.Context) ([]model.SpawnerSnapshot, error)
	Save(ctx context.Context, snapshot model.SpawnerSnapshot) error
	Delete(ctx context.Context, key model.SpawnerKey) error
}

// Options tunes engine construction.
type Options struct {
	StatBudget int       // 0 → DefaultStatBudget
	CullOnStop bool      // despawn all ledger-tracked creatures on shutdown
	Events     EventSink // optional, nil disables publishing
	Seed       [2]uint64 // RNG seed, zero → fixed default
}

// Engine owns every cross-cutting spawn structure: the spawner table, the
// last-spawn-tick table, the position cache and the population ledger. One
// instance per server; tests construct as many as they need.
type Engine struct {
	store   Store
	worlds  WorldSource
	species SpeciesResolver
	roller  *Roller
	cache   *AreaCache
	ledger  *Ledger
	events  EventSink

	spawners       sync.Map // map[model.SpawnerKey]*model.Spawner
	lastSpawnTicks sync.Map // map[model.SpawnerKey]int64
	spawnerCount   atomic.Int32

	cullOnStop bool

	// rng is consumed only from the tick driver goroutine.
	rng *rand.Rand
}

// NewEngine creates an engine. Spawners are not loaded until Load is called.
func NewEngine(store Store, worlds WorldSource, species SpeciesResolver, items ItemResolver, opts Options) *Engine {
	seed := opts.Seed
	if seed == [2]uint64{} {
		seed = [2]uint64{0x5eed, 0xcafe}
	}
	return &Engine{
		store:      store,
		worlds:     worlds,
		species:    species,
		roller:     NewRoller(items, opts.StatBudget),
		cache:      NewAreaCache(),
		ledger:     NewLedger(),
		events:     opts.Events,
		cullOnStop: opts.CullOnStop,
		rng:        rand.New(rand.NewPCG(seed[0], seed[1])),
	}
}

// Ledger exposes the population ledger for host callbacks and inspection
// tooling.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// Cache exposes the spawn-area cache.
func (e *Engine) Cache() *AreaCache {
	return e.cache
}

// Load reads every persisted spawner record into the engine.
func (e *Engine) Load(ctx context.Context) error {
	snapshots, err := e.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading spawners from store: %w", err)
	}

	count := 0
	for _, sn := range snapshots {
		spawner, err := sn.Restore()
		if err != nil {
			slog.Warn("skipping invalid spawner record", "name", sn.Name, "error", err)
			continue
		}
		e.spawners.Store(spawner.Key(), spawner)
		count++
	}
	e.spawnerCount.Store(int32(count))

	slog.Info("spawners loaded from store", "count", count)
	return nil
}

// Reload drops all in-memory spawner state and position caches, then loads
// from the store again. The ledger is kept: live creatures stay attributed.
func (e *Engine) Reload(ctx context.Context) error {
	e.spawners.Range(func(key, _ any) bool {
		e.spawners.Delete(key)
		return true
	})
	e.lastSpawnTicks.Range(func(key, _ any) bool {
		e.lastSpawnTicks.Delete(key)
		return true
	})
	e.cache.Reset()
	return e.Load(ctx)
}

// StaggerTimers seeds every spawner's last-spawn tick with a small random
// jitter so spawners loaded together do not fire in lockstep.
func (e *Engine) StaggerTimers() {
	e.spawners.Range(func(_, v any) bool {
		spawner := v.(*model.Spawner)
		w, ok := e.worlds.WorldFor(spawner.Dimension())
		if !ok {
			return true
		}
		jitter := e.rng.Int64N(startJitterTicks + 1)
		e.lastSpawnTicks.Store(spawner.Key(), w.CurrentTick()+jitter)
		return true
	})
}

// SpawnerCount returns the number of registered spawners (cached, O(1)).
func (e *Engine) SpawnerCount() int {
	return int(e.spawnerCount.Load())
}

// Spawner returns the spawner registered at the given key.
func (e *Engine) Spawner(key model.SpawnerKey) (*model.Spawner, bool) {
	v, ok := e.spawners.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*model.Spawner), true
}

// SpawnerByName returns the spawner with the given display name.
func (e *Engine) SpawnerByName(name string) (*model.Spawner, bool) {
	var found *model.Spawner
	e.spawners.Range(func(_, v any) bool {
		s := v.(*model.Spawner)
		if s.Name() == name {
			found = s
			return false
		}
		return true
	})
	return found, found != nil
}

// Spawners returns a snapshot slice of all registered spawners.
func (e *Engine) Spawners() []*model.Spawner {
	out := make([]*model.Spawner, 0, e.SpawnerCount())
	e.spawners.Range(func(_, v any) bool {
		out = append(out, v.(*model.Spawner))
		return true
	})
	return out
}

// AddSpawner registers and persists a new spawner at the given key.
// Fails when a spawner already exists at that position.
func (e *Engine) AddSpawner(ctx context.Context, key model.SpawnerKey, name string) (*model.Spawner, error) {
	spawner := model.NewSpawner(key, name)
	if _, loaded := e.spawners.LoadOrStore(key, spawner); loaded {
		return nil, fmt.Errorf("spawner already exists at %s", key)
	}
	e.spawnerCount.Add(1)
	e.cache.Invalidate(key)

	if err := e.store.Save(ctx, spawner.Snapshot()); err != nil {
		// Roll back the registration so the caller can retry the add.
		e.spawners.Delete(key)
		e.spawnerCount.Add(-1)
		return nil, fmt.Errorf("persisting spawner %q: %w", name, err)
	}

	slog.Info("spawner added", "name", name, "key", key)
	return spawner, nil
}

// RemoveSpawner unregisters a spawner, clears its ledger entries and cached
// positions, and deletes the persisted record. Returns false for an unknown
// key.
func (e *Engine) RemoveSpawner(ctx context.Context, key model.SpawnerKey) bool {
	v, ok := e.spawners.LoadAndDelete(key)
	if !ok {
		return false
	}
	e.spawnerCount.Add(-1)

	spawner := v.(*model.Spawner)
	e.cache.Invalidate(key)
	e.lastSpawnTicks.Delete(key)
	for _, id := range e.ledger.ClearSpawner(key) {
		e.publish(Event{Type: EventRemoved, Spawner: key, ID: id})
	}

	if err := e.store.Delete(ctx, key); err != nil {
		slog.Error("deleting spawner record", "name", spawner.Name(), "key", key, "error", err)
	}

	slog.Info("spawner removed", "name", spawner.Name(), "key", key)
	return true
}

// RenameSpawner changes a spawner's display name, rejecting duplicates.
func (e *Engine) RenameSpawner(ctx context.Context, currentName, newName string) error {
	if _, exists := e.SpawnerByName(newName); exists {
		return fmt.Errorf("spawner name %q is already in use", newName)
	}
	spawner, ok := e.SpawnerByName(currentName)
	if !ok {
		return fmt.Errorf("spawner %q not found", currentName)
	}
	spawner.SetName(newName)
	if err := e.store.Save(ctx, spawner.Snapshot()); err != nil {
		return fmt.Errorf("persisting rename of %q: %w", currentName, err)
	}
	return nil
}

// AddEntry adds a creature entry to a spawner's pool and persists the
// change. Returns false for an unknown spawner or a duplicate species+form.
func (e *Engine) AddEntry(ctx context.Context, key model.SpawnerKey, entry model.SpawnEntry) bool {
	spawner, ok := e.Spawner(key)
	if !ok {
		slog.Debug("spawner not found", "key", key)
		return false
	}
	if err := entry.Validate(); err != nil {
		slog.Warn("rejecting invalid spawn entry", "key", key, "error", err)
		return false
	}
	if !spawner.AddEntry(entry) {
		slog.Debug("entry already present", "key", key, "species", entry.Species)
		return false
	}
	e.persist(ctx, spawner)
	return true
}

// RemoveEntry removes the entry for species (and form, when non-empty) from
// a spawner's pool.
func (e *Engine) RemoveEntry(ctx context.Context, key model.SpawnerKey, species, form string) bool {
	spawner, ok := e.Spawner(key)
	if !ok {
		return false
	}
	if !spawner.RemoveEntry(species, form) {
		return false
	}
	e.persist(ctx, spawner)
	return true
}

// Entry returns the configured entry for species (and form, when non-empty).
func (e *Engine) Entry(key model.SpawnerKey, species, form string) (model.SpawnEntry, bool) {
	spawner, ok := e.Spawner(key)
	if !ok {
		return model.SpawnEntry{}, false
	}
	return spawner.Entry(species, form)
}

// UpdateEntry applies fn to the matching entry and persists the change.
// Returns false for an unknown spawner, a missing entry, or a mutation
// that leaves the entry invalid; nothing is committed in those cases.
func (e *Engine) UpdateEntry(ctx context.Context, key model.SpawnerKey, species, form string, fn func(*model.SpawnEntry)) (model.SpawnEntry, bool) {
	spawner, ok := e.Spawner(key)
	if !ok {
		return model.SpawnEntry{}, false
	}
	entry, ok := spawner.UpdateEntry(species, form, fn)
	if !ok {
		return model.SpawnEntry{}, false
	}
	e.persist(ctx, spawner)
	return entry, true
}

func (e *Engine) persist(ctx context.Context, spawner *model.Spawner) {
	if err := e.store.Save(ctx, spawner.Snapshot()); err != nil {
		slog.Error("persisting spawner", "name", spawner.Name(), "error", err)
	}
}

// ValidPositions returns the (cached) valid spawn positions of a spawner,
// for spawn placement and visualization overlays alike.
func (e *Engine) ValidPositions(key model.SpawnerKey) ([]model.Position, bool) {
	spawner, ok := e.Spawner(key)
	if !ok {
		return nil, false
	}
	w, ok := e.worlds.WorldFor(spawner.Dimension())
	if !ok {
		return nil, false
	}
	return e.cache.Get(w, spawner), true
}

// InvalidatePositions drops the cached positions of one spawner.
func (e *Engine) InvalidatePositions(key model.SpawnerKey) {
	e.cache.Invalidate(key)
}

// HandleBlockChange invalidates the cached positions of every spawner in
// the dimension whose radius covers the changed block. Called from the
// host's block-change callback.
func (e *Engine) HandleBlockChange(dimension string, changed model.Position) {
	e.spawners.Range(func(_, v any) bool {
		spawner := v.(*model.Spawner)
		if spawner.Dimension() != dimension {
			return true
		}
		width := int64(spawner.Radius().Width)
		if spawner.Pos().DistanceSquared(changed) <= width*width {
			e.cache.Invalidate(spawner.Key())
			slog.Debug("invalidated cached spawn positions",
				"spawner", spawner.Name(),
				"changed", changed)
		}
		return true
	})
}

// HandleCreatureRemoved drops a creature from the ledger. Called from the
// host's death/capture/trade callbacks; unknown ids are a no-op.
func (e *Engine) HandleCreatureRemoved(w World, id uuid.UUID) {
	info, ok := e.ledger.Info(id)
	if !ok {
		return
	}
	e.ledger.Remove(id)
	e.publish(Event{
		Type:    EventRemoved,
		Spawner: info.Spawner,
		ID:      id,
		Species: info.Species,
		Tick:    w.CurrentTick(),
	})
}

// KillSpawned despawns every live creature attributed to a spawner.
// Returns the number despawned.
func (e *Engine) KillSpawned(key model.SpawnerKey) int {
	spawner, ok := e.Spawner(key)
	if !ok {
		return 0
	}
	w, ok := e.worlds.WorldFor(spawner.Dimension())
	if !ok {
		slog.Error("world not found for spawner", "dimension", spawner.Dimension(), "key", key)
		return 0
	}
	killed := 0
	for _, id := range e.ledger.ClearSpawner(key) {
		w.RemoveCreature(id)
		e.publish(Event{Type: EventRemoved, Spawner: key, ID: id, Tick: w.CurrentTick()})
		killed++
	}
	slog.Info("spawned creatures removed", "spawner", spawner.Name(), "count", killed)
	return killed
}

// Tick runs one spawn cycle check for every registered spawner. Failures are
// contained per spawner: one misconfigured or unavailable spawner never
// affects the rest of the tick.
func (e *Engine) Tick(ctx context.Context) {
	e.spawners.Range(func(_, v any) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		e.tickSpawner(v.(*model.Spawner))
		return true
	})
}

func (e *Engine) tickSpawner(spawner *model.Spawner) {
	key := spawner.Key()

	w, ok := e.worlds.WorldFor(spawner.Dimension())
	if !ok {
		slog.Error("world not found for spawner", "dimension", spawner.Dimension(), "key", key)
		return
	}

	currentTick := w.CurrentTick()
	lastTick := e.lastSpawnTick(key)
	interval := spawner.TimerTicks()

	// Evict stale ledger entries first; freed slots reopen the timer window
	// so they do not wait out a full interval.
	if evicted := e.ledger.Reconcile(w, key); evicted > 0 {
		slog.Debug("reconciled stale creatures", "spawner", spawner.Name(), "evicted", evicted)
		for range evicted {
			e.publish(Event{Type: EventEvicted, Spawner: key, Tick: currentTick})
		}
		lastTick = currentTick - interval - 1
		e.lastSpawnTicks.Store(key, lastTick)
	}

	if currentTick-lastTick <= interval {
		return
	}

	if e.ledger.CountFor(key) >= spawner.Limit() {
		slog.Debug("spawn limit reached", "spawner", spawner.Name())
		e.lastSpawnTicks.Store(key, currentTick)
		return
	}

	e.spawnCycle(w, spawner)

	// The cooldown restarts after every elapsed cycle, whatever its outcome.
	e.lastSpawnTicks.Store(key, currentTick)
}

func (e *Engine) lastSpawnTick(key model.SpawnerKey) int64 {
	v, ok := e.lastSpawnTicks.Load(key)
	if !ok {
		return 0
	}
	return v.(int64)
}

// spawnCycle attempts up to desired×maxAttemptsPerSpawn placements for one
// spawner whose timer has elapsed.
func (e *Engine) spawnCycle(w World, spawner *model.Spawner) {
	key := spawner.Key()

	validPositions := e.cache.Get(w, spawner)
	if len(validPositions) == 0 {
		slog.Debug("no valid spawn positions", "spawner", spawner.Name())
		return
	}

	eligible := EligibleEntries(spawner.Entries(), w.TimeOfDay(), w.IsRaining(), w.IsThundering())
	if len(eligible) == 0 {
		slog.Debug("no eligible entries", "spawner", spawner.Name())
		return
	}

	if TotalWeight(eligible) <= 0 {
		slog.Warn("total spawn weight is zero or negative", "spawner", spawner.Name())
		return
	}

	desired := spawner.AmountPerTick()
	if free := spawner.Limit() - e.ledger.CountFor(key); desired > free {
		desired = free
	}
	if desired <= 0 {
		slog.Debug("spawn limit reached", "spawner", spawner.Name())
		return
	}

	spawned := 0
	attempts := 0
	maxAttempts := desired * maxAttemptsPerSpawn

	for spawned < desired && attempts < maxAttempts {
		attempts++

		pos := validPositions[e.rng.IntN(len(validPositions))]
		if !w.ChunkLoaded(pos) {
			slog.Debug("chunk not loaded at spawn position", "pos", pos)
			continue
		}

		entry, ok := SelectWeighted(eligible, e.rng)
		if !ok {
			continue
		}

		species, ok := e.species.ByName(entry.Species)
		if !ok {
			slog.Warn("species not found", "species", entry.Species, "spawner", spawner.Name())
			continue
		}

		attrs := e.roller.Roll(&entry, species, e.rng)

		if !FitsAt(w, pos, species.Hitbox) {
			slog.Debug("creature hitbox does not fit", "species", species.Name, "pos", pos)
			continue
		}

		id, placed := w.SpawnCreature(pos, model.Creature{Species: species.Name, Attributes: attrs})
		if !placed {
			continue
		}

		e.ledger.Add(id, key, entry.Species)
		spawned++
		e.publish(Event{
			Type:    EventSpawned,
			Spawner: key,
			ID:      id,
			Species: species.Name,
			Pos:     pos,
			Level:   attrs.Level,
			Shiny:   attrs.Shiny,
			Tick:    w.CurrentTick(),
		})
		slog.Debug("creature spawned",
			"species", species.Name,
			"id", id,
			"pos", pos,
			"level", attrs.Level,
			"shiny", attrs.Shiny)
	}

	if spawned > 0 {
		slog.Debug("spawn cycle finished", "spawner", spawner.Name(), "spawned", spawned, "attempts", attempts)
	} else {
		slog.Warn("spawn cycle ended with zero successes", "spawner", spawner.Name(), "attempts", attempts)
	}
}

// Shutdown optionally culls every ledger-tracked creature, per the global
// cull-on-stop flag.
func (e *Engine) Shutdown() {
	if !e.cullOnStop {
		return
	}
	e.spawners.Range(func(_, v any) bool {
		spawner := v.(*model.Spawner)
		w, ok := e.worlds.WorldFor(spawner.Dimension())
		if !ok {
			return true
		}
		for _, id := range e.ledger.ClearSpawner(spawner.Key()) {
			w.RemoveCreature(id)
			slog.Debug("culled creature on shutdown", "id", id, "spawner", spawner.Name())
		}
		return true
	})
}

func (e *Engine) publish(ev Event) {
	if e.events != nil {
		e.events.Publish(ev)
	}
}
