package spawn

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/craftmods/cobblespawner/internal/model"
)

// CreatureInfo attributes one live spawned creature to its spawner.
type CreatureInfo struct {
	Spawner model.SpawnerKey
	Species string
}

// Ledger is the concurrency-safe registry of live spawned creatures. It is
// written from the per-tick spawn cycle and from asynchronous host callbacks
// (death, capture, battle end), so every operation is individually atomic.
type Ledger struct {
	creatures sync.Map // map[uuid.UUID]CreatureInfo
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Add attributes a creature identity to a spawner. Last write wins on a
// duplicate id, which does not happen under correct usage.
func (l *Ledger) Add(id uuid.UUID, key model.SpawnerKey, species string) {
	l.creatures.Store(id, CreatureInfo{Spawner: key, Species: species})
}

// Remove drops a creature from the ledger. No-op for unknown ids.
func (l *Ledger) Remove(id uuid.UUID) {
	l.creatures.Delete(id)
}

// Info returns the spawner attribution of a creature, if it is ledger-tracked.
func (l *Ledger) Info(id uuid.UUID) (CreatureInfo, bool) {
	v, ok := l.creatures.Load(id)
	if !ok {
		return CreatureInfo{}, false
	}
	return v.(CreatureInfo), true
}

// CountFor returns the number of live creatures attributed to a spawner.
// Linear scan, acceptable at expected population sizes.
func (l *Ledger) CountFor(key model.SpawnerKey) int {
	count := 0
	l.creatures.Range(func(_, v any) bool {
		if v.(CreatureInfo).Spawner == key {
			count++
		}
		return true
	})
	return count
}

// IDsFor returns the identities of every live creature attributed to a spawner.
func (l *Ledger) IDsFor(key model.SpawnerKey) []uuid.UUID {
	ids := make([]uuid.UUID, 0, 4)
	l.creatures.Range(func(k, v any) bool {
		if v.(CreatureInfo).Spawner == key {
			ids = append(ids, k.(uuid.UUID))
		}
		return true
	})
	return ids
}

// ClearSpawner drops every creature attributed to a spawner (spawner deleted
// or bulk-clear requested). Returns the dropped identities.
func (l *Ledger) ClearSpawner(key model.SpawnerKey) []uuid.UUID {
	ids := l.IDsFor(key)
	for _, id := range ids {
		l.creatures.Delete(id)
	}
	return ids
}

// Reconcile evicts every creature attributed to the spawner that the world
// no longer tracks as alive and wild. Returns the number of evictions so the
// caller can reopen the spawner's timer window for the freed slots.
func (l *Ledger) Reconcile(w World, key model.SpawnerKey) int {
	evicted := 0
	for _, id := range l.IDsFor(key) {
		state, ok := w.Creature(id)
		if ok && state.Alive && state.Wild {
			continue
		}
		l.creatures.Delete(id)
		evicted++
		slog.Debug("evicted stale ledger entry",
			"id", id,
			"spawner", key,
			"found", ok)
	}
	return evicted
}
