package model

import (
	"fmt"
	"strings"
	"sync"
)

// SpawnRadius is the rectangular box a spawner covers: horizontal half-extent
// Width and vertical half-extent Height around the spawner block.
type SpawnRadius struct {
	Width  int32 `json:"width" yaml:"width"`
	Height int32 `json:"height" yaml:"height"`
}

// DefaultSpawnRadius returns the 4x4 default box.
func DefaultSpawnRadius() SpawnRadius {
	return SpawnRadius{Width: 4, Height: 4}
}

// Spawner is the configuration record of one placed spawner block.
type Spawner struct {
	key  SpawnerKey
	name string

	mu            sync.RWMutex
	entries       []SpawnEntry
	timerTicks    int64
	radius        SpawnRadius
	limit         int
	amountPerTick int
	visible       bool
	showParticles bool
}

// NewSpawner creates a spawner record at the given key with default settings.
func NewSpawner(key SpawnerKey, name string) *Spawner {
	return &Spawner{
		key:           key,
		name:          name,
		timerTicks:    200,
		radius:        DefaultSpawnRadius(),
		limit:         4,
		amountPerTick: 1,
		visible:       true,
		showParticles: true,
	}
}

// Key returns the spawner's unique key (position + dimension).
func (s *Spawner) Key() SpawnerKey {
	return s.key
}

// Pos returns the spawner's block position.
func (s *Spawner) Pos() Position {
	return s.key.Pos
}

// Dimension returns the spawner's dimension identifier.
func (s *Spawner) Dimension() string {
	return s.key.Dimension
}

// Name returns the spawner's display name.
func (s *Spawner) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName updates the spawner's display name.
func (s *Spawner) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// TimerTicks returns the spawn interval in ticks.
func (s *Spawner) TimerTicks() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timerTicks
}

// SetTimerTicks updates the spawn interval.
func (s *Spawner) SetTimerTicks(ticks int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timerTicks = ticks
}

// Radius returns the spawn box half-extents.
func (s *Spawner) Radius() SpawnRadius {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.radius
}

// SetRadius updates the spawn box. Negative extents are clamped to zero.
func (s *Spawner) SetRadius(r SpawnRadius) {
	if r.Width < 0 {
		r.Width = 0
	}
	if r.Height < 0 {
		r.Height = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.radius = r
}

// Limit returns the maximum concurrently alive creature count for this spawner.
func (s *Spawner) Limit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limit
}

// SetLimit updates the population cap.
func (s *Spawner) SetLimit(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = limit
}

// AmountPerTick returns how many creatures one spawn cycle attempts.
func (s *Spawner) AmountPerTick() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.amountPerTick
}

// SetAmountPerTick updates the per-cycle spawn amount.
func (s *Spawner) SetAmountPerTick(amount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.amountPerTick = amount
}

// Visible reports whether the spawner block is rendered visible.
func (s *Spawner) Visible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible
}

// ToggleVisible flips the visibility flag and returns the new value.
func (s *Spawner) ToggleVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = !s.visible
	return s.visible
}

// ShowParticles reports whether the spawner emits particle effects.
func (s *Spawner) ShowParticles() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showParticles
}

// SetShowParticles updates the particle flag.
func (s *Spawner) SetShowParticles(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showParticles = show
}

// Entries returns a snapshot copy of the spawner's creature pool.
// The returned slice is safe to iterate while the pool is concurrently edited.
func (s *Spawner) Entries() []SpawnEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SpawnEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// EntryCount returns the number of configured entries.
func (s *Spawner) EntryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// AddEntry appends an entry to the pool.
// Returns false if an entry for the same species+form already exists.
func (s *Spawner) AddEntry(entry SpawnEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if strings.EqualFold(s.entries[i].Species, entry.Species) &&
			strings.EqualFold(s.entries[i].Form, entry.Form) {
			return false
		}
	}
	s.entries = append(s.entries, entry)
	return true
}

// RemoveEntry removes the entry for the given species (and form, when
// non-empty). Returns false if no matching entry exists.
func (s *Spawner) RemoveEntry(species, form string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].Matches(species, form) {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entry returns a copy of the entry for the given species (and form, when
// non-empty).
func (s *Spawner) Entry(species, form string) (SpawnEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.entries {
		if s.entries[i].Matches(species, form) {
			return s.entries[i], true
		}
	}
	return SpawnEntry{}, false
}

// UpdateEntry applies fn to a copy of the matching entry and commits the
// result only when it still validates. Returns false if no matching entry
// exists or the mutated entry is invalid, leaving the pool unchanged.
func (s *Spawner) UpdateEntry(species, form string, fn func(*SpawnEntry)) (SpawnEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].Matches(species, form) {
			updated := s.entries[i]
			fn(&updated)
			if err := updated.Validate(); err != nil {
				return SpawnEntry{}, false
			}
			s.entries[i] = updated
			return updated, true
		}
	}
	return SpawnEntry{}, false
}

// SetEntries replaces the whole pool (used by the persistence layer on load).
func (s *Spawner) SetEntries(entries []SpawnEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]SpawnEntry(nil), entries...)
}

// Snapshot returns a serializable copy of the spawner's full state.
func (s *Spawner) Snapshot() SpawnerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]SpawnEntry, len(s.entries))
	copy(entries, s.entries)
	return SpawnerSnapshot{
		Key:           s.key,
		Name:          s.name,
		Entries:       entries,
		TimerTicks:    s.timerTicks,
		Radius:        s.radius,
		Limit:         s.limit,
		AmountPerTick: s.amountPerTick,
		Visible:       s.visible,
		ShowParticles: s.showParticles,
	}
}

// SpawnerSnapshot is the flat serializable form of a Spawner, used by the
// persistence layer and the ops inspection endpoints.
type SpawnerSnapshot struct {
	Key           SpawnerKey   `json:"key" yaml:"key"`
	Name          string       `json:"name" yaml:"name"`
	Entries       []SpawnEntry `json:"entries" yaml:"entries"`
	TimerTicks    int64        `json:"timer_ticks" yaml:"timer_ticks"`
	Radius        SpawnRadius  `json:"radius" yaml:"radius"`
	Limit         int          `json:"limit" yaml:"limit"`
	AmountPerTick int          `json:"amount_per_tick" yaml:"amount_per_tick"`
	Visible       bool         `json:"visible" yaml:"visible"`
	ShowParticles bool         `json:"show_particles" yaml:"show_particles"`
}

// Restore rebuilds a Spawner from a snapshot.
func (sn SpawnerSnapshot) Restore() (*Spawner, error) {
	if sn.Key.Dimension == "" {
		return nil, fmt.Errorf("spawner %q: empty dimension", sn.Name)
	}
	s := NewSpawner(sn.Key, sn.Name)
	s.timerTicks = sn.TimerTicks
	s.radius = sn.Radius
	s.limit = sn.Limit
	s.amountPerTick = sn.AmountPerTick
	s.visible = sn.Visible
	s.showParticles = sn.ShowParticles
	if s.radius.Width < 0 || s.radius.Height < 0 {
		return nil, fmt.Errorf("spawner %q: negative spawn radius %+v", sn.Name, sn.Radius)
	}
	for i := range sn.Entries {
		if err := sn.Entries[i].Validate(); err != nil {
			return nil, fmt.Errorf("spawner %q: %w", sn.Name, err)
		}
	}
	s.entries = append([]SpawnEntry(nil), sn.Entries...)
	return s, nil
}
