// Package catalog holds the creature species and item registry the spawn
// engine resolves configured names against. Lookups are keyed by normalized
// name (lowercased, non-alphanumerics stripped) so user-facing spellings like
// "Mr. Mime" and "mrmime" resolve to the same species.
package catalog

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/craftmods/cobblespawner/internal/model"
)

// Form is one selectable form of a species. Aspects, when present, are the
// property flags the host applies instead of a form identifier.
type Form struct {
	ID      string   `yaml:"id"`
	Aspects []string `yaml:"aspects,omitempty"`
}

// Hitbox is the collision footprint of a species, in blocks.
type Hitbox struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Species is one creature species descriptor.
type Species struct {
	Name      string              `yaml:"name"`
	Forms     []Form              `yaml:"forms,omitempty"`
	Hitbox    Hitbox              `yaml:"hitbox"`
	BaseStats [model.NumStats]int `yaml:"base_stats"`
}

// ResolveForm matches a configured form name against this species' forms
// using normalized comparison. Empty, "normal" and "default" resolve to the
// default form. Returns false when the name matches no form.
func (s Species) ResolveForm(name string) (Form, bool) {
	if name == "" || strings.EqualFold(name, "normal") || strings.EqualFold(name, "default") {
		return Form{}, true
	}
	want := model.NormalizeName(name)
	for _, f := range s.Forms {
		if model.NormalizeName(f.ID) == want {
			return f, true
		}
	}
	return Form{}, false
}

// Registry is a concurrent-safe species and item catalog.
type Registry struct {
	mu      sync.RWMutex
	species map[string]Species // normalized name → species
	items   map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		species: make(map[string]Species),
		items:   make(map[string]struct{}),
	}
}

// RegisterSpecies adds or replaces a species descriptor.
func (r *Registry) RegisterSpecies(s Species) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.species[model.NormalizeName(s.Name)] = s
}

// ByName looks up a species by (unnormalized) name.
func (r *Registry) ByName(name string) (Species, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.species[model.NormalizeName(name)]
	return s, ok
}

// SpeciesCount returns the number of registered species.
func (r *Registry) SpeciesCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.species)
}

// RegisterItem adds an item identifier to the known-item set.
func (r *Registry) RegisterItem(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = struct{}{}
}

// ItemKnown reports whether the given item identifier resolves to a real
// item. Identifiers must be "namespace:path" form.
func (r *Registry) ItemKnown(id string) bool {
	if !validIdentifier(id) {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[id]
	return ok
}

func validIdentifier(id string) bool {
	ns, path, ok := strings.Cut(id, ":")
	return ok && ns != "" && path != "" && !strings.Contains(path, ":")
}

// file is the on-disk catalog document shape.
type file struct {
	Species []Species `yaml:"species"`
	Items   []string  `yaml:"items"`
}

// LoadFile reads a YAML catalog document into the registry.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading catalog file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing catalog file %s: %w", path, err)
	}
	for _, s := range f.Species {
		if s.Name == "" {
			return fmt.Errorf("catalog file %s: species with empty name", path)
		}
		r.RegisterSpecies(s)
	}
	for _, item := range f.Items {
		if !validIdentifier(item) {
			return fmt.Errorf("catalog file %s: invalid item identifier %q", path, item)
		}
		r.RegisterItem(item)
	}
	return nil
}
