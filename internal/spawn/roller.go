package spawn

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/craftmods/cobblespawner/internal/catalog"
	"github.com/craftmods/cobblespawner/internal/model"
)

// DefaultStatBudget caps the summed maximum of the six stat-roll ranges:
// the conventional sum of all maxed statistics.
const DefaultStatBudget = 186

// ItemResolver answers whether an item identifier resolves to a real item.
type ItemResolver interface {
	ItemKnown(id string) bool
}

// Roller derives the probabilistic secondary attributes of a spawned
// creature from its entry configuration.
type Roller struct {
	items  ItemResolver
	budget int
}

// NewRoller creates a roller with the given item resolver and stat budget.
// A budget <= 0 falls back to DefaultStatBudget.
func NewRoller(items ItemResolver, budget int) *Roller {
	if budget <= 0 {
		budget = DefaultStatBudget
	}
	return &Roller{items: items, budget: budget}
}

// Roll derives level, shininess and the optional stat/size/held-item
// attributes for one spawn of the given entry. Form resolution failures fall
// back to the default form and never fail the roll.
func (r *Roller) Roll(entry *model.SpawnEntry, species catalog.Species, rng *rand.Rand) model.AttributeSet {
	attrs := model.AttributeSet{
		Level: entry.MinLevel + rng.IntN(entry.MaxLevel-entry.MinLevel+1),
		Shiny: entry.ShinyChance > 0 && rng.Float64()*100 <= entry.ShinyChance,
	}

	if form, ok := species.ResolveForm(entry.Form); ok {
		if len(form.Aspects) > 0 {
			attrs.Aspects = append([]string(nil), form.Aspects...)
		} else {
			attrs.FormID = form.ID
		}
	} else {
		slog.Warn("form not found for species, defaulting to normal form",
			"form", entry.Form,
			"species", species.Name)
	}

	if entry.Stats.Enabled {
		attrs.Stats = r.rollStats(&entry.Stats, rng)
		attrs.HasStats = true
	}

	if entry.Size.Enabled {
		attrs.Size = rollSize(&entry.Size, rng)
		attrs.HasSize = true
	}

	if entry.HeldItems.Enabled {
		attrs.HeldItem = r.rollHeldItem(&entry.HeldItems, species.Name, rng)
	}

	return attrs
}

// rollStats draws each statistic uniformly in its configured range, scaling
// every maximum down proportionally when the summed maxima exceed the
// budget. A scaled maximum never drops below its configured minimum.
func (r *Roller) rollStats(cfg *model.StatRolls, rng *rand.Rand) [model.NumStats]int {
	sumOfMaxima := 0
	for _, rg := range cfg.Ranges {
		sumOfMaxima += rg.Max
	}

	factor := 1.0
	if sumOfMaxima > r.budget {
		factor = float64(r.budget) / float64(sumOfMaxima)
	}

	var out [model.NumStats]int
	for i, rg := range cfg.Ranges {
		scaledMax := int(math.Floor(float64(rg.Max) * factor))
		if scaledMax < rg.Min {
			scaledMax = rg.Min
		}
		out[i] = rg.Min + rng.IntN(scaledMax-rg.Min+1)
	}
	return out
}

// rollSize draws a uniform multiplier in [min, max] rounded to one decimal
// place. An inverted or degenerate range uses min directly.
func rollSize(cfg *model.SizeSettings, rng *rand.Rand) float64 {
	size := cfg.Min
	if cfg.Min < cfg.Max {
		size = cfg.Min + rng.Float64()*(cfg.Max-cfg.Min)
	}
	return math.Round(size*10) / 10
}

// rollHeldItem walks the configured table in order and assigns the first
// item whose percent draw succeeds. Unresolvable identifiers are skipped
// with a debug log, never a failure.
func (r *Roller) rollHeldItem(cfg *model.HeldItems, speciesName string, rng *rand.Rand) string {
	for _, hc := range cfg.Items {
		if !r.items.ItemKnown(hc.Item) {
			slog.Debug("held item identifier does not resolve, skipping",
				"item", hc.Item,
				"species", speciesName)
			continue
		}
		if rng.Float64()*100 <= hc.Percent {
			slog.Debug("assigned held item",
				"item", hc.Item,
				"percent", hc.Percent,
				"species", speciesName)
			return hc.Item
		}
	}
	return ""
}
