package spawn

import (
	"math/rand/v2"

	"github.com/craftmods/cobblespawner/internal/model"
)

// TotalWeight sums the spawn weights of the given entries.
func TotalWeight(entries []model.SpawnEntry) float64 {
	var total float64
	for i := range entries {
		total += entries[i].Weight
	}
	return total
}

// SelectWeighted draws one entry with probability proportional to its
// weight, using a cumulative-distribution sample over the configured order.
// Callers verify total weight > 0 first; returns false only for an empty
// entry list.
func SelectWeighted(entries []model.SpawnEntry, rng *rand.Rand) (model.SpawnEntry, bool) {
	if len(entries) == 0 {
		return model.SpawnEntry{}, false
	}
	total := TotalWeight(entries)
	draw := rng.Float64() * total
	var cumulative float64
	for i := range entries {
		cumulative += entries[i].Weight
		if draw <= cumulative {
			return entries[i], true
		}
	}
	// Floating point boundary: fall back to the last entry.
	return entries[len(entries)-1], true
}
