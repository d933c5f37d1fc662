package spawn

import (
	"fmt"

	"github.com/craftmods/cobblespawner/internal/model"
)

// Day/night boundaries of the 24000-tick cycle. Ticks 12001..12999 are dusk:
// neither DAY nor NIGHT, so time-gated entries are ineligible during them.
const (
	ticksPerDay = 24000
	dayEnd      = 12000
	nightStart  = 13000
	nightEnd    = 23000
)

// CheckConditions reports why an entry cannot spawn under the given world
// conditions. Returns "" when all conditions are met.
func CheckConditions(entry *model.SpawnEntry, timeOfDay int64, raining, thundering bool) string {
	cond := entry.Conditions

	if cond.Time != model.SpawnTimeAll && cond.Time != "" {
		tod := timeOfDay % ticksPerDay
		isDay := tod >= 0 && tod <= dayEnd
		isNight := tod >= nightStart && tod <= nightEnd
		switch cond.Time {
		case model.SpawnTimeDay:
			if !isDay {
				return fmt.Sprintf("requires DAY, time of day is %d", tod)
			}
		case model.SpawnTimeNight:
			if !isNight {
				return fmt.Sprintf("requires NIGHT, time of day is %d", tod)
			}
		}
	}

	if cond.Weather != model.SpawnWeatherAll && cond.Weather != "" {
		switch cond.Weather {
		case model.SpawnWeatherClear:
			if raining || thundering {
				return "requires CLEAR weather"
			}
		case model.SpawnWeatherRain:
			if !raining || thundering {
				return "requires RAIN without thunder"
			}
		case model.SpawnWeatherThunder:
			if !thundering {
				return "requires THUNDER"
			}
		}
	}

	return ""
}

// EligibleEntries returns the subset of entries whose time and weather
// conditions are met. No side effects.
func EligibleEntries(entries []model.SpawnEntry, timeOfDay int64, raining, thundering bool) []model.SpawnEntry {
	eligible := make([]model.SpawnEntry, 0, len(entries))
	for i := range entries {
		if CheckConditions(&entries[i], timeOfDay, raining, thundering) == "" {
			eligible = append(eligible, entries[i])
		}
	}
	return eligible
}
