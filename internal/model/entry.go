package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Stat indexes the six rollable statistics of a creature.
type Stat int

const (
	StatHP Stat = iota
	StatAttack
	StatDefense
	StatSpecialAttack
	StatSpecialDefense
	StatSpeed

	NumStats = 6
)

var statNames = [NumStats]string{"hp", "attack", "defense", "special_attack", "special_defense", "speed"}

func (s Stat) String() string {
	if s < 0 || int(s) >= NumStats {
		return "unknown"
	}
	return statNames[s]
}

// StatRange is an inclusive [Min, Max] roll range for one statistic.
type StatRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// StatRolls configures per-statistic random rolls for spawned creatures.
// Ranges are indexed by Stat.
type StatRolls struct {
	Enabled bool                `json:"enabled" yaml:"enabled"`
	Ranges  [NumStats]StatRange `json:"ranges" yaml:"ranges"`
}

// DefaultStatRolls returns stat rolls disabled with full 0-31 ranges.
func DefaultStatRolls() StatRolls {
	r := StatRolls{}
	for i := range r.Ranges {
		r.Ranges[i] = StatRange{Min: 0, Max: 31}
	}
	return r
}

// DefeatRewards configures per-statistic reward deltas granted to the
// victor's creature when this one is defeated.
type DefeatRewards struct {
	Enabled bool          `json:"enabled" yaml:"enabled"`
	Values  [NumStats]int `json:"values" yaml:"values"`
}

// CaptureSettings restricts how a spawned creature may be captured.
type CaptureSettings struct {
	Catchable     bool     `json:"catchable" yaml:"catchable"`
	RestrictBalls bool     `json:"restrict_balls" yaml:"restrict_balls"`
	AllowedBalls  []string `json:"allowed_balls" yaml:"allowed_balls"`
}

// DefaultCaptureSettings returns catchable with no ball restriction.
func DefaultCaptureSettings() CaptureSettings {
	return CaptureSettings{
		Catchable:    true,
		AllowedBalls: []string{"safari_ball"},
	}
}

// SpawnTime is a time-of-day eligibility filter.
type SpawnTime string

const (
	SpawnTimeAll   SpawnTime = "ALL"
	SpawnTimeDay   SpawnTime = "DAY"
	SpawnTimeNight SpawnTime = "NIGHT"
)

// SpawnWeather is a weather eligibility filter.
type SpawnWeather string

const (
	SpawnWeatherAll     SpawnWeather = "ALL"
	SpawnWeatherClear   SpawnWeather = "CLEAR"
	SpawnWeatherRain    SpawnWeather = "RAIN"
	SpawnWeatherThunder SpawnWeather = "THUNDER"
)

// SpawnConditions gates an entry's eligibility on world time and weather.
type SpawnConditions struct {
	Time    SpawnTime    `json:"time" yaml:"time"`
	Weather SpawnWeather `json:"weather" yaml:"weather"`
}

// DefaultSpawnConditions returns unconditional eligibility.
func DefaultSpawnConditions() SpawnConditions {
	return SpawnConditions{Time: SpawnTimeAll, Weather: SpawnWeatherAll}
}

// SizeSettings configures an optional random size multiplier.
type SizeSettings struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
}

// HeldItemChance is one (item identifier, percent chance) pair.
type HeldItemChance struct {
	Item    string  `json:"item" yaml:"item"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// HeldItems configures an optional ordered held-item table.
type HeldItems struct {
	Enabled bool             `json:"enabled" yaml:"enabled"`
	Items   []HeldItemChance `json:"items" yaml:"items"`
}

// SpawnEntry is one configured creature species+form in a spawner's pool.
type SpawnEntry struct {
	Species     string          `json:"species" yaml:"species"`
	Form        string          `json:"form,omitempty" yaml:"form,omitempty"`
	Weight      float64         `json:"weight" yaml:"weight"`
	ShinyChance float64         `json:"shiny_chance" yaml:"shiny_chance"`
	MinLevel    int             `json:"min_level" yaml:"min_level"`
	MaxLevel    int             `json:"max_level" yaml:"max_level"`
	Capture     CaptureSettings `json:"capture" yaml:"capture"`
	Stats       StatRolls       `json:"stats" yaml:"stats"`
	Rewards     DefeatRewards   `json:"rewards" yaml:"rewards"`
	Conditions  SpawnConditions `json:"conditions" yaml:"conditions"`
	Size        SizeSettings    `json:"size" yaml:"size"`
	HeldItems   HeldItems       `json:"held_items" yaml:"held_items"`
}

// NewSpawnEntry creates a SpawnEntry for the given species with default settings.
func NewSpawnEntry(species string) SpawnEntry {
	return SpawnEntry{
		Species:    species,
		Weight:     100.0,
		MinLevel:   1,
		MaxLevel:   100,
		Capture:    DefaultCaptureSettings(),
		Stats:      DefaultStatRolls(),
		Conditions: DefaultSpawnConditions(),
	}
}

// Validate checks entry invariants: weight >= 0, level and stat ranges ordered.
func (e *SpawnEntry) Validate() error {
	if e.Species == "" {
		return fmt.Errorf("entry has empty species name")
	}
	if e.Weight < 0 {
		return fmt.Errorf("entry %q: weight %v is negative", e.Species, e.Weight)
	}
	if e.ShinyChance < 0 || e.ShinyChance > 100 {
		return fmt.Errorf("entry %q: shiny chance %v outside [0, 100]", e.Species, e.ShinyChance)
	}
	if e.MinLevel > e.MaxLevel {
		return fmt.Errorf("entry %q: min level %d exceeds max level %d", e.Species, e.MinLevel, e.MaxLevel)
	}
	for i, r := range e.Stats.Ranges {
		if r.Min > r.Max {
			return fmt.Errorf("entry %q: %s range min %d exceeds max %d", e.Species, Stat(i), r.Min, r.Max)
		}
	}
	return nil
}

// Matches reports whether this entry refers to the given species (and form,
// when a form is supplied). Comparison is case-insensitive.
func (e *SpawnEntry) Matches(species, form string) bool {
	if !strings.EqualFold(e.Species, species) {
		return false
	}
	if form == "" {
		return true
	}
	return strings.EqualFold(e.Form, form)
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// NormalizeName strips non-alphanumeric characters and lowercases, for
// species and form name comparison.
func NormalizeName(name string) string {
	return strings.ToLower(nonAlnum.ReplaceAllString(name, ""))
}
