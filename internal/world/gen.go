package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/craftmods/cobblespawner/internal/model"
)

// GenConfig tunes demo terrain generation.
type GenConfig struct {
	Seed      int64
	Radius    int32 // half-extent of the generated square around origin
	BaseY     int32 // mean surface height
	Amplitude float64
	WaterY    int32 // columns below this height get water at the surface
}

// DefaultGenConfig returns a small rolling landscape.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:      1,
		Radius:    64,
		BaseY:     64,
		Amplitude: 8,
		WaterY:    60,
	}
}

// Generate fills the dimension with an opensimplex heightmap landscape:
// two solid layers at each column's surface, water in the low basins.
// Used by the demo daemon and by large-surface tests.
func Generate(m *Memory, cfg GenConfig) {
	noise := opensimplex.NewNormalized(cfg.Seed)

	for x := -cfg.Radius; x <= cfg.Radius; x++ {
		for z := -cfg.Radius; z <= cfg.Radius; z++ {
			elev := octaveNoise(noise, float64(x), float64(z), 4, 0.03, 0.5)
			surface := cfg.BaseY + int32(math.Round((elev-0.5)*2*cfg.Amplitude))

			for y := surface - 1; y <= surface; y++ {
				m.SetBlock(model.NewPosition(x, y, z), Stone)
			}
			if surface < cfg.WaterY {
				for y := surface + 1; y <= cfg.WaterY; y++ {
					m.SetBlock(model.NewPosition(x, y, z), Water)
				}
			}
		}
	}
}

// octaveNoise layers multiple noise frequencies for natural-looking terrain.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for range octaves {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
