package spawn

import (
	"math"

	"github.com/craftmods/cobblespawner/internal/catalog"
	"github.com/craftmods/cobblespawner/internal/model"
)

// minStandingHeight is the collision-top fraction above which a partial
// block still counts as solid ground (farmland, dirt paths).
const minStandingHeight = 0.9

// SafeForSpawn reports whether a creature can be placed at pos: solid-enough
// ground below, passable space at body and head height. Pure function of
// world state at call time.
func SafeForSpawn(w World, pos model.Position) bool {
	ground := w.BlockAt(pos.Down())
	if ground.CollisionEmpty {
		return false
	}
	solidEnough := ground.CollisionTop >= minStandingHeight
	if !ground.SolidTopFace && !ground.StandingSurface && !solidEnough {
		return false
	}
	if !w.BlockAt(pos).Passable() {
		return false
	}
	if !w.BlockAt(pos.Up()).Passable() {
		return false
	}
	return true
}

// FitsAt reports whether a creature with the given hitbox has clear space at
// pos. This is the shape-aware second check run right before placement:
// SafeForSpawn assumes a one-block body, larger species need a wider and
// taller clearance volume.
func FitsAt(w World, pos model.Position, hb catalog.Hitbox) bool {
	width := int32(math.Ceil(hb.Width))
	if width < 1 {
		width = 1
	}
	height := int32(math.Ceil(hb.Height))
	if height < 1 {
		height = 1
	}
	half := (width - 1) / 2
	for dx := int32(0); dx < width; dx++ {
		for dz := int32(0); dz < width; dz++ {
			for dy := int32(0); dy < height; dy++ {
				if !w.BlockAt(pos.Offset(dx-half, dy, dz-half)).Passable() {
					return false
				}
			}
		}
	}
	return true
}
