package model

import "fmt"

// Position represents an integer block coordinate in a world.
// Value type, passed by value (immutable).
type Position struct {
	X int32 `json:"x" yaml:"x"`
	Y int32 `json:"y" yaml:"y"`
	Z int32 `json:"z" yaml:"z"`
}

// NewPosition creates a Position with the given coordinates.
func NewPosition(x, y, z int32) Position {
	return Position{X: x, Y: y, Z: z}
}

// Offset returns a new Position shifted by (dx, dy, dz).
func (p Position) Offset(dx, dy, dz int32) Position {
	return Position{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Down returns the position one block below.
func (p Position) Down() Position {
	return p.Offset(0, -1, 0)
}

// Up returns the position one block above.
func (p Position) Up() Position {
	return p.Offset(0, 1, 0)
}

// DistanceSquared returns the squared distance to another position (no sqrt for performance).
func (p Position) DistanceSquared(other Position) int64 {
	dx := int64(p.X - other.X)
	dy := int64(p.Y - other.Y)
	dz := int64(p.Z - other.Z)
	return dx*dx + dy*dy + dz*dz
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

// SpawnerKey uniquely identifies a placed spawner: position plus dimension.
type SpawnerKey struct {
	Pos       Position `json:"pos" yaml:"pos"`
	Dimension string   `json:"dimension" yaml:"dimension"`
}

// NewSpawnerKey creates a SpawnerKey for the given position and dimension.
func NewSpawnerKey(pos Position, dimension string) SpawnerKey {
	return SpawnerKey{Pos: pos, Dimension: dimension}
}

func (k SpawnerKey) String() string {
	return fmt.Sprintf("%s@%s", k.Pos, k.Dimension)
}
