package model

// AttributeSet holds the rolled secondary attributes of one spawned creature.
type AttributeSet struct {
	Level    int
	Shiny    bool
	Stats    [NumStats]int
	HasStats bool
	Size     float64 // multiplier, 0 when not rolled
	HasSize  bool
	HeldItem string // item identifier, empty when none assigned
	FormID   string // resolved form identifier, empty for default form
	Aspects  []string
}

// Creature describes one live spawned creature as the engine sees it:
// identity plus what was rolled for it.
type Creature struct {
	Species    string
	Attributes AttributeSet
}
