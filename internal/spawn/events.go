package spawn

import (
	"github.com/google/uuid"

	"github.com/craftmods/cobblespawner/internal/model"
)

// EventType discriminates engine event payloads.
type EventType string

const (
	EventSpawned EventType = "spawned"
	EventRemoved EventType = "removed"
	EventEvicted EventType = "evicted"
)

// Event is one engine occurrence published to the ops stream.
type Event struct {
	Type    EventType        `json:"type"`
	Spawner model.SpawnerKey `json:"spawner"`
	ID      uuid.UUID        `json:"id"`
	Species string           `json:"species,omitempty"`
	Pos     model.Position   `json:"pos"`
	Level   int              `json:"level,omitempty"`
	Shiny   bool             `json:"shiny,omitempty"`
	Tick    int64            `json:"tick"`
}

// EventSink receives engine events. Implementations must not block: the
// sink is called from the tick loop.
type EventSink interface {
	Publish(Event)
}
