package game

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds emitted by gameplay operations
const (
	EventCollect     = "collect"
	EventLevelUp     = "level_up"
	EventTileUnlock  = "tile_unlock"
	EventSell        = "sell"
	EventCardBuy     = "card_buy"
	EventSlotBuy     = "slot_buy"
	EventDailyClaim  = "daily_claim"
	EventQuestDone   = "quest_completed"
	EventRegister    = "register"
	EventContentLoad = "content_reload"
)

// Event is one economy change, journaled and streamed to admin clients
type Event struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	PlayerID int64          `json:"player_id,omitempty"`
	At       time.Time      `json:"at"`
	Data     map[string]any `json:"data,omitempty"`
}

// NewEvent stamps an event with a fresh id
func NewEvent(kind string, playerID int64, at time.Time, data map[string]any) Event {
	return Event{
		ID:       uuid.NewString(),
		Kind:     kind,
		PlayerID: playerID,
		At:       at.UTC(),
		Data:     data,
	}
}

// EventSink receives committed events
type EventSink interface {
	Publish(Event)
}

// Sinks fans an event out to several sinks
type Sinks []EventSink

// Publish implements EventSink
func (s Sinks) Publish(e Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Publish(e)
		}
	}
}
