package game

import "time"

// Tile is a per-player collection slot for one resource
type Tile struct {
	ID            int64      `json:"id"`
	PlayerID      int64      `json:"player_id"`
	Resource      string     `json:"resource"`
	Locked        bool       `json:"locked"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
}

// Ready reports whether the tile can be collected at now
func (t *Tile) Ready(now time.Time) bool {
	return !t.Locked && !coolingDown(t.CooldownUntil, now)
}

// LandSlot is the cooldown state of one numbered slot on a player's land
type LandSlot struct {
	PlayerID      int64      `json:"player_id"`
	Land          string     `json:"land"`
	Slot          int        `json:"slot"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
}

// Ready reports whether the slot can be collected at now
func (s *LandSlot) Ready(now time.Time) bool {
	return !coolingDown(s.CooldownUntil, now)
}

func coolingDown(until *time.Time, now time.Time) bool {
	return until != nil && now.Before(*until)
}
