package gameplay

import (
	"context"

	"lodyland/internal/collect"
	"lodyland/internal/database"
	"lodyland/internal/economy"
	"lodyland/internal/game"
)

// LandView is a land as seen by one player
type LandView struct {
	Key          string `json:"key"`
	Label        string `json:"label"`
	Unlocked     bool   `json:"unlocked"`
	BaseSlots    int    `json:"base_slots"`
	ExtraSlots   int    `json:"extra_slots"`
	TotalSlots   int    `json:"total_slots"`
	NextSlotCost int64  `json:"next_slot_cost"`
}

// StateView is everything the client renders for a player
type StateView struct {
	Player      *game.Player       `json:"player"`
	Tiles       []*game.Tile       `json:"tiles"`
	Stock       map[string]float64 `json:"stock"`
	Cards       map[string]int     `json:"cards"`
	Lands       []LandView         `json:"lands"`
	NextLevelXP *float64           `json:"next_level_xp,omitempty"`
	MaxLevel    int                `json:"max_level"`
}

// State returns the player's full view
func (s *Service) State(ctx context.Context, playerID int64) (*StateView, error) {
	reg := s.content.Current()

	var out *StateView
	err := s.txn(ctx, func(r *database.Repository, _ func(game.Event)) error {
		state, err := loadState(ctx, r, playerID)
		if err != nil {
			return err
		}
		tiles, err := r.Tiles.ListByPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		extras, err := r.Lands.AllExtraSlots(ctx, playerID)
		if err != nil {
			return err
		}

		out = &StateView{
			Player:   state.Player,
			Tiles:    tiles,
			Stock:    make(map[string]float64),
			Cards:    make(map[string]int),
			MaxLevel: reg.MaxLevel(),
		}
		if out.Tiles == nil {
			out.Tiles = []*game.Tile{}
		}
		for k, v := range state.StockSnapshot() {
			out.Stock[k] = economy.RoundStock(v)
		}
		for _, oc := range state.OwnedCards() {
			out.Cards[oc.Key] = oc.Qty
		}
		for _, land := range reg.Lands() {
			extra := extras[land.Key]
			out.Lands = append(out.Lands, LandView{
				Key:          land.Key,
				Label:        land.Label,
				Unlocked:     collect.HasLandAccess(reg, land, state),
				BaseSlots:    land.Slots,
				ExtraSlots:   extra,
				TotalSlots:   land.Slots + extra,
				NextSlotCost: land.SlotCost(extra),
			})
		}
		if xp, ok := reg.NextThreshold(state.Player.Level); ok {
			out.NextLevelXP = &xp
		}
		return nil
	})
	return out, err
}
