package gameplay

import (
	"context"
	"errors"
	"sort"
	"time"

	"lodyland/internal/collect"
	"lodyland/internal/content"
	"lodyland/internal/database"
	"lodyland/internal/database/repositories"
	"lodyland/internal/economy"
	"lodyland/internal/game"
	"lodyland/internal/quest"
	"lodyland/internal/rules"
)

// CollectResult is an applied collect with the quests it advanced
type CollectResult struct {
	*collect.Outcome
	Tile   *game.Tile     `json:"tile,omitempty"`
	Slot   *game.LandSlot `json:"slot,omitempty"`
	Player *game.Player   `json:"player"`
	Quests []*quest.Quest `json:"quests,omitempty"`
}

// UnlockTile creates a new ready tile for resource. Owning an
// unlock_resource card for it waives the minimum level, not the rules.
func (s *Service) UnlockTile(ctx context.Context, playerID int64, resource string) (*game.Tile, error) {
	reg := s.content.Current()
	now := s.now()

	var tile *game.Tile
	err := s.txn(ctx, func(r *database.Repository, emit func(game.Event)) error {
		state, err := loadState(ctx, r, playerID)
		if err != nil {
			return err
		}

		res, ok := reg.Resource(resource)
		if !ok || !res.Enabled {
			return game.Reject(game.ReasonResourceUnknown, "resource", resource)
		}

		if state.Player.Level < res.UnlockMinLevel && !ownsUnlockCard(reg, state, res.Key) {
			return game.Reject(game.ReasonLevelTooLow,
				"required", res.UnlockMinLevel,
				"current_level", state.Player.Level)
		}

		if err := s.checkRules(state.Player, res.UnlockRules, "resource "+res.Key); err != nil {
			return err
		}

		tile = &game.Tile{PlayerID: playerID, Resource: res.Key}
		if err := r.Tiles.Create(ctx, tile); err != nil {
			return err
		}
		emit(game.NewEvent(game.EventTileUnlock, playerID, now, map[string]any{
			"tile_id":  tile.ID,
			"resource": res.Key,
		}))
		return nil
	})
	return tile, err
}

// checkRules evaluates a rule tree and logs ignored leaves
func (s *Service) checkRules(p *game.Player, rule *rules.Rule, owner string) error {
	res := rules.Evaluate(p.Facts(), rule)
	for _, kind := range res.Ignored {
		s.logger.Warn("unknown_rule_ignored: %s on %s", kind, owner)
	}
	if !res.Passed {
		return game.RejectRule(res.Failure)
	}
	return nil
}

func ownsUnlockCard(reg *content.Registry, state *game.PlayerState, resource string) bool {
	for _, oc := range state.OwnedCards() {
		card, ok := reg.Card(oc.Key)
		if ok && card.Type == economy.UnlockResource && card.Gameplay.Target.Resource == resource {
			return true
		}
	}
	return false
}

// CollectTile collects one of the player's tiles
func (s *Service) CollectTile(ctx context.Context, playerID, tileID int64) (*CollectResult, error) {
	reg := s.content.Current()
	engine, _ := s.engines(reg)
	now := s.now()

	var out *CollectResult
	err := s.txn(ctx, func(r *database.Repository, emit func(game.Event)) error {
		state, err := loadState(ctx, r, playerID)
		if err != nil {
			return err
		}
		tile, err := r.Tiles.Get(ctx, playerID, tileID)
		if errors.Is(err, repositories.ErrNotFound) {
			return game.Reject(game.ReasonTileNotFound, "tile_id", tileID)
		}
		if err != nil {
			return err
		}

		var res *content.Resource
		if def, ok := reg.Resource(tile.Resource); ok {
			res = def
		}
		outcome, err := engine.CollectTile(now, tile, state, res)
		if err != nil {
			return err
		}
		if err := r.Tiles.SaveCooldown(ctx, tile); err != nil {
			return err
		}

		out = &CollectResult{Outcome: outcome, Tile: tile, Player: state.Player}
		return s.finishCollect(ctx, r, emit, state, out, now, map[string]any{
			"tile_id": tile.ID,
		})
	})
	return out, err
}

// CollectLand collects one slot of a land with a tool
func (s *Service) CollectLand(ctx context.Context, playerID int64, landKey string, slot int, tool string) (*CollectResult, error) {
	reg := s.content.Current()
	engine, _ := s.engines(reg)
	now := s.now()

	var out *CollectResult
	err := s.txn(ctx, func(r *database.Repository, emit func(game.Event)) error {
		state, err := loadState(ctx, r, playerID)
		if err != nil {
			return err
		}
		land, ok := reg.Land(landKey)
		if !ok {
			return game.Reject(game.ReasonLandUnknown, "land", landKey)
		}
		extra, err := r.Lands.ExtraSlots(ctx, playerID, land.Key)
		if err != nil {
			return err
		}
		slotState, err := r.Lands.Slot(ctx, playerID, land.Key, slot)
		if err != nil {
			return err
		}

		outcome, err := engine.CollectLandSlot(now, collect.LandRequest{
			Land:       land,
			Slot:       slot,
			Tool:       tool,
			ExtraSlots: extra,
			SlotState:  slotState,
		}, state)
		if err != nil {
			return err
		}
		if err := r.Lands.SaveSlot(ctx, slotState); err != nil {
			return err
		}

		out = &CollectResult{Outcome: outcome, Slot: slotState, Player: state.Player}
		return s.finishCollect(ctx, r, emit, state, out, now, map[string]any{
			"land": land.Key,
			"slot": slot,
			"tool": tool,
		})
	})
	return out, err
}

// finishCollect feeds quest progress, persists the player and queues events
func (s *Service) finishCollect(ctx context.Context, r *database.Repository, emit func(game.Event),
	state *game.PlayerState, out *CollectResult, now time.Time, where map[string]any) error {

	changed, err := s.advanceQuests(ctx, r, state.Player, out.BaseAmounts, now)
	if err != nil {
		return err
	}
	out.Quests = changed

	if err := s.saveState(ctx, r, state, now); err != nil {
		return err
	}

	data := map[string]any{
		"granted":       out.Granted,
		"cooldown_secs": out.NextCooldownSeconds,
	}
	for k, v := range where {
		data[k] = v
	}
	emit(game.NewEvent(game.EventCollect, state.Player.ID, now, data))

	if out.Progress.LeveledUp {
		emit(game.NewEvent(game.EventLevelUp, state.Player.ID, now, map[string]any{
			"old_level": out.Progress.OldLevel,
			"new_level": out.Progress.NewLevel,
			"rewards":   out.Progress.Rewards,
		}))
	}
	for _, q := range changed {
		if q.Status == quest.StatusCompleted {
			emit(game.NewEvent(game.EventQuestDone, state.Player.ID, now, map[string]any{
				"quest":           q.TemplateKey,
				"reward_coins":    q.RewardCoins,
				"reward_diamonds": q.RewardDiamonds,
			}))
		}
	}
	return nil
}

// advanceQuests applies pre-boost collected amounts to the active quests
// and saves the ones that changed
func (s *Service) advanceQuests(ctx context.Context, r *database.Repository, p *game.Player,
	amounts map[string]float64, now time.Time) ([]*quest.Quest, error) {

	if len(amounts) == 0 {
		return nil, nil
	}
	active, err := r.Quests.ListByPlayer(ctx, p.ID, quest.StatusActive)
	if err != nil || len(active) == 0 {
		return nil, err
	}

	resources := make([]string, 0, len(amounts))
	for res := range amounts {
		resources = append(resources, res)
	}
	sort.Strings(resources)

	seen := make(map[int64]bool)
	var changed []*quest.Quest
	for _, res := range resources {
		for _, q := range s.tracker.OnResourceCollected(active, p, res, amounts[res], now) {
			if !seen[q.ID] {
				seen[q.ID] = true
				changed = append(changed, q)
			}
		}
	}
	for _, q := range changed {
		if err := r.Quests.Save(ctx, q); err != nil {
			return nil, err
		}
	}
	return changed, nil
}
