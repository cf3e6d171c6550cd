// Package progression turns gained XP into levels and pays out the
// rewards of every level crossed.
package progression

import (
	"math"

	"lodyland/internal/content"
	"lodyland/internal/economy"
	"lodyland/internal/game"
	"lodyland/pkg/logger"
)

// RewardRecord is one reward applied during a level-up, tagged with the
// level that granted it
type RewardRecord struct {
	Level  int                `json:"level"`
	Type   content.RewardType `json:"type"`
	Amount float64            `json:"amount"`
	Key    string             `json:"key,omitempty"`
}

// Outcome of one XP grant
type Outcome struct {
	LeveledUp bool           `json:"leveled_up"`
	OldLevel  int            `json:"old_level"`
	NewLevel  int            `json:"new_level"`
	RawXP     float64        `json:"raw_xp,omitempty"`
	GainedXP  float64        `json:"gained_xp"`
	Rewards   []RewardRecord `json:"rewards,omitempty"`
}

// Engine applies XP against a content registry
type Engine struct {
	content *content.Registry
	logger  *logger.ColoredLogger
}

// NewEngine creates a progression engine reading levels from reg
func NewEngine(reg *content.Registry) *Engine {
	return &Engine{
		content: reg,
		logger:  logger.EconomyLogger,
	}
}

// BoostedXP runs raw XP through the player's global xp_boost cards
func (e *Engine) BoostedXP(state *game.PlayerState, raw float64) float64 {
	mods := economy.Resolve(e.content, state.OwnedCards(), economy.XPBoost, economy.Target{})
	return economy.Apply(raw, mods)
}

// Grant boosts raw XP and applies it
func (e *Engine) Grant(state *game.PlayerState, raw float64) Outcome {
	out := e.Apply(state, e.BoostedXP(state, raw))
	out.RawXP = raw
	return out
}

// Apply adds gained XP to the player, recomputes the level and applies the
// rewards of each level in (old, new] in declaration order
func (e *Engine) Apply(state *game.PlayerState, gained float64) Outcome {
	p := state.Player
	out := Outcome{OldLevel: p.Level, NewLevel: p.Level}
	if gained <= 0 || math.IsNaN(gained) {
		return out
	}

	p.XP += gained
	out.GainedXP = gained

	newLevel := e.content.LevelForXP(p.XP)
	if newLevel <= p.Level {
		return out
	}

	for lvl := p.Level + 1; lvl <= newLevel; lvl++ {
		def, ok := e.content.Level(lvl)
		if !ok {
			continue
		}
		for _, rw := range def.Rewards {
			if rec, ok := e.applyReward(state, lvl, rw); ok {
				out.Rewards = append(out.Rewards, rec)
			}
		}
	}

	e.logger.Debug("Player %d leveled up %d -> %d (xp %.2f)", p.ID, p.Level, newLevel, p.XP)
	p.Level = newLevel
	out.LeveledUp = true
	out.NewLevel = newLevel
	return out
}

func (e *Engine) applyReward(state *game.PlayerState, level int, rw content.Reward) (RewardRecord, bool) {
	rec := RewardRecord{Level: level, Type: rw.Type, Amount: rw.Amount, Key: rw.Key}
	p := state.Player

	switch rw.Type {
	case content.RewardCoins:
		p.Coins += int64(rw.Amount)
	case content.RewardDiamonds:
		p.Diamonds += int64(rw.Amount)
	case content.RewardResource:
		if _, ok := e.content.Resource(rw.Key); !ok {
			e.logger.Warn("Level %d reward references unknown resource %q, skipped", level, rw.Key)
			return rec, false
		}
		state.AddStock(rw.Key, rw.Amount)
	case content.RewardCard:
		if _, ok := e.content.Card(rw.Key); !ok {
			e.logger.Warn("Level %d reward references unknown card %q, skipped", level, rw.Key)
			return rec, false
		}
		state.AddCard(rw.Key, int(rw.Amount))
	default:
		e.logger.Warn("Level %d has unknown reward type %q, skipped", level, rw.Type)
		return rec, false
	}
	return rec, true
}
