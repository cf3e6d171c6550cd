package gameplay

import (
	"context"
	"time"

	"lodyland/internal/database"
	"lodyland/internal/game"
	"lodyland/internal/quest"
)

// DailyResult is a claimed daily reward
type DailyResult struct {
	Coins      int64        `json:"coins"`
	Streak     int          `json:"streak"`
	BestStreak int          `json:"best_streak"`
	NextReset  time.Time    `json:"next_reset"`
	Quest      *quest.Quest `json:"quest,omitempty"`
	Player     *game.Player `json:"player"`
}

// ClaimDaily pays the daily reward once per UTC day and assigns a daily quest
func (s *Service) ClaimDaily(ctx context.Context, playerID int64) (*DailyResult, error) {
	reg := s.content.Current()
	now := s.now()

	var out *DailyResult
	err := s.txn(ctx, func(r *database.Repository, emit func(game.Event)) error {
		state, err := loadState(ctx, r, playerID)
		if err != nil {
			return err
		}
		p := state.Player
		next := game.NextDailyReset(now)
		if p.ClaimedOn(now) {
			return game.Reject(game.ReasonAlreadyClaimed, "next_reset", next.Format(time.RFC3339))
		}

		p.RecordDailyClaim(now)
		p.Coins += s.cfg.DailyRewardCoins
		out = &DailyResult{
			Coins:      s.cfg.DailyRewardCoins,
			Streak:     p.DailyStreak,
			BestStreak: p.BestStreak,
			NextReset:  next,
			Player:     p,
		}

		active, err := r.Quests.ListByPlayer(ctx, playerID, quest.StatusActive)
		if err != nil {
			return err
		}
		if len(active) < s.cfg.MaxActiveQuests {
			if tpl := quest.PickDaily(reg, active, now); tpl != nil {
				q := quest.New(tpl, playerID, now)
				if err := r.Quests.Create(ctx, q); err != nil {
					return err
				}
				out.Quest = q
			}
		}

		if err := s.saveState(ctx, r, state, now); err != nil {
			return err
		}
		data := map[string]any{"coins": out.Coins, "streak": out.Streak}
		if out.Quest != nil {
			data["quest"] = out.Quest.TemplateKey
		}
		emit(game.NewEvent(game.EventDailyClaim, playerID, now, data))
		return nil
	})
	return out, err
}

// DailyStatus describes the daily reward state
type DailyStatus struct {
	CanClaim      bool      `json:"can_claim"`
	Streak        int       `json:"streak"`
	BestStreak    int       `json:"best_streak"`
	LastClaimDate string    `json:"last_claim_date,omitempty"`
	RewardCoins   int64     `json:"reward_coins"`
	NextReset     time.Time `json:"next_reset"`
}

// DailyStatus reports whether the player can claim today
func (s *Service) DailyStatus(ctx context.Context, playerID int64) (*DailyStatus, error) {
	now := s.now()
	var out *DailyStatus
	err := s.txn(ctx, func(r *database.Repository, _ func(game.Event)) error {
		state, err := loadState(ctx, r, playerID)
		if err != nil {
			return err
		}
		p := state.Player
		out = &DailyStatus{
			CanClaim:      !p.ClaimedOn(now),
			Streak:        p.DailyStreak,
			BestStreak:    p.BestStreak,
			LastClaimDate: p.LastDailyDate,
			RewardCoins:   s.cfg.DailyRewardCoins,
			NextReset:     game.NextDailyReset(now),
		}
		return nil
	})
	return out, err
}

// Quests lists the player's active and completed quests, newest first
func (s *Service) Quests(ctx context.Context, playerID int64) ([]*quest.Quest, error) {
	var out []*quest.Quest
	err := s.txn(ctx, func(r *database.Repository, _ func(game.Event)) error {
		if _, err := loadState(ctx, r, playerID); err != nil {
			return err
		}
		var err error
		out, err = r.Quests.ListByPlayer(ctx, playerID, quest.StatusActive, quest.StatusCompleted)
		return err
	})
	return out, err
}
