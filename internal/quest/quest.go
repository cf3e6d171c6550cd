// Package quest tracks quest objectives fed by collection events and pays
// quest rewards on completion.
package quest

import (
	"time"

	"lodyland/internal/content"
	"lodyland/internal/game"
	"lodyland/pkg/logger"
)

// Status of a player quest
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Objective is a player's progress on one quest goal
type Objective struct {
	ID       int64   `json:"id"`
	Index    int     `json:"index"`
	Type     string  `json:"type"`
	Resource string  `json:"resource,omitempty"`
	Target   float64 `json:"target"`
	Current  float64 `json:"current"`
}

// Done reports whether the objective reached its target
func (o *Objective) Done() bool {
	return o.Current >= o.Target
}

// Quest is a quest assigned to a player
type Quest struct {
	ID             int64        `json:"id"`
	PlayerID       int64        `json:"player_id"`
	TemplateKey    string       `json:"template_key"`
	Label          string       `json:"label"`
	Status         Status       `json:"status"`
	RewardCoins    int64        `json:"reward_coins"`
	RewardDiamonds int64        `json:"reward_diamonds"`
	StartedAt      time.Time    `json:"started_at"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	Objectives     []*Objective `json:"objectives"`
}

// New instantiates a template for a player
func New(tpl *content.QuestTemplate, playerID int64, now time.Time) *Quest {
	q := &Quest{
		PlayerID:       playerID,
		TemplateKey:    tpl.Key,
		Label:          tpl.Label,
		Status:         StatusActive,
		RewardCoins:    tpl.RewardCoins,
		RewardDiamonds: tpl.RewardDiamonds,
		StartedAt:      now,
	}
	if tpl.DurationHours > 0 {
		exp := now.Add(time.Duration(tpl.DurationHours) * time.Hour)
		q.ExpiresAt = &exp
	}
	for i, o := range tpl.Objectives {
		q.Objectives = append(q.Objectives, &Objective{
			Index:    i,
			Type:     o.Type,
			Resource: o.Resource,
			Target:   o.Target,
		})
	}
	return q
}

// Expired reports whether an active quest ran out of time
func (q *Quest) Expired(now time.Time) bool {
	return q.ExpiresAt != nil && !now.Before(*q.ExpiresAt)
}

// Complete reports whether every objective is done
func (q *Quest) Complete() bool {
	for _, o := range q.Objectives {
		if !o.Done() {
			return false
		}
	}
	return len(q.Objectives) > 0
}

// Tracker advances quests
type Tracker struct {
	logger *logger.ColoredLogger
}

// NewTracker creates a quest tracker
func NewTracker() *Tracker {
	return &Tracker{logger: logger.NewComponentLogger("QUEST", logger.ColorYellow)}
}

// OnResourceCollected adds amount to matching collect_resource objectives of
// the active quests, clamped to the target. Quests that complete pay their
// reward to player once. Returns the quests that changed.
func (t *Tracker) OnResourceCollected(quests []*Quest, player *game.Player, resource string, amount float64, now time.Time) []*Quest {
	if amount <= 0 {
		return nil
	}
	var changed []*Quest
	for _, q := range quests {
		if q.Status != StatusActive {
			continue
		}
		if q.Expired(now) {
			q.Status = StatusExpired
			changed = append(changed, q)
			continue
		}
		touched := false
		for _, o := range q.Objectives {
			if o.Type != content.ObjectiveCollectResource || o.Resource != resource || o.Done() {
				continue
			}
			o.Current += amount
			if o.Current > o.Target {
				o.Current = o.Target
			}
			touched = true
		}
		if !touched {
			continue
		}
		if q.Complete() {
			t.complete(q, player, now)
		}
		changed = append(changed, q)
	}
	return changed
}

func (t *Tracker) complete(q *Quest, player *game.Player, now time.Time) {
	q.Status = StatusCompleted
	q.CompletedAt = &now
	player.Coins += q.RewardCoins
	player.Diamonds += q.RewardDiamonds
	t.logger.Info("Player %d completed quest %s (+%d coins, +%d diams)",
		player.ID, q.TemplateKey, q.RewardCoins, q.RewardDiamonds)
}

// PickDaily chooses a daily template the player does not already have
// active. The choice rotates with the calendar day.
func PickDaily(reg *content.Registry, active []*Quest, day time.Time) *content.QuestTemplate {
	have := make(map[string]bool, len(active))
	for _, q := range active {
		if q.Status == StatusActive {
			have[q.TemplateKey] = true
		}
	}
	var candidates []*content.QuestTemplate
	for _, tpl := range reg.Quests() {
		if tpl.Daily && !have[tpl.Key] {
			candidates = append(candidates, tpl)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[day.UTC().YearDay()%len(candidates)]
}
