package content

import (
	"math"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lodyland/internal/economy"
	"lodyland/internal/rules"
)

// Resource is a collectable resource definition
type Resource struct {
	Key                 string      `yaml:"key" json:"key"`
	Label               string      `yaml:"label" json:"label"`
	Description         string      `yaml:"description" json:"description,omitempty"`
	Icon                string      `yaml:"icon" json:"icon,omitempty"`
	BaseCooldownSeconds float64     `yaml:"base_cooldown_seconds" json:"base_cooldown_seconds"`
	BaseSellPrice       int64       `yaml:"base_sell_price" json:"base_sell_price"`
	UnlockMinLevel      int         `yaml:"unlock_min_level" json:"unlock_min_level"`
	UnlockRules         *rules.Rule `yaml:"unlock_rules" json:"-"`
	Enabled             bool        `yaml:"enabled" json:"enabled"`
}

// UnmarshalYAML applies defaults: resources are enabled unless stated otherwise
func (r *Resource) UnmarshalYAML(node *yaml.Node) error {
	type plain Resource
	p := plain{Enabled: true}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = Resource(p)
	return nil
}

// Card is a purchasable or grantable card definition
type Card struct {
	Key         string           `yaml:"key" json:"key"`
	Label       string           `yaml:"label" json:"label"`
	Description string           `yaml:"description" json:"description,omitempty"`
	Rarity      string           `yaml:"rarity" json:"rarity,omitempty"`
	Type        economy.CardType `yaml:"card_type" json:"card_type"`
	Gameplay    economy.Gameplay `yaml:"gameplay" json:"gameplay"`
	Shop        Shop             `yaml:"shop" json:"shop"`
	BuyRules    *rules.Rule      `yaml:"buy_rules" json:"-"`
	MaxOwned    int              `yaml:"max_owned" json:"max_owned,omitempty"`
}

// Shop holds the pricing and availability of a card
type Shop struct {
	Enabled        bool    `yaml:"enabled" json:"enabled"`
	Prices         []Price `yaml:"prices" json:"prices,omitempty"`
	Quantity       int     `yaml:"quantity" json:"quantity,omitempty"`
	AvailableUntil string  `yaml:"available_until" json:"available_until,omitempty"`
}

// Price is one way to pay for a card
type Price struct {
	Coins     int64              `yaml:"coins" json:"coins"`
	Diamonds  int64              `yaml:"diams" json:"diams"`
	Resources map[string]float64 `yaml:"resources" json:"resources,omitempty"`
}

// Price returns the active (first) price of the card
func (c *Card) Price() Price {
	if len(c.Shop.Prices) == 0 {
		return Price{}
	}
	return c.Shop.Prices[0]
}

// Expired reports whether the card's sale window ended before now.
// The until date is inclusive.
func (s Shop) Expired(now time.Time) bool {
	if s.AvailableUntil == "" {
		return false
	}
	until, err := time.Parse(time.DateOnly, s.AvailableUntil)
	if err != nil {
		return false
	}
	return now.UTC().After(until.AddDate(0, 0, 1))
}

// Land is a multi-slot collection area
type Land struct {
	Key                string           `yaml:"key" json:"key"`
	Label              string           `yaml:"label" json:"label"`
	Slots              int              `yaml:"slots" json:"slots"`
	AccessCard         string           `yaml:"access_card" json:"access_card,omitempty"`
	SlotBaseCost       int64            `yaml:"additional_slot_base_cost_diams" json:"additional_slot_base_cost_diams"`
	SlotCostMultiplier float64          `yaml:"additional_slot_cost_multiplier" json:"additional_slot_cost_multiplier"`
	Tools              map[string]*Tool `yaml:"tools" json:"tools"`
}

// UnmarshalYAML applies the slot pricing defaults
func (l *Land) UnmarshalYAML(node *yaml.Node) error {
	type plain Land
	p := plain{SlotBaseCost: 10, SlotCostMultiplier: 1.5}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*l = Land(p)
	return nil
}

// SlotCost is the diamond price of the next slot after extra purchased ones
func (l *Land) SlotCost(extra int) int64 {
	return int64(math.RoundToEven(float64(l.SlotBaseCost) * math.Pow(l.SlotCostMultiplier, float64(extra))))
}

// Tool is one way of harvesting a land slot
type Tool struct {
	CooldownSeconds float64     `yaml:"cooldown_seconds" json:"cooldown_seconds,omitempty"`
	BaseLoot        []LootEntry `yaml:"base_loot" json:"base_loot"`
	ExtraLoot       []LootEntry `yaml:"extra_loot" json:"extra_loot,omitempty"`
}

// LootEntry is one chance-gated drop
type LootEntry struct {
	Resource string  `yaml:"resource" json:"resource"`
	Chance   float64 `yaml:"chance" json:"chance"`
	Min      int     `yaml:"min" json:"min"`
	Max      int     `yaml:"max" json:"max"`
}

// RewardType is the kind of a level reward
type RewardType string

const (
	RewardCoins    RewardType = "coins"
	RewardDiamonds RewardType = "diamonds"
	RewardResource RewardType = "resource"
	RewardCard     RewardType = "card"
)

// NormalizeRewardType accepts the legacy spelling "diams"
func NormalizeRewardType(s string) RewardType {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "diams" {
		return RewardDiamonds
	}
	return RewardType(s)
}

// Reward is one entry of a level's reward list
type Reward struct {
	Type   RewardType `yaml:"type" json:"type"`
	Amount float64    `yaml:"amount" json:"amount"`
	Key    string     `yaml:"key" json:"key,omitempty"`
}

// UnmarshalYAML normalizes the reward type and defaults amount to 1
func (r *Reward) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Type   string   `yaml:"type"`
		Amount *float64 `yaml:"amount"`
		Key    string   `yaml:"key"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	r.Type = NormalizeRewardType(raw.Type)
	r.Key = raw.Key
	r.Amount = 1
	if raw.Amount != nil {
		r.Amount = *raw.Amount
	}
	return nil
}

// Level is a cumulative XP threshold and the rewards for reaching it
type Level struct {
	Level      int      `yaml:"level" json:"level"`
	XPRequired float64  `yaml:"xp_required" json:"xp_required"`
	Rewards    []Reward `yaml:"rewards" json:"rewards,omitempty"`
}

// Objective types a quest may use
const (
	ObjectiveCollectResource = "collect_resource"
)

// QuestTemplate describes a quest that can be assigned to players
type QuestTemplate struct {
	Key            string      `yaml:"key" json:"key"`
	Label          string      `yaml:"label" json:"label"`
	Daily          bool        `yaml:"daily" json:"daily"`
	DurationHours  int         `yaml:"duration_hours" json:"duration_hours,omitempty"`
	RewardCoins    int64       `yaml:"reward_coins" json:"reward_coins"`
	RewardDiamonds int64       `yaml:"reward_diamonds" json:"reward_diamonds"`
	Objectives     []Objective `yaml:"objectives" json:"objectives"`
}

// Objective is one countable goal of a quest
type Objective struct {
	Type     string  `yaml:"type" json:"type"`
	Resource string  `yaml:"resource" json:"resource"`
	Target   float64 `yaml:"target" json:"target"`
}

// Set is the parsed content documents before cross-checking
type Set struct {
	Resources []*Resource      `yaml:"resources"`
	Cards     []*Card          `yaml:"cards"`
	Lands     []*Land          `yaml:"lands"`
	Levels    []*Level         `yaml:"levels"`
	Quests    []*QuestTemplate `yaml:"quests"`
}
