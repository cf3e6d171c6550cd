// Package content holds the read-only game definitions (resources, cards,
// lands, levels, quests) and the loader that builds them from YAML.
package content

import (
	"fmt"
	"sort"
	"time"

	"lodyland/internal/economy"
	"lodyland/pkg/logger"
)

// UnreachableXP is the threshold reported for levels with no definition
const UnreachableXP = 1e9

// Registry is an immutable, cross-checked content set. It is safe for
// concurrent reads.
type Registry struct {
	resources map[string]*Resource
	cards     map[string]*Card
	lands     map[string]*Land
	levels    map[int]*Level
	quests    map[string]*QuestTemplate

	resourceOrder []string
	cardOrder     []string
	landOrder     []string
	levelOrder    []int
	questOrder    []string

	warnings []string
	loadedAt time.Time
}

// NewRegistry cross-checks a content set. Duplicate keys fail; dangling
// references are logged and the offending entry is dropped.
func NewRegistry(set Set) (*Registry, error) {
	r := &Registry{
		resources: make(map[string]*Resource),
		cards:     make(map[string]*Card),
		lands:     make(map[string]*Land),
		levels:    make(map[int]*Level),
		quests:    make(map[string]*QuestTemplate),
		loadedAt:  time.Now(),
	}

	for _, res := range set.Resources {
		if _, dup := r.resources[res.Key]; dup {
			return nil, fmt.Errorf("duplicate resource %q", res.Key)
		}
		if res.BaseCooldownSeconds <= 0 {
			return nil, fmt.Errorf("resource %q: base_cooldown_seconds must be positive", res.Key)
		}
		r.warnUnknownRules("resource "+res.Key, res.UnlockRules.UnknownLeaves())
		r.resources[res.Key] = res
		r.resourceOrder = append(r.resourceOrder, res.Key)
	}

	for _, c := range set.Cards {
		if _, dup := r.cards[c.Key]; dup {
			return nil, fmt.Errorf("duplicate card %q", c.Key)
		}
		if !c.Type.Known() {
			r.warn("card %s: unknown card_type %q, it will never apply", c.Key, c.Type)
		}
		if t := c.Gameplay.Target.Resource; t != "" {
			if _, ok := r.resources[t]; !ok {
				r.warn("card %s: target_resource %q does not exist, card skipped", c.Key, t)
				continue
			}
		}
		if res := r.unknownPriceResource(c); res != "" {
			r.warn("card %s: price references unknown resource %q, card skipped", c.Key, res)
			continue
		}
		r.warnUnknownRules("card "+c.Key, c.BuyRules.UnknownLeaves())
		r.cards[c.Key] = c
		r.cardOrder = append(r.cardOrder, c.Key)
	}

	for _, l := range set.Lands {
		if _, dup := r.lands[l.Key]; dup {
			return nil, fmt.Errorf("duplicate land %q", l.Key)
		}
		if l.AccessCard != "" {
			if _, ok := r.cards[l.AccessCard]; !ok {
				r.warn("land %s: access_card %q does not exist", l.Key, l.AccessCard)
			}
		}
		for toolKey, tool := range l.Tools {
			if tool == nil {
				delete(l.Tools, toolKey)
				continue
			}
			tool.BaseLoot = r.filterLoot(l.Key, toolKey, tool.BaseLoot)
			tool.ExtraLoot = r.filterLoot(l.Key, toolKey, tool.ExtraLoot)
		}
		r.lands[l.Key] = l
		r.landOrder = append(r.landOrder, l.Key)
	}

	for _, lv := range set.Levels {
		if _, dup := r.levels[lv.Level]; dup {
			return nil, fmt.Errorf("duplicate level %d", lv.Level)
		}
		lv.Rewards = r.filterRewards(lv.Level, lv.Rewards)
		r.levels[lv.Level] = lv
		r.levelOrder = append(r.levelOrder, lv.Level)
	}
	sort.Ints(r.levelOrder)

	for _, q := range set.Quests {
		if _, dup := r.quests[q.Key]; dup {
			return nil, fmt.Errorf("duplicate quest %q", q.Key)
		}
		r.quests[q.Key] = q
		r.questOrder = append(r.questOrder, q.Key)
	}

	return r, nil
}

func (r *Registry) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.warnings = append(r.warnings, msg)
	logger.ContentLogger.Warn("%s", msg)
}

func (r *Registry) warnUnknownRules(owner string, kinds []string) {
	for _, k := range kinds {
		r.warn("%s: unknown rule type %q will be ignored", owner, k)
	}
}

func (r *Registry) unknownPriceResource(c *Card) string {
	for _, p := range c.Shop.Prices {
		for res := range p.Resources {
			if _, ok := r.resources[res]; !ok {
				return res
			}
		}
	}
	return ""
}

func (r *Registry) filterLoot(land, tool string, entries []LootEntry) []LootEntry {
	out := entries[:0]
	for _, e := range entries {
		if _, ok := r.resources[e.Resource]; !ok {
			r.warn("land %s tool %s: loot resource %q does not exist, entry skipped", land, tool, e.Resource)
			continue
		}
		if e.Max < e.Min {
			e.Max = e.Min
		}
		out = append(out, e)
	}
	return out
}

func (r *Registry) filterRewards(level int, rewards []Reward) []Reward {
	out := rewards[:0]
	for _, rw := range rewards {
		switch rw.Type {
		case RewardCoins, RewardDiamonds:
		case RewardResource:
			if _, ok := r.resources[rw.Key]; !ok {
				r.warn("level %d: reward resource %q does not exist, reward skipped", level, rw.Key)
				continue
			}
		case RewardCard:
			if _, ok := r.cards[rw.Key]; !ok {
				r.warn("level %d: reward card %q does not exist, reward skipped", level, rw.Key)
				continue
			}
		default:
			r.warn("level %d: unknown reward type %q, reward skipped", level, rw.Type)
			continue
		}
		out = append(out, rw)
	}
	return out
}

// Resource looks a resource definition up by key
func (r *Registry) Resource(key string) (*Resource, bool) {
	res, ok := r.resources[key]
	return res, ok
}

// Card looks a card definition up by key
func (r *Registry) Card(key string) (*Card, bool) {
	c, ok := r.cards[key]
	return c, ok
}

// Land looks a land definition up by key
func (r *Registry) Land(key string) (*Land, bool) {
	l, ok := r.lands[key]
	return l, ok
}

// Level looks a level definition up by number
func (r *Registry) Level(n int) (*Level, bool) {
	l, ok := r.levels[n]
	return l, ok
}

// Quest looks a quest template up by key
func (r *Registry) Quest(key string) (*QuestTemplate, bool) {
	q, ok := r.quests[key]
	return q, ok
}

// MaxLevel is the highest defined level, 0 when none are
func (r *Registry) MaxLevel() int {
	if len(r.levelOrder) == 0 {
		return 0
	}
	return r.levelOrder[len(r.levelOrder)-1]
}

// CardGameplay implements economy.CardCatalog
func (r *Registry) CardGameplay(key string) (economy.CardType, economy.Gameplay, bool) {
	c, ok := r.cards[key]
	if !ok {
		return "", economy.Gameplay{}, false
	}
	return c.Type, c.Gameplay, true
}

// XPRequiredFor is the cumulative XP needed for level; undefined levels are unreachable
func (r *Registry) XPRequiredFor(level int) float64 {
	if level <= 0 {
		return 0
	}
	if l, ok := r.levels[level]; ok {
		return l.XPRequired
	}
	return UnreachableXP
}

// LevelForXP scans levels upward from 1 and stops at the first one that is
// undefined or not yet reached
func (r *Registry) LevelForXP(xp float64) int {
	level := 0
	for n := 1; ; n++ {
		l, ok := r.levels[n]
		if !ok || xp < l.XPRequired {
			return level
		}
		level = n
	}
}

// NextThreshold is the XP needed for level+1, false at the level cap
func (r *Registry) NextThreshold(level int) (float64, bool) {
	l, ok := r.levels[level+1]
	if !ok {
		return 0, false
	}
	return l.XPRequired, true
}

// Resources lists resource definitions in declaration order
func (r *Registry) Resources() []*Resource {
	out := make([]*Resource, 0, len(r.resourceOrder))
	for _, k := range r.resourceOrder {
		out = append(out, r.resources[k])
	}
	return out
}

// Cards lists card definitions in declaration order
func (r *Registry) Cards() []*Card {
	out := make([]*Card, 0, len(r.cardOrder))
	for _, k := range r.cardOrder {
		out = append(out, r.cards[k])
	}
	return out
}

// Lands lists land definitions in declaration order
func (r *Registry) Lands() []*Land {
	out := make([]*Land, 0, len(r.landOrder))
	for _, k := range r.landOrder {
		out = append(out, r.lands[k])
	}
	return out
}

// Levels lists level definitions in ascending order
func (r *Registry) Levels() []*Level {
	out := make([]*Level, 0, len(r.levelOrder))
	for _, n := range r.levelOrder {
		out = append(out, r.levels[n])
	}
	return out
}

// Quests lists quest templates in declaration order
func (r *Registry) Quests() []*QuestTemplate {
	out := make([]*QuestTemplate, 0, len(r.questOrder))
	for _, k := range r.questOrder {
		out = append(out, r.quests[k])
	}
	return out
}

// Warnings returns the content defects found while building the registry
func (r *Registry) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

// LoadedAt is when the registry was built
func (r *Registry) LoadedAt() time.Time {
	return r.loadedAt
}

// Summary counts definitions per kind
func (r *Registry) Summary() map[string]int {
	return map[string]int{
		"resources": len(r.resources),
		"cards":     len(r.cards),
		"lands":     len(r.lands),
		"levels":    len(r.levels),
		"quests":    len(r.quests),
	}
}
