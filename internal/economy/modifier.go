package economy

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the stacking law a modifier follows
type Kind uint8

const (
	Addition Kind = iota + 1
	Multiplier
	Reduction
)

func (k Kind) String() string {
	switch k {
	case Addition:
		return "addition"
	case Multiplier:
		return "multiplier"
	case Reduction:
		return "reduction"
	default:
		return "unknown"
	}
}

// ParseKind decodes the content spelling of a modifier kind
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "addition", "add", "additive":
		return Addition, nil
	case "multiplier", "mult", "multiplicative":
		return Multiplier, nil
	case "reduction", "reduce":
		return Reduction, nil
	}
	return 0, fmt.Errorf("unknown modifier kind %q", s)
}

// UnmarshalYAML decodes a kind from its string form
func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseKind(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*k = parsed
	return nil
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Effect is the nested {kind, amount} block of a card's gameplay section
type Effect struct {
	Kind   Kind    `yaml:"kind" json:"kind"`
	Amount float64 `yaml:"amount" json:"amount"`
}

// CardType identifies which gameplay effect a card carries
type CardType string

const (
	ResourceBoost  CardType = "resource_boost"
	XPBoost        CardType = "xp_boost"
	ReduceCooldown CardType = "reduce_cooldown"
	LandLootBoost  CardType = "land_loot_boost"
	UnlockResource CardType = "unlock_resource"
	LandAccess     CardType = "land_access"
)

// Known reports whether the card type has engine semantics
func (t CardType) Known() bool {
	switch t {
	case ResourceBoost, XPBoost, ReduceCooldown, LandLootBoost, UnlockResource, LandAccess:
		return true
	}
	return false
}

// Target restricts a card to one resource, land or tool. Empty fields match anything.
type Target struct {
	Resource string `yaml:"target_resource,omitempty" json:"target_resource,omitempty"`
	Land     string `yaml:"target_land,omitempty" json:"target_land,omitempty"`
	Tool     string `yaml:"target_tool,omitempty" json:"target_tool,omitempty"`
}

// Matches reports whether a card declaring t applies to the requested target
func (t Target) Matches(requested Target) bool {
	if t.Resource != "" && t.Resource != requested.Resource {
		return false
	}
	if t.Land != "" && t.Land != requested.Land {
		return false
	}
	if t.Tool != "" && t.Tool != requested.Tool {
		return false
	}
	return true
}

// Global reports whether the target has no restriction at all
func (t Target) Global() bool {
	return t.Resource == "" && t.Land == "" && t.Tool == ""
}

// Gameplay is the decoded gameplay block of a card definition
type Gameplay struct {
	Target   `yaml:",inline"`
	Boost    *Effect `yaml:"boost,omitempty" json:"boost,omitempty"`
	XP       *Effect `yaml:"xp,omitempty" json:"xp,omitempty"`
	Cooldown *Effect `yaml:"cooldown,omitempty" json:"cooldown,omitempty"`
	Loot     *Effect `yaml:"loot,omitempty" json:"loot,omitempty"`
}

// EffectFor returns the nested effect block used by cards of type t
func (g Gameplay) EffectFor(t CardType) *Effect {
	switch t {
	case ResourceBoost:
		return g.Boost
	case XPBoost:
		return g.XP
	case ReduceCooldown:
		return g.Cooldown
	case LandLootBoost:
		return g.Loot
	}
	return nil
}

// Modifier is one resolved card effect; Qty is the number of owned copies
type Modifier struct {
	Qty    int
	Kind   Kind
	Amount float64
}
