// Package collect runs a single collect action: yield, loot, cooldown and
// the XP grant that may cascade into level-ups.
package collect

import (
	"sort"
	"time"

	"lodyland/internal/content"
	"lodyland/internal/economy"
	"lodyland/internal/game"
	"lodyland/internal/progression"
	"lodyland/pkg/logger"
)

// RNG is the random source used for loot rolls. *rand.Rand satisfies it.
type RNG interface {
	Float64() float64
	Intn(n int) int
}

// Config holds the collection constants
type Config struct {
	XPPerCollect    float64
	DefaultCooldown time.Duration
}

// DefaultConfig returns one XP per collect and a 10s fallback cooldown
func DefaultConfig() Config {
	return Config{
		XPPerCollect:    1,
		DefaultCooldown: 10 * time.Second,
	}
}

// Result is what one collect produces before it is applied
type Result struct {
	Granted             map[string]float64 `json:"granted"`
	RawXP               float64            `json:"raw_xp"`
	NextCooldownSeconds float64            `json:"next_cooldown_seconds"`
}

// Outcome is an applied collect
type Outcome struct {
	Result
	// BaseAmounts are the pre-boost quantities, used for quest progress
	BaseAmounts   map[string]float64  `json:"-"`
	CooldownUntil time.Time           `json:"cooldown_until"`
	Stock         map[string]float64  `json:"stock"`
	Progress      progression.Outcome `json:"progress"`
}

// Engine performs collections against one content snapshot
type Engine struct {
	content     *content.Registry
	progression *progression.Engine
	rng         RNG
	cfg         Config
	logger      *logger.ColoredLogger
}

// NewEngine creates a collection engine
func NewEngine(reg *content.Registry, prog *progression.Engine, rng RNG, cfg Config) *Engine {
	if cfg.DefaultCooldown <= 0 {
		cfg.DefaultCooldown = DefaultConfig().DefaultCooldown
	}
	return &Engine{
		content:     reg,
		progression: prog,
		rng:         rng,
		cfg:         cfg,
		logger:      logger.NewComponentLogger("COLLECT", logger.ColorCyan),
	}
}

// TileResult computes yield, XP and cooldown for collecting resKey.
// res may be nil, in which case the default cooldown applies.
func (e *Engine) TileResult(state *game.PlayerState, resKey string, res *content.Resource) Result {
	owned := state.OwnedCards()
	target := economy.Target{Resource: resKey}

	yield := economy.Apply(1.0, economy.Resolve(e.content, owned, economy.ResourceBoost, target))

	base := e.cfg.DefaultCooldown.Seconds()
	if res != nil {
		base = res.BaseCooldownSeconds
	}
	cooldown := economy.ApplyCooldown(base, economy.Resolve(e.content, owned, economy.ReduceCooldown, target))

	return Result{
		Granted:             map[string]float64{resKey: yield},
		RawXP:               e.cfg.XPPerCollect,
		NextCooldownSeconds: cooldown,
	}
}

// CollectTile collects one tile. On rejection neither tile nor state is touched.
func (e *Engine) CollectTile(now time.Time, tile *game.Tile, state *game.PlayerState, res *content.Resource) (*Outcome, error) {
	if tile == nil {
		return nil, game.Reject(game.ReasonTileNotFound)
	}
	if tile.Locked {
		return nil, game.Reject(game.ReasonLocked, "tile_id", tile.ID)
	}
	if !tile.Ready(now) {
		return nil, game.Reject(game.ReasonOnCooldown,
			"until", tile.CooldownUntil.UTC().Format(time.RFC3339),
			"tile_id", tile.ID)
	}
	if res == nil {
		e.logger.Warn("Tile %d collects unknown resource %q, using default cooldown", tile.ID, tile.Resource)
	}

	result := e.TileResult(state, tile.Resource, res)
	until := now.Add(seconds(result.NextCooldownSeconds))
	tile.CooldownUntil = &until

	return e.apply(state, result, map[string]float64{tile.Resource: 1.0}, until), nil
}

// LandRequest identifies one land slot collect
type LandRequest struct {
	Land       *content.Land
	Slot       int
	Tool       string
	ExtraSlots int
	SlotState  *game.LandSlot
}

// CollectLandSlot rolls the tool's loot tables for one slot and applies the
// boosted loot. On rejection neither slot nor state is touched.
func (e *Engine) CollectLandSlot(now time.Time, req LandRequest, state *game.PlayerState) (*Outcome, error) {
	land := req.Land
	if land == nil {
		return nil, game.Reject(game.ReasonLandUnknown)
	}
	if !HasLandAccess(e.content, land, state) {
		return nil, game.Reject(game.ReasonLandLocked, "land", land.Key)
	}
	total := land.Slots + req.ExtraSlots
	if req.Slot < 0 || req.Slot >= total {
		return nil, game.Reject(game.ReasonSlotOutOfRange, "slot", req.Slot, "slots", total)
	}
	tool, ok := land.Tools[req.Tool]
	if !ok {
		return nil, game.Reject(game.ReasonUnknownTool, "land", land.Key, "tool", req.Tool)
	}
	if req.SlotState != nil && !req.SlotState.Ready(now) {
		return nil, game.Reject(game.ReasonOnCooldown,
			"until", req.SlotState.CooldownUntil.UTC().Format(time.RFC3339),
			"slot", req.Slot)
	}

	base := e.RollLoot(tool)
	owned := state.OwnedCards()

	granted := make(map[string]float64, len(base))
	for _, res := range sortedKeys(base) {
		target := economy.Target{Resource: res, Land: land.Key, Tool: req.Tool}
		mods := economy.Resolve(e.content, owned, economy.ResourceBoost, target)
		mods = append(mods, economy.Resolve(e.content, owned, economy.LandLootBoost, target)...)
		granted[res] = economy.Apply(base[res], mods)
	}

	cdBase := tool.CooldownSeconds
	if cdBase <= 0 {
		cdBase = e.cfg.DefaultCooldown.Seconds()
	}
	cdMods := economy.Resolve(e.content, owned, economy.ReduceCooldown, economy.Target{Land: land.Key, Tool: req.Tool})
	result := Result{
		Granted:             granted,
		RawXP:               e.cfg.XPPerCollect,
		NextCooldownSeconds: economy.ApplyCooldown(cdBase, cdMods),
	}

	until := now.Add(seconds(result.NextCooldownSeconds))
	if req.SlotState != nil {
		req.SlotState.CooldownUntil = &until
	}
	return e.apply(state, result, base, until), nil
}

// RollLoot rolls every base and extra loot entry with its own chance and
// sums the drawn amounts per resource
func (e *Engine) RollLoot(tool *content.Tool) map[string]float64 {
	out := make(map[string]float64)
	roll := func(entries []content.LootEntry) {
		for _, entry := range entries {
			if e.rng.Float64() >= entry.Chance {
				continue
			}
			amount := entry.Min
			if span := entry.Max - entry.Min; span > 0 {
				amount += e.rng.Intn(span + 1)
			}
			if amount > 0 {
				out[entry.Resource] += float64(amount)
			}
		}
	}
	roll(tool.BaseLoot)
	roll(tool.ExtraLoot)
	return out
}

func (e *Engine) apply(state *game.PlayerState, result Result, base map[string]float64, until time.Time) *Outcome {
	stock := make(map[string]float64, len(result.Granted))
	for _, res := range sortedKeys(result.Granted) {
		stock[res] = state.AddStock(res, result.Granted[res])
	}
	progress := e.progression.Grant(state, result.RawXP)
	for _, rw := range progress.Rewards {
		if rw.Type == content.RewardResource {
			stock[rw.Key] = state.Stock(rw.Key)
		}
	}
	return &Outcome{
		Result:        result,
		BaseAmounts:   base,
		CooldownUntil: until,
		Stock:         stock,
		Progress:      progress,
	}
}

// HasLandAccess reports whether the player owns the card that opens land
func HasLandAccess(reg *content.Registry, land *content.Land, state *game.PlayerState) bool {
	if land.AccessCard != "" && state.CardQty(land.AccessCard) > 0 {
		return true
	}
	for _, oc := range state.OwnedCards() {
		card, ok := reg.Card(oc.Key)
		if ok && card.Type == economy.LandAccess && card.Gameplay.Target.Land == land.Key {
			return true
		}
	}
	return false
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
