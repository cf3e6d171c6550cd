package collect

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lodyland/internal/content"
	"lodyland/internal/economy"
	"lodyland/internal/game"
	"lodyland/internal/progression"
)

// scriptedRNG replays fixed rolls
type scriptedRNG struct {
	floats []float64
	ints   []int
}

func (s *scriptedRNG) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func (s *scriptedRNG) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0] % n
	s.ints = s.ints[1:]
	return v
}

func testRegistry(t *testing.T) *content.Registry {
	t.Helper()
	reg, err := content.NewRegistry(content.Set{
		Resources: []*content.Resource{
			{Key: "branch", BaseCooldownSeconds: 5, BaseSellPrice: 1, Enabled: true},
			{Key: "wood", BaseCooldownSeconds: 20, BaseSellPrice: 2, Enabled: true},
		},
		Cards: []*content.Card{
			{Key: "land_forest", Type: economy.LandAccess, Gameplay: economy.Gameplay{
				Target: economy.Target{Land: "forest"},
			}},
			{Key: "boost_branch", Type: economy.ResourceBoost, Gameplay: economy.Gameplay{
				Target: economy.Target{Resource: "branch"},
				Boost:  &economy.Effect{Kind: economy.Addition, Amount: 0.1},
			}},
			{Key: "quick_hands", Type: economy.ReduceCooldown, Gameplay: economy.Gameplay{
				Cooldown: &economy.Effect{Kind: economy.Reduction, Amount: 0.2},
			}},
			{Key: "axe_charm", Type: economy.LandLootBoost, Gameplay: economy.Gameplay{
				Target: economy.Target{Land: "forest", Tool: "axe"},
				Loot:   &economy.Effect{Kind: economy.Multiplier, Amount: 2},
			}},
		},
		Lands: []*content.Land{{
			Key:   "forest",
			Slots: 2,
			Tools: map[string]*content.Tool{
				"axe": {
					CooldownSeconds: 30,
					BaseLoot: []content.LootEntry{
						{Resource: "wood", Chance: 1, Min: 2, Max: 4},
						{Resource: "branch", Chance: 0.5, Min: 1, Max: 1},
					},
					ExtraLoot: []content.LootEntry{
						{Resource: "wood", Chance: 0.1, Min: 1, Max: 1},
					},
				},
				"hand": {
					BaseLoot: []content.LootEntry{{Resource: "branch", Chance: 1, Min: 1, Max: 1}},
				},
			},
		}},
		Levels: []*content.Level{
			{Level: 1, XPRequired: 2, Rewards: []content.Reward{{Type: content.RewardResource, Key: "wood", Amount: 3}}},
		},
	})
	require.NoError(t, err)
	return reg
}

func newEngine(t *testing.T, rng RNG) (*Engine, *content.Registry) {
	reg := testRegistry(t)
	return NewEngine(reg, progression.NewEngine(reg), rng, DefaultConfig()), reg
}

func newState(cards map[string]int) *game.PlayerState {
	return game.NewPlayerState(&game.Player{ID: 1, Name: "tester"}, nil, cards)
}

func TestCollectTileBaseYield(t *testing.T) {
	e, reg := newEngine(t, rand.New(rand.NewSource(1)))
	branch, _ := reg.Resource("branch")
	state := newState(nil)
	tile := &game.Tile{ID: 7, Resource: "branch"}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	out, err := e.CollectTile(now, tile, state, branch)
	require.NoError(t, err)

	assert.Equal(t, 1.0, out.Granted["branch"])
	assert.Equal(t, 1.0, state.Stock("branch"))
	assert.Equal(t, 1.0, state.Player.XP)
	assert.Equal(t, 5.0, out.NextCooldownSeconds)
	require.NotNil(t, tile.CooldownUntil)
	assert.Equal(t, now.Add(5*time.Second), *tile.CooldownUntil)
	assert.Equal(t, map[string]float64{"branch": 1}, out.BaseAmounts)
}

func TestCollectTileWithBoosts(t *testing.T) {
	e, reg := newEngine(t, nil)
	branch, _ := reg.Resource("branch")
	state := newState(map[string]int{"boost_branch": 2, "quick_hands": 1})

	out, err := e.CollectTile(time.Now(), &game.Tile{Resource: "branch"}, state, branch)
	require.NoError(t, err)

	assert.InDelta(t, 1.2, out.Granted["branch"], 1e-9)
	assert.Equal(t, 1.2, state.Stock("branch"))
	assert.InDelta(t, 4.0, out.NextCooldownSeconds, 1e-9)
	// quest progress ignores the boost
	assert.Equal(t, 1.0, out.BaseAmounts["branch"])
}

func TestCollectTileMissingDefinitionUsesDefaultCooldown(t *testing.T) {
	e, _ := newEngine(t, nil)
	out, err := e.CollectTile(time.Now(), &game.Tile{Resource: "ghost"}, newState(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, 10.0, out.NextCooldownSeconds)
}

func TestCollectTileOnCooldownHasNoSideEffects(t *testing.T) {
	e, reg := newEngine(t, nil)
	branch, _ := reg.Resource("branch")
	now := time.Now()
	until := now.Add(10 * time.Second)
	tile := &game.Tile{ID: 3, Resource: "branch", CooldownUntil: &until}
	state := newState(nil)
	state.AddStock("branch", 4)

	_, err := e.CollectTile(now, tile, state, branch)

	require.True(t, game.IsReason(err, game.ReasonOnCooldown), "got %v", err)
	r, _ := game.AsRejection(err)
	assert.Equal(t, until.UTC().Format(time.RFC3339), r.Details["until"])
	assert.Equal(t, 4.0, state.Stock("branch"))
	assert.Equal(t, until, *tile.CooldownUntil)
	assert.Equal(t, 0.0, state.Player.XP)
}

func TestCollectTileLocked(t *testing.T) {
	e, reg := newEngine(t, nil)
	branch, _ := reg.Resource("branch")
	_, err := e.CollectTile(time.Now(), &game.Tile{Resource: "branch", Locked: true}, newState(nil), branch)
	assert.True(t, game.IsReason(err, game.ReasonLocked))

	_, err = e.CollectTile(time.Now(), nil, newState(nil), branch)
	assert.True(t, game.IsReason(err, game.ReasonTileNotFound))
}

func TestCollectTileLevelUpReward(t *testing.T) {
	e, reg := newEngine(t, nil)
	branch, _ := reg.Resource("branch")
	state := newState(nil)
	now := time.Now()

	_, err := e.CollectTile(now, &game.Tile{Resource: "branch"}, state, branch)
	require.NoError(t, err)
	out, err := e.CollectTile(now, &game.Tile{Resource: "branch"}, state, branch)
	require.NoError(t, err)

	assert.True(t, out.Progress.LeveledUp)
	assert.Equal(t, 1, state.Player.Level)
	assert.Equal(t, 3.0, out.Stock["wood"])
}

func TestCollectLandSlotRollsAndBoosts(t *testing.T) {
	// wood base hits (draw +1 -> 3), branch misses, extra wood hits (+1)
	rng := &scriptedRNG{floats: []float64{0.0, 0.9, 0.05}, ints: []int{1}}
	e, reg := newEngine(t, rng)
	forest, _ := reg.Land("forest")
	state := newState(map[string]int{"land_forest": 1, "axe_charm": 1})
	slot := &game.LandSlot{Land: "forest", Slot: 1}

	out, err := e.CollectLandSlot(time.Now(), LandRequest{Land: forest, Slot: 1, Tool: "axe", SlotState: slot}, state)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"wood": 4}, out.BaseAmounts)
	assert.Equal(t, 8.0, out.Granted["wood"])
	assert.Equal(t, 8.0, state.Stock("wood"))
	_, hasBranch := out.Granted["branch"]
	assert.False(t, hasBranch)
	assert.Equal(t, 30.0, out.NextCooldownSeconds)
	assert.NotNil(t, slot.CooldownUntil)
}

func TestCollectLandLootBoostFiltersTool(t *testing.T) {
	e, reg := newEngine(t, &scriptedRNG{})
	forest, _ := reg.Land("forest")
	state := newState(map[string]int{"land_forest": 1, "axe_charm": 1, "boost_branch": 1})

	out, err := e.CollectLandSlot(time.Now(), LandRequest{Land: forest, Slot: 0, Tool: "hand"}, state)
	require.NoError(t, err)

	// axe charm does not apply to the hand, the branch boost does
	assert.InDelta(t, 1.1, out.Granted["branch"], 1e-9)
	assert.Equal(t, 10.0, out.NextCooldownSeconds)
}

func TestCollectLandRejections(t *testing.T) {
	e, reg := newEngine(t, &scriptedRNG{})
	forest, _ := reg.Land("forest")
	now := time.Now()
	later := now.Add(time.Minute)

	cases := []struct {
		name   string
		req    LandRequest
		cards  map[string]int
		reason string
	}{
		{"unknown land", LandRequest{Tool: "axe"}, nil, game.ReasonLandUnknown},
		{"no access card", LandRequest{Land: forest, Tool: "axe"}, nil, game.ReasonLandLocked},
		{"slot too high", LandRequest{Land: forest, Slot: 2, Tool: "axe"}, map[string]int{"land_forest": 1}, game.ReasonSlotOutOfRange},
		{"negative slot", LandRequest{Land: forest, Slot: -1, Tool: "axe"}, map[string]int{"land_forest": 1}, game.ReasonSlotOutOfRange},
		{"unknown tool", LandRequest{Land: forest, Tool: "drill"}, map[string]int{"land_forest": 1}, game.ReasonUnknownTool},
		{"cooling slot", LandRequest{Land: forest, Tool: "axe", SlotState: &game.LandSlot{CooldownUntil: &later}},
			map[string]int{"land_forest": 1}, game.ReasonOnCooldown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := newState(tc.cards)
			_, err := e.CollectLandSlot(now, tc.req, state)
			assert.True(t, game.IsReason(err, tc.reason), "got %v", err)
			assert.Empty(t, state.DirtyStock())
			assert.Equal(t, 0.0, state.Player.XP)
		})
	}

	// purchased extra slots extend the range
	state := newState(map[string]int{"land_forest": 1})
	_, err := e.CollectLandSlot(now, LandRequest{Land: forest, Slot: 2, Tool: "hand", ExtraSlots: 1}, state)
	assert.NoError(t, err)
}

func TestRollLootChanceZeroNeverDrops(t *testing.T) {
	e, _ := newEngine(t, rand.New(rand.NewSource(42)))
	tool := &content.Tool{BaseLoot: []content.LootEntry{{Resource: "wood", Chance: 0, Min: 1, Max: 5}}}
	for i := 0; i < 200; i++ {
		assert.Empty(t, e.RollLoot(tool))
	}

	tool = &content.Tool{BaseLoot: []content.LootEntry{{Resource: "wood", Chance: 1, Min: 2, Max: 4}}}
	for i := 0; i < 200; i++ {
		got := e.RollLoot(tool)["wood"]
		assert.True(t, got >= 2 && got <= 4, "amount %v outside [2, 4]", got)
	}
}
