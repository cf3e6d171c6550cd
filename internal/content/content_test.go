package content

import (
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lodyland/internal/economy"
	"lodyland/internal/rules"
)

func loadDefaults(t *testing.T) *Registry {
	t.Helper()
	reg, err := Defaults()
	require.NoError(t, err)
	return reg
}

func TestDefaultsLoad(t *testing.T) {
	reg := loadDefaults(t)

	assert.Empty(t, reg.Warnings())
	assert.Equal(t, 5, reg.MaxLevel())

	branch, ok := reg.Resource("branch")
	require.True(t, ok)
	assert.Equal(t, 5.0, branch.BaseCooldownSeconds)
	assert.Equal(t, int64(1), branch.BaseSellPrice)
	assert.True(t, branch.Enabled)
	assert.Nil(t, branch.UnlockRules)

	stone, _ := reg.Resource("stone")
	require.NotNil(t, stone.UnlockRules)
	res := rules.Evaluate(rules.Facts{Level: 2, Coins: 10}, stone.UnlockRules)
	assert.False(t, res.Passed)
	assert.Equal(t, "not_enough_coins", res.Failure.Reason)

	card, ok := reg.Card("boost_branch")
	require.True(t, ok)
	assert.Equal(t, economy.ResourceBoost, card.Type)
	assert.Equal(t, economy.Addition, card.Gameplay.Boost.Kind)
	assert.Equal(t, int64(25), card.Price().Coins)

	ct, gp, ok := reg.CardGameplay("forest_axe_loot")
	require.True(t, ok)
	assert.Equal(t, economy.LandLootBoost, ct)
	assert.Equal(t, economy.Target{Land: "forest", Tool: "axe"}, gp.Target)

	forest, ok := reg.Land("forest")
	require.True(t, ok)
	assert.Len(t, forest.Tools, 2)
	assert.Equal(t, int64(10), forest.SlotCost(0))
	assert.Equal(t, int64(22), forest.SlotCost(2))

	lvl4, _ := reg.Level(4)
	require.Len(t, lvl4.Rewards, 2)
	assert.Equal(t, RewardDiamonds, lvl4.Rewards[1].Type)

	lvl3, _ := reg.Level(3)
	assert.Equal(t, 1.0, lvl3.Rewards[1].Amount)

	_, ok = reg.Resource("gold")
	assert.False(t, ok)
	assert.Len(t, reg.Quests(), 2)
}

func TestLevelForXP(t *testing.T) {
	reg := loadDefaults(t)

	cases := map[float64]int{0: 0, 9.99: 0, 10: 1, 29: 1, 30: 2, 100: 4, 150: 5, 1e7: 5}
	for xp, want := range cases {
		assert.Equal(t, want, reg.LevelForXP(xp), "xp=%v", xp)
	}

	prev := 0
	for xp := 0.0; xp < 400; xp += 0.5 {
		got := reg.LevelForXP(xp)
		assert.GreaterOrEqual(t, got, prev, "level dropped at xp=%v", xp)
		prev = got
	}

	assert.Equal(t, 0.0, reg.XPRequiredFor(0))
	assert.Equal(t, UnreachableXP, reg.XPRequiredFor(6))
	next, ok := reg.NextThreshold(1)
	assert.True(t, ok)
	assert.Equal(t, 30.0, next)
	_, ok = reg.NextThreshold(5)
	assert.False(t, ok)
}

func TestLevelGapIsUnreachable(t *testing.T) {
	reg, err := NewRegistry(Set{Levels: []*Level{
		{Level: 1, XPRequired: 10},
		{Level: 3, XPRequired: 20},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.LevelForXP(1000))
}

func TestDanglingReferencesAreSkipped(t *testing.T) {
	set := Set{
		Resources: []*Resource{{Key: "branch", BaseCooldownSeconds: 5, Enabled: true}},
		Cards: []*Card{
			{Key: "ghost_boost", Type: economy.ResourceBoost, Gameplay: economy.Gameplay{
				Target: economy.Target{Resource: "ghost"},
				Boost:  &economy.Effect{Kind: economy.Addition, Amount: 1},
			}},
			{Key: "mystery", Type: "teleport"},
			{Key: "gated", Type: economy.XPBoost, BuyRules: rules.Leaf("has_friend", 1)},
		},
		Lands: []*Land{{Key: "forest", Slots: 2, Tools: map[string]*Tool{
			"hand": {BaseLoot: []LootEntry{
				{Resource: "branch", Chance: 1, Min: 3, Max: 1},
				{Resource: "ghost", Chance: 1, Min: 1, Max: 1},
			}},
		}}},
		Levels: []*Level{{Level: 1, XPRequired: 5, Rewards: []Reward{
			{Type: RewardCoins, Amount: 5},
			{Type: RewardCard, Key: "ghost_boost"},
			{Type: "hugs", Amount: 1},
		}}},
	}

	reg, err := NewRegistry(set)
	require.NoError(t, err)

	_, ok := reg.Card("ghost_boost")
	assert.False(t, ok)
	_, ok = reg.Card("mystery")
	assert.True(t, ok, "unknown card types load but never resolve")

	forest, _ := reg.Land("forest")
	loot := forest.Tools["hand"].BaseLoot
	require.Len(t, loot, 1)
	assert.Equal(t, 3, loot[0].Max)

	lvl, _ := reg.Level(1)
	require.Len(t, lvl.Rewards, 1)
	assert.Equal(t, RewardCoins, lvl.Rewards[0].Type)

	// target, type, rule, loot, card reward, reward type
	assert.Len(t, reg.Warnings(), 6)
}

func TestDuplicateKeysFail(t *testing.T) {
	_, err := NewRegistry(Set{Resources: []*Resource{
		{Key: "a", BaseCooldownSeconds: 1},
		{Key: "a", BaseCooldownSeconds: 2},
	}})
	assert.Error(t, err)
}

func TestSchemaRejectsBadDocuments(t *testing.T) {
	loader, err := NewLoader(true)
	require.NoError(t, err)

	base := fstest.MapFS{
		"resources.yml": {Data: []byte("resources:\n  - {key: branch, base_cooldown_seconds: 5}\n")},
		"cards.yml":     {Data: []byte("cards: []\n")},
		"lands.yml":     {Data: []byte("lands: []\n")},
		"levels.yml":    {Data: []byte("levels:\n  - {level: 1, xp_required: 10}\n")},
	}
	reg, err := loader.Load(base)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Summary()["resources"])

	bad := fstest.MapFS{}
	for k, v := range base {
		bad[k] = v
	}
	bad["resources.yml"] = &fstest.MapFile{Data: []byte("resources:\n  - {key: branch, base_cooldown_seconds: -1}\n")}
	_, err = loader.Load(bad)
	assert.ErrorContains(t, err, "resources.yml does not match schema")

	bad["resources.yml"] = base["resources.yml"]
	bad["cards.yml"] = &fstest.MapFile{Data: []byte("cards:\n  - key: x\n    card_type: xp_boost\n    gameplay: {xp: {kind: exponential, amount: 2}}\n")}
	_, err = loader.Load(bad)
	assert.ErrorContains(t, err, "cards.yml does not match schema")

	delete(bad, "levels.yml")
	bad["cards.yml"] = base["cards.yml"]
	_, err = loader.Load(bad)
	assert.ErrorContains(t, err, "levels.yml")
}

func TestLoaderWithoutValidationStillDecodes(t *testing.T) {
	loader, err := NewLoader(false)
	require.NoError(t, err)

	fsys := fstest.MapFS{
		"resources.yml": {Data: []byte("resources:\n  - {key: branch, base_cooldown_seconds: 5, enabled: false}\n")},
		"cards.yml":     {Data: []byte("cards: []\n")},
		"lands.yml":     {Data: []byte("lands: []\n")},
		"levels.yml":    {Data: []byte("levels: []\n")},
	}
	reg, err := loader.Load(fsys)
	require.NoError(t, err)
	branch, _ := reg.Resource("branch")
	assert.False(t, branch.Enabled)
}

func TestShopExpiry(t *testing.T) {
	s := Shop{AvailableUntil: "2026-06-30"}
	assert.False(t, s.Expired(time.Date(2026, 6, 30, 23, 0, 0, 0, time.UTC)))
	assert.True(t, s.Expired(time.Date(2026, 7, 1, 0, 0, 1, 0, time.UTC)))
	assert.False(t, Shop{}.Expired(time.Now()))
}

func TestStoreSwapsAtomically(t *testing.T) {
	first := loadDefaults(t)
	store := NewStore(first)
	assert.Same(t, first, store.Current())

	second := loadDefaults(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg := store.Current()
				if reg != first && reg != second {
					t.Errorf("unexpected registry %p", reg)
				}
			}
		}()
	}
	v, err := store.Replace(second)
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, uint64(2), v)
	assert.Same(t, second, store.Current())

	_, err = store.Reload(func() (*Registry, error) { return nil, assert.AnError })
	assert.Error(t, err)
	assert.Same(t, second, store.Current())
	assert.Equal(t, uint64(2), store.Version())
}
