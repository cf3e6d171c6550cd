package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decode(t *testing.T, src string) *Rule {
	t.Helper()
	r := &Rule{}
	require.NoError(t, yaml.Unmarshal([]byte(src), r))
	return r
}

func TestNilRulePasses(t *testing.T) {
	res := Evaluate(Facts{}, nil)
	assert.True(t, res.Passed)
	assert.Empty(t, res.Failure.Reason)
}

func TestAllReportsFirstFailure(t *testing.T) {
	r := All(Leaf(LevelAtLeast, 5))
	res := Evaluate(Facts{Level: 3}, r)

	require.False(t, res.Passed)
	assert.Equal(t, "level_too_low", res.Failure.Reason)
	assert.Equal(t, int64(5), res.Failure.Details["required"])
	assert.Equal(t, 3, res.Failure.Details["current_level"])

	res = Evaluate(Facts{Level: 1, Coins: 0}, All(Leaf(CoinsAtLeast, 10), Leaf(LevelAtLeast, 5)))
	assert.Equal(t, "not_enough_coins", res.Failure.Reason)
	assert.Equal(t, int64(0), res.Failure.Details["current_coins"])
}

func TestAnyPassesOnAnyChild(t *testing.T) {
	r := Any(Leaf(LevelAtLeast, 99), Leaf(CoinsAtLeast, 0))
	for _, f := range []Facts{{}, {Level: 1, Coins: 5}, {Level: 200, Coins: 1e6}} {
		assert.True(t, Evaluate(f, r).Passed)
	}
}

func TestAnyReturnsLastFailure(t *testing.T) {
	r := Any(Leaf(LevelAtLeast, 99), Leaf(CoinsAtLeast, 500))
	res := Evaluate(Facts{Level: 2, Coins: 10}, r)

	require.False(t, res.Passed)
	assert.Equal(t, "not_enough_coins", res.Failure.Reason)
}

func TestEmptyAnyFails(t *testing.T) {
	res := Evaluate(Facts{Level: 10}, Any())
	require.False(t, res.Passed)
	assert.Equal(t, "no_variant_matches", res.Failure.Reason)
}

func TestUnknownLeafPassesAndIsReported(t *testing.T) {
	r := All(Leaf("has_card", 1), Leaf(LevelAtLeast, 1))
	res := Evaluate(Facts{Level: 1}, r)

	assert.True(t, res.Passed)
	assert.Equal(t, []string{"has_card"}, res.Ignored)
	assert.Equal(t, []string{"has_card"}, r.UnknownLeaves())
}

func TestDecodeForms(t *testing.T) {
	t.Run("all", func(t *testing.T) {
		r := decode(t, `{all: [{type: level_at_least, value: 5}]}`)
		assert.Equal(t, OpAll, r.Op)
		require.Len(t, r.Children, 1)
		assert.Equal(t, LevelAtLeast, r.Children[0].Type)
		assert.Equal(t, int64(5), r.Children[0].Value)
	})

	t.Run("nested any", func(t *testing.T) {
		r := decode(t, `
all:
  - any:
      - {type: level_at_least, value: 99}
      - {type: coins_at_least, value: 0}
  - {type: level_at_least, value: 1}
`)
		require.Len(t, r.Children, 2)
		assert.Equal(t, OpAny, r.Children[0].Op)
		assert.True(t, Evaluate(Facts{Level: 1}, r).Passed)
		assert.False(t, Evaluate(Facts{Level: 0}, r).Passed)
	})

	t.Run("list is implicit all", func(t *testing.T) {
		r := decode(t, `[{type: coins_at_least, value: 100}, {type: level_at_least, value: 2}]`)
		assert.Equal(t, OpAll, r.Op)
		res := Evaluate(Facts{Level: 2, Coins: 99}, r)
		assert.Equal(t, "not_enough_coins", res.Failure.Reason)
	})

	t.Run("empty mapping passes", func(t *testing.T) {
		assert.True(t, Evaluate(Facts{}, decode(t, `{}`)).Passed)
	})

	t.Run("bad value", func(t *testing.T) {
		r := &Rule{}
		assert.Error(t, yaml.Unmarshal([]byte(`{type: level_at_least, value: lots}`), r))
	})
}

func TestDecodeInsideStruct(t *testing.T) {
	var def struct {
		Key   string `yaml:"key"`
		Rules *Rule  `yaml:"unlock_rules"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("key: stone\n"), &def))
	assert.Nil(t, def.Rules)
	assert.True(t, Evaluate(Facts{}, def.Rules).Passed)
}
