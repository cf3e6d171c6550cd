package quest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lodyland/internal/content"
	"lodyland/internal/game"
)

var now = time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)

func branchTemplate() *content.QuestTemplate {
	return &content.QuestTemplate{
		Key:            "daily_branches",
		Label:          "Gather branches",
		Daily:          true,
		DurationHours:  24,
		RewardCoins:    30,
		RewardDiamonds: 1,
		Objectives: []content.Objective{
			{Type: content.ObjectiveCollectResource, Resource: "branch", Target: 3},
		},
	}
}

func TestProgressClampsAndPaysOnce(t *testing.T) {
	tr := NewTracker()
	q := New(branchTemplate(), 1, now)
	player := &game.Player{ID: 1}
	quests := []*Quest{q}

	changed := tr.OnResourceCollected(quests, player, "branch", 2, now)
	require.Len(t, changed, 1)
	assert.Equal(t, StatusActive, q.Status)
	assert.Equal(t, 2.0, q.Objectives[0].Current)

	tr.OnResourceCollected(quests, player, "branch", 5, now)
	assert.Equal(t, 3.0, q.Objectives[0].Current)
	assert.Equal(t, StatusCompleted, q.Status)
	assert.Equal(t, int64(30), player.Coins)
	assert.Equal(t, int64(1), player.Diamonds)

	assert.Empty(t, tr.OnResourceCollected(quests, player, "branch", 5, now))
	assert.Equal(t, int64(30), player.Coins)
}

func TestOtherResourcesIgnored(t *testing.T) {
	tr := NewTracker()
	q := New(branchTemplate(), 1, now)

	assert.Empty(t, tr.OnResourceCollected([]*Quest{q}, &game.Player{}, "wood", 10, now))
	assert.Equal(t, 0.0, q.Objectives[0].Current)
}

func TestExpiredQuestStopsProgress(t *testing.T) {
	tr := NewTracker()
	q := New(branchTemplate(), 1, now)

	changed := tr.OnResourceCollected([]*Quest{q}, &game.Player{}, "branch", 1, now.Add(25*time.Hour))
	require.Len(t, changed, 1)
	assert.Equal(t, StatusExpired, q.Status)
	assert.Equal(t, 0.0, q.Objectives[0].Current)
}

func TestPickDailySkipsActive(t *testing.T) {
	reg, err := content.NewRegistry(content.Set{
		Resources: []*content.Resource{{Key: "branch", BaseCooldownSeconds: 5}},
		Quests: []*content.QuestTemplate{
			branchTemplate(),
			{Key: "weekly", Objectives: []content.Objective{{Type: content.ObjectiveCollectResource, Resource: "branch", Target: 1}}},
		},
	})
	require.NoError(t, err)

	tpl := PickDaily(reg, nil, now)
	require.NotNil(t, tpl)
	assert.Equal(t, "daily_branches", tpl.Key)

	active := []*Quest{New(tpl, 1, now)}
	assert.Nil(t, PickDaily(reg, active, now))
}
