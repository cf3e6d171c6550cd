package game

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"lodyland/internal/rules"
)

// TestDailyStreak tests streak extension and reset
func TestDailyStreak(t *testing.T) {
	p := NewPlayer("ana")
	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	p.RecordDailyClaim(day1)
	if p.DailyStreak != 1 || p.BestStreak != 1 {
		t.Fatalf("Expected streak 1/1, got %d/%d", p.DailyStreak, p.BestStreak)
	}

	p.RecordDailyClaim(day1.AddDate(0, 0, 1))
	p.RecordDailyClaim(day1.AddDate(0, 0, 2))
	if p.DailyStreak != 3 {
		t.Errorf("Expected streak 3, got %d", p.DailyStreak)
	}

	// skipping a day restarts the streak but keeps the best
	p.RecordDailyClaim(day1.AddDate(0, 0, 4))
	if p.DailyStreak != 1 {
		t.Errorf("Expected streak reset to 1, got %d", p.DailyStreak)
	}
	if p.BestStreak != 3 {
		t.Errorf("Expected best streak 3, got %d", p.BestStreak)
	}
	if !p.ClaimedOn(day1.AddDate(0, 0, 4)) {
		t.Error("Claim day should be recorded")
	}
}

// TestNextDailyReset tests the reset is the next UTC midnight
func TestNextDailyReset(t *testing.T) {
	now := time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC)
	want := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := NextDailyReset(now); !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

// TestStateTracksChanges tests that only touched rows are reported dirty
func TestStateTracksChanges(t *testing.T) {
	s := NewPlayerState(NewPlayer("bo"), map[string]float64{"stone": 3}, map[string]int{"land_forest": 1})

	s.AddStock("branch", 0.125)
	s.AddCard("boost_branch", 2)

	if got := s.Stock("branch"); got != 0.12 {
		t.Errorf("Expected stock rounded half-even to 0.12, got %v", got)
	}
	if len(s.DirtyStock()) != 1 {
		t.Errorf("Expected one dirty stock row, got %v", s.DirtyStock())
	}
	if s.DirtyCards()["boost_branch"] != 2 {
		t.Errorf("Expected dirty card qty 2, got %v", s.DirtyCards())
	}

	owned := s.OwnedCards()
	if len(owned) != 2 || owned[0].Key != "boost_branch" || owned[1].Key != "land_forest" {
		t.Errorf("Unexpected owned cards %v", owned)
	}

	if s.RemoveStock("stone", 4) {
		t.Error("Should not remove more stock than held")
	}
	if !s.RemoveStock("stone", 3) || s.Stock("stone") != 0 {
		t.Errorf("Expected stone to be emptied, got %v", s.Stock("stone"))
	}
}

// TestCloneIsIndependent tests that clones do not share maps
func TestCloneIsIndependent(t *testing.T) {
	s := NewPlayerState(NewPlayer("cy"), nil, nil)
	s.AddStock("wood", 1)

	c := s.Clone()
	c.AddStock("wood", 5)
	c.Player.Coins = 99

	if s.Stock("wood") != 1 || s.Player.Coins != 0 {
		t.Error("Clone mutated the original state")
	}
}

// TestTileReady tests tile state transitions
func TestTileReady(t *testing.T) {
	now := time.Now()
	later := now.Add(10 * time.Second)

	tile := &Tile{Resource: "branch"}
	if !tile.Ready(now) {
		t.Error("Fresh unlocked tile should be ready")
	}

	tile.CooldownUntil = &later
	if tile.Ready(now) {
		t.Error("Tile should be cooling down")
	}
	if !tile.Ready(later) {
		t.Error("Tile should be ready once cooldown is reached")
	}

	tile.Locked = true
	if tile.Ready(later.Add(time.Hour)) {
		t.Error("Locked tile is never ready")
	}
}

// TestRejection tests reason extraction through wrapping
func TestRejection(t *testing.T) {
	err := fmt.Errorf("collect: %w", Reject(ReasonOnCooldown, "until", "soon", 42))

	if !IsReason(err, ReasonOnCooldown) {
		t.Fatalf("Expected on_cooldown, got %v", err)
	}
	r, _ := AsRejection(err)
	if r.Details["until"] != "soon" || len(r.Details) != 1 {
		t.Errorf("Unexpected details %v", r.Details)
	}
	if IsReason(errors.New("boom"), ReasonOnCooldown) {
		t.Error("Plain errors are not rejections")
	}

	rr := RejectRule(rules.Failure{Reason: "level_too_low", Details: map[string]any{"required": 5}})
	if rr.Error() != "level_too_low (required=5)" {
		t.Errorf("Unexpected message %q", rr.Error())
	}
	if RejectRule(rules.Failure{}).Reason != ReasonUnlockConditions {
		t.Error("Empty failure should map to unlock_conditions_not_met")
	}
}
