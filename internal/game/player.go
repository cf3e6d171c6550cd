package game

import (
	"time"

	"lodyland/internal/rules"
)

// DateLayout is how calendar dates (daily claims) are stored and compared
const DateLayout = "2006-01-02"

// Player represents a player's progression and wallet
type Player struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Level         int       `json:"level"`
	XP            float64   `json:"xp"`
	Coins         int64     `json:"coins"`
	Diamonds      int64     `json:"diamonds"`
	LastDailyDate string    `json:"last_daily_date,omitempty"`
	DailyStreak   int       `json:"daily_streak"`
	BestStreak    int       `json:"best_streak"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewPlayer creates a level 0 player with an empty wallet
func NewPlayer(name string) *Player {
	return &Player{Name: name}
}

// Facts returns the snapshot used by unlock and buy rules
func (p *Player) Facts() rules.Facts {
	return rules.Facts{Level: p.Level, Coins: p.Coins}
}

// HasEnoughCoins checks if player has enough coins
func (p *Player) HasEnoughCoins(amount int64) bool {
	return p.Coins >= amount
}

// SpendCoins deducts coins if possible
func (p *Player) SpendCoins(amount int64) bool {
	if !p.HasEnoughCoins(amount) {
		return false
	}
	p.Coins -= amount
	return true
}

// SpendDiamonds deducts diamonds if possible
func (p *Player) SpendDiamonds(amount int64) bool {
	if p.Diamonds < amount {
		return false
	}
	p.Diamonds -= amount
	return true
}

// ClaimedOn reports whether the daily reward was claimed on day
func (p *Player) ClaimedOn(day time.Time) bool {
	return p.LastDailyDate == day.UTC().Format(DateLayout)
}

// RecordDailyClaim updates the streak for a claim made on day (UTC).
// A claim the day after the previous one extends the streak, anything else restarts it.
func (p *Player) RecordDailyClaim(day time.Time) {
	today := day.UTC().Format(DateLayout)
	yesterday := day.UTC().AddDate(0, 0, -1).Format(DateLayout)

	if p.LastDailyDate == yesterday {
		p.DailyStreak++
	} else {
		p.DailyStreak = 1
	}
	if p.DailyStreak > p.BestStreak {
		p.BestStreak = p.DailyStreak
	}
	p.LastDailyDate = today
}

// NextDailyReset is the next UTC midnight after now
func NextDailyReset(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
