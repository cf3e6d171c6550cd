package game

import (
	"sort"

	"lodyland/internal/economy"
)

// PlayerState is a player together with their inventory, loaded for the
// duration of one operation. Mutations are tracked so only touched rows
// are written back.
type PlayerState struct {
	Player *Player

	stock      map[string]float64
	cards      map[string]int
	dirtyStock map[string]struct{}
	dirtyCards map[string]struct{}
}

// NewPlayerState wraps a player and their stock/card rows
func NewPlayerState(p *Player, stock map[string]float64, cards map[string]int) *PlayerState {
	if stock == nil {
		stock = make(map[string]float64)
	}
	if cards == nil {
		cards = make(map[string]int)
	}
	return &PlayerState{
		Player:     p,
		stock:      stock,
		cards:      cards,
		dirtyStock: make(map[string]struct{}),
		dirtyCards: make(map[string]struct{}),
	}
}

// Stock returns the quantity held of a resource
func (s *PlayerState) Stock(key string) float64 {
	return s.stock[key]
}

// AddStock adds qty of a resource, rounding the stored value, and returns the new total
func (s *PlayerState) AddStock(key string, qty float64) float64 {
	v := economy.RoundStock(s.stock[key] + qty)
	s.stock[key] = v
	s.dirtyStock[key] = struct{}{}
	return v
}

// RemoveStock takes qty of a resource if enough is held
func (s *PlayerState) RemoveStock(key string, qty float64) bool {
	if s.stock[key]+1e-9 < qty {
		return false
	}
	v := economy.RoundStock(s.stock[key] - qty)
	if v < 0 {
		v = 0
	}
	s.stock[key] = v
	s.dirtyStock[key] = struct{}{}
	return true
}

// CardQty returns how many copies of a card the player owns
func (s *PlayerState) CardQty(key string) int {
	return s.cards[key]
}

// AddCard grants qty copies of a card
func (s *PlayerState) AddCard(key string, qty int) int {
	v := s.cards[key] + qty
	if v < 0 {
		v = 0
	}
	s.cards[key] = v
	s.dirtyCards[key] = struct{}{}
	return v
}

// OwnedCards lists cards with qty > 0, sorted by key
func (s *PlayerState) OwnedCards() []economy.OwnedCard {
	out := make([]economy.OwnedCard, 0, len(s.cards))
	for k, q := range s.cards {
		if q > 0 {
			out = append(out, economy.OwnedCard{Key: k, Qty: q})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// StockSnapshot copies all stock rows
func (s *PlayerState) StockSnapshot() map[string]float64 {
	out := make(map[string]float64, len(s.stock))
	for k, v := range s.stock {
		out[k] = v
	}
	return out
}

// DirtyStock returns the stock rows changed since load
func (s *PlayerState) DirtyStock() map[string]float64 {
	out := make(map[string]float64, len(s.dirtyStock))
	for k := range s.dirtyStock {
		out[k] = s.stock[k]
	}
	return out
}

// DirtyCards returns the card rows changed since load
func (s *PlayerState) DirtyCards() map[string]int {
	out := make(map[string]int, len(s.dirtyCards))
	for k := range s.dirtyCards {
		out[k] = s.cards[k]
	}
	return out
}

// Clone deep-copies the state, dirty tracking included
func (s *PlayerState) Clone() *PlayerState {
	p := *s.Player
	c := NewPlayerState(&p, s.StockSnapshot(), nil)
	for k, v := range s.cards {
		c.cards[k] = v
	}
	for k := range s.dirtyStock {
		c.dirtyStock[k] = struct{}{}
	}
	for k := range s.dirtyCards {
		c.dirtyCards[k] = struct{}{}
	}
	return c
}
