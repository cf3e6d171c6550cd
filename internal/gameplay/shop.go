package gameplay

import (
	"context"
	"math"
	"sort"
	"time"

	"lodyland/internal/collect"
	"lodyland/internal/content"
	"lodyland/internal/database"
	"lodyland/internal/economy"
	"lodyland/internal/game"
)

// stockEpsilon absorbs float noise when comparing stock to a requested amount
const stockEpsilon = 1e-9

// SellResult is the outcome of selling stock
type SellResult struct {
	Resource string       `json:"resource"`
	Quantity float64      `json:"quantity"`
	Earned   int64        `json:"earned"`
	Stock    float64      `json:"stock"`
	Player   *game.Player `json:"player"`
}

// Sell converts whole units of stock into coins at the resource's base price
func (s *Service) Sell(ctx context.Context, playerID int64, resource string, qty float64) (*SellResult, error) {
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty <= 0 || qty != math.Trunc(qty) {
		return nil, game.Reject(game.ReasonInvalidQuantity, "quantity", qty)
	}
	reg := s.content.Current()
	now := s.now()

	var out *SellResult
	err := s.txn(ctx, func(r *database.Repository, emit func(game.Event)) error {
		state, err := loadState(ctx, r, playerID)
		if err != nil {
			return err
		}
		res, ok := reg.Resource(resource)
		if !ok || !res.Enabled {
			return game.Reject(game.ReasonResourceUnknown, "resource", resource)
		}
		have := state.Stock(res.Key)
		if have+stockEpsilon < qty {
			return game.Reject(game.ReasonNotEnoughStock, "resource", res.Key, "have", have, "need", qty)
		}

		state.RemoveStock(res.Key, math.Min(qty, have))
		earned := int64(qty) * res.BaseSellPrice
		state.Player.Coins += earned

		if err := s.saveState(ctx, r, state, now); err != nil {
			return err
		}
		out = &SellResult{
			Resource: res.Key,
			Quantity: qty,
			Earned:   earned,
			Stock:    economy.RoundStock(state.Stock(res.Key)),
			Player:   state.Player,
		}
		emit(game.NewEvent(game.EventSell, playerID, now, map[string]any{
			"resource": res.Key,
			"quantity": qty,
			"earned":   earned,
		}))
		return nil
	})
	return out, err
}

// checkPurchase returns the first reason the card cannot be bought, or nil
func (s *Service) checkPurchase(card *content.Card, state *game.PlayerState, sold int, now time.Time) error {
	if !card.Shop.Enabled {
		return game.Reject(game.ReasonNotForSale, "card", card.Key)
	}
	if card.Shop.Expired(now) {
		return game.Reject(game.ReasonPurchaseExpired, "card", card.Key, "available_until", card.Shop.AvailableUntil)
	}
	if card.MaxOwned > 0 && state.CardQty(card.Key) >= card.MaxOwned {
		return game.Reject(game.ReasonMaxOwned, "card", card.Key, "max", card.MaxOwned)
	}
	if card.Shop.Quantity > 0 && sold >= card.Shop.Quantity {
		return game.Reject(game.ReasonSoldOut, "card", card.Key, "quantity", card.Shop.Quantity)
	}
	if err := s.checkRules(state.Player, card.BuyRules, "card "+card.Key); err != nil {
		return err
	}

	price := card.Price()
	p := state.Player
	if p.Coins < price.Coins {
		return game.Reject(game.ReasonNotEnoughCoins, "need", price.Coins, "have", p.Coins)
	}
	if p.Diamonds < price.Diamonds {
		return game.Reject(game.ReasonNotEnoughDiamonds, "need", price.Diamonds, "have", p.Diamonds)
	}
	for _, res := range sortedResources(price.Resources) {
		need := price.Resources[res]
		if have := state.Stock(res); have+stockEpsilon < need {
			return game.Reject(game.ReasonNotEnoughResource, "resource", res, "need", need, "have", have)
		}
	}
	return nil
}

// BuyResult is a completed card purchase
type BuyResult struct {
	Card   string        `json:"card"`
	Owned  int           `json:"owned"`
	Price  content.Price `json:"price"`
	Player *game.Player  `json:"player"`
}

// BuyCard purchases one copy of a shop card
func (s *Service) BuyCard(ctx context.Context, playerID int64, cardKey string) (*BuyResult, error) {
	reg := s.content.Current()
	now := s.now()

	var out *BuyResult
	err := s.txn(ctx, func(r *database.Repository, emit func(game.Event)) error {
		state, err := loadState(ctx, r, playerID)
		if err != nil {
			return err
		}
		card, ok := reg.Card(cardKey)
		if !ok {
			return game.Reject(game.ReasonCardUnknown, "card", cardKey)
		}
		sold, err := r.Sales.Sold(ctx, card.Key)
		if err != nil {
			return err
		}
		if err := s.checkPurchase(card, state, sold, now); err != nil {
			return err
		}

		price := card.Price()
		state.Player.SpendCoins(price.Coins)
		state.Player.SpendDiamonds(price.Diamonds)
		for _, res := range sortedResources(price.Resources) {
			state.RemoveStock(res, math.Min(price.Resources[res], state.Stock(res)))
		}
		owned := state.AddCard(card.Key, 1)

		if err := r.Sales.Increment(ctx, card.Key); err != nil {
			return err
		}
		if err := s.saveState(ctx, r, state, now); err != nil {
			return err
		}

		out = &BuyResult{Card: card.Key, Owned: owned, Price: price, Player: state.Player}
		emit(game.NewEvent(game.EventCardBuy, playerID, now, map[string]any{
			"card":  card.Key,
			"owned": owned,
			"price": price,
		}))
		return nil
	})
	return out, err
}

// ShopEntry is one card offered in the shop
type ShopEntry struct {
	Card      *content.Card `json:"card"`
	Price     content.Price `json:"price"`
	Owned     int           `json:"owned"`
	Remaining *int          `json:"remaining,omitempty"`
	CanBuy    bool          `json:"can_buy"`
	Reason    string        `json:"reason,omitempty"`
}

// ShopCards lists shop-enabled cards with whether the player can buy them now
func (s *Service) ShopCards(ctx context.Context, playerID int64) ([]ShopEntry, error) {
	reg := s.content.Current()
	now := s.now()

	var out []ShopEntry
	err := s.txn(ctx, func(r *database.Repository, _ func(game.Event)) error {
		state, err := loadState(ctx, r, playerID)
		if err != nil {
			return err
		}
		sales, err := r.Sales.All(ctx)
		if err != nil {
			return err
		}
		for _, card := range reg.Cards() {
			if !card.Shop.Enabled {
				continue
			}
			entry := ShopEntry{
				Card:   card,
				Price:  card.Price(),
				Owned:  state.CardQty(card.Key),
				CanBuy: true,
			}
			if card.Shop.Quantity > 0 {
				left := card.Shop.Quantity - sales[card.Key]
				if left < 0 {
					left = 0
				}
				entry.Remaining = &left
			}
			if err := s.checkPurchase(card, state, sales[card.Key], now); err != nil {
				rej, ok := game.AsRejection(err)
				if !ok {
					return err
				}
				entry.CanBuy = false
				entry.Reason = rej.Reason
			}
			out = append(out, entry)
		}
		return nil
	})
	return out, err
}

// SlotPurchase is a bought land slot
type SlotPurchase struct {
	Land       string       `json:"land"`
	ExtraSlots int          `json:"extra_slots"`
	TotalSlots int          `json:"total_slots"`
	Cost       int64        `json:"cost"`
	NextCost   int64        `json:"next_cost"`
	Player     *game.Player `json:"player"`
}

// BuyLandSlot buys one more slot on a land the player has access to
func (s *Service) BuyLandSlot(ctx context.Context, playerID int64, landKey string) (*SlotPurchase, error) {
	reg := s.content.Current()
	now := s.now()

	var out *SlotPurchase
	err := s.txn(ctx, func(r *database.Repository, emit func(game.Event)) error {
		state, err := loadState(ctx, r, playerID)
		if err != nil {
			return err
		}
		land, ok := reg.Land(landKey)
		if !ok {
			return game.Reject(game.ReasonLandUnknown, "land", landKey)
		}
		if !collect.HasLandAccess(reg, land, state) {
			return game.Reject(game.ReasonLandLocked, "land", land.Key)
		}
		extra, err := r.Lands.ExtraSlots(ctx, playerID, land.Key)
		if err != nil {
			return err
		}
		cost := land.SlotCost(extra)
		if !state.Player.SpendDiamonds(cost) {
			return game.Reject(game.ReasonNotEnoughDiamonds, "need", cost, "have", state.Player.Diamonds)
		}
		if err := r.Lands.SetExtraSlots(ctx, playerID, land.Key, extra+1); err != nil {
			return err
		}
		if err := s.saveState(ctx, r, state, now); err != nil {
			return err
		}

		out = &SlotPurchase{
			Land:       land.Key,
			ExtraSlots: extra + 1,
			TotalSlots: land.Slots + extra + 1,
			Cost:       cost,
			NextCost:   land.SlotCost(extra + 1),
			Player:     state.Player,
		}
		emit(game.NewEvent(game.EventSlotBuy, playerID, now, map[string]any{
			"land":        land.Key,
			"extra_slots": extra + 1,
			"cost":        cost,
		}))
		return nil
	})
	return out, err
}

func sortedResources(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
