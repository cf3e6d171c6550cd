package repositories

import (
	"context"
	"fmt"

	"lodyland/internal/game"
)

// InventoryRepository stores resource stock and owned cards
type InventoryRepository struct {
	db Querier
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db Querier) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// LoadState reads a player's stock and cards into a PlayerState
func (r *InventoryRepository) LoadState(ctx context.Context, p *game.Player) (*game.PlayerState, error) {
	stock, err := r.Stock(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	cards, err := r.Cards(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return game.NewPlayerState(p, stock, cards), nil
}

// Stock returns a player's resource quantities
func (r *InventoryRepository) Stock(ctx context.Context, playerID int64) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT resource_key, qty FROM resource_stocks WHERE player_id = ?`, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock: %w", err)
	}
	defer rows.Close()

	stock := make(map[string]float64)
	for rows.Next() {
		var key string
		var qty float64
		if err := rows.Scan(&key, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stock[key] = qty
	}
	return stock, rows.Err()
}

// Cards returns a player's card quantities
func (r *InventoryRepository) Cards(ctx context.Context, playerID int64) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT card_key, qty FROM player_cards WHERE player_id = ?`, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	cards := make(map[string]int)
	for rows.Next() {
		var key string
		var qty int
		if err := rows.Scan(&key, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards[key] = qty
	}
	return cards, rows.Err()
}

// SaveState upserts the stock and card rows the state marked dirty
func (r *InventoryRepository) SaveState(ctx context.Context, s *game.PlayerState) error {
	for key, qty := range s.DirtyStock() {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO resource_stocks (player_id, resource_key, qty) VALUES (?, ?, ?)
			ON CONFLICT(player_id, resource_key) DO UPDATE SET qty = excluded.qty`,
			s.Player.ID, key, qty)
		if err != nil {
			return fmt.Errorf("failed to save stock %s: %w", key, err)
		}
	}
	for key, qty := range s.DirtyCards() {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO player_cards (player_id, card_key, qty) VALUES (?, ?, ?)
			ON CONFLICT(player_id, card_key) DO UPDATE SET qty = excluded.qty`,
			s.Player.ID, key, qty)
		if err != nil {
			return fmt.Errorf("failed to save card %s: %w", key, err)
		}
	}
	return nil
}
