package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CardSalesRepository counts shop purchases across all players
type CardSalesRepository struct {
	db Querier
}

// NewCardSalesRepository creates a new card sales repository
func NewCardSalesRepository(db Querier) *CardSalesRepository {
	return &CardSalesRepository{db: db}
}

// Sold returns how many copies of a card were sold
func (r *CardSalesRepository) Sold(ctx context.Context, cardKey string) (int, error) {
	var sold int
	err := r.db.QueryRowContext(ctx, `SELECT sold FROM card_sales WHERE card_key = ?`, cardKey).Scan(&sold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get sales for %s: %w", cardKey, err)
	}
	return sold, nil
}

// All returns the sales counters of every card sold at least once
func (r *CardSalesRepository) All(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT card_key, sold FROM card_sales`)
	if err != nil {
		return nil, fmt.Errorf("failed to query card sales: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var sold int
		if err := rows.Scan(&key, &sold); err != nil {
			return nil, fmt.Errorf("failed to scan card sales: %w", err)
		}
		out[key] = sold
	}
	return out, rows.Err()
}

// Increment bumps the sales counter by one
func (r *CardSalesRepository) Increment(ctx context.Context, cardKey string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO card_sales (card_key, sold) VALUES (?, 1)
		ON CONFLICT(card_key) DO UPDATE SET sold = sold + 1`, cardKey)
	if err != nil {
		return fmt.Errorf("failed to record sale of %s: %w", cardKey, err)
	}
	return nil
}
