package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lodyland/internal/game"
)

// TileRepository stores per-player resource tiles
type TileRepository struct {
	db Querier
}

// NewTileRepository creates a new tile repository
func NewTileRepository(db Querier) *TileRepository {
	return &TileRepository{db: db}
}

func scanTile(row interface{ Scan(...any) error }) (*game.Tile, error) {
	var t game.Tile
	var until sql.NullTime
	if err := row.Scan(&t.ID, &t.PlayerID, &t.Resource, &t.Locked, &until); err != nil {
		return nil, err
	}
	t.CooldownUntil = timePtr(until)
	return &t, nil
}

// Create inserts a tile and sets its ID
func (r *TileRepository) Create(ctx context.Context, t *game.Tile) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tiles (player_id, resource_key, locked, cooldown_until) VALUES (?, ?, ?, ?)`,
		t.PlayerID, t.Resource, t.Locked, nullTime(t.CooldownUntil))
	if err != nil {
		return fmt.Errorf("failed to create tile: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read tile id: %w", err)
	}
	t.ID = id
	return nil
}

// Get returns a tile owned by playerID
func (r *TileRepository) Get(ctx context.Context, playerID, tileID int64) (*game.Tile, error) {
	t, err := scanTile(r.db.QueryRowContext(ctx,
		`SELECT id, player_id, resource_key, locked, cooldown_until
		 FROM tiles WHERE id = ? AND player_id = ?`, tileID, playerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tile %d: %w", tileID, err)
	}
	return t, nil
}

// ListByPlayer returns a player's tiles in creation order
func (r *TileRepository) ListByPlayer(ctx context.Context, playerID int64) ([]*game.Tile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, player_id, resource_key, locked, cooldown_until
		 FROM tiles WHERE player_id = ? ORDER BY id`, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tiles: %w", err)
	}
	defer rows.Close()

	var tiles []*game.Tile
	for rows.Next() {
		t, err := scanTile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tile: %w", err)
		}
		tiles = append(tiles, t)
	}
	return tiles, rows.Err()
}

// SaveCooldown persists the tile's cooldown
func (r *TileRepository) SaveCooldown(ctx context.Context, t *game.Tile) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tiles SET cooldown_until = ?, locked = ? WHERE id = ?`,
		nullTime(t.CooldownUntil), t.Locked, t.ID)
	if err != nil {
		return fmt.Errorf("failed to save tile %d: %w", t.ID, err)
	}
	return nil
}
