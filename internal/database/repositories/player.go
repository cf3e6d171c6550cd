package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lodyland/internal/game"
	"lodyland/pkg/logger"
)

// PlayerRepository handles database operations for players
type PlayerRepository struct {
	db     Querier
	logger *logger.ColoredLogger
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db Querier) *PlayerRepository {
	return &PlayerRepository{
		db:     db,
		logger: logger.DatabaseLogger,
	}
}

const playerColumns = `id, name, level, xp, coins, diamonds, last_daily_date,
	daily_streak, best_streak, created_at, updated_at`

func scanPlayer(row interface{ Scan(...any) error }) (*game.Player, error) {
	var p game.Player
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Level,
		&p.XP,
		&p.Coins,
		&p.Diamonds,
		&p.LastDailyDate,
		&p.DailyStreak,
		&p.BestStreak,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new player. Returns ErrDuplicate when the name is taken.
func (r *PlayerRepository) Create(ctx context.Context, name string, now time.Time) (*game.Player, error) {
	query := `
		INSERT INTO players (name, created_at, updated_at)
		VALUES (?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query, name, now.UTC(), now.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create player %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read player id: %w", err)
	}

	r.logger.Debug("Created player: %s (ID: %d)", name, id)
	return r.GetByID(ctx, id)
}

// GetByID retrieves a player by ID
func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*game.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ?`

	p, err := scanPlayer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	return p, nil
}

// GetByName retrieves a player by name
func (r *PlayerRepository) GetByName(ctx context.Context, name string) (*game.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE name = ?`

	p, err := scanPlayer(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player %s: %w", name, err)
	}
	return p, nil
}

// Save writes progression, wallet and streak fields back
func (r *PlayerRepository) Save(ctx context.Context, p *game.Player, now time.Time) error {
	query := `
		UPDATE players
		SET level = ?,
			xp = ?,
			coins = ?,
			diamonds = ?,
			last_daily_date = ?,
			daily_streak = ?,
			best_streak = ?,
			updated_at = ?
		WHERE id = ?
	`

	res, err := r.db.ExecContext(ctx, query,
		p.Level, p.XP, p.Coins, p.Diamonds, p.LastDailyDate,
		p.DailyStreak, p.BestStreak, now.UTC(), p.ID)
	if err != nil {
		return fmt.Errorf("failed to save player %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	p.UpdatedAt = now.UTC()
	return nil
}

// Count returns the total number of players
func (r *PlayerRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM players").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get player count: %w", err)
	}
	return count, nil
}
