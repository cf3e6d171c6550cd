package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lodyland/internal/game"
)

// LandRepository stores purchased land slots and slot cooldowns
type LandRepository struct {
	db Querier
}

// NewLandRepository creates a new land repository
func NewLandRepository(db Querier) *LandRepository {
	return &LandRepository{db: db}
}

// ExtraSlots returns how many slots the player bought on land
func (r *LandRepository) ExtraSlots(ctx context.Context, playerID int64, land string) (int, error) {
	var extra int
	err := r.db.QueryRowContext(ctx,
		`SELECT extra_slots FROM land_slots WHERE player_id = ? AND land_key = ?`,
		playerID, land).Scan(&extra)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get extra slots for %s: %w", land, err)
	}
	return extra, nil
}

// AllExtraSlots returns extra slot counts keyed by land
func (r *LandRepository) AllExtraSlots(ctx context.Context, playerID int64) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT land_key, extra_slots FROM land_slots WHERE player_id = ?`, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query land slots: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var land string
		var extra int
		if err := rows.Scan(&land, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan land slots: %w", err)
		}
		out[land] = extra
	}
	return out, rows.Err()
}

// SetExtraSlots stores the purchased slot count
func (r *LandRepository) SetExtraSlots(ctx context.Context, playerID int64, land string, extra int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO land_slots (player_id, land_key, extra_slots) VALUES (?, ?, ?)
		ON CONFLICT(player_id, land_key) DO UPDATE SET extra_slots = excluded.extra_slots`,
		playerID, land, extra)
	if err != nil {
		return fmt.Errorf("failed to save extra slots for %s: %w", land, err)
	}
	return nil
}

// Slot returns the cooldown state of one slot. Slots never collected are ready.
func (r *LandRepository) Slot(ctx context.Context, playerID int64, land string, slot int) (*game.LandSlot, error) {
	s := &game.LandSlot{PlayerID: playerID, Land: land, Slot: slot}
	var until sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT cooldown_until FROM land_slot_cooldowns WHERE player_id = ? AND land_key = ? AND slot = ?`,
		playerID, land, slot).Scan(&until)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get slot %s/%d: %w", land, slot, err)
	}
	s.CooldownUntil = timePtr(until)
	return s, nil
}

// SaveSlot persists a slot cooldown
func (r *LandRepository) SaveSlot(ctx context.Context, s *game.LandSlot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO land_slot_cooldowns (player_id, land_key, slot, cooldown_until) VALUES (?, ?, ?, ?)
		ON CONFLICT(player_id, land_key, slot) DO UPDATE SET cooldown_until = excluded.cooldown_until`,
		s.PlayerID, s.Land, s.Slot, nullTime(s.CooldownUntil))
	if err != nil {
		return fmt.Errorf("failed to save slot %s/%d: %w", s.Land, s.Slot, err)
	}
	return nil
}
