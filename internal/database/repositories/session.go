package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Session is a login token bound to a player
type Session struct {
	Token     string
	PlayerID  int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionRepository stores login sessions
type SessionRepository struct {
	db Querier
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db Querier) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a session
func (r *SessionRepository) Create(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, player_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.Token, s.PlayerID, s.CreatedAt.UTC(), s.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get returns an unexpired session. Expired or missing tokens yield ErrNotFound.
func (r *SessionRepository) Get(ctx context.Context, token string, now time.Time) (*Session, error) {
	var s Session
	err := r.db.QueryRowContext(ctx,
		`SELECT token, player_id, created_at, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&s.Token, &s.PlayerID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !now.Before(s.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &s, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired purges sessions that expired before now
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return res.RowsAffected()
}
