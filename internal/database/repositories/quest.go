package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"lodyland/internal/quest"
)

// QuestRepository stores assigned quests and objective progress
type QuestRepository struct {
	db Querier
}

// NewQuestRepository creates a new quest repository
func NewQuestRepository(db Querier) *QuestRepository {
	return &QuestRepository{db: db}
}

// Create inserts a quest with its objectives and assigns their IDs
func (r *QuestRepository) Create(ctx context.Context, q *quest.Quest) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO player_quests
			(player_id, template_key, label, status, reward_coins, reward_diamonds, started_at, expires_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.PlayerID, q.TemplateKey, q.Label, string(q.Status), q.RewardCoins, q.RewardDiamonds,
		q.StartedAt.UTC(), nullTime(q.ExpiresAt), nullTime(q.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to create quest %s: %w", q.TemplateKey, err)
	}
	if q.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read quest id: %w", err)
	}

	for _, o := range q.Objectives {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO quest_objectives (quest_id, idx, kind, resource_key, target_value, current_value)
			VALUES (?, ?, ?, ?, ?, ?)`,
			q.ID, o.Index, o.Type, o.Resource, o.Target, o.Current)
		if err != nil {
			return fmt.Errorf("failed to create objective %d of quest %d: %w", o.Index, q.ID, err)
		}
		if o.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read objective id: %w", err)
		}
	}
	return nil
}

// ListByPlayer returns quests with the given statuses, newest first.
// No statuses means all.
func (r *QuestRepository) ListByPlayer(ctx context.Context, playerID int64, statuses ...quest.Status) ([]*quest.Quest, error) {
	query := `
		SELECT id, player_id, template_key, label, status, reward_coins, reward_diamonds,
			started_at, expires_at, completed_at
		FROM player_quests WHERE player_id = ?`
	args := []any{playerID}
	if len(statuses) > 0 {
		query += ` AND status IN (?` + strings.Repeat(", ?", len(statuses)-1) + `)`
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	query += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quests: %w", err)
	}

	var quests []*quest.Quest
	byID := make(map[int64]*quest.Quest)
	for rows.Next() {
		var q quest.Quest
		var status string
		var expires, completed sql.NullTime
		err := rows.Scan(&q.ID, &q.PlayerID, &q.TemplateKey, &q.Label, &status,
			&q.RewardCoins, &q.RewardDiamonds, &q.StartedAt, &expires, &completed)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		q.Status = quest.Status(status)
		q.ExpiresAt = timePtr(expires)
		q.CompletedAt = timePtr(completed)
		quests = append(quests, &q)
		byID[q.ID] = &q
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read quests: %w", err)
	}
	rows.Close()

	if len(quests) == 0 {
		return nil, nil
	}
	if err := r.loadObjectives(ctx, playerID, byID); err != nil {
		return nil, err
	}
	return quests, nil
}

func (r *QuestRepository) loadObjectives(ctx context.Context, playerID int64, byID map[int64]*quest.Quest) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.quest_id, o.idx, o.kind, o.resource_key, o.target_value, o.current_value
		FROM quest_objectives o
		JOIN player_quests q ON q.id = o.quest_id
		WHERE q.player_id = ?
		ORDER BY o.quest_id, o.idx`, playerID)
	if err != nil {
		return fmt.Errorf("failed to query objectives: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o quest.Objective
		var questID int64
		if err := rows.Scan(&o.ID, &questID, &o.Index, &o.Type, &o.Resource, &o.Target, &o.Current); err != nil {
			return fmt.Errorf("failed to scan objective: %w", err)
		}
		if q, ok := byID[questID]; ok {
			q.Objectives = append(q.Objectives, &o)
		}
	}
	return rows.Err()
}

// Save persists a quest's status and objective progress
func (r *QuestRepository) Save(ctx context.Context, q *quest.Quest) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE player_quests SET status = ?, completed_at = ? WHERE id = ?`,
		string(q.Status), nullTime(q.CompletedAt), q.ID)
	if err != nil {
		return fmt.Errorf("failed to save quest %d: %w", q.ID, err)
	}
	for _, o := range q.Objectives {
		_, err := r.db.ExecContext(ctx,
			`UPDATE quest_objectives SET current_value = ? WHERE id = ?`, o.Current, o.ID)
		if err != nil {
			return fmt.Errorf("failed to save objective %d: %w", o.ID, err)
		}
	}
	return nil
}
