package repository

import (
	"context"
	"fmt"

	"greekmatch-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageChannel is the LISTEN/NOTIFY channel carrying match ids of new messages
const MessageChannel = "match_messages"

// MessageRepository handles database operations for chat messages
type MessageRepository struct {
	db     *pgxpool.Pool
	notify bool
}

// NewMessageRepository creates a new message repository. When notify is
// set, every insert also signals MessageChannel with the match id.
func NewMessageRepository(db *pgxpool.Pool, notify bool) *MessageRepository {
	return &MessageRepository{db: db, notify: notify}
}

// Create appends a message and fills in its id
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin message insert: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO messages (match_id, sender_id, text, sent_at)
		VALUES ($1::uuid, $2, $3, $4)
		RETURNING id::text
	`
	if err := tx.QueryRow(ctx, query, msg.MatchID, msg.SenderID, msg.Text, msg.SentAt).Scan(&msg.ID); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	if r.notify {
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, MessageChannel, msg.MatchID); err != nil {
			return fmt.Errorf("failed to notify message: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

// ListByMatch returns the messages of a match in send order
func (r *MessageRepository) ListByMatch(ctx context.Context, matchID string) ([]*models.Message, error) {
	query := `
		SELECT id::text, match_id::text, sender_id, text, sent_at
		FROM messages
		WHERE match_id::text = $1
		ORDER BY sent_at, seq
	`
	rows, err := r.db.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Message, error) {
		var m models.Message
		err := row.Scan(&m.ID, &m.MatchID, &m.SenderID, &m.Text, &m.SentAt)
		return &m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}
	return msgs, nil
}

// DeleteByMatch removes every message of a match
func (r *MessageRepository) DeleteByMatch(ctx context.Context, matchID string) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM messages WHERE match_id::text = $1`, matchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	return result.RowsAffected(), nil
}
