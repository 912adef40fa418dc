package repository

import (
	"context"
	"fmt"

	"greekmatch-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository removes everything owned by a user in one transaction
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// Purge deletes the user document, swipes in both directions, the user's
// matches with their messages, and the credential. It returns the deleted
// matches so callers can notify the counterparts.
func (r *AccountRepository) Purge(ctx context.Context, userID string) ([]*models.Match, error) {
	var deleted []*models.Match

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM swipes WHERE actor_id = $1 OR target_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to delete swipes: %w", err)
		}

		query := `
			DELETE FROM matches
			WHERE user_a_id = $1 OR user_b_id = $1
			RETURNING id::text, user_a_id, user_b_id, created_at
		`
		rows, err := tx.Query(ctx, query, userID)
		if err != nil {
			return fmt.Errorf("failed to delete matches: %w", err)
		}
		// messages go with their match through ON DELETE CASCADE
		deleted, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Match, error) {
			return scanMatch(row)
		})
		if err != nil {
			return fmt.Errorf("failed to scan deleted matches: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM credentials WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to delete credential: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}
