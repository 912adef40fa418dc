package repository

import (
	"context"
	"errors"
	"fmt"

	"greekmatch-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SwipeRepository handles database operations for swipes
type SwipeRepository struct {
	db *pgxpool.Pool
}

// NewSwipeRepository creates a new swipe repository
func NewSwipeRepository(db *pgxpool.Pool) *SwipeRepository {
	return &SwipeRepository{db: db}
}

// Upsert records the decision for (actor, target), replacing any earlier one.
// CreatedAt is set from the server clock.
func (r *SwipeRepository) Upsert(ctx context.Context, swipe *models.Swipe) error {
	query := `
		INSERT INTO swipes (actor_id, target_id, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (actor_id, target_id)
		DO UPDATE SET action = EXCLUDED.action, created_at = EXCLUDED.created_at
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, swipe.ActorID, swipe.TargetID, string(swipe.Action)).
		Scan(&swipe.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record swipe: %w", err)
	}
	return nil
}

// Get retrieves the decision of actor about target
func (r *SwipeRepository) Get(ctx context.Context, actorID, targetID string) (*models.Swipe, error) {
	query := `
		SELECT actor_id, target_id, action, created_at
		FROM swipes
		WHERE actor_id = $1 AND target_id = $2
	`
	var (
		swipe  models.Swipe
		action string
	)
	err := r.db.QueryRow(ctx, query, actorID, targetID).Scan(
		&swipe.ActorID, &swipe.TargetID, &action, &swipe.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("swipe %s->%s: %w", actorID, targetID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get swipe: %w", err)
	}
	swipe.Action = models.SwipeAction(action)
	return &swipe, nil
}

// TargetsOf returns the ids the actor has decided on
func (r *SwipeRepository) TargetsOf(ctx context.Context, actorID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT target_id FROM swipes WHERE actor_id = $1`, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list swipes: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan swipes: %w", err)
	}
	return ids, nil
}

// DeleteByActor removes every decision made by the user
func (r *SwipeRepository) DeleteByActor(ctx context.Context, actorID string) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM swipes WHERE actor_id = $1`, actorID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete swipes by actor: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteByTarget removes every decision made about the user
func (r *SwipeRepository) DeleteByTarget(ctx context.Context, targetID string) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM swipes WHERE target_id = $1`, targetID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete swipes by target: %w", err)
	}
	return result.RowsAffected(), nil
}
