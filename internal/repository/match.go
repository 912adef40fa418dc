package repository

import (
	"context"
	"errors"
	"fmt"

	"greekmatch-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MatchRepository handles database operations for matches
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// CreateIfAbsent inserts the match unless the pair already has one.
// On return match carries the stored id and timestamp; created reports
// whether this call inserted it.
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, match *models.Match) (bool, error) {
	query := `
		INSERT INTO matches (user_a_id, user_b_id)
		VALUES ($1, $2)
		ON CONFLICT (user_a_id, user_b_id) DO NOTHING
		RETURNING id::text, created_at
	`
	a, b := match.UserIDs[0], match.UserIDs[1]
	err := r.db.QueryRow(ctx, query, a, b).Scan(&match.ID, &match.CreatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("failed to create match: %w", err)
	}

	existing, err := r.GetByPair(ctx, a, b)
	if err != nil {
		return false, err
	}
	*match = *existing
	return false, nil
}

// GetByID retrieves a match by ID
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	query := `
		SELECT id::text, user_a_id, user_b_id, created_at
		FROM matches
		WHERE id::text = $1
	`
	match, err := scanMatch(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// GetByPair retrieves the match of a canonical pair
func (r *MatchRepository) GetByPair(ctx context.Context, a, b string) (*models.Match, error) {
	query := `
		SELECT id::text, user_a_id, user_b_id, created_at
		FROM matches
		WHERE user_a_id = $1 AND user_b_id = $2
	`
	match, err := scanMatch(r.db.QueryRow(ctx, query, a, b))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("match %s/%s: %w", a, b, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get match by pair: %w", err)
	}
	return match, nil
}

// ListByUser returns the matches containing userID, oldest first
func (r *MatchRepository) ListByUser(ctx context.Context, userID string) ([]*models.Match, error) {
	query := `
		SELECT id::text, user_a_id, user_b_id, created_at
		FROM matches
		WHERE user_a_id = $1 OR user_b_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

// Delete deletes a match by ID
func (r *MatchRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM matches WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanMatch(row pgx.Row) (*models.Match, error) {
	var m models.Match
	if err := row.Scan(&m.ID, &m.UserIDs[0], &m.UserIDs[1], &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
