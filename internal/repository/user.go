package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"greekmatch-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// UserRepository stores user profiles as JSONB documents keyed by id
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user document
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	query := `INSERT INTO users (id, doc) VALUES ($1, $2::jsonb)`
	if _, err := r.db.Exec(ctx, query, user.ID, string(doc)); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT doc FROM users WHERE id = $1`

	var doc []byte
	if err := r.db.QueryRow(ctx, query, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return decodeUser(id, doc)
}

// List returns every decodable user in insertion order.
// Documents that fail to decode are skipped.
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT id, doc FROM users ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user, err := decodeUser(id, doc)
		if err != nil {
			log.Debug().Err(err).Str("user_id", id).Msg("Skipping undecodable user")
			continue
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Update replaces the stored document of an existing user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	query := `UPDATE users SET doc = $1::jsonb WHERE id = $2`
	result, err := r.db.Exec(ctx, query, string(doc), user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a user document
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func decodeUser(id string, doc []byte) (*models.User, error) {
	var user models.User
	if err := json.Unmarshal(doc, &user); err != nil {
		return nil, fmt.Errorf("user %s: %w: %v", id, ErrDecode, err)
	}
	if user.ID == "" {
		user.ID = id
	}
	if user.ID != id {
		return nil, fmt.Errorf("user %s: %w: id mismatch", id, ErrDecode)
	}
	return &user, nil
}
