package repository

import (
	"context"
	"errors"
	"fmt"

	"greekmatch-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CredentialRepository handles database operations for sign-in credentials
type CredentialRepository struct {
	db *pgxpool.Pool
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create stores a credential; the email must be unused
func (r *CredentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	query := `
		INSERT INTO credentials (user_id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, cred.UserID, cred.Email, cred.PasswordHash, cred.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", cred.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

// GetByEmail retrieves a credential by normalized email
func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	query := `
		SELECT user_id, email, password_hash, created_at
		FROM credentials
		WHERE email = $1
	`
	var cred models.Credential
	err := r.db.QueryRow(ctx, query, email).Scan(
		&cred.UserID, &cred.Email, &cred.PasswordHash, &cred.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("credential %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &cred, nil
}

// Delete removes the credential of a user
func (r *CredentialRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
