package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"greekmatch-backend/internal/models"
)

var (
	// ErrUnauthorized is returned for bad credentials or an unusable token
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller is not allowed to touch a resource
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when a unique resource already exists
	ErrConflict = errors.New("conflict")
)

// ValidationError reports bad input before anything is written
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// UserStore persists profile documents
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// SwipeStore persists swipe decisions keyed by (actor, target)
type SwipeStore interface {
	Upsert(ctx context.Context, swipe *models.Swipe) error
	Get(ctx context.Context, actorID, targetID string) (*models.Swipe, error)
	TargetsOf(ctx context.Context, actorID string) ([]string, error)
	DeleteByActor(ctx context.Context, actorID string) (int64, error)
	DeleteByTarget(ctx context.Context, targetID string) (int64, error)
}

// MatchStore persists matches keyed by their sorted user pair
type MatchStore interface {
	CreateIfAbsent(ctx context.Context, match *models.Match) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Match, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Match, error)
	Delete(ctx context.Context, id string) error
}

// MessageStore persists chat messages
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByMatch(ctx context.Context, matchID string) ([]*models.Message, error)
	DeleteByMatch(ctx context.Context, matchID string) (int64, error)
}

// CredentialStore persists sign-in secrets
type CredentialStore interface {
	Create(ctx context.Context, cred *models.Credential) error
	GetByEmail(ctx context.Context, email string) (*models.Credential, error)
	Delete(ctx context.Context, userID string) error
}

// RevocationStore remembers signed-out token ids until they expire
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AccountPurger deletes everything a user owns in one transaction
type AccountPurger interface {
	Purge(ctx context.Context, userID string) ([]*models.Match, error)
}

// Notifier pushes match lifecycle events to connected users
type Notifier interface {
	NotifyMatchCreated(userID string, match *models.Match)
	NotifyMatchDeleted(userID, matchID string)
}

// FeedCloser ends live feeds of a deleted match
type FeedCloser interface {
	CloseMatch(matchID string)
}

// Publisher pushes a fresh snapshot of a match's messages
type Publisher interface {
	Publish(ctx context.Context, matchID string)
}
