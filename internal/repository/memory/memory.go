// Package memory is an in-process document store with the same semantics
// as the Postgres repositories. It backs the "memory" store driver and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"greekmatch-backend/internal/models"
	"greekmatch-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type pairKey [2]string

type storedMessage struct {
	msg *models.Message
	seq int64
}

// DB holds every collection behind one lock
type DB struct {
	mu sync.Mutex

	now func() time.Time

	userOrder []string
	users     map[string][]byte

	swipes map[pairKey]*models.Swipe

	matches    map[string]*models.Match
	matchPairs map[pairKey]string

	messages map[string][]storedMessage
	seq      int64

	credentials map[string]*models.Credential
	emails      map[string]string
}

// New creates an empty store
func New() *DB {
	return &DB{
		now:         func() time.Time { return time.Now().UTC() },
		users:       make(map[string][]byte),
		swipes:      make(map[pairKey]*models.Swipe),
		matches:     make(map[string]*models.Match),
		matchPairs:  make(map[pairKey]string),
		messages:    make(map[string][]storedMessage),
		credentials: make(map[string]*models.Credential),
		emails:      make(map[string]string),
	}
}

// SetClock overrides the server clock used for assigned timestamps
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

// PutRawUser stores a user document verbatim, bypassing encoding
func (db *DB) PutRawUser(id string, doc []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.users[id]; !ok {
		db.userOrder = append(db.userOrder, id)
	}
	db.users[id] = doc
}

// UserRepository is the users collection
type UserRepository struct{ db *DB }

// NewUserRepository creates a user repository over db
func NewUserRepository(db *DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[user.ID]; ok {
		return fmt.Errorf("user %s: %w", user.ID, repository.ErrDuplicate)
	}
	r.db.userOrder = append(r.db.userOrder, user.ID)
	r.db.users[user.ID] = doc
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.db.mu.Lock()
	doc, ok := r.db.users[id]
	r.db.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	return decodeUser(id, doc)
}

func (r *UserRepository) List(_ context.Context) ([]*models.User, error) {
	r.db.mu.Lock()
	ids := append([]string(nil), r.db.userOrder...)
	docs := make([][]byte, len(ids))
	for i, id := range ids {
		docs[i] = r.db.users[id]
	}
	r.db.mu.Unlock()

	users := make([]*models.User, 0, len(ids))
	for i, id := range ids {
		user, err := decodeUser(id, docs[i])
		if err != nil {
			log.Debug().Err(err).Str("user_id", id).Msg("Skipping undecodable user")
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func (r *UserRepository) Update(_ context.Context, user *models.User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[user.ID]; !ok {
		return fmt.Errorf("user %s: %w", user.ID, repository.ErrNotFound)
	}
	r.db.users[user.ID] = doc
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return nil
	}
	delete(r.db.users, id)
	for i, v := range r.db.userOrder {
		if v == id {
			r.db.userOrder = append(r.db.userOrder[:i], r.db.userOrder[i+1:]...)
			break
		}
	}
	return nil
}

func decodeUser(id string, doc []byte) (*models.User, error) {
	var user models.User
	if err := json.Unmarshal(doc, &user); err != nil {
		return nil, fmt.Errorf("user %s: %w: %v", id, repository.ErrDecode, err)
	}
	if user.ID == "" {
		user.ID = id
	}
	if user.ID != id {
		return nil, fmt.Errorf("user %s: %w: id mismatch", id, repository.ErrDecode)
	}
	return &user, nil
}

// SwipeRepository is the swipes collection
type SwipeRepository struct{ db *DB }

// NewSwipeRepository creates a swipe repository over db
func NewSwipeRepository(db *DB) *SwipeRepository { return &SwipeRepository{db: db} }

func (r *SwipeRepository) Upsert(_ context.Context, swipe *models.Swipe) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	swipe.CreatedAt = r.db.now()
	stored := *swipe
	r.db.swipes[pairKey{swipe.ActorID, swipe.TargetID}] = &stored
	return nil
}

func (r *SwipeRepository) Get(_ context.Context, actorID, targetID string) (*models.Swipe, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.swipes[pairKey{actorID, targetID}]
	if !ok {
		return nil, fmt.Errorf("swipe %s->%s: %w", actorID, targetID, repository.ErrNotFound)
	}
	c := *s
	return &c, nil
}

func (r *SwipeRepository) TargetsOf(_ context.Context, actorID string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var ids []string
	for k := range r.db.swipes {
		if k[0] == actorID {
			ids = append(ids, k[1])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *SwipeRepository) DeleteByActor(_ context.Context, actorID string) (int64, error) {
	return r.deleteWhere(func(k pairKey) bool { return k[0] == actorID }), nil
}

func (r *SwipeRepository) DeleteByTarget(_ context.Context, targetID string) (int64, error) {
	return r.deleteWhere(func(k pairKey) bool { return k[1] == targetID }), nil
}

func (r *SwipeRepository) deleteWhere(match func(pairKey) bool) int64 {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for k := range r.db.swipes {
		if match(k) {
			delete(r.db.swipes, k)
			n++
		}
	}
	return n
}

// MatchRepository is the matches collection
type MatchRepository struct{ db *DB }

// NewMatchRepository creates a match repository over db
func NewMatchRepository(db *DB) *MatchRepository { return &MatchRepository{db: db} }

func (r *MatchRepository) CreateIfAbsent(_ context.Context, match *models.Match) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := pairKey(match.UserIDs)
	if id, ok := r.db.matchPairs[key]; ok {
		*match = *r.db.matches[id]
		return false, nil
	}

	match.ID = uuid.NewString()
	match.CreatedAt = r.db.now()
	stored := *match
	r.db.matches[match.ID] = &stored
	r.db.matchPairs[key] = match.ID
	return true, nil
}

func (r *MatchRepository) GetByID(_ context.Context, id string) (*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %s: %w", id, repository.ErrNotFound)
	}
	c := *m
	return &c, nil
}

func (r *MatchRepository) ListByUser(_ context.Context, userID string) ([]*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.Match
	for _, m := range r.db.matches {
		if m.Has(userID) {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes the match. Its messages are removed with it, as the
// Postgres foreign key does.
func (r *MatchRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.matches[id]
	if !ok {
		return fmt.Errorf("match %s: %w", id, repository.ErrNotFound)
	}
	delete(r.db.matchPairs, pairKey(m.UserIDs))
	delete(r.db.matches, id)
	delete(r.db.messages, id)
	return nil
}

// MessageRepository is the messages collection
type MessageRepository struct{ db *DB }

// NewMessageRepository creates a message repository over db
func NewMessageRepository(db *DB) *MessageRepository { return &MessageRepository{db: db} }

func (r *MessageRepository) Create(_ context.Context, msg *models.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.matches[msg.MatchID]; !ok {
		return fmt.Errorf("match %s: %w", msg.MatchID, repository.ErrNotFound)
	}
	msg.ID = uuid.NewString()
	r.db.seq++
	stored := *msg
	r.db.messages[msg.MatchID] = append(r.db.messages[msg.MatchID], storedMessage{msg: &stored, seq: r.db.seq})
	return nil
}

func (r *MessageRepository) ListByMatch(_ context.Context, matchID string) ([]*models.Message, error) {
	r.db.mu.Lock()
	stored := append([]storedMessage(nil), r.db.messages[matchID]...)
	r.db.mu.Unlock()

	sort.SliceStable(stored, func(i, j int) bool {
		a, b := stored[i], stored[j]
		if a.msg.SentAt.Equal(b.msg.SentAt) {
			return a.seq < b.seq
		}
		return a.msg.SentAt.Before(b.msg.SentAt)
	})

	out := make([]*models.Message, len(stored))
	for i, s := range stored {
		c := *s.msg
		out[i] = &c
	}
	return out, nil
}

func (r *MessageRepository) DeleteByMatch(_ context.Context, matchID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := int64(len(r.db.messages[matchID]))
	delete(r.db.messages, matchID)
	return n, nil
}

// CredentialRepository is the credentials collection
type CredentialRepository struct{ db *DB }

// NewCredentialRepository creates a credential repository over db
func NewCredentialRepository(db *DB) *CredentialRepository { return &CredentialRepository{db: db} }

func (r *CredentialRepository) Create(_ context.Context, cred *models.Credential) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.emails[cred.Email]; ok {
		return fmt.Errorf("email %s: %w", cred.Email, repository.ErrDuplicate)
	}
	if _, ok := r.db.credentials[cred.UserID]; ok {
		return fmt.Errorf("credential %s: %w", cred.UserID, repository.ErrDuplicate)
	}
	c := *cred
	r.db.credentials[cred.UserID] = &c
	r.db.emails[cred.Email] = cred.UserID
	return nil
}

func (r *CredentialRepository) GetByEmail(_ context.Context, email string) (*models.Credential, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, ok := r.db.emails[email]
	if !ok {
		return nil, fmt.Errorf("credential %s: %w", email, repository.ErrNotFound)
	}
	c := *r.db.credentials[id]
	return &c, nil
}

func (r *CredentialRepository) Delete(_ context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if c, ok := r.db.credentials[userID]; ok {
		delete(r.db.emails, c.Email)
		delete(r.db.credentials, userID)
	}
	return nil
}

// RevocationRepository keeps revoked token ids in process memory
type RevocationRepository struct {
	mu      sync.Mutex
	now     func() time.Time
	revoked map[string]time.Time
}

// NewRevocationRepository creates an empty revocation list
func NewRevocationRepository() *RevocationRepository {
	return &RevocationRepository{now: time.Now, revoked: make(map[string]time.Time)}
}

func (r *RevocationRepository) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, exp := range r.revoked {
		if !exp.After(now) {
			delete(r.revoked, id)
		}
	}
	r.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (r *RevocationRepository) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.revoked[tokenID]
	return ok && exp.After(r.now()), nil
}
