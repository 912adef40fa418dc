package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"greekmatch-backend/internal/models"
	"greekmatch-backend/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

type testStore struct {
	db       *memory.DB
	users    *memory.UserRepository
	swipes   *memory.SwipeRepository
	matches  *memory.MatchRepository
	messages *memory.MessageRepository
	creds    *memory.CredentialRepository
	revoked  *memory.RevocationRepository
}

func newTestStore() *testStore {
	db := memory.New()
	return &testStore{
		db:       db,
		users:    memory.NewUserRepository(db),
		swipes:   memory.NewSwipeRepository(db),
		matches:  memory.NewMatchRepository(db),
		messages: memory.NewMessageRepository(db),
		creds:    memory.NewCredentialRepository(db),
		revoked:  memory.NewRevocationRepository(),
	}
}

func (s *testStore) addUser(t *testing.T, id, affiliation string) *models.User {
	t.Helper()
	u := &models.User{ID: id, FullName: "User " + id, GreekAffiliation: affiliation, ProfileImageURLs: []string{}}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *testStore) addMatch(t *testing.T, a, b string) *models.Match {
	t.Helper()
	m := models.NewMatch(a, b)
	_, err := s.matches.CreateIfAbsent(context.Background(), m)
	require.NoError(t, err)
	return m
}

type notification struct {
	kind    string
	userID  string
	matchID string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) NotifyMatchCreated(userID string, match *models.Match) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{WSTypeMatchCreated, userID, match.ID})
}

func (n *recordingNotifier) NotifyMatchDeleted(userID, matchID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{WSTypeMatchDeleted, userID, matchID})
}

func (n *recordingNotifier) list() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.events...)
}

type recordingFeeds struct {
	mu        sync.Mutex
	closed    []string
	published []string
}

func (f *recordingFeeds) CloseMatch(matchID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, matchID)
}

func (f *recordingFeeds) Publish(_ context.Context, matchID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, matchID)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
