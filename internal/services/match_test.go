package services

import (
	"context"
	"testing"
	"time"

	"greekmatch-backend/internal/models"
	"greekmatch-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	store := newTestStore()
	m := store.addMatch(t, "a", "b")
	svc := NewMatchService(store.matches, store.messages, store.users, nil, nil)
	ctx := context.Background()

	got, err := svc.Authorize(ctx, m.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = svc.Authorize(ctx, m.ID, "c")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Authorize(ctx, "missing", "a")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInboxPairsMatchesWithCounterparts(t *testing.T) {
	store := newTestStore()
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store.addUser(t, "a", "Theta Chi")
	store.addUser(t, "b", "Delta Gamma")
	store.addUser(t, "c", "Kappa Delta")

	store.db.SetClock(fixedClock(t0))
	mb := store.addMatch(t, "a", "b")
	store.db.SetClock(fixedClock(t0.Add(time.Minute)))
	mc := store.addMatch(t, "c", "a")
	store.db.SetClock(fixedClock(t0.Add(2 * time.Minute)))
	store.addMatch(t, "a", "ghost")

	svc := NewMatchService(store.matches, store.messages, store.users, nil, nil)
	rows, err := svc.Inbox(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, mb.ID, rows[0].Match.ID)
	assert.Equal(t, "b", rows[0].User.ID)
	assert.Equal(t, mc.ID, rows[1].Match.ID)
	assert.Equal(t, "c", rows[1].User.ID)
}

func TestUnmatchCascades(t *testing.T) {
	store := newTestStore()
	m := store.addMatch(t, "a", "b")
	notifier := &recordingNotifier{}
	feeds := &recordingFeeds{}
	svc := NewMatchService(store.matches, store.messages, store.users, feeds, notifier)
	chat := NewChatService(store.messages, nil)
	ctx := context.Background()

	_, err := chat.Send(ctx, m.ID, "a", "hi")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Unmatch(ctx, m.ID, "c"), ErrForbidden)

	require.NoError(t, svc.Unmatch(ctx, m.ID, "a"))

	msgs, err := store.messages.ListByMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	_, err = store.matches.GetByID(ctx, m.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.Equal(t, []string{m.ID}, feeds.closed)
	assert.Equal(t, []notification{{WSTypeMatchDeleted, "b", m.ID}}, notifier.list())

	// a fresh mutual like after unmatching creates a new record
	again := models.NewMatch("a", "b")
	created, err := store.matches.CreateIfAbsent(ctx, again)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, m.ID, again.ID)
}
