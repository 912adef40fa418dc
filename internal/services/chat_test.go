package services

import (
	"context"
	"testing"
	"time"

	"greekmatch-backend/internal/feed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAppendsInOrder(t *testing.T) {
	store := newTestStore()
	m := store.addMatch(t, "a", "b")
	feeds := &recordingFeeds{}
	svc := NewChatService(store.messages, feeds)
	ctx := context.Background()

	first, err := svc.Send(ctx, m.ID, "a", "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", first.Text)
	assert.NotEmpty(t, first.ID)

	second, err := svc.Send(ctx, m.ID, "b", "hey")
	require.NoError(t, err)
	assert.False(t, second.SentAt.Before(first.SentAt))

	msgs, err := svc.List(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, "a", msgs[0].SenderID)
	assert.Equal(t, "hey", msgs[1].Text)

	assert.Equal(t, []string{m.ID, m.ID}, feeds.published)
}

func TestSendSameInstantKeepsInsertionOrder(t *testing.T) {
	store := newTestStore()
	m := store.addMatch(t, "a", "b")
	svc := NewChatService(store.messages, nil)
	svc.now = fixedClock(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.Send(ctx, m.ID, "a", text)
		require.NoError(t, err)
	}

	msgs, err := svc.List(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, []string{msgs[0].Text, msgs[1].Text, msgs[2].Text})
}

func TestSendRejectsBlankText(t *testing.T) {
	store := newTestStore()
	m := store.addMatch(t, "a", "b")
	svc := NewChatService(store.messages, nil)

	_, err := svc.Send(context.Background(), m.ID, "a", " \n\t ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "text", verr.Field)

	msgs, err := svc.List(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendToDeletedMatchFails(t *testing.T) {
	store := newTestStore()
	svc := NewChatService(store.messages, nil)

	_, err := svc.Send(context.Background(), "gone", "a", "hi")
	assert.Error(t, err)
}

func TestSendRefreshesLiveFeed(t *testing.T) {
	store := newTestStore()
	m := store.addMatch(t, "a", "b")
	hub := feed.NewHub(store.messages.ListByMatch)
	svc := NewChatService(store.messages, hub)
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx, m.ID)
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, <-sub.Snapshots())

	_, err = svc.Send(ctx, m.ID, "a", "hi")
	require.NoError(t, err)

	select {
	case snap := <-sub.Snapshots():
		require.Len(t, snap, 1)
		assert.Equal(t, "hi", snap[0].Text)
	case <-time.After(time.Second):
		t.Fatal("feed not refreshed")
	}
}
