package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"greekmatch-backend/internal/models"
	"greekmatch-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accountFixture struct {
	store    *testStore
	auth     *AuthService
	match    *MatchService
	notifier *recordingNotifier
	feeds    *recordingFeeds
	svc      *AccountService
}

func newAccountFixture(swipes SwipeStore) *accountFixture {
	store := newTestStore()
	if swipes == nil {
		swipes = store.swipes
	}
	notifier := &recordingNotifier{}
	feeds := &recordingFeeds{}
	auth := NewAuthService(store.creds, store.users, store.revoked, testAffiliations, "secret", time.Hour)
	match := NewMatchService(store.matches, store.messages, store.users, feeds, notifier)
	return &accountFixture{
		store:    store,
		auth:     auth,
		match:    match,
		notifier: notifier,
		feeds:    feeds,
		svc:      NewAccountService(store.users, swipes, store.matches, match, auth),
	}
}

func TestDeleteAccountCascade(t *testing.T) {
	f := newAccountFixture(nil)
	ctx := context.Background()

	session, err := f.auth.Register(ctx, validRegistration("a@school.edu"))
	require.NoError(t, err)
	a := session.User.ID
	f.store.addUser(t, "b", "Delta Gamma")
	f.store.addUser(t, "c", "Kappa Delta")

	swipes := NewSwipeService(f.store.swipes, f.store.matches, nil)
	for _, s := range [][2]string{{a, "b"}, {"b", a}, {"c", a}, {"b", "c"}} {
		_, err := swipes.Record(ctx, s[0], s[1], "like")
		require.NoError(t, err)
	}
	matches, err := f.store.matches.ListByUser(ctx, a)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	m := matches[0]
	_, err = NewChatService(f.store.messages, nil).Send(ctx, m.ID, "b", "hi")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, a, session.Token))

	_, err = f.store.users.GetByID(ctx, a)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	targets, err := f.store.swipes.TargetsOf(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, targets)
	_, err = f.store.swipes.Get(ctx, "c", a)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.store.swipes.Get(ctx, "b", "c")
	assert.NoError(t, err, "swipes between other users stay")

	_, err = f.store.matches.GetByID(ctx, m.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	msgs, err := f.store.messages.ListByMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = f.store.creds.GetByEmail(ctx, "a@school.edu")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.auth.Validate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, []string{m.ID}, f.feeds.closed)
	assert.Equal(t, []notification{{WSTypeMatchDeleted, "b", m.ID}}, f.notifier.list())

	candidates, err := NewCandidateService(f.store.users, f.store.swipes).Candidates(ctx, "c")
	require.NoError(t, err)
	assert.NotContains(t, ids(candidates), a)
}

type deleteFailingSwipes struct {
	SwipeStore
}

func (deleteFailingSwipes) DeleteByTarget(context.Context, string) (int64, error) {
	return 0, errors.New("swipes unavailable")
}

func TestDeleteAccountStopsAtFirstFailure(t *testing.T) {
	f := newAccountFixture(nil)
	f.svc = NewAccountService(f.store.users, deleteFailingSwipes{f.store.swipes}, f.store.matches, f.match, f.auth)
	ctx := context.Background()

	session, err := f.auth.Register(ctx, validRegistration("a@school.edu"))
	require.NoError(t, err)
	a := session.User.ID
	m := f.store.addMatch(t, a, "b")

	err = f.svc.Delete(ctx, a, session.Token)
	require.Error(t, err)

	// earlier steps stay applied, later ones never ran
	_, err = f.store.users.GetByID(ctx, a)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.store.matches.GetByID(ctx, m.ID)
	assert.NoError(t, err)
	_, err = f.store.creds.GetByEmail(ctx, "a@school.edu")
	assert.NoError(t, err)
}

type fakePurger struct {
	userID  string
	deleted []*models.Match
}

func (p *fakePurger) Purge(_ context.Context, userID string) ([]*models.Match, error) {
	p.userID = userID
	return p.deleted, nil
}

func TestDeleteAccountWithPurger(t *testing.T) {
	f := newAccountFixture(nil)
	ctx := context.Background()

	session, err := f.auth.Register(ctx, validRegistration("a@school.edu"))
	require.NoError(t, err)
	a := session.User.ID
	m := models.NewMatch(a, "b")
	m.ID = "m1"
	purger := &fakePurger{deleted: []*models.Match{m}}
	f.svc.WithPurger(purger)

	require.NoError(t, f.svc.Delete(ctx, a, session.Token))

	assert.Equal(t, a, purger.userID)
	assert.Equal(t, []string{"m1"}, f.feeds.closed)
	assert.Equal(t, []notification{{WSTypeMatchDeleted, "b", "m1"}}, f.notifier.list())
	_, err = f.auth.Validate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
