package services

import (
	"context"
	"testing"

	"greekmatch-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(users []*models.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.ID
	}
	return out
}

func TestFilterCandidates(t *testing.T) {
	actor := &models.User{ID: "a", GreekAffiliation: "Theta Chi"}
	all := []*models.User{
		{ID: "d", GreekAffiliation: "Kappa Delta"},
		actor,
		{ID: "b", GreekAffiliation: "Theta Chi"},
		{ID: "c", GreekAffiliation: "Delta Gamma"},
		{ID: "e", GreekAffiliation: "Zeta Tau Alpha"},
	}
	decided := map[string]struct{}{"c": {}}

	got := FilterCandidates(actor, all, decided)

	assert.Equal(t, []string{"d", "e"}, ids(got))
	for _, u := range got {
		assert.NotEqual(t, actor.ID, u.ID)
		assert.NotEqual(t, actor.GreekAffiliation, u.GreekAffiliation)
	}
}

func TestCandidatesExcludeDecidedUsers(t *testing.T) {
	store := newTestStore()
	store.addUser(t, "a", "Theta Chi")
	store.addUser(t, "b", "Delta Gamma")
	store.addUser(t, "c", "Kappa Delta")
	svc := NewCandidateService(store.users, store.swipes)
	swipes := NewSwipeService(store.swipes, store.matches, nil)
	ctx := context.Background()

	got, err := svc.Candidates(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(got))

	_, err = swipes.Record(ctx, "a", "b", "reject")
	require.NoError(t, err)
	_, err = swipes.Record(ctx, "a", "c", "like")
	require.NoError(t, err)

	got, err = svc.Candidates(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCandidatesUnknownActorIsEmpty(t *testing.T) {
	store := newTestStore()
	store.addUser(t, "b", "Delta Gamma")
	store.db.PutRawUser("broken", []byte(`not json`))
	svc := NewCandidateService(store.users, store.swipes)

	got, err := svc.Candidates(context.Background(), "ghost")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = svc.Candidates(context.Background(), "broken")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCandidatesSkipMalformedProfiles(t *testing.T) {
	store := newTestStore()
	store.addUser(t, "a", "Theta Chi")
	store.db.PutRawUser("broken", []byte(`{"profile_image_urls": "nope"}`))
	store.addUser(t, "b", "Delta Gamma")
	svc := NewCandidateService(store.users, store.swipes)

	got, err := svc.Candidates(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(got))
}

func TestRejectScenarioPools(t *testing.T) {
	store := newTestStore()
	store.addUser(t, "a", "Theta Chi")
	store.addUser(t, "b", "Delta Gamma")
	candidates := NewCandidateService(store.users, store.swipes)
	swipes := NewSwipeService(store.swipes, store.matches, nil)
	ctx := context.Background()

	res, err := swipes.Record(ctx, "a", "b", "like")
	require.NoError(t, err)
	assert.Nil(t, res.Match)
	res, err = swipes.Record(ctx, "b", "a", "reject")
	require.NoError(t, err)
	assert.Nil(t, res.Match)

	matches, err := store.matches.ListByUser(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, matches)

	poolA, err := candidates.Candidates(ctx, "a")
	require.NoError(t, err)
	assert.NotContains(t, ids(poolA), "b")

	poolB, err := candidates.Candidates(ctx, "b")
	require.NoError(t, err)
	assert.NotContains(t, ids(poolB), "a")
}
