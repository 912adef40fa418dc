package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"greekmatch-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to DATABASE_URL; integration tests skip without it
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, Migrate(ctx, db))
	_, err = db.Exec(ctx, `TRUNCATE users, credentials, swipes, matches, messages`)
	require.NoError(t, err)
	return db
}

func TestUserRepositorySkipsMalformedDocuments(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	require.NoError(t, repo.Create(ctx, &models.User{ID: "u1", FullName: "Amy", GreekAffiliation: "Delta Gamma"}))
	_, err := db.Exec(ctx, `INSERT INTO users (id, doc) VALUES ('broken', '{"profile_image_urls": 7}')`)
	require.NoError(t, err)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ID)

	_, err = repo.GetByID(ctx, "broken")
	assert.ErrorIs(t, err, ErrDecode)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.Create(ctx, &models.User{ID: "u1"}), ErrDuplicate)
}

func TestSwipeRepositoryLastWriteWins(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewSwipeRepository(db)

	require.NoError(t, repo.Upsert(ctx, &models.Swipe{ActorID: "a", TargetID: "b", Action: models.SwipeLike}))
	require.NoError(t, repo.Upsert(ctx, &models.Swipe{ActorID: "a", TargetID: "b", Action: models.SwipeReject}))

	swipe, err := repo.Get(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, models.SwipeReject, swipe.Action)

	targets, err := repo.TargetsOf(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, targets)
}

func TestMatchRepositoryCreateIfAbsent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewMatchRepository(db)

	first := models.NewMatch("b", "a")
	created, err := repo.CreateIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)

	second := models.NewMatch("a", "b")
	created, err = repo.CreateIfAbsent(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	matches, err := repo.ListByUser(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestMessageRepositoryOrderAndCascade(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	matches := NewMatchRepository(db)
	messages := NewMessageRepository(db, true)

	match := models.NewMatch("a", "b")
	_, err := matches.CreateIfAbsent(ctx, match)
	require.NoError(t, err)

	now := time.Now().UTC()
	for i, text := range []string{"hi", "hey", "sup"} {
		msg := &models.Message{MatchID: match.ID, SenderID: "a", Text: text, SentAt: now.Add(time.Duration(i) * time.Millisecond)}
		require.NoError(t, messages.Create(ctx, msg))
		_, err := uuid.Parse(msg.ID)
		require.NoError(t, err)
	}

	list, err := messages.ListByMatch(ctx, match.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "hi", list[0].Text)
	assert.Equal(t, "sup", list[2].Text)

	require.NoError(t, matches.Delete(ctx, match.ID))
	list, err = messages.ListByMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAccountRepositoryPurge(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	users := NewUserRepository(db)
	swipes := NewSwipeRepository(db)
	matches := NewMatchRepository(db)
	creds := NewCredentialRepository(db)

	require.NoError(t, users.Create(ctx, &models.User{ID: "a"}))
	require.NoError(t, creds.Create(ctx, &models.Credential{UserID: "a", Email: "a@x.edu", PasswordHash: "h", CreatedAt: time.Now()}))
	require.NoError(t, swipes.Upsert(ctx, &models.Swipe{ActorID: "a", TargetID: "b", Action: models.SwipeLike}))
	require.NoError(t, swipes.Upsert(ctx, &models.Swipe{ActorID: "b", TargetID: "a", Action: models.SwipeLike}))
	_, err := matches.CreateIfAbsent(ctx, models.NewMatch("a", "b"))
	require.NoError(t, err)

	deleted, err := NewAccountRepository(db).Purge(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, deleted, 1)

	_, err = users.GetByID(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = creds.GetByEmail(ctx, "a@x.edu")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = swipes.Get(ctx, "b", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}
