package repository

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/arcade/internal/domain/model"
)

// newTestRedis spins up a miniredis server and returns a store over it.
func newTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, "test")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func seedRedis(t *testing.T, store *RedisStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.PutProfile(ctx, model.UserProfile{ID: 1, Username: "alice", Level: 3,
		SelectedAvatar: &model.Avatar{ID: 9, ImageURL: "/img/cat.png"}}))
	require.NoError(t, store.PutProfile(ctx, model.UserProfile{ID: 2, Username: "bob", Level: 5}))
	require.NoError(t, store.Put(ctx, rec(1, "quiz", 50, 4)))
	require.NoError(t, store.Put(ctx, rec(2, "quiz", 80, 2)))
	require.NoError(t, store.Put(ctx, rec(1, "flappy", 30, 7)))
}

func TestRedisStore_FindTopByGame(t *testing.T) {
	store, _ := newTestRedis(t)
	seedRedis(t, store)
	ctx := context.Background()

	got, err := store.FindTopByGame(ctx, "quiz", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].UserID)
	assert.Equal(t, int64(80), got[0].Best())
	assert.Equal(t, int64(2), got[0].Played())
	assert.Equal(t, "quiz", got[0].GameCode)
	assert.Equal(t, int64(1), got[1].UserID)

	got, err = store.FindTopByGame(ctx, "quiz", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].UserID)

	got, err = store.FindTopByGame(ctx, "chess", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = store.FindTopByGame(ctx, "quiz", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisStore_ReplaceAndAbsent(t *testing.T) {
	store, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, rec(1, "snake", 40, 3)))
	require.NoError(t, store.Put(ctx, model.ScoreRecord{UserID: 1, GameCode: "snake"}))

	got, err := store.FindTopByGame(ctx, "snake", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].BestScore)
	assert.Nil(t, got[0].PlayedCount)
	assert.Equal(t, int64(0), got[0].Best())
}

func TestRedisStore_UserAndGames(t *testing.T) {
	store, _ := newTestRedis(t)
	seedRedis(t, store)
	ctx := context.Background()

	codes, err := store.FindDistinctGameCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"flappy", "quiz"}, codes)

	recs, err := store.FindAllForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "flappy", recs[0].GameCode)
	assert.Equal(t, int64(30), recs[0].Best())
	assert.Equal(t, "quiz", recs[1].GameCode)

	recs, err = store.FindAllForUser(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRedisStore_Profiles(t *testing.T) {
	store, _ := newTestRedis(t)
	seedRedis(t, store)
	ctx := context.Background()

	alice, err := store.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", alice.Username)
	assert.Equal(t, 3, alice.Level)
	require.NotNil(t, alice.SelectedAvatar)
	assert.Equal(t, int64(9), alice.SelectedAvatar.ID)
	assert.Equal(t, "/img/cat.png", alice.SelectedAvatar.ImageURL)

	bob, err := store.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, bob.SelectedAvatar)

	_, err = store.FindByID(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, "bob", all[1].Username)
}

func TestRedisStore_Errors(t *testing.T) {
	store, mr := newTestRedis(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Put(ctx, model.ScoreRecord{UserID: 1}), ErrInvalidRecord)
	require.NoError(t, store.Ping(ctx))

	mr.SetError("LOADING")
	_, err := store.FindTopByGame(ctx, "quiz", 5)
	assert.Error(t, err)
	_, err = store.FindDistinctGameCodes(ctx)
	assert.Error(t, err)
	assert.Error(t, store.Ping(ctx))

	mr.SetError("")
	require.NoError(t, store.Ping(ctx))
}

func TestRedisStore_Corrupt(t *testing.T) {
	store, mr := newTestRedis(t)
	ctx := context.Background()

	_, err := mr.ZAdd("test:game:quiz:scores", 10, "not-a-number")
	require.NoError(t, err)
	_, err = store.FindTopByGame(ctx, "quiz", 5)
	assert.Error(t, err)
}
