package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	progressCols = []string{"user_id", "game_code", "best_score", "played_count"}
	profileCols  = []string{"id", "username", "level", "avatar_id", "avatar_url"}
)

func newMockSQL(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	store := NewSQLStoreWithDB(sqlx.NewDb(db, "postgres"))
	t.Cleanup(func() { _ = db.Close() })
	return store, mock
}

func TestSQLStore_FindTopByGame(t *testing.T) {
	store, mock := newMockSQL(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT user_id, game_code, best_score, played_count FROM user_game_progress\s+WHERE game_code = \$1`).
		WithArgs("quiz", 2).
		WillReturnRows(sqlmock.NewRows(progressCols).
			AddRow(2, "quiz", 80, 2).
			AddRow(1, "quiz", nil, nil))

	got, err := store.FindTopByGame(ctx, "quiz", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].UserID)
	assert.Equal(t, int64(80), *got[0].BestScore)
	assert.Nil(t, got[1].BestScore)
	assert.Nil(t, got[1].PlayedCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindTopByGame_NonPositiveLimit(t *testing.T) {
	store, mock := newMockSQL(t)

	got, err := store.FindTopByGame(context.Background(), "quiz", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindAllForUser(t *testing.T) {
	store, mock := newMockSQL(t)

	mock.ExpectQuery(`FROM user_game_progress WHERE user_id = \$1 ORDER BY game_code`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(progressCols).
			AddRow(1, "flappy", 30, 7).
			AddRow(1, "quiz", 50, 4))

	got, err := store.FindAllForUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "flappy", got[0].GameCode)
	assert.Equal(t, int64(7), got[0].Played())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindDistinctGameCodes(t *testing.T) {
	store, mock := newMockSQL(t)

	mock.ExpectQuery(`SELECT DISTINCT game_code FROM user_game_progress`).
		WillReturnRows(sqlmock.NewRows([]string{"game_code"}).AddRow("flappy").AddRow("quiz"))

	codes, err := store.FindDistinctGameCodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"flappy", "quiz"}, codes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_TotalsByUser(t *testing.T) {
	store, mock := newMockSQL(t)

	mock.ExpectQuery(`GROUP BY user_id`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "total_score", "total_played"}).
			AddRow(1, 80, 11).
			AddRow(2, 80, 2))

	totals, err := store.TotalsByUser(context.Background())
	require.NoError(t, err)
	assert.Len(t, totals, 2)
	assert.Equal(t, int64(80), totals[1].Score)
	assert.Equal(t, int64(11), totals[1].Played)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindByID(t *testing.T) {
	store, mock := newMockSQL(t)
	ctx := context.Background()

	mock.ExpectQuery(`(?s)FROM users u\s+LEFT JOIN user_stats s .* WHERE u.id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow(1, "alice", 3, 9, "/img/cat.png"))
	mock.ExpectQuery(`WHERE u.id = \$1`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow(2, "bob", 5, nil, nil))
	mock.ExpectQuery(`WHERE u.id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(profileCols))

	alice, err := store.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", alice.Username)
	require.NotNil(t, alice.SelectedAvatar)
	assert.Equal(t, "/img/cat.png", alice.SelectedAvatar.ImageURL)

	bob, err := store.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, bob.SelectedAvatar)

	_, err = store.FindByID(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindAll(t *testing.T) {
	store, mock := newMockSQL(t)

	mock.ExpectQuery(`(?s)FROM users u.* ORDER BY u.id`).
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow(1, "alice", 3, 9, "/img/cat.png").
			AddRow(2, "bob", 5, nil, nil))

	all, err := store.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "bob", all[1].Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Errors(t *testing.T) {
	store, mock := newMockSQL(t)
	ctx := context.Background()
	boom := errors.New("connection reset")

	mock.ExpectQuery(`FROM user_game_progress`).WillReturnError(boom)
	mock.ExpectQuery(`FROM users u`).WillReturnError(boom)

	_, err := store.FindTopByGame(ctx, "quiz", 5)
	assert.ErrorIs(t, err, boom)
	_, err = store.FindByID(ctx, 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Migrate(t *testing.T) {
	store, mock := newMockSQL(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
