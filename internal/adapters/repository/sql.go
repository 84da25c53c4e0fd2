package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/okian/arcade/internal/domain/model"
)

// Schema creates the tables SQLStore reads. Score submission owns the writes.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id       BIGSERIAL PRIMARY KEY,
	username VARCHAR(30) NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS avatars (
	id        BIGSERIAL PRIMARY KEY,
	image_url TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS user_stats (
	user_id            BIGINT PRIMARY KEY REFERENCES users(id),
	level              INT NOT NULL DEFAULT 1,
	selected_avatar_id BIGINT REFERENCES avatars(id)
);
CREATE TABLE IF NOT EXISTS user_game_progress (
	user_id      BIGINT NOT NULL,
	game_code    TEXT NOT NULL,
	best_score   BIGINT,
	played_count BIGINT,
	PRIMARY KEY (user_id, game_code)
);
CREATE INDEX IF NOT EXISTS user_game_progress_rank
	ON user_game_progress (game_code, best_score DESC);
`

const (
	progressColumns = `user_id, game_code, best_score, played_count`

	profileSelect = `SELECT u.id, u.username, COALESCE(s.level, 1) AS level,
	a.id AS avatar_id, a.image_url AS avatar_url
FROM users u
LEFT JOIN user_stats s ON s.user_id = u.id
LEFT JOIN avatars a ON a.id = s.selected_avatar_id`
)

// SQLStore is a read-only Store over Postgres.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore connects to Postgres.
func NewSQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return NewSQLStoreWithDB(db), nil
}

// NewSQLStoreWithDB wraps an existing handle.
func NewSQLStoreWithDB(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

type progressRow struct {
	UserID      int64         `db:"user_id"`
	GameCode    string        `db:"game_code"`
	BestScore   sql.NullInt64 `db:"best_score"`
	PlayedCount sql.NullInt64 `db:"played_count"`
}

func (r progressRow) record() model.ScoreRecord {
	rec := model.ScoreRecord{UserID: r.UserID, GameCode: r.GameCode}
	if r.BestScore.Valid {
		rec.BestScore = model.Int64(r.BestScore.Int64)
	}
	if r.PlayedCount.Valid {
		rec.PlayedCount = model.Int64(r.PlayedCount.Int64)
	}
	return rec
}

func records(rows []progressRow) []model.ScoreRecord {
	out := make([]model.ScoreRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out
}

type profileRow struct {
	ID        int64          `db:"id"`
	Username  string         `db:"username"`
	Level     int            `db:"level"`
	AvatarID  sql.NullInt64  `db:"avatar_id"`
	AvatarURL sql.NullString `db:"avatar_url"`
}

func (r profileRow) profile() model.UserProfile {
	p := model.UserProfile{ID: r.ID, Username: r.Username, Level: r.Level}
	if r.AvatarID.Valid {
		p.SelectedAvatar = &model.Avatar{ID: r.AvatarID.Int64, ImageURL: r.AvatarURL.String}
	}
	return p
}

// Migrate creates the schema if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// FindTopByGame orders by best score desc, absent scores as zero, ties by user ID.
func (s *SQLStore) FindTopByGame(ctx context.Context, gameCode string, limit int) (out []model.ScoreRecord, err error) {
	start := time.Now()
	defer func() { observe(BackendPostgres, opTopByGame, start, err) }()

	if limit <= 0 {
		return []model.ScoreRecord{}, nil
	}
	var rows []progressRow
	err = s.db.SelectContext(ctx, &rows,
		`SELECT `+progressColumns+` FROM user_game_progress
WHERE game_code = $1
ORDER BY COALESCE(best_score, 0) DESC, user_id ASC
LIMIT $2`, gameCode, limit)
	if err != nil {
		return nil, fmt.Errorf("top of game %q: %w", gameCode, err)
	}
	return records(rows), nil
}

// FindAllForUser returns the user's records ordered by game code.
func (s *SQLStore) FindAllForUser(ctx context.Context, userID int64) (out []model.ScoreRecord, err error) {
	start := time.Now()
	defer func() { observe(BackendPostgres, opAllForUser, start, err) }()

	var rows []progressRow
	err = s.db.SelectContext(ctx, &rows,
		`SELECT `+progressColumns+` FROM user_game_progress WHERE user_id = $1 ORDER BY game_code`, userID)
	if err != nil {
		return nil, fmt.Errorf("records of user %d: %w", userID, err)
	}
	return records(rows), nil
}

// FindDistinctGameCodes lists game codes in lexical order.
func (s *SQLStore) FindDistinctGameCodes(ctx context.Context) (codes []string, err error) {
	start := time.Now()
	defer func() { observe(BackendPostgres, opGameCodes, start, err) }()

	codes = []string{}
	err = s.db.SelectContext(ctx, &codes,
		`SELECT DISTINCT game_code FROM user_game_progress ORDER BY game_code`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return codes, nil
}

// TotalsByUser sums best scores and play counts per user in one query.
// Absent and negative values count as zero.
func (s *SQLStore) TotalsByUser(ctx context.Context) (out map[int64]model.Totals, err error) {
	start := time.Now()
	defer func() { observe(BackendPostgres, opTotals, start, err) }()

	var rows []struct {
		UserID int64 `db:"user_id"`
		Score  int64 `db:"total_score"`
		Played int64 `db:"total_played"`
	}
	err = s.db.SelectContext(ctx, &rows,
		`SELECT user_id,
	COALESCE(SUM(GREATEST(COALESCE(best_score, 0), 0)), 0) AS total_score,
	COALESCE(SUM(GREATEST(COALESCE(played_count, 0), 0)), 0) AS total_played
FROM user_game_progress
GROUP BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("totals by user: %w", err)
	}

	out = make(map[int64]model.Totals, len(rows))
	for _, r := range rows {
		out[r.UserID] = model.Totals{Score: r.Score, Played: r.Played}
	}
	return out, nil
}

// FindByID returns ErrNotFound for unknown users.
func (s *SQLStore) FindByID(ctx context.Context, userID int64) (p *model.UserProfile, err error) {
	start := time.Now()
	defer func() { observe(BackendPostgres, opProfileByID, start, err) }()

	var row profileRow
	err = s.db.GetContext(ctx, &row, profileSelect+` WHERE u.id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read user %d: %w", userID, err)
	}
	profile := row.profile()
	return &profile, nil
}

// FindAll returns every profile ordered by user ID.
func (s *SQLStore) FindAll(ctx context.Context) (out []model.UserProfile, err error) {
	start := time.Now()
	defer func() { observe(BackendPostgres, opAllProfiles, start, err) }()

	var rows []profileRow
	if err = s.db.SelectContext(ctx, &rows, profileSelect+` ORDER BY u.id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out = make([]model.UserProfile, len(rows))
	for i, r := range rows {
		out[i] = r.profile()
	}
	return out, nil
}

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe(BackendPostgres, opPing, start, err) }()
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
