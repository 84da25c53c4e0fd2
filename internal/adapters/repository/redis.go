package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/arcade/internal/domain/model"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	Prefix       string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns defaults for a local Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Prefix:       "arcade",
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// RedisStore is a Store backed by Redis.
//
// Keys:
//   - {prefix}:game:{code}:scores  zset of user IDs scored by best score
//   - {prefix}:progress:{user}:{code}  hash with "best" and "played"
//   - {prefix}:games  set of game codes
//   - {prefix}:user:{user}:games  set of the user's game codes
//   - {prefix}:user:{user}  hash with username, level, avatar_id, avatar_url
//   - {prefix}:users  zset of user IDs scored by ID
//
// Ties in a game's zset come back in reverse member order, which is what
// ZREVRANGE does natively.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}
	return NewRedisStoreWithClient(client, cfg.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "arcade"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) gameKey(code string) string {
	return fmt.Sprintf("%s:game:%s:scores", s.prefix, code)
}

func (s *RedisStore) progressKey(userID int64, code string) string {
	return fmt.Sprintf("%s:progress:%d:%s", s.prefix, userID, code)
}

func (s *RedisStore) gamesKey() string {
	return s.prefix + ":games"
}

func (s *RedisStore) userGamesKey(userID int64) string {
	return fmt.Sprintf("%s:user:%d:games", s.prefix, userID)
}

func (s *RedisStore) userKey(userID int64) string {
	return fmt.Sprintf("%s:user:%d", s.prefix, userID)
}

func (s *RedisStore) usersKey() string {
	return s.prefix + ":users"
}

// Put inserts or replaces the record for (user, game).
func (s *RedisStore) Put(ctx context.Context, rec model.ScoreRecord) (err error) {
	start := time.Now()
	defer func() { observe(BackendRedis, opPut, start, err) }()

	if err := validRecord(rec); err != nil {
		return err
	}

	pkey := s.progressKey(rec.UserID, rec.GameCode)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		member := strconv.FormatInt(rec.UserID, 10)
		pipe.ZAdd(ctx, s.gameKey(rec.GameCode), redis.Z{Score: float64(rec.Best()), Member: member})
		pipe.Del(ctx, pkey)
		fields := make([]any, 0, 4)
		if rec.BestScore != nil {
			fields = append(fields, "best", *rec.BestScore)
		}
		if rec.PlayedCount != nil {
			fields = append(fields, "played", *rec.PlayedCount)
		}
		// Keeps the hash alive when both values are absent.
		fields = append(fields, "game", rec.GameCode)
		pipe.HSet(ctx, pkey, fields...)
		pipe.SAdd(ctx, s.gamesKey(), rec.GameCode)
		pipe.SAdd(ctx, s.userGamesKey(rec.UserID), rec.GameCode)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put progress %d/%q: %w", rec.UserID, rec.GameCode, err)
	}
	return nil
}

// PutProfile inserts or replaces a user profile.
func (s *RedisStore) PutProfile(ctx context.Context, p model.UserProfile) (err error) {
	start := time.Now()
	defer func() { observe(BackendRedis, opPutProfile, start, err) }()

	key := s.userKey(p.ID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		fields := []any{"username", p.Username, "level", p.Level}
		if p.SelectedAvatar != nil {
			fields = append(fields, "avatar_id", p.SelectedAvatar.ID, "avatar_url", p.SelectedAvatar.ImageURL)
		}
		pipe.HSet(ctx, key, fields...)
		pipe.ZAdd(ctx, s.usersKey(), redis.Z{Score: float64(p.ID), Member: strconv.FormatInt(p.ID, 10)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("put profile %d: %w", p.ID, err)
	}
	return nil
}

// FindTopByGame reads the top of the game's zset and the matching progress hashes.
func (s *RedisStore) FindTopByGame(ctx context.Context, gameCode string, limit int) (out []model.ScoreRecord, err error) {
	start := time.Now()
	defer func() { observe(BackendRedis, opTopByGame, start, err) }()

	if limit <= 0 {
		return []model.ScoreRecord{}, nil
	}
	members, err := s.client.ZRevRange(ctx, s.gameKey(gameCode), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("top of game %q: %w", gameCode, err)
	}
	ids, err := parseIDs(members)
	if err != nil {
		return nil, err
	}
	refs := make([]progressRef, len(ids))
	for i, id := range ids {
		refs[i] = progressRef{userID: id, gameCode: gameCode}
	}
	return s.progress(ctx, refs)
}

// FindAllForUser returns the user's records ordered by game code.
func (s *RedisStore) FindAllForUser(ctx context.Context, userID int64) (out []model.ScoreRecord, err error) {
	start := time.Now()
	defer func() { observe(BackendRedis, opAllForUser, start, err) }()

	codes, err := s.client.SMembers(ctx, s.userGamesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("games of user %d: %w", userID, err)
	}
	sort.Strings(codes)

	refs := make([]progressRef, len(codes))
	for i, code := range codes {
		refs[i] = progressRef{userID: userID, gameCode: code}
	}
	return s.progress(ctx, refs)
}

type progressRef struct {
	userID   int64
	gameCode string
}

// progress fetches the progress hashes of refs in a single pipeline.
func (s *RedisStore) progress(ctx context.Context, refs []progressRef) ([]model.ScoreRecord, error) {
	out := make([]model.ScoreRecord, 0, len(refs))
	if len(refs) == 0 {
		return out, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(refs))
	pipe := s.client.Pipeline()
	for i, ref := range refs {
		cmds[i] = pipe.HGetAll(ctx, s.progressKey(ref.userID, ref.gameCode))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}

	for i, cmd := range cmds {
		fields := cmd.Val()
		rec := model.ScoreRecord{UserID: refs[i].userID, GameCode: refs[i].gameCode}
		var err error
		if rec.BestScore, err = optionalInt(fields, "best"); err != nil {
			return nil, err
		}
		if rec.PlayedCount, err = optionalInt(fields, "played"); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// FindDistinctGameCodes lists game codes in lexical order.
func (s *RedisStore) FindDistinctGameCodes(ctx context.Context) (codes []string, err error) {
	start := time.Now()
	defer func() { observe(BackendRedis, opGameCodes, start, err) }()

	codes, err = s.client.SMembers(ctx, s.gamesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	sort.Strings(codes)
	return codes, nil
}

// FindByID returns ErrNotFound for unknown users.
func (s *RedisStore) FindByID(ctx context.Context, userID int64) (p *model.UserProfile, err error) {
	start := time.Now()
	defer func() { observe(BackendRedis, opProfileByID, start, err) }()

	fields, err := s.client.HGetAll(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read user %d: %w", userID, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	profile, err := parseProfile(userID, fields)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindAll returns every profile ordered by user ID.
func (s *RedisStore) FindAll(ctx context.Context) (out []model.UserProfile, err error) {
	start := time.Now()
	defer func() { observe(BackendRedis, opAllProfiles, start, err) }()

	members, err := s.client.ZRange(ctx, s.usersKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	ids, err := parseIDs(members)
	if err != nil {
		return nil, err
	}

	out = make([]model.UserProfile, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	pipe := s.client.Pipeline()
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.userKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		p, err := parseProfile(ids[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe(BackendRedis, opPing, start, err) }()
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func parseIDs(members []string) ([]int64, error) {
	ids := make([]int64, len(members))
	for i, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad user id %q: %w", m, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func optionalInt(fields map[string]string, name string) (*int64, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad %s %q: %w", name, raw, err)
	}
	return &v, nil
}

func parseProfile(userID int64, fields map[string]string) (model.UserProfile, error) {
	p := model.UserProfile{ID: userID, Username: fields["username"]}
	if raw, ok := fields["level"]; ok {
		level, err := strconv.Atoi(raw)
		if err != nil {
			return model.UserProfile{}, fmt.Errorf("bad level %q for user %d: %w", raw, userID, err)
		}
		p.Level = level
	}
	if url, ok := fields["avatar_url"]; ok {
		avatarID, err := optionalInt(fields, "avatar_id")
		if err != nil {
			return model.UserProfile{}, err
		}
		p.SelectedAvatar = &model.Avatar{ImageURL: url}
		if avatarID != nil {
			p.SelectedAvatar.ID = *avatarID
		}
	}
	return p, nil
}
