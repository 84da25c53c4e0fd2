// Package repository holds the read-side score and profile stores the
// ranking engine runs on: an in-memory treap store, Redis and Postgres.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/arcade/internal/domain/model"
	"github.com/okian/arcade/internal/domain/ranking"
	"github.com/okian/arcade/pkg/metrics"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Store operation labels used in metrics.
const (
	opTopByGame   = "find_top_by_game"
	opAllForUser  = "find_all_for_user"
	opGameCodes   = "find_distinct_game_codes"
	opProfileByID = "find_profile_by_id"
	opAllProfiles = "find_all_profiles"
	opTotals      = "totals_by_user"
	opPut         = "put"
	opPutProfile  = "put_profile"
	opPing        = "ping"
)

// Store is a complete leaderboard backend.
type Store interface {
	ranking.ScoreStore
	ranking.ProfileStore
	Close() error
}

// Loader writes records and profiles into a store. Seeding and tests use it.
type Loader interface {
	Put(ctx context.Context, rec model.ScoreRecord) error
	PutProfile(ctx context.Context, p model.UserProfile) error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	_ Store                    = (*MemoryStore)(nil)
	_ Store                    = (*RedisStore)(nil)
	_ Store                    = (*SQLStore)(nil)
	_ Loader                   = (*MemoryStore)(nil)
	_ Loader                   = (*RedisStore)(nil)
	_ Pinger                   = (*RedisStore)(nil)
	_ Pinger                   = (*SQLStore)(nil)
	_ ranking.TotalsAggregator = (*SQLStore)(nil)
)

func validRecord(rec model.ScoreRecord) error {
	if rec.GameCode == "" {
		return ErrInvalidRecord
	}
	return nil
}

// observe records one store call in metrics. A missing user is an answer,
// not a failure.
func observe(backend, op string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	metrics.RecordStoreCall(backend, op, float64(time.Since(start).Microseconds())/1000, err)
}
