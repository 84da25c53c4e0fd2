package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/arcade/pkg/logger"
)

// Config selects and configures a backend.
type Config struct {
	Backend     string
	SeedFile    string
	Redis       RedisConfig
	PostgresDSN string
	Logger      logger.Logger
}

// Open builds the configured store. A seed file, when set, is loaded into
// the memory and Redis backends.
func Open(ctx context.Context, cfg Config) (Store, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	var (
		store  Store
		loader Loader
	)
	switch cfg.Backend {
	case BackendMemory, "":
		m := NewMemoryStore()
		store, loader = m, m
	case BackendRedis:
		r, err := NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		store, loader = r, r
	case BackendPostgres:
		s, err := NewSQLStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	if cfg.SeedFile == "" {
		log.Info(ctx, "store opened", logger.String("backend", backendName(cfg.Backend)))
		return store, nil
	}
	if loader == nil {
		log.Warn(ctx, "seed file ignored for read-only backend",
			logger.String("backend", cfg.Backend),
			logger.String("seedFile", cfg.SeedFile))
		return store, nil
	}

	start := time.Now()
	seed, err := LoadSeed(cfg.SeedFile)
	if err == nil {
		err = seed.Apply(ctx, loader)
	}
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	log.Info(ctx, "store opened and seeded",
		logger.String("backend", backendName(cfg.Backend)),
		logger.String("seedFile", cfg.SeedFile),
		logger.Int("users", len(seed.Users)),
		logger.Int("records", len(seed.Progress)),
		logger.Duration("took", time.Since(start)))
	return store, nil
}

func backendName(b string) string {
	if b == "" {
		return BackendMemory
	}
	return b
}
