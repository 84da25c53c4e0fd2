// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	repository "github.com/okian/arcade/internal/adapters/repository"
	"github.com/okian/arcade/internal/domain/ranking"
	"github.com/okian/arcade/internal/domain/types"
	"github.com/okian/arcade/pkg/logger"
	"github.com/okian/arcade/pkg/metrics"
)

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store         repository.Store
	storeInjected bool
	engine        *ranking.Engine

	// Configuration
	repoConfig            repository.Config
	concurrency           int
	storeTimeout          time.Duration
	systemMetricsInterval time.Duration

	// State
	started   bool
	startedAt time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRepository selects the backend Start opens.
func WithRepository(cfg repository.Config) Option {
	return func(s *Service) {
		s.repoConfig = cfg
	}
}

// WithStore injects an already opened store. The caller owns it: Stop
// leaves it open and a later Start reuses it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
		s.storeInjected = store != nil
	}
}

// WithConcurrency bounds concurrent per-game lookups.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithSystemMetricsInterval sets how often runtime gauges are refreshed.
func WithSystemMetricsInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.systemMetricsInterval = d
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		repoConfig:            repository.Config{Backend: repository.BackendMemory},
		concurrency:           runtime.NumCPU(),
		systemMetricsInterval: metrics.RefreshInterval(),
		stopCh:                make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store and builds the ranking engine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting leaderboard service...")

	if s.store == nil {
		cfg := s.repoConfig
		if cfg.Logger == nil {
			cfg.Logger = s.logger.Named("repository")
		}
		store, err := repository.Open(ctx, cfg)
		if err != nil {
			return err
		}
		s.store = store
	}

	s.engine = ranking.New(s.store, s.store,
		ranking.WithLogger(s.logger.Named("ranking")),
		ranking.WithConcurrency(s.concurrency),
		ranking.WithStoreTimeout(s.storeTimeout),
	)

	s.stopCh = make(chan struct{})
	if metrics.Enabled() {
		s.startSystemMetrics()
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "leaderboard service started",
		logger.String("backend", s.backend()),
		logger.Int("concurrency", s.concurrency),
		logger.Duration("storeTimeout", s.storeTimeout),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping leaderboard service...")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.wg.Wait()

	if s.store != nil && !s.storeInjected {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
		}
		s.store = nil
	}

	s.started = false
	s.logger.Info(context.Background(), "leaderboard service stopped")
}

// startSystemMetrics refreshes runtime gauges until Stop.
func (s *Service) startSystemMetrics() {
	s.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer s.wg.Done()
		ticker := time.NewTicker(s.systemMetricsInterval)
		defer ticker.Stop()

		var lastNumGC uint32
		for {
			collectSystemMetrics(&lastNumGC)
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}(s.stopCh)
}

func collectSystemMetrics(lastNumGC *uint32) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	metrics.UpdateSystemMemoryUsage(ms.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if ms.NumGC != *lastNumGC && ms.NumGC > 0 {
		pause := ms.PauseNs[(ms.NumGC+255)%256]
		metrics.RecordSystemGCPauseTime(float64(pause) / float64(time.Millisecond))
		*lastNumGC = ms.NumGC
	}
}

// ranking returns the engine or ErrNotStarted.
func (s *Service) ranking() (*ranking.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.engine, nil
}

// observe records a served or failed query and logs failures.
func (s *Service) observe(ctx context.Context, kind string, start time.Time, rows int, err error) {
	if err != nil {
		metrics.RecordLeaderboardError(kind)
		s.logger.Error(ctx, "leaderboard query failed",
			logger.String("kind", kind),
			logger.Error(err),
		)
		return
	}
	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordLeaderboardQuery(kind, latencyMs, rows)
}

// TopForGame returns the best players of one game.
func (s *Service) TopForGame(ctx context.Context, gameCode string, limit int) (types.GameLeaderboard, error) {
	start := time.Now()
	engine, err := s.ranking()
	if err != nil {
		return types.GameLeaderboard{}, err
	}
	rows, err := engine.TopForGame(ctx, gameCode, limit)
	s.observe(ctx, metrics.KindGame, start, len(rows), err)
	if err != nil {
		return types.GameLeaderboard{}, err
	}
	return types.GameLeaderboard{Rows: types.GameRows(rows), GameCode: gameCode}, nil
}

// TopAcrossAllGames returns the best player of every game.
func (s *Service) TopAcrossAllGames(ctx context.Context, limit int) ([]types.GameRow, error) {
	start := time.Now()
	engine, err := s.ranking()
	if err != nil {
		return nil, err
	}
	rows, err := engine.TopAcrossAllGames(ctx, limit)
	s.observe(ctx, metrics.KindPerGame, start, len(rows), err)
	if err != nil {
		return nil, err
	}
	return types.GameRows(rows), nil
}

// TotalScoreLeaderboard ranks users by the sum of their best scores.
func (s *Service) TotalScoreLeaderboard(ctx context.Context, limit int) ([]types.TotalRow, error) {
	start := time.Now()
	engine, err := s.ranking()
	if err != nil {
		return nil, err
	}
	rows, err := engine.TotalScoreLeaderboard(ctx, limit)
	s.observe(ctx, metrics.KindTotal, start, len(rows), err)
	if err != nil {
		return nil, err
	}
	return types.TotalRows(rows), nil
}

// GameCodes lists the games that have leaderboards.
func (s *Service) GameCodes(ctx context.Context) ([]string, error) {
	start := time.Now()
	engine, err := s.ranking()
	if err != nil {
		return nil, err
	}
	codes, err := engine.DistinctGameCodes(ctx)
	s.observe(ctx, metrics.KindGameCodes, start, len(codes), err)
	return codes, err
}

// Ping checks the store when it supports it.
func (s *Service) Ping(ctx context.Context) error {
	s.mu.RLock()
	started, store := s.started, s.store
	s.mu.RUnlock()

	if !started {
		return ErrNotStarted
	}
	if p, ok := store.(repository.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"backend":     s.backend(),
		"concurrency": s.concurrency,
	}
	if s.storeTimeout > 0 {
		stats["storeTimeoutMs"] = s.storeTimeout.Milliseconds()
	}

	if s.started {
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())

		ctx := context.Background()
		if s.storeTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.storeTimeout)
			defer cancel()
		}
		if codes, err := s.engine.DistinctGameCodes(ctx); err == nil {
			stats["games"] = len(codes)
		}
		if users, err := s.store.FindAll(ctx); err == nil {
			stats["users"] = len(users)
		}
	}

	return stats
}

func (s *Service) backend() string {
	if s.repoConfig.Backend == "" {
		return repository.BackendMemory
	}
	return s.repoConfig.Backend
}
