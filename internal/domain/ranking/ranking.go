// Package ranking computes leaderboards from score and profile snapshots.
//
// The Engine holds no state between calls: each operation reads the stores,
// aggregates, sorts and truncates. Per-game top N pushes ordering and the
// limit down to the store. The total-score view cannot, so it aggregates
// every user in memory and sorts once, unless the store offers a
// TotalsAggregator.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/arcade/internal/domain/model"
	"github.com/okian/arcade/pkg/logger"
	"github.com/okian/arcade/pkg/metrics"
)

const defaultConcurrency = 4

// ScoreStore is the read side of the per-user, per-game progress records.
type ScoreStore interface {
	// FindTopByGame returns at most limit records for gameCode ordered by
	// best score descending.
	FindTopByGame(ctx context.Context, gameCode string, limit int) ([]model.ScoreRecord, error)
	// FindAllForUser returns every record the user has, in any order.
	FindAllForUser(ctx context.Context, userID int64) ([]model.ScoreRecord, error)
	// FindDistinctGameCodes lists the games with at least one record.
	FindDistinctGameCodes(ctx context.Context) ([]string, error)
}

// ProfileStore resolves user profiles.
type ProfileStore interface {
	// FindByID returns ErrUserNotFound when the user does not exist.
	FindByID(ctx context.Context, userID int64) (*model.UserProfile, error)
	FindAll(ctx context.Context) ([]model.UserProfile, error)
}

// TotalsAggregator is implemented by score stores that can sum best scores
// and play counts per user in a single query.
type TotalsAggregator interface {
	TotalsByUser(ctx context.Context) (map[int64]model.Totals, error)
}

// Engine produces ordered leaderboard views. It is safe for concurrent use.
type Engine struct {
	scores       ScoreStore
	profiles     ProfileStore
	logger       logger.Logger
	concurrency  int
	storeTimeout time.Duration
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets the logger used for skipped rows.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithConcurrency bounds the number of per-game lookups in flight for the
// top-per-game view.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithStoreTimeout applies a deadline to every individual store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.storeTimeout = d
		}
	}
}

// New builds an Engine over the given stores.
func New(scores ScoreStore, profiles ProfileStore, opts ...Option) *Engine {
	e := &Engine{
		scores:      scores,
		profiles:    profiles,
		logger:      logger.Nop(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TopForGame returns the best limit players of one game.
func (e *Engine) TopForGame(ctx context.Context, gameCode string, limit int) ([]model.LeaderboardRow, error) {
	if limit <= 0 {
		return []model.LeaderboardRow{}, nil
	}

	records, err := e.findTopByGame(ctx, gameCode, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: top for game %q: %w", ErrStore, gameCode, err)
	}

	rows := make([]model.LeaderboardRow, 0, len(records))
	for _, rec := range records {
		if len(rows) == limit {
			break
		}
		profile, err := e.resolve(ctx, rec.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: top for game %q: %w", ErrStore, gameCode, err)
		}
		if profile == nil {
			e.dropped(ctx, metrics.KindGame, rec)
			continue
		}
		rows = append(rows, gameRow(rec, profile, ""))
	}
	return rows, nil
}

// TopAcrossAllGames returns the single best player of every game, ordered by
// score and truncated to limit. Each game is ranked on its own first so a
// low-scoring game still gets its representative.
func (e *Engine) TopAcrossAllGames(ctx context.Context, limit int) ([]model.LeaderboardRow, error) {
	if limit <= 0 {
		return []model.LeaderboardRow{}, nil
	}

	codes, err := e.DistinctGameCodes(ctx)
	if err != nil {
		return nil, err
	}

	// slots keeps game-code order so equal scores stay in retrieval order.
	slots := make([]*model.LeaderboardRow, len(codes))

	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		sem      = make(chan struct{}, e.concurrency)
	)
	for i, code := range codes {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return
			}
			row, err := e.bestOfGame(gctx, code)
			if err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			slots[i] = row
		}(i, code)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: top across games: %w", ErrStore, err)
	}

	rows := make([]model.LeaderboardRow, 0, len(slots))
	for _, row := range slots {
		if row != nil {
			rows = append(rows, *row)
		}
	}
	sortByScore(rows)
	return truncate(rows, limit), nil
}

// bestOfGame returns the top row of a game, or nil when the game has no
// records or its top record points at a missing user.
func (e *Engine) bestOfGame(ctx context.Context, code string) (*model.LeaderboardRow, error) {
	records, err := e.findTopByGame(ctx, code, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: best of game %q: %w", ErrStore, code, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	rec := records[0]
	profile, err := e.resolve(ctx, rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: best of game %q: %w", ErrStore, code, err)
	}
	if profile == nil {
		e.dropped(ctx, metrics.KindPerGame, rec)
		return nil, nil
	}
	row := gameRow(rec, profile, code)
	return &row, nil
}

// TotalScoreLeaderboard ranks every user by the sum of their best scores
// across all games. The whole population is aggregated before sorting.
func (e *Engine) TotalScoreLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardRow, error) {
	if limit <= 0 {
		return []model.LeaderboardRow{}, nil
	}

	callCtx, done := e.storeCtx(ctx)
	users, err := e.profiles.FindAll(callCtx)
	done()
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %w", ErrStore, err)
	}
	metrics.UpdateTotalUsers(len(users))

	totalsOf, err := e.totalsLookup(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(users))
	rows := make([]model.LeaderboardRow, 0, len(users))
	for i := range users {
		u := &users[i]
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}

		totals, err := totalsOf(u.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, totalRow(u, totals))
	}

	sortByScore(rows)
	return truncate(rows, limit), nil
}

// totalsLookup returns a per-user totals function, backed by a single
// aggregate query when the store supports it and by a per-user scan otherwise.
func (e *Engine) totalsLookup(ctx context.Context) (func(int64) (model.Totals, error), error) {
	if agg, ok := e.scores.(TotalsAggregator); ok {
		callCtx, done := e.storeCtx(ctx)
		all, err := agg.TotalsByUser(callCtx)
		done()
		if err != nil {
			return nil, fmt.Errorf("%w: totals by user: %w", ErrStore, err)
		}
		return func(userID int64) (model.Totals, error) {
			return all[userID], nil
		}, nil
	}

	return func(userID int64) (model.Totals, error) {
		callCtx, done := e.storeCtx(ctx)
		records, err := e.scores.FindAllForUser(callCtx, userID)
		done()
		if err != nil {
			return model.Totals{}, fmt.Errorf("%w: records of user %d: %w", ErrStore, userID, err)
		}
		var totals model.Totals
		for _, rec := range records {
			totals = totals.Add(rec)
		}
		return totals, nil
	}, nil
}

// DistinctGameCodes lists the games that currently have leaderboards.
func (e *Engine) DistinctGameCodes(ctx context.Context) ([]string, error) {
	callCtx, done := e.storeCtx(ctx)
	defer done()
	codes, err := e.scores.FindDistinctGameCodes(callCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: distinct game codes: %w", ErrStore, err)
	}
	if codes == nil {
		codes = []string{}
	}
	metrics.UpdateDistinctGameCodes(len(codes))
	return codes, nil
}

func (e *Engine) findTopByGame(ctx context.Context, code string, limit int) ([]model.ScoreRecord, error) {
	callCtx, done := e.storeCtx(ctx)
	defer done()
	return e.scores.FindTopByGame(callCtx, code, limit)
}

// resolve returns nil, nil when the user does not exist.
func (e *Engine) resolve(ctx context.Context, userID int64) (*model.UserProfile, error) {
	callCtx, done := e.storeCtx(ctx)
	defer done()
	profile, err := e.profiles.FindByID(callCtx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.storeTimeout)
}

func (e *Engine) dropped(ctx context.Context, kind string, rec model.ScoreRecord) {
	metrics.RecordDroppedRow(kind)
	e.logger.Debug(ctx, "skipping score record with unknown user",
		logger.String("kind", kind),
		logger.String("gameCode", rec.GameCode),
		logger.Int64("userID", rec.UserID),
	)
}

// sortByScore orders rows by score descending, keeping input order on ties.
func sortByScore(rows []model.LeaderboardRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})
}

func truncate(rows []model.LeaderboardRow, limit int) []model.LeaderboardRow {
	if limit < len(rows) {
		return rows[:limit]
	}
	return rows
}
