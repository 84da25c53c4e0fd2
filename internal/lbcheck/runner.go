package lbcheck

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/arcade/internal/domain/types"
	"github.com/okian/arcade/pkg/logger"
)

type gameResult struct {
	code  string
	board types.GameLeaderboard
	err   error
}

// Run fetches every leaderboard and checks it. The returned error covers
// transport failures; check failures are reported in the Report.
func Run(ctx context.Context, cfg Config, log logger.Logger) (*Report, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	start := time.Now()
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting leaderboard check",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("limit", cfg.Limit),
		logger.Int("workers", cfg.Workers))

	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	codes, err := client.GameCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("game code retrieval failed: %w", err)
	}
	report := &Report{Games: len(codes)}
	report.add("game codes are unique", checkUnique(codes, "game"))

	results := fetchGames(ctx, client, codes, cfg)
	leaders := make(map[string]types.GameRow, len(results))
	for _, res := range results {
		if res.err != nil {
			return nil, fmt.Errorf("game %q retrieval failed: %w", res.code, res.err)
		}
		if cfg.Verbose {
			log.Debug(ctx, "fetched game leaderboard",
				logger.String("gameCode", res.code),
				logger.Int("rows", len(res.board.Rows)))
		}
		report.Rows += len(res.board.Rows)
		report.add("game "+res.code, checkGameBoard(res.code, res.board, cfg.Limit))
		if len(res.board.Rows) > 0 {
			leaders[res.code] = res.board.Rows[0]
		}
	}

	perGame, err := client.TopPerGame(ctx, cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("per-game retrieval failed: %w", err)
	}
	report.Rows += len(perGame)
	report.add("best per game", checkTopPerGame(perGame, codes, leaders, cfg.Limit))

	global, err := client.Global(ctx, cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("global retrieval failed: %w", err)
	}
	report.Rows += len(global)
	report.add("total score", checkGlobal(global, cfg.Limit))

	log.Info(ctx, "leaderboard check completed",
		logger.Int("games", report.Games),
		logger.Int("rows", report.Rows),
		logger.Int("failures", len(report.Failures())),
		logger.Duration("took", time.Since(start)))
	return report, nil
}

// fetchGames reads every game's leaderboard with a bounded worker pool.
// Results keep the order of codes.
func fetchGames(ctx context.Context, client *Client, codes []string, cfg Config) []gameResult {
	results := make([]gameResult, len(codes))
	jobs := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				board, err := client.Game(ctx, codes[i], cfg.Limit)
				results[i] = gameResult{code: codes[i], board: board, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range codes {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()

	for i := range results {
		if results[i].code == "" && results[i].err == nil {
			results[i] = gameResult{code: codes[i], err: ctx.Err()}
		}
	}
	return results
}
