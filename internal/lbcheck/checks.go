package lbcheck

import (
	"fmt"

	"github.com/okian/arcade/internal/domain/types"
)

// Result is the outcome of one check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Report collects check results.
type Report struct {
	Results []Result
	Games   int
	Rows    int
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Failures returns the failed checks.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) add(name string, err error) {
	res := Result{Name: name, Passed: err == nil}
	if err != nil {
		res.Detail = err.Error()
	}
	r.Results = append(r.Results, res)
}

func checkLimit(n, limit int) error {
	if n > limit {
		return fmt.Errorf("%d rows exceed limit %d", n, limit)
	}
	return nil
}

func checkDescending(scores []int64) error {
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[i-1] {
			return fmt.Errorf("row %d (%d) outranks row %d (%d)", i, scores[i], i-1, scores[i-1])
		}
	}
	return nil
}

func checkUnique(keys []string, what string) error {
	seen := make(map[string]int, len(keys))
	for i, k := range keys {
		if j, ok := seen[k]; ok {
			return fmt.Errorf("%s %q appears at rows %d and %d", what, k, j, i)
		}
		seen[k] = i
	}
	return nil
}

// checkGameBoard verifies one game's leaderboard.
func checkGameBoard(code string, board types.GameLeaderboard, limit int) error {
	if board.GameCode != code {
		return fmt.Errorf("game code echoed as %q", board.GameCode)
	}
	if err := checkLimit(len(board.Rows), limit); err != nil {
		return err
	}
	scores := make([]int64, len(board.Rows))
	users := make([]string, len(board.Rows))
	for i, row := range board.Rows {
		scores[i] = row.BestScore
		users[i] = row.Username
	}
	if err := checkDescending(scores); err != nil {
		return err
	}
	return checkUnique(users, "user")
}

// checkTopPerGame verifies the per-game view against the game codes and each
// game's own leader.
func checkTopPerGame(rows []types.GameRow, codes []string, leaders map[string]types.GameRow, limit int) error {
	if err := checkLimit(len(rows), limit); err != nil {
		return err
	}
	scores := make([]int64, len(rows))
	games := make([]string, len(rows))
	known := make(map[string]bool, len(codes))
	for _, c := range codes {
		known[c] = true
	}
	for i, row := range rows {
		scores[i] = row.BestScore
		games[i] = row.GameCode
		if !known[row.GameCode] {
			return fmt.Errorf("row %d names unknown game %q", i, row.GameCode)
		}
		if leader, ok := leaders[row.GameCode]; ok {
			if leader.Username != row.Username || leader.BestScore != row.BestScore {
				return fmt.Errorf("game %q: per-game row %s/%d differs from leader %s/%d",
					row.GameCode, row.Username, row.BestScore, leader.Username, leader.BestScore)
			}
		}
	}
	if err := checkDescending(scores); err != nil {
		return err
	}
	return checkUnique(games, "game")
}

// checkGlobal verifies the total score leaderboard.
func checkGlobal(rows []types.TotalRow, limit int) error {
	if err := checkLimit(len(rows), limit); err != nil {
		return err
	}
	scores := make([]int64, len(rows))
	users := make([]string, len(rows))
	for i, row := range rows {
		if row.TotalScore < 0 || row.TotalPlayed < 0 {
			return fmt.Errorf("row %d has negative totals", i)
		}
		scores[i] = row.TotalScore
		users[i] = row.Username
	}
	if err := checkDescending(scores); err != nil {
		return err
	}
	return checkUnique(users, "user")
}
