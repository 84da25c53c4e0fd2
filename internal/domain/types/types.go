// Package types contains the JSON shapes returned by the leaderboard API.
package types

import "github.com/okian/arcade/internal/domain/model"

// GameRow is a single-game leaderboard row. GameCode is filled only in the
// top-per-game view.
type GameRow struct {
	Username    string  `json:"username"`
	AvatarURL   *string `json:"avatarUrl"`
	BestScore   int64   `json:"bestScore"`
	Level       int     `json:"level"`
	PlayedCount *int64  `json:"playedCount"`
	GameCode    string  `json:"gameCode,omitempty"`
}

// TotalRow is a row of the cross-game total-score leaderboard.
type TotalRow struct {
	Username    string  `json:"username"`
	AvatarURL   *string `json:"avatarUrl"`
	TotalScore  int64   `json:"totalScore"`
	TotalPlayed int64   `json:"totalPlayed"`
	Level       int     `json:"level"`
}

// GameLeaderboard wraps the rows of one game with the requested code.
type GameLeaderboard struct {
	Rows     []GameRow `json:"rows"`
	GameCode string    `json:"gameCode"`
}

// GameRows converts engine rows to their JSON shape, preserving order.
func GameRows(rows []model.LeaderboardRow) []GameRow {
	out := make([]GameRow, len(rows))
	for i, r := range rows {
		out[i] = GameRow{
			Username:    r.Username,
			AvatarURL:   r.AvatarURL,
			BestScore:   r.Score,
			Level:       r.Level,
			PlayedCount: r.PlayedCount,
			GameCode:    r.GameCode,
		}
	}
	return out
}

// TotalRows converts total-score rows to their JSON shape, preserving order.
func TotalRows(rows []model.LeaderboardRow) []TotalRow {
	out := make([]TotalRow, len(rows))
	for i, r := range rows {
		var played int64
		if r.PlayedCount != nil {
			played = *r.PlayedCount
		}
		out[i] = TotalRow{
			Username:    r.Username,
			AvatarURL:   r.AvatarURL,
			TotalScore:  r.Score,
			TotalPlayed: played,
			Level:       r.Level,
		}
	}
	return out
}
