// Package model contains domain models passed between layers.
package model

// ScoreRecord is a user's progress on a single game. The store keeps at most
// one record per (UserID, GameCode) pair.
type ScoreRecord struct {
	UserID      int64
	GameCode    string
	BestScore   *int64 // nil when the user never finished a run
	PlayedCount *int64 // nil when the store has no counter yet
}

// Best returns the best score, treating an absent value as zero.
func (r ScoreRecord) Best() int64 {
	return valueOrZero(r.BestScore)
}

// Played returns the play count, treating an absent value as zero.
func (r ScoreRecord) Played() int64 {
	return valueOrZero(r.PlayedCount)
}

func valueOrZero(v *int64) int64 {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

// Int64 returns a pointer to v. Handy for building records in loaders and tests.
func Int64(v int64) *int64 { return &v }

// Totals is a user's aggregate over all games they have a record for.
type Totals struct {
	Score  int64
	Played int64
}

// Add folds a record into the totals.
func (t Totals) Add(r ScoreRecord) Totals {
	return Totals{
		Score:  t.Score + r.Best(),
		Played: t.Played + r.Played(),
	}
}
