package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	// ErrUserNotFound is returned by a ProfileStore when a user id does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrStore marks failures coming from the score or profile store.
	ErrStore = errors.New("leaderboard store failed")
)
