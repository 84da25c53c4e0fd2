package model

// Avatar is an unlockable profile picture.
type Avatar struct {
	ID       int64
	ImageURL string
}

// UserProfile is the read-only view of a player used to decorate rows.
type UserProfile struct {
	ID             int64
	Username       string
	Level          int
	SelectedAvatar *Avatar
}

// LeaderboardRow is one ranked entrant. GameCode is set only in cross-game views.
type LeaderboardRow struct {
	UserID      int64
	Username    string
	AvatarURL   *string
	Score       int64
	Level       int
	PlayedCount *int64
	GameCode    string
}
