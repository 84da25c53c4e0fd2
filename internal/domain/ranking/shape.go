package ranking

import "github.com/okian/arcade/internal/domain/model"

// AvatarURL returns the image URL of the user's selected avatar, or nil when
// the profile is missing or has no avatar selected.
func AvatarURL(u *model.UserProfile) *string {
	if u == nil || u.SelectedAvatar == nil {
		return nil
	}
	url := u.SelectedAvatar.ImageURL
	return &url
}

func gameRow(rec model.ScoreRecord, u *model.UserProfile, gameCode string) model.LeaderboardRow {
	var played *int64
	if rec.PlayedCount != nil {
		played = model.Int64(rec.Played())
	}
	return model.LeaderboardRow{
		UserID:      u.ID,
		Username:    u.Username,
		AvatarURL:   AvatarURL(u),
		Score:       rec.Best(),
		Level:       u.Level,
		PlayedCount: played,
		GameCode:    gameCode,
	}
}

func totalRow(u *model.UserProfile, totals model.Totals) model.LeaderboardRow {
	return model.LeaderboardRow{
		UserID:      u.ID,
		Username:    u.Username,
		AvatarURL:   AvatarURL(u),
		Score:       totals.Score,
		Level:       u.Level,
		PlayedCount: model.Int64(totals.Played),
	}
}
