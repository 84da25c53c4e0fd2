package repository

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/arcade/internal/domain/model"
)

// Seed is a fixture of users and progress records.
//
//	users:
//	  - id: 1
//	    username: alice
//	    level: 3
//	    avatar: {id: 9, imageUrl: /img/cat.png}
//	progress:
//	  - userId: 1
//	    gameCode: quiz
//	    bestScore: 50
//	    playedCount: 4
type Seed struct {
	Users    []SeedUser     `yaml:"users"`
	Progress []SeedProgress `yaml:"progress"`
}

// SeedUser is one user profile in a seed file.
type SeedUser struct {
	ID       int64       `yaml:"id"`
	Username string      `yaml:"username"`
	Level    int         `yaml:"level"`
	Avatar   *SeedAvatar `yaml:"avatar"`
}

// SeedAvatar is the selected avatar of a seed user.
type SeedAvatar struct {
	ID       int64  `yaml:"id"`
	ImageURL string `yaml:"imageUrl"`
}

// SeedProgress is one (user, game) record. Omitted numbers stay absent.
type SeedProgress struct {
	UserID      int64  `yaml:"userId"`
	GameCode    string `yaml:"gameCode"`
	BestScore   *int64 `yaml:"bestScore"`
	PlayedCount *int64 `yaml:"playedCount"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML. Unknown fields are rejected.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &seed, nil
}

// Apply writes every user and record of the seed into l.
func (s *Seed) Apply(ctx context.Context, l Loader) error {
	for _, u := range s.Users {
		p := model.UserProfile{ID: u.ID, Username: u.Username, Level: u.Level}
		if u.Avatar != nil {
			p.SelectedAvatar = &model.Avatar{ID: u.Avatar.ID, ImageURL: u.Avatar.ImageURL}
		}
		if err := l.PutProfile(ctx, p); err != nil {
			return fmt.Errorf("seed user %d: %w", u.ID, err)
		}
	}
	for _, r := range s.Progress {
		rec := model.ScoreRecord{
			UserID:      r.UserID,
			GameCode:    r.GameCode,
			BestScore:   r.BestScore,
			PlayedCount: r.PlayedCount,
		}
		if err := l.Put(ctx, rec); err != nil {
			return fmt.Errorf("seed progress %d/%q: %w", r.UserID, r.GameCode, err)
		}
	}
	return nil
}
