package repository

import "github.com/okian/arcade/internal/domain/model"

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithRecords preloads score records. Records without a game code are ignored.
func WithRecords(recs ...model.ScoreRecord) MemoryOption {
	return func(s *MemoryStore) {
		for _, rec := range recs {
			_ = s.put(rec)
		}
	}
}

// WithProfiles preloads user profiles.
func WithProfiles(profiles ...model.UserProfile) MemoryOption {
	return func(s *MemoryStore) {
		for _, p := range profiles {
			s.putProfile(p)
		}
	}
}
