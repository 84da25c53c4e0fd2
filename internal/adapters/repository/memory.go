package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/arcade/internal/domain/model"
)

// board is one game's leaderboard: a treap for ordering plus the records.
type board struct {
	root   *node
	byUser map[int64]model.ScoreRecord
}

// MemoryStore is an in-memory Store. Each game keeps its own treap so
// FindTopByGame walks only the first limit nodes.
type MemoryStore struct {
	mu sync.RWMutex

	games     map[string]*board
	gameOrder []string
	userGames map[int64][]string

	profiles     map[int64]model.UserProfile
	profileOrder []int64
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		games:     make(map[string]*board),
		userGames: make(map[int64][]string),
		profiles:  make(map[int64]model.UserProfile),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put inserts or replaces the record for (user, game).
func (s *MemoryStore) Put(_ context.Context, rec model.ScoreRecord) error {
	start := time.Now()
	err := s.put(rec)
	observe(BackendMemory, opPut, start, err)
	return err
}

func (s *MemoryStore) put(rec model.ScoreRecord) error {
	if err := validRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.games[rec.GameCode]
	if !ok {
		b = &board{byUser: make(map[int64]model.ScoreRecord)}
		s.games[rec.GameCode] = b
		s.gameOrder = append(s.gameOrder, rec.GameCode)
	}
	if old, ok := b.byUser[rec.UserID]; ok {
		b.root = deleteNode(b.root, rec.UserID, old.Best())
	} else {
		s.userGames[rec.UserID] = append(s.userGames[rec.UserID], rec.GameCode)
	}
	b.byUser[rec.UserID] = copyRecord(rec)
	b.root = insert(b.root, rec.UserID, rec.Best())
	return nil
}

// PutProfile inserts or replaces a user profile.
func (s *MemoryStore) PutProfile(_ context.Context, p model.UserProfile) error {
	start := time.Now()
	s.putProfile(p)
	observe(BackendMemory, opPutProfile, start, nil)
	return nil
}

func (s *MemoryStore) putProfile(p model.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; !ok {
		s.profileOrder = append(s.profileOrder, p.ID)
	}
	s.profiles[p.ID] = copyProfile(p)
}

// FindTopByGame returns at most limit records ordered by best score desc,
// ties by user ID asc.
func (s *MemoryStore) FindTopByGame(_ context.Context, gameCode string, limit int) ([]model.ScoreRecord, error) {
	start := time.Now()
	defer observe(BackendMemory, opTopByGame, start, nil)

	if limit <= 0 {
		return []model.ScoreRecord{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.games[gameCode]
	if !ok {
		return []model.ScoreRecord{}, nil
	}
	users := make([]int64, 0, min(limit, nsize(b.root)))
	collectTop(b.root, limit, &users)

	out := make([]model.ScoreRecord, 0, len(users))
	for _, id := range users {
		out = append(out, copyRecord(b.byUser[id]))
	}
	return out, nil
}

// FindAllForUser returns the user's records in the order games were first seen.
func (s *MemoryStore) FindAllForUser(_ context.Context, userID int64) ([]model.ScoreRecord, error) {
	start := time.Now()
	defer observe(BackendMemory, opAllForUser, start, nil)

	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := s.userGames[userID]
	out := make([]model.ScoreRecord, 0, len(codes))
	for _, code := range codes {
		out = append(out, copyRecord(s.games[code].byUser[userID]))
	}
	return out, nil
}

// FindDistinctGameCodes lists games in the order they were first seen.
func (s *MemoryStore) FindDistinctGameCodes(_ context.Context) ([]string, error) {
	start := time.Now()
	defer observe(BackendMemory, opGameCodes, start, nil)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.gameOrder...), nil
}

// FindByID returns ErrNotFound for unknown users.
func (s *MemoryStore) FindByID(_ context.Context, userID int64) (*model.UserProfile, error) {
	start := time.Now()

	s.mu.RLock()
	p, ok := s.profiles[userID]
	s.mu.RUnlock()
	observe(BackendMemory, opProfileByID, start, nil)

	if !ok {
		return nil, ErrNotFound
	}
	out := copyProfile(p)
	return &out, nil
}

// FindAll returns every profile in insertion order.
func (s *MemoryStore) FindAll(_ context.Context) ([]model.UserProfile, error) {
	start := time.Now()
	defer observe(BackendMemory, opAllProfiles, start, nil)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.UserProfile, 0, len(s.profileOrder))
	for _, id := range s.profileOrder {
		out = append(out, copyProfile(s.profiles[id]))
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func copyRecord(rec model.ScoreRecord) model.ScoreRecord {
	if rec.BestScore != nil {
		rec.BestScore = model.Int64(*rec.BestScore)
	}
	if rec.PlayedCount != nil {
		rec.PlayedCount = model.Int64(*rec.PlayedCount)
	}
	return rec
}

func copyProfile(p model.UserProfile) model.UserProfile {
	if p.SelectedAvatar != nil {
		a := *p.SelectedAvatar
		p.SelectedAvatar = &a
	}
	return p
}
