package progress

import (
	"context"
	"sync"

	"github.com/korjavin/swiftcamp/models"
)

// Store persists the single progress record
type Store interface {
	// LoadProgress returns the stored record and whether one exists
	LoadProgress(ctx context.Context) (models.UserProgress, bool, error)
	SaveProgress(ctx context.Context, p models.UserProgress) error
	DeleteProgress(ctx context.Context) error
}

// MemoryStore keeps the record in memory. Set LoadErr or SaveErr to simulate failures.
type MemoryStore struct {
	mu      sync.Mutex
	record  *models.UserProgress
	saves   int
	LoadErr error
	SaveErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) LoadProgress(ctx context.Context) (models.UserProgress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return models.UserProgress{}, false, s.LoadErr
	}
	if s.record == nil {
		return models.UserProgress{}, false, nil
	}
	return s.record.Clone(), true, nil
}

func (s *MemoryStore) SaveProgress(ctx context.Context, p models.UserProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	c := p.Clone()
	s.record = &c
	s.saves++
	return nil
}

func (s *MemoryStore) DeleteProgress(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = nil
	return nil
}

// Saves returns how many successful writes the store received
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
