package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"
)

// HistoryStore keeps finished attempts per user, newest first, capped at limit.
type HistoryStore struct {
	limit   int
	mu      sync.RWMutex
	entries map[string][]domain.HistoryEntry
}

func NewHistoryStore(limit int) *HistoryStore {
	return &HistoryStore{
		limit:   limit,
		entries: make(map[string][]domain.HistoryEntry),
	}
}

func (s *HistoryStore) Append(_ context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]domain.HistoryEntry{entry}, s.entries[entry.UserID]...)
	if s.limit > 0 && len(list) > s.limit {
		list = list[:s.limit]
	}
	s.entries[entry.UserID] = list
	return nil
}

func (s *HistoryStore) List(_ context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.entries[userID]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]domain.HistoryEntry, len(list))
	copy(out, list)
	return out, nil
}

func (s *HistoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
