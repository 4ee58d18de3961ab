package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"
)

type SettingsStore struct {
	mu       sync.RWMutex
	settings map[string]domain.Settings
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{settings: make(map[string]domain.Settings)}
}

func (s *SettingsStore) Get(_ context.Context, userID string) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.settings[userID]
	if !ok {
		return domain.Settings{}, domain.ErrSettingsNotFound
	}
	return settings, nil
}

func (s *SettingsStore) Put(_ context.Context, userID string, settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[userID] = settings
	return nil
}
