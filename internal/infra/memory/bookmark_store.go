package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-session-service/internal/domain"
)

// BookmarkStore keeps bookmarks per user keyed by question id.
type BookmarkStore struct {
	mu        sync.RWMutex
	bookmarks map[string]map[string]domain.Bookmark
}

func NewBookmarkStore() *BookmarkStore {
	return &BookmarkStore{
		bookmarks: make(map[string]map[string]domain.Bookmark),
	}
}

func (s *BookmarkStore) Save(_ context.Context, userID string, bookmark domain.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byQuestion, ok := s.bookmarks[userID]
	if !ok {
		byQuestion = make(map[string]domain.Bookmark)
		s.bookmarks[userID] = byQuestion
	}
	byQuestion[bookmark.QuestionID] = bookmark
	return nil
}

func (s *BookmarkStore) Remove(_ context.Context, userID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookmarks[userID][questionID]; !ok {
		return domain.ErrBookmarkNotFound
	}
	delete(s.bookmarks[userID], questionID)
	return nil
}

// List returns bookmarks newest first.
func (s *BookmarkStore) List(_ context.Context, userID string) ([]domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Bookmark, 0, len(s.bookmarks[userID]))
	for _, b := range s.bookmarks[userID] {
		out = append(out, b)
	}
	SortBookmarks(out)
	return out, nil
}

// SortBookmarks orders bookmarks newest first, then by question id.
func SortBookmarks(bookmarks []domain.Bookmark) {
	sort.Slice(bookmarks, func(i, j int) bool {
		if !bookmarks[i].CreatedAt.Equal(bookmarks[j].CreatedAt) {
			return bookmarks[i].CreatedAt.After(bookmarks[j].CreatedAt)
		}
		return bookmarks[i].QuestionID < bookmarks[j].QuestionID
	})
}
