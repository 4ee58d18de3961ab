package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

// BookmarkStore keeps bookmarks in a hash per user:
// HSET quiz:bookmarks:{userID} {questionID} {bookmark}
type BookmarkStore struct {
	client *redis.Client
}

func NewBookmarkStore(client *redis.Client) *BookmarkStore {
	return &BookmarkStore{client: client}
}

func (s *BookmarkStore) Save(ctx context.Context, userID string, bookmark domain.Bookmark) error {
	raw, err := json.Marshal(bookmark)
	if err != nil {
		return fmt.Errorf("marshal bookmark: %w", err)
	}
	return s.client.HSet(ctx, s.key(userID), bookmark.QuestionID, raw).Err()
}

func (s *BookmarkStore) Remove(ctx context.Context, userID, questionID string) error {
	removed, err := s.client.HDel(ctx, s.key(userID), questionID).Result()
	if err != nil {
		return fmt.Errorf("remove bookmark: %w", err)
	}
	if removed == 0 {
		return domain.ErrBookmarkNotFound
	}
	return nil
}

func (s *BookmarkStore) List(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	all, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	out := make([]domain.Bookmark, 0, len(all))
	for _, raw := range all {
		var b domain.Bookmark
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("unmarshal bookmark: %w", err)
		}
		out = append(out, b)
	}
	memory.SortBookmarks(out)
	return out, nil
}

func (s *BookmarkStore) key(userID string) string {
	return "quiz:bookmarks:" + userID
}
