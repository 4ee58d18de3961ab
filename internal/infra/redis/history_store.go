package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/domain"
)

// HistoryStore keeps finished attempts as JSON in a capped list per user:
// LPUSH quiz:history:{userID} {entry}; LTRIM 0 limit-1
type HistoryStore struct {
	client *redis.Client
	limit  int
}

func NewHistoryStore(client *redis.Client, limit int) *HistoryStore {
	return &HistoryStore{client: client, limit: limit}
}

func (s *HistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	key := s.key(entry.UserID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	if s.limit > 0 {
		pipe.LTrim(ctx, key, 0, int64(s.limit-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *HistoryStore) List(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raws, err := s.client.LRange(ctx, s.key(userID), 0, stop).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	out := make([]domain.HistoryEntry, 0, len(raws))
	for _, raw := range raws {
		var entry domain.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal history entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *HistoryStore) Clear(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *HistoryStore) key(userID string) string {
	return "quiz:history:" + userID
}
