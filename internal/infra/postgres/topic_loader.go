package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-session-service/internal/domain"
)

// TopicLoader loads topics from Postgres. Questions are stored as a JSONB array.
type TopicLoader struct {
	pool *pgxpool.Pool
}

func NewTopicLoader(pool *pgxpool.Pool) *TopicLoader {
	return &TopicLoader{pool: pool}
}

func (l *TopicLoader) LoadTopic(ctx context.Context, topicID string) (domain.Topic, error) {
	topic := domain.Topic{ID: topicID}
	var raw []byte
	err := l.pool.QueryRow(ctx,
		`SELECT title, subject, questions FROM topics WHERE id=$1`, topicID,
	).Scan(&topic.Title, &topic.Subject, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Topic{}, fmt.Errorf("%w: %s", domain.ErrTopicNotFound, topicID)
	}
	if err != nil {
		return domain.Topic{}, fmt.Errorf("load topic: %w", err)
	}
	if err := json.Unmarshal(raw, &topic.Questions); err != nil {
		return domain.Topic{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return topic, nil
}

func (l *TopicLoader) ListTopics(ctx context.Context) ([]domain.TopicSummary, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, title, subject, jsonb_array_length(questions) FROM topics ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	topics := make([]domain.TopicSummary, 0)
	for rows.Next() {
		var t domain.TopicSummary
		if err := rows.Scan(&t.ID, &t.Title, &t.Subject, &t.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// SaveTopic upserts a topic; used for seeding.
func (l *TopicLoader) SaveTopic(ctx context.Context, topic domain.Topic) error {
	raw, err := json.Marshal(topic.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO topics (id, title, subject, questions) VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (id) DO UPDATE
		SET title=EXCLUDED.title, subject=EXCLUDED.subject, questions=EXCLUDED.questions`,
		topic.ID, topic.Title, topic.Subject, string(raw))
	if err != nil {
		return fmt.Errorf("save topic: %w", err)
	}
	return nil
}
