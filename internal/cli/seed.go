package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
	"quiz-session-service/internal/infra/postgres"
	infraredis "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/logger"
)

type topicSaver interface {
	SaveTopic(ctx context.Context, topic domain.Topic) error
}

type topicInvalidator interface {
	Invalidate(ctx context.Context, topicID string) error
}

// NewSeedCmd upserts topics into Postgres and drops their cached copies from Redis.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load topics into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			ctx := cmd.Context()
			topics, err := loadSeedTopics(ctx, file)
			if err != nil {
				return err
			}

			if err := runMigrations(ctx, cfg, log); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			var invalidator topicInvalidator
			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()
				invalidator = infraredis.NewQuestionRepository(client, nil, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
			}
			return seedTopics(ctx, topics, postgres.NewTopicLoader(pool), invalidator, log)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file with a list of topics (defaults to the built-in catalog)")
	return cmd
}

func loadSeedTopics(ctx context.Context, path string) ([]domain.Topic, error) {
	if path != "" {
		return loadTopicsFile(path)
	}
	catalog := memory.NewCatalogLoader()
	summaries, err := catalog.ListTopics(ctx)
	if err != nil {
		return nil, err
	}
	topics := make([]domain.Topic, 0, len(summaries))
	for _, s := range summaries {
		topic, err := catalog.LoadTopic(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

func loadTopicsFile(path string) ([]domain.Topic, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topics file: %w", err)
	}
	var topics []domain.Topic
	if err := yaml.Unmarshal(raw, &topics); err != nil {
		return nil, fmt.Errorf("parse topics file: %w", err)
	}
	for _, topic := range topics {
		if err := checkTopic(topic); err != nil {
			return nil, err
		}
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics, nil
}

func checkTopic(topic domain.Topic) error {
	if topic.ID == "" {
		return fmt.Errorf("topic without id")
	}
	seen := make(map[string]bool, len(topic.Questions))
	for _, q := range topic.Questions {
		if q.ID == "" || seen[q.ID] {
			return fmt.Errorf("topic %s: missing or duplicate question id %q", topic.ID, q.ID)
		}
		seen[q.ID] = true
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("topic %s: question %s has correct option %d out of range", topic.ID, q.ID, q.CorrectOption)
		}
	}
	return nil
}

// seedTopics saves every topic and, when a cache is present, evicts its stale copy
// so the next session start reads the new questions.
func seedTopics(ctx context.Context, topics []domain.Topic, saver topicSaver, invalidator topicInvalidator, log zerolog.Logger) error {
	for _, topic := range topics {
		if err := saver.SaveTopic(ctx, topic); err != nil {
			return err
		}
		if invalidator != nil {
			if err := invalidator.Invalidate(ctx, topic.ID); err != nil {
				return fmt.Errorf("invalidate topic %s: %w", topic.ID, err)
			}
		}
		log.Info().Str("topic", topic.ID).Int("questions", len(topic.Questions)).Msg("topic seeded")
	}
	return nil
}
