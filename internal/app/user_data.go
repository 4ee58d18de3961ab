package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"quiz-session-service/internal/domain"
)

// RecentTopic is a topic the user played recently, with the latest outcome.
type RecentTopic struct {
	TopicID    string       `json:"topicId"`
	TopicTitle string       `json:"topicTitle"`
	Subject    string       `json:"subject"`
	LastScore  domain.Score `json:"lastScore"`
	LastPlayed time.Time    `json:"lastPlayed"`
}

func (s *QuizService) Topics(ctx context.Context) ([]domain.TopicSummary, error) {
	return s.questions.ListTopics(ctx)
}

// History returns finished attempts, newest first. A non-positive limit returns all.
func (s *QuizService) History(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	return s.history.List(ctx, userID, limit)
}

func (s *QuizService) ClearHistory(ctx context.Context, userID string) error {
	return s.history.Clear(ctx, userID)
}

// RecentTopics lists distinct topics from the user's history, most recent first.
func (s *QuizService) RecentTopics(ctx context.Context, userID string, limit int) ([]RecentTopic, error) {
	entries, err := s.history.List(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	latest := lo.UniqBy(entries, func(e domain.HistoryEntry) string { return e.TopicID })
	if limit > 0 && len(latest) > limit {
		latest = latest[:limit]
	}
	recents := lo.Map(latest, func(e domain.HistoryEntry, _ int) RecentTopic {
		return RecentTopic{
			TopicID:    e.TopicID,
			TopicTitle: e.TopicTitle,
			Subject:    e.Subject,
			LastScore:  e.Score,
			LastPlayed: e.CompletedAt,
		}
	})
	return recents, nil
}

// AddBookmark saves a question of a topic together with its explanation.
func (s *QuizService) AddBookmark(ctx context.Context, userID, topicID, questionID string) (domain.Bookmark, error) {
	if userID == "" || topicID == "" || questionID == "" {
		return domain.Bookmark{}, fmt.Errorf("%w: userId, topicId and questionId are required", domain.ErrInvalidConfiguration)
	}
	topic, err := s.questions.GetTopic(ctx, topicID)
	if err != nil {
		return domain.Bookmark{}, err
	}
	for _, q := range topic.Questions {
		if q.ID != questionID {
			continue
		}
		bookmark := domain.Bookmark{
			QuestionID:    q.ID,
			TopicID:       topic.ID,
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Explanation:   q.Explanation,
			CreatedAt:     s.sched.Now().UTC(),
		}
		if err := s.bookmarks.Save(ctx, userID, bookmark); err != nil {
			return domain.Bookmark{}, err
		}
		return bookmark, nil
	}
	return domain.Bookmark{}, domain.ErrQuestionNotFound
}

func (s *QuizService) RemoveBookmark(ctx context.Context, userID, questionID string) error {
	return s.bookmarks.Remove(ctx, userID, questionID)
}

func (s *QuizService) Bookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	return s.bookmarks.List(ctx, userID)
}

// Settings returns the user's settings, or the service defaults if none were stored.
func (s *QuizService) Settings(ctx context.Context, userID string) (domain.Settings, error) {
	settings, err := s.settings.Get(ctx, userID)
	if errors.Is(err, domain.ErrSettingsNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

func (s *QuizService) UpdateSettings(ctx context.Context, userID string, settings domain.Settings) (domain.Settings, error) {
	if err := s.validate.Struct(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	if err := s.settings.Put(ctx, userID, settings); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}
