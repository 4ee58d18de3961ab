package memory

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-session-service/internal/domain"
)

// QuestionLoader fetches topic content from a backing store (e.g., document DB).
type QuestionLoader interface {
	LoadTopic(ctx context.Context, topicID string) (domain.Topic, error)
	ListTopics(ctx context.Context) ([]domain.TopicSummary, error)
}

// QuestionRepository caches topics with TTL to avoid repeated loads.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedTopic
}

type cachedTopic struct {
	topic     domain.Topic
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedTopic),
	}
}

func (r *QuestionRepository) GetTopic(ctx context.Context, topicID string) (domain.Topic, error) {
	if topic, ok := r.cached(topicID, r.clock()); ok {
		return topic, nil
	}

	result, err, _ := r.sf.Do(topicID, func() (interface{}, error) {
		now := r.clock()
		if topic, ok := r.cached(topicID, now); ok {
			return topic, nil
		}

		topic, err := r.loader.LoadTopic(ctx, topicID)
		if err != nil {
			return domain.Topic{}, err
		}

		expiresAt := now.Add(r.ttlWithJitter())
		r.mu.Lock()
		r.cache[topicID] = cachedTopic{
			topic:     topic,
			expiresAt: expiresAt,
		}
		r.mu.Unlock()
		return topic, nil
	})
	if err != nil {
		return domain.Topic{}, err
	}
	return result.(domain.Topic), nil
}

func (r *QuestionRepository) ListTopics(ctx context.Context) ([]domain.TopicSummary, error) {
	return r.loader.ListTopics(ctx)
}

func (r *QuestionRepository) cached(topicID string, now time.Time) (domain.Topic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[topicID]; ok && entry.expiresAt.After(now) {
		return entry.topic, true
	}
	return domain.Topic{}, false
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a loader backed by an in-memory map (useful for tests/demos).
type StaticQuestionLoader struct {
	topics map[string]domain.Topic
}

func NewStaticQuestionLoader(topics map[string]domain.Topic) *StaticQuestionLoader {
	return &StaticQuestionLoader{topics: topics}
}

func (l *StaticQuestionLoader) LoadTopic(_ context.Context, topicID string) (domain.Topic, error) {
	if topic, ok := l.topics[topicID]; ok {
		return topic, nil
	}
	return domain.Topic{}, domain.ErrTopicNotFound
}

func (l *StaticQuestionLoader) ListTopics(_ context.Context) ([]domain.TopicSummary, error) {
	out := make([]domain.TopicSummary, 0, len(l.topics))
	for _, t := range l.topics {
		out = append(out, t.Summary())
	}
	sortSummaries(out)
	return out, nil
}

// MergedLoader presents several loaders as one. A topic found in more than one source
// gets its questions concatenated in loader order; the first source to name the topic
// supplies its title and subject, and the first copy of a question id wins.
type MergedLoader struct {
	loaders []QuestionLoader
}

func NewMergedLoader(loaders ...QuestionLoader) *MergedLoader {
	return &MergedLoader{loaders: loaders}
}

func (m *MergedLoader) LoadTopic(ctx context.Context, topicID string) (domain.Topic, error) {
	merged := domain.Topic{ID: topicID}
	found := false
	seen := make(map[string]struct{})
	for _, l := range m.loaders {
		topic, err := l.LoadTopic(ctx, topicID)
		if errors.Is(err, domain.ErrTopicNotFound) {
			continue
		}
		if err != nil {
			return domain.Topic{}, err
		}
		if !found {
			merged.Title = topic.Title
			merged.Subject = topic.Subject
			found = true
		}
		for _, q := range topic.Questions {
			if _, dup := seen[q.ID]; dup {
				continue
			}
			seen[q.ID] = struct{}{}
			merged.Questions = append(merged.Questions, q)
		}
	}
	if !found {
		return domain.Topic{}, domain.ErrTopicNotFound
	}
	return merged, nil
}

// ListTopics reports each topic once. Topics offered by several sources are loaded so
// the count only includes distinct questions.
func (m *MergedLoader) ListTopics(ctx context.Context) ([]domain.TopicSummary, error) {
	byID := make(map[string]domain.TopicSummary)
	sources := make(map[string]int)
	order := make([]string, 0)
	for _, l := range m.loaders {
		topics, err := l.ListTopics(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range topics {
			if _, ok := byID[t.ID]; !ok {
				byID[t.ID] = t
				order = append(order, t.ID)
			}
			sources[t.ID]++
		}
	}
	out := make([]domain.TopicSummary, 0, len(order))
	for _, id := range order {
		summary := byID[id]
		if sources[id] > 1 {
			topic, err := m.LoadTopic(ctx, id)
			if err != nil {
				return nil, err
			}
			summary.QuestionCount = len(topic.Questions)
		}
		out = append(out, summary)
	}
	sortSummaries(out)
	return out, nil
}

func sortSummaries(topics []domain.TopicSummary) {
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Subject != topics[j].Subject {
			return topics[i].Subject < topics[j].Subject
		}
		return topics[i].Title < topics[j].Title
	})
}
