package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/engine"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuestionRepository is the single lookup contract for quiz content, whatever the
// number of sources behind it.
type QuestionRepository interface {
	GetTopic(ctx context.Context, topicID string) (domain.Topic, error)
	ListTopics(ctx context.Context) ([]domain.TopicSummary, error)
}

// HistoryStore persists finished attempts, newest first.
type HistoryStore interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error
	List(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error)
	Clear(ctx context.Context, userID string) error
}

// BookmarkStore keeps saved questions keyed by question id.
type BookmarkStore interface {
	Save(ctx context.Context, userID string, bookmark domain.Bookmark) error
	Remove(ctx context.Context, userID, questionID string) error
	List(ctx context.Context, userID string) ([]domain.Bookmark, error)
}

// SettingsStore returns domain.ErrSettingsNotFound for users without stored settings.
type SettingsStore interface {
	Get(ctx context.Context, userID string) (domain.Settings, error)
	Put(ctx context.Context, userID string, settings domain.Settings) error
}

// StartRequest describes a quiz the user wants to take. Zero values fall back to the
// user's settings.
type StartRequest struct {
	UserID        string      `validate:"required"`
	TopicID       string      `validate:"required"`
	Mode          domain.Mode `validate:"omitempty,oneof=test practice"`
	QuestionCount int         `validate:"gte=0"`
	WithBot       bool
	BotAccuracy   float64 `validate:"gte=0,lte=1"`
}

// QuizService contains the quiz use cases.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionRepository
	history   HistoryStore
	bookmarks BookmarkStore
	settings  SettingsStore

	sched          engine.Scheduler
	autoAdvance    time.Duration
	defaults       domain.Settings
	persistTimeout time.Duration
	log            zerolog.Logger
	validate       *validator.Validate

	rndMu sync.Mutex
	rnd   *rand.Rand
}

type Option func(*QuizService)

// WithScheduler replaces the wall clock; tests pass an engine.ManualScheduler.
func WithScheduler(s engine.Scheduler) Option {
	return func(q *QuizService) { q.sched = s }
}

func WithAutoAdvanceDelay(d time.Duration) Option {
	return func(q *QuizService) { q.autoAdvance = d }
}

func WithDefaultSettings(s domain.Settings) Option {
	return func(q *QuizService) { q.defaults = s }
}

func WithLogger(log zerolog.Logger) Option {
	return func(q *QuizService) { q.log = log.With().Str("component", "quiz_service").Logger() }
}

func WithRand(rnd *rand.Rand) Option {
	return func(q *QuizService) { q.rnd = rnd }
}

func NewQuizService(sessions SessionRepository, questions QuestionRepository, history HistoryStore, bookmarks BookmarkStore, settings SettingsStore, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:       sessions,
		questions:      questions,
		history:        history,
		bookmarks:      bookmarks,
		settings:       settings,
		sched:          engine.RealScheduler(),
		autoAdvance:    engine.DefaultAutoAdvanceDelay,
		defaults:       domain.DefaultSettings(),
		persistTimeout: 5 * time.Second,
		log:            zerolog.Nop(),
		validate:       validator.New(),
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start samples questions from the topic, builds an engine for them and starts it.
func (s *QuizService) Start(ctx context.Context, req StartRequest) (*Session, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}

	settings, err := s.Settings(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	topic, err := s.questions.GetTopic(ctx, req.TopicID)
	if err != nil {
		return nil, err
	}

	cfg := domain.QuizConfig{
		Mode:            req.Mode,
		QuestionCount:   req.QuestionCount,
		TimePerQuestion: settings.TimePerQuestion,
	}
	if cfg.Mode == "" {
		cfg.Mode = settings.DefaultMode
	}
	if cfg.QuestionCount == 0 {
		cfg.QuestionCount = settings.QuestionCount
	}

	session := newSession(uuid.NewString(), req.UserID, topic.Summary(), s.sched.Now())
	session.withBot = req.WithBot
	session.botAccuracy = req.BotAccuracy
	session.record = s.recordResult

	eng, err := engine.New(
		s.sample(topic.Questions, cfg.QuestionCount),
		cfg,
		engine.WithScheduler(s.sched),
		engine.WithAutoAdvanceDelay(s.autoAdvance),
		engine.WithHooks(session.hooks()),
	)
	if err != nil {
		return nil, err
	}
	session.engine = eng
	if err := eng.Start(); err != nil {
		return nil, err
	}
	s.sessions.Put(session)

	s.log.Info().
		Str("session_id", session.id).
		Str("user_id", req.UserID).
		Str("topic_id", topic.ID).
		Str("mode", string(cfg.Mode)).
		Int("questions", eng.Config().QuestionCount).
		Msg("quiz started")
	return session, nil
}

// Select records an answer for the current question.
func (s *QuizService) Select(_ context.Context, sessionID string, option int) (domain.AnswerFeedback, domain.SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.AnswerFeedback{}, domain.SessionView{}, err
	}
	feedback, err := session.engine.SelectOption(option)
	if err != nil {
		return domain.AnswerFeedback{}, domain.SessionView{}, err
	}
	return feedback, session.View(), nil
}

func (s *QuizService) Next(_ context.Context, sessionID string) (domain.SessionView, error) {
	return s.navigate(sessionID, (*engine.Engine).Advance)
}

func (s *QuizService) Prev(_ context.Context, sessionID string) (domain.SessionView, error) {
	return s.navigate(sessionID, (*engine.Engine).Retreat)
}

func (s *QuizService) Skip(_ context.Context, sessionID string) (domain.SessionView, error) {
	return s.navigate(sessionID, (*engine.Engine).Skip)
}

func (s *QuizService) navigate(sessionID string, move func(*engine.Engine) error) (domain.SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	if err := move(session.engine); err != nil {
		return domain.SessionView{}, err
	}
	return session.View(), nil
}

// Submit finalizes the attempt. Submitting twice returns the same result.
func (s *QuizService) Submit(_ context.Context, sessionID string) (domain.Result, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Result{}, err
	}
	return session.engine.Finalize(), nil
}

// Restart draws a fresh sample from the same topic and resets the engine.
func (s *QuizService) Restart(ctx context.Context, sessionID string) (domain.SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	topic, err := s.questions.GetTopic(ctx, session.topic.ID)
	if err != nil {
		return domain.SessionView{}, err
	}
	cfg := session.engine.Config()
	if err := session.engine.Reset(s.sample(topic.Questions, cfg.QuestionCount), &cfg); err != nil {
		return domain.SessionView{}, err
	}
	if err := session.engine.Start(); err != nil {
		return domain.SessionView{}, err
	}
	s.log.Debug().Str("session_id", sessionID).Msg("quiz restarted")
	return session.View(), nil
}

func (s *QuizService) View(_ context.Context, sessionID string) (domain.SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return session.View(), nil
}

// Subscribe returns a channel that receives session events, starting with the current
// state. The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan Event, func(), error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Close tears the session down: timers are cancelled and subscribers released.
func (s *QuizService) Close(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	if session.engine != nil {
		session.engine.Close()
	}
	session.closeSubscribers()
	s.sessions.Delete(sessionID)
}

func (s *QuizService) session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok || session.engine == nil {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *QuizService) sample(questions []domain.Question, count int) []domain.Question {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return SampleQuestions(questions, count, s.rnd)
}

// recordResult writes the history entry for a finished attempt. It runs on whichever
// goroutine finalized the engine, so it uses its own context.
func (s *QuizService) recordResult(session *Session, result domain.Result) domain.HistoryEntry {
	entry := domain.HistoryEntry{
		ID:          uuid.NewString(),
		UserID:      session.userID,
		TopicID:     session.topic.ID,
		TopicTitle:  session.topic.Title,
		Subject:     session.topic.Subject,
		Mode:        result.Mode,
		Score:       result.Score,
		TimeSpent:   result.TimeSpent,
		Reason:      result.Reason,
		Answers:     result.Answers,
		Questions:   result.Questions,
		CompletedAt: s.sched.Now().UTC(),
	}
	if session.withBot {
		s.rndMu.Lock()
		botAnswers := engine.SimulateBotAnswers(result.Questions, session.botAccuracy, s.rnd)
		s.rndMu.Unlock()
		botScore := engine.ScoreAnswers(result.Questions, botAnswers)
		entry.BotScore = &botScore
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()
	if err := s.history.Append(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("session_id", session.id).Msg("failed to store quiz result")
		return entry
	}

	s.log.Info().
		Str("session_id", session.id).
		Str("reason", string(result.Reason)).
		Int("correct", result.Score.Correct).
		Int("total", result.Score.Total).
		Int("percentage", result.Score.Percentage).
		Str("time_spent", engine.FormatClock(result.TimeSpent)).
		Msg("quiz finished")
	return entry
}
