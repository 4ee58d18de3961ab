package app

import (
	"sync"
	"time"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/engine"
)

// EventType names what a session event carries.
type EventType string

const (
	// EventState carries a domain.SessionView.
	EventState EventType = "state"
	// EventTick carries a TickPayload.
	EventTick EventType = "tick"
	// EventResult carries the domain.HistoryEntry written for the attempt.
	EventResult EventType = "result"
)

// Event is pushed to session subscribers.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type TickPayload struct {
	Remaining int    `json:"remaining"`
	Clock     string `json:"clock"`
}

// Session is one live quiz attempt: the engine plus the people watching it.
type Session struct {
	id          string
	userID      string
	topic       domain.TopicSummary
	createdAt   time.Time
	withBot     bool
	botAccuracy float64
	engine      *engine.Engine

	// record persists a finished attempt and returns what was stored.
	record func(*Session, domain.Result) domain.HistoryEntry

	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	last        *domain.HistoryEntry
}

// NewSession is exported for infrastructure layers that need to seed sessions. The
// session has no engine until QuizService.Start builds one; QuizService treats such a
// session as missing.
func NewSession(id, userID string, topic domain.TopicSummary) *Session {
	return newSession(id, userID, topic, time.Now())
}

func newSession(id, userID string, topic domain.TopicSummary, createdAt time.Time) *Session {
	return &Session{
		id:          id,
		userID:      userID,
		topic:       topic,
		createdAt:   createdAt,
		subscribers: make(map[chan Event]struct{}),
	}
}

func (s *Session) ID() string                 { return s.id }
func (s *Session) UserID() string             { return s.userID }
func (s *Session) Topic() domain.TopicSummary { return s.topic }
func (s *Session) CreatedAt() time.Time       { return s.createdAt }

// View is the engine snapshot tagged with the session id. A session without an engine
// only reports its id.
func (s *Session) View() domain.SessionView {
	if s.engine == nil {
		return domain.SessionView{SessionID: s.id}
	}
	view := s.engine.Snapshot()
	view.SessionID = s.id
	return view
}

// LastEntry returns the history entry of the most recent finished attempt, if any.
func (s *Session) LastEntry() (domain.HistoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return domain.HistoryEntry{}, false
	}
	return *s.last, true
}

func (s *Session) hooks() engine.Hooks {
	return engine.Hooks{
		OnTick: func(remaining int) {
			s.broadcast(Event{Type: EventTick, Payload: TickPayload{
				Remaining: remaining,
				Clock:     engine.FormatClock(remaining),
			}})
		},
		OnAutoAdvance: func(int) {
			s.broadcast(Event{Type: EventState, Payload: s.View()})
		},
		OnFinish: func(result domain.Result) {
			entry := s.record(s, result)
			s.mu.Lock()
			s.last = &entry
			s.mu.Unlock()
			s.broadcast(Event{Type: EventResult, Payload: entry})
		},
	}
}

func (s *Session) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)
	// queued before ch is visible to broadcast or closeSubscribers
	ch <- Event{Type: EventState, Payload: s.View()}

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// drop the oldest event so a slow reader never blocks the engine
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
