package domain

import "time"

// Mode selects how a quiz session behaves.
type Mode string

const (
	// ModeTest is timed, allows free navigation and requires explicit submission.
	ModeTest Mode = "test"
	// ModePractice is untimed, gives immediate feedback and advances automatically.
	ModePractice Mode = "practice"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeTest || m == ModePractice
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Prompt        string   `json:"prompt" yaml:"prompt"`
	Options       []string `json:"options" yaml:"options"`
	CorrectOption int      `json:"correctOption" yaml:"correctOption"`
	Explanation   string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Topic is a named collection of questions inside a subject.
type Topic struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Subject   string     `json:"subject" yaml:"subject"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// TopicSummary is the catalog view of a topic.
type TopicSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Subject       string `json:"subject"`
	QuestionCount int    `json:"questionCount"`
}

// Summary drops the questions from t.
func (t Topic) Summary() TopicSummary {
	return TopicSummary{
		ID:            t.ID,
		Title:         t.Title,
		Subject:       t.Subject,
		QuestionCount: len(t.Questions),
	}
}

// QuizConfig is supplied once when a session starts.
type QuizConfig struct {
	Mode          Mode `json:"mode"`
	QuestionCount int  `json:"questionCount"`
	// TimePerQuestion is in seconds and only used in test mode.
	TimePerQuestion int `json:"timePerQuestion"`
}

// Score is the number of correct answers out of the total.
type Score struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// FinishReason records what ended a session.
type FinishReason string

const (
	FinishSubmitted FinishReason = "submitted"
	FinishTimeout   FinishReason = "timeout"
	FinishCompleted FinishReason = "completed"
)

// Result is produced once, when a session is finalized.
type Result struct {
	Answers   map[string]int `json:"answers"`
	Questions []Question     `json:"questions"`
	TimeSpent int            `json:"timeSpent"`
	Mode      Mode           `json:"mode"`
	Score     Score          `json:"score"`
	Reason    FinishReason   `json:"reason"`
}

// AnswerFeedback is returned for every selection; practice mode shows it immediately.
type AnswerFeedback struct {
	QuestionID    string `json:"questionId"`
	Selected      int    `json:"selected"`
	CorrectOption int    `json:"correctOption"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation,omitempty"`
}

// QuestionView is a question without its answer key.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// SessionView is a render-ready snapshot of a running session.
type SessionView struct {
	SessionID     string       `json:"sessionId,omitempty"`
	Mode          Mode         `json:"mode"`
	State         string       `json:"state"`
	Index         int          `json:"index"`
	Total         int          `json:"total"`
	Answered      int          `json:"answered"`
	Question      QuestionView `json:"question"`
	Selected      *int         `json:"selected,omitempty"`
	TimeRemaining int          `json:"timeRemaining"`
}

// HistoryEntry is what the history sink persists for a finished attempt.
type HistoryEntry struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	TopicID     string         `json:"topicId"`
	TopicTitle  string         `json:"topicTitle"`
	Subject     string         `json:"subject"`
	Mode        Mode           `json:"mode"`
	Score       Score          `json:"score"`
	BotScore    *Score         `json:"botScore,omitempty"`
	TimeSpent   int            `json:"timeSpent"`
	Reason      FinishReason   `json:"reason"`
	Answers     map[string]int `json:"answers"`
	Questions   []Question     `json:"questions"`
	CompletedAt time.Time      `json:"completedAt"`
}

// Bookmark is a saved question with its explanation.
type Bookmark struct {
	QuestionID    string    `json:"questionId"`
	TopicID       string    `json:"topicId"`
	Prompt        string    `json:"prompt"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"correctOption"`
	Explanation   string    `json:"explanation,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Settings are per-user preferences.
type Settings struct {
	TimePerQuestion int    `json:"timePerQuestion" validate:"gte=5,lte=600"`
	QuestionCount   int    `json:"questionCount" validate:"gte=1,lte=100"`
	DefaultMode     Mode   `json:"defaultMode" validate:"oneof=test practice"`
	Theme           string `json:"theme" validate:"oneof=light dark system"`
}

// DefaultSettings are used until a user stores their own.
func DefaultSettings() Settings {
	return Settings{
		TimePerQuestion: 30,
		QuestionCount:   10,
		DefaultMode:     ModeTest,
		Theme:           "system",
	}
}
