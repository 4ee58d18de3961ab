package app

import (
	"math/rand"

	"quiz-session-service/internal/domain"
)

// SampleQuestions returns up to limit questions in random order without modifying
// the input. A non-positive limit keeps every question.
func SampleQuestions(questions []domain.Question, limit int, rnd *rand.Rand) []domain.Question {
	shuffled := make([]domain.Question, len(questions))
	copy(shuffled, questions)

	// Fisher-Yates
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	if limit <= 0 || limit > len(shuffled) {
		limit = len(shuffled)
	}
	return shuffled[:limit]
}
