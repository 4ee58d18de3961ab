package engine

import (
	"fmt"
	"math"

	"quiz-session-service/internal/domain"
)

// ScoreAnswers compares each question's correct option with the recorded answer.
// Unanswered questions count as incorrect.
func ScoreAnswers(questions []domain.Question, answers map[string]int) domain.Score {
	correct := 0
	for _, q := range questions {
		if selected, ok := answers[q.ID]; ok && selected == q.CorrectOption {
			correct++
		}
	}
	return domain.Score{
		Correct:    correct,
		Total:      len(questions),
		Percentage: Percentage(correct, len(questions)),
	}
}

// Percentage returns round(correct / total * 100), or 0 for an empty quiz.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// FormatClock renders seconds as a mm:ss countdown.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
