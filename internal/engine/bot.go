package engine

import (
	"math/rand"

	"quiz-session-service/internal/domain"
)

// SimulateBotAnswers plays a bot opponent through questions. For each question it picks
// the correct option with probability accuracy, otherwise a random wrong option.
func SimulateBotAnswers(questions []domain.Question, accuracy float64, rnd *rand.Rand) map[string]int {
	answers := make(map[string]int, len(questions))
	for _, q := range questions {
		if len(q.Options) == 0 {
			continue
		}
		if len(q.Options) == 1 || rnd.Float64() < accuracy {
			answers[q.ID] = q.CorrectOption
			continue
		}
		// pick among the other options only
		pick := rnd.Intn(len(q.Options) - 1)
		if pick >= q.CorrectOption {
			pick++
		}
		answers[q.ID] = pick
	}
	return answers
}
