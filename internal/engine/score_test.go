package engine

import (
	"math"
	"math/rand"
	"testing"

	"quiz-session-service/internal/domain"
)

func TestPercentageRounding(t *testing.T) {
	for total := 1; total <= 25; total++ {
		for correct := 0; correct <= total; correct++ {
			want := int(math.Round(float64(correct) / float64(total) * 100))
			if got := Percentage(correct, total); got != want {
				t.Fatalf("Percentage(%d, %d) = %d, want %d", correct, total, got, want)
			}
		}
	}
	if Percentage(0, 0) != 0 {
		t.Fatalf("empty quiz must score 0")
	}
	if Percentage(1, 3) != 33 || Percentage(2, 3) != 67 || Percentage(1, 8) != 13 {
		t.Fatalf("unexpected rounding")
	}
}

func TestScoreAnswersIgnoresUnknownAndUnanswered(t *testing.T) {
	questions := []domain.Question{
		{ID: "a", Options: []string{"x", "y"}, CorrectOption: 1},
		{ID: "b", Options: []string{"x", "y"}, CorrectOption: 0},
	}
	score := ScoreAnswers(questions, map[string]int{"a": 1, "zzz": 0})
	if score != (domain.Score{Correct: 1, Total: 2, Percentage: 50}) {
		t.Fatalf("unexpected score %+v", score)
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[int]string{0: "00:00", 9: "00:09", 60: "01:00", 754: "12:34", -5: "00:00"}
	for in, want := range cases {
		if got := FormatClock(in); got != want {
			t.Fatalf("FormatClock(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestSimulateBotAnswers(t *testing.T) {
	questions := make([]domain.Question, 0, 50)
	for i := 0; i < 50; i++ {
		questions = append(questions, domain.Question{
			ID:            string(rune('A' + i%26)) + string(rune('a'+i/26)),
			Options:       []string{"1", "2", "3", "4"},
			CorrectOption: i % 4,
		})
	}
	rnd := rand.New(rand.NewSource(7))

	perfect := SimulateBotAnswers(questions, 1, rnd)
	if s := ScoreAnswers(questions, perfect); s.Correct != len(questions) {
		t.Fatalf("accuracy 1 should answer everything, got %+v", s)
	}

	hopeless := SimulateBotAnswers(questions, 0, rnd)
	if s := ScoreAnswers(questions, hopeless); s.Correct != 0 {
		t.Fatalf("accuracy 0 should miss everything, got %+v", s)
	}
	for _, q := range questions {
		if pick := hopeless[q.ID]; pick < 0 || pick >= len(q.Options) {
			t.Fatalf("bot picked invalid option %d", pick)
		}
	}
}
