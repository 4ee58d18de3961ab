package memory

import "quiz-session-service/internal/domain"

// CoreCatalog is the built-in question bank used when no database is configured.
func CoreCatalog() map[string]domain.Topic {
	return map[string]domain.Topic{
		"go-basics": {
			ID:      "go-basics",
			Title:   "Go Basics",
			Subject: "Programming",
			Questions: []domain.Question{
				{
					ID:            "go-basics-1",
					Prompt:        "Which keyword starts a goroutine?",
					Options:       []string{"async", "go", "spawn", "thread"},
					CorrectOption: 1,
					Explanation:   "The go statement runs a function call in a new goroutine.",
				},
				{
					ID:            "go-basics-2",
					Prompt:        "What is the zero value of a map?",
					Options:       []string{"An empty map", "nil", "0", "It has none"},
					CorrectOption: 1,
					Explanation:   "A nil map reads like an empty map but panics on write.",
				},
				{
					ID:            "go-basics-3",
					Prompt:        "Which built-in appends to a slice?",
					Options:       []string{"push", "add", "append", "extend"},
					CorrectOption: 2,
				},
				{
					ID:            "go-basics-4",
					Prompt:        "How are errors usually returned in Go?",
					Options:       []string{"Exceptions", "As the last return value", "Through panics", "Via global state"},
					CorrectOption: 1,
					Explanation:   "Functions return an error as their last result and callers check it.",
				},
			},
		},
		"world-capitals": {
			ID:      "world-capitals",
			Title:   "World Capitals",
			Subject: "Geography",
			Questions: []domain.Question{
				{
					ID:            "capitals-1",
					Prompt:        "What is the capital of France?",
					Options:       []string{"Berlin", "Paris", "Madrid", "Rome"},
					CorrectOption: 1,
				},
				{
					ID:            "capitals-2",
					Prompt:        "What is the capital of Japan?",
					Options:       []string{"Seoul", "Beijing", "Tokyo", "Bangkok"},
					CorrectOption: 2,
				},
				{
					ID:            "capitals-3",
					Prompt:        "What is the capital of Canada?",
					Options:       []string{"Toronto", "Ottawa", "Vancouver", "Montreal"},
					CorrectOption: 1,
					Explanation:   "Ottawa has been the capital since 1857.",
				},
			},
		},
		"basic-math": {
			ID:      "basic-math",
			Title:   "Basic Math",
			Subject: "Mathematics",
			Questions: []domain.Question{
				{
					ID:            "math-1",
					Prompt:        "What is 15 multiplied by 4?",
					Options:       []string{"50", "60", "70", "80"},
					CorrectOption: 1,
				},
				{
					ID:            "math-2",
					Prompt:        "What is the square root of 144?",
					Options:       []string{"10", "11", "12", "14"},
					CorrectOption: 2,
				},
				{
					ID:            "math-3",
					Prompt:        "What is 15% of 200?",
					Options:       []string{"25", "30", "35", "40"},
					CorrectOption: 1,
					Explanation:   "0.15 x 200 = 30.",
				},
			},
		},
	}
}

// ExtraCatalog holds additional questions for some core topics. It is merged with
// CoreCatalog through a MergedLoader.
func ExtraCatalog() map[string]domain.Topic {
	return map[string]domain.Topic{
		"go-basics": {
			ID: "go-basics",
			Questions: []domain.Question{
				{
					ID:            "go-basics-5",
					Prompt:        "Which statement defers a call until the function returns?",
					Options:       []string{"later", "defer", "finally", "after"},
					CorrectOption: 1,
				},
				{
					ID:            "go-basics-6",
					Prompt:        "What does a receive from a closed, empty channel return?",
					Options:       []string{"It blocks", "It panics", "The zero value", "An error"},
					CorrectOption: 2,
					Explanation:   "Receives on a closed channel succeed immediately with the zero value.",
				},
			},
		},
		"world-capitals": {
			ID: "world-capitals",
			Questions: []domain.Question{
				{
					ID:            "capitals-4",
					Prompt:        "What is the capital of Australia?",
					Options:       []string{"Sydney", "Melbourne", "Canberra", "Perth"},
					CorrectOption: 2,
				},
			},
		},
	}
}

// NewCatalogLoader returns the built-in catalog as a single loader.
func NewCatalogLoader() *MergedLoader {
	return NewMergedLoader(NewStaticQuestionLoader(CoreCatalog()), NewStaticQuestionLoader(ExtraCatalog()))
}
