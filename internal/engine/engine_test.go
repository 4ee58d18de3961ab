package engine_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/engine"
)

var epoch = time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	cases := []struct {
		name      string
		questions []domain.Question
		cfg       domain.QuizConfig
	}{
		{"no questions", nil, domain.QuizConfig{Mode: domain.ModePractice, QuestionCount: 1}},
		{"zero count", sampleQuestions(3), domain.QuizConfig{Mode: domain.ModePractice, QuestionCount: 0}},
		{"negative count", sampleQuestions(3), domain.QuizConfig{Mode: domain.ModePractice, QuestionCount: -2}},
		{"unknown mode", sampleQuestions(3), domain.QuizConfig{Mode: "exam", QuestionCount: 3}},
		{"test without time", sampleQuestions(3), domain.QuizConfig{Mode: domain.ModeTest, QuestionCount: 3}},
		{"duplicate ids", []domain.Question{question("q1", 0), question("q1", 1)}, domain.QuizConfig{Mode: domain.ModePractice, QuestionCount: 2}},
		{"bad answer key", []domain.Question{question("q1", 7)}, domain.QuizConfig{Mode: domain.ModePractice, QuestionCount: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.New(tc.questions, tc.cfg)
			if !errors.Is(err, domain.ErrInvalidConfiguration) {
				t.Fatalf("expected invalid configuration, got %v", err)
			}
		})
	}
}

func TestNewClampsQuestionCount(t *testing.T) {
	e, _ := newTestEngine(t, sampleQuestions(3), domain.QuizConfig{Mode: domain.ModeTest, QuestionCount: 10, TimePerQuestion: 20})

	cfg := e.Config()
	if cfg.QuestionCount != 3 {
		t.Fatalf("expected count clamped to 3, got %d", cfg.QuestionCount)
	}
	if e.Remaining() != 60 {
		t.Fatalf("expected 60 seconds, got %d", e.Remaining())
	}
	if e.Index() != 0 || len(e.Answers()) != 0 {
		t.Fatalf("expected fresh state, index=%d answers=%v", e.Index(), e.Answers())
	}
}

func TestPracticeModeHasNoCountdown(t *testing.T) {
	e, _ := newTestEngine(t, sampleQuestions(2), domain.QuizConfig{Mode: domain.ModePractice, QuestionCount: 2, TimePerQuestion: 30})
	if e.Remaining() != 0 {
		t.Fatalf("expected no countdown in practice, got %d", e.Remaining())
	}
	e.Tick()
	if e.Remaining() != 0 || e.State() != engine.StateActive {
		t.Fatalf("tick must not affect practice mode")
	}
}

func TestNavigationStaysInRange(t *testing.T) {
	e, _ := newTestEngine(t, sampleQuestions(3), testConfig(3))

	ops := []struct {
		name string
		op   func() error
	}{
		{"retreat", e.Retreat}, {"advance", e.Advance}, {"advance", e.Advance},
		{"advance", e.Advance}, {"skip", e.Skip}, {"retreat", e.Retreat},
		{"skip", e.Skip}, {"retreat", e.Retreat}, {"retreat", e.Retreat}, {"retreat", e.Retreat},
	}
	for i, step := range ops {
		if err := step.op(); err != nil {
			t.Fatalf("step %d (%s): %v", i, step.name, err)
		}
		if idx := e.Index(); idx < 0 || idx >= 3 {
			t.Fatalf("step %d (%s): index %d out of range", i, step.name, idx)
		}
	}
}

func TestAdvanceAndRetreatBoundaries(t *testing.T) {
	e, _ := newTestEngine(t, sampleQuestions(2), testConfig(2))

	mustNoErr(t, e.Retreat())
	if e.Index() != 0 {
		t.Fatalf("retreat at first question moved to %d", e.Index())
	}
	mustNoErr(t, e.Advance())
	mustNoErr(t, e.Advance())
	if e.Index() != 1 {
		t.Fatalf("advance at last question moved to %d", e.Index())
	}
}

func TestNavigationRequiresTestMode(t *testing.T) {
	e, _ := newTestEngine(t, sampleQuestions(2), domain.QuizConfig{Mode: domain.ModePractice, QuestionCount: 2})
	for name, op := range map[string]func() error{"advance": e.Advance, "retreat": e.Retreat, "skip": e.Skip} {
		if err := op(); !errors.Is(err, domain.ErrPreconditionViolation) {
			t.Fatalf("%s in practice mode: expected precondition violation, got %v", name, err)
		}
	}
}

func TestSelectOptionOverwritesAnswer(t *testing.T) {
	e, _ := newTestEngine(t, sampleQuestions(2), testConfig(2))

	if _, err := e.SelectOption(2); err != nil {
		t.Fatalf("select: %v", err)
	}
	fb, err := e.SelectOption(0)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !fb.Correct || fb.CorrectOption != 0 || fb.QuestionID != "q1" {
		t.Fatalf("unexpected feedback %+v", fb)
	}
	if got := e.Answers(); !reflect.DeepEqual(got, map[string]int{"q1": 0}) {
		t.Fatalf("expected single overwritten answer, got %v", got)
	}
}

func TestSelectOptionRejectsOutOfRange(t *testing.T) {
	e, _ := newTestEngine(t, sampleQuestions(1), testConfig(1))

	for _, option := range []int{-1, 4, 99} {
		if _, err := e.SelectOption(option); !errors.Is(err, domain.ErrPreconditionViolation) {
			t.Fatalf("option %d: expected precondition violation, got %v", option, err)
		}
	}
	if len(e.Answers()) != 0 {
		t.Fatalf("rejected selection must not be recorded")
	}
}

func TestSkipClearsPriorAnswer(t *testing.T) {
	e, _ := newTestEngine(t, sampleQuestions(2), testConfig(2))

	if _, err := e.SelectOption(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	mustNoErr(t, e.Skip())
	if e.Index() != 1 {
		t.Fatalf("skip should advance, index=%d", e.Index())
	}

	result := e.Finalize()
	if _, ok := result.Answers["q1"]; ok {
		t.Fatalf("expected q1 unanswered after skip, got %v", result.Answers)
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t, sampleQuestions(3), testConfig(3))
	if _, err := e.SelectOption(0); err != nil {
		t.Fatalf("select: %v", err)
	}

	first := e.Finalize()
	second := e.Finalize()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("finalize not idempotent:\n%+v\n%+v", first, second)
	}
	if e.State() != engine.StateTerminated {
		t.Fatalf("expected terminated")
	}
	if _, err := e.SelectOption(0); !errors.Is(err, domain.ErrPreconditionViolation) {
		t.Fatalf("select after finalize: expected precondition violation, got %v", err)
	}
	if err := e.Advance(); !errors.Is(err, domain.ErrPreconditionViolation) {
		t.Fatalf("advance after finalize: expected precondition violation, got %v", err)
	}
}

func TestFinalizeScore(t *testing.T) {
	e, _ := newTestEngine(t, sampleQuestions(4), testConfig(4))

	// q1 correct, q2 wrong, q3 correct, q4 unanswered
	mustSelect(t, e, 0)
	mustNoErr(t, e.Advance())
	mustSelect(t, e, 0)
	mustNoErr(t, e.Advance())
	mustSelect(t, e, 0)

	result := e.Finalize()
	want := domain.Score{Correct: 2, Total: 4, Percentage: 50}
	if result.Score != want {
		t.Fatalf("expected %+v, got %+v", want, result.Score)
	}
	if result.Score.Correct > result.Score.Total || result.Score.Total != len(result.Questions) {
		t.Fatalf("score invariant violated: %+v", result.Score)
	}
	if result.Reason != domain.FinishSubmitted || result.Mode != domain.ModeTest {
		t.Fatalf("unexpected result metadata %+v", result)
	}
}

func TestPracticeScenario(t *testing.T) {
	hooks, events := recordingHooks()
	e, sched := newTestEngine(t, sampleQuestions(3), domain.QuizConfig{Mode: domain.ModePractice, QuestionCount: 3}, engine.WithHooks(hooks))
	mustNoErr(t, e.Start())

	// Q1 correctly
	fb := mustSelect(t, e, 0)
	if !fb.Correct {
		t.Fatalf("expected correct feedback")
	}
	if e.Index() != 0 {
		t.Fatalf("practice advance must wait for the delay")
	}
	sched.Advance(engine.DefaultAutoAdvanceDelay)
	if e.Index() != 1 {
		t.Fatalf("expected auto-advance to q2, index=%d", e.Index())
	}

	// Q2 incorrectly
	if fb := mustSelect(t, e, 3); fb.Correct {
		t.Fatalf("expected incorrect feedback")
	}
	sched.Advance(engine.DefaultAutoAdvanceDelay)
	if e.Index() != 2 {
		t.Fatalf("expected auto-advance to q3, index=%d", e.Index())
	}

	// Q3 left unanswered
	sched.Advance(10 * time.Second)
	result := e.Finalize()
	want := domain.Score{Correct: 1, Total: 3, Percentage: 33}
	if result.Score != want {
		t.Fatalf("expected %+v, got %+v", want, result.Score)
	}
	if result.TimeSpent != 14 {
		t.Fatalf("expected 14 seconds spent, got %d", result.TimeSpent)
	}
	if len(events.finished) != 1 {
		t.Fatalf("expected one finish notification, got %d", len(events.finished))
	}
	if !reflect.DeepEqual(events.moves, []int{1, 2}) {
		t.Fatalf("expected moves [1 2], got %v", events.moves)
	}
}

func TestPracticeAutoAdvanceFinalizesOnLastQuestion(t *testing.T) {
	hooks, events := recordingHooks()
	e, sched := newTestEngine(t, sampleQuestions(1), domain.QuizConfig{Mode: domain.ModePractice, QuestionCount: 1}, engine.WithHooks(hooks))
	mustNoErr(t, e.Start())

	mustSelect(t, e, 0)
	sched.Advance(engine.DefaultAutoAdvanceDelay)

	if e.State() != engine.StateTerminated {
		t.Fatalf("expected terminated after last auto-advance")
	}
	if len(events.finished) != 1 || events.finished[0].Reason != domain.FinishCompleted {
		t.Fatalf("expected completed finish, got %+v", events.finished)
	}
	if events.finished[0].Score.Percentage != 100 {
		t.Fatalf("expected 100%%, got %+v", events.finished[0].Score)
	}
}

func TestPracticeReselectRestartsDelay(t *testing.T) {
	e, sched := newTestEngine(t, sampleQuestions(2), domain.QuizConfig{Mode: domain.ModePractice, QuestionCount: 2})

	mustSelect(t, e, 1)
	sched.Advance(time.Second)
	mustSelect(t, e, 0)
	sched.Advance(time.Second)
	if e.Index() != 0 {
		t.Fatalf("reselect should restart the delay, index=%d", e.Index())
	}
	if sched.Pending() != 1 {
		t.Fatalf("expected exactly one pending advance, got %d", sched.Pending())
	}
	sched.Advance(time.Second)
	if e.Index() != 1 {
		t.Fatalf("expected advance after full delay, index=%d", e.Index())
	}
}

func TestPendingAdvanceCancelledByReset(t *testing.T) {
	e, sched := newTestEngine(t, sampleQuestions(3), domain.QuizConfig{Mode: domain.ModePractice, QuestionCount: 3})

	mustSelect(t, e, 0)
	mustNoErr(t, e.Reset(nil, nil))
	sched.Advance(5 * time.Second)

	if e.Index() != 0 {
		t.Fatalf("pending advance fired after reset, index=%d", e.Index())
	}
	if sched.Pending() != 0 {
		t.Fatalf("expected no pending callbacks, got %d", sched.Pending())
	}
}

func TestPendingAdvanceCancelledByClose(t *testing.T) {
	e, sched := newTestEngine(t, sampleQuestions(2), domain.QuizConfig{Mode: domain.ModePractice, QuestionCount: 2})

	mustSelect(t, e, 0)
	e.Close()
	sched.Advance(5 * time.Second)
	if e.Index() != 0 {
		t.Fatalf("pending advance fired after close")
	}
}

func TestTestModeTimeoutScenario(t *testing.T) {
	hooks, events := recordingHooks()
	e, sched := newTestEngine(t, sampleQuestions(2), domain.QuizConfig{Mode: domain.ModeTest, QuestionCount: 2, TimePerQuestion: 30}, engine.WithHooks(hooks))
	if e.Remaining() != 60 {
		t.Fatalf("expected 60 seconds, got %d", e.Remaining())
	}
	mustNoErr(t, e.Start())
	mustSelect(t, e, 0)

	sched.Advance(59 * time.Second)
	if e.State() != engine.StateActive || e.Remaining() != 1 {
		t.Fatalf("expected active with 1s left, state=%v remaining=%d", e.State(), e.Remaining())
	}
	sched.Advance(time.Second)
	if e.State() != engine.StateTerminated {
		t.Fatalf("expected terminated at zero")
	}

	result, done := e.Result()
	if !done || result.TimeSpent != 60 || result.Reason != domain.FinishTimeout {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Answers["q1"] != 0 || result.Score.Correct != 1 {
		t.Fatalf("recorded answers must survive timeout: %+v", result)
	}
	if sched.Pending() != 0 {
		t.Fatalf("countdown must be stopped after finalize, pending=%d", sched.Pending())
	}

	sched.Advance(time.Minute)
	e.Tick()
	if len(events.finished) != 1 {
		t.Fatalf("expected a single finish, got %d", len(events.finished))
	}
	if len(events.ticks) != 60 || events.ticks[59] != 0 {
		t.Fatalf("expected 60 ticks ending at 0, got %d", len(events.ticks))
	}
}

func TestManualTicksTerminateExactlyOnce(t *testing.T) {
	hooks, events := recordingHooks()
	e, _ := newTestEngine(t, sampleQuestions(3), domain.QuizConfig{Mode: domain.ModeTest, QuestionCount: 3, TimePerQuestion: 5}, engine.WithHooks(hooks))

	for i := 0; i < 15; i++ {
		if e.State() != engine.StateActive {
			t.Fatalf("terminated early at tick %d", i)
		}
		e.Tick()
	}
	if e.State() != engine.StateTerminated {
		t.Fatalf("expected terminated after 15 ticks")
	}
	for i := 0; i < 5; i++ {
		e.Tick()
	}
	if e.Remaining() != 0 {
		t.Fatalf("remaining went negative: %d", e.Remaining())
	}
	if len(events.finished) != 1 {
		t.Fatalf("expected exactly one finish, got %d", len(events.finished))
	}
}

func TestResetAfterPartialCompletion(t *testing.T) {
	e, sched := newTestEngine(t, sampleQuestions(3), testConfig(3))
	mustNoErr(t, e.Start())

	mustSelect(t, e, 1)
	mustNoErr(t, e.Advance())
	mustSelect(t, e, 1)
	sched.Advance(7 * time.Second)

	mustNoErr(t, e.Reset(nil, nil))
	if e.Index() != 0 || len(e.Answers()) != 0 || e.Remaining() != 90 {
		t.Fatalf("reset left state behind: index=%d answers=%v remaining=%d", e.Index(), e.Answers(), e.Remaining())
	}
	sched.Advance(2 * time.Second)
	if e.Remaining() != 88 {
		t.Fatalf("countdown should resume after reset, remaining=%d", e.Remaining())
	}
}

func TestResetAfterTimeoutRestartsCountdown(t *testing.T) {
	cfg := domain.QuizConfig{Mode: domain.ModeTest, QuestionCount: 1, TimePerQuestion: 2}
	e, sched := newTestEngine(t, sampleQuestions(1), cfg)
	mustNoErr(t, e.Start())

	sched.Advance(2 * time.Second)
	if e.State() != engine.StateTerminated {
		t.Fatalf("expected timeout")
	}

	mustNoErr(t, e.Reset(nil, nil))
	if sched.Pending() != 1 {
		t.Fatalf("expected countdown armed after reset, pending=%d", sched.Pending())
	}
	sched.Advance(time.Second)
	if e.State() != engine.StateActive || e.Remaining() != 1 {
		t.Fatalf("expected countdown running, state=%v remaining=%d", e.State(), e.Remaining())
	}
	sched.Advance(time.Second)
	if r, ok := e.Result(); !ok || r.Reason != domain.FinishTimeout {
		t.Fatalf("expected second timeout, got %+v", r)
	}
}

func TestResetAfterCloseStaysIdle(t *testing.T) {
	e, sched := newTestEngine(t, sampleQuestions(2), testConfig(2))
	mustNoErr(t, e.Start())
	e.Close()

	mustNoErr(t, e.Reset(nil, nil))
	sched.Advance(5 * time.Second)
	if e.Remaining() != 60 || sched.Pending() != 0 {
		t.Fatalf("closed engine must not restart timers, remaining=%d pending=%d", e.Remaining(), sched.Pending())
	}
}

func TestResetWithNewConfiguration(t *testing.T) {
	e, _ := newTestEngine(t, sampleQuestions(3), testConfig(3))
	e.Finalize()

	next := domain.QuizConfig{Mode: domain.ModeTest, QuestionCount: 2, TimePerQuestion: 10}
	mustNoErr(t, e.Reset(sampleQuestions(5), &next))

	if e.State() != engine.StateActive {
		t.Fatalf("expected active after reset")
	}
	if e.Remaining() != 20 || len(e.Questions()) != 2 {
		t.Fatalf("expected new configuration, remaining=%d questions=%d", e.Remaining(), len(e.Questions()))
	}

	bad := domain.QuizConfig{Mode: domain.ModeTest, QuestionCount: 0, TimePerQuestion: 10}
	if err := e.Reset(nil, &bad); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Fatalf("expected invalid configuration, got %v", err)
	}
	if e.Remaining() != 20 {
		t.Fatalf("failed reset must keep state")
	}
}

func TestSnapshotHidesAnswerKey(t *testing.T) {
	e, _ := newTestEngine(t, sampleQuestions(2), testConfig(2))
	mustSelect(t, e, 3)

	view := e.Snapshot()
	if view.Question.ID != "q1" || view.Total != 2 || view.Answered != 1 {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Selected == nil || *view.Selected != 3 {
		t.Fatalf("expected selection 3, got %v", view.Selected)
	}
	if view.State != "active" || view.TimeRemaining != 60 {
		t.Fatalf("unexpected state/time %+v", view)
	}
}

type hookEvents struct {
	ticks    []int
	moves    []int
	finished []domain.Result
}

func recordingHooks() (engine.Hooks, *hookEvents) {
	ev := &hookEvents{}
	return engine.Hooks{
		OnTick:        func(remaining int) { ev.ticks = append(ev.ticks, remaining) },
		OnAutoAdvance: func(index int) { ev.moves = append(ev.moves, index) },
		OnFinish:      func(r domain.Result) { ev.finished = append(ev.finished, r) },
	}, ev
}

func newTestEngine(t *testing.T, questions []domain.Question, cfg domain.QuizConfig, opts ...engine.Option) (*engine.Engine, *engine.ManualScheduler) {
	t.Helper()
	sched := engine.NewManualScheduler(epoch)
	e, err := engine.New(questions, cfg, append([]engine.Option{engine.WithScheduler(sched)}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e, sched
}

func testConfig(count int) domain.QuizConfig {
	return domain.QuizConfig{Mode: domain.ModeTest, QuestionCount: count, TimePerQuestion: 30}
}

func mustSelect(t *testing.T, e *engine.Engine, option int) domain.AnswerFeedback {
	t.Helper()
	fb, err := e.SelectOption(option)
	if err != nil {
		t.Fatalf("select %d: %v", option, err)
	}
	return fb
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// sampleQuestions returns n questions; odd ones are answered by option 0, even ones by 2.
func sampleQuestions(n int) []domain.Question {
	out := make([]domain.Question, 0, n)
	for i := 1; i <= n; i++ {
		correct := 0
		if i%2 == 0 {
			correct = 2
		}
		out = append(out, question(fmt.Sprintf("q%d", i), correct))
	}
	return out
}

func question(id string, correct int) domain.Question {
	return domain.Question{
		ID:            id,
		Prompt:        "Prompt for " + id,
		Options:       []string{"A", "B", "C", "D"},
		CorrectOption: correct,
		Explanation:   "Because " + id,
	}
}
