// Package engine runs a single quiz attempt: question navigation, answer capture,
// the test-mode countdown, the practice-mode auto-advance and final scoring.
package engine

import (
	"fmt"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// DefaultAutoAdvanceDelay is how long practice mode shows feedback before moving on.
const DefaultAutoAdvanceDelay = 2 * time.Second

// State is the lifecycle state of an engine.
type State int

const (
	StateActive State = iota
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Hooks report transitions the caller did not trigger directly. They are invoked after
// the engine releases its lock, so they may call back into it.
type Hooks struct {
	// OnTick receives the remaining seconds after each test-mode tick.
	OnTick func(remaining int)
	// OnAutoAdvance receives the new question index after a practice-mode auto-advance.
	OnAutoAdvance func(index int)
	// OnFinish receives the result once per attempt.
	OnFinish func(result domain.Result)
}

type Option func(*Engine)

func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

func WithAutoAdvanceDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.delay = d
		}
	}
}

func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// Engine owns the state of one quiz attempt. One engine corresponds to exactly one
// attempt; Reset starts a new attempt on the same engine.
type Engine struct {
	mu    sync.Mutex
	sched Scheduler
	delay time.Duration
	hooks Hooks

	// source and requested are kept so Reset can rebuild the attempt.
	source    []domain.Question
	requested domain.QuizConfig

	questions []domain.Question
	cfg       domain.QuizConfig
	index     int
	answers   map[string]int
	timeLimit int
	remaining int
	state     State
	result    domain.Result
	startedAt time.Time

	// started stays set after finalization; only Close clears it.
	started    bool
	running    bool
	stopTicker Cancel
	pending    Cancel
	// generation invalidates callbacks scheduled for an earlier attempt.
	generation uint64
}

// New validates the configuration and returns an active engine. The countdown does
// not run until Start is called.
func New(questions []domain.Question, cfg domain.QuizConfig, opts ...Option) (*Engine, error) {
	e := &Engine{
		sched: RealScheduler(),
		delay: DefaultAutoAdvanceDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.load(questions, cfg); err != nil {
		return nil, err
	}
	return e, nil
}

func normalize(questions []domain.Question, cfg domain.QuizConfig) ([]domain.Question, domain.QuizConfig, error) {
	if len(questions) == 0 {
		return nil, cfg, fmt.Errorf("%w: no questions", domain.ErrInvalidConfiguration)
	}
	if cfg.QuestionCount < 1 {
		return nil, cfg, fmt.Errorf("%w: question count %d", domain.ErrInvalidConfiguration, cfg.QuestionCount)
	}
	switch cfg.Mode {
	case domain.ModeTest:
		if cfg.TimePerQuestion < 1 {
			return nil, cfg, fmt.Errorf("%w: time per question %d", domain.ErrInvalidConfiguration, cfg.TimePerQuestion)
		}
	case domain.ModePractice:
		cfg.TimePerQuestion = 0
	default:
		return nil, cfg, fmt.Errorf("%w: mode %q", domain.ErrInvalidConfiguration, cfg.Mode)
	}

	count := min(cfg.QuestionCount, len(questions))
	selected := questions[:count:count]

	seen := make(map[string]struct{}, count)
	for _, q := range selected {
		if _, dup := seen[q.ID]; dup {
			return nil, cfg, fmt.Errorf("%w: duplicate question id %q", domain.ErrInvalidConfiguration, q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return nil, cfg, fmt.Errorf("%w: question %q has no valid correct option", domain.ErrInvalidConfiguration, q.ID)
		}
	}

	cfg.QuestionCount = count
	return selected, cfg, nil
}

func (e *Engine) load(questions []domain.Question, cfg domain.QuizConfig) error {
	selected, normalized, err := normalize(questions, cfg)
	if err != nil {
		return err
	}
	e.source = questions
	e.requested = cfg
	e.questions = selected
	e.cfg = normalized
	e.index = 0
	e.answers = make(map[string]int, len(selected))
	e.timeLimit = 0
	if normalized.Mode == domain.ModeTest {
		e.timeLimit = normalized.TimePerQuestion * normalized.QuestionCount
	}
	e.remaining = e.timeLimit
	e.state = StateActive
	e.result = domain.Result{}
	e.startedAt = e.sched.Now()
	e.generation++
	return nil
}

// Start begins the attempt. In test mode it starts the one-second countdown.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateActive {
		return fmt.Errorf("%w: session already finished", domain.ErrPreconditionViolation)
	}
	if e.running {
		return nil
	}
	e.startLocked()
	return nil
}

func (e *Engine) startLocked() {
	e.started = true
	e.running = true
	e.startedAt = e.sched.Now()
	if e.cfg.Mode == domain.ModeTest {
		gen := e.generation
		e.stopTicker = e.sched.Every(time.Second, func() { e.scheduledTick(gen) })
	}
}

// SelectOption records the answer for the current question, replacing any earlier one.
// In practice mode it schedules the automatic advance.
func (e *Engine) SelectOption(option int) (domain.AnswerFeedback, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateActive {
		return domain.AnswerFeedback{}, fmt.Errorf("%w: session already finished", domain.ErrPreconditionViolation)
	}
	q := e.questions[e.index]
	if option < 0 || option >= len(q.Options) {
		return domain.AnswerFeedback{}, fmt.Errorf("%w: option %d out of range for question %q", domain.ErrPreconditionViolation, option, q.ID)
	}
	e.answers[q.ID] = option

	if e.cfg.Mode == domain.ModePractice {
		e.cancelPendingLocked()
		gen, at := e.generation, e.index
		e.pending = e.sched.AfterFunc(e.delay, func() { e.autoAdvance(gen, at) })
	}

	return domain.AnswerFeedback{
		QuestionID:    q.ID,
		Selected:      option,
		CorrectOption: q.CorrectOption,
		Correct:       option == q.CorrectOption,
		Explanation:   q.Explanation,
	}, nil
}

// Advance moves to the next question. It is a no-op on the last question.
func (e *Engine) Advance() error {
	return e.navigate(func() { e.stepLocked(1) })
}

// Retreat moves to the previous question. It is a no-op on the first question.
func (e *Engine) Retreat() error {
	return e.navigate(func() { e.stepLocked(-1) })
}

// Skip clears the answer for the current question and advances.
func (e *Engine) Skip() error {
	return e.navigate(func() {
		delete(e.answers, e.questions[e.index].ID)
		e.stepLocked(1)
	})
}

func (e *Engine) navigate(move func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateActive {
		return fmt.Errorf("%w: session already finished", domain.ErrPreconditionViolation)
	}
	if e.cfg.Mode != domain.ModeTest {
		return fmt.Errorf("%w: navigation is only available in test mode", domain.ErrPreconditionViolation)
	}
	move()
	return nil
}

func (e *Engine) stepLocked(delta int) {
	if next := e.index + delta; next >= 0 && next < len(e.questions) {
		e.index = next
	}
}

// Tick consumes one second of the test-mode countdown. When the countdown reaches zero
// the session is finalized; further ticks do nothing.
func (e *Engine) Tick() {
	e.mu.Lock()
	notify := e.tickLocked()
	e.mu.Unlock()
	notify()
}

func (e *Engine) scheduledTick(gen uint64) {
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return
	}
	notify := e.tickLocked()
	e.mu.Unlock()
	notify()
}

func (e *Engine) tickLocked() func() {
	if e.state != StateActive || e.cfg.Mode != domain.ModeTest || e.remaining == 0 {
		return func() {}
	}
	e.remaining--
	remaining := e.remaining

	finish := func() {}
	if remaining == 0 {
		finish = e.finalizeLocked(domain.FinishTimeout)
	}
	return func() {
		if e.hooks.OnTick != nil {
			e.hooks.OnTick(remaining)
		}
		finish()
	}
}

func (e *Engine) autoAdvance(gen uint64, at int) {
	e.mu.Lock()
	if gen != e.generation || e.state != StateActive || e.index != at {
		e.mu.Unlock()
		return
	}
	e.pending = nil

	notify := func() {}
	if e.index == len(e.questions)-1 {
		notify = e.finalizeLocked(domain.FinishCompleted)
	} else {
		e.index++
		index := e.index
		notify = func() {
			if e.hooks.OnAutoAdvance != nil {
				e.hooks.OnAutoAdvance(index)
			}
		}
	}
	e.mu.Unlock()
	notify()
}

// Finalize scores the attempt and terminates it. Calling it again returns the
// result computed the first time.
func (e *Engine) Finalize() domain.Result {
	e.mu.Lock()
	notify := e.finalizeLocked(domain.FinishSubmitted)
	result := e.result
	e.mu.Unlock()
	notify()
	return result
}

func (e *Engine) finalizeLocked(reason domain.FinishReason) func() {
	if e.state == StateTerminated {
		return func() {}
	}
	e.stopTimersLocked()

	answers := make(map[string]int, len(e.answers))
	for id, option := range e.answers {
		answers[id] = option
	}
	e.result = domain.Result{
		Answers:   answers,
		Questions: e.questions,
		TimeSpent: e.timeSpentLocked(),
		Mode:      e.cfg.Mode,
		Score:     ScoreAnswers(e.questions, answers),
		Reason:    reason,
	}
	e.state = StateTerminated

	result := e.result
	return func() {
		if e.hooks.OnFinish != nil {
			e.hooks.OnFinish(result)
		}
	}
}

func (e *Engine) timeSpentLocked() int {
	if e.cfg.Mode == domain.ModeTest {
		return e.timeLimit - e.remaining
	}
	spent := int(e.sched.Now().Sub(e.startedAt) / time.Second)
	if spent < 0 {
		return 0
	}
	return spent
}

// Reset starts a new attempt. Nil questions or a nil config reuse the previous ones.
// If the engine had been started, the new attempt starts immediately.
func (e *Engine) Reset(questions []domain.Question, cfg *domain.QuizConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if questions == nil {
		questions = e.source
	}
	next := e.requested
	if cfg != nil {
		next = *cfg
	}
	if _, _, err := normalize(questions, next); err != nil {
		return err
	}

	wasStarted := e.started
	e.stopTimersLocked()
	if err := e.load(questions, next); err != nil {
		return err
	}
	if wasStarted {
		e.startLocked()
	}
	return nil
}

// Close cancels the countdown and any pending auto-advance. It must be called when the
// session is torn down.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimersLocked()
	e.started = false
	e.generation++
}

func (e *Engine) stopTimersLocked() {
	if e.stopTicker != nil {
		e.stopTicker()
		e.stopTicker = nil
	}
	e.cancelPendingLocked()
	e.running = false
}

func (e *Engine) cancelPendingLocked() {
	if e.pending != nil {
		e.pending()
		e.pending = nil
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Index() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

func (e *Engine) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

func (e *Engine) Config() domain.QuizConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Questions returns the questions of the current attempt.
func (e *Engine) Questions() []domain.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.questions
}

// Answers returns a copy of the recorded answers.
func (e *Engine) Answers() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]int, len(e.answers))
	for id, option := range e.answers {
		out[id] = option
	}
	return out
}

// Result returns the final result and whether the attempt has finished.
func (e *Engine) Result() (domain.Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.state == StateTerminated
}

// Snapshot renders the current state without exposing the answer key.
func (e *Engine) Snapshot() domain.SessionView {
	e.mu.Lock()
	defer e.mu.Unlock()

	q := e.questions[e.index]
	view := domain.SessionView{
		Mode:     e.cfg.Mode,
		State:    e.state.String(),
		Index:    e.index,
		Total:    len(e.questions),
		Answered: len(e.answers),
		Question: domain.QuestionView{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: q.Options,
		},
		TimeRemaining: e.remaining,
	}
	if selected, ok := e.answers[q.ID]; ok {
		view.Selected = &selected
	}
	return view
}
