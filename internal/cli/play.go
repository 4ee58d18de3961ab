package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/engine"
	"quiz-session-service/internal/infra/memory"
)

type playOptions struct {
	topicID     string
	mode        string
	count       int
	seconds     int
	botAccuracy float64
}

// NewPlayCmd runs a quiz in the terminal against the built-in catalog.
func NewPlayCmd(configPath *string) *cobra.Command {
	opts := playOptions{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := domain.DefaultSettings()
			if cfg, err := config.Load(*configPath); err == nil {
				defaults = cfg.DefaultSettings()
			}
			if opts.mode == "" {
				opts.mode = string(defaults.DefaultMode)
			}
			if opts.count == 0 {
				opts.count = defaults.QuestionCount
			}
			if opts.seconds == 0 {
				opts.seconds = defaults.TimePerQuestion
			}

			topic, err := memory.NewCatalogLoader().LoadTopic(cmd.Context(), opts.topicID)
			if err != nil {
				return err
			}
			rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
			cfg := domain.QuizConfig{
				Mode:            domain.Mode(opts.mode),
				QuestionCount:   opts.count,
				TimePerQuestion: opts.seconds,
			}
			result, err := playQuiz(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(),
				app.SampleQuestions(topic.Questions, opts.count, rnd), cfg, engine.RealScheduler())
			if err != nil {
				return err
			}
			if opts.botAccuracy > 0 {
				bot := engine.ScoreAnswers(result.Questions, engine.SimulateBotAnswers(result.Questions, opts.botAccuracy, rnd))
				fmt.Fprintf(cmd.OutOrStdout(), "Bot scored %d/%d (%d%%)\n", bot.Correct, bot.Total, bot.Percentage)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.topicID, "topic", "go-basics", "topic id from the built-in catalog")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "test or practice (defaults to config)")
	cmd.Flags().IntVar(&opts.count, "count", 0, "number of questions")
	cmd.Flags().IntVar(&opts.seconds, "time", 0, "seconds per question in test mode")
	cmd.Flags().Float64Var(&opts.botAccuracy, "bot", 0, "play against a bot with this accuracy (0-1)")
	return cmd
}

// playQuiz drives one attempt from line input:
//
//	1..n   select an option
//	n / p  next / previous question (test mode)
//	s      skip
//	q      submit
//
// End of input submits.
func playQuiz(ctx context.Context, in io.Reader, out io.Writer, questions []domain.Question, cfg domain.QuizConfig, sched engine.Scheduler) (domain.Result, error) {
	done := make(chan domain.Result, 1)
	redraw := make(chan struct{}, 1)
	eng, err := engine.New(questions, cfg,
		engine.WithScheduler(sched),
		engine.WithHooks(engine.Hooks{
			OnAutoAdvance: func(int) {
				select {
				case redraw <- struct{}{}:
				default:
				}
			},
			OnFinish: func(result domain.Result) { done <- result },
		}),
	)
	if err != nil {
		return domain.Result{}, err
	}
	defer eng.Close()

	stopped := make(chan struct{})
	defer close(stopped)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-stopped:
				return
			}
		}
	}()

	if err := eng.Start(); err != nil {
		return domain.Result{}, err
	}
	render(out, eng.Snapshot())

	for {
		select {
		case result := <-done:
			printResult(out, result)
			return result, nil
		case <-redraw:
			render(out, eng.Snapshot())
		case line, ok := <-lines:
			if !ok {
				lines = nil
				eng.Finalize()
				continue
			}
			if err := playCommand(out, eng, line); err != nil {
				fmt.Fprintf(out, "! %v\n", err)
			}
		case <-ctx.Done():
			return domain.Result{}, ctx.Err()
		}
	}
}

func playCommand(out io.Writer, eng *engine.Engine, line string) error {
	var err error
	switch line {
	case "":
		return nil
	case "n":
		err = eng.Advance()
	case "p":
		err = eng.Retreat()
	case "s":
		err = eng.Skip()
	case "q":
		eng.Finalize()
		return nil
	default:
		n, convErr := strconv.Atoi(line)
		if convErr != nil {
			return fmt.Errorf("unknown command %q", line)
		}
		feedback, err := eng.SelectOption(n - 1)
		if err != nil {
			return err
		}
		if eng.Config().Mode == domain.ModePractice {
			printFeedback(out, feedback)
			return nil
		}
	}
	if err != nil {
		return err
	}
	render(out, eng.Snapshot())
	return nil
}

func render(out io.Writer, view domain.SessionView) {
	if view.State != engine.StateActive.String() {
		return
	}
	header := fmt.Sprintf("Question %d/%d", view.Index+1, view.Total)
	if view.Mode == domain.ModeTest {
		header += "  [" + engine.FormatClock(view.TimeRemaining) + "]"
	}
	fmt.Fprintf(out, "\n%s\n%s\n", header, view.Question.Prompt)
	for i, opt := range view.Question.Options {
		marker := " "
		if view.Selected != nil && *view.Selected == i {
			marker = "*"
		}
		fmt.Fprintf(out, " %s %d) %s\n", marker, i+1, opt)
	}
}

func printFeedback(out io.Writer, fb domain.AnswerFeedback) {
	if fb.Correct {
		fmt.Fprintln(out, "Correct!")
	} else {
		fmt.Fprintf(out, "Wrong, the answer is %d.\n", fb.CorrectOption+1)
	}
	if fb.Explanation != "" {
		fmt.Fprintln(out, fb.Explanation)
	}
}

func printResult(out io.Writer, result domain.Result) {
	fmt.Fprintf(out, "\nFinished (%s): %d/%d correct, %d%% in %s\n",
		result.Reason, result.Score.Correct, result.Score.Total, result.Score.Percentage,
		engine.FormatClock(result.TimeSpent))
}
