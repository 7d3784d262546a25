package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
)

// NewPlayCmd plays one quiz session in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var quizID, topics, difficulty string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			filter := rt.service.Selection()
			if topics != "" {
				filter.Topics = strings.Split(topics, ",")
			}
			if difficulty != "" {
				d, err := domain.ParseDifficulty(difficulty)
				if err != nil {
					return err
				}
				filter.Difficulty = d
			}
			return runPlay(cmd.Context(), rt.service, quizID, filter, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&quizID, "quiz", DefaultQuizID, "quiz id to play")
	cmd.Flags().StringVar(&topics, "topics", "", "comma separated topics, Mixed for all")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy, medium or hard")
	return cmd
}

// runPlay drives a session from input lines: an option number answers, "s"
// skips, an empty line advances after a result and "q" quits.
func runPlay(ctx context.Context, service *app.QuizService, quizID string, filter app.Filter, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-stop:
				return
			}
		}
	}()

	// Handlers run inside session calls, so events are buffered and printed by the loop.
	events := make(chan any, 64)
	unsubscribe := service.OnAchievementUnlocked(func(e app.AchievementUnlocked) { events <- e })
	defer unsubscribe()

	session, err := service.StartSessionWith(ctx, quizID, filter, func(s *app.Session) {
		s.OnQuestionLoaded(func(e app.QuestionLoaded) { events <- e })
		s.OnQuestionResult(func(e app.QuestionResult) { events <- e })
		s.OnQuizCompleted(func(e app.QuizCompleted) { events <- e })
	})
	if err != nil {
		return fmt.Errorf("start quiz %s: %w", quizID, err)
	}
	defer session.Close()

	for {
		select {
		case ev := <-events:
			if done := printEvent(out, session, ev); done {
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				flushEvents(out, session, events)
				return nil
			}
			if line == "q" {
				fmt.Fprintln(out, "Quiz abandoned.")
				return nil
			}
			if err := handleLine(session, line); err != nil {
				fmt.Fprintf(out, "! %v\n", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func handleLine(session *app.Session, line string) error {
	switch session.State() {
	case app.StateQuestionActive:
		if line == "s" {
			_, err := session.Skip()
			return err
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			return fmt.Errorf("enter an option number or s to skip")
		}
		_, err = session.SubmitAnswer(n - 1)
		return err
	case app.StateQuestionAnswered:
		if line != "" {
			return fmt.Errorf("press enter to continue")
		}
		return session.Advance()
	}
	return nil
}

func flushEvents(out io.Writer, session *app.Session, events chan any) {
	for {
		select {
		case ev := <-events:
			if printEvent(out, session, ev) {
				return
			}
		default:
			return
		}
	}
}

func printEvent(out io.Writer, session *app.Session, ev any) (done bool) {
	switch e := ev.(type) {
	case app.QuestionLoaded:
		fmt.Fprintf(out, "\nQuestion %d/%d [%s, %s] (%s)\n%s\n", e.Index+1, e.Total, e.Question.Topic, e.Question.Difficulty, e.TimeLimit, e.Question.Text)
		for i, opt := range e.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
		}
	case app.QuestionResult:
		r := e.Result
		switch {
		case r.Correct:
			fmt.Fprintf(out, "Correct! +%d\n", r.Awarded)
		case r.TimedOut:
			fmt.Fprintln(out, "Time's up!")
		default:
			pos := session.DisplayPosition(r.QuestionIndex, r.CorrectIndex)
			fmt.Fprintf(out, "Wrong. The answer was %d) %s\n", pos+1, e.Question.Options[r.CorrectIndex])
		}
		if r.Explanation != "" {
			fmt.Fprintln(out, r.Explanation)
		}
		fmt.Fprintf(out, "Score: %d. Press enter to continue.\n", r.TotalScore)
	case app.QuizCompleted:
		o := e.Outcome
		fmt.Fprintf(out, "\nQuiz complete! Score: %d/%d (%d of %d correct) in %s\n", o.Score, o.MaxScore, o.Correct, o.Total, o.Elapsed.Round(time.Second))
		return true
	case app.AchievementUnlocked:
		fmt.Fprintf(out, "Achievement unlocked: %s - %s\n", e.Achievement.Title, e.Achievement.Description)
	}
	return false
}
