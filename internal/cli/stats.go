package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"quiz-engine/internal/app"
)

// NewStatsCmd prints progress, leaderboard and achievements.
func NewStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show player progress, leaderboard and achievements",
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
			return printStats(cmd.OutOrStdout(), rt.service)
		},
	}
}

// NewResetCmd clears player progress. Leaderboard and achievements are kept.
func NewResetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset player progress",
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
			if err := rt.service.Progress().Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "progress reset")
			return nil
		},
	}
}

func printStats(out io.Writer, service *app.QuizService) error {
	p := service.Progress().Progress()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Player:\t%s\n", p.PlayerName)
	fmt.Fprintf(tw, "Total score:\t%d\n", p.TotalScore)
	fmt.Fprintf(tw, "Quizzes completed:\t%d\n", p.QuizzesCompleted)

	ids := make([]string, 0, len(p.QuizResults))
	for id := range p.QuizResults {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		r := p.QuizResults[id]
		fmt.Fprintf(tw, "  %s\t%d/%d\n", id, r.Score, r.MaxScore)
	}

	fmt.Fprintln(tw, "\nLeaderboard:")
	for i, e := range service.Leaderboard().Entries() {
		fmt.Fprintf(tw, "  %d.\t%s\t%d\t%s\n", i+1, e.PlayerName, e.Score, e.DateAchieved.Format("2006-01-02"))
	}

	fmt.Fprintln(tw, "\nAchievements:")
	for _, a := range service.Achievements().All() {
		mark := " "
		if a.Unlocked {
			mark = "x"
		}
		fmt.Fprintf(tw, "  [%s]\t%s\t%s\n", mark, a.Title, a.Description)
	}
	return tw.Flush()
}
