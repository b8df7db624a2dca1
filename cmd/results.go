package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/docquiz/internal/ui/theme"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect graded submissions",
}

var resultsListCmd = &cobra.Command{
	Use:   "list <quiz-id>",
	Short: "List every attempt at a quiz, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := principalFrom(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		q, err := a.ownedQuiz(ctx, principal, args[0])
		if err != nil {
			return err
		}
		results, err := a.store.Results().ListResults(ctx, principal, q.ID)
		if err != nil {
			return fmt.Errorf("list results: %w", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, theme.Title.Render(q.Title))
		if len(results) == 0 {
			fmt.Fprintln(w, "No attempts yet.")
			return nil
		}

		fmt.Fprintf(w, "%-4s  %-19s  %7s  %7s  %s\n", "#", "Completed", "Score", "Pct", "Tier")
		fmt.Fprintln(w, theme.Rule.Render(strings.Repeat("─", 60)))
		for i, r := range results {
			fmt.Fprintf(w, "%-4d  %-19s  %7s  %6.1f%%  %s\n",
				i+1,
				r.CompletedAt.Local().Format("2006-01-02 15:04:05"),
				fmt.Sprintf("%d/%d", r.Score, r.Total),
				r.Percentage,
				theme.TierStyle(r.Feedback.Tier).Render(string(r.Feedback.Tier)),
			)
		}
		return nil
	},
}

func init() {
	resultsCmd.AddCommand(resultsListCmd)
}
