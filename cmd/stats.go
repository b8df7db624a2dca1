package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/docquiz/internal/ui/theme"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the principal's quiz statistics",
	Args:  cobra.NoArgs,
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
		balance, err := a.ledger.Balance(ctx, principal)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		docs, err := a.store.Documents().ListDocuments(ctx, principal)
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		quizzes, err := a.store.Quizzes().ListQuizzes(ctx, principal)
		if err != nil {
			return fmt.Errorf("list quizzes: %w", err)
		}

		var attempts, degraded int
		var sum, best float64
		for _, q := range quizzes {
			if q.Degraded {
				degraded++
			}
			results, err := a.store.Results().ListResults(ctx, principal, q.ID)
			if err != nil {
				return fmt.Errorf("list results: %w", err)
			}
			for _, r := range results {
				attempts++
				sum += r.Percentage
				best = max(best, r.Percentage)
			}
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, theme.Title.Render(principal))
		fmt.Fprintf(w, "%-12s %d\n", "Credits:", balance)
		fmt.Fprintf(w, "%-12s %d\n", "Documents:", len(docs))
		fmt.Fprintf(w, "%-12s %d (%d with placeholder questions)\n", "Quizzes:", len(quizzes), degraded)
		fmt.Fprintf(w, "%-12s %d\n", "Attempts:", attempts)
		if attempts > 0 {
			fmt.Fprintf(w, "%-12s %.1f%%\n", "Average:", sum/float64(attempts))
			fmt.Fprintf(w, "%-12s %.1f%%\n", "Best:", best)
		}
		return nil
	},
}
