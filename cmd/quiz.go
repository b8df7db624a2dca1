package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/docquiz/internal/assembler"
	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/ui/theme"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Generate, inspect, and take quizzes",
}

var quizGenerateCmd = &cobra.Command{
	Use:   "generate <document-id>",
	Short: "Generate a quiz from a document (costs one credit per question)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := principalFrom(cmd)
		if err != nil {
			return err
		}
		count, _ := cmd.Flags().GetInt("count")
		instructions, _ := cmd.Flags().GetString("instructions")
		title, _ := cmd.Flags().GetString("title")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		out, err := a.newAssembler(ctx).Assemble(ctx, assembler.Request{
			PrincipalID:        principal,
			DocumentID:         args[0],
			QuestionCount:      count,
			CustomInstructions: instructions,
			Title:              title,
		})
		if err != nil {
			if errors.Is(err, quiz.ErrInvalidQuestionCount) {
				return fmt.Errorf("%w: choose one of %v", err, quiz.AllowedQuestionCounts)
			}
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s %s\n", theme.Title.Render(out.Quiz.Title), theme.Hint.Render("("+out.Quiz.ID+")"))
		fmt.Fprintf(w, "%d questions, %d credits charged, %d remaining\n",
			out.Quiz.QuestionCount, out.Reservation.Amount, out.Balance)
		if out.Degraded {
			fmt.Fprintln(w, theme.Warning.Render("Generation failed; placeholder questions were used."))
			if out.Cause != nil {
				fmt.Fprintln(w, theme.Hint.Render("cause: "+out.Cause.Error()))
			}
		}
		fmt.Fprintln(w, theme.Hint.Render("Take it with: docquiz quiz show --hide-answers "+out.Quiz.ID))
		return nil
	},
}

var quizShowCmd = &cobra.Command{
	Use:   "show <quiz-id>",
	Short: "Print a quiz",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := principalFrom(cmd)
		if err != nil {
			return err
		}
		hide, _ := cmd.Flags().GetBool("hide-answers")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		q, err := a.ownedQuiz(cmd.Context(), principal, args[0])
		if err != nil {
			return err
		}
		if hide {
			q = q.WithoutAnswers()
		}
		renderQuiz(cmd.OutOrStdout(), q, !hide)
		return nil
	},
}

var quizListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the principal's quizzes",
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

		quizzes, err := a.store.Quizzes().ListQuizzes(cmd.Context(), principal)
		if err != nil {
			return fmt.Errorf("list quizzes: %w", err)
		}

		w := cmd.OutOrStdout()
		if len(quizzes) == 0 {
			fmt.Fprintln(w, "No quizzes found.")
			return nil
		}

		fmt.Fprintf(w, "%-36s  %-19s  %4s  %-3s  %s\n", "ID", "Created", "Qs", "", "Title")
		fmt.Fprintln(w, theme.Rule.Render(strings.Repeat("─", 90)))
		for _, q := range quizzes {
			flag := ""
			if q.Degraded {
				flag = "*"
			}
			fmt.Fprintf(w, "%-36s  %-19s  %4d  %-3s  %s\n",
				q.ID,
				q.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				q.QuestionCount,
				flag,
				q.Title,
			)
		}
		fmt.Fprintln(w, theme.Hint.Render("* placeholder questions"))
		return nil
	},
}

var quizSubmitCmd = &cobra.Command{
	Use:   "submit <quiz-id>",
	Short: "Grade answers for a quiz",
	Long: "Grade answers for a quiz. Answers are zero-based option indexes in " +
		"question order, comma separated; use -1 or leave blank to skip a question.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := principalFrom(cmd)
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetString("answers")
		answers := parseAnswers(raw)

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.newScorer().Submit(cmd.Context(), principal, args[0], answers)
		if err != nil {
			return err
		}
		renderResult(cmd.OutOrStdout(), res)
		return nil
	},
}

// parseAnswers turns "0,2,,3" into [0 2 -1 3]. Entries that are not an
// integer count as unanswered.
func parseAnswers(raw string) []int {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	answers := make([]int, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			answers[i] = quiz.Unanswered
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			n = quiz.Unanswered
		}
		answers[i] = n
	}
	return answers
}

func renderQuiz(w io.Writer, q *quiz.Quiz, withAnswers bool) {
	fmt.Fprintln(w, theme.Title.Render(q.Title))
	if q.Degraded {
		fmt.Fprintln(w, theme.Warning.Render("placeholder questions"))
	}
	for _, qq := range q.Questions {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s\n", theme.Label.Render(fmt.Sprintf("%d.", qq.ID)), qq.Prompt)
		for i, opt := range qq.Options {
			line := fmt.Sprintf("  [%d] %s", i, opt)
			if withAnswers && i == qq.CorrectIndex {
				line = theme.Correct.Render(line)
			}
			b.WriteString(line)
			if i < len(qq.Options)-1 {
				b.WriteByte('\n')
			}
		}
		if withAnswers && qq.Explanation != "" {
			b.WriteString("\n" + theme.Hint.Render(qq.Explanation))
		}
		fmt.Fprintln(w, theme.Card.Render(b.String()))
	}
}

func renderResult(w io.Writer, r *quiz.Result) {
	tier := theme.TierStyle(r.Feedback.Tier)
	fmt.Fprintf(w, "%s %d/%d (%.0f%%)\n", theme.Title.Render("Score:"), r.Score, r.Total, r.Percentage)
	fmt.Fprintln(w, tier.Render(r.Feedback.Message))
	for _, s := range r.Feedback.Suggestions {
		fmt.Fprintln(w, "  • "+s)
	}
	fmt.Fprintln(w)
	for _, o := range r.Outcomes {
		sel := "-"
		if o.Selected != quiz.Unanswered {
			sel = strconv.Itoa(o.Selected)
		}
		fmt.Fprintf(w, "%s %3d. answered %s, correct %d\n", theme.Mark(o.IsCorrect), o.QuestionID, sel, o.CorrectIndex)
	}
	fmt.Fprintln(w, theme.Hint.Render("result "+r.ID))
}

func init() {
	quizGenerateCmd.Flags().IntP("count", "n", 10, "Number of questions (10, 20, 30, 40, or 50)")
	quizGenerateCmd.Flags().StringP("instructions", "i", "", "Custom instructions for the generator")
	quizGenerateCmd.Flags().StringP("title", "t", "", "Quiz title (defaults to \"Quiz: <document name>\")")
	quizShowCmd.Flags().Bool("hide-answers", false, "Omit the answer key and explanations")
	quizSubmitCmd.Flags().StringP("answers", "a", "", "Comma-separated option indexes, e.g. 0,1,2,3,0")

	quizCmd.AddCommand(quizGenerateCmd)
	quizCmd.AddCommand(quizShowCmd)
	quizCmd.AddCommand(quizListCmd)
	quizCmd.AddCommand(quizSubmitCmd)
}
