package quizgen

import (
	"fmt"
	"strings"

	"github.com/abhisek/docquiz/internal/quiz"
)

// Fallback builds a deterministic placeholder question set. It never fails
// and never contacts a backend; the same arguments always yield the same
// questions.
func Fallback(count int, customInstructions string) []quiz.Question {
	if count < 0 {
		count = 0
	}
	instr := strings.TrimSpace(customInstructions)

	qs := make([]quiz.Question, count)
	for i := 1; i <= count; i++ {
		prompt := fmt.Sprintf("Sample question %d about the document content?", i)
		if instr != "" {
			prompt = fmt.Sprintf("Sample question %d about the document content (%s)?", i, instr)
		}
		qs[i-1] = quiz.Question{
			ID:     i,
			Prompt: prompt,
			Options: []string{
				fmt.Sprintf("Option A for question %d", i),
				fmt.Sprintf("Option B for question %d", i),
				fmt.Sprintf("Option C for question %d", i),
				fmt.Sprintf("Option D for question %d", i),
			},
			CorrectIndex: i % quiz.OptionCount,
			Explanation:  "Placeholder question generated because the generation backend was unavailable or returned an invalid response.",
		}
	}
	return qs
}
