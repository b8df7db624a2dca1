package quizgen

import (
	"fmt"
	"strings"
)

// MaxDocumentRunes is how much document text is sent to the backend.
// Longer text is cut without regard for word boundaries.
const MaxDocumentRunes = 4000

const systemPrompt = "You are an expert quiz generator. Generate high-quality multiple-choice questions based on document content."

const schemaExample = `{
  "questions": [
    {
      "id": 1,
      "question": "Question text here?",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correct_answer": 0,
      "explanation": "Explanation for why this is correct"
    }
  ]
}`

// Prompt is a rendered request for the generation backend.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt renders the instruction block for a question set. It does not
// check questionCount; callers enforce the allowed set.
func BuildPrompt(documentText string, questionCount int, customInstructions string) Prompt {
	var b strings.Builder

	fmt.Fprintf(&b, "Based on the following document content, generate exactly %d multiple-choice questions.\n\n", questionCount)

	b.WriteString("Document content:\n")
	b.WriteString(truncateRunes(documentText, MaxDocumentRunes))
	b.WriteString("\n\n")

	if instr := strings.TrimSpace(customInstructions); instr != "" {
		fmt.Fprintf(&b, "Additional instructions: %s\n\n", instr)
	}

	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "1. Generate exactly %d questions\n", questionCount)
	b.WriteString("2. Each question should have 4 options (A, B, C, D)\n")
	b.WriteString("3. Only one option should be correct\n")
	b.WriteString("4. Questions should test understanding of the document content\n")
	b.WriteString("5. Provide explanations for the correct answers\n")
	b.WriteString("6. Return the response in the following JSON format, with no other text:\n\n")
	b.WriteString(schemaExample)
	b.WriteString("\n")

	return Prompt{System: systemPrompt, User: b.String()}
}

// truncateRunes cuts s to at most n runes so the result stays valid UTF-8.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
