package quizgen

import "github.com/abhisek/docquiz/internal/llm"

// QuestionSetSchema is the JSON schema a backend response must satisfy. It
// is sent to providers as a structured output hint and compiled locally to
// check the raw text.
var QuestionSetSchema = &llm.Schema{
	Name:        "question-set",
	Description: "A set of multiple-choice questions generated from a document",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id": map[string]any{
							"type":        "integer",
							"minimum":     1,
							"description": "Positive question number, unique within the set",
						},
						"question": map[string]any{
							"type":        "string",
							"minLength":   1,
							"description": "The question text",
						},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string", "minLength": 1},
							"minItems":    4,
							"maxItems":    4,
							"description": "Exactly four answer options",
						},
						"correct_answer": map[string]any{
							"type":        "integer",
							"minimum":     0,
							"maximum":     3,
							"description": "Zero-based index of the correct option",
						},
						"explanation": map[string]any{
							"type":        "string",
							"minLength":   1,
							"description": "Why the correct option is correct",
						},
					},
					"required":             []any{"id", "question", "options", "correct_answer", "explanation"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
