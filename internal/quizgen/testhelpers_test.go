package quizgen

import (
	"encoding/json"
	"fmt"
)

// rawQuestion mirrors the wire format so tests can build malformed input.
type rawQuestion map[string]any

func validRawQuestion(id int) rawQuestion {
	return rawQuestion{
		"id":             id,
		"question":       fmt.Sprintf("What does section %d describe?", id),
		"options":        []string{"Light", "Water", "Soil", "Air"},
		"correct_answer": id % 4,
		"explanation":    "The section says so.",
	}
}

func validQuestions(n int) []rawQuestion {
	qs := make([]rawQuestion, n)
	for i := range qs {
		qs[i] = validRawQuestion(i + 1)
	}
	return qs
}

func setJSON(qs []rawQuestion) string {
	b, err := json.Marshal(map[string]any{"questions": qs})
	if err != nil {
		panic(err)
	}
	return string(b)
}
