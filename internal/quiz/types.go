package quiz

import "time"

// OptionCount is the number of options every question carries.
const OptionCount = 4

// Unanswered marks a submitted answer slot with no valid selection.
const Unanswered = -1

// AllowedQuestionCounts are the only question counts a quiz may request.
var AllowedQuestionCounts = []int{10, 20, 30, 40, 50}

// IsAllowedQuestionCount reports whether n is one of AllowedQuestionCounts.
func IsAllowedQuestionCount(n int) bool {
	for _, c := range AllowedQuestionCounts {
		if c == n {
			return true
		}
	}
	return false
}

// Question is a single multiple-choice item. It is immutable once the
// owning quiz has been assembled.
type Question struct {
	// ID is positive and unique within its quiz.
	ID int `json:"id"`

	// Prompt is the question text shown to the taker.
	Prompt string `json:"question"`

	// Options holds exactly OptionCount distinct strings.
	Options []string `json:"options"`

	// CorrectIndex is the zero-based index into Options, in [0,3].
	CorrectIndex int `json:"correct_answer"`

	// Explanation says why the correct option is correct.
	Explanation string `json:"explanation"`
}

// Document is the already-extracted source text a quiz is built from.
type Document struct {
	ID          string
	PrincipalID string
	Name        string
	Text        string
	CreatedAt   time.Time
}

// Quiz is an assembled, immutable question set owned by a principal.
type Quiz struct {
	ID                 string     `json:"id"`
	PrincipalID        string     `json:"principal_id"`
	DocumentID         string     `json:"document_id"`
	Title              string     `json:"title"`
	CustomInstructions string     `json:"custom_instructions,omitempty"`
	QuestionCount      int        `json:"question_count"`
	Questions          []Question `json:"questions"`

	// Degraded is set when the questions came from the deterministic
	// fallback instead of the generation backend.
	Degraded bool `json:"degraded"`

	CreatedAt time.Time `json:"created_at"`
}

// WithoutAnswers returns a copy of the quiz with answer keys and
// explanations stripped, suitable for showing to a taker.
func (q *Quiz) WithoutAnswers() *Quiz {
	cp := *q
	cp.Questions = make([]Question, len(q.Questions))
	for i, qq := range q.Questions {
		cp.Questions[i] = Question{
			ID:           qq.ID,
			Prompt:       qq.Prompt,
			Options:      append([]string(nil), qq.Options...),
			CorrectIndex: Unanswered,
		}
	}
	return &cp
}

// Tier is the qualitative feedback band a result falls into.
type Tier string

const (
	TierExcellent     Tier = "excellent"
	TierGood          Tier = "good"
	TierNeedsPractice Tier = "needs_practice"
)

// Feedback is the qualitative part of a result.
type Feedback struct {
	Tier        Tier     `json:"tier"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
}

// Outcome records how a single question was answered.
type Outcome struct {
	QuestionID   int  `json:"question_id"`
	Selected     int  `json:"selected"`
	CorrectIndex int  `json:"correct_answer"`
	IsCorrect    bool `json:"is_correct"`
}

// Result is one graded submission against a quiz. A quiz may have many
// results (retakes); results are immutable once created.
type Result struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quiz_id"`
	PrincipalID string    `json:"principal_id"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Percentage  float64   `json:"percentage"`
	Outcomes    []Outcome `json:"answers"`
	Feedback    Feedback  `json:"feedback"`
	CompletedAt time.Time `json:"completed_at"`
}
