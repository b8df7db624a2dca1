package scoring

import (
	"time"

	"github.com/abhisek/docquiz/internal/quiz"
)

// Tier thresholds on the percentage score.
const (
	ExcellentThreshold = 80.0
	GoodThreshold      = 60.0
)

// Score grades answers against the quiz's answer key. It accepts answer
// slices of any length: missing trailing entries count as unanswered, and
// unanswered or out-of-range selections are always wrong. The returned
// result has no ID; callers assign one when persisting.
func Score(q *quiz.Quiz, answers []int, now time.Time) quiz.Result {
	outcomes := make([]quiz.Outcome, len(q.Questions))
	score := 0

	for i, question := range q.Questions {
		selected := quiz.Unanswered
		if i < len(answers) {
			selected = answers[i]
		}
		if selected < 0 || selected >= len(question.Options) {
			selected = quiz.Unanswered
		}

		correct := selected != quiz.Unanswered && selected == question.CorrectIndex
		if correct {
			score++
		}
		outcomes[i] = quiz.Outcome{
			QuestionID:   question.ID,
			Selected:     selected,
			CorrectIndex: question.CorrectIndex,
			IsCorrect:    correct,
		}
	}

	total := len(q.Questions)
	var pct float64
	if total > 0 {
		pct = 100 * float64(score) / float64(total)
	}

	return quiz.Result{
		QuizID:      q.ID,
		PrincipalID: q.PrincipalID,
		Score:       score,
		Total:       total,
		Percentage:  pct,
		Outcomes:    outcomes,
		Feedback:    FeedbackFor(pct),
		CompletedAt: now,
	}
}

// FeedbackFor classifies a percentage into a feedback tier.
func FeedbackFor(pct float64) quiz.Feedback {
	switch {
	case pct >= ExcellentThreshold:
		return quiz.Feedback{
			Tier:    quiz.TierExcellent,
			Message: "Excellent work! You have a strong understanding of the material.",
			Suggestions: []string{
				"Review the few questions you missed to close the remaining gaps",
				"Try a larger quiz on the same document to confirm your mastery",
			},
		}
	case pct >= GoodThreshold:
		return quiz.Feedback{
			Tier:    quiz.TierGood,
			Message: "Good job! You understand most of the material.",
			Suggestions: []string{
				"Re-read the sections related to the questions you missed",
				"Study the explanations for incorrect answers",
				"Retake the quiz to reinforce what you learned",
			},
		}
	default:
		return quiz.Feedback{
			Tier:    quiz.TierNeedsPractice,
			Message: "Keep practicing! Review the material and try again.",
			Suggestions: []string{
				"Review the whole document again carefully",
				"Read every explanation, including for questions you got right",
				"Take notes on the key concepts before retaking the quiz",
			},
		}
	}
}
