package scoring

import (
	"testing"
	"time"

	"github.com/abhisek/docquiz/internal/quiz"
)

func quizWithKey(key ...int) *quiz.Quiz {
	qs := make([]quiz.Question, len(key))
	for i, k := range key {
		qs[i] = quiz.Question{
			ID:           i + 1,
			Prompt:       "?",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: k,
			Explanation:  "e",
		}
	}
	return &quiz.Quiz{ID: "q1", PrincipalID: "alice", QuestionCount: len(key), Questions: qs}
}

func TestScore_Example(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := Score(quizWithKey(0, 1, 2, 3, 0), []int{0, 1, 9, 3, -1}, now)

	if res.Score != 3 || res.Total != 5 {
		t.Fatalf("expected 3/5, got %d/%d", res.Score, res.Total)
	}
	if res.Percentage != 60.0 {
		t.Fatalf("expected 60%%, got %v", res.Percentage)
	}
	if res.Feedback.Tier != quiz.TierGood {
		t.Fatalf("expected good tier, got %q", res.Feedback.Tier)
	}
	if !res.CompletedAt.Equal(now) {
		t.Errorf("unexpected completion time %v", res.CompletedAt)
	}

	wantSelected := []int{0, 1, quiz.Unanswered, 3, quiz.Unanswered}
	wantCorrect := []bool{true, true, false, true, false}
	for i, o := range res.Outcomes {
		if o.Selected != wantSelected[i] || o.IsCorrect != wantCorrect[i] {
			t.Errorf("outcome %d = %+v", i, o)
		}
		if o.QuestionID != i+1 {
			t.Errorf("outcome %d: question id %d", i, o.QuestionID)
		}
	}
}

func TestScore_ShortAndLongSubmissions(t *testing.T) {
	q := quizWithKey(1, 1, 1, 1)

	tests := []struct {
		name    string
		answers []int
		want    int
	}{
		{"nil", nil, 0},
		{"empty", []int{}, 0},
		{"short", []int{1, 1}, 2},
		{"exact", []int{1, 1, 1, 0}, 3},
		{"extra entries ignored", []int{1, 1, 1, 1, 1, 1}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(q, tt.answers, time.Now())
			if res.Score != tt.want {
				t.Fatalf("score = %d, want %d", res.Score, tt.want)
			}
			if res.Total != 4 || len(res.Outcomes) != 4 {
				t.Fatalf("expected 4 outcomes, got total %d, %d outcomes", res.Total, len(res.Outcomes))
			}
		})
	}
}

func TestScore_OutOfRangeNeverMatches(t *testing.T) {
	// A corrupt key outside [0,3] must not match an out-of-range answer.
	q := quizWithKey(0)
	q.Questions[0].CorrectIndex = -1

	res := Score(q, []int{-1}, time.Now())
	if res.Score != 0 {
		t.Fatalf("expected unanswered to be wrong, got score %d", res.Score)
	}

	res = Score(quizWithKey(3), []int{7}, time.Now())
	if res.Score != 0 || res.Outcomes[0].Selected != quiz.Unanswered {
		t.Fatalf("expected out-of-range answer to be unanswered, got %+v", res.Outcomes[0])
	}
}

func TestScore_EmptyQuiz(t *testing.T) {
	res := Score(&quiz.Quiz{ID: "empty"}, []int{1, 2}, time.Now())
	if res.Total != 0 || res.Percentage != 0 {
		t.Fatalf("expected 0 total and 0%%, got %d and %v", res.Total, res.Percentage)
	}
	if res.Feedback.Tier != quiz.TierNeedsPractice {
		t.Fatalf("expected needs_practice, got %q", res.Feedback.Tier)
	}
}

func TestFeedbackFor_Thresholds(t *testing.T) {
	tests := []struct {
		pct  float64
		want quiz.Tier
	}{
		{100, quiz.TierExcellent},
		{80, quiz.TierExcellent},
		{79.99, quiz.TierGood},
		{60, quiz.TierGood},
		{59.99, quiz.TierNeedsPractice},
		{0, quiz.TierNeedsPractice},
	}
	for _, tt := range tests {
		fb := FeedbackFor(tt.pct)
		if fb.Tier != tt.want {
			t.Errorf("FeedbackFor(%v) = %q, want %q", tt.pct, fb.Tier, tt.want)
		}
		if fb.Message == "" || len(fb.Suggestions) == 0 {
			t.Errorf("FeedbackFor(%v): expected message and suggestions", tt.pct)
		}
	}
}
