package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/abhisek/docquiz/internal/metrics"
	"github.com/abhisek/docquiz/internal/quiz"
)

type memQuizzes map[string]*quiz.Quiz

func (m memQuizzes) GetQuiz(_ context.Context, id string) (*quiz.Quiz, error) {
	q, ok := m[id]
	if !ok {
		return nil, quiz.ErrQuizNotFound
	}
	return q, nil
}

type memResults struct {
	results []quiz.Result
	err     error
}

func (m *memResults) AppendResult(_ context.Context, res *quiz.Result) error {
	if m.err != nil {
		return m.err
	}
	m.results = append(m.results, *res)
	return nil
}

func TestSubmit(t *testing.T) {
	quizzes := memQuizzes{"q1": quizWithKey(0, 1, 2, 3, 0)}
	results := &memResults{}
	m := metrics.New()
	svc := NewService(quizzes, results, nil, m)

	res, err := svc.Submit(context.Background(), "alice", "q1", []int{0, 1, 9, 3, -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID == "" {
		t.Fatal("expected result ID")
	}
	if res.Score != 3 || res.Feedback.Tier != quiz.TierGood {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(results.results) != 1 || results.results[0].ID != res.ID {
		t.Fatalf("expected result to be stored, got %+v", results.results)
	}

	// Retakes append a new result.
	if _, err := svc.Submit(context.Background(), "alice", "q1", []int{0, 1, 2, 3, 0}); err != nil {
		t.Fatalf("retake: %v", err)
	}
	if len(results.results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results.results))
	}
	if got := testutil.ToFloat64(m.Submissions.WithLabelValues(string(quiz.TierExcellent))); got != 1 {
		t.Errorf("expected 1 excellent submission, got %v", got)
	}
}

func TestSubmit_NotFound(t *testing.T) {
	quizzes := memQuizzes{"q1": quizWithKey(0)}
	results := &memResults{}
	svc := NewService(quizzes, results, nil, nil)

	tests := []struct {
		name      string
		principal string
		quizID    string
	}{
		{"missing quiz", "alice", "nope"},
		{"foreign quiz", "bob", "q1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.principal, tt.quizID, []int{0})
			if !errors.Is(err, quiz.ErrQuizNotFound) {
				t.Fatalf("expected ErrQuizNotFound, got %v", err)
			}
		})
	}
	if len(results.results) != 0 {
		t.Fatal("expected no stored results")
	}
}

func TestSubmit_SaveError(t *testing.T) {
	svc := NewService(memQuizzes{"q1": quizWithKey(0)}, &memResults{err: errors.New("db down")}, nil, nil)

	if _, err := svc.Submit(context.Background(), "alice", "q1", []int{0}); err == nil {
		t.Fatal("expected error")
	}
}
