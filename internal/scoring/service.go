package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/docquiz/internal/metrics"
	"github.com/abhisek/docquiz/internal/quiz"
)

// QuizReader loads quizzes. A missing quiz returns quiz.ErrQuizNotFound.
type QuizReader interface {
	GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error)
}

// ResultWriter appends graded results.
type ResultWriter interface {
	AppendResult(ctx context.Context, res *quiz.Result) error
}

// Service grades submissions and records the results.
type Service struct {
	quizzes QuizReader
	results ResultWriter
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates a scoring service. logger and m may be nil.
func NewService(quizzes QuizReader, results ResultWriter, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Service{quizzes: quizzes, results: results, logger: logger, metrics: m, now: time.Now}
}

// Submit grades answers for a quiz owned by principal and stores the result.
// Quizzes owned by someone else are reported as not found.
func (s *Service) Submit(ctx context.Context, principal, quizID string, answers []int) (*quiz.Result, error) {
	q, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	if q.PrincipalID != principal {
		return nil, fmt.Errorf("load quiz %s: %w", quizID, quiz.ErrQuizNotFound)
	}

	res := Score(q, answers, s.now().UTC())
	res.ID = uuid.NewString()

	if err := s.results.AppendResult(ctx, &res); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}

	s.metrics.Submissions.WithLabelValues(string(res.Feedback.Tier)).Inc()
	s.logger.Info("quiz scored",
		zap.String("quiz_id", quizID),
		zap.String("result_id", res.ID),
		zap.Int("score", res.Score),
		zap.Int("total", res.Total),
		zap.String("tier", string(res.Feedback.Tier)),
	)
	return &res, nil
}
