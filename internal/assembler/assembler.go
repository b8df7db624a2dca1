package assembler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/docquiz/internal/credits"
	"github.com/abhisek/docquiz/internal/metrics"
	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/quizgen"
)

// Rejection reasons recorded in metrics.
const (
	reasonInvalidCount       = "invalid_question_count"
	reasonInsufficientCredit = "insufficient_credit"
	reasonDocumentNotFound   = "document_not_found"
	reasonOther              = "other"
)

// DocumentReader looks up a document owned by a principal. Missing and
// foreign documents both return quiz.ErrDocumentNotFound.
type DocumentReader interface {
	GetDocument(ctx context.Context, principal, id string) (*quiz.Document, error)
}

// QuizWriter persists an assembled quiz.
type QuizWriter interface {
	SaveQuiz(ctx context.Context, q *quiz.Quiz) error
}

// Config controls assembly.
type Config struct {
	// GenerationTimeout bounds the single backend request. Default: 30s.
	GenerationTimeout time.Duration
}

// DefaultConfig returns the recommended defaults.
func DefaultConfig() Config {
	return Config{GenerationTimeout: 30 * time.Second}
}

// Deps are the collaborators of an Assembler. Logger and Metrics are
// optional.
type Deps struct {
	Ledger    *credits.Ledger
	Generator quizgen.Generator
	Documents DocumentReader
	Quizzes   QuizWriter
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Request asks for a quiz over one document.
type Request struct {
	PrincipalID        string
	DocumentID         string
	QuestionCount      int
	CustomInstructions string
	Title              string // defaults to "Quiz: <document name>"
}

// Outcome is a successfully assembled quiz.
type Outcome struct {
	Quiz        *quiz.Quiz
	Degraded    bool
	Reservation *credits.Reservation

	// Balance is the principal's balance after the debit.
	Balance int64

	// Cause is the generation failure that forced the fallback, if any.
	Cause error
}

// Assembler turns a document into a quiz, charging one credit per question.
type Assembler struct {
	cfg       Config
	ledger    *credits.Ledger
	generator quizgen.Generator
	documents DocumentReader
	quizzes   QuizWriter
	logger    *zap.Logger
	metrics   *metrics.Metrics

	now   func() time.Time
	newID func() string
}

// New creates an Assembler.
func New(cfg Config, deps Deps) *Assembler {
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultConfig().GenerationTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Assembler{
		cfg:       cfg,
		ledger:    deps.Ledger,
		generator: deps.Generator,
		documents: deps.Documents,
		quizzes:   deps.Quizzes,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Assemble checks preconditions, debits the principal, generates questions
// and saves the quiz. Generation failures never fail the call: the
// deterministic fallback is used, Degraded is set, and the debit stands.
// If the quiz cannot be saved the debit is refunded and the error returned.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Outcome, error) {
	if !quiz.IsAllowedQuestionCount(req.QuestionCount) {
		a.reject(reasonInvalidCount)
		return nil, fmt.Errorf("%w: %d (allowed: %v)", quiz.ErrInvalidQuestionCount, req.QuestionCount, quiz.AllowedQuestionCounts)
	}
	amount := int64(req.QuestionCount)

	balance, err := a.ledger.Balance(ctx, req.PrincipalID)
	if err != nil {
		a.reject(reasonOther)
		return nil, fmt.Errorf("read balance: %w", err)
	}
	if balance < amount {
		a.reject(reasonInsufficientCredit)
		return nil, fmt.Errorf("%w: balance %d, need %d", credits.ErrInsufficientCredit, balance, amount)
	}

	doc, err := a.documents.GetDocument(ctx, req.PrincipalID, req.DocumentID)
	if err != nil {
		if errors.Is(err, quiz.ErrDocumentNotFound) {
			a.reject(reasonDocumentNotFound)
		} else {
			a.reject(reasonOther)
		}
		return nil, fmt.Errorf("load document %s: %w", req.DocumentID, err)
	}

	res, err := a.ledger.Reserve(ctx, req.PrincipalID, amount)
	if err != nil {
		if errors.Is(err, credits.ErrInsufficientCredit) {
			a.reject(reasonInsufficientCredit)
		} else {
			a.reject(reasonOther)
		}
		return nil, err
	}
	a.metrics.CreditsDebited.Add(float64(amount))

	questions, cause := a.generate(ctx, doc, req)
	degraded := cause != nil

	q := &quiz.Quiz{
		ID:                 a.newID(),
		PrincipalID:        req.PrincipalID,
		DocumentID:         doc.ID,
		Title:              quizTitle(req.Title, doc.Name),
		CustomInstructions: req.CustomInstructions,
		QuestionCount:      req.QuestionCount,
		Questions:          questions,
		Degraded:           degraded,
		CreatedAt:          a.now().UTC(),
	}

	if err := a.save(ctx, q); err != nil {
		a.refund(ctx, res)
		return nil, err
	}

	path := metrics.PathGenerated
	if degraded {
		path = metrics.PathDegraded
	}
	a.metrics.Assemblies.WithLabelValues(path).Inc()

	remaining, err := a.ledger.Balance(ctx, req.PrincipalID)
	if err != nil {
		// The quiz exists and the debit stands; report the balance the
		// debit left behind.
		remaining = res.Balance
		a.logger.Warn("read balance after assembly", zap.String("principal", req.PrincipalID), zap.Error(err))
	}

	a.logger.Info("quiz assembled",
		zap.String("quiz_id", q.ID),
		zap.String("principal", req.PrincipalID),
		zap.Int("questions", req.QuestionCount),
		zap.Bool("degraded", degraded),
		zap.Int64("balance", remaining),
	)

	return &Outcome{
		Quiz:        q,
		Degraded:    degraded,
		Reservation: res,
		Balance:     remaining,
		Cause:       cause,
	}, nil
}

// generate runs the generator under the configured timeout and falls back
// on any error. It returns the questions and the failure cause, if any.
func (a *Assembler) generate(ctx context.Context, doc *quiz.Document, req Request) ([]quiz.Question, error) {
	genCtx, cancel := context.WithTimeout(ctx, a.cfg.GenerationTimeout)
	defer cancel()

	start := a.now()
	questions, err := a.generator.Generate(genCtx, quizgen.GenerateInput{
		DocumentText:       doc.Text,
		QuestionCount:      req.QuestionCount,
		CustomInstructions: req.CustomInstructions,
	})
	if err == nil && len(questions) != req.QuestionCount {
		err = fmt.Errorf("generator returned %d questions, want %d", len(questions), req.QuestionCount)
	}
	elapsed := a.now().Sub(start).Seconds()

	if err != nil {
		a.metrics.GenerationDuration.WithLabelValues(metrics.PathDegraded).Observe(elapsed)
		a.logger.Warn("generation failed, using fallback questions",
			zap.String("principal", req.PrincipalID),
			zap.String("document_id", doc.ID),
			zap.Int("questions", req.QuestionCount),
			zap.Error(err),
		)
		return quizgen.Fallback(req.QuestionCount, req.CustomInstructions), err
	}

	a.metrics.GenerationDuration.WithLabelValues(metrics.PathGenerated).Observe(elapsed)
	return questions, nil
}

func (a *Assembler) save(ctx context.Context, q *quiz.Quiz) error {
	// A canceled request must not leave a debit behind without a quiz.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("assemble quiz: %w", err)
	}
	if err := a.quizzes.SaveQuiz(ctx, q); err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

func (a *Assembler) refund(ctx context.Context, res *credits.Reservation) {
	// Refund even if the caller's context is gone.
	if err := a.ledger.Refund(context.WithoutCancel(ctx), res); err != nil {
		a.logger.Error("refund after failed save",
			zap.String("reservation", res.ID),
			zap.String("principal", res.PrincipalID),
			zap.Int64("amount", res.Amount),
			zap.Error(err),
		)
		return
	}
	a.metrics.CreditsRefunded.Add(float64(res.Amount))
}

func (a *Assembler) reject(reason string) {
	a.metrics.Rejections.WithLabelValues(reason).Inc()
}

func quizTitle(title, documentName string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return "Quiz: " + documentName
}
