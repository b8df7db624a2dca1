package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/docquiz/internal/quiz"
)

var quizColumns = []string{
	"id", "principal_id", "document_id", "title", "custom_instructions",
	"question_count", "questions_json", "degraded", "created_at",
}

// QuizRepo persists assembled quizzes. Questions are stored as one JSON
// document in their original order.
type QuizRepo struct {
	db      *sql.DB
	dialect string
}

// SaveQuiz inserts an assembled quiz.
func (r *QuizRepo) SaveQuiz(ctx context.Context, q *quiz.Quiz) error {
	if len(q.Questions) != q.QuestionCount {
		return fmt.Errorf("save quiz %s: has %d questions, want %d", q.ID, len(q.Questions), q.QuestionCount)
	}

	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	query, args := builder(r.dialect).Insert("quizzes").
		Columns(quizColumns...).
		Values(
			q.ID,
			q.PrincipalID,
			q.DocumentID,
			q.Title,
			q.CustomInstructions,
			q.QuestionCount,
			string(questions),
			q.Degraded,
			q.CreatedAt.UTC(),
		).Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

// GetQuiz returns the quiz with the given ID or quiz.ErrQuizNotFound.
func (r *QuizRepo) GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error) {
	query, args := builder(r.dialect).Select(quizColumns...).
		From(builder(r.dialect).Table("quizzes")).
		Where(entsql.EQ("id", id)).
		Query()

	q, err := scanQuiz(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quiz.ErrQuizNotFound
	}
	return q, err
}

// ListQuizzes returns the principal's quizzes, newest first.
func (r *QuizRepo) ListQuizzes(ctx context.Context, principal string) ([]quiz.Quiz, error) {
	t := builder(r.dialect).Table("quizzes")
	query, args := builder(r.dialect).Select(quizColumns...).
		From(t).
		Where(entsql.EQ("principal_id", principal)).
		OrderBy(entsql.Desc(t.C("created_at"))).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	var out []quiz.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func scanQuiz(row rowScanner) (*quiz.Quiz, error) {
	var (
		q         quiz.Quiz
		questions string
	)
	err := row.Scan(
		&q.ID,
		&q.PrincipalID,
		&q.DocumentID,
		&q.Title,
		&q.CustomInstructions,
		&q.QuestionCount,
		&questions,
		&q.Degraded,
		&q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan quiz: %w", err)
	}
	if err := json.Unmarshal([]byte(questions), &q.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions for quiz %s: %w", q.ID, err)
	}
	return &q, nil
}
