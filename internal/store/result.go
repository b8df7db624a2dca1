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

var resultColumns = []string{
	"id", "quiz_id", "principal_id", "score", "total", "percentage",
	"answers_json", "feedback_json", "completed_at",
}

// ResultRepo persists graded submissions. A quiz may have many results.
type ResultRepo struct {
	db      *sql.DB
	dialect string
}

// AppendResult inserts a graded result.
func (r *ResultRepo) AppendResult(ctx context.Context, res *quiz.Result) error {
	answers, err := json.Marshal(res.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	feedback, err := json.Marshal(res.Feedback)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	query, args := builder(r.dialect).Insert("quiz_results").
		Columns(resultColumns...).
		Values(
			res.ID,
			res.QuizID,
			res.PrincipalID,
			res.Score,
			res.Total,
			res.Percentage,
			string(answers),
			string(feedback),
			res.CompletedAt.UTC(),
		).Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// ListResults returns the principal's results for a quiz, oldest first.
func (r *ResultRepo) ListResults(ctx context.Context, principal, quizID string) ([]quiz.Result, error) {
	t := builder(r.dialect).Table("quiz_results")
	query, args := builder(r.dialect).Select(resultColumns...).
		From(t).
		Where(entsql.And(
			entsql.EQ("quiz_id", quizID),
			entsql.EQ("principal_id", principal),
		)).
		OrderBy(t.C("completed_at")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []quiz.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func scanResult(row rowScanner) (*quiz.Result, error) {
	var (
		res               quiz.Result
		answers, feedback string
	)
	err := row.Scan(
		&res.ID,
		&res.QuizID,
		&res.PrincipalID,
		&res.Score,
		&res.Total,
		&res.Percentage,
		&answers,
		&feedback,
		&res.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan result: %w", err)
	}
	if err := json.Unmarshal([]byte(answers), &res.Outcomes); err != nil {
		return nil, fmt.Errorf("unmarshal answers for result %s: %w", res.ID, err)
	}
	if err := json.Unmarshal([]byte(feedback), &res.Feedback); err != nil {
		return nil, fmt.Errorf("unmarshal feedback for result %s: %w", res.ID, err)
	}
	return &res, nil
}
