package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/docquiz/internal/quiz"
)

var documentColumns = []string{"id", "principal_id", "name", "text", "created_at"}

// DocumentRepo is the document registry. Text is stored already extracted.
type DocumentRepo struct {
	db      *sql.DB
	dialect string
}

// AddDocument stores a document owned by principal and returns it.
func (r *DocumentRepo) AddDocument(ctx context.Context, principal, name, text string) (*quiz.Document, error) {
	doc := &quiz.Document{
		ID:          uuid.NewString(),
		PrincipalID: principal,
		Name:        name,
		Text:        text,
		CreatedAt:   time.Now().UTC(),
	}

	query, args := builder(r.dialect).Insert("documents").
		Columns(documentColumns...).
		Values(doc.ID, doc.PrincipalID, doc.Name, doc.Text, doc.CreatedAt).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

// GetDocument returns the document if it exists and is owned by principal.
// Missing and foreign documents both yield quiz.ErrDocumentNotFound.
func (r *DocumentRepo) GetDocument(ctx context.Context, principal, id string) (*quiz.Document, error) {
	query, args := builder(r.dialect).Select(documentColumns...).
		From(builder(r.dialect).Table("documents")).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("principal_id", principal),
		)).
		Query()

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quiz.ErrDocumentNotFound
	}
	return doc, err
}

// ListDocuments returns the principal's documents, newest first.
func (r *DocumentRepo) ListDocuments(ctx context.Context, principal string) ([]quiz.Document, error) {
	t := builder(r.dialect).Table("documents")
	query, args := builder(r.dialect).Select(documentColumns...).
		From(t).
		Where(entsql.EQ("principal_id", principal)).
		OrderBy(entsql.Desc(t.C("created_at"))).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []quiz.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

// DeleteDocument removes the principal's document. Missing and foreign
// documents both yield quiz.ErrDocumentNotFound. Quizzes generated from the
// document are kept.
func (r *DocumentRepo) DeleteDocument(ctx context.Context, principal, id string) error {
	query, args := builder(r.dialect).Delete("documents").
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("principal_id", principal),
		)).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return quiz.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row rowScanner) (*quiz.Document, error) {
	var d quiz.Document
	if err := row.Scan(&d.ID, &d.PrincipalID, &d.Name, &d.Text, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &d, nil
}
