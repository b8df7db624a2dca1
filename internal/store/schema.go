package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
)

// Table DDL. Type placeholders are replaced per dialect so both SQLite and
// Postgres share one definition. quizzes.document_id has no foreign key:
// a quiz keeps its questions after its source document is deleted.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS principals (
		id TEXT PRIMARY KEY,
		balance BIGINT NOT NULL CHECK (balance >= 0),
		created_at {{time}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		principal_id TEXT NOT NULL REFERENCES principals(id),
		name TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at {{time}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		principal_id TEXT NOT NULL REFERENCES principals(id),
		document_id TEXT NOT NULL,
		title TEXT NOT NULL,
		custom_instructions TEXT NOT NULL DEFAULT '',
		question_count INTEGER NOT NULL,
		questions_json TEXT NOT NULL,
		degraded BOOLEAN NOT NULL DEFAULT FALSE,
		created_at {{time}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS quiz_results (
		id TEXT PRIMARY KEY,
		quiz_id TEXT NOT NULL REFERENCES quizzes(id),
		principal_id TEXT NOT NULL REFERENCES principals(id),
		score INTEGER NOT NULL,
		total INTEGER NOT NULL,
		percentage {{float}} NOT NULL,
		answers_json TEXT NOT NULL,
		feedback_json TEXT NOT NULL,
		completed_at {{time}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		id {{serial}},
		sequence BIGINT NOT NULL,
		created_at {{time}} NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms BIGINT NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_principal ON documents(principal_id)`,
	`CREATE INDEX IF NOT EXISTS idx_quizzes_principal ON quizzes(principal_id)`,
	`CREATE INDEX IF NOT EXISTS idx_results_quiz ON quiz_results(quiz_id)`,
}

func ddlTypes(d string) *strings.Replacer {
	if d == dialect.Postgres {
		return strings.NewReplacer(
			"{{time}}", "TIMESTAMPTZ",
			"{{float}}", "DOUBLE PRECISION",
			"{{serial}}", "BIGSERIAL PRIMARY KEY",
		)
	}
	return strings.NewReplacer(
		"{{time}}", "TIMESTAMP",
		"{{float}}", "REAL",
		"{{serial}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
	)
}

// migrate creates all tables and indexes that do not exist yet.
func migrate(ctx context.Context, db *sql.DB, d string) error {
	r := ddlTypes(d)
	for _, stmt := range tables {
		if _, err := db.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
