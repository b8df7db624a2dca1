package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store holds the database handle and provides access to repositories.
type Store struct {
	db      *sql.DB
	dialect string
	seq     *sequenceCounter
}

// Open creates a new Store for the given driver ("sqlite" or "postgres").
// For SQLite it applies recommended pragmas. Tables are created if missing.
func Open(driver, dsn string) (*Store, error) {
	var (
		sqlDriver string
		d         string
	)
	switch driver {
	case DriverSQLite, "":
		sqlDriver, d = "sqlite", dialect.SQLite
	case DriverPostgres:
		sqlDriver, d = "pgx", dialect.Postgres
	default:
		return nil, fmt.Errorf("unknown database driver: %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if d == dialect.SQLite {
		// Pragmas are per connection; one connection keeps them in effect
		// and matches SQLite's single-writer model.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	if err := migrate(context.Background(), db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, dialect: d, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name of the connected database.
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Principals returns the principal registry.
func (s *Store) Principals() *PrincipalRepo {
	return &PrincipalRepo{db: s.db, dialect: s.dialect}
}

// Balances returns a credits.BalanceStore backed by the principals table.
func (s *Store) Balances() *BalanceRepo {
	return &BalanceRepo{db: s.db, dialect: s.dialect}
}

// Documents returns the document registry.
func (s *Store) Documents() *DocumentRepo {
	return &DocumentRepo{db: s.db, dialect: s.dialect}
}

// Quizzes returns the quiz repository.
func (s *Store) Quizzes() *QuizRepo {
	return &QuizRepo{db: s.db, dialect: s.dialect}
}

// Results returns the quiz result repository.
func (s *Store) Results() *ResultRepo {
	return &ResultRepo{db: s.db, dialect: s.dialect}
}

// EventRepo returns the backend request event log.
func (s *Store) EventRepo() *LLMEventRepo {
	return &LLMEventRepo{db: s.db, dialect: s.dialect, seq: s.seq}
}

// builder returns an ent SQL builder for the store's dialect.
func builder(d string) *entsql.DialectBuilder {
	return entsql.Dialect(d)
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. DOCQUIZ_DB environment variable
// 2. $XDG_DATA_HOME/docquiz/docquiz.db
// 3. ~/.local/share/docquiz/docquiz.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("DOCQUIZ_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "docquiz", "docquiz.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
