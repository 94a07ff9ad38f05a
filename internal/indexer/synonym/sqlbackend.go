package synonym

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var regexpTableName = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)

// SQLBackend persists learned synonyms in a two-column table. The SQL is
// portable between SQLite (the local cache) and PostgreSQL.
type SQLBackend struct {
	db    *sql.DB
	table string
}

// SQLOption configures an SQLBackend.
type SQLOption func(*SQLBackend) error

// WithTableName overrides the default "personal_synonyms" table.
func WithTableName(name string) SQLOption {
	return func(b *SQLBackend) error {
		if !regexpTableName.MatchString(name) {
			return fmt.Errorf("invalid table name: %s", name)
		}
		b.table = name
		return nil
	}
}

// NewSQLBackend creates the backing table if needed.
func NewSQLBackend(ctx context.Context, db *sql.DB, opts ...SQLOption) (*SQLBackend, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	b := &SQLBackend{db: db, table: "personal_synonyms"}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	stmt := `
CREATE TABLE IF NOT EXISTS ` + b.table + ` (
  token TEXT NOT NULL,
  synonym TEXT NOT NULL,
  learned_at TIMESTAMP NOT NULL,
  PRIMARY KEY (token, synonym)
)`
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("creating %s table: %w", b.table, err)
	}
	return b, nil
}

// LoadAll returns every persisted pair ordered by token and synonym.
func (b *SQLBackend) LoadAll(ctx context.Context) ([]Pair, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT token, synonym FROM `+b.table+` ORDER BY token, synonym`)
	if err != nil {
		return nil, fmt.Errorf("querying personal synonyms: %w", err)
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.Token, &p.Synonym); err != nil {
			return nil, fmt.Errorf("scanning personal synonym row: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// Save inserts pairs in one transaction; existing pairs are left untouched.
func (b *SQLBackend) Save(ctx context.Context, pairs []Pair) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := `INSERT INTO ` + b.table + ` (token, synonym, learned_at) VALUES ($1, $2, $3)
ON CONFLICT (token, synonym) DO NOTHING`
	now := time.Now().UTC()
	for _, p := range pairs {
		if _, err := tx.ExecContext(ctx, stmt, p.Token, p.Synonym, now); err != nil {
			return fmt.Errorf("inserting synonym %s -> %s: %w", p.Token, p.Synonym, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
