// Package sqlite provides the file-backed (or in-memory) dataset sink. It is
// the default backend: no server, one artifact per run.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"harvest/internal/storage"
)

type sink struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens (creating if needed) the SQLite database at cfg.DSN and
// validates connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sink{db: db}, nil
}

func (s *sink) Close() { _ = s.db.Close() }

func (s *sink) EnsureTable(ctx context.Context, t storage.Table) error {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(quote(storage.Ident(t.Name)))
	b.WriteString(" (")
	for _, col := range t.Columns {
		b.WriteString(quote(storage.Ident(col)))
		b.WriteString(" TEXT, ")
	}
	b.WriteString(`"source_page" INTEGER)`)

	if _, err := s.db.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}
	return nil
}

func (s *sink) InsertRows(ctx context.Context, t storage.Table, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	cols := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		cols = append(cols, quote(storage.Ident(c)))
	}
	cols = append(cols, `"source_page"`)

	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(cols)), ",") + ")"
	q := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s",
		quote(storage.Ident(t.Name)), strings.Join(cols, ", "), placeholders,
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var n int64
	for _, row := range rows {
		if len(row) != len(cols) {
			return 0, fmt.Errorf("table %s: row has %d values, want %d", t.Name, len(row), len(cols))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
