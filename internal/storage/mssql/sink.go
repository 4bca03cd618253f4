// Package mssql provides the SQL Server dataset sink.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"harvest/internal/storage"
)

type sink struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// New opens a connection using the "sqlserver" driver and validates
// connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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

// EnsureTable uses the OBJECT_ID guard; SQL Server has no
// CREATE TABLE IF NOT EXISTS.
func (s *sink) EnsureTable(ctx context.Context, t storage.Table) error {
	name := storage.Ident(t.Name)

	var cols strings.Builder
	for _, col := range t.Columns {
		cols.WriteString(quote(storage.Ident(col)))
		cols.WriteString(" NVARCHAR(MAX), ")
	}
	cols.WriteString("[source_page] INT")

	q := fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
		name, quote(name), cols.String(),
	)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
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
	cols = append(cols, "[source_page]")

	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("@p%d", i+1)
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quote(storage.Ident(t.Name)), strings.Join(cols, ", "), strings.Join(placeholders, ", "),
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
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}
