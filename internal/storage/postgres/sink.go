// Package postgres provides the Postgres dataset sink, backed by a pgx
// connection pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"harvest/internal/storage"
)

type sink struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New connects a pool to cfg.DSN and validates connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &sink{pool: pool}, nil
}

func (s *sink) Close() { s.pool.Close() }

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

	if _, err := s.pool.Exec(ctx, b.String()); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}
	return nil
}

// InsertRows batches one INSERT per row through a single transaction; pgx
// pipelines the batch in one round trip.
func (s *sink) InsertRows(ctx context.Context, t storage.Table, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	cols := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		cols = append(cols, quote(storage.Ident(c)))
	}
	cols = append(cols, `"source_page"`)

	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quote(storage.Ident(t.Name)), strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)

	batch := &pgx.Batch{}
	for _, row := range rows {
		if len(row) != len(cols) {
			return 0, fmt.Errorf("table %s: row has %d values, want %d", t.Name, len(row), len(cols))
		}
		batch.Queue(q, row...)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	var n int64
	for range rows {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, err
		}
		n += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
