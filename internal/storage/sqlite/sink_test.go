package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"harvest/internal/storage"
)

func openSink(t *testing.T) storage.Sink {
	t.Helper()
	s, err := storage.New(context.Background(), storage.Config{
		Kind: "sqlite",
		DSN:  "file:" + t.Name() + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// TestSink_RoundTrip verifies table creation, inserts including NULL for
// missing values, and the implicit source_page column.
func TestSink_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openSink(t)

	tbl := storage.Table{Name: "Companies", Columns: []string{"Name", "Founded"}}
	if err := s.EnsureTable(ctx, tbl); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	// Second call must be a no-op.
	if err := s.EnsureTable(ctx, tbl); err != nil {
		t.Fatalf("EnsureTable (repeat): %v", err)
	}

	n, err := s.InsertRows(ctx, tbl, [][]any{
		{"Acme Corp", "2019", 1},
		{"Beta Ltd", nil, 2},
	})
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted %d rows, want 2", n)
	}

	db := s.(*sink).db
	rows, err := db.QueryContext(ctx, `SELECT "name", "founded", "source_page" FROM "companies" ORDER BY "source_page"`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	type row struct {
		name    string
		founded sql.NullString
		source  int
	}
	var got []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.name, &r.founded, &r.source); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].name != "Acme Corp" || !got[0].founded.Valid || got[0].founded.String != "2019" {
		t.Fatalf("row 0 = %+v", got[0])
	}
	if got[1].name != "Beta Ltd" || got[1].founded.Valid {
		t.Fatalf("missing value must store NULL, got %+v", got[1])
	}
	if got[1].source != 2 {
		t.Fatalf("source_page = %d, want 2", got[1].source)
	}
}

func TestSink_RowWidthMismatch(t *testing.T) {
	ctx := context.Background()
	s := openSink(t)

	tbl := storage.Table{Name: "items", Columns: []string{"a", "b"}}
	if err := s.EnsureTable(ctx, tbl); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if _, err := s.InsertRows(ctx, tbl, [][]any{{"only-one-value"}}); err == nil {
		t.Fatal("expected error for short row")
	}
}

func TestSink_EmptyInsertIsNoop(t *testing.T) {
	ctx := context.Background()
	s := openSink(t)

	tbl := storage.Table{Name: "empty", Columns: []string{"a"}}
	if err := s.EnsureTable(ctx, tbl); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	n, err := s.InsertRows(ctx, tbl, nil)
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if n != 0 {
		t.Fatalf("inserted %d rows, want 0", n)
	}
}
