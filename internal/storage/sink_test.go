package storage

import (
	"context"
	"testing"
)

// fakeSink satisfies Sink for registry tests.
type fakeSink struct{}

func (fakeSink) EnsureTable(context.Context, Table) error            { return nil }
func (fakeSink) InsertRows(context.Context, Table, [][]any) (int64, error) { return 0, nil }
func (fakeSink) Close()                                              {}

func fakeFactory(context.Context, Config) (Sink, error) { return fakeSink{}, nil }

func TestRegisterAndNew(t *testing.T) {
	Register("fake-kind", fakeFactory)

	s, err := New(context.Background(), Config{Kind: "fake-kind"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s == nil {
		t.Fatal("expected a sink")
	}
}

func TestNew_UnknownKind(t *testing.T) {
	if _, err := New(context.Background(), Config{Kind: "no-such-kind"}); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty kind")
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register("dup-kind", fakeFactory)
	Register("dup-kind", fakeFactory)
}

func TestRegister_NilFactoryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on nil factory")
		}
	}()
	Register("nil-kind", nil)
}

func TestIdent(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"Company Name", "company_name"},
		{"company_name", "company_name"},
		{"Founded (Year)", "founded_year"},
		{"  Emails  ", "emails"},
		{"2024 results", "t_2024_results"},
		{"", "unnamed"},
		{"---", "unnamed"},
	}
	for _, c := range cases {
		if got := Ident(c.in); got != c.want {
			t.Fatalf("Ident(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
