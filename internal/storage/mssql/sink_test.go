package mssql

import "testing"

func TestQuote(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"companies", "[companies]"},
		{"weird]name", "[weird]]name]"},
	}
	for _, c := range cases {
		if got := quote(c.in); got != c.want {
			t.Fatalf("quote(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
