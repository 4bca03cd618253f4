package document

import (
	"fmt"
	"strings"
)

// Dialect identifies the selector language of a query string.
//
// Every query in the system carries its dialect explicitly; there is no
// sniffing. The two dialects have different sibling/attribute semantics, so
// callers must never assume a query valid in one parses in the other.
type Dialect string

const (
	DialectCSS   Dialect = "css"
	DialectXPath Dialect = "xpath"
)

// ParseDialect normalizes a user-supplied dialect name.
//
// Accepted spellings (case-insensitive): "css", "xpath". Anything else is an
// error so config validation can fail fast.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "css":
		return DialectCSS, nil
	case "xpath":
		return DialectXPath, nil
	default:
		return "", fmt.Errorf("unknown selector dialect %q (want css or xpath)", s)
	}
}

// QueryError reports a syntactically invalid query for its dialect.
//
// It is intentionally distinguishable from "zero matches": Select returns an
// empty slice with a nil error for legitimate no-match queries, and a
// *QueryError only when the query itself failed to compile.
type QueryError struct {
	Dialect Dialect
	Query   string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid %s query %q: %v", e.Dialect, e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
