// Package storage persists extracted datasets into SQL backends selected by
// kind at runtime. Backends register themselves from init() in their own
// packages; importing a backend package is what makes its kind available.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config selects and connects a sink backend.
//
// Kind must match a registered backend ("sqlite", "postgres", "mssql"); DSN
// is passed through to the backend factory and validated there.
type Config struct {
	Kind string
	DSN  string
}

// Table describes one dataset's destination table: a TEXT column per dataset
// column, in output order, plus a source_page INTEGER column every backend
// appends implicitly.
type Table struct {
	Name    string
	Columns []string
}

// Sink is the minimal surface dataset persistence needs. Each backend
// implements the semantics in its own idiomatic way (Postgres ON CONFLICT is
// not required here; rows are append-only snapshots of a run).
type Sink interface {
	// EnsureTable creates the destination table when it does not exist.
	// Safe to call on every run.
	EnsureTable(ctx context.Context, t Table) error

	// InsertRows appends rows. Each row carries one value per column, in
	// Table.Columns order, followed by the source page index. Missing field
	// values are nil and stored as NULL.
	InsertRows(ctx context.Context, t Table, rows [][]any) (int64, error)

	// Close releases backend resources. Call once at shutdown.
	Close()
}

type factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a sink backend under a kind. Call it from an init()
// function in the backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. Failing fast beats ambiguous backend
//     selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Sink using the registered backend factory.
func New(ctx context.Context, cfg Config) (Sink, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing output kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds, for error messages and -help.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
