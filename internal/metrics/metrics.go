// Package metrics is the thin instrumentation facade the rest of the code
// writes to. A backend is optional: the default is a no-op, so library code
// can instrument unconditionally.
package metrics

import (
	"sync"
	"time"
)

// Labels are metric dimensions. Backends decide which labels they honor.
type Labels map[string]string

// Backend receives metric writes. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
	Close() error
}

// Metric names. Backends switch on these; unknown names are ignored.
const (
	PagesTotal         = "harvest_pages_total"
	RecordsTotal       = "harvest_records_total"
	FieldsMissingTotal = "harvest_fields_missing_total"
	RunDurationSeconds = "harvest_run_duration_seconds"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }
func (nopBackend) Close() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend. Call once at startup,
// before any writes you care about.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveDuration records d as seconds in a histogram.
func ObserveDuration(name string, d time.Duration, labels Labels) {
	current().ObserveHistogram(name, d.Seconds(), labels)
}

// Flush submits buffered metrics, when the backend buffers.
func Flush() error { return current().Flush() }

// Close flushes and releases the backend.
func Close() error { return current().Close() }
