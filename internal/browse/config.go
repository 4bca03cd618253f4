// Package browse drives one headless browser session through a configured
// navigation mode and yields the page snapshot at each stable state.
//
// The engine's success criterion is operational: "the visible data changed",
// not "something was clicked". Controls that are absent, disabled, covered by
// an overlay, or wired to a handler that silently no-ops all collapse into
// the same terminal signal, and nothing that happens after the first
// captured snapshot ever discards results already in hand.
package browse

import (
	"fmt"
	"time"
)

// Mode selects the navigation strategy for a run.
type Mode string

const (
	// ModeSingle captures the landing page and stops.
	ModeSingle Mode = "single"

	// ModePagination repeatedly invokes a "next" control, bounded by
	// MaxPages, stopping as soon as the listing stops changing.
	ModePagination Mode = "pagination"

	// ModeListDetail captures the listing, then visits up to MaxItems
	// detail links collected from it.
	ModeListDetail Mode = "list_detail"
)

// Config is a validated navigation plan.
type Config struct {
	Mode Mode

	// Wait is the settle delay applied after each navigation step.
	Wait time.Duration

	// MaxPages bounds the pagination loop (ModePagination).
	MaxPages int

	// NextSelector locates the paging control (ModePagination).
	NextSelector string

	// MaxItems bounds detail visits (ModeListDetail).
	MaxItems int

	// DetailSelector locates detail links on the listing (ModeListDetail).
	DetailSelector string

	// FingerprintSelector scopes the change-detection fingerprint. The
	// fingerprint is the joined normalized text of all matches; default
	// "body" compares the full visible listing rather than only its first
	// item, which can stay stable across a failed transition.
	FingerprintSelector string
}

// ConfigError reports an invalid navigation configuration. It is raised
// before any navigation starts, never mid-run.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("navigation config: %s: %s", e.Field, e.Msg)
}

// Validate checks mode/selector combinations and bounds, applying defaults
// for optional knobs.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSingle, ModePagination, ModeListDetail:
	case "":
		c.Mode = ModeSingle
	default:
		return &ConfigError{Field: "mode", Msg: fmt.Sprintf("unknown mode %q", c.Mode)}
	}

	if c.Wait < 0 {
		return &ConfigError{Field: "wait", Msg: "must not be negative"}
	}
	if c.Wait == 0 {
		c.Wait = 10 * time.Second
	}
	if c.FingerprintSelector == "" {
		c.FingerprintSelector = "body"
	}

	switch c.Mode {
	case ModePagination:
		if c.NextSelector == "" {
			return &ConfigError{Field: "next_selector", Msg: "required for pagination mode"}
		}
		if c.MaxPages == 0 {
			c.MaxPages = 5
		}
		if c.MaxPages < 1 {
			return &ConfigError{Field: "max_pages", Msg: "must be at least 1"}
		}
	case ModeListDetail:
		if c.DetailSelector == "" {
			return &ConfigError{Field: "detail_selector", Msg: "required for list_detail mode"}
		}
		if c.MaxItems == 0 {
			c.MaxItems = 5
		}
		if c.MaxItems < 1 {
			return &ConfigError{Field: "max_items", Msg: "must be at least 1"}
		}
	}
	return nil
}

// InitialLoadError reports that the very first page load failed. It is the
// only failure mode that returns no snapshots.
type InitialLoadError struct {
	URL string
	Err error
}

func (e *InitialLoadError) Error() string {
	return fmt.Sprintf("initial load of %s failed: %v", e.URL, e.Err)
}

func (e *InitialLoadError) Unwrap() error { return e.Err }
