// Package config loads and validates one pipeline description: the target,
// how to navigate it, what to extract, and where results go.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"harvest/internal/browse"
	"harvest/internal/rules"
)

// Pipeline is one run's configuration, loaded from a JSON file.
type Pipeline struct {
	// Job names the run for logs and metric tags.
	Job string `json:"job"`

	Target     Target     `json:"target"`
	Automation Automation `json:"automation"`

	// Extraction is a rule-set document (container, dialect, fields); see
	// rules.ParseJSON. Omit it to run quickscan-only.
	Extraction json.RawMessage `json:"extraction,omitempty"`

	QuickScan QuickScan `json:"quickscan"`
	Output    Output    `json:"output"`

	// TimeoutSeconds bounds the whole run. Zero means 300.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// Target describes where and how to acquire pages.
type Target struct {
	URL   string `json:"url"`
	Proxy string `json:"proxy,omitempty"`

	// Dynamic selects the browser path. Static targets go through the
	// plain HTTP client and ignore the automation block beyond mode=single.
	Dynamic bool `json:"dynamic"`

	// Headful disables headless launch, for watching a run locally.
	Headful bool `json:"headful,omitempty"`
}

// Automation is the navigation block, mirrored into browse.Config.
type Automation struct {
	Mode                string `json:"mode"`
	WaitSeconds         int    `json:"wait_seconds"`
	MaxPages            int    `json:"max_pages"`
	NextSelector        string `json:"next_selector"`
	MaxItems            int    `json:"max_items"`
	DetailSelector      string `json:"detail_selector"`
	FingerprintSelector string `json:"fingerprint_selector"`
}

// BrowseConfig converts the block into a validated navigation plan.
func (a Automation) BrowseConfig() (browse.Config, error) {
	cfg := browse.Config{
		Mode:                browse.Mode(a.Mode),
		Wait:                time.Duration(a.WaitSeconds) * time.Second,
		MaxPages:            a.MaxPages,
		NextSelector:        a.NextSelector,
		MaxItems:            a.MaxItems,
		DetailSelector:      a.DetailSelector,
		FingerprintSelector: a.FingerprintSelector,
	}
	if err := cfg.Validate(); err != nil {
		return browse.Config{}, err
	}
	return cfg, nil
}

// QuickScan toggles the single-purpose extractors. Each enabled scanner
// produces its own dataset alongside the rule-driven one.
type QuickScan struct {
	Emails       bool `json:"emails"`
	Phones       bool `json:"phones"`
	Socials      bool `json:"socials"`
	Links        bool `json:"links"`
	Images       bool `json:"images"`
	Metadata     bool `json:"metadata"`
	Addresses    bool `json:"addresses"`
	CompanyNames bool `json:"company_names"`
	Portfolio    bool `json:"portfolio"`
	Tables       bool `json:"tables"`
}

// Any reports whether at least one scanner is enabled.
func (q QuickScan) Any() bool {
	return q.Emails || q.Phones || q.Socials || q.Links || q.Images ||
		q.Metadata || q.Addresses || q.CompanyNames || q.Portfolio || q.Tables
}

// Output selects destinations. CSVDir and Kind/DSN are independent; either,
// both, or (for dry runs) neither may be set.
type Output struct {
	CSVDir string `json:"csv_dir,omitempty"`
	Kind   string `json:"kind,omitempty"`
	DSN    string `json:"dsn,omitempty"`
}

// Load reads and parses a pipeline file. Validation is separate so callers
// can report all issues at once.
func Load(path string) (*Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var p Pipeline
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &p, nil
}

// Rules parses the extraction block. Returns (nil, nil) when the block is
// absent.
func (p *Pipeline) Rules() (*rules.RuleSet, error) {
	if len(p.Extraction) == 0 {
		return nil, nil
	}
	return rules.ParseJSON(p.Extraction)
}

// Timeout returns the run deadline.
func (p *Pipeline) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}
