package config

import (
	"fmt"
	"strings"
)

// Severity classifies a validation finding.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Issue is one validation finding. Path points into the JSON document
// ("target.url", "automation.mode").
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is severity error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks the pipeline and returns every finding. Errors must abort
// the run before any navigation; warnings are advisory.
func Validate(p *Pipeline) []Issue {
	var issues []Issue
	errf := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityWarn, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(p.Job) == "" {
		warnf("job", "empty job name; logs and metrics will carry no job tag")
	}

	if strings.TrimSpace(p.Target.URL) == "" {
		errf("target.url", "required")
	}

	if _, err := p.Automation.BrowseConfig(); err != nil {
		errf("automation", "%v", err)
	}
	if !p.Target.Dynamic && p.Automation.Mode != "" && p.Automation.Mode != "single" {
		errf("automation.mode", "mode %q needs a browser; set target.dynamic", p.Automation.Mode)
	}

	rs, err := p.Rules()
	if err != nil {
		errf("extraction", "%v", err)
	}
	if rs == nil && err == nil && !p.QuickScan.Any() {
		errf("extraction", "no extraction block and no quickscan enabled; the run would produce nothing")
	}

	if p.Output.Kind != "" && strings.TrimSpace(p.Output.DSN) == "" {
		errf("output.dsn", "required when output.kind is set")
	}
	if p.Output.Kind == "" && p.Output.DSN != "" {
		errf("output.kind", "required when output.dsn is set")
	}
	if p.Output.Kind == "" && p.Output.CSVDir == "" {
		warnf("output", "no destinations configured; results will only be logged")
	}

	if p.TimeoutSeconds < 0 {
		errf("timeout_seconds", "must not be negative")
	}

	return issues
}
