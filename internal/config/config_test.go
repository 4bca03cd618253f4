package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"harvest/internal/browse"
)

const sampleConfig = `{
	"job": "companies",
	"target": {"url": "https://example.com/list", "dynamic": true},
	"automation": {
		"mode": "pagination",
		"wait_seconds": 2,
		"max_pages": 3,
		"next_selector": ".next"
	},
	"extraction": {
		"container": ".item",
		"fields": {"Name": ".title", "Link": ".title"}
	},
	"quickscan": {"emails": true},
	"output": {"csv_dir": "out", "kind": "sqlite", "dsn": "file:run.db"},
	"timeout_seconds": 120
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	p, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if p.Job != "companies" || !p.Target.Dynamic {
		t.Fatalf("unexpected pipeline: %+v", p)
	}
	if p.Timeout() != 2*time.Minute {
		t.Fatalf("Timeout = %v", p.Timeout())
	}

	cfg, err := p.Automation.BrowseConfig()
	if err != nil {
		t.Fatalf("BrowseConfig: %v", err)
	}
	if cfg.Mode != browse.ModePagination || cfg.Wait != 2*time.Second || cfg.MaxPages != 3 {
		t.Fatalf("browse config = %+v", cfg)
	}

	rs, err := p.Rules()
	if err != nil {
		t.Fatalf("Rules: %v", err)
	}
	if rs == nil || len(rs.Fields) != 2 || rs.Fields[0].Name != "Name" {
		t.Fatalf("rules = %+v", rs)
	}
}

func TestLoad_BadJSON(t *testing.T) {
	t.Parallel()

	if _, err := Load(writeConfig(t, `{"job": `)); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()

	p, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if issues := Validate(p); HasErrors(issues) {
		t.Fatalf("unexpected errors: %v", issues)
	}
}

func TestValidate_Findings(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Pipeline)
		path   string
	}{
		{"missing url", func(p *Pipeline) { p.Target.URL = " " }, "target.url"},
		{"bad mode", func(p *Pipeline) { p.Automation.Mode = "spider" }, "automation"},
		{"pagination without browser", func(p *Pipeline) { p.Target.Dynamic = false }, "automation.mode"},
		{"kind without dsn", func(p *Pipeline) { p.Output.DSN = "" }, "output.dsn"},
		{"dsn without kind", func(p *Pipeline) { p.Output.Kind = "" }, "output.kind"},
		{"negative timeout", func(p *Pipeline) { p.TimeoutSeconds = -1 }, "timeout_seconds"},
		{
			"nothing to extract",
			func(p *Pipeline) { p.Extraction = nil; p.QuickScan = QuickScan{} },
			"extraction",
		},
		{
			"invalid extraction block",
			func(p *Pipeline) { p.Extraction = []byte(`{"container": "", "fields": {}}`) },
			"extraction",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := Load(writeConfig(t, sampleConfig))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			c.mutate(p)

			issues := Validate(p)
			if !HasErrors(issues) {
				t.Fatalf("expected errors, got %v", issues)
			}
			found := false
			for _, i := range issues {
				if i.Severity == SeverityError && i.Path == c.path {
					found = true
				}
			}
			if !found {
				t.Fatalf("no error at path %q: %v", c.path, issues)
			}
		})
	}
}

// TestValidate_Warnings verifies advisory findings do not block a run.
func TestValidate_Warnings(t *testing.T) {
	t.Parallel()

	p, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p.Job = ""
	p.Output = Output{}

	issues := Validate(p)
	if HasErrors(issues) {
		t.Fatalf("warnings must not be errors: %v", issues)
	}
	if len(issues) < 2 {
		t.Fatalf("expected warnings, got %v", issues)
	}
}
