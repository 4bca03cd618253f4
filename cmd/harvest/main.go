// Command harvest runs one scraping pipeline described by a JSON config:
// acquire pages (browser or plain HTTP), extract rule-driven and quickscan
// datasets, and deliver them to CSV and/or a SQL sink.
//
// Usage:
//
//	harvest -config configs/companies.json
//	harvest -config configs/companies.json -validate
//	harvest -config configs/companies.json -metrics-backend datadog
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"harvest/internal/config"
	"harvest/internal/logging"
	"harvest/internal/metrics"
	"harvest/internal/metrics/datadog"
	pipeline "harvest/internal/run"

	// Register every sink backend; the config selects which one runs.
	_ "harvest/internal/storage/mssql"
	_ "harvest/internal/storage/postgres"
	_ "harvest/internal/storage/sqlite"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, pipeline.Run))
}

// runner matches pipeline.Run; tests substitute a fake.
type runner func(ctx context.Context, p *config.Pipeline, log *zap.Logger) (*pipeline.Outcome, error)

// run is split out from main so the command can be tested without spawning a
// process. Exit codes: 0 success, 1 runtime failure or invalid config, 2
// usage errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, exec runner) int {
	fs := flag.NewFlagSet("harvest", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfgPath := fs.String("config", "", "pipeline config JSON path (required)")
	validate := fs.Bool("validate", false, "validate the configuration and exit")
	metricsBackend := fs.String("metrics-backend", "", "metrics backend (datadog, none)")
	verbose := fs.Bool("v", false, "enable verbose logs")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*cfgPath) == "" {
		fmt.Fprintln(stderr, "usage: harvest -config <pipeline.json> [-validate] [-metrics-backend datadog] [-v]")
		return 2
	}

	p, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	issues := config.Validate(p)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s\n", iss)
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(stderr, "configuration is invalid: %s\n", *cfgPath)
		return 1
	}
	if *validate {
		fmt.Fprintf(stdout, "configuration is valid: %s\n", *cfgPath)
		return 0
	}

	log, err := logging.New(*verbose)
	if err != nil {
		fmt.Fprintf(stderr, "init logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	initMetrics(*metricsBackend, p.Job, log)
	defer func() {
		if err := metrics.Close(); err != nil {
			log.Warn("metrics close", zap.Error(err))
		}
	}()

	start := time.Now()
	out, err := exec(ctx, p, log)

	if out != nil {
		for _, d := range out.Datasets {
			fmt.Fprintf(stdout, "%s: %d record(s)\n", d.Name, d.Len())
		}
		for _, path := range out.CSVPaths {
			fmt.Fprintf(stdout, "wrote %s\n", path)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	log.Info("run completed", zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
	return 0
}

// initMetrics installs the selected metrics backend. The default is the nop
// backend; an unknown name is a warning, not a failure, so a typo cannot
// kill a scheduled run.
func initMetrics(name, job string, log *zap.Logger) {
	switch name {
	case "datadog":
		if job == "" {
			job = "harvest"
		}
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: job,
			Tags:    datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
		})
		if err != nil {
			log.Warn("datadog metrics init failed; metrics disabled", zap.Error(err))
			return
		}
		metrics.SetBackend(b)
		log.Info("metrics enabled", zap.String("backend", name), zap.String("job", job))

	case "", "none":
		// nop backend remains

	default:
		log.Warn("unknown metrics backend; metrics disabled", zap.String("backend", name))
	}
}
