// Package run wires one pipeline end to end: acquire pages, resolve rules,
// aggregate datasets, and deliver them to the configured destinations.
package run

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"harvest/internal/browse"
	"harvest/internal/config"
	"harvest/internal/dataset"
	"harvest/internal/document"
	"harvest/internal/export"
	"harvest/internal/fetch"
	"harvest/internal/metrics"
	"harvest/internal/quickscan"
	"harvest/internal/resolve"
	"harvest/internal/rules"
	"harvest/internal/storage"
)

// CustomDataset is the dataset name for rule-driven extraction results.
const CustomDataset = "Custom Extraction"

// ValidationError aborts a run before any navigation.
type ValidationError struct {
	Issues []config.Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		if i.Severity == config.SeverityError {
			parts = append(parts, i.String())
		}
	}
	return "invalid pipeline: " + strings.Join(parts, "; ")
}

// Outcome is what a run produced, even when it ended early.
type Outcome struct {
	Datasets []*dataset.Dataset
	Trace    []string
	CSVPaths []string
}

// Run executes the pipeline. The returned Outcome is non-nil whenever at
// least one snapshot was captured: delivery failures and late resolution
// errors come back alongside the datasets built so far, never instead of
// them.
func Run(ctx context.Context, p *config.Pipeline, log *zap.Logger) (*Outcome, error) {
	if log == nil {
		log = zap.NewNop()
	}

	issues := config.Validate(p)
	for _, i := range issues {
		if i.Severity == config.SeverityWarn {
			log.Warn("config warning", zap.String("path", i.Path), zap.String("message", i.Message))
		}
	}
	if config.HasErrors(issues) {
		return nil, &ValidationError{Issues: issues}
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout())
	defer cancel()

	start := time.Now()
	mode := p.Automation.Mode
	if mode == "" {
		mode = string(browse.ModeSingle)
	}

	snapshots, trace, err := acquire(ctx, p, log)
	if err != nil {
		metrics.ObserveDuration(metrics.RunDurationSeconds, time.Since(start), metrics.Labels{"status": "load_failed"})
		return nil, err
	}
	metrics.IncCounter(metrics.PagesTotal, float64(len(snapshots)), metrics.Labels{"mode": mode})
	log.Info("pages acquired", zap.Int("count", len(snapshots)), zap.String("mode", mode))

	rs, err := p.Rules()
	if err != nil {
		// Validate already parsed the block; this is unreachable in practice.
		return nil, err
	}

	out := &Outcome{Trace: trace}
	agg := dataset.NewAggregator()

	var resolveErr error
	for _, snap := range snapshots {
		doc, err := document.Parse(snap.HTML, snap.URL)
		if err != nil {
			log.Warn("unparsable snapshot", zap.Int("page", snap.Index), zap.Error(err))
			continue
		}
		if rs != nil {
			if err := extractInto(agg, doc, rs, snap.Index, log); err != nil && resolveErr == nil {
				resolveErr = err
			}
		}
		if p.QuickScan.Any() {
			scanInto(agg, doc, p.QuickScan, snap.Index)
		}
	}

	out.Datasets = agg.Tables()
	for _, d := range out.Datasets {
		metrics.IncCounter(metrics.RecordsTotal, float64(d.Len()), metrics.Labels{"dataset": storage.Ident(d.Name)})
		log.Info("dataset built", zap.String("name", d.Name), zap.Int("records", d.Len()))
	}

	deliverErr := deliver(ctx, p, out, log)

	status := "ok"
	if resolveErr != nil || deliverErr != nil {
		status = "partial"
	}
	metrics.ObserveDuration(metrics.RunDurationSeconds, time.Since(start), metrics.Labels{"status": status})

	return out, errors.Join(resolveErr, deliverErr)
}

// acquire captures page snapshots via browser or plain HTTP depending on the
// target.
func acquire(ctx context.Context, p *config.Pipeline, log *zap.Logger) ([]browse.Snapshot, []string, error) {
	if p.Target.Dynamic {
		cfg, err := p.Automation.BrowseConfig()
		if err != nil {
			return nil, nil, err
		}

		session, err := browse.NewSession(browse.SessionOptions{
			Headless: !p.Target.Headful,
			Proxy:    p.Target.Proxy,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("start browser session: %w", err)
		}
		defer session.Close()

		engine, err := browse.NewEngine(session, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		res, err := engine.Run(ctx, p.Target.URL)
		if err != nil {
			return nil, nil, err
		}
		return res.Snapshots, res.Trace, nil
	}

	client, err := fetch.New(fetch.Options{Proxy: p.Target.Proxy})
	if err != nil {
		return nil, nil, err
	}
	page, err := client.Fetch(ctx, p.Target.URL)
	if err != nil {
		return nil, nil, err
	}
	snap := browse.Snapshot{HTML: page.HTML, URL: page.FinalURL, Index: 1}
	trace := []string{fmt.Sprintf("fetched %s (status %d, %s)", page.FinalURL, page.Status, page.Elapsed.Round(time.Millisecond))}
	return []browse.Snapshot{snap}, trace, nil
}

// extractInto resolves the rule set against one snapshot and folds the
// records into the aggregate. A page where the container matches nothing is
// logged and skipped; a malformed container query is reported once.
func extractInto(agg *dataset.Aggregator, doc *document.Doc, rs *rules.RuleSet, page int, log *zap.Logger) error {
	recs, err := resolve.Resolve(doc, rs)
	if err != nil {
		var nce *resolve.NoContainersError
		if errors.As(err, &nce) {
			log.Warn("container matched nothing", zap.Int("page", page), zap.String("query", nce.Query))
			return nil
		}
		return err
	}

	missing := 0
	for i := range recs {
		recs[i].Source = page
		for _, v := range recs[i].Fields {
			if v.Missing {
				missing++
			}
		}
	}
	if missing > 0 {
		metrics.IncCounter(metrics.FieldsMissingTotal, float64(missing), nil)
	}

	agg.Add(CustomDataset, rs.Columns(), recs)
	return nil
}

// scanInto runs the enabled quickscan extractors over one snapshot.
func scanInto(agg *dataset.Aggregator, doc *document.Doc, q config.QuickScan, page int) {
	single := func(name, column string, values []string) {
		recs := make([]dataset.Record, 0, len(values))
		for _, v := range values {
			recs = append(recs, dataset.Record{
				Source: page,
				Fields: map[string]dataset.Value{column: dataset.Some(v)},
			})
		}
		agg.Add(name, []string{column}, recs)
	}

	if q.Emails {
		single("Emails", "Email", quickscan.Emails(doc))
	}
	if q.Phones {
		single("Phones", "Phone", quickscan.Phones(doc))
	}
	if q.Socials {
		socials := quickscan.Socials(doc)
		recs := make([]dataset.Record, 0, len(socials))
		for _, s := range socials {
			recs = append(recs, dataset.Record{
				Source: page,
				Fields: map[string]dataset.Value{
					"Network": dataset.Some(s.Network),
					"URL":     dataset.Some(s.URL),
				},
			})
		}
		agg.Add("Socials", []string{"Network", "URL"}, recs)
	}
	if q.Links {
		single("Links", "URL", quickscan.Links(doc))
	}
	if q.Images {
		single("Images", "URL", quickscan.Images(doc))
	}
	if q.Metadata {
		metas := quickscan.Metadata(doc)
		recs := make([]dataset.Record, 0, len(metas))
		for _, m := range metas {
			recs = append(recs, dataset.Record{
				Source: page,
				Fields: map[string]dataset.Value{
					"Name":    dataset.Some(m.Name),
					"Content": dataset.Some(m.Content),
				},
			})
		}
		agg.Add("Metadata", []string{"Name", "Content"}, recs)
	}
	if q.Addresses {
		single("Addresses", "Address Candidate", quickscan.Addresses(doc))
	}
	if q.CompanyNames {
		single("Company Names", "Company Name", quickscan.CompanyNames(doc))
	}
	if q.Portfolio {
		blocks := quickscan.PortfolioBlocks(doc)
		recs := make([]dataset.Record, 0, len(blocks))
		for _, b := range blocks {
			recs = append(recs, dataset.Record{
				Source: page,
				Fields: map[string]dataset.Value{
					"Company Name": dataset.Some(b.Name),
					"URL":          dataset.Some(b.URL),
					"Description":  dataset.Some(b.Description),
				},
			})
		}
		agg.Add("Portfolio Blocks", []string{"Company Name", "URL", "Description"}, recs)
	}
	if q.Tables {
		// Tables are heterogeneous, so each one becomes its own dataset,
		// named by page and position.
		for i, t := range quickscan.Tables(doc) {
			recs := make([]dataset.Record, 0, len(t.Rows))
			for _, row := range t.Rows {
				fields := make(map[string]dataset.Value, len(t.Headers))
				for j, h := range t.Headers {
					fields[h] = dataset.Some(row[j])
				}
				recs = append(recs, dataset.Record{Source: page, Fields: fields})
			}
			agg.Add(fmt.Sprintf("Page %d Table %d", page, i+1), t.Headers, recs)
		}
	}
}

// deliver writes the outcome to the configured destinations. Delivery never
// mutates the datasets; a failed destination leaves the others' output in
// place.
func deliver(ctx context.Context, p *config.Pipeline, out *Outcome, log *zap.Logger) error {
	var errs []error

	if p.Output.CSVDir != "" {
		paths, err := export.WriteCSV(p.Output.CSVDir, out.Datasets)
		out.CSVPaths = paths
		if err != nil {
			log.Error("csv export failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("csv export: %w", err))
		} else {
			log.Info("csv written", zap.Strings("paths", paths))
		}
	}

	if p.Output.Kind != "" {
		if err := deliverSink(ctx, p, out.Datasets, log); err != nil {
			log.Error("sink delivery failed", zap.String("kind", p.Output.Kind), zap.Error(err))
			errs = append(errs, fmt.Errorf("sink %s: %w", p.Output.Kind, err))
		}
	}

	return errors.Join(errs...)
}

func deliverSink(ctx context.Context, p *config.Pipeline, tables []*dataset.Dataset, log *zap.Logger) error {
	sink, err := storage.New(ctx, storage.Config{Kind: p.Output.Kind, DSN: p.Output.DSN})
	if err != nil {
		return err
	}
	defer sink.Close()

	for _, d := range tables {
		t := storage.Table{Name: d.Name, Columns: d.Columns}
		if err := sink.EnsureTable(ctx, t); err != nil {
			return err
		}

		rows := make([][]any, 0, len(d.Records))
		for _, rec := range d.Records {
			row := make([]any, 0, len(d.Columns)+1)
			for _, col := range d.Columns {
				v := rec.Fields[col]
				if v.Missing {
					row = append(row, nil)
				} else {
					row = append(row, v.Text)
				}
			}
			row = append(row, rec.Source)
			rows = append(rows, row)
		}

		n, err := sink.InsertRows(ctx, t, rows)
		if err != nil {
			return err
		}
		log.Info("rows stored", zap.String("table", storage.Ident(d.Name)), zap.Int64("rows", n))
	}
	return nil
}
