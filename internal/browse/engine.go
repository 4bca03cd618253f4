package browse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Snapshot is one captured rendering of a page during a run.
//
// Index is 1-based and strictly increasing in capture order; it is the
// provenance later stamped onto extracted records.
type Snapshot struct {
	HTML  string
	URL   string
	Index int
}

// Result is a completed navigation run: the ordered snapshots plus a
// human-readable step trace. The trace is informational only; no control
// decision is ever made from it.
type Result struct {
	Snapshots []Snapshot
	Trace     []string
}

// driver is the minimal browser surface the engine needs.
//
// Why this exists:
//   - rod exposes concrete *rod.Page values, which makes the mode state
//     machine untestable without a real browser. The engine depends on this
//     interface instead; production wires the rod-backed implementation and
//     tests wire a fake.
type driver interface {
	// Navigate loads url and waits for a visible body.
	Navigate(ctx context.Context, url string) error

	// HTML returns the current rendered markup.
	HTML() (string, error)

	// URL returns the current page URL ("" when unavailable).
	URL() string

	// Fingerprint returns the normalized joined text of elements matching
	// selector, the content summary used for change detection.
	Fingerprint(selector string) (string, error)

	// ClickNext locates and invokes the paging control. It returns
	// (false, nil) when the control is absent, disabled, or not
	// interactable, and an error only for unexpected click failures.
	ClickNext(selector string) (bool, error)

	// DetailLinks collects up to max absolute URLs from elements matching
	// selector.
	DetailLinks(selector string, max int) ([]string, error)
}

// Engine runs one navigation plan against one browser session.
type Engine struct {
	cfg Config
	drv driver
	log *zap.Logger

	// Test seams. Production uses real sleeps and the 30x1s change-detection
	// window the fingerprint comparison is tuned for.
	sleep        func(time.Duration)
	pollInterval time.Duration
	pollAttempts int
}

// NewEngine validates cfg and binds the engine to a live session.
func NewEngine(s *Session, cfg Config, log *zap.Logger) (*Engine, error) {
	return newEngine(s.driver(), cfg, log)
}

func newEngine(drv driver, cfg Config, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:          cfg,
		drv:          drv,
		log:          log,
		sleep:        time.Sleep,
		pollInterval: time.Second,
		pollAttempts: 30,
	}, nil
}

// Run executes the configured mode starting at url.
//
// Errors:
//   - *InitialLoadError when the first load (or very first capture) fails;
//     no snapshots are returned.
//
// Every later failure degrades to an early stop: Run returns the snapshots
// captured so far as a success with fewer pages than requested.
func (e *Engine) Run(ctx context.Context, url string) (*Result, error) {
	res := &Result{}

	if err := e.drv.Navigate(ctx, url); err != nil {
		return nil, &InitialLoadError{URL: url, Err: err}
	}
	e.trace(res, "loaded %s", url)

	switch e.cfg.Mode {
	case ModePagination:
		e.runPagination(ctx, res)
	case ModeListDetail:
		e.runListDetail(ctx, res)
	default:
		e.sleep(e.cfg.Wait)
		e.capture(res)
	}

	if len(res.Snapshots) == 0 {
		return nil, &InitialLoadError{URL: url, Err: fmt.Errorf("page loaded but no snapshot could be captured")}
	}
	return res, nil
}

// capture appends the current page state as the next snapshot. A capture
// failure is traced and reported, never propagated.
func (e *Engine) capture(res *Result) bool {
	html, err := e.drv.HTML()
	if err != nil {
		e.trace(res, "capture failed: %v", err)
		return false
	}
	idx := len(res.Snapshots) + 1
	res.Snapshots = append(res.Snapshots, Snapshot{HTML: html, URL: e.drv.URL(), Index: idx})
	e.trace(res, "captured snapshot %d (%d bytes)", idx, len(html))
	return true
}

func (e *Engine) runPagination(ctx context.Context, res *Result) {
	for page := 1; page <= e.cfg.MaxPages; page++ {
		if !e.capture(res) {
			return
		}
		if page == e.cfg.MaxPages {
			e.trace(res, "reached max pages (%d)", e.cfg.MaxPages)
			return
		}

		before, err := e.drv.Fingerprint(e.cfg.FingerprintSelector)
		if err != nil {
			e.trace(res, "fingerprint failed: %v; stopping", err)
			return
		}

		clicked, err := e.drv.ClickNext(e.cfg.NextSelector)
		if err != nil {
			e.trace(res, "next control click failed: %v; stopping", err)
			return
		}
		if !clicked {
			e.trace(res, "next control absent or disabled; stopping")
			return
		}

		if !e.waitForChange(ctx, res, before) {
			e.trace(res, "content did not change after clicking next; stopping")
			return
		}

		e.sleep(e.cfg.Wait)
	}
}

// waitForChange polls the content fingerprint until it differs from before,
// bounded by the configured attempt window.
func (e *Engine) waitForChange(ctx context.Context, res *Result, before string) bool {
	for attempt := 1; attempt <= e.pollAttempts; attempt++ {
		if ctx.Err() != nil {
			e.trace(res, "canceled while waiting for content change")
			return false
		}
		e.sleep(e.pollInterval)

		now, err := e.drv.Fingerprint(e.cfg.FingerprintSelector)
		if err != nil {
			continue
		}
		if now != "" && now != before {
			e.trace(res, "content changed after %d poll(s)", attempt)
			return true
		}
	}
	return false
}

func (e *Engine) runListDetail(ctx context.Context, res *Result) {
	e.sleep(e.cfg.Wait)
	if !e.capture(res) {
		return
	}

	links, err := e.drv.DetailLinks(e.cfg.DetailSelector, e.cfg.MaxItems)
	if err != nil {
		e.trace(res, "collecting detail links failed: %v; stopping", err)
		return
	}
	e.trace(res, "collected %d detail link(s)", len(links))

	for _, link := range links {
		if ctx.Err() != nil {
			e.trace(res, "canceled before visiting %s", link)
			return
		}
		if err := e.drv.Navigate(ctx, link); err != nil {
			e.trace(res, "detail navigation to %s failed: %v; skipping", link, err)
			e.log.Warn("detail navigation failed", zap.String("url", link), zap.Error(err))
			continue
		}
		e.sleep(e.cfg.Wait)
		e.capture(res)
	}
}

func (e *Engine) trace(res *Result, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	res.Trace = append(res.Trace, line)
	e.log.Debug(line)
}
