// Command extract applies a rule set to one HTML document (from stdin or a
// URL) and prints the resolved records as JSON. It is the debugging loop for
// writing extraction rules: tweak, rerun, inspect.
//
// Usage (stdin):
//
//	cat page.html | extract -rules rules.json
//
// Usage (fetch URL):
//
//	extract -rules rules.json -url "https://example.com/list"
//
// Debug (print outer HTML of selector matches):
//
//	cat page.html | extract -selector ".item"
//
// Debug (print normalized text instead):
//
//	cat page.html | extract -selector ".item" -text
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html"

	"harvest/internal/document"
	"harvest/internal/fetch"
	"harvest/internal/resolve"
	"harvest/internal/rules"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is split out from main so the command can be tested without spawning a
// process. Exit codes: 0 success, 1 operational errors, 2 usage errors.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)

	rulesPath := fs.String("rules", "", "path to rule-set JSON (required unless -selector)")
	urlFlag := fs.String("url", "", "fetch HTML from URL instead of stdin")
	selector := fs.String("selector", "", "debug: print matches for a query instead of extracting")
	dialectFlag := fs.String("dialect", "css", "query dialect for -selector (css or xpath)")
	onlyText := fs.Bool("text", false, "debug: print normalized text instead of outer HTML")
	timeout := fs.Duration("timeout", 20*time.Second, "timeout for -url fetch")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	markup, baseURL, err := loadInput(ctx, *urlFlag, *timeout, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "load html: %v\n", err)
		return 1
	}

	doc, err := document.Parse(markup, baseURL)
	if err != nil {
		fmt.Fprintf(stderr, "parse html: %v\n", err)
		return 1
	}

	if *selector != "" {
		dialect, err := document.ParseDialect(*dialectFlag)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 2
		}
		if err := debugSelector(stdout, doc, *selector, dialect, *onlyText); err != nil {
			fmt.Fprintf(stderr, "selector: %v\n", err)
			return 1
		}
		return 0
	}

	if *rulesPath == "" {
		fmt.Fprintln(stderr, "missing -rules (or use -selector for debug mode)")
		return 2
	}

	rs, err := rules.Load(*rulesPath)
	if err != nil {
		fmt.Fprintf(stderr, "load rules: %v\n", err)
		return 2
	}

	recs, err := resolve.Resolve(doc, rs)
	if err != nil {
		var nce *resolve.NoContainersError
		if errors.As(err, &nce) {
			fmt.Fprintf(stderr, "container %q matched nothing\n", nce.Query)
			return 1
		}
		fmt.Fprintf(stderr, "resolve: %v\n", err)
		return 1
	}

	out := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		row := make(map[string]any, len(rec.Fields))
		for _, f := range rs.Fields {
			v := rec.Fields[f.Name]
			if v.Missing {
				row[f.Name] = nil
			} else {
				row[f.Name] = v.Text
			}
		}
		out = append(out, row)
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return 1
	}
	return 0
}

// loadInput returns the markup and its base URL. With no -url it reads all
// of stdin and leaves the base empty (relative links pass through).
func loadInput(ctx context.Context, url string, timeout time.Duration, stdin io.Reader) (markup, baseURL string, err error) {
	if url == "" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", err
		}
		if len(strings.TrimSpace(string(b))) == 0 {
			return "", "", errors.New("empty input on stdin (use -url to fetch)")
		}
		return string(b), "", nil
	}

	client, err := fetch.New(fetch.Options{Timeout: timeout})
	if err != nil {
		return "", "", err
	}
	page, err := client.Fetch(ctx, url)
	if err != nil {
		return "", "", err
	}
	return page.HTML, page.FinalURL, nil
}

// debugSelector prints each match, separated by a rule line, so nested
// matches stay visually distinct.
func debugSelector(w io.Writer, doc *document.Doc, query string, dialect document.Dialect, onlyText bool) error {
	nodes, err := doc.Select(query, dialect)
	if err != nil {
		return err
	}

	for i, n := range nodes {
		fmt.Fprintf(w, "---- match %d ----\n", i+1)
		if onlyText {
			fmt.Fprintln(w, document.Text(n))
			continue
		}
		if err := html.Render(w, n); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d match(es)\n", len(nodes))
	return nil
}
