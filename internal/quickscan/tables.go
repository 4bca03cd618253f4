package quickscan

import (
	"fmt"

	"golang.org/x/net/html"

	"harvest/internal/document"
)

// Table is one extracted HTML table, normalized to a rectangle: every row
// padded to the header width, headers synthesized or deduplicated where the
// markup leaves them blank or repeated.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Tables extracts every <table> in document order. A row made entirely of
// th cells before any data row becomes the header; tables without one get
// "Column N" headers. Tables with no rows at all are dropped.
func Tables(d *document.Doc) []Table {
	nodes, _ := d.Select("table", document.DialectCSS)
	var out []Table
	for _, tn := range nodes {
		t := extractTable(tn)
		if len(t.Rows) == 0 && len(t.Headers) == 0 {
			continue
		}
		out = append(out, t)
	}
	return out
}

func extractTable(tn *html.Node) Table {
	var headers []string
	var rows [][]string

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "table":
				// Nested tables are extracted on their own.
			case "tr":
				cells, isHeader := rowCells(c)
				if len(cells) == 0 {
					continue
				}
				if isHeader && headers == nil && len(rows) == 0 {
					headers = cells
					continue
				}
				rows = append(rows, cells)
			default:
				visit(c)
			}
		}
	}
	visit(tn)

	width := len(headers)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	for len(headers) < width {
		headers = append(headers, "")
	}
	for i, r := range rows {
		for len(r) < width {
			r = append(r, "")
		}
		rows[i] = r
	}

	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s %d", h, n)
		}
		headers[i] = h
	}
	return Table{Headers: headers, Rows: rows}
}

// rowCells returns the cell texts of one tr and whether the row consists of
// th cells only.
func rowCells(tr *html.Node) (cells []string, header bool) {
	header = true
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "th":
			cells = append(cells, document.Text(c))
		case "td":
			header = false
			cells = append(cells, document.Text(c))
		}
	}
	return cells, header && len(cells) > 0
}
