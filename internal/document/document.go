// Package document wraps one captured page and exposes selector queries over
// it under two dialects (CSS and XPath), plus a normalized plain-text view.
//
// The markup is parsed exactly once; both dialects operate on the same
// golang.org/x/net/html node tree, so a node returned by one dialect can be
// passed back to helpers regardless of which dialect produced it.
package document

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// Doc is one parsed document snapshot.
//
// Doc is read-only after Parse and safe for concurrent queries.
type Doc struct {
	root *html.Node
	gq   *goquery.Document
	base *url.URL
	url  string
}

// Parse parses markup and records baseURL for link resolution.
//
// An unparsable baseURL is tolerated (relative references then pass through
// unresolved); broken markup is not, since nothing downstream can run
// without a node tree.
func Parse(markup, baseURL string) (*Doc, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	return &Doc{
		root: root,
		gq:   goquery.NewDocumentFromNode(root),
		base: base,
		url:  baseURL,
	}, nil
}

// URL returns the URL the document was captured from.
func (d *Doc) URL() string { return d.url }

// Root returns the document root node.
func (d *Doc) Root() *html.Node { return d.root }

// Select runs query against the whole document and returns matched nodes in
// document order. A malformed query returns a *QueryError; zero matches
// return an empty slice and a nil error.
func (d *Doc) Select(query string, dialect Dialect) ([]*html.Node, error) {
	return d.SelectIn(d.root, query, dialect)
}

// SelectIn runs query relative to container.
//
// XPath queries that start at the root ("//x" or "/x") are rewritten to
// ".//x" so that "relative to the container" holds for both dialects.
func (d *Doc) SelectIn(container *html.Node, query string, dialect Dialect) ([]*html.Node, error) {
	switch dialect {
	case DialectXPath:
		q := query
		if strings.HasPrefix(q, "/") {
			q = "." + q
		}
		// A trailing attribute step selects elements; the caller reads the
		// attribute off the matched nodes via SplitAttrStep + Attr.
		if elem, _ := SplitAttrStep(q); elem != "" {
			q = elem
		}
		expr, err := xpath.Compile(q)
		if err != nil {
			return nil, &QueryError{Dialect: dialect, Query: query, Err: err}
		}
		return htmlquery.QuerySelectorAll(container, expr), nil

	default:
		m, err := cascadia.Compile(query)
		if err != nil {
			return nil, &QueryError{Dialect: DialectCSS, Query: query, Err: err}
		}
		scope := goquery.NewDocumentFromNode(container)
		return scope.FindMatcher(m).Nodes, nil
	}
}

// SplitAttrStep splits a trailing XPath attribute step off query.
//
// ".//a/@href" yields (".//a", "href"). Queries without a final attribute
// step yield ("", ""). Attribute steps buried mid-expression (followed by
// further path segments or predicates) are left to the XPath engine.
func SplitAttrStep(query string) (elem, attr string) {
	i := strings.LastIndex(query, "/@")
	if i < 0 {
		return "", ""
	}
	name := query[i+2:]
	if name == "" || strings.ContainsAny(name, "/[]()= ") {
		return "", ""
	}
	return query[:i], name
}

// ResolveURL resolves ref against the document base URL.
//
// Already-absolute refs come back unchanged; if the base itself failed to
// parse, ref passes through as-is.
func (d *Doc) ResolveURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if d.base == nil {
		return u.String()
	}
	return d.base.ResolveReference(u).String()
}

// PlainText returns the normalized text of the document body (the whole
// tree when no body element exists), with non-content subtrees removed.
func (d *Doc) PlainText() string {
	if body := d.gq.Find("body"); len(body.Nodes) > 0 {
		return Text(body.Nodes[0])
	}
	return Text(d.root)
}

// TextLines returns the body text as one cleaned line per block-level
// element, for scanners that work line by line.
func (d *Doc) TextLines() []string {
	if body := d.gq.Find("body"); len(body.Nodes) > 0 {
		return Lines(body.Nodes[0])
	}
	return Lines(d.root)
}
