// Package resolve turns one parsed document plus an extraction rule set into
// records: one per matched container, every declared field always present.
//
// Resolution is deliberately forgiving below the container level. A field
// that cannot be resolved (malformed rule, invalid query, unsupported
// dialect combination) becomes a missing value carrying the reason, and the
// remaining fields and containers are unaffected.
package resolve

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"harvest/internal/dataset"
	"harvest/internal/document"
	"harvest/internal/rules"
)

// NoContainersError reports that the container query matched nothing.
//
// This is surfaced as an error, not an empty success, so callers can tell a
// rule mismatch apart from a page that legitimately has no data.
type NoContainersError struct {
	Query   string
	Dialect document.Dialect
}

func (e *NoContainersError) Error() string {
	return fmt.Sprintf("no container elements matched %s query %q", e.Dialect, e.Query)
}

// Resolve applies rs to doc and returns one record per matched container, in
// document order. Records come back without a source index; the aggregation
// stage stamps provenance.
//
// Errors:
//   - *document.QueryError when the container query itself is malformed.
//   - *NoContainersError when the container query matches zero elements.
//
// Resolve is idempotent: the same (doc, rs) pair always yields identical
// records, because fields resolve in declared order against a read-only tree.
func Resolve(doc *document.Doc, rs *rules.RuleSet) ([]dataset.Record, error) {
	containers, err := doc.Select(rs.Container, rs.Dialect)
	if err != nil {
		return nil, err
	}
	if len(containers) == 0 {
		return nil, &NoContainersError{Query: rs.Container, Dialect: rs.Dialect}
	}

	recs := make([]dataset.Record, 0, len(containers))
	for _, container := range containers {
		fields := make(map[string]dataset.Value, len(rs.Fields))
		for _, f := range rs.Fields {
			fields[f.Name] = resolveField(doc, container, rs, f)
		}
		recs = append(recs, dataset.Record{Fields: fields})
	}
	return recs, nil
}

// resolveField resolves a single field inside container. It never returns an
// error: every failure mode maps to a missing value with a reason.
func resolveField(doc *document.Doc, container *html.Node, rs *rules.RuleSet, f rules.Field) dataset.Value {
	switch f.Kind {
	case rules.KindInvalid:
		return dataset.NoneBecause(f.Reason)
	case rules.KindHeader:
		return resolveHeader(container, rs, f)
	case rules.KindTextMatch:
		return resolveTextMatch(doc, container, rs.Dialect, f)
	default:
		return resolveDirect(doc, container, rs.Dialect, f)
	}
}

func resolveDirect(doc *document.Doc, container *html.Node, dialect document.Dialect, f rules.Field) dataset.Value {
	nodes, err := doc.SelectIn(container, f.Query, dialect)
	if err != nil {
		return dataset.NoneBecause(err.Error())
	}
	if len(nodes) == 0 {
		return dataset.None()
	}

	if dialect == document.DialectXPath {
		// XPath rules carry their attribute inside the query, if at all.
		// Elements lacking the attribute contribute no value, matching
		// native attribute-step semantics, so take the first that has it.
		if _, attr := document.SplitAttrStep(f.Query); attr != "" {
			for _, n := range nodes {
				if v, ok := document.Attr(n, attr); ok {
					return dataset.Some(document.Clean(v))
				}
			}
			return dataset.None()
		}
		return dataset.Some(document.Text(nodes[0]))
	}

	n := nodes[0]
	switch f.Attr {
	case "", "text":
		return dataset.Some(document.Text(n))
	case "href", "src":
		v, ok := document.Attr(n, f.Attr)
		if !ok {
			return dataset.None()
		}
		return dataset.Some(doc.ResolveURL(v))
	default:
		v, ok := document.Attr(n, f.Attr)
		if !ok {
			return dataset.None()
		}
		return dataset.Some(document.Clean(v))
	}
}

// resolveHeader finds a label element (marker class + label text) and returns
// the text of its next sibling element carrying the value class.
//
// Defined for the CSS dialect only; under XPath the field is reported as
// unsupported rather than guessed at.
func resolveHeader(container *html.Node, rs *rules.RuleSet, f rules.Field) dataset.Value {
	if rs.Dialect == document.DialectXPath {
		return dataset.NoneBecause("HEADER rules require the css dialect")
	}

	var header *html.Node
	walk(container, func(n *html.Node) bool {
		if n.Type == html.ElementNode &&
			document.ClassContains(n, rs.HeaderMarker) &&
			strings.Contains(document.Text(n), f.Header) {
			header = n
			return false
		}
		return true
	})
	if header == nil {
		return dataset.None()
	}

	for s := document.NextElementSibling(header); s != nil; s = document.NextElementSibling(s) {
		if document.ClassContains(s, f.ValueClass) {
			return dataset.Some(document.Text(s))
		}
	}
	return dataset.None()
}

// resolveTextMatch finds a text node containing the label and returns the
// text of the next sibling element with the configured tag: first among the
// text node's own siblings ("Founded: <span>2019</span>"), then among the
// siblings of its parent element ("<b>Founded:</b>" followed by a span).
//
// Each dialect uses its native strategy: CSS walks the tree directly, XPath
// compiles following-sibling expressions.
func resolveTextMatch(doc *document.Doc, container *html.Node, dialect document.Dialect, f rules.Field) dataset.Value {
	if dialect == document.DialectXPath {
		if strings.Contains(f.Label, "'") {
			return dataset.NoneBecause("TEXT_MATCH label must not contain single quotes under xpath")
		}
		queries := []string{
			fmt.Sprintf(".//text()[contains(., '%s')]/following-sibling::%s[1]", f.Label, f.SiblingTag),
			fmt.Sprintf(".//*[contains(text(), '%s')]/following-sibling::%s[1]", f.Label, f.SiblingTag),
		}
		for _, q := range queries {
			nodes, err := doc.SelectIn(container, q, dialect)
			if err != nil {
				return dataset.NoneBecause(err.Error())
			}
			if len(nodes) > 0 {
				return dataset.Some(document.Text(nodes[0]))
			}
		}
		return dataset.None()
	}

	var textNode *html.Node
	walk(container, func(n *html.Node) bool {
		if n.Type == html.TextNode && strings.Contains(n.Data, f.Label) {
			textNode = n
			return false
		}
		return true
	})
	if textNode == nil {
		return dataset.None()
	}

	tag := strings.ToLower(f.SiblingTag)
	for _, start := range []*html.Node{textNode, textNode.Parent} {
		for s := document.NextElementSibling(start); s != nil; s = document.NextElementSibling(s) {
			if s.Data == tag {
				return dataset.Some(document.Text(s))
			}
		}
	}
	return dataset.None()
}

// walk visits n and its descendants in document order until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}
