package document

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// skipTags are subtrees that never contribute visible text.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"head":     true,
}

// Text returns the visible text content of n, whitespace-normalized.
func Text(n *html.Node) string {
	var b strings.Builder
	collectText(n, &b)
	return Clean(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	if n == nil {
		return
	}
	if n.Type == html.ElementNode && skipTags[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// blockTags are elements that start a new line in the line-oriented text
// view.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dt": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "section": true, "table": true, "td": true,
	"th": true, "tr": true, "ul": true,
}

// Lines returns the visible text of n as cleaned lines, one per block-level
// element, with empty lines dropped. Inline markup stays on its line, so
// "123 Main <b>Street</b>" comes back as a single line.
func Lines(n *html.Node) []string {
	var b strings.Builder
	collectLines(n, &b)

	raw := strings.Split(b.String(), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if c := Clean(l); c != "" {
			lines = append(lines, c)
		}
	}
	return lines
}

func collectLines(n *html.Node, b *strings.Builder) {
	if n == nil {
		return
	}
	if n.Type == html.ElementNode && skipTags[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectLines(c, b)
	}
	if block {
		b.WriteByte('\n')
	}
}

// Clean collapses runs of whitespace to single spaces, trims, and applies
// Unicode NFC so visually identical strings compare equal during dedup.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// Attr returns the value of the named attribute on n.
func Attr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// NextElementSibling returns the first element sibling after n, or nil.
func NextElementSibling(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// ClassContains reports whether n's class attribute contains fragment.
//
// Matching is substring-based on the raw attribute value, which is what the
// header-lookup rules rely on (BEM-style class names are matched by their
// stable fragment, not by exact token).
func ClassContains(n *html.Node, fragment string) bool {
	cls, ok := Attr(n, "class")
	return ok && strings.Contains(cls, fragment)
}
